package config

import "time"

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

type Config struct {
	RedisConfig       RedisStorageConfig
	InMemoryConfig    InmemStorageConfig
	AmqpConfig        AmqpConfig
	HttpPort          int
	StorageType       StorageType
	DisabledTypeKeys  []string
	SweepInterval     time.Duration
	RetentionInterval time.Duration
	Retention         time.Duration
	TimeFactor        float64
	Debug             bool
}

type RedisStorageConfig struct {
	Addrs     []string
	Namespace string
}

type AmqpConfig struct {
	URL      string
	Exchange string
}

type InmemStorageConfig struct {
}
