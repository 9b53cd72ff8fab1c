package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mohitkumar/assist/agent"
	"github.com/mohitkumar/assist/config"
	"github.com/mohitkumar/assist/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("namespace", "assist", "namespace used in storage")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("storage-impl", "redis", "implementation of underline storage")
	cmd.Flags().String("amqp-url", "", "amqp broker url, empty disables the broker sink")
	cmd.Flags().String("amqp-exchange", "assistance", "amqp exchange assistance objects are published to")
	cmd.Flags().String("disabled-types", "", "comma separated assistance type keys to disable")
	cmd.Flags().Duration("sweep-interval", 0, "interval between due operation sweeps")
	cmd.Flags().Duration("retention-interval", 0, "interval between retention sweeps")
	cmd.Flags().Duration("retention", 0, "age after which undeliverable scheduled operations are dropped")
	cmd.Flags().Float64("time-factor", 1, "multiplier applied to operation delays, <1 speeds them up")
	cmd.Flags().Bool("debug", false, "enable debug logging")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.AmqpConfig.URL = viper.GetString("amqp-url")
	c.cfg.AmqpConfig.Exchange = viper.GetString("amqp-exchange")
	if disabled := viper.GetString("disabled-types"); disabled != "" {
		c.cfg.DisabledTypeKeys = strings.Split(disabled, ",")
	}
	c.cfg.SweepInterval = viper.GetDuration("sweep-interval")
	c.cfg.RetentionInterval = viper.GetDuration("retention-interval")
	c.cfg.Retention = viper.GetDuration("retention")
	c.cfg.TimeFactor = viper.GetFloat64("time-factor")
	c.cfg.Debug = viper.GetBool("debug")
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	logger.Init(c.cfg.Debug)
	agent, err := agent.New(c.cfg.Config)
	if err != nil {
		panic(err)
	}
	err = agent.Start()
	if err != nil {
		panic(err)
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "assist",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
