package agent

import (
	"sync"

	"github.com/mohitkumar/assist/assistance"
	"github.com/mohitkumar/assist/config"
	"github.com/mohitkumar/assist/delivery"
	"github.com/mohitkumar/assist/logger"
	"github.com/mohitkumar/assist/metrics"
	"github.com/mohitkumar/assist/persistence"
	"github.com/mohitkumar/assist/persistence/memory"
	"github.com/mohitkumar/assist/persistence/redis"
	"github.com/mohitkumar/assist/processes"
	"github.com/mohitkumar/assist/rest"
	"github.com/mohitkumar/assist/statement"
)

type Agent struct {
	Config           config.Config
	assistanceStore  persistence.AssistanceStore
	scheduledStore   persistence.ScheduledOperationStore
	statementStore   persistence.StatementStore
	studentStore     persistence.StudentModelStore
	collector        *metrics.Collector
	registry         *assistance.Registry
	engine           *assistance.Engine
	dispatcher       *assistance.Dispatcher
	scheduler        *assistance.Scheduler
	statementService *statement.Service
	hub              *delivery.WebsocketHub
	amqpSink         *delivery.AmqpSink
	sink             delivery.Sink
	httpServer       *rest.Server
	shutdown         bool
	shutdownLock     sync.Mutex
	wg               sync.WaitGroup
}

func New(config config.Config) (*Agent, error) {
	a := &Agent{
		Config: config,
	}
	setup := []func() error{
		a.setupStorage,
		a.setupRegistry,
		a.setupEngine,
		a.setupDelivery,
		a.setupScheduler,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupStorage() error {
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_REDIS:
		conf := redis.Config{
			Addrs:     a.Config.RedisConfig.Addrs,
			Namespace: a.Config.RedisConfig.Namespace,
		}
		a.assistanceStore = redis.NewAssistanceStore(conf)
		a.scheduledStore = redis.NewScheduledOperationStore(conf)
		a.statementStore = redis.NewStatementStore(conf)
		a.studentStore = redis.NewStudentModelStore(conf)
	default:
		a.assistanceStore = memory.NewAssistanceStore()
		a.scheduledStore = memory.NewScheduledOperationStore()
		a.statementStore = memory.NewStatementStore()
		a.studentStore = memory.NewStudentModelStore()
	}
	return nil
}

func (a *Agent) setupRegistry() error {
	a.registry = assistance.NewRegistry()
	a.registry.Register(processes.NewGreeting(a.assistanceStore, a.statementStore, a.studentStore))
	a.registry.Register(processes.NewExchangeWillingness(a.assistanceStore, a.studentStore))
	a.registry.Register(processes.NewPeerExchange(a.assistanceStore))
	return nil
}

func (a *Agent) setupEngine() error {
	a.collector = metrics.NewCollector()
	a.engine = assistance.NewEngine(a.assistanceStore, a.scheduledStore, a.collector, a.Config.TimeFactor)
	a.dispatcher = assistance.NewDispatcher(a.registry, a.engine, a.assistanceStore, a.Config.DisabledTypeKeys)
	a.statementService = statement.NewService(a.statementStore, a.studentStore)
	return nil
}

func (a *Agent) setupDelivery() error {
	a.hub = delivery.NewWebsocketHub()
	sinks := []delivery.Sink{a.hub}
	if a.Config.AmqpConfig.URL != "" {
		a.amqpSink = delivery.NewAmqpSink(delivery.AmqpConfig{
			URL:      a.Config.AmqpConfig.URL,
			Exchange: a.Config.AmqpConfig.Exchange,
		})
		sinks = append(sinks, a.amqpSink)
	}
	a.sink = delivery.NewFanout(sinks...)
	return nil
}

func (a *Agent) setupScheduler() error {
	conf := assistance.SchedulerConfig{
		SweepInterval:     a.Config.SweepInterval,
		RetentionInterval: a.Config.RetentionInterval,
		Retention:         a.Config.Retention,
	}
	a.scheduler = assistance.NewScheduler(a.scheduledStore, a.dispatcher, a.sink, a.collector, conf, &a.wg)
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.registry, a.dispatcher, a.statementService, a.sink, a.hub, a.collector)
	if err != nil {
		return err
	}
	return nil
}

func (a *Agent) Start() error {
	a.scheduler.Start()
	go func() {
		if err := a.httpServer.Start(); err != nil {
			_ = a.Shutdown()
			panic(err)
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true

	shutdown := []func() error{
		func() error {
			a.scheduler.Stop()
			return nil
		},
		a.httpServer.Stop,
	}
	if a.amqpSink != nil {
		shutdown = append(shutdown, a.amqpSink.Close)
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	return nil
}
