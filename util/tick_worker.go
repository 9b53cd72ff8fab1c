package util

import (
	"sync"
	"time"

	"github.com/mohitkumar/assist/logger"
	"go.uber.org/zap"
)

// TickWorker runs fn on a fixed interval until stopped. The due-operation
// sweep and the retention sweep both run on one of these.
type TickWorker struct {
	stop     chan struct{}
	interval time.Duration
	wg       *sync.WaitGroup
	name     string
	fn       func()
}

func NewTickWorker(name string, interval time.Duration, fn func(), wg *sync.WaitGroup) *TickWorker {
	return &TickWorker{
		stop:     make(chan struct{}),
		interval: interval,
		wg:       wg,
		fn:       fn,
		name:     name,
	}
}

func (tw *TickWorker) Start() {
	ticker := time.NewTicker(tw.interval)
	tw.wg.Add(1)
	go func() {
		defer tw.wg.Done()
		for {
			select {
			case <-ticker.C:
				tw.fn()
			case <-tw.stop:
				logger.Info("stopping tick worker", zap.String("worker", tw.name))
				ticker.Stop()
				return
			}
		}
	}()
	logger.Info("tick worker started", zap.String("worker", tw.name), zap.Duration("interval", tw.interval))
}

func (tw *TickWorker) Stop() {
	tw.stop <- struct{}{}
}
