package assistance

import (
	"context"
	"sync"
	"time"

	"github.com/mohitkumar/assist/logger"
	"github.com/mohitkumar/assist/metrics"
	"github.com/mohitkumar/assist/model"
	"github.com/mohitkumar/assist/persistence"
	"github.com/mohitkumar/assist/util"
	"go.uber.org/zap"
)

// Deliverer pushes produced objects out to connected clients.
type Deliverer interface {
	Deliver(ctx context.Context, objects []model.AssistanceObject) error
}

// SchedulerConfig tunes the two background sweeps.
type SchedulerConfig struct {
	// SweepInterval is how often due entries are picked up.
	SweepInterval time.Duration
	// RetentionInterval is how often expired entries are purged.
	RetentionInterval time.Duration
	// Retention is how long a failing entry may keep retrying before it is
	// dropped.
	Retention time.Duration
}

func (c *SchedulerConfig) applyDefaults() {
	if c.SweepInterval <= 0 {
		c.SweepInterval = 2 * time.Second
	}
	if c.RetentionInterval <= 0 {
		c.RetentionInterval = 10 * time.Minute
	}
	if c.Retention <= 0 {
		c.Retention = time.Hour
	}
}

// Scheduler drives deferred operation invocations. A due entry is executed
// through the dispatcher and deleted on success; a failing entry stays in
// the store and is retried every sweep until the retention sweep drops it.
type Scheduler struct {
	scheduled  persistence.ScheduledOperationStore
	dispatcher *Dispatcher
	sink       Deliverer
	collector  *metrics.Collector
	conf       SchedulerConfig

	wg      *sync.WaitGroup
	workers []*util.TickWorker
}

func NewScheduler(scheduled persistence.ScheduledOperationStore, dispatcher *Dispatcher, sink Deliverer, collector *metrics.Collector, conf SchedulerConfig, wg *sync.WaitGroup) *Scheduler {
	conf.applyDefaults()
	return &Scheduler{
		scheduled:  scheduled,
		dispatcher: dispatcher,
		sink:       sink,
		collector:  collector,
		conf:       conf,
		wg:         wg,
	}
}

func (s *Scheduler) Start() {
	dueSweep := util.NewTickWorker("due-operation-sweep", s.conf.SweepInterval, func() {
		s.RunDueSweep(context.Background())
	}, s.wg)
	retentionSweep := util.NewTickWorker("retention-sweep", s.conf.RetentionInterval, func() {
		s.RunRetentionSweep(context.Background())
	}, s.wg)
	s.workers = []*util.TickWorker{dueSweep, retentionSweep}
	for _, worker := range s.workers {
		worker.Start()
	}
}

func (s *Scheduler) Stop() {
	for _, worker := range s.workers {
		worker.Stop()
	}
}

// RunDueSweep executes all entries whose invocation time has passed. A
// failing entry is logged and left in place; it never blocks the others.
func (s *Scheduler) RunDueSweep(ctx context.Context) {
	due, err := s.scheduled.ReadDue(ctx, time.Now())
	if err != nil {
		logger.Error("reading due operations failed", zap.Error(err))
		return
	}
	for _, op := range due {
		if err := s.invoke(ctx, op); err != nil {
			logger.Error("scheduled operation failed",
				zap.String("operation", op.OperationKey), zap.String("type", op.TypeKey),
				zap.String("aId", op.AID), zap.Error(err))
			s.collector.SweepEntryFailed()
		}
	}
}

func (s *Scheduler) invoke(ctx context.Context, op *model.ScheduledOperation) error {
	opCtx := NewContextFromSnapshot(op.Ctx)
	res, err := s.dispatcher.HandleRequest(ctx, op.TypeKey, op.OperationKey, opCtx)
	if err != nil {
		return err
	}
	if res != nil && s.sink != nil {
		objects := Objects(res.Assistance)
		if len(objects) > 0 {
			if err := s.sink.Deliver(ctx, objects); err != nil {
				return err
			}
			s.collector.ObjectsDelivered(len(objects))
		}
	}
	return s.scheduled.Delete(ctx, op.ID)
}

// RunRetentionSweep drops entries that have been due longer than the
// retention window. These are entries whose invocation kept failing.
func (s *Scheduler) RunRetentionSweep(ctx context.Context) {
	expired, err := s.scheduled.ReadDue(ctx, time.Now().Add(-s.conf.Retention))
	if err != nil {
		logger.Error("reading expired operations failed", zap.Error(err))
		return
	}
	for _, op := range expired {
		logger.Warn("dropping expired scheduled operation",
			zap.String("operation", op.OperationKey), zap.String("type", op.TypeKey),
			zap.String("aId", op.AID), zap.Time("dueAt", op.DueAt))
		if err := s.scheduled.Delete(ctx, op.ID); err != nil {
			logger.Error("deleting expired operation failed", zap.String("id", op.ID), zap.Error(err))
		}
	}
}
