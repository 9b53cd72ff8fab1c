package assistance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohitkumar/assist/metrics"
	"github.com/mohitkumar/assist/model"
	"github.com/stretchr/testify/require"
)

type captureDeliverer struct {
	objects []model.AssistanceObject
	fail    bool
}

func (c *captureDeliverer) Deliver(_ context.Context, objects []model.AssistanceObject) error {
	if c.fail {
		return errors.New("sink unavailable")
	}
	c.objects = append(c.objects, objects...)
	return nil
}

func TestScheduler(t *testing.T) {
	newScheduler := func(f *engineFixture, d *Dispatcher, sink Deliverer) *Scheduler {
		return NewScheduler(f.scheduled, d, sink, metrics.NewCollector(), SchedulerConfig{}, nil)
	}

	t.Run("test due entry is executed and removed", func(t *testing.T) {
		f := newEngineFixture()
		d := newDispatcher(f, nil, announcingProcess("demo"))
		sink := &captureDeliverer{}
		s := newScheduler(f, d, sink)

		_, err := f.scheduled.Create(context.Background(), &model.ScheduledOperation{
			TypeKey:      "demo",
			OperationKey: OperationKeyInitiation,
			Ctx:          map[string]model.Value{},
			DueAt:        time.Now().Add(-time.Second),
		})
		require.NoError(t, err)

		s.RunDueSweep(context.Background())

		require.Len(t, sink.objects, 1)
		remaining, err := f.scheduled.ReadDue(context.Background(), time.Now().Add(time.Hour))
		require.NoError(t, err)
		require.Empty(t, remaining)
	})

	t.Run("test entry not yet due stays untouched", func(t *testing.T) {
		f := newEngineFixture()
		d := newDispatcher(f, nil, announcingProcess("demo"))
		sink := &captureDeliverer{}
		s := newScheduler(f, d, sink)

		_, err := f.scheduled.Create(context.Background(), &model.ScheduledOperation{
			TypeKey:      "demo",
			OperationKey: OperationKeyInitiation,
			Ctx:          map[string]model.Value{},
			DueAt:        time.Now().Add(time.Hour),
		})
		require.NoError(t, err)

		s.RunDueSweep(context.Background())
		require.Empty(t, sink.objects)
	})

	t.Run("test failing entry is kept for retry", func(t *testing.T) {
		f := newEngineFixture()
		d := newDispatcher(f, nil, announcingProcess("demo"))
		sink := &captureDeliverer{fail: true}
		s := newScheduler(f, d, sink)

		_, err := f.scheduled.Create(context.Background(), &model.ScheduledOperation{
			TypeKey:      "demo",
			OperationKey: OperationKeyInitiation,
			Ctx:          map[string]model.Value{},
			DueAt:        time.Now().Add(-time.Second),
		})
		require.NoError(t, err)

		s.RunDueSweep(context.Background())

		remaining, err := f.scheduled.ReadDue(context.Background(), time.Now())
		require.NoError(t, err)
		require.Len(t, remaining, 1)
	})

	t.Run("test retention sweep drops expired entries", func(t *testing.T) {
		f := newEngineFixture()
		d := newDispatcher(f, nil)
		s := NewScheduler(f.scheduled, d, nil, metrics.NewCollector(), SchedulerConfig{Retention: time.Minute}, nil)

		_, err := f.scheduled.Create(context.Background(), &model.ScheduledOperation{
			TypeKey:      "gone",
			OperationKey: OperationKeyInitiation,
			Ctx:          map[string]model.Value{},
			DueAt:        time.Now().Add(-2 * time.Minute),
		})
		require.NoError(t, err)
		_, err = f.scheduled.Create(context.Background(), &model.ScheduledOperation{
			TypeKey:      "fresh",
			OperationKey: OperationKeyInitiation,
			Ctx:          map[string]model.Value{},
			DueAt:        time.Now().Add(-time.Second),
		})
		require.NoError(t, err)

		s.RunRetentionSweep(context.Background())

		remaining, err := f.scheduled.ReadDue(context.Background(), time.Now())
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		require.Equal(t, "fresh", remaining[0].TypeKey)
	})
}
