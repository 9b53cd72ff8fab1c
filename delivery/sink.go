package delivery

import (
	"context"

	"github.com/mohitkumar/assist/logger"
	"github.com/mohitkumar/assist/model"
	"go.uber.org/zap"
)

// Sink pushes produced assistance objects towards clients.
type Sink interface {
	Deliver(ctx context.Context, objects []model.AssistanceObject) error
}

// Fanout delivers to every configured sink. A failing sink is logged and
// does not stop the others; delivery is best effort.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Deliver(ctx context.Context, objects []model.AssistanceObject) error {
	for _, sink := range f.sinks {
		if err := sink.Deliver(ctx, objects); err != nil {
			logger.Error("sink delivery failed", zap.Error(err))
		}
	}
	return nil
}

var _ Sink = new(Fanout)
