package delivery

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mohitkumar/assist/logger"
	"github.com/mohitkumar/assist/model"
	"github.com/mohitkumar/assist/util"
	"go.uber.org/zap"
)

// AmqpConfig configures the broker sink.
type AmqpConfig struct {
	URL      string
	Exchange string
}

// AmqpSink publishes every object to a topic exchange with a per-user
// routing key, so frontends can bind a queue per user.
type AmqpSink struct {
	conf   AmqpConfig
	encDec util.EncoderDecoder[model.AssistanceObject]

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAmqpSink(conf AmqpConfig) *AmqpSink {
	if conf.Exchange == "" {
		conf.Exchange = "assistance"
	}
	return &AmqpSink{
		conf:   conf,
		encDec: util.NewJsonEncoderDecoder[model.AssistanceObject](),
	}
}

var _ Sink = new(AmqpSink)

func (s *AmqpSink) Deliver(ctx context.Context, objects []model.AssistanceObject) error {
	channel, err := s.ensureChannel()
	if err != nil {
		return err
	}
	for _, object := range objects {
		data, err := s.encDec.Encode(object)
		if err != nil {
			return err
		}
		routingKey := fmt.Sprintf("assistance.user.%s", object.UserID)
		err = channel.PublishWithContext(ctx, s.conf.Exchange, routingKey, false, false, amqp.Publishing{
			ContentType: "application/json",
			Body:        data,
		})
		if err != nil {
			s.reset()
			return err
		}
	}
	return nil
}

func (s *AmqpSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.channel = nil
	return err
}

func (s *AmqpSink) ensureChannel() (*amqp.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel != nil {
		return s.channel, nil
	}
	conn, err := amqp.Dial(s.conf.URL)
	if err != nil {
		return nil, err
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := channel.ExchangeDeclare(s.conf.Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}
	s.conn = conn
	s.channel = channel
	logger.Info("connected to message broker", zap.String("exchange", s.conf.Exchange))
	return channel, nil
}

func (s *AmqpSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = nil
	s.channel = nil
}
