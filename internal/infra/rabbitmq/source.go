// Package rabbitmq implements the queue work source over AMQP. The worker
// polls with basic.get so acquisition stays one-at-a-time; the broker's
// unacked-message handling provides redelivery.
package rabbitmq

import (
	"context"
	"fmt"
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/subatic/transcode-worker/internal/domain/entity"
	"github.com/subatic/transcode-worker/internal/domain/port"
)

type channel interface {
	Get(queue string, autoAck bool) (amqp.Delivery, bool, error)
	Ack(tag uint64, multiple bool) error
	Nack(tag uint64, multiple bool, requeue bool) error
	Reject(tag uint64, requeue bool) error
	Close() error
}

type Source struct {
	conn    *amqp.Connection
	channel channel
	queue   string
	logger  *zap.Logger
}

func NewSource(url, queue string, logger *zap.Logger) (*Source, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &Source{conn: conn, channel: ch, queue: queue, logger: logger}, nil
}

// Next fetches one message without auto-ack. The delivery tag travels as the
// item receipt so completion can ack it later.
func (s *Source) Next(ctx context.Context) (*port.WorkItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	delivery, ok, err := s.channel.Get(s.queue, false)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if !ok {
		return nil, nil
	}

	videoID, err := entity.ParseWorkMessage(delivery.Body)
	if err != nil {
		s.logger.Warn("rejecting poison message", zap.Error(err))
		_ = s.channel.Reject(delivery.DeliveryTag, false)
		return nil, err
	}

	return &port.WorkItem{
		VideoID: videoID,
		Receipt: strconv.FormatUint(delivery.DeliveryTag, 10),
	}, nil
}

// Complete acks the delivery, removing it from the queue.
func (s *Source) Complete(_ context.Context, item *port.WorkItem) error {
	tag, err := strconv.ParseUint(item.Receipt, 10, 64)
	if err != nil {
		return fmt.Errorf("parse delivery tag %q: %w", item.Receipt, err)
	}
	if err := s.channel.Ack(tag, false); err != nil {
		return fmt.Errorf("ack delivery %d: %w", tag, err)
	}
	return nil
}

// Release nacks with requeue so the broker redelivers the message.
func (s *Source) Release(_ context.Context, item *port.WorkItem) error {
	tag, err := strconv.ParseUint(item.Receipt, 10, 64)
	if err != nil {
		return fmt.Errorf("parse delivery tag %q: %w", item.Receipt, err)
	}
	if err := s.channel.Nack(tag, false, true); err != nil {
		return fmt.Errorf("nack delivery %d: %w", tag, err)
	}
	return nil
}

func (s *Source) Close() error {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
