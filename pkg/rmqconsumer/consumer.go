package rmqconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"file-upload-api/config"
	"file-upload-api/internal/domain/alias"
)

// can scale depends on a parallel worker count
const preFetchCount = 1

// OwnerSaved is published by the owning application once an owner model is saved.
const OwnerSaved = "owner.saved"

const handleTimeout = 10 * time.Second

type (
	// Confirmer binds uploaded files to their owner.
	Confirmer interface {
		Confirm(ctx context.Context, aliasName string, ownerID int64, ids []int64) (int64, error)
	}

	OwnerSavedMessage struct {
		Alias   string  `json:"alias"`
		OwnerID int64   `json:"owner_id"`
		FileIDs []int64 `json:"file_ids"`
	}

	Consumer struct {
		cfg        config.MQ
		log        *zap.Logger
		files      Confirmer
		conn       *amqp091.Connection
		chConsume  *amqp091.Channel
		chDelivery <-chan amqp091.Delivery
	}
)

func New(cfg config.MQ, logger *zap.Logger, conn *amqp091.Connection, files Confirmer) *Consumer {
	return &Consumer{
		cfg:   cfg,
		log:   logger,
		conn:  conn,
		files: files,
	}
}

func (c *Consumer) Connect(dsn string) error {
	conn, err := amqp091.Dial(dsn)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}
	c.conn, c.chConsume = conn, ch

	c.log.Info("rabbitmq consumer connected successfully")

	return nil
}

func (c *Consumer) Init() error {
	if c.chConsume == nil {
		if c.conn == nil {
			return errors.New("consumer is not connected")
		}
		ch, err := c.conn.Channel()
		if err != nil {
			return fmt.Errorf("amqp channel: %w", err)
		}
		c.chConsume = ch
	}

	if err := c.chConsume.ExchangeDeclare(
		c.cfg.Exchange,
		c.cfg.ExchangeType,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err := c.chConsume.QueueDeclare(
		c.cfg.ConsumerQueue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := c.chConsume.QueueBind(
		c.cfg.ConsumerQueue,
		OwnerSaved,
		c.cfg.Exchange,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("queue bind %s: %w", OwnerSaved, err)
	}

	if err := c.chConsume.Qos(preFetchCount, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}

	deliveries, err := c.chConsume.Consume(
		c.cfg.ConsumerQueue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	c.chDelivery = deliveries

	return nil
}

func (c *Consumer) DeliveryWorker(ctx context.Context) {
	c.log.Info("starting delivery worker")

	defer func() {
		c.log.Info("delivery worker gracefully stopped")
	}()

	for {
		select {
		case msg, ok := <-c.chDelivery:
			if !ok {
				c.log.Warn("delivery channel closed")
				return
			}
			c.handle(ctx, msg)
		case <-ctx.Done():
			_ = c.chConsume.Close()
			return
		}
	}
}

// handle acks processed and malformed messages, temporary failures go back to the queue.
func (c *Consumer) handle(ctx context.Context, msg amqp091.Delivery) {
	hctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	err := c.delivery(hctx, msg)
	switch {
	case err == nil:
		_ = msg.Ack(false)
	case errors.Is(err, errMalformed):
		c.log.Warn("mq message dropped", zap.String("routing_key", msg.RoutingKey), zap.Error(err))
		_ = msg.Nack(false, false)
	default:
		c.log.Error("mq read message error", zap.Error(err))
		_ = msg.Nack(false, !msg.Redelivered)
	}
}

var errMalformed = errors.New("malformed message")

func (c *Consumer) delivery(ctx context.Context, msg amqp091.Delivery) error {
	if msg.RoutingKey != OwnerSaved {
		return fmt.Errorf("%w: unexpected routing key %q", errMalformed, msg.RoutingKey)
	}

	var m OwnerSavedMessage
	if err := json.Unmarshal(msg.Body, &m); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if m.Alias == "" || m.OwnerID <= 0 {
		return fmt.Errorf("%w: alias and owner_id are required", errMalformed)
	}
	if len(m.FileIDs) == 0 {
		return nil
	}

	n, err := c.files.Confirm(ctx, m.Alias, m.OwnerID, m.FileIDs)
	if errors.Is(err, alias.ErrUnknownAlias) {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if err != nil {
		return fmt.Errorf("confirm files of %s %d: %w", m.Alias, m.OwnerID, err)
	}

	c.log.Info("owner files confirmed",
		zap.String("alias", m.Alias),
		zap.Int64("owner_id", m.OwnerID),
		zap.Int64("confirmed", n),
	)

	return nil
}
