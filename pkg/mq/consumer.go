package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConsumerOptions describes the queue topology a consumer binds
type ConsumerOptions struct {
	Exchange string
	Queue    string
	Keys     []string
	Prefetch int
	DLXName  string // empty disables dead lettering
	DLXQueue string
}

// Consumer reads deliveries from a durable queue bound to a topic exchange
type Consumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewConsumer dials RabbitMQ and declares exchange, queue, bindings and optional DLX
func NewConsumer(url string, opts ConsumerOptions) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	fail := func(step string, err error) (*Consumer, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", step, err)
	}

	if err := ch.ExchangeDeclare(opts.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fail("declare exchange", err)
	}

	args := amqp.Table{}
	if opts.DLXName != "" {
		args["x-dead-letter-exchange"] = opts.DLXName
		if err := ch.ExchangeDeclare(opts.DLXName, "topic", true, false, false, false, nil); err != nil {
			return fail("declare dlx", err)
		}
		if _, err := ch.QueueDeclare(opts.DLXQueue, true, false, false, false, nil); err != nil {
			return fail("declare dlq", err)
		}
		if err := ch.QueueBind(opts.DLXQueue, "#", opts.DLXName, false, nil); err != nil {
			return fail("bind dlq", err)
		}
	}

	q, err := ch.QueueDeclare(opts.Queue, true, false, false, false, args)
	if err != nil {
		return fail("declare queue", err)
	}
	for _, rk := range opts.Keys {
		if err := ch.QueueBind(q.Name, rk, opts.Exchange, false, nil); err != nil {
			return fail("bind "+rk, err)
		}
	}

	if opts.Prefetch <= 0 {
		opts.Prefetch = 8
	}
	if err := ch.Qos(opts.Prefetch, 0, false); err != nil {
		return fail("set qos", err)
	}
	return &Consumer{conn: conn, ch: ch, queue: q.Name}, nil
}

// Deliveries starts consuming with manual acknowledgement
func (c *Consumer) Deliveries(ctx context.Context, consumerTag string) (<-chan amqp.Delivery, error) {
	return c.ch.ConsumeWithContext(ctx, c.queue, consumerTag, false, false, false, false, nil)
}

// Close releases the channel and connection
func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
