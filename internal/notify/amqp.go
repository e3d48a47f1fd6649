package notify

import (
	"context"
	"fmt"
	"sync"

	json "github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/yourneighborhoodchef/pokerestock/internal/errs"
	"github.com/yourneighborhoodchef/pokerestock/internal/stock"
)

const ExchangeType = "topic"

// AMQPPublisher publishes events to a topic exchange with routing key restock.<retailer>.
type AMQPPublisher struct {
	conn     *amqp.Connection
	exchange string

	mu sync.Mutex
	ch *amqp.Channel
}

// SetupConn dials url, retrying with backoff, and declares the exchange.
func SetupConn(ctx context.Context, url, exchange string, logf Logf) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := connect(ctx, "RabbitMQ", logf, func() (*amqp.Connection, error) {
		return amqp.Dial(url)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,     // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("could not declare exchange: %w", err)
	}
	return conn, ch, nil
}

// DialAMQP connects and returns a ready publisher.
func DialAMQP(ctx context.Context, url, exchange string, logf Logf) (*AMQPPublisher, error) {
	conn, ch, err := SetupConn(ctx, url, exchange, logf)
	if err != nil {
		return nil, err
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// RoutingKey returns restock.<retailer>.
func RoutingKey(retailer stock.RetailerKey) string {
	return "restock." + string(retailer)
}

func (p *AMQPPublisher) Name() string { return "amqp" }

func (p *AMQPPublisher) Send(ctx context.Context, ev stock.Event) error {
	body, err := json.Marshal(NewMessage(ev))
	if err != nil {
		return errs.New("amqp", errs.CodeNotify, errs.WithMessage("encode event"), errs.WithCause(err))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx,
		p.exchange,              // exchange
		RoutingKey(ev.Retailer), // routing key
		false,                   // mandatory
		false,                   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.ID,
			Timestamp:    ev.DetectedAt,
			Body:         body,
		},
	)
	if err != nil {
		return errs.New("amqp", errs.CodeNotify, errs.WithCause(err))
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
