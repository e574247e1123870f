// internal/queue/amqp.go
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"obcampaign-service/internal/domain/campaign"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const DefaultQueue = "campaign_transitions"

// Publisher hands transition requests to the executor over a durable
// RabbitMQ queue. The connection is opened lazily and re-opened after a
// failed publish.
type Publisher struct {
	url    string
	queue  string
	logger *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url, queue string, logger *zap.Logger) *Publisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Publisher{url: url, queue: queue, logger: logger}
}

// Connect opens the connection and declares the queue.
func (p *Publisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connectLocked()
}

func (p *Publisher) PublishTransition(ctx context.Context, req *campaign.TransitionRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal transition request: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		if err := p.connectLocked(); err != nil {
			return err
		}
	}

	err = p.ch.Publish(
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    req.ID,
			Timestamp:    req.RequestedAt,
			Type:         "campaign.transition",
			Body:         body,
		},
	)
	if err != nil {
		p.closeLocked()
		return fmt.Errorf("failed to publish transition request: %w", err)
	}

	p.logger.Debug("transition request published",
		zap.String("id", req.ID),
		zap.String("campaign_uuid", req.CampaignUUID),
		zap.String("queue", p.queue),
	)
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *Publisher) connectLocked() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open a channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare queue %s: %w", p.queue, err)
	}

	p.conn, p.ch = conn, ch
	p.logger.Info("connected to RabbitMQ", zap.String("queue", p.queue))
	return nil
}

func (p *Publisher) closeLocked() error {
	var err error
	if p.ch != nil {
		err = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
		p.conn = nil
	}
	return err
}
