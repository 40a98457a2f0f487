// Package rabbitmq publishes account notifications for the mail sender.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"music_auth/internal/models"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const appID = "music_auth"

type Publisher struct {
	conn  *amqp.Connection
	queue string

	// amqp channels are not safe for concurrent publishing.
	mu      sync.Mutex
	channel *amqp.Channel
}

// New dials the broker and declares the durable notification queue the mail
// sender consumes from.
func New(url, queue string) (*Publisher, error) {
	const op = "rabbitmq.New"

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%s: dial: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: open channel: %w", op, err)
	}

	declared, err := ch.QueueDeclare(queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: declare %q: %w", op, queue, err)
	}

	return &Publisher{
		conn:    conn,
		channel: ch,
		queue:   declared.Name,
	}, nil
}

// SendMessage publishes msg as a persistent JSON message. Callers treat a
// failure as non-fatal.
func (p *Publisher) SendMessage(ctx context.Context, msg models.Message) error {
	const op = "rabbitmq.SendMessage"

	publishing, err := newPublishing(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.PublishWithContext(ctx, "", p.queue, false, false, publishing); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func newPublishing(msg models.Message) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, err
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Type:         msg.Purpose,
		MessageId:    uuid.NewString(),
		AppId:        appID,
	}, nil
}

// Close releases the channel and the connection.
func (p *Publisher) Close() {
	_ = p.channel.Close()
	_ = p.conn.Close()
}
