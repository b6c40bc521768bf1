package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"gopherai-docqa/internal/model"
)

// ExchangePayload is the queue message body. Sources travels as the stored
// JSON string since model.Exchange hides it from its own encoding.
type ExchangePayload struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Sources   string `json:"sources"`
	Model     string `json:"model"`
	CreatedAt int64  `json:"created_at"`
}

func EncodeExchange(e model.Exchange) ([]byte, error) {
	return json.Marshal(ExchangePayload{
		SessionID: e.SessionID,
		Question:  e.Question,
		Answer:    e.Answer,
		Sources:   e.Sources,
		Model:     e.Model,
		CreatedAt: e.CreatedAt.UnixMilli(),
	})
}

func DecodeExchange(body []byte) (model.Exchange, error) {
	var p ExchangePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return model.Exchange{}, err
	}
	if p.SessionID == "" {
		return model.Exchange{}, fmt.Errorf("exchange payload without session_id")
	}
	e := model.Exchange{
		SessionID: p.SessionID,
		Question:  p.Question,
		Answer:    p.Answer,
		Sources:   p.Sources,
		Model:     p.Model,
	}
	if p.CreatedAt > 0 {
		e.CreatedAt = time.UnixMilli(p.CreatedAt)
	}
	return e, nil
}

type ExchangePublisher struct {
	conn      *amqp.Connection
	queueName string

	mu       sync.Mutex
	declared bool
}

func NewExchangePublisher(conn *amqp.Connection, queueName string) *ExchangePublisher {
	return &ExchangePublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *ExchangePublisher) Publish(ctx context.Context, exchange model.Exchange) error {
	payload, err := EncodeExchange(exchange)
	if err != nil {
		return fmt.Errorf("marshal exchange payload failed: %w", err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := p.declareOnce(ch); err != nil {
		return err
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish exchange failed: %w", err)
	}
	return nil
}

func (p *ExchangePublisher) declareOnce(ch *amqp.Channel) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.declared {
		return nil
	}
	if err := DeclareQueue(ch, p.queueName); err != nil {
		return err
	}
	p.declared = true
	return nil
}
