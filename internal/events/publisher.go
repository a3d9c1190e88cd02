package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/saqibmurtaza/ai-mart/internal/order"
)

// OrderCompleted is emitted once per finalized order, after the creating
// transaction has committed.
type OrderCompleted struct {
	EventType      string       `json:"eventType"`
	OrderID        string       `json:"orderId"`
	PaymentOrderID string       `json:"paymentOrderId"`
	UserID         string       `json:"userId"`
	TotalAmount    float64      `json:"totalAmount"`
	Items          []order.Item `json:"items"`
	Timestamp      time.Time    `json:"timestamp"`
}

type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	// Declare the queue so publish never fails due to missing infra
	_, err = ch.QueueDeclare(OrderCompletedQueue, true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare %s: %w", OrderCompletedQueue, err)
	}

	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) PublishOrderCompleted(ctx context.Context, o *order.Order) error {
	ev := OrderCompleted{
		EventType:      "OrderCompleted",
		OrderID:        o.ID,
		PaymentOrderID: o.PaymentOrderID,
		UserID:         o.UserID,
		TotalAmount:    o.TotalAmount,
		Items:          o.Items,
		Timestamp:      time.Now().UTC(),
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal OrderCompleted: %w", err)
	}

	return p.publishJSON(ctx, OrderCompletedQueue, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		"",         // default exchange
		routingKey, // queue name as routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
