// Package notify delivers payment receipts off the request path.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ReceiptLine struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

type Receipt struct {
	OrderID       string          `json:"orderId"`
	UserID        string          `json:"userId"`
	Total         decimal.Decimal `json:"totalAmount"`
	PaymentMethod string          `json:"paymentMethod"`
	Lines         []ReceiptLine   `json:"lines"`
	PaidAt        time.Time       `json:"paidAt"`
}

type Sender interface {
	Send(ctx context.Context, r Receipt) error
}

// LogSender only writes the receipt to the log. Used when no broker is configured.
type LogSender struct{ Log *zap.Logger }

func (s LogSender) Send(_ context.Context, r Receipt) error {
	s.Log.Info("receipt_logged",
		zap.String("order_id", r.OrderID),
		zap.String("user_id", r.UserID),
		zap.String("total", r.Total.StringFixed(2)),
		zap.Int("lines", len(r.Lines)))
	return nil
}

// AMQPSender publishes receipts as persistent JSON messages on a durable queue
// through the default exchange.
type AMQPSender struct {
	ch    *amqp.Channel
	queue string
}

func NewAMQPSender(conn *amqp.Connection, queue string) (*AMQPSender, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare %s: %w", queue, err)
	}
	return &AMQPSender{ch: ch, queue: queue}, nil
}

func (s *AMQPSender) Close() error { return s.ch.Close() }

func (s *AMQPSender) Send(ctx context.Context, r Receipt) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return s.ch.PublishWithContext(
		pubCtx,
		"",      // default exchange
		s.queue, // queue name as routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    r.OrderID,
			Timestamp:    r.PaidAt,
			Body:         body,
		},
	)
}
