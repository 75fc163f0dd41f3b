package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nextskill/course-commerce-api/internal/model"
)

const (
	paymentQueueName = "payments"
	dlxExchange      = "payments.dlx"
	dlqQueueName     = "payments.dlq"
)

// Setup declares the payments queue with its DLX/DLQ so downstream
// consumers (receipts, analytics) can attach without racing the API.
func Setup(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, paymentQueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(paymentQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": paymentQueueName,
	}); err != nil {
		return fmt.Errorf("declare payments queue: %w", err)
	}
	return nil
}

// Publisher emits order payment lifecycle events. Publishing is
// fire-and-forget: a broker hiccup must never fail the checkout request.
type Publisher struct {
	channel *amqp.Channel
	log     *slog.Logger
}

func NewPublisher(ch *amqp.Channel, log *slog.Logger) *Publisher {
	return &Publisher{channel: ch, log: log}
}

func (p *Publisher) PaymentEvent(ctx context.Context, evt model.PaymentEvent) {
	if p == nil || p.channel == nil {
		return
	}
	body, err := json.Marshal(evt)
	if err != nil {
		p.log.Error("marshal payment event", "error", err)
		return
	}
	err = p.channel.PublishWithContext(ctx, "", paymentQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		p.log.Error("publish payment event", "order_id", evt.OrderID, "status", evt.Status, "error", err)
	}
}
