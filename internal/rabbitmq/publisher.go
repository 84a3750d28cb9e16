package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// AnalysisCompletedEvent — событие о завершённом анализе кожи.
// Потребители (например, рассыльщик уведомлений) слушают его по
// routing key "analysis.completed".
type AnalysisCompletedEvent struct {
	SessionID int64     `json:"session_id"`
	UserUID   string    `json:"user_uid"`
	Premium   bool      `json:"premium"`
	Timestamp time.Time `json:"timestamp"`
}

// RoutingKeyAnalysisCompleted — ключ маршрутизации событий анализа.
const RoutingKeyAnalysisCompleted = "analysis.completed"

// Publisher публикует доменные события в заданный exchange.
type Publisher struct {
	ch       *amqp.Channel
	exchange string
}

// NewPublisher создает Publisher поверх открытого канала.
func NewPublisher(ch *amqp.Channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

// Publish сериализует сообщение в JSON и публикует его с заданным routing key.
func (p *Publisher) Publish(routingKey string, message any) error {
	const op = "rabbitmq.Publish"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = p.ch.Publish(
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
