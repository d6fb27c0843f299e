// Package capturebus implements the change-capture event bus (A5): a best-effort RabbitMQ
// fan-out invoked by the capture hook (C4) whenever a local, non-suppressed write fires, so
// other internal systems can react without polling the change log. The change log remains the
// durable source of truth; a publish failure here is logged and never blocks the local write.
package capturebus

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mywaytech/dentstage-sync/common/mrabbitmq"
	"github.com/mywaytech/dentstage-sync/internal/domain/changelog"
)

// Exchange is the topic exchange capture events are published to.
const Exchange = "sync.capture"

// Event is the wire shape of one published capture event.
type Event struct {
	TableName  string    `json:"tableName"`
	RecordId   string    `json:"recordId"`
	Action     string    `json:"action"`
	StoreId    string    `json:"storeId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher publishes capture events to RabbitMQ, grounded on the teacher's amqp091-go
// producer idiom (persistent delivery mode, JSON content type, routing-key fan-out).
type Publisher struct {
	connection *mrabbitmq.RabbitMQConnection
	storeId    string
}

// New builds a Publisher bound to connection, attributing every published event to storeId.
func New(connection *mrabbitmq.RabbitMQConnection, storeId string) *Publisher {
	return &Publisher{connection: connection, storeId: storeId}
}

// Publish implements capture.EventPublisher. Routing key is "<tableName>.<action>" per A5.
func (p *Publisher) Publish(ctx context.Context, tableName, recordID string, action changelog.Action) error {
	channel, err := p.connection.GetChannel(ctx)
	if err != nil {
		return err
	}

	event := Event{
		TableName:  tableName,
		RecordId:   recordID,
		Action:     string(action),
		StoreId:    p.storeId,
		OccurredAt: time.Now().UTC(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	routingKey := tableName + "." + string(action)

	return channel.PublishWithContext(ctx, Exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
}

// DeclareExchange ensures the capture exchange exists.
func DeclareExchange(ctx context.Context, connection *mrabbitmq.RabbitMQConnection) error {
	channel, err := connection.GetChannel(ctx)
	if err != nil {
		return err
	}

	return channel.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil)
}
