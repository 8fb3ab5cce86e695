package queue

import (
	"fmt"
	"time"

	"github.com/OFFIS-RIT/bibliograph/internal/util"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const (
	CompileQueue = "compile_queue"
	DeleteQueue  = "delete_queue"

	// EventExchange carries store status events, routed as
	// "store.<status>".
	EventExchange = "bibliograph_events"

	retryDelay = 10 * time.Second
)

// Queues lists every work queue the worker consumes.
var Queues = []string{CompileQueue, DeleteQueue}

// Dial connects to RabbitMQ using the RABBITMQ_* environment variables.
func Dial() (*amqp091.Connection, error) {
	connURL := fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		util.GetEnv("RABBITMQ_USER"),
		util.GetEnv("RABBITMQ_PASSWORD"),
		util.GetEnv("RABBITMQ_HOST"),
		util.GetEnvString("RABBITMQ_PORT", "5672"),
	)
	return amqp091.Dial(connURL)
}

// Init is Dial for process startup; it exits when RabbitMQ is unreachable.
func Init() *amqp091.Connection {
	conn, err := Dial()
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	return conn
}

// SetupQueues declares the event exchange and, for every name, a durable
// work queue with a dead-letter queue and a delayed retry queue that feeds
// back into it.
func SetupQueues(ch *amqp091.Channel, queueNames []string) error {
	if err := ch.ExchangeDeclare(EventExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", EventExchange, err)
	}

	for _, name := range queueNames {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
		if _, err := ch.QueueDeclare(name+"_dlq", true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s_dlq: %w", name, err)
		}
		_, err := ch.QueueDeclare(
			name+"_retry",
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             int32(retryDelay.Milliseconds()),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s_retry: %w", name, err)
		}
	}
	return nil
}

// Publisher is the part of *amqp091.Channel used to send messages.
type Publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// PublishFIFO sends data to a durable work queue.
func PublishFIFO(ch Publisher, queueName string, data []byte) error {
	return ch.Publish("", queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	})
}

// PublishEvent announces a store status change on the event exchange.
func PublishEvent(ch Publisher, topic string, data []byte) error {
	return ch.Publish(EventExchange, topic, false, false, amqp091.Publishing{
		ContentType: "application/json",
		Body:        data,
		Timestamp:   time.Now(),
	})
}
