package queue

import (
	"errors"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	"github.com/OFFIS-RIT/bibliograph/pkg/graph"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// ErrPermanent marks job failures that retrying cannot fix.
var ErrPermanent = errors.New("permanent job failure")

// MaxRetries is how often a failing message is redelivered before it moves
// to the dead-letter queue.
const MaxRetries = 10

// isInputError reports failures caused by the job's inputs rather than by
// the environment.
func isInputError(err error) bool {
	for _, target := range []error{
		graph.ErrInvalidInput,
		common.ErrGrammar,
		common.ErrParse,
		common.ErrLookup,
		common.ErrResolution,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func retries(msg amqp091.Delivery) int {
	switch v := msg.Headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// HandleProcessingError settles a failed delivery: it is republished to the
// retry queue with an incremented x-retries header, or to the dead-letter
// queue once retries are exhausted or the failure is permanent. The
// original delivery is acked after a successful republish and requeued
// otherwise.
func HandleProcessingError(ch Publisher, msg amqp091.Delivery, queueName string, cause error) {
	n := retries(msg)

	target := queueName + "_retry"
	if n >= MaxRetries || errors.Is(cause, ErrPermanent) {
		target = queueName + "_dlq"
	}

	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-retries"] = int32(n + 1)
	if cause != nil {
		headers["x-error"] = cause.Error()
	}

	logger.Info("[Queue][Retry] Republishing failed message", "queue", target, "retries", n)
	err := ch.Publish("", target, false, false, amqp091.Publishing{
		ContentType:  msg.ContentType,
		Body:         msg.Body,
		Headers:      headers,
		DeliveryMode: amqp091.Persistent,
	})
	if err != nil {
		logger.Error("[Queue][Retry] Failed to republish message", "queue", target, "err", err)
		if err := msg.Nack(false, true); err != nil {
			logger.Error("[Queue][Retry] Failed to nack message", "err", err)
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("[Queue][Retry] Failed to ack message", "err", err)
	}
}
