package queue

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/bibliograph/internal/timing"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// Delivery is a message together with the queue it came from.
type Delivery struct {
	Queue string
	Msg   amqp091.Delivery
}

// Consume starts a consumer on every queue of queues and funnels their
// deliveries into one channel. The channel closes once ctx is done and all
// consumers have stopped. With a prefetch of one on ch, messages are handled
// strictly one at a time across all queues.
func Consume(ctx context.Context, ch *amqp091.Channel, tag string, queues []string) (<-chan Delivery, error) {
	out := make(chan Delivery)
	streams := make([]<-chan amqp091.Delivery, len(queues))
	for i, name := range queues {
		msgs, err := ch.Consume(name, fmt.Sprintf("%s_consumer_%s", name, tag), false, false, false, false, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to consume %s: %w", name, err)
		}
		streams[i] = msgs
	}

	done := make(chan struct{})
	for i, name := range queues {
		go func() {
			defer func() { done <- struct{}{} }()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-streams[i]:
					if !ok {
						logger.Info("[Queue][Consume] Message channel closed", "queue", name)
						return
					}
					select {
					case out <- Delivery{Queue: name, Msg: msg}:
					case <-ctx.Done():
						// Unacked; the broker redelivers it.
						return
					}
				}
			}
		}()
	}
	go func() {
		for range queues {
			<-done
		}
		close(out)
	}()
	return out, nil
}

// Handle runs the job behind d and settles the delivery: acked on success,
// otherwise passed to HandleProcessingError with retries publishing on ch.
func (p *Processor) Handle(ctx context.Context, ch Publisher, d Delivery) {
	sw := timing.Start()
	logger.Info("[Queue][Handle] Received message", "queue", d.Queue)

	var err error
	switch d.Queue {
	case CompileQueue:
		err = p.ProcessCompileMessage(ctx, d.Msg.Body)
	case DeleteQueue:
		err = p.ProcessDeleteMessage(ctx, d.Msg.Body)
	default:
		err = fmt.Errorf("%w: no handler for queue %s", ErrPermanent, d.Queue)
	}

	if err != nil {
		logger.Error("[Queue][Handle] Error processing message", "queue", d.Queue, "err", err)
		HandleProcessingError(ch, d.Msg, d.Queue, err)
	} else {
		if err := d.Msg.Ack(false); err != nil {
			logger.Error("[Queue][Handle] Failed to ack message", "err", err)
		}
		logger.Info("[Queue][Handle] Message processed successfully", "queue", d.Queue)
	}
	logger.Info("[Queue][Handle] Processing time", "queue", d.Queue, "duration", sw.String())
}
