// Package queue hands payment events from the payment lifecycle to the
// notification pipeline over a durable broker (SQS or Kafka).
package queue

import (
	"context"
	"errors"
	"fmt"
)

// ErrPoison marks a message that can never be processed. Consumers drop it
// instead of redelivering.
var ErrPoison = errors.New("poison message")

// Poison wraps err so that consumers drop the message.
func Poison(err error) error {
	return fmt.Errorf("%w: %v", ErrPoison, err)
}

// Message is one delivery from a broker.
type Message struct {
	Queue string
	Body  []byte
	// Attempt is the broker's delivery count when it exposes one, otherwise 0.
	Attempt int
}

// Handler processes a message. A nil return acknowledges it, an ErrPoison
// return drops it, any other error leaves it for redelivery.
type Handler func(ctx context.Context, msg Message) error

type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
	Close() error
}

type Consumer interface {
	// Consume blocks until ctx is cancelled or a queue cannot be consumed.
	Consume(ctx context.Context, queues []string, handler Handler) error
	Close() error
}

// Outcome classifies a handler result.
type Outcome int

const (
	OutcomeAck Outcome = iota
	OutcomeDrop
	OutcomeRequeue
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAck:
		return "ack"
	case OutcomeDrop:
		return "drop"
	default:
		return "requeue"
	}
}

// Classify maps a handler error onto what the broker should do with the message.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeAck
	case errors.Is(err, ErrPoison):
		return OutcomeDrop
	default:
		return OutcomeRequeue
	}
}
