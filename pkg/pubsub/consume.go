package pubsub

import (
	"context"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// Receiver is the part of *pubsub.Subscriber that consumers depend on.
type Receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Disposition is what happens to a message once its handler returns.
type Disposition int

const (
	// Ack drops the message. Used for success and for messages that can never succeed.
	Ack Disposition = iota
	// Nack asks Pub/Sub to redeliver.
	Nack
)

func (d Disposition) String() string {
	if d == Nack {
		return "nack"
	}
	return "ack"
}

// Consume blocks receiving from sub until ctx is done, settling every message
// with the disposition handle returns.
func Consume(ctx context.Context, sub Receiver, handle func(context.Context, *pubsub.Message) Disposition) error {
	return sub.Receive(ctx, func(msgCtx context.Context, msg *pubsub.Message) {
		if handle(msgCtx, msg) == Nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}
