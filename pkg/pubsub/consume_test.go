package pubsub

import (
	"context"
	"testing"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceReceiver []*pubsub.Message

func (s sliceReceiver) Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error {
	for _, msg := range s {
		f(ctx, msg)
	}
	return nil
}

func TestConsumeHandsEveryMessageToHandler(t *testing.T) {
	msgs := sliceReceiver{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	var seen []string
	err := Consume(context.Background(), msgs, func(_ context.Context, msg *pubsub.Message) Disposition {
		seen = append(seen, msg.ID)
		if msg.ID == "2" {
			return Nack
		}
		return Ack
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, seen)
}

func TestDispositionString(t *testing.T) {
	assert.Equal(t, "ack", Ack.String())
	assert.Equal(t, "nack", Nack.String())
}
