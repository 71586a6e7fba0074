// Package notify subscribes to the redis pub/sub channel on which the
// worker subsystem announces queue-state changes.
//
// Delivery is at-most-once and best-effort: a notification published
// while nobody is subscribed is lost, subscribers re-derive the full
// state from the store on every notification instead of relying on
// notification content.
package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mergefront/mergefront/internal/logfields"
)

const loggerName = "notify"

type Broker struct {
	clt     *redis.Client
	channel string
	logger  *zap.Logger
}

func New(clt *redis.Client, channel string) *Broker {
	return &Broker{
		clt:     clt,
		channel: channel,
		logger:  zap.L().Named(loggerName),
	}
}

// Subscribe registers a subscription on the update channel. Received
// notifications are collapsed into an empty struct on the returned
// channel, a notification that arrives while a previous one is still
// unconsumed is dropped.
// cancel must be called on every exit path, it releases the
// subscription and eventually closes the returned channel.
func (b *Broker) Subscribe(ctx context.Context) (updates <-chan struct{}, cancel func(), err error) {
	pubsub := b.clt.Subscribe(ctx, b.channel)

	// confirm the subscription before returning, otherwise
	// notifications published between Subscribe() and the first
	// receive would be missed silently even while a client believes
	// it is subscribed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribing to channel %q failed: %w", b.channel, err)
	}

	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)

		for range pubsub.Channel() {
			select {
			case ch <- struct{}{}:
			default:
				// receiver is still processing the previous
				// notification, it will re-read the full
				// state anyway
			}
		}
	}()

	b.logger.Debug(
		"subscribed to update channel",
		logfields.Event("update_channel_subscribed"),
		zap.String("channel", b.channel),
	)

	return ch, func() { _ = pubsub.Close() }, nil
}
