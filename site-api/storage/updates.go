package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/Romaric250/ticsummit26-sub001/site-api/domain"
)

// DefaultUpdatesChannel is the Redis channel carrying applied content events.
const DefaultUpdatesChannel = "content-updates"

// PublishUpdate announces an applied content event on channel.
func PublishUpdate(ctx context.Context, rc *redis.Client, channel string, ev domain.ContentEvent) error {
	data, err := sonic.Marshal(ev)
	if err != nil {
		return err
	}
	return rc.Publish(ctx, channel, data).Err()
}

// SubscribeUpdates forwards events published on channel to deliver until ctx
// is done, resubscribing when the connection drops.
func SubscribeUpdates(ctx context.Context, logger *log.Logger, rc *redis.Client, channel string, deliver func(domain.ContentEvent)) {
	for {
		sub := rc.Subscribe(ctx, channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var ev domain.ContentEvent
				if err := sonic.UnmarshalString(msg.Payload, &ev); err != nil {
					logger.WithError(err).Error("unable to parse content update")
					continue
				}
				deliver(ev)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		logger.Error("pubsub channel closed, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}
