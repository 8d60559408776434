package main

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Romaric250/ticsummit26-sub001/site-api/domain"
	"github.com/Romaric250/ticsummit26-sub001/site-api/storage"
)

type eventQueue interface {
	Dequeue(ctx context.Context, max int32, visibility time.Duration) ([]storage.QueueMessage, error)
	Ack(ctx context.Context, msg storage.QueueMessage) error
}

type consumer struct {
	queue   eventQueue
	cache   cacheRefresher
	redis   *redis.Client
	log     *log.Logger
	channel string

	batchSize    int32
	visibility   time.Duration
	pollInterval time.Duration
}

// run polls the queue until ctx is done. An empty or failed poll waits
// pollInterval before the next attempt.
func (c *consumer) run(ctx context.Context) {
	for {
		n, err := c.poll(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.log.WithError(err).Error("receive content events")
		}
		if err != nil || n == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.pollInterval):
			}
		}
	}
}

// poll handles one batch and reports how many messages it received.
func (c *consumer) poll(ctx context.Context) (int, error) {
	msgs, err := c.queue.Dequeue(ctx, c.batchSize, c.visibility)
	if err != nil {
		return 0, err
	}
	for _, msg := range msgs {
		c.handle(ctx, msg)
	}
	return len(msgs), nil
}

func (c *consumer) handle(ctx context.Context, msg storage.QueueMessage) {
	entry := c.log.WithFields(log.Fields{"message": msg.ID, "dequeueCount": msg.DequeueCount})
	ev, err := decodeEvent(msg.Text)
	if err != nil {
		entry.WithError(err).Error("dropping content event")
		c.ack(ctx, entry, msg)
		return
	}
	if err := processEvent(ctx, c.log, c.cache, c.redis, c.channel, ev, msg.Text); err != nil {
		// Left on the queue; it becomes visible again after the timeout.
		entry.WithError(err).Warn("content event not applied")
		return
	}
	c.ack(ctx, entry, msg)
}

func (c *consumer) ack(ctx context.Context, entry *log.Entry, msg storage.QueueMessage) {
	if err := c.queue.Ack(ctx, msg); err != nil && !errors.Is(err, context.Canceled) {
		entry.WithError(err).Error("delete content event")
	}
}

// warmup rebuilds every snapshot read before now.
func warmup(ctx context.Context, cache cacheRefresher, now time.Time) error {
	g, ctx := errgroup.WithContext(ctx)
	ts := now.UnixNano()
	for _, kind := range domain.Kinds {
		g.Go(func() error {
			_, err := cache.Refresh(ctx, kind, ts)
			return err
		})
	}
	g.Go(func() error { return cache.RefreshSettings(ctx) })
	return g.Wait()
}
