package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/Romaric250/ticsummit26-sub001/site-api/domain"
)

// errUndecodable marks a message that can never be processed.
var errUndecodable = errors.New("undecodable content event")

type cacheRefresher interface {
	Refresh(ctx context.Context, kind domain.Kind, lastUpdated int64) (bool, error)
	RefreshSettings(ctx context.Context) error
}

func decodeEvent(payload string) (domain.ContentEvent, error) {
	var ev domain.ContentEvent
	if err := sonic.UnmarshalString(payload, &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", errUndecodable, err)
	}
	if ev.Type == domain.EventSettingsUpdated {
		return ev, nil
	}
	kind, err := domain.ParseKind(string(ev.Kind))
	if err != nil {
		return ev, fmt.Errorf("%w: kind %q", errUndecodable, ev.Kind)
	}
	ev.Kind = kind
	return ev, nil
}

// processEvent rewarms the snapshot touched by ev and announces the raw
// payload on channel. A refresh error is returned so the message is retried;
// a failed announcement is only logged.
func processEvent(ctx context.Context, logger *log.Logger, cache cacheRefresher, rc *redis.Client, channel string, ev domain.ContentEvent, payload string) error {
	entry := logger.WithFields(log.Fields{"kind": ev.Kind, "id": ev.ID, "type": ev.Type})
	if cache != nil {
		if ev.Type == domain.EventSettingsUpdated {
			if err := cache.RefreshSettings(ctx); err != nil {
				return fmt.Errorf("refresh settings: %w", err)
			}
		} else {
			refreshed, err := cache.Refresh(ctx, ev.Kind, ev.Timestamp)
			if err != nil {
				return fmt.Errorf("refresh %s: %w", ev.Kind, err)
			}
			entry = entry.WithField("refreshed", refreshed)
		}
	}
	if err := rc.Publish(ctx, channel, payload).Err(); err != nil {
		entry.WithError(err).Errorf("unable to publish update to %s", channel)
	}
	entry.Debug("content event applied")
	return nil
}
