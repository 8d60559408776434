package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Romaric250/ticsummit26-sub001/site-api/domain"
)

// Likes keeps one Redis set of user IDs per liked record.
type Likes struct {
	client *redis.Client
}

// NewLikes creates a Likes store on the given client.
func NewLikes(client *redis.Client) *Likes {
	return &Likes{client: client}
}

func likesKey(kind domain.Kind, id string) string {
	return fmt.Sprintf("likes:%s:%s", kind, id)
}

// Like records userID's like and returns the new count. Liking twice is a no-op.
func (l *Likes) Like(ctx context.Context, kind domain.Kind, id, userID string) (int64, error) {
	key := likesKey(kind, id)
	var card *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, key, userID)
		card = pipe.SCard(ctx, key)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return card.Val(), nil
}

// Unlike removes userID's like and returns the new count.
func (l *Likes) Unlike(ctx context.Context, kind domain.Kind, id, userID string) (int64, error) {
	key := likesKey(kind, id)
	var card *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, key, userID)
		card = pipe.SCard(ctx, key)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return card.Val(), nil
}

// Liked reports whether userID likes the record.
func (l *Likes) Liked(ctx context.Context, kind domain.Kind, id, userID string) (bool, error) {
	return l.client.SIsMember(ctx, likesKey(kind, id), userID).Result()
}

// Counts returns like counts for the given records in one pipeline.
func (l *Likes) Counts(ctx context.Context, kind domain.Kind, ids []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}
	cmds, err := l.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.SCard(ctx, likesKey(kind, id))
		}
		return nil
	})
	if err != nil {
		return counts, err
	}
	if len(cmds) != len(ids) {
		return counts, fmt.Errorf("likes pipeline mismatch: expected %d results, got %d", len(ids), len(cmds))
	}
	for i, cmd := range cmds {
		intCmd, ok := cmd.(*redis.IntCmd)
		if !ok {
			return counts, fmt.Errorf("unexpected redis response type %T", cmd)
		}
		counts[ids[i]] = intCmd.Val()
	}
	return counts, nil
}

// Clear drops all likes of a deleted record.
func (l *Likes) Clear(ctx context.Context, kind domain.Kind, id string) error {
	return l.client.Del(ctx, likesKey(kind, id)).Err()
}
