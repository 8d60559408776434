package storage

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/Romaric250/ticsummit26-sub001/site-api/domain"
)

// RawStore is implemented by Storage and Cache.
type RawStore interface {
	ListRaw(ctx context.Context, kind domain.Kind) ([]RawRecord, error)
	GetRaw(ctx context.Context, kind domain.Kind, id string) (RawRecord, error)
	// LatestRaw reads past any cache.
	LatestRaw(ctx context.Context, kind domain.Kind, id string) (RawRecord, error)
	PutRaw(ctx context.Context, kind domain.Kind, rec RawRecord, columns map[string]any) error
	DeleteRaw(ctx context.Context, kind domain.Kind, id string) error
}

// Collection is a typed view of one content kind.
type Collection[T domain.Record] struct {
	store RawStore
	kind  domain.Kind
}

// NewCollection binds a typed collection to a kind.
func NewCollection[T domain.Record](store RawStore, kind domain.Kind) *Collection[T] {
	return &Collection[T]{store: store, kind: kind}
}

// Kind returns the collection's kind.
func (c *Collection[T]) Kind() domain.Kind { return c.kind }

// List decodes every record of the collection.
func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	raws, err := c.store.ListRaw(ctx, c.kind)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := sonic.Unmarshal(raw.Data, &v); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", c.kind, raw.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Get decodes a single record.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var v T
	raw, err := c.store.GetRaw(ctx, c.kind, id)
	if err != nil {
		return v, err
	}
	if err := sonic.Unmarshal(raw.Data, &v); err != nil {
		return v, fmt.Errorf("decode %s/%s: %w", c.kind, id, err)
	}
	return v, nil
}

// Put stores a record under its own identifier.
func (c *Collection[T]) Put(ctx context.Context, v T) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return c.store.PutRaw(ctx, c.kind, RawRecord{ID: v.RecordID(), Data: data}, v.Columns())
}

// Update applies change to the latest stored version of id and writes the
// result back only if nobody wrote the record in between. A concurrent write
// yields domain.ErrConflict.
func (c *Collection[T]) Update(ctx context.Context, id string, change func(prev T) T) (T, error) {
	var zero T
	raw, err := c.store.LatestRaw(ctx, c.kind, id)
	if err != nil {
		return zero, err
	}
	var prev T
	if err := sonic.Unmarshal(raw.Data, &prev); err != nil {
		return zero, fmt.Errorf("decode %s/%s: %w", c.kind, id, err)
	}
	v := change(prev)
	data, err := sonic.Marshal(v)
	if err != nil {
		return zero, err
	}
	if err := c.store.PutRaw(ctx, c.kind, RawRecord{ID: v.RecordID(), Data: data, ETag: raw.ETag}, v.Columns()); err != nil {
		return zero, err
	}
	return v, nil
}

// Delete removes a record.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.DeleteRaw(ctx, c.kind, id)
}
