package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Romaric250/ticsummit26-sub001/site-api/domain"
)

type userBackend interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
	PutUser(ctx context.Context, u domain.User) error
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// Users serves user records with a short-lived Redis cache of role lookups,
// which run on every admin request.
type Users struct {
	base  userBackend
	redis *redis.Client
	ttl   time.Duration
}

// NewUsers wraps the users table with a role cache.
func NewUsers(base userBackend, client *redis.Client, ttl time.Duration) *Users {
	if ttl < 0 {
		ttl = 0
	}
	return &Users{base: base, redis: client, ttl: ttl}
}

func roleCacheKey(id string) string {
	return "role:" + id
}

// RoleOf returns the stored role of a user, or domain.ErrNotFound.
func (u *Users) RoleOf(ctx context.Context, id string) (domain.Role, error) {
	if u.redis != nil {
		if v, err := u.redis.Get(ctx, roleCacheKey(id)).Result(); err == nil {
			if role, perr := domain.ParseRole(v); perr == nil {
				return role, nil
			}
		}
	}
	user, err := u.base.GetUser(ctx, id)
	if err != nil {
		return "", err
	}
	u.cacheRole(ctx, user)
	return user.Role, nil
}

func (u *Users) GetUser(ctx context.Context, id string) (domain.User, error) {
	return u.base.GetUser(ctx, id)
}

func (u *Users) ListUsers(ctx context.Context) ([]domain.User, error) {
	return u.base.ListUsers(ctx)
}

// PutUser stores the user and refreshes the cached role.
func (u *Users) PutUser(ctx context.Context, user domain.User) error {
	if err := u.base.PutUser(ctx, user); err != nil {
		return err
	}
	if u.redis != nil {
		_ = u.redis.Del(ctx, roleCacheKey(user.ID)).Err()
	}
	return nil
}

func (u *Users) cacheRole(ctx context.Context, user domain.User) {
	if u.redis == nil || u.ttl == 0 {
		return
	}
	_ = u.redis.Set(ctx, roleCacheKey(user.ID), string(user.Role), u.ttl).Err()
}
