package api

import (
	"context"

	"github.com/Romaric250/ticsummit26-sub001/site-api/domain"
	"github.com/Romaric250/ticsummit26-sub001/site-api/storage"
)

// ContentStore persists the content collections. Implemented by storage.Storage and storage.Cache.
type ContentStore = storage.RawStore

// SettingsStore reads and writes the site settings row.
type SettingsStore interface {
	FetchSettings(ctx context.Context) (domain.Settings, error)
	SaveSettings(ctx context.Context, settings domain.Settings) error
}

// UserStore manages signed-in accounts and their roles.
type UserStore interface {
	RoleOf(ctx context.Context, id string) (domain.Role, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
	PutUser(ctx context.Context, u domain.User) error
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// LikeStore tracks which users liked a project or blog post.
type LikeStore interface {
	Like(ctx context.Context, kind domain.Kind, id, userID string) (int64, error)
	Unlike(ctx context.Context, kind domain.Kind, id, userID string) (int64, error)
	Counts(ctx context.Context, kind domain.Kind, ids []string) (map[string]int64, error)
	Clear(ctx context.Context, kind domain.Kind, id string) error
}

// EventPublisher delivers content events to the updater queue.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev domain.ContentEvent) error
}

// EventSink accepts content events without blocking the request.
type EventSink interface {
	Send(ev domain.ContentEvent)
}

// Authenticator is implemented by types able to verify the caller from headers.
type Authenticator interface {
	IdentityFromAuthHeader(string) (Identity, error)
}

// Deps bundles the collaborators shared by every handler.
type Deps struct {
	Content  ContentStore
	Settings SettingsStore
	Users    UserStore
	Likes    LikeStore
	Events   EventSink
	Auth     Authenticator
	Clock    *Clock
	Updates  *UpdateBroker

	// AdminSubjects are identity subjects granted the admin role on first sign in.
	AdminSubjects []string
}
