package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Romaric250/ticsummit26-sub001/site-api/domain"
	"github.com/Romaric250/ticsummit26-sub001/site-api/storage"
)

var errInvalidBody = errors.New("invalid body")

// resource is the admin CRUD surface of one content kind.
type resource interface {
	list(ctx context.Context) (any, error)
	get(ctx context.Context, id string) (any, error)
	create(ctx context.Context, body io.Reader, now time.Time) (domain.Record, error)
	update(ctx context.Context, id string, body io.Reader, now time.Time) (domain.Record, error)
	remove(ctx context.Context, id string) error
}

type crud[T domain.Record, D domain.Draft[T]] struct {
	col *storage.Collection[T]
}

func newCRUD[T domain.Record, D domain.Draft[T]](store ContentStore, kind domain.Kind) resource {
	return crud[T, D]{col: storage.NewCollection[T](store, kind)}
}

func (r crud[T, D]) list(ctx context.Context) (any, error) {
	items, err := r.col.List(ctx)
	if err != nil {
		return nil, err
	}
	domain.SortRecords(items)
	return items, nil
}

func (r crud[T, D]) get(ctx context.Context, id string) (any, error) {
	return r.col.Get(ctx, id)
}

func (r crud[T, D]) decode(body io.Reader) (D, error) {
	var d D
	if err := decodeStrict(body, &d); err != nil {
		return d, errInvalidBody
	}
	if err := domain.Validate(d); err != nil {
		return d, err
	}
	return d, nil
}

func (r crud[T, D]) create(ctx context.Context, body io.Reader, now time.Time) (domain.Record, error) {
	d, err := r.decode(body)
	if err != nil {
		return nil, err
	}
	v := d.Apply(domain.Meta{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}, nil)
	if err := r.col.Put(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (r crud[T, D]) update(ctx context.Context, id string, body io.Reader, now time.Time) (domain.Record, error) {
	d, err := r.decode(body)
	if err != nil {
		return nil, err
	}
	v, err := r.col.Update(ctx, id, func(prev T) T {
		meta := prev.RecordMeta()
		meta.UpdatedAt = now
		return d.Apply(meta, &prev)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r crud[T, D]) remove(ctx context.Context, id string) error {
	return r.col.Delete(ctx, id)
}

func adminResources(store ContentStore) map[domain.Kind]resource {
	return map[domain.Kind]resource{
		domain.KindBlog:        newCRUD[domain.BlogPost, domain.BlogDraft](store, domain.KindBlog),
		domain.KindProjects:    newCRUD[domain.Project, domain.ProjectDraft](store, domain.KindProjects),
		domain.KindTeam:        newCRUD[domain.TeamMember, domain.TeamMemberDraft](store, domain.KindTeam),
		domain.KindAlumni:      newCRUD[domain.Alumni, domain.AlumniDraft](store, domain.KindAlumni),
		domain.KindAmbassadors: newCRUD[domain.Ambassador, domain.AmbassadorDraft](store, domain.KindAmbassadors),
		domain.KindMentors:     newCRUD[domain.Mentor, domain.MentorDraft](store, domain.KindMentors),
		domain.KindTimeline:    newCRUD[domain.TimelinePhase, domain.TimelinePhaseDraft](store, domain.KindTimeline),
	}
}

func registerAdmin(g *echo.Group, deps Deps, logger *log.Logger) {
	signedIn := RequireIdentity(deps.Auth)
	editor := RequireRole(deps.Users, domain.RoleEditor)
	admin := RequireRole(deps.Users, domain.RoleAdmin)
	resources := adminResources(deps.Content)

	g.GET("/admin/stats", getStats(deps.Content, deps.Users), signedIn, editor)
	g.PUT("/admin/settings", putSettings(deps.Settings, deps.Events, deps.Clock), signedIn, admin)
	g.GET("/admin/users", listUsers(deps.Users), signedIn, admin)
	g.PUT("/admin/users/:id/role", putUserRole(deps.Users, logger), signedIn, admin)

	g.GET("/admin/:kind", adminList(resources), signedIn, editor)
	g.POST("/admin/:kind", adminCreate(resources, deps.Events, deps.Clock), signedIn, editor)
	g.GET("/admin/:kind/:id", adminGet(resources), signedIn, editor)
	g.PUT("/admin/:kind/:id", adminUpdate(resources, deps.Events, deps.Clock), signedIn, editor)
	g.DELETE("/admin/:kind/:id", adminDelete(resources, deps.Likes, deps.Events, deps.Clock), signedIn, editor)
}

func resourceFor(c echo.Context, resources map[domain.Kind]resource) (domain.Kind, resource, error) {
	kind, err := domain.ParseKind(c.Param("kind"))
	if err != nil {
		return "", nil, err
	}
	return kind, resources[kind], nil
}

// failAdmin extends failWith with the body decoding error.
func failAdmin(c echo.Context, err error) error {
	if errors.Is(err, errInvalidBody) {
		return fail(c, http.StatusBadRequest, errInvalidBody.Error())
	}
	return failWith(c, err)
}

func emit(events EventSink, ev domain.ContentEvent) {
	if events != nil {
		events.Send(ev)
	}
}

func adminList(resources map[domain.Kind]resource) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, res, err := resourceFor(c, resources)
		if err != nil {
			return failWith(c, err)
		}
		items, err := res.list(c.Request().Context())
		if err != nil {
			return failWith(c, err)
		}
		return ok(c, http.StatusOK, items)
	}
}

func adminGet(resources map[domain.Kind]resource) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, res, err := resourceFor(c, resources)
		if err != nil {
			return failWith(c, err)
		}
		item, err := res.get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return failWith(c, err)
		}
		return ok(c, http.StatusOK, item)
	}
}

func adminCreate(resources map[domain.Kind]resource, events EventSink, clock *Clock) echo.HandlerFunc {
	return func(c echo.Context) error {
		kind, res, err := resourceFor(c, resources)
		if err != nil {
			return failWith(c, err)
		}
		id, _ := identityFrom(c)
		rec, err := res.create(c.Request().Context(), c.Request().Body, clock.Now())
		if err != nil {
			return failAdmin(c, err)
		}
		emit(events, domain.ContentEvent{Kind: kind, ID: rec.RecordID(), Type: domain.EventCreated, Actor: id.Subject, Timestamp: clock.Next()})
		return ok(c, http.StatusCreated, rec)
	}
}

func adminUpdate(resources map[domain.Kind]resource, events EventSink, clock *Clock) echo.HandlerFunc {
	return func(c echo.Context) error {
		kind, res, err := resourceFor(c, resources)
		if err != nil {
			return failWith(c, err)
		}
		id, _ := identityFrom(c)
		rec, err := res.update(c.Request().Context(), c.Param("id"), c.Request().Body, clock.Now())
		if err != nil {
			return failAdmin(c, err)
		}
		emit(events, domain.ContentEvent{Kind: kind, ID: rec.RecordID(), Type: domain.EventUpdated, Actor: id.Subject, Timestamp: clock.Next()})
		return ok(c, http.StatusOK, rec)
	}
}

func adminDelete(resources map[domain.Kind]resource, likes LikeStore, events EventSink, clock *Clock) echo.HandlerFunc {
	return func(c echo.Context) error {
		kind, res, err := resourceFor(c, resources)
		if err != nil {
			return failWith(c, err)
		}
		ctx := c.Request().Context()
		id, _ := identityFrom(c)
		target := c.Param("id")
		if err := res.remove(ctx, target); err != nil {
			return failWith(c, err)
		}
		if likes != nil && (kind == domain.KindProjects || kind == domain.KindBlog) {
			if err := likes.Clear(ctx, kind, target); err != nil {
				c.Logger().Warnf("clear likes of %s/%s: %v", kind, target, err)
			}
		}
		emit(events, domain.ContentEvent{Kind: kind, ID: target, Type: domain.EventDeleted, Actor: id.Subject, Timestamp: clock.Next()})
		return c.NoContent(http.StatusNoContent)
	}
}

// getStats gathers dashboard counters concurrently.
func getStats(content ContentStore, users UserStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		g, ctx := errgroup.WithContext(c.Request().Context())

		counts := make([]int, len(domain.Kinds))
		for i, kind := range domain.Kinds {
			g.Go(func() error {
				raws, err := content.ListRaw(ctx, kind)
				counts[i] = len(raws)
				return err
			})
		}

		var published, drafts, featured, activeMentors, userCount int
		g.Go(func() error {
			posts, err := storage.NewCollection[domain.BlogPost](content, domain.KindBlog).List(ctx)
			for _, p := range posts {
				if p.Status == domain.StatusPublished {
					published++
				} else {
					drafts++
				}
			}
			return err
		})
		g.Go(func() error {
			projects, err := storage.NewCollection[domain.Project](content, domain.KindProjects).List(ctx)
			for _, p := range projects {
				if p.Featured {
					featured++
				}
			}
			return err
		})
		g.Go(func() error {
			mentors, err := storage.NewCollection[domain.Mentor](content, domain.KindMentors).List(ctx)
			activeMentors = len(domain.VisibleOnly(mentors))
			return err
		})
		g.Go(func() error {
			all, err := users.ListUsers(ctx)
			userCount = len(all)
			return err
		})

		if err := g.Wait(); err != nil {
			return failWith(c, err)
		}

		stats := domain.Stats{
			Counts:           make(map[domain.Kind]int, len(domain.Kinds)),
			PublishedPosts:   published,
			DraftPosts:       drafts,
			FeaturedProjects: featured,
			ActiveMentors:    activeMentors,
			Users:            userCount,
		}
		for i, kind := range domain.Kinds {
			stats.Counts[kind] = counts[i]
		}
		return ok(c, http.StatusOK, stats)
	}
}

func putSettings(store SettingsStore, events EventSink, clock *Clock) echo.HandlerFunc {
	return func(c echo.Context) error {
		var d domain.SettingsDraft
		if err := decodeStrict(c.Request().Body, &d); err != nil {
			return fail(c, http.StatusBadRequest, errInvalidBody.Error())
		}
		if err := domain.Validate(d); err != nil {
			return failWith(c, err)
		}
		settings := d.Settings()
		if err := store.SaveSettings(c.Request().Context(), settings); err != nil {
			return failWith(c, err)
		}
		id, _ := identityFrom(c)
		emit(events, domain.ContentEvent{Type: domain.EventSettingsUpdated, Actor: id.Subject, Timestamp: clock.Next()})
		return ok(c, http.StatusOK, settings)
	}
}

func listUsers(users UserStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		all, err := users.ListUsers(c.Request().Context())
		if err != nil {
			return failWith(c, err)
		}
		sort.Slice(all, func(i, j int) bool {
			if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
				return all[i].CreatedAt.Before(all[j].CreatedAt)
			}
			return all[i].ID < all[j].ID
		})
		return ok(c, http.StatusOK, all)
	}
}

func putUserRole(users UserStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		caller, _ := identityFrom(c)
		target := c.Param("id")
		if target == caller.Subject {
			return fail(c, http.StatusBadRequest, "cannot change own role")
		}

		var upd domain.RoleUpdate
		if err := decodeStrict(c.Request().Body, &upd); err != nil {
			return fail(c, http.StatusBadRequest, errInvalidBody.Error())
		}
		if err := domain.Validate(upd); err != nil {
			return failWith(c, err)
		}

		user, err := users.GetUser(ctx, target)
		if err != nil {
			return failWith(c, err)
		}
		user.Role = domain.Role(upd.Role)
		if err := users.PutUser(ctx, user); err != nil {
			return failWith(c, err)
		}
		logger.WithFields(log.Fields{"user": user.ID, "role": user.Role, "by": caller.Subject}).Info("role changed")
		return ok(c, http.StatusOK, user)
	}
}
