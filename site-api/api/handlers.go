package api

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/Romaric250/ticsummit26-sub001/site-api/domain"
	"github.com/Romaric250/ticsummit26-sub001/site-api/storage"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, deps Deps, logger *log.Logger) {
	if deps.Clock == nil {
		deps.Clock = NewClock()
	}
	projects := storage.NewCollection[domain.Project](deps.Content, domain.KindProjects)
	blog := storage.NewCollection[domain.BlogPost](deps.Content, domain.KindBlog)

	e.GET("/healthz", healthz())

	g := e.Group("/api")
	g.GET("/projects", getProjects(projects, deps.Likes, logger))
	g.GET("/projects/:id", getProject(projects, deps.Likes))
	g.GET("/blog", listPublic(blog, withBlogLikes(deps.Likes)))
	g.GET("/blog/:id", getBlogPost(blog, deps.Likes))
	g.GET("/team", listPublic(storage.NewCollection[domain.TeamMember](deps.Content, domain.KindTeam), nil))
	g.GET("/alumni", listPublic(storage.NewCollection[domain.Alumni](deps.Content, domain.KindAlumni), nil))
	g.GET("/ambassadors", listPublic(storage.NewCollection[domain.Ambassador](deps.Content, domain.KindAmbassadors), nil))
	g.GET("/mentors", listPublic(storage.NewCollection[domain.Mentor](deps.Content, domain.KindMentors), nil))
	g.GET("/timeline", listPublic(storage.NewCollection[domain.TimelinePhase](deps.Content, domain.KindTimeline), nil))
	g.GET("/settings", getSettings(deps.Settings))
	if deps.Updates != nil {
		g.GET("/updates", streamUpdates(deps.Updates))
	}

	signedIn := RequireIdentity(deps.Auth)
	g.GET("/session", getSession(deps.Users, deps.Clock, deps.AdminSubjects, logger), signedIn)
	for _, kind := range []domain.Kind{domain.KindProjects, domain.KindBlog} {
		g.POST("/"+string(kind)+"/:id/like", toggleLike(deps.Content, deps.Likes, kind, true), signedIn)
		g.DELETE("/"+string(kind)+"/:id/like", toggleLike(deps.Content, deps.Likes, kind, false), signedIn)
	}

	registerAdmin(g, deps, logger)
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

// queryInt parses an optional positive integer query parameter. Absent means 0.
func queryInt(c echo.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

func getProjects(projects *storage.Collection[domain.Project], likes LikeStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newProjectsRequestMetrics(ctx, logger)
		c.SetRequest(c.Request().WithContext(spanCtx))
		ctx = spanCtx

		var cause error
		defer func() {
			if cause == nil {
				cause = err
			}
			metrics.Log(c.Response().Status, cause)
		}()

		page, perr := queryInt(c, "page")
		if perr != nil {
			metrics.SetErrorStage("invalid_page")
			cause = perr
			return fail(c, http.StatusBadRequest, perr.Error())
		}
		limit, lerr := queryInt(c, "limit")
		if lerr != nil {
			metrics.SetErrorStage("invalid_limit")
			cause = lerr
			return fail(c, http.StatusBadRequest, lerr.Error())
		}
		q, qerr := domain.ListQuery{
			Page:     page,
			Limit:    limit,
			Search:   c.QueryParam("search"),
			Category: c.QueryParam("category"),
		}.Normalize(domain.DefaultProjectsPageSize)
		metrics.SetQuery(q.Page, q.Limit, q.Search, q.Category)
		if qerr != nil {
			metrics.SetErrorStage("invalid_category")
			cause = qerr
			return fail(c, http.StatusBadRequest, qerr.Error())
		}

		fetchStart := time.Now()
		all, ferr := projects.List(ctx)
		metrics.ObserveFetch(time.Since(fetchStart))
		if ferr != nil {
			metrics.SetErrorStage("storage")
			cause = ferr
			c.Logger().Error(ferr)
			return fail(c, http.StatusInternalServerError, "failed to load projects")
		}

		result := domain.PageProjects(all, q)

		likesStart := time.Now()
		if lerr := fillProjectLikes(ctx, likes, result.Projects); lerr != nil {
			// Counts are decoration; serve the page without them.
			metrics.SetErrorStage("likes")
			c.Logger().Warnf("like counts unavailable: %v", lerr)
		}
		metrics.ObserveLikes(time.Since(likesStart))
		metrics.SetResult(len(result.Projects), result.HasMore, result.TotalCount)

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, envelope{
			Success: true,
			Data:    result.Projects,
			Pagination: &pagination{
				Page:       result.Page,
				Limit:      result.Limit,
				HasMore:    result.HasMore,
				TotalCount: result.TotalCount,
			},
		})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func fillProjectLikes(ctx context.Context, likes LikeStore, projects []domain.Project) error {
	if likes == nil || len(projects) == 0 {
		return nil
	}
	ids := make([]string, len(projects))
	for i := range projects {
		ids[i] = projects[i].ID
	}
	counts, err := likes.Counts(ctx, domain.KindProjects, ids)
	if err != nil {
		return err
	}
	for i := range projects {
		projects[i].Likes = counts[projects[i].ID]
	}
	return nil
}

func withBlogLikes(likes LikeStore) func(context.Context, []domain.BlogPost) error {
	return func(ctx context.Context, posts []domain.BlogPost) error {
		if likes == nil || len(posts) == 0 {
			return nil
		}
		ids := make([]string, len(posts))
		for i := range posts {
			ids[i] = posts[i].ID
		}
		counts, err := likes.Counts(ctx, domain.KindBlog, ids)
		if err != nil {
			return err
		}
		for i := range posts {
			posts[i].Likes = counts[posts[i].ID]
		}
		return nil
	}
}

func getProject(projects *storage.Collection[domain.Project], likes LikeStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		p, err := projects.Get(ctx, c.Param("id"))
		if err != nil {
			return failWith(c, err)
		}
		one := []domain.Project{p}
		if err := fillProjectLikes(ctx, likes, one); err != nil {
			c.Logger().Warnf("like counts unavailable: %v", err)
		}
		return ok(c, http.StatusOK, one[0])
	}
}

// listPublic serves the visible records of a collection in page order.
func listPublic[T domain.Record](col *storage.Collection[T], decorate func(context.Context, []T) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		all, err := col.List(ctx)
		if err != nil {
			return failWith(c, err)
		}
		visible := domain.VisibleOnly(all)
		domain.SortRecords(visible)
		if decorate != nil {
			if err := decorate(ctx, visible); err != nil {
				c.Logger().Warnf("decorate %s: %v", col.Kind(), err)
			}
		}
		return ok(c, http.StatusOK, visible)
	}
}

// getBlogPost resolves a published post by id, then by slug.
func getBlogPost(blog *storage.Collection[domain.BlogPost], likes LikeStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		key := c.Param("id")

		post, err := blog.Get(ctx, key)
		if errors.Is(err, domain.ErrNotFound) {
			var all []domain.BlogPost
			all, err = blog.List(ctx)
			if err == nil {
				err = domain.ErrNotFound
				for _, p := range all {
					if p.Slug == key {
						post, err = p, nil
						break
					}
				}
			}
		}
		if err != nil {
			return failWith(c, err)
		}
		if !post.Visible() {
			return failWith(c, domain.ErrNotFound)
		}
		one := []domain.BlogPost{post}
		if err := withBlogLikes(likes)(ctx, one); err != nil {
			c.Logger().Warnf("like counts unavailable: %v", err)
		}
		return ok(c, http.StatusOK, one[0])
	}
}

func getSettings(store SettingsStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		settings, err := store.FetchSettings(c.Request().Context())
		if err != nil {
			return failWith(c, err)
		}
		return ok(c, http.StatusOK, settings)
	}
}

// getSession returns the caller's account, creating it on first sign in.
func getSession(users UserStore, clock *Clock, adminSubjects []string, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id, _ := identityFrom(c)
		bootstrapAdmin := slices.Contains(adminSubjects, id.Subject)

		user, err := users.GetUser(ctx, id.Subject)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			user = domain.User{
				ID:        id.Subject,
				Email:     id.Email,
				Name:      id.Name,
				Role:      domain.RoleUser,
				CreatedAt: clock.Now(),
			}
			if bootstrapAdmin {
				user.Role = domain.RoleAdmin
			}
			if err := users.PutUser(ctx, user); err != nil {
				return failWith(c, err)
			}
			logger.WithFields(log.Fields{"user": user.ID, "role": user.Role}).Info("user created")
		case err != nil:
			return failWith(c, err)
		default:
			changed := false
			if bootstrapAdmin && user.Role != domain.RoleAdmin {
				user.Role = domain.RoleAdmin
				changed = true
			}
			if id.Email != "" && id.Email != user.Email {
				user.Email = id.Email
				changed = true
			}
			if id.Name != "" && id.Name != user.Name {
				user.Name = id.Name
				changed = true
			}
			if changed {
				if err := users.PutUser(ctx, user); err != nil {
					return failWith(c, err)
				}
			}
		}

		return ok(c, http.StatusOK, sessionResponse{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Role:  string(user.Role),
		})
	}
}

func toggleLike(content ContentStore, likes LikeStore, kind domain.Kind, like bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id, _ := identityFrom(c)
		target := c.Param("id")

		if _, err := content.GetRaw(ctx, kind, target); err != nil {
			return failWith(c, err)
		}

		var (
			n   int64
			err error
		)
		if like {
			n, err = likes.Like(ctx, kind, target, id.Subject)
		} else {
			n, err = likes.Unlike(ctx, kind, target, id.Subject)
		}
		if err != nil {
			return failWith(c, err)
		}
		return ok(c, http.StatusOK, likeResponse{Liked: like, Likes: n})
	}
}
