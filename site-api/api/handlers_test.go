package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/Romaric250/ticsummit26-sub001/site-api/domain"
	"github.com/Romaric250/ticsummit26-sub001/site-api/storage"
)

type memContent struct {
	mu      sync.Mutex
	records map[domain.Kind]map[string]storage.RawRecord
	version int
	// beforePut runs ahead of every write, outside the lock.
	beforePut func()
}

func newMemContent() *memContent {
	return &memContent{records: map[domain.Kind]map[string]storage.RawRecord{}}
}

func (m *memContent) ListRaw(_ context.Context, kind domain.Kind) ([]storage.RawRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]storage.RawRecord, 0, len(m.records[kind]))
	for _, rec := range m.records[kind] {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memContent) GetRaw(_ context.Context, kind domain.Kind, id string) (storage.RawRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[kind][id]
	if !ok {
		return storage.RawRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (m *memContent) LatestRaw(ctx context.Context, kind domain.Kind, id string) (storage.RawRecord, error) {
	return m.GetRaw(ctx, kind, id)
}

func (m *memContent) PutRaw(_ context.Context, kind domain.Kind, rec storage.RawRecord, _ map[string]any) error {
	if hook := m.beforePut; hook != nil {
		m.beforePut = nil
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ETag != "" && m.records[kind][rec.ID].ETag != rec.ETag {
		return domain.ErrConflict
	}
	if m.records[kind] == nil {
		m.records[kind] = map[string]storage.RawRecord{}
	}
	m.version++
	rec.ETag = fmt.Sprintf(`W/"%d"`, m.version)
	m.records[kind][rec.ID] = rec
	return nil
}

func (m *memContent) DeleteRaw(_ context.Context, kind domain.Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[kind][id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.records[kind], id)
	return nil
}

type memSettings struct {
	settings domain.Settings
}

func (m *memSettings) FetchSettings(context.Context) (domain.Settings, error) { return m.settings, nil }

func (m *memSettings) SaveSettings(_ context.Context, s domain.Settings) error {
	m.settings = s
	return nil
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func (m *memUsers) RoleOf(ctx context.Context, id string) (domain.Role, error) {
	u, err := m.GetUser(ctx, id)
	return u.Role, err
}

func (m *memUsers) GetUser(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) PutUser(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) ListUsers(context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

type memLikes struct {
	mu        sync.Mutex
	sets      map[string]map[string]bool
	countsErr error
}

func (m *memLikes) key(kind domain.Kind, id string) string { return string(kind) + "/" + id }

func (m *memLikes) Like(_ context.Context, kind domain.Kind, id, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.key(kind, id)
	if m.sets[k] == nil {
		m.sets[k] = map[string]bool{}
	}
	m.sets[k][userID] = true
	return int64(len(m.sets[k])), nil
}

func (m *memLikes) Unlike(_ context.Context, kind domain.Kind, id, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.key(kind, id)
	delete(m.sets[k], userID)
	return int64(len(m.sets[k])), nil
}

func (m *memLikes) Counts(_ context.Context, kind domain.Kind, ids []string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countsErr != nil {
		return nil, m.countsErr
	}
	out := make(map[string]int64, len(ids))
	for _, id := range ids {
		out[id] = int64(len(m.sets[m.key(kind, id)]))
	}
	return out, nil
}

func (m *memLikes) Clear(_ context.Context, kind domain.Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets, m.key(kind, id))
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.ContentEvent
}

func (r *recordingSink) Send(ev domain.ContentEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) Events() []domain.ContentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ContentEvent(nil), r.events...)
}

// stubAuth treats the bearer value as a lookup key.
type stubAuth map[string]Identity

func (s stubAuth) IdentityFromAuthHeader(h string) (Identity, error) {
	if h == "" {
		return Identity{}, errMissingAuthorization
	}
	id, ok := s[strings.TrimPrefix(h, bearerPrefix)]
	if !ok {
		return Identity{}, errBadAuthorization
	}
	return id, nil
}

type testEnv struct {
	e        *echo.Echo
	content  *memContent
	settings *memSettings
	users    *memUsers
	likes    *memLikes
	events   *recordingSink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newLoggedTestEnv(t, log.New())
}

func newLoggedTestEnv(t *testing.T, logger *log.Logger) *testEnv {
	t.Helper()
	env := &testEnv{
		e:        echo.New(),
		content:  newMemContent(),
		settings: &memSettings{settings: domain.DefaultSettings()},
		users: &memUsers{users: map[string]domain.User{
			"admin-1":  {ID: "admin-1", Role: domain.RoleAdmin},
			"editor-1": {ID: "editor-1", Role: domain.RoleEditor},
			"user-1":   {ID: "user-1", Role: domain.RoleUser},
		}},
		likes:  &memLikes{sets: map[string]map[string]bool{}},
		events: &recordingSink{},
	}
	env.e.JSONSerializer = SonicSerializer{}
	env.e.Use(GzipRequestMiddleware())
	Register(env.e, Deps{
		Content:  env.content,
		Settings: env.settings,
		Users:    env.users,
		Likes:    env.likes,
		Events:   env.events,
		Auth: stubAuth{
			"admin":     {Subject: "admin-1"},
			"editor":    {Subject: "editor-1"},
			"user":      {Subject: "user-1"},
			"newcomer":  {Subject: "new-1", Email: "new@example.com", Name: "New"},
			"bootstrap": {Subject: "boot-1"},
		},
		AdminSubjects: []string{"boot-1"},
	}, logger)
	return env
}

func (env *testEnv) do(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

type testEnvelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Details    []string        `json:"details"`
	Pagination *pagination     `json:"pagination"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := sonic.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return env
}

func seed[T domain.Record](t *testing.T, content *memContent, kind domain.Kind, items ...T) {
	t.Helper()
	col := storage.NewCollection[T](content, kind)
	for _, item := range items {
		if err := col.Put(context.Background(), item); err != nil {
			t.Fatalf("seed %s: %v", kind, err)
		}
	}
}

func seedProjects(t *testing.T, content *memContent, n int) {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		category := "Web"
		if i%2 == 0 {
			category = "AI"
		}
		seed(t, content, domain.KindProjects, domain.Project{
			Meta:     domain.Meta{ID: fmt.Sprintf("p%02d", i), CreatedAt: base.Add(time.Duration(i) * time.Hour)},
			Title:    fmt.Sprintf("Project %d", i),
			Category: category,
		})
	}
}

func TestGetProjectsPaginates(t *testing.T) {
	env := newTestEnv(t)
	seedProjects(t, env.content, 13)
	_, _ = env.likes.Like(context.Background(), domain.KindProjects, "p13", "a")
	_, _ = env.likes.Like(context.Background(), domain.KindProjects, "p13", "b")

	wantSizes := []int{6, 6, 1}
	for page, want := range wantSizes {
		rec := env.do(t, http.MethodGet, fmt.Sprintf("/api/projects?page=%d&limit=6", page+1), "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("page %d: expected 200, got %d: %s", page+1, rec.Code, rec.Body.String())
		}
		resp := decodeEnvelope(t, rec)
		var projects []domain.Project
		if err := sonic.Unmarshal(resp.Data, &projects); err != nil {
			t.Fatalf("decode projects: %v", err)
		}
		if len(projects) != want {
			t.Fatalf("page %d: expected %d projects, got %d", page+1, want, len(projects))
		}
		if resp.Pagination == nil || resp.Pagination.TotalCount != 13 || resp.Pagination.Page != page+1 || resp.Pagination.Limit != 6 {
			t.Fatalf("page %d: unexpected pagination %#v", page+1, resp.Pagination)
		}
		if wantMore := page < 2; resp.Pagination.HasMore != wantMore {
			t.Fatalf("page %d: expected hasMore=%v", page+1, wantMore)
		}
		if page == 0 {
			if projects[0].ID != "p13" || projects[0].Likes != 2 {
				t.Fatalf("expected newest project with 2 likes first, got %#v", projects[0])
			}
		}
	}
}

func TestGetProjectsHugePageIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	seedProjects(t, env.content, 2)

	rec := env.do(t, http.MethodGet, "/api/projects?page=1537228672809129303&limit=6", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	var projects []domain.Project
	if err := sonic.Unmarshal(resp.Data, &projects); err != nil {
		t.Fatalf("decode projects: %v", err)
	}
	if len(projects) != 0 || resp.Pagination == nil || resp.Pagination.HasMore || resp.Pagination.TotalCount != 2 {
		t.Fatalf("expected empty final page, got %d projects, pagination %#v", len(projects), resp.Pagination)
	}
}

func TestGetProjectsFiltersAndDefaults(t *testing.T) {
	env := newTestEnv(t)
	seedProjects(t, env.content, 9)

	rec := env.do(t, http.MethodGet, "/api/projects?category=web", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Pagination.TotalCount != 5 || resp.Pagination.Limit != domain.DefaultProjectsPageSize {
		t.Fatalf("unexpected pagination for category filter: %#v", resp.Pagination)
	}

	rec = env.do(t, http.MethodGet, "/api/projects?search=project%209&category=all", "", "")
	resp = decodeEnvelope(t, rec)
	if resp.Pagination.TotalCount != 1 {
		t.Fatalf("expected a single search hit, got %#v", resp.Pagination)
	}

	rec = env.do(t, http.MethodGet, "/api/projects?page=99", "", "")
	resp = decodeEnvelope(t, rec)
	if string(resp.Data) != "[]" || resp.Pagination.HasMore {
		t.Fatalf("expected empty page past the end, got %s %#v", resp.Data, resp.Pagination)
	}
}

func TestGetProjectsRejectsBadQuery(t *testing.T) {
	testCases := map[string]string{
		"category":      "/api/projects?category=Quantum",
		"page_negative": "/api/projects?page=-1",
		"page_text":     "/api/projects?page=abc",
		"limit_zero":    "/api/projects?limit=0",
	}
	for name, target := range testCases {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(t, http.MethodGet, target, "", "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if resp := decodeEnvelope(t, rec); resp.Success || resp.Error == "" {
				t.Fatalf("expected failure envelope, got %#v", resp)
			}
		})
	}
}

func TestPublicListsHideInactive(t *testing.T) {
	env := newTestEnv(t)
	published := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	seed(t, env.content, domain.KindBlog,
		domain.BlogPost{Meta: domain.Meta{ID: "b1"}, Title: "Live", Slug: "live", Status: domain.StatusPublished, PublishedAt: &published},
		domain.BlogPost{Meta: domain.Meta{ID: "b2"}, Title: "Hidden", Slug: "hidden", Status: domain.StatusDraft},
	)
	seed(t, env.content, domain.KindTeam,
		domain.TeamMember{Meta: domain.Meta{ID: "t2"}, Name: "Second", Order: 2, Active: true},
		domain.TeamMember{Meta: domain.Meta{ID: "t1"}, Name: "First", Order: 1, Active: true},
		domain.TeamMember{Meta: domain.Meta{ID: "t3"}, Name: "Gone", Order: 0, Active: false},
	)

	resp := decodeEnvelope(t, env.do(t, http.MethodGet, "/api/blog", "", ""))
	var posts []domain.BlogPost
	if err := sonic.Unmarshal(resp.Data, &posts); err != nil {
		t.Fatalf("decode posts: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "b1" {
		t.Fatalf("expected only the published post, got %#v", posts)
	}

	resp = decodeEnvelope(t, env.do(t, http.MethodGet, "/api/team", "", ""))
	var team []domain.TeamMember
	if err := sonic.Unmarshal(resp.Data, &team); err != nil {
		t.Fatalf("decode team: %v", err)
	}
	if len(team) != 2 || team[0].ID != "t1" || team[1].ID != "t2" {
		t.Fatalf("expected active members in order, got %#v", team)
	}

	if rec := env.do(t, http.MethodGet, "/api/blog/live", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected slug lookup to succeed, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/blog/b2", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected draft to be hidden, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/blog/hidden", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected draft slug to be hidden, got %d", rec.Code)
	}
}

func TestSessionCreatesUsers(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodGet, "/api/session", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/session", "newcomer", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var session sessionResponse
	if err := sonic.Unmarshal(decodeEnvelope(t, rec).Data, &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.Role != string(domain.RoleUser) || session.Email != "new@example.com" {
		t.Fatalf("unexpected session: %#v", session)
	}
	if _, err := env.users.GetUser(context.Background(), "new-1"); err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}

	rec = env.do(t, http.MethodGet, "/api/session", "bootstrap", "")
	if err := sonic.Unmarshal(decodeEnvelope(t, rec).Data, &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.Role != string(domain.RoleAdmin) {
		t.Fatalf("expected bootstrap subject to be admin, got %q", session.Role)
	}
}

func TestLikeAndUnlike(t *testing.T) {
	env := newTestEnv(t)
	seedProjects(t, env.content, 1)

	if rec := env.do(t, http.MethodPost, "/api/projects/p01/like", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/projects/missing/like", "user", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown project, got %d", rec.Code)
	}

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, "/api/projects/p01/like", "user", "")
		var resp likeResponse
		if err := sonic.Unmarshal(decodeEnvelope(t, rec).Data, &resp); err != nil {
			t.Fatalf("decode like: %v", err)
		}
		if !resp.Liked || resp.Likes != 1 {
			t.Fatalf("expected idempotent like, got %#v", resp)
		}
	}

	rec := env.do(t, http.MethodDelete, "/api/projects/p01/like", "user", "")
	var resp likeResponse
	if err := sonic.Unmarshal(decodeEnvelope(t, rec).Data, &resp); err != nil {
		t.Fatalf("decode unlike: %v", err)
	}
	if resp.Liked || resp.Likes != 0 {
		t.Fatalf("expected unlike, got %#v", resp)
	}
}

func TestAdminRequiresRole(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		method, target, token string
		want                  int
	}{
		{http.MethodGet, "/api/admin/projects", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/admin/projects", "user", http.StatusForbidden},
		{http.MethodGet, "/api/admin/projects", "newcomer", http.StatusForbidden},
		{http.MethodGet, "/api/admin/projects", "editor", http.StatusOK},
		{http.MethodGet, "/api/admin/users", "editor", http.StatusForbidden},
		{http.MethodGet, "/api/admin/users", "admin", http.StatusOK},
		{http.MethodGet, "/api/admin/widgets", "editor", http.StatusNotFound},
	}
	for _, tc := range cases {
		if rec := env.do(t, tc.method, tc.target, tc.token, ""); rec.Code != tc.want {
			t.Fatalf("%s %s as %q: expected %d, got %d", tc.method, tc.target, tc.token, tc.want, rec.Code)
		}
	}
}

func TestAdminProjectLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/admin/projects", "editor",
		`{"title":"Solar Sprayer","description":"Irrigation","category":"IoT","team":["Ada"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.Project
	if err := sonic.Unmarshal(decodeEnvelope(t, rec).Data, &created); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("expected server-assigned identity, got %#v", created)
	}

	rec = env.do(t, http.MethodPut, "/api/admin/projects/"+created.ID, "editor",
		`{"title":"Solar Sprayer 2","description":"Irrigation","category":"IoT"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated domain.Project
	if err := sonic.Unmarshal(decodeEnvelope(t, rec).Data, &updated); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) || !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("expected createdAt kept and updatedAt advanced: %#v", updated)
	}

	_, _ = env.likes.Like(context.Background(), domain.KindProjects, created.ID, "user-1")
	if rec := env.do(t, http.MethodDelete, "/api/admin/projects/"+created.ID, "editor", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if counts, _ := env.likes.Counts(context.Background(), domain.KindProjects, []string{created.ID}); counts[created.ID] != 0 {
		t.Fatalf("expected likes to be cleared on delete")
	}
	if rec := env.do(t, http.MethodGet, "/api/admin/projects/"+created.ID, "editor", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}

	events := env.events.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %#v", events)
	}
	wantTypes := []string{domain.EventCreated, domain.EventUpdated, domain.EventDeleted}
	for i, ev := range events {
		if ev.Type != wantTypes[i] || ev.Kind != domain.KindProjects || ev.ID != created.ID || ev.Actor != "editor-1" {
			t.Fatalf("unexpected event %d: %#v", i, ev)
		}
		if i > 0 && ev.Timestamp <= events[i-1].Timestamp {
			t.Fatalf("expected increasing event timestamps: %#v", events)
		}
	}
}

func TestAdminUpdateConflictsWithConcurrentWrite(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env.content, domain.KindProjects, domain.Project{
		Meta:     domain.Meta{ID: "p1"},
		Title:    "Solar tracker",
		Category: "IoT",
	})
	projects := storage.NewCollection[domain.Project](env.content, domain.KindProjects)
	env.content.beforePut = func() {
		if err := projects.Put(context.Background(), domain.Project{Meta: domain.Meta{ID: "p1"}, Title: "Edited elsewhere", Category: "IoT"}); err != nil {
			t.Errorf("concurrent put: %v", err)
		}
	}

	rec := env.do(t, http.MethodPut, "/api/admin/projects/p1", "editor",
		`{"title":"Solar tracker v2","description":"Follows the sun","category":"IoT"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp := decodeEnvelope(t, rec); resp.Success {
		t.Fatalf("expected failure envelope, got %#v", resp)
	}
	got, err := projects.Get(context.Background(), "p1")
	if err != nil || got.Title != "Edited elsewhere" {
		t.Fatalf("concurrent edit lost: %#v (%v)", got, err)
	}
	if events := env.events.Events(); len(events) != 0 {
		t.Fatalf("rejected update emitted events: %#v", events)
	}

	rec = env.do(t, http.MethodPut, "/api/admin/projects/p1", "editor",
		`{"title":"Solar tracker v2","description":"Follows the sun","category":"IoT"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("retry after re-read should succeed, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminCreateRejectsInvalidDrafts(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/admin/projects", "editor", `{"title":"","description":"x","category":"Space"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if len(resp.Details) != 2 {
		t.Fatalf("expected two field errors, got %#v", resp.Details)
	}

	rec = env.do(t, http.MethodPost, "/api/admin/mentors", "editor", `{"name":"Grace","likes":9000}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected unknown fields to be rejected, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, "/api/admin/team/missing", "editor", `{"name":"A","role":"Lead"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 updating a missing record, got %d", rec.Code)
	}
	if len(env.events.Events()) != 0 {
		t.Fatalf("failed writes must not emit events")
	}
}

func TestAdminAcceptsGzipBody(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, _ = gz.Write([]byte(`{"name":"Ada","role":"Lead","active":true}`))
	_ = gz.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/team", &buf)
	req.Header.Set(echo.HeaderContentEncoding, "gzip")
	req.Header.Set(echo.HeaderAuthorization, "Bearer editor")
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/admin/team", strings.NewReader("not gzip"))
	req.Header.Set(echo.HeaderContentEncoding, "gzip")
	req.Header.Set(echo.HeaderAuthorization, "Bearer editor")
	rec = httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid gzip, got %d", rec.Code)
	}
}

func TestAdminStats(t *testing.T) {
	env := newTestEnv(t)
	seedProjects(t, env.content, 3)
	seed(t, env.content, domain.KindBlog,
		domain.BlogPost{Meta: domain.Meta{ID: "b1"}, Status: domain.StatusPublished},
		domain.BlogPost{Meta: domain.Meta{ID: "b2"}, Status: domain.StatusDraft},
		domain.BlogPost{Meta: domain.Meta{ID: "b3"}, Status: domain.StatusDraft},
	)
	seed(t, env.content, domain.KindMentors,
		domain.Mentor{Meta: domain.Meta{ID: "m1"}, Active: true},
		domain.Mentor{Meta: domain.Meta{ID: "m2"}},
	)

	rec := env.do(t, http.MethodGet, "/api/admin/stats", "editor", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stats domain.Stats
	if err := sonic.Unmarshal(decodeEnvelope(t, rec).Data, &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Counts[domain.KindProjects] != 3 || stats.Counts[domain.KindBlog] != 3 || stats.Counts[domain.KindAlumni] != 0 {
		t.Fatalf("unexpected counts: %#v", stats.Counts)
	}
	if stats.PublishedPosts != 1 || stats.DraftPosts != 2 || stats.ActiveMentors != 1 || stats.Users != 3 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestSettingsUpdate(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodPut, "/api/admin/settings", "editor", `{"siteName":"X"}`); rec.Code != http.StatusForbidden {
		t.Fatalf("expected editors to be refused, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, "/api/admin/settings", "admin", `{"siteName":"X","contactEmail":"nope"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected invalid email to be rejected, got %d", rec.Code)
	}
	rec := env.do(t, http.MethodPut, "/api/admin/settings", "admin", `{"siteName":"TIC Summit 2026","registrationOpen":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var settings domain.Settings
	if err := sonic.Unmarshal(decodeEnvelope(t, env.do(t, http.MethodGet, "/api/settings", "", "")).Data, &settings); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if settings.SiteName != "TIC Summit 2026" || !settings.RegistrationOpen {
		t.Fatalf("unexpected settings: %#v", settings)
	}
	events := env.events.Events()
	if len(events) != 1 || events[0].Type != domain.EventSettingsUpdated {
		t.Fatalf("expected a settings event, got %#v", events)
	}
}

func TestUserRoleUpdate(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodPut, "/api/admin/users/user-1/role", "admin", `{"role":"owner"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected unknown role to be rejected, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, "/api/admin/users/admin-1/role", "admin", `{"role":"user"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected self demotion to be rejected, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, "/api/admin/users/ghost/role", "admin", `{"role":"editor"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, "/api/admin/users/user-1/role", "admin", `{"role":"editor"}`); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/admin/projects", "user", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected promoted user to reach editor routes, got %d", rec.Code)
	}
}
