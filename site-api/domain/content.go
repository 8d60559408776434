package domain

import (
	"sort"
	"strings"
	"time"
)

// Kind identifies a content collection. It doubles as the URL segment and
// the table partition key.
type Kind string

const (
	KindBlog        Kind = "blog"
	KindProjects    Kind = "projects"
	KindTeam        Kind = "team"
	KindAlumni      Kind = "alumni"
	KindAmbassadors Kind = "ambassadors"
	KindMentors     Kind = "mentors"
	KindTimeline    Kind = "timeline"
)

// Kinds lists every content collection.
var Kinds = []Kind{KindBlog, KindProjects, KindTeam, KindAlumni, KindAmbassadors, KindMentors, KindTimeline}

// ParseKind maps a URL segment to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", ErrUnknownKind
}

// Meta carries the identity and timestamps shared by every entity.
type Meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RecordID returns the entity identifier.
func (m Meta) RecordID() string { return m.ID }

// RecordMeta returns the shared identity and timestamps.
func (m Meta) RecordMeta() Meta { return m }

// Record is implemented by every stored entity.
type Record interface {
	RecordID() string
	RecordMeta() Meta
	// Columns returns the indexed table columns stored next to the JSON payload.
	Columns() map[string]any
	// Visible reports whether the record is shown on public pages.
	Visible() bool
}

// Blog post statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// BlogPost is an article shown on the blog page.
type BlogPost struct {
	Meta
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Content     string     `json:"content"`
	CoverImage  string     `json:"coverImage,omitempty"`
	Author      string     `json:"author"`
	Tags        []string   `json:"tags,omitempty"`
	Status      string     `json:"status"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Likes       int64      `json:"likes"`
}

func (b BlogPost) Columns() map[string]any {
	return map[string]any{"Status": b.Status, "Slug": b.Slug}
}

func (b BlogPost) Visible() bool { return b.Status == StatusPublished }

// Project is a student project showcased in the Hall of Fame.
type Project struct {
	Meta
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Team        []string `json:"team,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	RepoURL     string   `json:"repoUrl,omitempty"`
	DemoURL     string   `json:"demoUrl,omitempty"`
	Year        int      `json:"year,omitempty"`
	Featured    bool     `json:"featured,omitempty"`
	Likes       int64    `json:"likes"`
}

func (p Project) Columns() map[string]any {
	return map[string]any{"Category": p.Category, "Featured": p.Featured}
}

func (p Project) Visible() bool { return true }

// TeamMember is a member of the organizing team.
type TeamMember struct {
	Meta
	Name     string `json:"name"`
	Role     string `json:"role"`
	Bio      string `json:"bio,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	LinkedIn string `json:"linkedIn,omitempty"`
	Order    int    `json:"order"`
	Active   bool   `json:"active"`
}

func (t TeamMember) Columns() map[string]any {
	return map[string]any{"Active": t.Active, "Order": t.Order}
}

func (t TeamMember) Visible() bool { return t.Active }

// Alumni is a former participant.
type Alumni struct {
	Meta
	Name     string `json:"name"`
	Cohort   int    `json:"cohort"`
	School   string `json:"school,omitempty"`
	Company  string `json:"company,omitempty"`
	Position string `json:"position,omitempty"`
	Story    string `json:"story,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	LinkedIn string `json:"linkedIn,omitempty"`
	Active   bool   `json:"active"`
}

func (a Alumni) Columns() map[string]any {
	return map[string]any{"Active": a.Active, "Cohort": a.Cohort}
}

func (a Alumni) Visible() bool { return a.Active }

// Ambassador represents the program at a school or region.
type Ambassador struct {
	Meta
	Name     string `json:"name"`
	School   string `json:"school"`
	Region   string `json:"region,omitempty"`
	Bio      string `json:"bio,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	Active   bool   `json:"active"`
}

func (a Ambassador) Columns() map[string]any {
	return map[string]any{"Active": a.Active, "Region": a.Region}
}

func (a Ambassador) Visible() bool { return a.Active }

// Mentor coaches participating teams.
type Mentor struct {
	Meta
	Name      string   `json:"name"`
	Expertise []string `json:"expertise"`
	Company   string   `json:"company,omitempty"`
	Bio       string   `json:"bio,omitempty"`
	ImageURL  string   `json:"imageUrl,omitempty"`
	LinkedIn  string   `json:"linkedIn,omitempty"`
	Active    bool     `json:"active"`
}

func (m Mentor) Columns() map[string]any {
	return map[string]any{"Active": m.Active}
}

func (m Mentor) Visible() bool { return m.Active }

// Timeline phase statuses.
const (
	PhaseUpcoming  = "upcoming"
	PhaseActive    = "active"
	PhaseCompleted = "completed"
)

// TimelinePhase is one step of the summit schedule.
type TimelinePhase struct {
	Meta
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Order       int       `json:"order"`
	Status      string    `json:"status"`
}

func (t TimelinePhase) Columns() map[string]any {
	return map[string]any{"Status": t.Status, "Order": t.Order}
}

func (t TimelinePhase) Visible() bool { return true }

// VisibleOnly drops records hidden from public pages.
func VisibleOnly[T Record](records []T) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if r.Visible() {
			out = append(out, r)
		}
	}
	return out
}

// SortRecords orders records the way public pages present them.
func SortRecords[T Record](records []T) {
	sort.SliceStable(records, func(i, j int) bool {
		return less(any(records[i]), any(records[j]))
	})
}

func less(a, b any) bool {
	switch x := a.(type) {
	case TeamMember:
		y := b.(TeamMember)
		if x.Order != y.Order {
			return x.Order < y.Order
		}
		if x.Name != y.Name {
			return x.Name < y.Name
		}
		return x.ID < y.ID
	case TimelinePhase:
		y := b.(TimelinePhase)
		if x.Order != y.Order {
			return x.Order < y.Order
		}
		if !x.StartDate.Equal(y.StartDate) {
			return x.StartDate.Before(y.StartDate)
		}
		return x.ID < y.ID
	case BlogPost:
		y := b.(BlogPost)
		xt, yt := x.CreatedAt, y.CreatedAt
		if x.PublishedAt != nil {
			xt = *x.PublishedAt
		}
		if y.PublishedAt != nil {
			yt = *y.PublishedAt
		}
		if !xt.Equal(yt) {
			return xt.After(yt)
		}
		return x.ID < y.ID
	}
	ma, mb := metaOf(a), metaOf(b)
	if !ma.CreatedAt.Equal(mb.CreatedAt) {
		return ma.CreatedAt.After(mb.CreatedAt)
	}
	return ma.ID < mb.ID
}

func metaOf(v any) Meta {
	if r, ok := v.(Record); ok {
		return r.RecordMeta()
	}
	return Meta{}
}
