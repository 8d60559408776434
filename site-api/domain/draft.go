package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Draft is the typed admin form payload for an entity of type T.
type Draft[T any] interface {
	// Apply builds the entity from the draft. prev is nil on create and holds
	// the stored entity on update so server-owned fields survive.
	Apply(meta Meta, prev *T) T
}

var validate = validator.New()

// ValidationError lists the draft fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid fields: " + strings.Join(e.Fields, ", ")
}

// Validate checks a draft's required and bounded fields.
func Validate(draft any) error {
	err := validate.Struct(draft)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", lowerFirst(fe.Field()), fe.Tag()))
	}
	return &ValidationError{Fields: fields}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// BlogDraft is the admin payload for a blog post.
type BlogDraft struct {
	Title      string   `json:"title" validate:"required,max=200"`
	Slug       string   `json:"slug" validate:"omitempty,max=200"`
	Excerpt    string   `json:"excerpt" validate:"max=500"`
	Content    string   `json:"content" validate:"required"`
	CoverImage string   `json:"coverImage" validate:"omitempty,url"`
	Author     string   `json:"author" validate:"required,max=100"`
	Tags       []string `json:"tags" validate:"max=20,dive,required,max=40"`
	Status     string   `json:"status" validate:"required,oneof=draft published"`
}

func (d BlogDraft) Apply(meta Meta, prev *BlogPost) BlogPost {
	slug := d.Slug
	if slug == "" {
		slug = Slugify(d.Title)
	}
	post := BlogPost{
		Meta:       meta,
		Title:      strings.TrimSpace(d.Title),
		Slug:       slug,
		Excerpt:    d.Excerpt,
		Content:    d.Content,
		CoverImage: d.CoverImage,
		Author:     strings.TrimSpace(d.Author),
		Tags:       d.Tags,
		Status:     d.Status,
	}
	if prev != nil {
		post.PublishedAt = prev.PublishedAt
		post.Likes = prev.Likes
	}
	if post.Status == StatusPublished && post.PublishedAt == nil {
		at := meta.UpdatedAt
		post.PublishedAt = &at
	}
	return post
}

// ProjectDraft is the admin payload for a Hall of Fame project.
type ProjectDraft struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"required,max=5000"`
	Category    string   `json:"category" validate:"required,project_category"`
	Team        []string `json:"team" validate:"max=20,dive,required,max=100"`
	Tags        []string `json:"tags" validate:"max=20,dive,required,max=40"`
	ImageURL    string   `json:"imageUrl" validate:"omitempty,url"`
	RepoURL     string   `json:"repoUrl" validate:"omitempty,url"`
	DemoURL     string   `json:"demoUrl" validate:"omitempty,url"`
	Year        int      `json:"year" validate:"omitempty,gte=2000,lte=2100"`
	Featured    bool     `json:"featured"`
}

func (d ProjectDraft) Apply(meta Meta, prev *Project) Project {
	p := Project{
		Meta:        meta,
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		Category:    d.Category,
		Team:        d.Team,
		Tags:        d.Tags,
		ImageURL:    d.ImageURL,
		RepoURL:     d.RepoURL,
		DemoURL:     d.DemoURL,
		Year:        d.Year,
		Featured:    d.Featured,
	}
	if prev != nil {
		p.Likes = prev.Likes
	}
	return p
}

// TeamMemberDraft is the admin payload for a team member.
type TeamMemberDraft struct {
	Name     string `json:"name" validate:"required,max=100"`
	Role     string `json:"role" validate:"required,max=100"`
	Bio      string `json:"bio" validate:"max=2000"`
	ImageURL string `json:"imageUrl" validate:"omitempty,url"`
	LinkedIn string `json:"linkedIn" validate:"omitempty,url"`
	Order    int    `json:"order" validate:"gte=0"`
	Active   bool   `json:"active"`
}

func (d TeamMemberDraft) Apply(meta Meta, _ *TeamMember) TeamMember {
	return TeamMember{
		Meta:     meta,
		Name:     strings.TrimSpace(d.Name),
		Role:     d.Role,
		Bio:      d.Bio,
		ImageURL: d.ImageURL,
		LinkedIn: d.LinkedIn,
		Order:    d.Order,
		Active:   d.Active,
	}
}

// AlumniDraft is the admin payload for an alumni profile.
type AlumniDraft struct {
	Name     string `json:"name" validate:"required,max=100"`
	Cohort   int    `json:"cohort" validate:"required,gte=2000,lte=2100"`
	School   string `json:"school" validate:"max=200"`
	Company  string `json:"company" validate:"max=200"`
	Position string `json:"position" validate:"max=200"`
	Story    string `json:"story" validate:"max=5000"`
	ImageURL string `json:"imageUrl" validate:"omitempty,url"`
	LinkedIn string `json:"linkedIn" validate:"omitempty,url"`
	Active   bool   `json:"active"`
}

func (d AlumniDraft) Apply(meta Meta, _ *Alumni) Alumni {
	return Alumni{
		Meta:     meta,
		Name:     strings.TrimSpace(d.Name),
		Cohort:   d.Cohort,
		School:   d.School,
		Company:  d.Company,
		Position: d.Position,
		Story:    d.Story,
		ImageURL: d.ImageURL,
		LinkedIn: d.LinkedIn,
		Active:   d.Active,
	}
}

// AmbassadorDraft is the admin payload for an ambassador.
type AmbassadorDraft struct {
	Name     string `json:"name" validate:"required,max=100"`
	School   string `json:"school" validate:"required,max=200"`
	Region   string `json:"region" validate:"max=100"`
	Bio      string `json:"bio" validate:"max=2000"`
	ImageURL string `json:"imageUrl" validate:"omitempty,url"`
	Active   bool   `json:"active"`
}

func (d AmbassadorDraft) Apply(meta Meta, _ *Ambassador) Ambassador {
	return Ambassador{
		Meta:     meta,
		Name:     strings.TrimSpace(d.Name),
		School:   d.School,
		Region:   d.Region,
		Bio:      d.Bio,
		ImageURL: d.ImageURL,
		Active:   d.Active,
	}
}

// MentorDraft is the admin payload for a mentor.
type MentorDraft struct {
	Name      string   `json:"name" validate:"required,max=100"`
	Expertise []string `json:"expertise" validate:"required,min=1,max=10,dive,required,max=60"`
	Company   string   `json:"company" validate:"max=200"`
	Bio       string   `json:"bio" validate:"max=2000"`
	ImageURL  string   `json:"imageUrl" validate:"omitempty,url"`
	LinkedIn  string   `json:"linkedIn" validate:"omitempty,url"`
	Active    bool     `json:"active"`
}

func (d MentorDraft) Apply(meta Meta, _ *Mentor) Mentor {
	return Mentor{
		Meta:      meta,
		Name:      strings.TrimSpace(d.Name),
		Expertise: d.Expertise,
		Company:   d.Company,
		Bio:       d.Bio,
		ImageURL:  d.ImageURL,
		LinkedIn:  d.LinkedIn,
		Active:    d.Active,
	}
}

// TimelinePhaseDraft is the admin payload for a schedule phase.
type TimelinePhaseDraft struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=2000"`
	StartDate   time.Time `json:"startDate" validate:"required"`
	EndDate     time.Time `json:"endDate" validate:"required,gtefield=StartDate"`
	Order       int       `json:"order" validate:"gte=0"`
	Status      string    `json:"status" validate:"required,oneof=upcoming active completed"`
}

func (d TimelinePhaseDraft) Apply(meta Meta, _ *TimelinePhase) TimelinePhase {
	return TimelinePhase{
		Meta:        meta,
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		StartDate:   d.StartDate,
		EndDate:     d.EndDate,
		Order:       d.Order,
		Status:      d.Status,
	}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a title into a URL slug.
func Slugify(title string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}

func init() {
	if err := validate.RegisterValidation("project_category", func(fl validator.FieldLevel) bool {
		return IsProjectCategory(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}
