package domain

import (
	"sort"
	"strings"
)

// Project categories offered by the Hall of Fame filter.
var ProjectCategories = []string{"Web", "Mobile", "AI", "IoT", "Robotics", "Other"}

// CategoryAll disables category filtering.
const CategoryAll = "all"

const (
	DefaultProjectsPageSize = 6
	MaxProjectsPageSize     = 50
)

// IsProjectCategory reports whether c is one of ProjectCategories.
func IsProjectCategory(c string) bool {
	for _, known := range ProjectCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ListQuery selects one page of the projects listing.
type ListQuery struct {
	Page     int
	Limit    int
	Search   string
	Category string
}

// Normalize trims the search term, fills defaults and rejects unknown categories.
func (q ListQuery) Normalize(defaultLimit int) (ListQuery, error) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultProjectsPageSize
	}
	q.Search = strings.TrimSpace(q.Search)
	q.Category = strings.TrimSpace(q.Category)
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > MaxProjectsPageSize {
		q.Limit = MaxProjectsPageSize
	}
	if q.Category == "" || strings.EqualFold(q.Category, CategoryAll) {
		q.Category = CategoryAll
		return q, nil
	}
	for _, known := range ProjectCategories {
		if strings.EqualFold(q.Category, known) {
			q.Category = known
			return q, nil
		}
	}
	return q, ErrInvalidCategory
}

// ProjectPage is one page of filtered projects.
type ProjectPage struct {
	Projects   []Project
	Page       int
	Limit      int
	HasMore    bool
	TotalCount int
}

// PageProjects filters, orders and slices projects for a normalized query.
func PageProjects(all []Project, q ListQuery) ProjectPage {
	matched := make([]Project, 0, len(all))
	needle := strings.ToLower(q.Search)
	for _, p := range all {
		if q.Category != CategoryAll && p.Category != q.Category {
			continue
		}
		if needle != "" && !projectMatches(p, needle) {
			continue
		}
		matched = append(matched, p)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	out := ProjectPage{Page: q.Page, Limit: q.Limit, TotalCount: total}
	if q.Limit <= 0 || q.Page <= 0 {
		return out
	}
	// Pages past the last one are empty. Compared before multiplying so huge
	// page numbers cannot overflow.
	pages := (total + q.Limit - 1) / q.Limit
	if q.Page-1 >= pages {
		out.Projects = matched[:0]
		return out
	}
	start := (q.Page - 1) * q.Limit
	end := min(start+q.Limit, total)
	out.Projects = matched[start:end]
	out.HasMore = end < total
	return out
}

func projectMatches(p Project, needle string) bool {
	if strings.Contains(strings.ToLower(p.Title), needle) || strings.Contains(strings.ToLower(p.Description), needle) {
		return true
	}
	for _, m := range p.Team {
		if strings.Contains(strings.ToLower(m), needle) {
			return true
		}
	}
	for _, t := range p.Tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}
