package domain

// Content event types.
const (
	EventCreated         = "created"
	EventUpdated         = "updated"
	EventDeleted         = "deleted"
	EventSettingsUpdated = "settings-updated"
)

// ContentEvent announces an admin write so caches can be rewarmed.
type ContentEvent struct {
	Kind      Kind   `json:"kind,omitempty"`
	ID        string `json:"id,omitempty"`
	Type      string `json:"type"`
	Actor     string `json:"actor,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Stats summarises content for the admin dashboard.
type Stats struct {
	Counts           map[Kind]int `json:"counts"`
	PublishedPosts   int          `json:"publishedPosts"`
	DraftPosts       int          `json:"draftPosts"`
	FeaturedProjects int          `json:"featuredProjects"`
	ActiveMentors    int          `json:"activeMentors"`
	Users            int          `json:"users"`
}
