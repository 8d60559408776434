package api

const maxBodySize = 64 * 1024 // 64 KiB

// envelope is the body of every JSON response.
type envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Details    []string    `json:"details,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
}

type pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	HasMore    bool `json:"hasMore"`
	TotalCount int  `json:"totalCount"`
}

// likeResponse is returned by POST/DELETE /api/:kind/:id/like.
type likeResponse struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

type sessionResponse struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}
