package listing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/Romaric250/ticsummit26-sub001/site-api/domain"
)

const maxResponseSize = 4 << 20

// FetchError is the single failure kind of a page fetch: transport error,
// non-2xx status, undecodable body or a success:false envelope.
type FetchError struct {
	Page   int
	Status int
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch page %d", e.Page)
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

type projectsEnvelope struct {
	Success    bool             `json:"success"`
	Data       []domain.Project `json:"data"`
	Error      string           `json:"error"`
	Pagination *struct {
		Page       int  `json:"page"`
		Limit      int  `json:"limit"`
		HasMore    bool `json:"hasMore"`
		TotalCount int  `json:"totalCount"`
	} `json:"pagination"`
}

// Client fetches project pages from the site API.
type Client struct {
	BaseURL string
	Bearer  string
	HTTP    *http.Client
}

// NewClient creates a Client for the API rooted at baseURL.
func NewClient(baseURL, bearer string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), Bearer: bearer, HTTP: &http.Client{}}
}

// ProjectsURL builds the listing URL for req. Search and category are left
// out when they do not filter.
func (c *Client) ProjectsURL(req PageRequest) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(req.Page))
	q.Set("limit", strconv.Itoa(req.Limit))
	if s := strings.TrimSpace(req.Search); s != "" {
		q.Set("search", s)
	}
	if req.Category != "" && !strings.EqualFold(req.Category, domain.CategoryAll) {
		q.Set("category", req.Category)
	}
	return c.BaseURL + "/api/projects?" + q.Encode()
}

// FetchPage implements Fetcher.
func (c *Client) FetchPage(ctx context.Context, req PageRequest) (Page, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ProjectsURL(req), nil)
	if err != nil {
		return Page{}, &FetchError{Page: req.Page, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.Bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.Bearer)
	}
	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return Page{}, &FetchError{Page: req.Page, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Page{}, &FetchError{Page: req.Page, Status: resp.StatusCode, Err: err}
	}
	var env projectsEnvelope
	decodeErr := sonic.Unmarshal(body, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Page{}, &FetchError{Page: req.Page, Status: resp.StatusCode, Reason: env.Error}
	}
	if decodeErr != nil {
		return Page{}, &FetchError{Page: req.Page, Status: resp.StatusCode, Err: decodeErr}
	}
	if !env.Success {
		return Page{}, &FetchError{Page: req.Page, Status: resp.StatusCode, Reason: env.Error}
	}
	if env.Pagination == nil {
		return Page{}, &FetchError{Page: req.Page, Status: resp.StatusCode, Reason: "missing pagination"}
	}
	return Page{
		Items:      env.Data,
		HasMore:    env.Pagination.HasMore,
		TotalCount: env.Pagination.TotalCount,
	}, nil
}
