// Package integration drives a running site-api over HTTP. The scenarios
// only build with the integration tag.
package integration

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
)

// Envelope is the response wrapper used by every site-api JSON endpoint.
type Envelope[T any] struct {
	Success    bool     `json:"success"`
	Data       T        `json:"data"`
	Error      string   `json:"error"`
	Details    []string `json:"details"`
	Pagination *struct {
		Page       int  `json:"page"`
		Limit      int  `json:"limit"`
		HasMore    bool `json:"hasMore"`
		TotalCount int  `json:"totalCount"`
	} `json:"pagination"`
}

// Client wraps http.Client with helpers for JSON requests.
type Client struct {
	BaseURL string
	Bearer  string
	HTTP    *http.Client
}

// New creates a new Client.
func New(baseURL, bearer string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), Bearer: bearer, HTTP: &http.Client{}}
}

// WithBearer returns a copy of c that authenticates as bearer.
func (c *Client) WithBearer(bearer string) *Client {
	cp := *c
	cp.Bearer = bearer
	return &cp
}

// Do sends body (if any) as JSON and decodes the response into out (if
// any). The response is returned for status checks with its body consumed.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.Bearer)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return resp, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, err
	}
	if out != nil && len(data) > 0 {
		if err := sonic.Unmarshal(data, out); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

// GetJSON issues a GET request and decodes the JSON response.
func (c *Client) GetJSON(ctx context.Context, path string, out any) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// PostJSON issues a POST request with a JSON body and decodes the response.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, out)
}
