// Package apiclient talks to the PowerMark HTTP API on behalf of capture clients.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/sifan077/PowerMark/internal/app/model"
	"github.com/tidwall/gjson"
)

const defaultTimeout = 15 * time.Second

var (
	// ErrUnauthorized is returned for 401 responses.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTransport wraps failures to reach the API at all.
	ErrTransport = errors.New("api unreachable")
)

// APIError is a non-2xx answer carrying the server's message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// CreateBookmarkRequest mirrors POST /bookmarks. Nil fields are omitted.
type CreateBookmarkRequest struct {
	Title        string  `json:"title"`
	URL          string  `json:"url"`
	Description  *string `json:"description,omitempty"`
	OGImageURL   *string `json:"og_image_url,omitempty"`
	FaviconURL   *string `json:"favicon_url,omitempty"`
	MediaType    *string `json:"media_type,omitempty"`
	MediaEmbedID *string `json:"media_embed_id,omitempty"`
}

// ListParams are the optional query parameters of GET /bookmarks.
type ListParams struct {
	CategoryID string
	SortBy     string
	SortOrder  string
}

// Client is a small JSON client for the API base URL (e.g. http://localhost:8080/api).
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New builds a Client. token is sent as a bearer session when non-empty.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = timeout

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

// FetchMetadata asks the API to resolve targetURL.
func (c *Client) FetchMetadata(ctx context.Context, targetURL string) (model.ResolvedMetadata, error) {
	var md model.ResolvedMetadata
	if err := c.do(ctx, http.MethodPost, "/fetch-metadata", map[string]string{"url": targetURL}, &md); err != nil {
		return model.ResolvedMetadata{}, err
	}
	if md.MediaType == "" {
		md.MediaType = model.MediaDefault
	}
	return md, nil
}

// ListBookmarks lists the caller's bookmarks.
func (c *Client) ListBookmarks(ctx context.Context, params ListParams) ([]model.Bookmark, error) {
	q := url.Values{}
	if params.CategoryID != "" {
		q.Set("category", params.CategoryID)
	}
	if params.SortBy != "" {
		q.Set("sort_by", params.SortBy)
	}
	if params.SortOrder != "" {
		q.Set("sort_order", params.SortOrder)
	}
	path := "/bookmarks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var list []model.Bookmark
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CreateBookmark stores a new bookmark.
func (c *Client) CreateBookmark(ctx context.Context, req CreateBookmarkRequest) (*model.Bookmark, error) {
	var b model.Bookmark
	if err := c.do(ctx, http.MethodPost, "/bookmarks", req, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(raw, "error").String()
		if msg == "" {
			msg = fmt.Sprintf("request failed with status %d", resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
