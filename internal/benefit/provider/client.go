// Package provider is the HTTP client for the upstream benefit-content
// service. Reads are cached through redis when a cache is wired; cache
// failures degrade to upstream reads, never to request failures.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	benefit "benefit-gateway/internal/benefit/models"
	platformredis "benefit-gateway/internal/platform/redis"
	dErrors "benefit-gateway/pkg/domain-errors"
)

// Client talks to the content provider's REST API.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	logger   *slog.Logger
	cache    *platformredis.Client
	cacheTTL time.Duration
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithCache enables read-through caching of single-benefit lookups.
func WithCache(cache *platformredis.Client, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		token:    token,
		http:     &http.Client{Timeout: 15 * time.Second},
		logger:   slog.Default(),
		cacheTTL: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchQuery narrows a console benefit search. Zero values mean no
// constraint; paging defaults are applied upstream.
type SearchQuery struct {
	Name      string `json:"name,omitempty"`
	ValidTill string `json:"validTill,omitempty"`
	Status    string `json:"status,omitempty"`
	Locale    string `json:"locale,omitempty"`
	Page      int    `json:"page,omitempty"`
	PageSize  int    `json:"pageSize,omitempty"`
	SortBy    string `json:"sortBy,omitempty"`
	SortOrder string `json:"sortOrder,omitempty"`

	// CreatedBy restricts results to benefits authored by the given
	// upstream accounts. The console fills it with the caller's
	// provider peer set so scoping happens upstream, not just here.
	CreatedBy []string `json:"createdBy,omitempty"`
}

// SearchResult is one page of benefits plus the total match count.
type SearchResult struct {
	Benefits []benefit.BenefitRecord `json:"benefits"`
	Total    int                     `json:"total"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"pageSize"`
}

type listEnvelope struct {
	Data []benefit.BenefitRecord `json:"data"`
	Meta struct {
		Pagination struct {
			Page     int `json:"page"`
			PageSize int `json:"pageSize"`
			Total    int `json:"total"`
		} `json:"pagination"`
	} `json:"meta"`
}

type itemEnvelope struct {
	Data benefit.BenefitRecord `json:"data"`
}

// GetByID fetches one benefit. authToken, when non-empty, is forwarded
// instead of the service token so upstream applies the caller's own
// permissions; those responses bypass the cache.
func (c *Client) GetByID(ctx context.Context, documentID, authToken string) (*benefit.BenefitRecord, error) {
	if documentID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "benefit id is required")
	}

	cacheable := authToken == "" && c.cache != nil
	cacheKey := "benefit:doc:" + documentID
	if cacheable {
		if b := c.cacheGet(ctx, cacheKey); b != nil {
			return b, nil
		}
	}

	var env itemEnvelope
	if err := c.do(ctx, http.MethodGet, "/benefits/"+url.PathEscape(documentID), nil, authToken, &env); err != nil {
		return nil, err
	}

	if cacheable {
		c.cacheSet(ctx, cacheKey, &env.Data)
	}
	return &env.Data, nil
}

// List fetches the full published catalog for network search responses.
func (c *Client) List(ctx context.Context) ([]benefit.BenefitRecord, error) {
	var env listEnvelope
	if err := c.do(ctx, http.MethodGet, "/benefits", nil, "", &env); err != nil {
		return nil, err
	}
	published := make([]benefit.BenefitRecord, 0, len(env.Data))
	for _, b := range env.Data {
		if b.Published() {
			published = append(published, b)
		}
	}
	return published, nil
}

// Search runs a paged console query with the caller's token.
func (c *Client) Search(ctx context.Context, query SearchQuery, authToken string) (*SearchResult, error) {
	var env listEnvelope
	if err := c.do(ctx, http.MethodPost, "/benefits/search", query, authToken, &env); err != nil {
		return nil, err
	}
	return &SearchResult{
		Benefits: env.Data,
		Total:    env.Meta.Pagination.Total,
		Page:     env.Meta.Pagination.Page,
		PageSize: env.Meta.Pagination.PageSize,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, authToken string, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "encode provider request")
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "build provider request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := c.token
	if authToken != "" {
		token = authToken
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "content provider unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return dErrors.New(dErrors.CodeNotFound, "benefit not found")
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return dErrors.New(dErrors.CodeForbidden, "content provider rejected credentials")
	case resp.StatusCode >= 400:
		return dErrors.New(dErrors.CodeUnavailable,
			fmt.Sprintf("content provider returned status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "decode provider response")
	}
	return nil
}

func (c *Client) cacheGet(ctx context.Context, key string) *benefit.BenefitRecord {
	raw, err := c.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var b benefit.BenefitRecord
	if err := json.Unmarshal(raw, &b); err != nil {
		c.logger.Warn("drop corrupt cache entry", "key", key, "error", err)
		c.cache.Del(ctx, key)
		return nil
	}
	return &b
}

func (c *Client) cacheSet(ctx context.Context, key string, b *benefit.BenefitRecord) {
	raw, err := json.Marshal(b)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.cacheTTL).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}
