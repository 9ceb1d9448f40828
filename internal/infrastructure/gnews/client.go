package gnews

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"github.com/acsclub/clubnews/internal/domain"
	"github.com/acsclub/clubnews/internal/ports"
)

const (
	defaultBaseURL = "https://gnews.io"
	defaultTimeout = 15 * time.Second

	pageSize      = 10
	maxCandidates = 5

	regionalQuery = `cybersecurity OR "data breach" OR "cyber attack"`
)

// Fallback is a secondary provider consulted once when the primary GNews
// call fails. The NewsAPI client satisfies it.
type Fallback interface {
	Search(ctx context.Context, query string, windowDays int) ([]domain.Candidate, error)
}

// Client fetches regional candidates from the GNews search endpoint.
type Client struct {
	http       *resty.Client
	apiKey     string
	country    string
	regionTerm string
	fallback   Fallback
	logger     *slog.Logger
}

var _ ports.SourceFetcher = (*Client)(nil)

// Option tweaks client construction, mainly for tests.
type Option func(*Client)

// WithBaseURL points the client at an alternate endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.http.SetBaseURL(url) }
}

// NewClient builds a GNews client scoped to one country. regionTerm is the
// keyword appended to the fallback query (e.g. "India" for country "in").
func NewClient(apiKey, country, regionTerm string, fallback Fallback, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		http:       resty.New().SetBaseURL(defaultBaseURL).SetTimeout(defaultTimeout),
		apiKey:     apiKey,
		country:    country,
		regionTerm: regionTerm,
		fallback:   fallback,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Category reports which digest section this fetcher feeds.
func (c *Client) Category() domain.Category { return domain.CategoryRegional }

// Configured reports whether this fetcher can run at all, either against its
// own provider or through the fallback.
func (c *Client) Configured() bool { return c.apiKey != "" || c.fallback != nil }

// Fetch returns at most five recent regional candidates. A primary failure
// is retried once via the fallback provider with the region keyword added;
// if that also fails the fetcher degrades to an empty list.
func (c *Client) Fetch(ctx context.Context, windowDays int) []domain.Candidate {
	candidates, err := c.search(ctx)
	if err == nil {
		return candidates
	}
	c.warn("regional fetch failed, trying fallback", "error", err)

	if c.fallback == nil {
		return nil
	}

	query := regionalQuery
	if c.regionTerm != "" {
		query = fmt.Sprintf("(%s) AND %s", regionalQuery, c.regionTerm)
	}
	candidates, err = c.fallback.Search(ctx, query, windowDays)
	if err != nil {
		c.warn("regional fallback failed", "error", err)
		return nil
	}
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates
}

func (c *Client) search(ctx context.Context) ([]domain.Candidate, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("gnews key is not configured")
	}

	var out searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":       regionalQuery,
			"lang":    "en",
			"country": c.country,
			"max":     strconv.Itoa(pageSize),
			"apikey":  c.apiKey,
		}).
		SetResult(&out).
		Get("/api/v4/search")
	if err != nil {
		return nil, fmt.Errorf("gnews request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("gnews status %d: %s", resp.StatusCode(), snippet(resp.Body()))
	}

	return toCandidates(out.Articles), nil
}

type searchResponse struct {
	Articles []article `json:"articles"`
}

type article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
}

func toCandidates(articles []article) []domain.Candidate {
	candidates := make([]domain.Candidate, 0, len(articles))
	for _, art := range articles {
		if strings.TrimSpace(art.URL) == "" {
			continue
		}

		publishedAt, _ := time.Parse(time.RFC3339, art.PublishedAt)

		desc := strings.TrimSpace(art.Description)
		if desc == "" {
			desc = truncate(strings.TrimSpace(art.Content), 200)
		}

		name := strings.TrimSpace(art.Source.Name)
		if name == "" {
			name = "Unknown"
		}

		candidates = append(candidates, domain.Candidate{
			Title:       strings.TrimSpace(art.Title),
			Description: desc,
			SourceName:  name,
			URL:         art.URL,
			ImageURL:    art.Image,
			PublishedAt: publishedAt,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].PublishedAt.After(candidates[j].PublishedAt)
	})
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates
}

// truncate cuts s to at most n bytes without splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}

func (c *Client) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
