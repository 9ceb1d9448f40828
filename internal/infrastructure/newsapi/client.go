package newsapi

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
	defaultBaseURL = "https://newsapi.org"
	defaultTimeout = 15 * time.Second

	pageSize      = 10
	maxCandidates = 5
)

// keywords is the fixed query set for global cybersecurity coverage.
var keywords = strings.Join([]string{
	"cybersecurity",
	"data breach",
	"infosec",
	"malware",
	"ransomware",
	"hacking",
	"zero-day",
	"vulnerability",
	"cyber attack",
	"phishing",
	"security patch",
	"cyber threat",
}, " OR ")

// Client fetches global candidates from the NewsAPI /v2/everything endpoint.
type Client struct {
	http   *resty.Client
	apiKey string
	logger *slog.Logger
	now    func() time.Time
}

var _ ports.SourceFetcher = (*Client)(nil)

// Option tweaks client construction, mainly for tests.
type Option func(*Client)

// WithBaseURL points the client at an alternate endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.http.SetBaseURL(url) }
}

// WithClock overrides the reference time for the publish window.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient builds a NewsAPI client with a bounded request timeout.
func NewClient(apiKey string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		http:   resty.New().SetBaseURL(defaultBaseURL).SetTimeout(defaultTimeout),
		apiKey: apiKey,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Category reports which digest section this fetcher feeds.
func (c *Client) Category() domain.Category { return domain.CategoryGlobal }

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Fetch returns at most five recent candidates. Any transport or parse
// failure is logged and degrades to an empty list; a missing source should
// thin the digest, not abort the run.
func (c *Client) Fetch(ctx context.Context, windowDays int) []domain.Candidate {
	candidates, err := c.Search(ctx, keywords, windowDays)
	if err != nil {
		c.warn("global fetch failed", "error", err)
		return nil
	}
	return candidates
}

// Search executes one /v2/everything query. Exposed so the regional fetcher
// can reuse this provider as its fallback path.
func (c *Client) Search(ctx context.Context, query string, windowDays int) ([]domain.Candidate, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("newsapi key is not configured")
	}
	if windowDays <= 0 {
		windowDays = 7
	}

	from := c.now().AddDate(0, 0, -windowDays)

	var out everythingResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":        query,
			"language": "en",
			"sortBy":   "publishedAt",
			"from":     from.UTC().Format(time.RFC3339),
			"pageSize": strconv.Itoa(pageSize),
			"apiKey":   c.apiKey,
		}).
		SetResult(&out).
		Get("/v2/everything")
	if err != nil {
		return nil, fmt.Errorf("newsapi request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("newsapi status %d: %s", resp.StatusCode(), snippet(resp.Body()))
	}
	if out.Status != "ok" {
		return nil, fmt.Errorf("newsapi status %q: %s", out.Status, out.Message)
	}

	return toCandidates(out.Articles), nil
}

type everythingResponse struct {
	Status   string    `json:"status"`
	Message  string    `json:"message"`
	Articles []article `json:"articles"`
}

type article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}

func toCandidates(articles []article) []domain.Candidate {
	candidates := make([]domain.Candidate, 0, len(articles))
	for _, art := range articles {
		if strings.TrimSpace(art.URL) == "" {
			continue
		}

		publishedAt, _ := time.Parse(time.RFC3339, art.PublishedAt)
		candidates = append(candidates, domain.Candidate{
			Title:       strings.TrimSpace(art.Title),
			Description: description(art),
			SourceName:  sourceName(art.Source.Name),
			URL:         art.URL,
			ImageURL:    art.URLToImage,
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

func description(art article) string {
	if desc := strings.TrimSpace(art.Description); desc != "" {
		return desc
	}
	return truncate(strings.TrimSpace(art.Content), 200)
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

func sourceName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Unknown"
	}
	return name
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
