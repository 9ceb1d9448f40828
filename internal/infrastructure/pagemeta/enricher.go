package pagemeta

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/acsclub/clubnews/internal/domain"
	"github.com/acsclub/clubnews/internal/ports"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20 // 1 MiB
)

// Enricher backfills missing candidate metadata (image, description) from the
// article page's OpenGraph tags.
type Enricher struct {
	http   *resty.Client
	logger *slog.Logger
}

var _ ports.MetaEnricher = (*Enricher)(nil)

// NewEnricher builds an enricher with a bounded request timeout.
func NewEnricher(logger *slog.Logger) *Enricher {
	return &Enricher{
		http:   resty.New().SetTimeout(defaultTimeout),
		logger: logger,
	}
}

// Enrich fetches the candidate page and fills empty image/description fields.
// Any failure returns the candidate unchanged.
func (e *Enricher) Enrich(ctx context.Context, c domain.Candidate) domain.Candidate {
	if c.ImageURL != "" && c.Description != "" {
		return c
	}

	meta, err := e.fetchMeta(ctx, c.URL)
	if err != nil {
		if e.logger != nil {
			e.logger.Debug("page meta fetch failed", "url", c.URL, "error", err)
		}
		return c
	}

	if c.ImageURL == "" {
		c.ImageURL = meta.image
	}
	if c.Description == "" {
		c.Description = meta.description
	}
	return c
}

type pageMeta struct {
	image       string
	description string
}

func (e *Enricher) fetchMeta(ctx context.Context, url string) (pageMeta, error) {
	resp, err := e.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return pageMeta{}, fmt.Errorf("fetch page: %w", err)
	}
	if resp.IsError() {
		return pageMeta{}, fmt.Errorf("page status %d", resp.StatusCode())
	}

	body := resp.Body()
	if len(body) > maxBodyBytes {
		body = body[:maxBodyBytes]
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	meta := pageMeta{
		image: extract(`meta[property="og:image"]`),
		description: firstNonEmpty(
			extract(`meta[property="og:description"]`),
			extract(`meta[name="description"]`),
		),
	}
	return meta, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
