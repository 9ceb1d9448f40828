package ports

import (
	"context"

	"github.com/acsclub/clubnews/internal/domain"
)

// SourceFetcher pulls candidate articles from one external news provider for
// a rolling window of days. Implementations absorb their own transport and
// parse failures and return an empty slice instead of an error; only the
// misconfigured (no credential) state is reported.
type SourceFetcher interface {
	Category() domain.Category
	Configured() bool
	Fetch(ctx context.Context, windowDays int) []domain.Candidate
}

// NewsStore persists deduplicated news items. Uniqueness of
// (url, weekNumber, year) is enforced by the store itself so concurrent or
// repeated runs cannot duplicate an item.
type NewsStore interface {
	SaveItem(ctx context.Context, item domain.NewsItem) (inserted bool, err error)
	FindByKey(ctx context.Context, url string, week domain.WeekKey) (*domain.NewsItem, error)
	LatestWeek(ctx context.Context, week domain.WeekKey) (domain.WeeklyNews, error)
	History(ctx context.Context, page, limit int, category domain.Category) ([]domain.NewsItem, int, error)
	Stats(ctx context.Context, week domain.WeekKey) (domain.NewsStats, error)
	Ping(ctx context.Context) error
}

// RecipientDirectory reads the verified-member list owned by the account
// subsystem.
type RecipientDirectory interface {
	VerifiedRecipients(ctx context.Context) ([]domain.Recipient, error)
}

// DigestSender delivers one composed digest document to one recipient.
type DigestSender interface {
	Send(ctx context.Context, to string, subject string, htmlBody string) (domain.DeliveryMode, error)
	Mode() domain.DeliveryMode
}

// MetaEnricher fills missing candidate metadata (image, description) by
// inspecting the article page. Failures leave the candidate unchanged.
type MetaEnricher interface {
	Enrich(ctx context.Context, c domain.Candidate) domain.Candidate
}

// Scheduler drives the recurring aggregation and digest jobs.
type Scheduler interface {
	Start() error
	Stop()
	Status() []JobStatus
}

// JobStatus is the operational view of one registered job.
type JobStatus struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
	Active   bool   `json:"active"`
}
