package domain

import "time"

// Category partitions news items by the source that produced them.
type Category string

const (
	CategoryGlobal   Category = "Global"
	CategoryRegional Category = "Regional"
)

// Candidate is a raw article returned by a source fetcher, not yet
// deduplicated or persisted.
type Candidate struct {
	Title       string
	Description string
	SourceName  string
	URL         string
	ImageURL    string
	PublishedAt time.Time
}

// NewsItem is the persisted, deduplicated form of a candidate. The tuple
// (URL, WeekNumber, Year) is unique in storage.
type NewsItem struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Summary     string    `db:"summary" json:"summary"`
	SourceName  string    `db:"source_name" json:"source"`
	URL         string    `db:"url" json:"url"`
	Category    Category  `db:"category" json:"category"`
	ImageURL    string    `db:"image_url" json:"imageUrl,omitempty"`
	PublishedAt time.Time `db:"published_at" json:"publishedAt"`
	WeekNumber  int       `db:"week_number" json:"weekNumber"`
	Year        int       `db:"year" json:"year"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// AggregationRun summarizes a single orchestrator invocation.
type AggregationRun struct {
	RunID         string    `json:"runId"`
	Timestamp     time.Time `json:"timestamp"`
	WeekNumber    int       `json:"weekNumber"`
	Year          int       `json:"year"`
	GlobalSaved   int       `json:"globalNews"`
	RegionalSaved int       `json:"regionalNews"`
	Total         int       `json:"total"`
}

// WeeklyNews groups the current week's stored items per category.
type WeeklyNews struct {
	Global     []NewsItem `json:"global"`
	Regional   []NewsItem `json:"regional"`
	WeekNumber int        `json:"weekNumber"`
	Year       int        `json:"year"`
}

// NewsStats reports store-wide counters for the admin dashboard.
type NewsStats struct {
	Total      int `json:"total"`
	ThisWeek   int `json:"thisWeek"`
	Global     int `json:"global"`
	Regional   int `json:"regional"`
	WeekNumber int `json:"weekNumber"`
	Year       int `json:"year"`
}

// Recipient is a verified member eligible for the weekly digest. It is owned
// by the account subsystem; the pipeline only reads it.
type Recipient struct {
	Email string `db:"email" json:"email"`
	Name  string `db:"name" json:"name"`
}

// DeliveryMode distinguishes real SMTP delivery from the console fallback
// used when mail transport is unconfigured.
type DeliveryMode string

const (
	DeliverySMTP    DeliveryMode = "smtp"
	DeliveryConsole DeliveryMode = "console"
)

// RecipientResult records the outcome of a single digest send.
type RecipientResult struct {
	Email   string       `json:"email"`
	Success bool         `json:"success"`
	Mode    DeliveryMode `json:"mode"`
	Error   string       `json:"error,omitempty"`
}

// DigestRunSummary aggregates per-recipient outcomes of one dispatch run.
type DigestRunSummary struct {
	TotalRecipients int               `json:"totalRecipients"`
	SentCount       int               `json:"sent"`
	FailedCount     int               `json:"failed"`
	Mode            DeliveryMode      `json:"mode"`
	Results         []RecipientResult `json:"results"`
	Message         string            `json:"message,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
}
