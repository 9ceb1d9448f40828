package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/acsclub/clubnews/internal/domain"
	"github.com/acsclub/clubnews/internal/ports"
)

const fallbackSummary = "No summary available"

// AggregatorDeps wires the driven adapters into the aggregation use case.
type AggregatorDeps struct {
	Global     ports.SourceFetcher
	Regional   ports.SourceFetcher
	Store      ports.NewsStore
	Enricher   ports.MetaEnricher
	Logger     *slog.Logger
	Clock      func() time.Time
	WindowDays int
}

// Aggregator coordinates the weekly fetch-dedupe-persist run.
type Aggregator struct {
	global     ports.SourceFetcher
	regional   ports.SourceFetcher
	store      ports.NewsStore
	enricher   ports.MetaEnricher
	logger     *slog.Logger
	clock      func() time.Time
	windowDays int
}

// NewAggregator constructs the orchestration component.
func NewAggregator(deps AggregatorDeps) *Aggregator {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	windowDays := deps.WindowDays
	if windowDays <= 0 {
		windowDays = 7
	}
	return &Aggregator{
		global:     deps.Global,
		regional:   deps.Regional,
		store:      deps.Store,
		enricher:   deps.Enricher,
		logger:     deps.Logger,
		clock:      clock,
		windowDays: windowDays,
	}
}

// AggregateWeeklyNews fetches both sources concurrently, deduplicates
// against the store by (url, week, year), and persists what is new. The
// returned summary counts both fresh inserts and already-saved matches, so
// an idempotent re-run reports the same totals instead of erroring.
func (a *Aggregator) AggregateWeeklyNews(ctx context.Context) (domain.AggregationRun, error) {
	if !a.global.Configured() && !a.regional.Configured() {
		return domain.AggregationRun{}, domain.ErrNoProviders
	}

	// The week key is computed once and threaded through the entire run so a
	// run started near a week boundary stays internally consistent.
	week := domain.WeekOf(a.clock())
	a.info("starting weekly aggregation", "week", week.Number, "year", week.Year)

	var (
		wg                 sync.WaitGroup
		globalCandidates   []domain.Candidate
		regionalCandidates []domain.Candidate
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		globalCandidates = a.global.Fetch(ctx, a.windowDays)
	}()
	go func() {
		defer wg.Done()
		regionalCandidates = a.regional.Fetch(ctx, a.windowDays)
	}()
	wg.Wait()

	// Persistence stays sequential within the run: the existence check and
	// insert for one candidate must not race another candidate with the
	// same URL. Cross-run races are settled by the store's unique index.
	globalSaved := a.saveCandidates(ctx, globalCandidates, domain.CategoryGlobal, week)
	regionalSaved := a.saveCandidates(ctx, regionalCandidates, domain.CategoryRegional, week)

	run := domain.AggregationRun{
		RunID:         uuid.NewString(),
		Timestamp:     a.clock(),
		WeekNumber:    week.Number,
		Year:          week.Year,
		GlobalSaved:   globalSaved,
		RegionalSaved: regionalSaved,
		Total:         globalSaved + regionalSaved,
	}
	a.info("aggregation completed",
		"run_id", run.RunID,
		"global", run.GlobalSaved,
		"regional", run.RegionalSaved,
		"total", run.Total,
	)
	return run, nil
}

// LatestNews returns the current week's stored items per category.
func (a *Aggregator) LatestNews(ctx context.Context) (domain.WeeklyNews, error) {
	return a.store.LatestWeek(ctx, domain.WeekOf(a.clock()))
}

// CurrentWeek exposes the run partition key for callers such as the stats
// endpoint.
func (a *Aggregator) CurrentWeek() domain.WeekKey {
	return domain.WeekOf(a.clock())
}

func (a *Aggregator) saveCandidates(ctx context.Context, candidates []domain.Candidate, category domain.Category, week domain.WeekKey) int {
	saved := 0
	for _, candidate := range candidates {
		existing, err := a.store.FindByKey(ctx, candidate.URL, week)
		if err != nil {
			a.warn("dedup lookup failed", "url", candidate.URL, "error", err)
			continue
		}
		if existing != nil {
			a.debug("skipping duplicate", "title", candidate.Title)
			saved++
			continue
		}

		if a.enricher != nil {
			candidate = a.enricher.Enrich(ctx, candidate)
		}

		inserted, err := a.store.SaveItem(ctx, toNewsItem(candidate, category, week, a.clock()))
		if err != nil {
			// A single bad article never aborts the batch.
			a.warn("failed to save article", "title", candidate.Title, "error", err)
			continue
		}
		if !inserted {
			a.debug("lost insert race, item already stored", "url", candidate.URL)
		}
		saved++
	}
	return saved
}

func toNewsItem(c domain.Candidate, category domain.Category, week domain.WeekKey, now time.Time) domain.NewsItem {
	summary := strings.TrimSpace(c.Description)
	if summary == "" {
		summary = fallbackSummary
	}
	return domain.NewsItem{
		Title:       c.Title,
		Summary:     summary,
		SourceName:  c.SourceName,
		URL:         c.URL,
		Category:    category,
		ImageURL:    c.ImageURL,
		PublishedAt: c.PublishedAt,
		WeekNumber:  week.Number,
		Year:        week.Year,
		CreatedAt:   now,
	}
}

func (a *Aggregator) info(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Info(msg, args...)
	}
}

func (a *Aggregator) warn(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}

func (a *Aggregator) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
