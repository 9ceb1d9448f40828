package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/acsclub/clubnews/internal/domain"
	"github.com/acsclub/clubnews/internal/ports"
)

const latestPerCategory = 5

// NewsStore persists news items in Postgres. The compound unique index on
// (url, week_number, year) is the authority that prevents duplicates, so the
// store stays correct under concurrent or repeated aggregation runs.
type NewsStore struct {
	db  *sqlx.DB
	sql sq.StatementBuilderType
}

var _ ports.NewsStore = (*NewsStore)(nil)

// NewNewsStore wires an sqlx connection.
func NewNewsStore(db *sqlx.DB) *NewsStore {
	return &NewsStore{
		db:  db,
		sql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// SaveItem inserts one item; a conflict on (url, week_number, year) is a
// no-op and reported via inserted=false.
func (s *NewsStore) SaveItem(ctx context.Context, item domain.NewsItem) (bool, error) {
	query, args, err := s.sql.
		Insert("news_items").
		Columns("title", "summary", "source_name", "url", "category",
			"image_url", "published_at", "week_number", "year").
		Values(item.Title, item.Summary, item.SourceName, item.URL, item.Category,
			item.ImageURL, item.PublishedAt, item.WeekNumber, item.Year).
		Suffix("ON CONFLICT (url, week_number, year) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert news item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// FindByKey returns the stored item for the dedup key, or nil when absent.
func (s *NewsStore) FindByKey(ctx context.Context, url string, week domain.WeekKey) (*domain.NewsItem, error) {
	query, args, err := s.sql.
		Select("*").
		From("news_items").
		Where(sq.Eq{"url": url, "week_number": week.Number, "year": week.Year}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lookup: %w", err)
	}

	var item domain.NewsItem
	if err := s.db.GetContext(ctx, &item, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup news item: %w", err)
	}
	return &item, nil
}

// LatestWeek loads the current week's items, split per category and capped at
// five per section, most recent first.
func (s *NewsStore) LatestWeek(ctx context.Context, week domain.WeekKey) (domain.WeeklyNews, error) {
	news := domain.WeeklyNews{
		Global:     []domain.NewsItem{},
		Regional:   []domain.NewsItem{},
		WeekNumber: week.Number,
		Year:       week.Year,
	}

	for _, category := range []domain.Category{domain.CategoryGlobal, domain.CategoryRegional} {
		items, err := s.weekCategory(ctx, week, category)
		if err != nil {
			return domain.WeeklyNews{}, err
		}
		if category == domain.CategoryGlobal {
			news.Global = items
		} else {
			news.Regional = items
		}
	}
	return news, nil
}

func (s *NewsStore) weekCategory(ctx context.Context, week domain.WeekKey, category domain.Category) ([]domain.NewsItem, error) {
	query, args, err := s.sql.
		Select("*").
		From("news_items").
		Where(sq.Eq{"week_number": week.Number, "year": week.Year, "category": category}).
		OrderBy("published_at DESC").
		Limit(latestPerCategory).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build week query: %w", err)
	}

	items := []domain.NewsItem{}
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("load %s week items: %w", category, err)
	}
	return items, nil
}

// History returns one page of stored items, newest first, with the total
// count for pagination. An empty category matches everything.
func (s *NewsStore) History(ctx context.Context, page, limit int, category domain.Category) ([]domain.NewsItem, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	listQ := s.sql.
		Select("*").
		From("news_items").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit))
	countQ := s.sql.Select("COUNT(*)").From("news_items")

	if category != "" {
		listQ = listQ.Where(sq.Eq{"category": category})
		countQ = countQ.Where(sq.Eq{"category": category})
	}

	query, args, err := listQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build history query: %w", err)
	}

	items := []domain.NewsItem{}
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("load history: %w", err)
	}

	query, args, err = countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build history count: %w", err)
	}

	var total int
	if err := s.db.GetContext(ctx, &total, query, args...); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	return items, total, nil
}

// Stats reports store-wide and current-week counters.
func (s *NewsStore) Stats(ctx context.Context, week domain.WeekKey) (domain.NewsStats, error) {
	stats := domain.NewsStats{WeekNumber: week.Number, Year: week.Year}

	counts := []struct {
		dest *int
		cond any
	}{
		{&stats.Total, nil},
		{&stats.ThisWeek, sq.Eq{"week_number": week.Number, "year": week.Year}},
		{&stats.Global, sq.Eq{"category": domain.CategoryGlobal}},
		{&stats.Regional, sq.Eq{"category": domain.CategoryRegional}},
	}

	for _, c := range counts {
		q := s.sql.Select("COUNT(*)").From("news_items")
		if c.cond != nil {
			q = q.Where(c.cond)
		}

		query, args, err := q.ToSql()
		if err != nil {
			return domain.NewsStats{}, fmt.Errorf("build stats query: %w", err)
		}
		if err := s.db.GetContext(ctx, c.dest, query, args...); err != nil {
			return domain.NewsStats{}, fmt.Errorf("count news items: %w", err)
		}
	}

	return stats, nil
}

// Ping reports store connectivity for the health check.
func (s *NewsStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
