package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/acsclub/clubnews/internal/digest"
	"github.com/acsclub/clubnews/internal/domain"
	"github.com/acsclub/clubnews/internal/usecase"
)

type fakeFetcher struct {
	category   domain.Category
	candidates []domain.Candidate
}

func (f *fakeFetcher) Category() domain.Category                     { return f.category }
func (f *fakeFetcher) Configured() bool                              { return true }
func (f *fakeFetcher) Fetch(context.Context, int) []domain.Candidate { return f.candidates }

type fakeStore struct {
	items   map[string]domain.NewsItem
	weekly  domain.WeeklyNews
	pingErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[string]domain.NewsItem{}}
}

func (s *fakeStore) SaveItem(_ context.Context, item domain.NewsItem) (bool, error) {
	if _, ok := s.items[item.URL]; ok {
		return false, nil
	}
	s.items[item.URL] = item
	return true, nil
}

func (s *fakeStore) FindByKey(_ context.Context, url string, _ domain.WeekKey) (*domain.NewsItem, error) {
	if item, ok := s.items[url]; ok {
		return &item, nil
	}
	return nil, nil
}

func (s *fakeStore) LatestWeek(_ context.Context, week domain.WeekKey) (domain.WeeklyNews, error) {
	news := s.weekly
	news.WeekNumber = week.Number
	news.Year = week.Year
	return news, nil
}

func (s *fakeStore) History(context.Context, int, int, domain.Category) ([]domain.NewsItem, int, error) {
	return []domain.NewsItem{}, len(s.items), nil
}

func (s *fakeStore) Stats(_ context.Context, week domain.WeekKey) (domain.NewsStats, error) {
	return domain.NewsStats{Total: len(s.items), WeekNumber: week.Number, Year: week.Year}, nil
}

func (s *fakeStore) Ping(context.Context) error { return s.pingErr }

type fakeDirectory struct {
	recipients []domain.Recipient
}

func (f *fakeDirectory) VerifiedRecipients(context.Context) ([]domain.Recipient, error) {
	return f.recipients, nil
}

type fakeSender struct{ sent []string }

func (f *fakeSender) Mode() domain.DeliveryMode { return domain.DeliverySMTP }
func (f *fakeSender) Send(_ context.Context, to, _, _ string) (domain.DeliveryMode, error) {
	f.sent = append(f.sent, to)
	return domain.DeliverySMTP, nil
}

const testToken = "secret-token"

func newTestServer(store *fakeStore, recipients []domain.Recipient) (*Server, *fakeSender) {
	aggregator := usecase.NewAggregator(usecase.AggregatorDeps{
		Global: &fakeFetcher{category: domain.CategoryGlobal, candidates: []domain.Candidate{
			{Title: "Breach A", URL: "http://x/1", PublishedAt: time.Now()},
		}},
		Regional: &fakeFetcher{category: domain.CategoryRegional},
		Store:    store,
	})

	sender := &fakeSender{}
	dispatcher := usecase.NewDispatcher(usecase.DispatcherDeps{
		Directory: &fakeDirectory{recipients: recipients},
		Sender:    sender,
		Composer:  digest.NewComposer("Test Club", "http://club.test"),
		Pause:     func(context.Context, time.Duration) {},
	})

	server := NewServer(ServerDeps{
		Aggregator: aggregator,
		Dispatcher: dispatcher,
		Store:      store,
		MailMode:   string(domain.DeliverySMTP),
		AdminToken: testToken,
		AdminEmail: "admin@club.test",
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return server, sender
}

func do(t *testing.T, server *Server, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	return w
}

func TestLatestNewsIsPublic(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.weekly = domain.WeeklyNews{
		Global: []domain.NewsItem{{Title: "Breach A", URL: "http://x/1"}},
	}
	server, _ := newTestServer(store, nil)

	w := do(t, server, http.MethodGet, "/news", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		Success bool              `json:"success"`
		Data    domain.WeeklyNews `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Success || len(body.Data.Global) != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestHistoryRejectsUnknownCategory(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(newFakeStore(), nil)

	if w := do(t, server, http.MethodGet, "/news/history?category=bogus", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if w := do(t, server, http.MethodGet, "/news/history?category=Global", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(newFakeStore(), nil)

	if w := do(t, server, http.MethodPost, "/news/aggregate", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := do(t, server, http.MethodPost, "/news/aggregate", "wrong"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}
	if w := do(t, server, http.MethodGet, "/news/stats", testToken); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
}

func TestAggregateEndpointRunsPipeline(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	server, _ := newTestServer(store, nil)

	w := do(t, server, http.MethodPost, "/news/aggregate", testToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Success bool                  `json:"success"`
		Data    domain.AggregationRun `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Data.GlobalSaved != 1 || body.Data.Total != 1 {
		t.Fatalf("unexpected run summary: %+v", body.Data)
	}
	if len(store.items) != 1 {
		t.Fatalf("expected 1 persisted item, got %d", len(store.items))
	}
}

func TestSendDigestRejectsEmptyWeek(t *testing.T) {
	t.Parallel()

	server, sender := newTestServer(newFakeStore(), []domain.Recipient{{Email: "m@club.test"}})

	w := do(t, server, http.MethodPost, "/news/send-digest", testToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty week, got %d", w.Code)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("no sends expected, got %d", len(sender.sent))
	}
}

func TestSendDigestDispatchesStoredNews(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.weekly = domain.WeeklyNews{
		Global: []domain.NewsItem{{Title: "Breach A", URL: "http://x/1"}},
	}
	server, sender := newTestServer(store, []domain.Recipient{{Email: "m@club.test"}})

	w := do(t, server, http.MethodPost, "/news/send-digest", testToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(sender.sent) != 1 || sender.sent[0] != "m@club.test" {
		t.Fatalf("unexpected sends: %v", sender.sent)
	}
}

func TestTestEmailFallsBackToAdminAddress(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.weekly = domain.WeeklyNews{
		Global: []domain.NewsItem{{Title: "Breach A", URL: "http://x/1"}},
	}
	server, sender := newTestServer(store, nil)

	w := do(t, server, http.MethodPost, "/news/test-email", testToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(sender.sent) != 1 || sender.sent[0] != "admin@club.test" {
		t.Fatalf("unexpected sends: %v", sender.sent)
	}
}

func TestHealthReportsDatabaseFailure(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.pingErr = errors.New("connection refused")
	server, _ := newTestServer(store, nil)

	if w := do(t, server, http.MethodGet, "/healthz", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}

	store.pingErr = nil
	if w := do(t, server, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
