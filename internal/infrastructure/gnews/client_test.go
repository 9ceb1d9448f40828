package gnews

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/acsclub/clubnews/internal/domain"
)

type fakeFallback struct {
	query      string
	candidates []domain.Candidate
	err        error
	calls      int
}

func (f *fakeFallback) Search(_ context.Context, query string, _ int) ([]domain.Candidate, error) {
	f.calls++
	f.query = query
	return f.candidates, f.err
}

func TestFetchPrimarySuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("country"); got != "in" {
			t.Errorf("expected country=in, got %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"articles":[`)
		for i := 0; i < 7; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"title":"Regional %d","description":"d","url":"http://r/%d","publishedAt":"2025-01-%02dT10:00:00Z","source":{"name":"RegSrc"}}`,
				i, i, 10+i)
		}
		fmt.Fprint(w, `]}`)
	}))
	defer server.Close()

	fallback := &fakeFallback{}
	client := NewClient("key", "in", "India", fallback, nil, WithBaseURL(server.URL))

	candidates := client.Fetch(context.Background(), 7)
	if len(candidates) != 5 {
		t.Fatalf("expected 5 candidates, got %d", len(candidates))
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback must not be consulted on success, got %d calls", fallback.calls)
	}
	if candidates[0].Title != "Regional 6" {
		t.Fatalf("expected newest first, got %s", candidates[0].Title)
	}
}

func TestFetchFallsBackOncePrimaryFails(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer server.Close()

	fallback := &fakeFallback{candidates: []domain.Candidate{
		{Title: "From Fallback", URL: "http://f/1"},
	}}
	client := NewClient("key", "in", "India", fallback, nil, WithBaseURL(server.URL))

	candidates := client.Fetch(context.Background(), 7)
	if fallback.calls != 1 {
		t.Fatalf("expected exactly one fallback call, got %d", fallback.calls)
	}
	if !strings.Contains(fallback.query, "India") {
		t.Fatalf("fallback query must carry the region keyword, got %q", fallback.query)
	}
	if len(candidates) != 1 || candidates[0].Title != "From Fallback" {
		t.Fatalf("unexpected candidates: %+v", candidates)
	}
}

func TestFetchReturnsEmptyWhenFallbackAlsoFails(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fallback := &fakeFallback{err: fmt.Errorf("also down")}
	client := NewClient("key", "in", "India", fallback, nil, WithBaseURL(server.URL))

	if got := client.Fetch(context.Background(), 7); len(got) != 0 {
		t.Fatalf("expected empty candidates, got %d", len(got))
	}
}

func TestFetchWithoutKeyUsesFallback(t *testing.T) {
	t.Parallel()

	fallback := &fakeFallback{candidates: []domain.Candidate{{Title: "F", URL: "http://f/1"}}}
	client := NewClient("", "in", "India", fallback, nil)

	if !client.Configured() {
		t.Fatal("client with a fallback should report configured")
	}
	if got := client.Fetch(context.Background(), 7); len(got) != 1 {
		t.Fatalf("expected fallback candidates, got %d", len(got))
	}
}

func TestContentFallbackTruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	// The two-byte rune starts at byte 199, a naive byte cut at 200 would
	// split it.
	content := strings.Repeat("a", 199) + "é and more"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"articles":[{"title":"T","description":"","content":%q,"url":"http://r/1","publishedAt":"2025-01-10T10:00:00Z","source":{"name":"S"}}]}`,
			content)
	}))
	defer server.Close()

	client := NewClient("key", "in", "India", nil, nil, WithBaseURL(server.URL))

	candidates := client.Fetch(context.Background(), 7)
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if !utf8.ValidString(candidates[0].Description) {
		t.Fatalf("summary is not valid UTF-8: %q", candidates[0].Description)
	}
	if len(candidates[0].Description) != 199 {
		t.Fatalf("expected cut before the split rune at 199 bytes, got %d", len(candidates[0].Description))
	}
}
