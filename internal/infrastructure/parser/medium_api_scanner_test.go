package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"EngagementSync/internal/config"
	"EngagementSync/internal/domain"
	"EngagementSync/internal/scanner"
)

func newMediumServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/user/id_for/jane", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-rapidapi-key") != "test-key" || r.Header.Get("x-rapidapi-host") != "medium.test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"id":"u1"}`))
	})
	mux.HandleFunc("/user/u1/articles", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"associated_articles":["a1","a2","a3","a4"]}`))
	})
	mux.HandleFunc("/article/a1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"a1","title":"First","claps":120,"responses_count":4}`))
	})
	mux.HandleFunc("/article/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestMediumScanner(baseURL, key string) *MediumAPIScanner {
	return NewMediumAPIScanner(config.RapidAPIConfig{
		BaseURL: baseURL,
		Host:    "medium.test",
		APIKey:  key,
	}, ClientOptions{Timeout: 5 * time.Second})
}

func TestMediumAPIScannerScan(t *testing.T) {
	t.Parallel()

	server := newMediumServer(t)
	sc := newTestMediumScanner(server.URL, "test-key")

	candidates, err := sc.Scan(context.Background(), scanner.Request{
		Source:  "medium",
		Limit:   3,
		Options: map[string]string{"username": "jane"},
	})
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates (limit), got %d", len(candidates))
	}
	if candidates[0].Ref != "a1" || candidates[0].Hint.ID != "a1" {
		t.Fatalf("unexpected first candidate %+v", candidates[0])
	}
	if len(candidates[0].Payload) != 0 {
		t.Fatalf("list step must not carry a payload")
	}
}

func TestMediumAPIScannerFetchDetail(t *testing.T) {
	t.Parallel()

	server := newMediumServer(t)
	sc := newTestMediumScanner(server.URL, "test-key")

	c, err := sc.FetchDetail(context.Background(), scanner.Request{}, domain.Candidate{Ref: "a1"})
	if err != nil {
		t.Fatalf("FetchDetail returned error: %v", err)
	}
	if got := gjson.GetBytes(c.Payload, "claps").Int(); got != 120 {
		t.Fatalf("unexpected claps %d", got)
	}

	_, err = sc.FetchDetail(context.Background(), scanner.Request{}, domain.Candidate{Ref: "broken"})
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
}

func TestMediumAPIScannerRequiresKey(t *testing.T) {
	t.Parallel()

	server := newMediumServer(t)
	sc := newTestMediumScanner(server.URL, "")

	_, err := sc.Scan(context.Background(), scanner.Request{Options: map[string]string{"username": "jane"}})
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed without key, got %v", err)
	}
}

func TestMediumAPIScannerWrongKey(t *testing.T) {
	t.Parallel()

	server := newMediumServer(t)
	sc := newTestMediumScanner(server.URL, "other-key")

	_, err := sc.Scan(context.Background(), scanner.Request{Options: map[string]string{"username": "jane"}})
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed for 401, got %v", err)
	}
}
