package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPublishAlert(t *testing.T) {
	t.Parallel()

	var gotPath, gotContentType string
	var got sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":{"message_id":7}}`))
	}))
	defer server.Close()

	n := NewNotifier("token", "42").WithAPIURL(server.URL + "/")
	if err := n.PublishAlert(context.Background(), "engagement sync degraded"); err != nil {
		t.Fatalf("PublishAlert returned error: %v", err)
	}
	if gotPath != "/bottoken/sendMessage" || !strings.HasPrefix(gotContentType, "application/json") {
		t.Fatalf("unexpected request path=%s content-type=%s", gotPath, gotContentType)
	}
	want := sendMessageRequest{ChatID: "42", Text: "engagement sync degraded", DisableWebPagePreview: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected body (-want +got):\n%s", diff)
	}
}

func TestPublishAlertErrors(t *testing.T) {
	t.Parallel()

	if err := NewNotifier("", "42").PublishAlert(context.Background(), "x"); !errors.Is(err, errMisconfigured) {
		t.Fatalf("expected misconfiguration error, got %v", err)
	}

	cases := map[string]http.HandlerFunc{
		"forbidden": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"ok":false,"description":"Forbidden: bot was blocked by the user"}`))
		},
		"not ok": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
		},
	}
	for name, handler := range cases {
		server := httptest.NewServer(handler)
		err := NewNotifier("token", "42").WithAPIURL(server.URL).PublishAlert(context.Background(), "x")
		server.Close()
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestPublishAlertHonoursContext(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewNotifier("token", "42").WithAPIURL(server.URL).PublishAlert(ctx, "x"); err == nil {
		t.Fatalf("expected error for a cancelled context")
	}
}
