package scanner

import (
	"context"
	"testing"

	"EngagementSync/internal/domain"
)

type namedScanner string

func (n namedScanner) Name() string { return string(n) }

func (n namedScanner) Scan(context.Context, Request) ([]domain.Candidate, error) {
	return []domain.Candidate{{Ref: string(n)}}, nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(namedScanner("medium-api"))

	sc, err := reg.Resolve("medium-api")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if sc.Name() != "medium-api" {
		t.Fatalf("unexpected scanner %s", sc.Name())
	}

	if _, err := reg.Resolve("linkedin-api"); err == nil {
		t.Fatalf("expected error for unregistered scanner")
	}
}

func TestRequestOption(t *testing.T) {
	t.Parallel()

	req := Request{Options: map[string]string{"username": "jane", "empty": ""}}
	if got := req.Option("username", "x"); got != "jane" {
		t.Fatalf("unexpected option %q", got)
	}
	if got := req.Option("empty", "fallback"); got != "fallback" {
		t.Fatalf("empty option should fall back, got %q", got)
	}
	if got := (Request{}).Option("missing", "fallback"); got != "fallback" {
		t.Fatalf("nil options should fall back, got %q", got)
	}
}
