package parser

import (
	"context"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"EngagementSync/internal/domain"
	"EngagementSync/internal/scanner"
)

// FileScanner reads candidates from a local JSON document. The document is
// either an array of items or an object holding one under "articles", "posts" or "items".
type FileScanner struct{}

var _ scanner.Scanner = (*FileScanner)(nil)

// NewFileScanner builds the offline strategy.
func NewFileScanner() *FileScanner {
	return &FileScanner{}
}

// Name identifies the strategy inside the registry.
func (f *FileScanner) Name() string {
	return "static-file"
}

// Scan loads the file named by the path option.
func (f *FileScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := req.Option("path", "")
	if path == "" {
		return nil, fmt.Errorf("source %s: static-file needs a path option", req.Source)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrFetchFailed, path, err)
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: %s is not valid json", domain.ErrFetchFailed, path)
	}

	doc := gjson.ParseBytes(raw)
	items := doc
	if !doc.IsArray() {
		if p := req.Option("items_path", ""); p != "" {
			items = doc.Get(p)
		} else {
			items = firstArray(doc, "articles", "posts", "items")
		}
	}

	var candidates []domain.Candidate
	items.ForEach(func(_, item gjson.Result) bool {
		if req.Limit > 0 && len(candidates) >= req.Limit {
			return false
		}
		if !item.IsObject() {
			return true
		}
		candidates = append(candidates, domain.Candidate{
			Ref:     item.Get("id").String(),
			Payload: []byte(item.Raw),
		})
		return true
	})
	return candidates, nil
}

func firstArray(doc gjson.Result, keys ...string) gjson.Result {
	for _, key := range keys {
		if v := doc.Get(key); v.IsArray() {
			return v
		}
	}
	return gjson.Result{}
}
