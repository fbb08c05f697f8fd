package parser

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"EngagementSync/internal/config"
	"EngagementSync/internal/domain"
	"EngagementSync/internal/scanner"
)

// MediumAPIScanner lists a user's articles through the Medium RapidAPI and
// fetches each article in a second round-trip.
type MediumAPIScanner struct {
	api    config.RapidAPIConfig
	client *resty.Client
}

var (
	_ scanner.Scanner       = (*MediumAPIScanner)(nil)
	_ scanner.DetailFetcher = (*MediumAPIScanner)(nil)
)

// NewMediumAPIScanner builds the scanner for the given API host.
func NewMediumAPIScanner(api config.RapidAPIConfig, opts ClientOptions) *MediumAPIScanner {
	return &MediumAPIScanner{api: api, client: newRapidAPIClient(api, opts)}
}

// Name identifies the strategy inside the registry.
func (m *MediumAPIScanner) Name() string {
	return "medium-api"
}

// Scan resolves the user id (unless given as option user_id) and returns one
// identity-only candidate per associated article.
func (m *MediumAPIScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Candidate, error) {
	if err := requireKey(ctx, m.api, "medium"); err != nil {
		return nil, err
	}

	userID := req.Option("user_id", "")
	if userID == "" {
		username := req.Option("username", "")
		if username == "" {
			return nil, fmt.Errorf("source %s: medium-api needs a username or user_id option", req.Source)
		}
		id, err := m.resolveUserID(ctx, username)
		if err != nil {
			return nil, err
		}
		userID = id
	}

	body, err := get(ctx, m.client, "/user/"+url.PathEscape(userID)+"/articles")
	if err != nil {
		return nil, err
	}

	ids := gjson.GetBytes(body, "associated_articles").Array()
	candidates := make([]domain.Candidate, 0, len(ids))
	for _, id := range ids {
		if req.Limit > 0 && len(candidates) >= req.Limit {
			break
		}
		articleID := id.String()
		if articleID == "" {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			Ref:  articleID,
			Hint: domain.CandidateHint{ID: articleID},
		})
	}
	return candidates, nil
}

// FetchDetail loads the full article document for a candidate.
func (m *MediumAPIScanner) FetchDetail(ctx context.Context, _ scanner.Request, c domain.Candidate) (domain.Candidate, error) {
	if c.Ref == "" {
		return c, fmt.Errorf("%w: medium candidate without id", domain.ErrFetchFailed)
	}
	body, err := get(ctx, m.client, "/article/"+url.PathEscape(c.Ref))
	if err != nil {
		return c, err
	}
	c.Payload = body
	return c, nil
}

func (m *MediumAPIScanner) resolveUserID(ctx context.Context, username string) (string, error) {
	body, err := get(ctx, m.client, "/user/id_for/"+url.PathEscape(username))
	if err != nil {
		return "", err
	}
	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return "", fmt.Errorf("%w: medium user %s not found", domain.ErrFetchFailed, username)
	}
	return id, nil
}
