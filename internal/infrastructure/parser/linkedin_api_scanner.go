package parser

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"EngagementSync/internal/config"
	"EngagementSync/internal/domain"
	"EngagementSync/internal/scanner"
)

// LinkedInAPIScanner reads recent profile activity through the LinkedIn data RapidAPI.
type LinkedInAPIScanner struct {
	api    config.RapidAPIConfig
	client *resty.Client
}

var _ scanner.Scanner = (*LinkedInAPIScanner)(nil)

// NewLinkedInAPIScanner builds the scanner for the given API host.
func NewLinkedInAPIScanner(api config.RapidAPIConfig, opts ClientOptions) *LinkedInAPIScanner {
	return &LinkedInAPIScanner{api: api, client: newRapidAPIClient(api, opts)}
}

// Name identifies the strategy inside the registry.
func (l *LinkedInAPIScanner) Name() string {
	return "linkedin-api"
}

type recentActivityRequest struct {
	ProfileURL string `json:"profile_url"`
	Page       int    `json:"page"`
}

// Scan posts the profile url and returns each activity element as a JSON candidate.
func (l *LinkedInAPIScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Candidate, error) {
	if err := requireKey(ctx, l.api, "linkedin"); err != nil {
		return nil, err
	}

	profileURL := req.Option("profile_url", "")
	if profileURL == "" {
		return nil, fmt.Errorf("source %s: linkedin-api needs a profile_url option", req.Source)
	}
	page, err := strconv.Atoi(req.Option("page", "1"))
	if err != nil || page < 1 {
		return nil, fmt.Errorf("source %s: invalid page option %q", req.Source, req.Option("page", ""))
	}

	res, err := l.client.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(recentActivityRequest{ProfileURL: profileURL, Page: page}).
		Post("/profile_recent_comments")
	body, err := checkResponse(res, err, "profile_recent_comments")
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.Get("success").Bool() {
		msg := parsed.Get("message").String()
		if msg == "" {
			msg = "success flag not set"
		}
		return nil, fmt.Errorf("%w: linkedin api: %s", domain.ErrFetchFailed, msg)
	}

	var candidates []domain.Candidate
	parsed.Get("response").ForEach(func(_, post gjson.Result) bool {
		if req.Limit > 0 && len(candidates) >= req.Limit {
			return false
		}
		candidates = append(candidates, domain.Candidate{
			Ref:     post.Get("urn").String(),
			Payload: []byte(post.Raw),
		})
		return true
	})
	return candidates, nil
}
