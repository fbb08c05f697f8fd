package parser

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"

	"EngagementSync/internal/domain"
	"EngagementSync/internal/scanner"
)

const mediumBaseURL = "https://medium.com"

// MediumFeedScanner reads a user's public RSS or Atom feed and scrapes each
// article page for engagement counters.
type MediumFeedScanner struct {
	client  *resty.Client
	baseURL string
}

var (
	_ scanner.Scanner       = (*MediumFeedScanner)(nil)
	_ scanner.DetailFetcher = (*MediumFeedScanner)(nil)
)

// NewMediumFeedScanner wires an HTTP client; baseURL defaults to medium.com.
func NewMediumFeedScanner(baseURL string, opts ClientOptions) *MediumFeedScanner {
	if baseURL == "" {
		baseURL = mediumBaseURL
	}
	client := resty.New().
		SetHeader("user-agent", userAgent).
		SetRetryCount(opts.RetryCount)
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	return &MediumFeedScanner{client: client, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Name identifies the strategy inside the registry.
func (m *MediumFeedScanner) Name() string {
	return "medium-feed"
}

// Scan returns one candidate per feed item. Feed metadata becomes the hint;
// the item body is kept as content until the page is fetched.
func (m *MediumFeedScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Candidate, error) {
	feedURL, err := m.feedURL(req)
	if err != nil {
		return nil, err
	}

	body, err := get(ctx, m.client, feedURL)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse feed %s: %v", domain.ErrFetchFailed, feedURL, err)
	}

	candidates := make([]domain.Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if req.Limit > 0 && len(candidates) >= req.Limit {
			break
		}
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			Ref:     link,
			Content: item.Content,
			Hint: domain.CandidateHint{
				ID:          postID(item.GUID),
				Title:       strings.TrimSpace(item.Title),
				URL:         stripQuery(link),
				Description: firstNonBlank(item.Description, item.Content),
				Categories:  item.Categories,
				PublishedAt: utcPtr(item.PublishedParsed),
			},
		})
	}
	return candidates, nil
}

// FetchDetail replaces the feed body with the rendered article page.
func (m *MediumFeedScanner) FetchDetail(ctx context.Context, _ scanner.Request, c domain.Candidate) (domain.Candidate, error) {
	body, err := get(ctx, m.client, c.Ref)
	if err != nil {
		return c, err
	}
	c.Content = string(body)
	return c, nil
}

func (m *MediumFeedScanner) feedURL(req scanner.Request) (string, error) {
	if v := req.Option("feed_url", ""); v != "" {
		return v, nil
	}
	username := strings.TrimPrefix(req.Option("username", ""), "@")
	if username == "" {
		return "", fmt.Errorf("source %s: medium-feed needs a username or feed_url option", req.Source)
	}
	return m.baseURL + "/feed/@" + url.PathEscape(username), nil
}

// postID extracts the short id from guids like https://medium.com/p/1a2b3c.
func postID(guid string) string {
	guid = strings.TrimSpace(guid)
	if guid == "" {
		return ""
	}
	u, err := url.Parse(guid)
	if err != nil || u.Host == "" {
		return guid
	}
	return path.Base(u.Path)
}

func stripQuery(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	u.RawQuery = ""
	return u.String()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
