package extract

import (
	"fmt"

	"EngagementSync/internal/domain"
)

// MetricSpec lists the ordered strategies for one metric.
type MetricSpec struct {
	Name       string     `yaml:"name"`
	Strategies []Strategy `yaml:"strategies"`
}

// FieldMap describes what a source's candidate looks like.
type FieldMap struct {
	ID             []Strategy   `yaml:"id"`
	Title          []Strategy   `yaml:"title"`
	Text           []Strategy   `yaml:"text"`
	URL            []Strategy   `yaml:"url"`
	PublishedAt    []Strategy   `yaml:"publishedAt"`
	Description    []Strategy   `yaml:"description"`
	Categories     []Strategy   `yaml:"categories"`
	AuthorName     []Strategy   `yaml:"authorName"`
	AuthorHeadline []Strategy   `yaml:"authorHeadline"`
	Metrics        []MetricSpec `yaml:"metrics"`
	// IDPrefix is stripped from extracted identifiers (e.g. "urn:li:activity:").
	IDPrefix string `yaml:"idPrefix,omitempty"`
}

func (m FieldMap) strategies() []Strategy {
	all := make([]Strategy, 0, 32)
	for _, group := range [][]Strategy{
		m.ID, m.Title, m.Text, m.URL, m.PublishedAt,
		m.Description, m.Categories, m.AuthorName, m.AuthorHeadline,
	} {
		all = append(all, group...)
	}
	for _, metric := range m.Metrics {
		all = append(all, metric.Strategies...)
	}
	return all
}

func (m FieldMap) validate() error {
	if len(m.Metrics) == 0 {
		return fmt.Errorf("field map declares no metrics")
	}
	seen := make(map[string]struct{}, len(m.Metrics))
	for _, metric := range m.Metrics {
		if metric.Name == "" {
			return fmt.Errorf("metric without name")
		}
		if _, dup := seen[metric.Name]; dup {
			return fmt.Errorf("metric %s declared twice", metric.Name)
		}
		seen[metric.Name] = struct{}{}
	}
	for _, s := range m.strategies() {
		if err := s.validate(); err != nil {
			return err
		}
	}
	return nil
}

// DefaultFieldMap returns the built-in field map of a source kind.
func DefaultFieldMap(kind domain.SourceKind) FieldMap {
	if kind == domain.KindPost {
		return postFieldMap()
	}
	return articleFieldMap()
}

// Page selectors change whenever the platforms restyle; keep them together.
const (
	articleOGURL       = `meta[property="og:url"]`
	articleCanonical   = `link[rel="canonical"]`
	articleOGTitle     = `meta[property="og:title"]`
	articlePublished   = `meta[property="article:published_time"]`
	articleDescription = `meta[name="description"]`
	articleTag         = `meta[property="article:tag"]`
	articleAuthor      = `meta[name="author"]`

	postText      = `.update-components-text span[dir="ltr"]`
	postLink      = `a[href*="activity"]`
	postLikes     = `.social-details-social-counts__social-proof-fallback-number`
	postReactions = `.social-details-social-counts__reactions-count`
	postActorName = `.update-components-actor__name`
	postActorDesc = `.update-components-actor__description`
)

func articleFieldMap() FieldMap {
	return FieldMap{
		ID: []Strategy{JSON("id"), JSON("article_id"), JSON("guid")},
		Title: []Strategy{
			JSON("title"),
			SelectorAttr(articleOGTitle, "content"),
			Selector("h1"),
		},
		URL: []Strategy{
			JSON("url"), JSON("link"),
			SelectorAttr(articleOGURL, "content"),
			SelectorAttr(articleCanonical, "href"),
		},
		PublishedAt: []Strategy{
			JSON("published_at"), JSON("publishedDate"), JSON("pubDate"),
			SelectorAttr(articlePublished, "content"),
		},
		Description: []Strategy{
			JSON("subtitle"), JSON("description"),
			SelectorAttr(articleDescription, "content"),
		},
		Categories: []Strategy{
			JSON("tags"), JSON("categories"),
			SelectorAttr(articleTag, "content"),
		},
		AuthorName: []Strategy{JSON("author.name"), SelectorAttr(articleAuthor, "content")},
		Metrics: []MetricSpec{
			{Name: domain.MetricClaps, Strategies: []Strategy{
				JSON("claps"), JSON("engagement.claps"),
				Selector(`[data-testid="claps"]`),
				Selector(".pw-claps-count"),
				Selector(`button[data-action="clap"] span`),
				Selector(".js-multirecommendCountButton span"),
				SelectorAttr(`[aria-label*="clap"]`, "aria-label"),
			}},
			{Name: domain.MetricResponses, Strategies: []Strategy{
				JSON("responses_count"), JSON("engagement.responses"),
				Selector(`[data-testid="responses"]`),
				Selector(".pw-responses-count"),
				Selector(`a[data-action="scroll-to-responses"] span`),
				Selector(".js-responsesStreamToggle span"),
				SelectorAttr(`[aria-label*="response"]`, "aria-label"),
			}},
			{Name: domain.MetricViews, Strategies: []Strategy{
				JSON("views"), JSON("engagement.views"),
				Pattern(`(?i)(\d[\d.,]*\s?[kmb]?)\s+views\b`),
			}},
		},
	}
}

func postFieldMap() FieldMap {
	return FieldMap{
		ID:       []Strategy{JSON("urn"), JSON("id"), JSON("activity_id")},
		IDPrefix: "urn:li:activity:",
		Text: []Strategy{
			JSON("postText"), JSON("text"), JSON("commentary"),
			Selector(postText),
		},
		URL: []Strategy{
			JSON("postLink"), JSON("url"),
			SelectorAttr(postLink, "href"),
		},
		PublishedAt:    []Strategy{JSON("postedAt"), JSON("postedDate"), JSON("publishedAt")},
		AuthorName:     []Strategy{JSON("actor.actorName"), JSON("author.name"), Selector(postActorName)},
		AuthorHeadline: []Strategy{JSON("actor.actorDescription"), JSON("author.headline"), Selector(postActorDesc)},
		Metrics: []MetricSpec{
			{Name: domain.MetricLikes, Strategies: []Strategy{
				JSON("socialCount.numLikes"), JSON("engagement.likes"), JSON("numLikes"),
				Selector(postLikes),
				Selector(postReactions),
			}},
			{Name: domain.MetricComments, Strategies: []Strategy{
				JSON("socialCount.numComments"), JSON("engagement.comments"), JSON("numComments"),
				Pattern(`(?i)(\d[\d.,]*\s?[kmb]?)\s+(?:comments?|yorum)`),
			}},
			{Name: domain.MetricShares, Strategies: []Strategy{
				JSON("socialCount.numShares"), JSON("engagement.shares"), JSON("numShares"),
				Pattern(`(?i)(\d[\d.,]*\s?[kmb]?)\s+(?:reposts?|shares?)`),
			}},
		},
	}
}
