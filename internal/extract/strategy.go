package extract

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"EngagementSync/internal/domain"
	"EngagementSync/internal/normalize"
)

// StrategyKind selects where a strategy reads from.
type StrategyKind string

const (
	// FromJSON reads a gjson path from the candidate payload.
	FromJSON StrategyKind = "json"
	// FromSelector reads a CSS selector from the candidate content blob.
	FromSelector StrategyKind = "selector"
	// FromPattern applies a regular expression to the visible text of the content blob.
	FromPattern StrategyKind = "pattern"
)

// Strategy is one way of reading a field out of a candidate.
type Strategy struct {
	Kind StrategyKind `yaml:"kind"`
	Path string       `yaml:"path"`
	// Attr reads an attribute of the selected element instead of its text.
	Attr string `yaml:"attr,omitempty"`
}

// JSON builds a payload strategy.
func JSON(path string) Strategy { return Strategy{Kind: FromJSON, Path: path} }

// Selector builds a content strategy reading element text.
func Selector(sel string) Strategy { return Strategy{Kind: FromSelector, Path: sel} }

// SelectorAttr builds a content strategy reading an element attribute.
func SelectorAttr(sel, attr string) Strategy {
	return Strategy{Kind: FromSelector, Path: sel, Attr: attr}
}

// Pattern builds a text strategy; the first capture group (or the whole match) is used.
func Pattern(expr string) Strategy { return Strategy{Kind: FromPattern, Path: expr} }

func (s Strategy) validate() error {
	switch s.Kind {
	case FromJSON, FromSelector, FromPattern:
	default:
		return fmt.Errorf("unknown strategy kind %q", s.Kind)
	}
	if strings.TrimSpace(s.Path) == "" {
		return fmt.Errorf("%s strategy without path", s.Kind)
	}
	return nil
}

// document is the parsed view of a candidate shared by all strategies.
type document struct {
	payload  []byte
	html     *goquery.Document
	text     string
	patterns map[string]*regexp.Regexp
}

func newDocument(c domain.Candidate, patterns map[string]*regexp.Regexp) (*document, error) {
	doc := &document{patterns: patterns}

	if len(c.Payload) > 0 {
		if !gjson.ValidBytes(c.Payload) {
			return nil, fmt.Errorf("%w: payload is not valid JSON", domain.ErrExtractionDegraded)
		}
		doc.payload = c.Payload
	}

	if strings.TrimSpace(c.Content) != "" {
		html, err := goquery.NewDocumentFromReader(strings.NewReader(c.Content))
		if err != nil {
			return nil, fmt.Errorf("%w: parse content: %v", domain.ErrExtractionDegraded, err)
		}
		doc.html = html
		doc.text = collapseSpace(html.Text())
	}

	return doc, nil
}

// lookupText returns the first non-empty text produced by the strategies.
func (d *document) lookupText(strategies []Strategy) (string, bool) {
	for _, s := range strategies {
		if v, ok := d.text1(s); ok {
			return v, true
		}
	}
	return "", false
}

func (d *document) text1(s Strategy) (string, bool) {
	switch s.Kind {
	case FromJSON:
		if d.payload == nil {
			return "", false
		}
		r := gjson.GetBytes(d.payload, s.Path)
		if !r.Exists() || r.Type == gjson.Null {
			return "", false
		}
		v := strings.TrimSpace(r.String())
		return v, v != ""
	case FromSelector:
		if d.html == nil {
			return "", false
		}
		var (
			value string
			found bool
		)
		d.html.Find(s.Path).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			value = selectionValue(sel, s.Attr)
			found = value != ""
			return !found
		})
		return value, found
	case FromPattern:
		m := d.match(s)
		return m, m != ""
	}
	return "", false
}

// lookupList collects every value of the first strategy that yields any.
func (d *document) lookupList(strategies []Strategy) []string {
	for _, s := range strategies {
		var values []string
		switch s.Kind {
		case FromJSON:
			if d.payload == nil {
				continue
			}
			r := gjson.GetBytes(d.payload, s.Path)
			if r.IsArray() {
				for _, item := range r.Array() {
					if v := strings.TrimSpace(item.String()); v != "" {
						values = append(values, v)
					}
				}
			} else if v := strings.TrimSpace(r.String()); r.Exists() && v != "" {
				values = append(values, v)
			}
		case FromSelector:
			if d.html == nil {
				continue
			}
			d.html.Find(s.Path).Each(func(_ int, sel *goquery.Selection) {
				if v := selectionValue(sel, s.Attr); v != "" {
					values = append(values, v)
				}
			})
		case FromPattern:
			if m := d.match(s); m != "" {
				values = append(values, m)
			}
		}
		if len(values) > 0 {
			return values
		}
	}
	return nil
}

// lookupCount evaluates metric strategies short-circuit. A strategy wins when it
// produces a value above zero or an explicitly present number, zero included.
func (d *document) lookupCount(strategies []Strategy) (int64, bool) {
	for _, s := range strategies {
		if v, ok := d.count1(s); ok {
			return v, true
		}
	}
	return 0, false
}

func (d *document) count1(s Strategy) (int64, bool) {
	switch s.Kind {
	case FromJSON:
		if d.payload == nil {
			return 0, false
		}
		r := gjson.GetBytes(d.payload, s.Path)
		switch r.Type {
		case gjson.Number:
			if r.Num < 0 {
				return 0, true
			}
			if r.Num >= math.MaxInt64 {
				return math.MaxInt64, true
			}
			return r.Int(), true
		case gjson.String:
			if hasDigit(r.Str) {
				return normalize.Count(r.Str), true
			}
		}
		return 0, false
	case FromSelector:
		if d.html == nil {
			return 0, false
		}
		var (
			value int64
			found bool
		)
		d.html.Find(s.Path).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := selectionValue(sel, s.Attr)
			if !hasDigit(text) {
				return true
			}
			value, found = normalize.Count(text), true
			return false
		})
		return value, found
	case FromPattern:
		m := d.match(s)
		if !hasDigit(m) {
			return 0, false
		}
		return normalize.Count(m), true
	}
	return 0, false
}

func (d *document) match(s Strategy) string {
	if d.text == "" {
		return ""
	}
	re := d.patterns[s.Path]
	if re == nil {
		return ""
	}
	m := re.FindStringSubmatch(d.text)
	switch {
	case m == nil:
		return ""
	case len(m) > 1:
		return strings.TrimSpace(m[1])
	default:
		return strings.TrimSpace(m[0])
	}
}

func selectionValue(sel *goquery.Selection, attr string) string {
	if attr != "" {
		v, _ := sel.Attr(attr)
		return strings.TrimSpace(v)
	}
	return collapseSpace(sel.Text())
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
