// Package normalize turns free-form engagement text ("1.2K", "12,345", "45 likes") into counts.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	suffixExpr = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s?([kmb])(?:$|[^\p{L}])`)
	digitsExpr = regexp.MustCompile(`\d+`)
)

var multipliers = map[byte]int64{
	'k': 1_000,
	'm': 1_000_000,
	'b': 1_000_000_000,
}

// Count extracts a non-negative integer from engagement text.
// A number followed by K, M or B is scaled and truncated; otherwise the first
// digit run is used. Text without digits counts as zero.
func Count(text string) int64 {
	s := stripGrouping(strings.TrimSpace(text))
	if s == "" {
		return 0
	}

	if m := suffixExpr.FindStringSubmatch(s); m != nil {
		return scale(m[1], multipliers[byte(unicode.ToLower(rune(m[2][0])))])
	}

	run := digitsExpr.FindString(s)
	if run == "" {
		return 0
	}
	return parseDigits(run)
}

// Format renders n the way Count reads it back: "45", "1.5K", "2M".
func Format(n int64) string {
	if n < 0 {
		n = 0
	}

	for _, unit := range []struct {
		suffix string
		value  int64
	}{{"B", 1_000_000_000}, {"M", 1_000_000}, {"K", 1_000}} {
		if n < unit.value {
			continue
		}
		if n%unit.value == 0 {
			return strconv.FormatInt(n/unit.value, 10) + unit.suffix
		}
		if n < math.MaxInt64/10 && (n*10)%unit.value == 0 {
			tenths := n * 10 / unit.value
			return strconv.FormatInt(tenths/10, 10) + "." + strconv.FormatInt(tenths%10, 10) + unit.suffix
		}
		break
	}

	return strconv.FormatInt(n, 10)
}

// stripGrouping drops thousands separators: a comma, dot, apostrophe or
// space between a digit and exactly three following digits. A run followed by
// a K, M or B suffix keeps its separator as a decimal point ("1.234K").
func stripGrouping(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range runes {
		if isGroupSeparator(r) && i > 0 && unicode.IsDigit(runes[i-1]) &&
			threeDigitsAt(runes, i+1) && !suffixAt(runes, i+4) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isGroupSeparator(r rune) bool {
	switch r {
	case ',', '.', '\'', ' ', '\u00a0', '\u202f':
		return true
	}
	return false
}

func threeDigitsAt(runes []rune, start int) bool {
	if start+3 > len(runes) {
		return false
	}
	for i := start; i < start+3; i++ {
		if !unicode.IsDigit(runes[i]) {
			return false
		}
	}
	return start+3 == len(runes) || !unicode.IsDigit(runes[start+3])
}

// suffixAt reports whether a K, M or B multiplier starts at pos, after at most one space.
func suffixAt(runes []rune, pos int) bool {
	if pos < len(runes) && unicode.IsSpace(runes[pos]) {
		pos++
	}
	if pos >= len(runes) {
		return false
	}
	if _, ok := multipliers[byte(unicode.ToLower(runes[pos]))]; !ok || runes[pos] > unicode.MaxASCII {
		return false
	}
	return pos+1 == len(runes) || !unicode.IsLetter(runes[pos+1])
}

// scale multiplies a decimal string without going through floating point,
// truncating fraction digits finer than the multiplier.
func scale(number string, multiplier int64) int64 {
	number = strings.ReplaceAll(number, ",", ".")
	whole, frac, _ := strings.Cut(number, ".")

	result := mulClamp(parseDigits(whole), multiplier)

	unit := multiplier
	for i := 0; i < len(frac) && unit >= 10; i++ {
		unit /= 10
		result = addClamp(result, int64(frac[i]-'0')*unit)
	}
	return result
}

func parseDigits(run string) int64 {
	if run == "" {
		return 0
	}
	v, err := strconv.ParseInt(run, 10, 64)
	if err != nil {
		return math.MaxInt64
	}
	return v
}

func mulClamp(a, b int64) int64 {
	if a != 0 && a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}

func addClamp(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
