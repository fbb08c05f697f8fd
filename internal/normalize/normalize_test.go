package normalize

import (
	"math"
	"testing"
)

func TestCount(t *testing.T) {
	t.Parallel()

	cases := map[string]int64{
		"":               0,
		"   ":            0,
		"no digits here": 0,
		"45":             45,
		" 45 likes ":     45,
		"1.5K":           1500,
		"1.2k":           1200,
		"1,5K":           1500,
		"4.1K":           4100,
		"2M":             2_000_000,
		"3.25B":          3_250_000_000,
		"1.2345K":        1234,
		"1.234K":         1234,
		"2.500M":         2_500_000,
		"1,234 K views":  1234,
		"12,345 likes":   12345,
		"12,345":         12345,
		"1.999":          1999,
		"1 234 views":    1234,
		"1,234,567":      1234567,
		"1.2K claps":     1200,
		"10k+":           10_000,
		"45 Members":     45,
		"4.5":            4,
		"17 comments":    17,
		"Views 2.5K":     2500,
		"0":              0,
		"99999999999999999999999": math.MaxInt64,
	}

	for input, want := range cases {
		input, want := input, want
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			if got := Count(input); got != want {
				t.Fatalf("Count(%q) = %d, want %d", input, got, want)
			}
		})
	}
}

func TestCountNeverNegative(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"-5", "−12", "-1.5K", "(3)"} {
		if got := Count(input); got < 0 {
			t.Fatalf("Count(%q) returned negative %d", input, got)
		}
	}
}

func TestFormatRoundTrip(t *testing.T) {
	t.Parallel()

	for _, n := range []int64{0, 7, 45, 999, 1000, 1500, 1234, 12345, 2_000_000, 2_500_000, 1_234_567, 3_000_000_000} {
		formatted := Format(n)
		if got := Count(formatted); got != n {
			t.Fatalf("Count(Format(%d)) = Count(%q) = %d", n, formatted, got)
		}
	}
}

func TestFormatCanonical(t *testing.T) {
	t.Parallel()

	cases := map[int64]string{
		45:        "45",
		1500:      "1.5K",
		1000:      "1K",
		1234:      "1234",
		2_000_000: "2M",
		-3:        "0",
	}
	for n, want := range cases {
		if got := Format(n); got != want {
			t.Fatalf("Format(%d) = %q, want %q", n, got, want)
		}
	}
}
