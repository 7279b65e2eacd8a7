// Package versions finds version strings and release dates mentioned in article text.
package versions

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the output format of release dates.
const DateLayout = "January 02, 2006"

var (
	versionPattern = regexp.MustCompile(`v?\d+\.\d+(?:\.\d+)?`)
	datePattern    = regexp.MustCompile(`(?i)\b(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\s+\d{1,2},\s+\d{4}\b`)
	spaces         = regexp.MustCompile(`\s+`)
)

// Extract returns the distinct version strings in text, sorted.
func Extract(text string) []string {
	set := map[string]struct{}{}
	for _, m := range versionPattern.FindAllString(text, -1) {
		set[m] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Latest returns the lexicographically greatest version, so "v1.2" wins over
// "v1.10". Use LatestSemantic for numeric ordering.
func Latest(versions []string) string {
	latest := ""
	for _, v := range versions {
		if v > latest {
			latest = v
		}
	}
	return latest
}

// LatestSemantic returns the greatest version comparing numeric components.
func LatestSemantic(versions []string) string {
	latest := ""
	for _, v := range versions {
		if latest == "" || Compare(v, latest) > 0 {
			latest = v
		}
	}
	return latest
}

// Compare orders two version strings by their numeric components. A missing
// patch component counts as zero.
func Compare(a, b string) int {
	pa, pb := components(a), components(b)
	for i := 0; i < 3; i++ {
		if pa[i] != pb[i] {
			if pa[i] < pb[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Major returns the leading numeric component of a version, or -1.
func Major(v string) int {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	head, _, _ := strings.Cut(v, ".")
	n, err := strconv.Atoi(head)
	if err != nil {
		return -1
	}
	return n
}

func components(v string) [3]int {
	var out [3]int
	parts := strings.Split(strings.TrimPrefix(v, "v"), ".")
	for i := 0; i < len(parts) && i < 3; i++ {
		n, _ := strconv.Atoi(parts[i])
		out[i] = n
	}
	return out
}

// Dates returns every month-name date in text ("Jan 2, 2024", "january 02, 2024"),
// in order of appearance.
func Dates(text string) []time.Time {
	var out []time.Time
	for _, m := range datePattern.FindAllString(text, -1) {
		if t, ok := parseDate(m); ok {
			out = append(out, t)
		}
	}
	return out
}

// LatestDate returns the most recent date in text formatted with DateLayout,
// or "" when none is found.
func LatestDate(text string) string {
	var latest time.Time
	for _, t := range Dates(text) {
		if t.After(latest) {
			latest = t
		}
	}
	if latest.IsZero() {
		return ""
	}
	return latest.Format(DateLayout)
}

func parseDate(s string) (time.Time, bool) {
	s = spaces.ReplaceAllString(strings.TrimSpace(s), " ")
	for _, layout := range []string{"January 2, 2006", "Jan 2, 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
