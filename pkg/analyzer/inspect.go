package analyzer

import (
	"math"
	"regexp"
	"strings"
	"time"

	"kb-analyzer/pkg/domain"
	"kb-analyzer/pkg/versions"
)

type rule struct {
	match          func(lower string) bool
	issue          string
	recommendation string
}

var (
	plainTextKeys = regexp.MustCompile(`(api[ _-]?keys?|secrets?|passwords?)[^.\n]{0,80}(plain ?text|hard-?coded|unencrypted)|(plain ?text|hard-?coded|unencrypted)[^.\n]{0,80}(api[ _-]?keys?|secrets?|passwords?)`)
	insecureHTTP  = regexp.MustCompile(`http://|\b(use|using|over|via) http\b`)
	md5Hashing    = regexp.MustCompile(`\bmd5\b`)
	cookieToken   = regexp.MustCompile(`\bcookies?\b`)
	secureFlag    = regexp.MustCompile(`\bsecure\b|\bhttponly\b`)
	staleTerms    = regexp.MustCompile(`\b(md5|sha1|flash|ftp)\b`)
	sentenceEnd   = regexp.MustCompile(`[.!?]+(\s|$)`)
)

var rules = []rule{
	{
		match:          plainTextKeys.MatchString,
		issue:          "Recommends storing API keys in plain text",
		recommendation: "Advise against storing API keys in plain text for security reasons",
	},
	{
		match:          insecureHTTP.MatchString,
		issue:          "Suggests using HTTP for API endpoints",
		recommendation: "Recommend using HTTPS for all API endpoints to ensure data security",
	},
	{
		match: func(lower string) bool {
			return cookieToken.MatchString(lower) && strings.Contains(lower, "token") && !secureFlag.MatchString(lower)
		},
		issue:          "Recommends storing tokens in cookies without the secure flag",
		recommendation: "Suggest storing tokens in cookies with the secure flag to prevent cross-site scripting attacks",
	},
	{
		match:          md5Hashing.MatchString,
		issue:          "Advises using MD5 for password hashing",
		recommendation: "Recommend using a more secure method for password hashing, such as bcrypt or Argon2",
	},
}

// Inspect builds a heuristic report for content without calling a model.
func Inspect(content string) domain.ContentReport {
	return InspectAt(content, time.Now())
}

// InspectAt is Inspect with an explicit reference time for freshness scoring.
func InspectAt(content string, now time.Time) domain.ContentReport {
	found := versions.Extract(content)
	report := domain.ContentReport{
		VersionInfo: domain.VersionInfo{
			VersionsMentioned: found,
			LatestVersion:     versions.Latest(found),
			ReleaseDate:       versions.LatestDate(content),
		},
		IssuesFound:        []string{},
		RecommendedUpdates: []string{},
	}

	lower := strings.ToLower(content)
	for _, r := range rules {
		if r.match(lower) {
			report.IssuesFound = append(report.IssuesFound, r.issue)
			report.RecommendedUpdates = append(report.RecommendedUpdates, r.recommendation)
		}
	}

	report.ContentQuality = domain.ContentQuality{
		Freshness: round2(freshness(content, lower, now)),
		Technical: round2(clamp(1-0.2*float64(len(report.IssuesFound)), 0, 1)),
		Clarity:   round2(clarity(content)),
	}
	return report
}

// freshness starts at 1, loses 0.25 per year since the latest mentioned date
// and 0.2 when deprecated technology is mentioned.
func freshness(content, lower string, now time.Time) float64 {
	score := 1.0

	var latest time.Time
	for _, d := range versions.Dates(content) {
		if d.After(latest) {
			latest = d
		}
	}
	if !latest.IsZero() && now.After(latest) {
		years := now.Sub(latest).Hours() / 24 / 365
		score -= 0.25 * math.Floor(years)
	}
	if staleTerms.MatchString(lower) {
		score -= 0.2
	}
	return clamp(score, 0.1, 1)
}

// clarity penalizes long sentences: an average of 20 words or fewer scores 1.
func clarity(content string) float64 {
	words := len(strings.Fields(content))
	if words == 0 {
		return 0
	}
	sentences := len(sentenceEnd.FindAllStringIndex(content, -1))
	if sentences == 0 {
		sentences = 1
	}
	avg := float64(words) / float64(sentences)
	if avg <= 20 {
		return 1
	}
	return clamp(1-(avg-20)/40, 0.2, 1)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
