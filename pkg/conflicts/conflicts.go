// Package conflicts scans a set of stored articles for contradictory advice,
// deprecated technology and stale content.
package conflicts

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"kb-analyzer/pkg/domain"
	"kb-analyzer/pkg/versions"
)

// Thresholds on the pairwise conflict score.
const (
	ConflictThreshold = 0.3
	HighThreshold     = 0.7
	MediumThreshold   = 0.5
)

// Severity and urgency labels.
const (
	High   = "HIGH"
	Medium = "MEDIUM"
	Low    = "LOW"
)

// NotEnoughArticles is the report message for knowledge bases below two articles.
const NotEnoughArticles = "Need at least 2 articles to detect conflicts"

// Category lists phrases that signal good or bad practice for one topic.
type Category struct {
	Name string
	Good []string
	Bad  []string
}

// Categories is the keyword table used for pairwise conflict scoring.
var Categories = []Category{
	{
		Name: "api_security",
		Good: []string{"environment variables", "secure storage", "never store in plain text", "secret management"},
		Bad:  []string{"plain text", "config file", "hardcode", "source code"},
	},
	{
		Name: "password_hashing",
		Good: []string{"bcrypt", "argon2", "scrypt", "secure hashing"},
		Bad:  []string{"md5", "sha1", "plain text password"},
	},
	{
		Name: "http_security",
		Good: []string{"https", "ssl", "tls", "encrypted"},
		Bad:  []string{"http://", "unencrypted", "plain http"},
	},
	{
		Name: "cookie_security",
		Good: []string{"secure flag", "httponly", "samesite"},
		Bad:  []string{"without secure", "no security flags"},
	},
	{
		Name: "file_upload",
		Good: []string{"validation", "sanitization", "virus scan", "type checking"},
		Bad:  []string{"without validation", "all file types", "no restrictions"},
	},
	{
		Name: "backup_security",
		Good: []string{"encryption", "secure storage", "offsite backup"},
		Bad:  []string{"without encryption", "same server", "unencrypted"},
	},
	{
		Name: "sql_security",
		Good: []string{"parameterized queries", "prepared statements", "orm"},
		Bad:  []string{"concatenation", "string concatenation", "direct input"},
	},
}

// Deprecation is a feature considered obsolete since Date.
type Deprecation struct {
	Feature string
	Date    string
	Reason  string
	pattern *regexp.Regexp
}

// Deprecations lists the features flagged as deprecated. Features match on
// word boundaries so "http" does not match "https".
var Deprecations = []Deprecation{
	newDeprecation("md5", "2020-01-01", "Cryptographically broken"),
	newDeprecation("sha1", "2017-01-01", "Collision vulnerabilities"),
	newDeprecation("http", "2018-01-01", "Insecure protocol"),
	newDeprecation("flash", "2020-12-31", "End of life"),
	newDeprecation("ftp", "2019-01-01", "Insecure file transfer"),
}

func newDeprecation(feature, date, reason string) Deprecation {
	return Deprecation{
		Feature: feature,
		Date:    date,
		Reason:  reason,
		pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(feature) + `\b`),
	}
}

// Detect builds the conflict report for articles as of now.
func Detect(articles []domain.StoredArticle, now time.Time) domain.ConflictReport {
	report := domain.ConflictReport{
		Conflicts:          []domain.Conflict{},
		DeprecatedArticles: []domain.DeprecatedArticle{},
		RelevanceScores:    []domain.RelevanceScore{},
	}
	if len(articles) < 2 {
		report.Message = NotEnoughArticles
		return report
	}

	for _, a := range articles {
		deprecated := DeprecatedItems(a)
		score := Relevance(a, now)

		entry := domain.RelevanceScore{
			ID:              a.ID,
			Title:           a.Title,
			Author:          a.Author,
			Version:         a.Version,
			Score:           score,
			DeprecatedItems: deprecated,
			Recommendation:  relevanceRecommendation(score),
		}
		if a.UpdatedAt != nil {
			entry.LastUpdated = a.UpdatedAt.UTC().Format(time.RFC3339)
		}
		report.RelevanceScores = append(report.RelevanceScores, entry)

		if len(deprecated) > 0 {
			report.DeprecatedArticles = append(report.DeprecatedArticles, domain.DeprecatedArticle{
				ID:                 a.ID,
				Title:              a.Title,
				DeprecatedFeatures: deprecated,
				Urgency:            High,
			})
		}
	}

	for i := 0; i < len(articles); i++ {
		for j := i + 1; j < len(articles); j++ {
			for _, c := range Categories {
				score := Score(articles[i].Content, articles[j].Content, c)
				if score <= ConflictThreshold {
					continue
				}
				report.Conflicts = append(report.Conflicts, domain.Conflict{
					Article1:       ref(articles[i]),
					Article2:       ref(articles[j]),
					Category:       c.Name,
					Score:          score,
					Severity:       severity(score),
					Recommendation: conflictRecommendation(score),
				})
			}
		}
	}

	sort.SliceStable(report.Conflicts, func(i, j int) bool {
		return report.Conflicts[i].Score > report.Conflicts[j].Score
	})
	sort.SliceStable(report.RelevanceScores, func(i, j int) bool {
		return report.RelevanceScores[i].Score < report.RelevanceScores[j].Score
	})

	var high, medium, stale, review int
	for _, c := range report.Conflicts {
		switch c.Severity {
		case High:
			high++
		case Medium:
			medium++
		}
	}
	for _, r := range report.RelevanceScores {
		if r.Score < 0.3 {
			stale++
		}
		if r.Score < 0.6 {
			review++
		}
	}

	n := len(articles)
	report.Summary = &domain.ConflictSummary{
		TotalArticles:       n,
		ConflictsFound:      len(report.Conflicts),
		DeprecatedArticles:  len(report.DeprecatedArticles),
		HighPriorityUpdates: stale,
	}
	report.Recommendations = &domain.Recommendations{
		ImmediateAction: high + len(report.DeprecatedArticles),
		ReviewNeeded:    medium + review,
		HealthScore:     healthScore(len(report.Conflicts)+len(report.DeprecatedArticles), n),
	}
	return report
}

// Score compares the practice balance of two texts in one category. The score
// is non-zero only when one text leans good and the other leans bad.
func Score(content1, content2 string, c Category) float64 {
	s1 := balance(strings.ToLower(content1), c)
	s2 := balance(strings.ToLower(content2), c)

	if (s1 > 0 && s2 < 0) || (s1 < 0 && s2 > 0) {
		return math.Abs(float64(s1-s2)) / 10
	}
	return 0
}

func balance(lower string, c Category) int {
	n := 0
	for _, k := range c.Good {
		if strings.Contains(lower, k) {
			n++
		}
	}
	for _, k := range c.Bad {
		if strings.Contains(lower, k) {
			n--
		}
	}
	return n
}

// DeprecatedItems lists the deprecated features mentioned by a.
func DeprecatedItems(a domain.StoredArticle) []domain.DeprecatedItem {
	lower := strings.ToLower(a.Content)
	items := []domain.DeprecatedItem{}

	articleDate := ""
	if t := a.ModifiedAt(); !t.IsZero() {
		articleDate = t.UTC().Format(time.RFC3339)
	}

	for _, d := range Deprecations {
		if d.pattern.MatchString(lower) {
			items = append(items, domain.DeprecatedItem{
				Feature:        d.Feature,
				DeprecatedDate: d.Date,
				Reason:         d.Reason,
				ArticleDate:    articleDate,
			})
		}
	}
	return items
}

// Relevance rates how current a is: it decays linearly over a year since the
// last change, drops sharply when deprecated features are mentioned and is
// adjusted by the major version. Articles without timestamps score 0.
func Relevance(a domain.StoredArticle, now time.Time) float64 {
	changed := a.ModifiedAt()
	if changed.IsZero() {
		return 0
	}

	days := now.Sub(changed).Hours() / 24
	score := math.Max(0, 1-days/365)

	if len(DeprecatedItems(a)) > 0 {
		score *= 0.3
	}

	if a.Version != "" {
		switch major := versions.Major(versionCore(a.Version)); {
		case major >= 3:
			score *= 1.2
		case major >= 0 && major <= 1:
			score *= 0.8
		}
	}

	return math.Min(1, math.Max(0, score))
}

var majorMinor = regexp.MustCompile(`\d+\.\d+`)

// versionCore returns the first "major.minor" in v, or "" when there is none.
func versionCore(v string) string {
	return majorMinor.FindString(v)
}

// healthScore is the share of articles without findings, as a 0-100
// percentage. Findings can outnumber articles, so the result is floored at 0.
func healthScore(findings, articles int) int {
	score := int(math.Round((1 - float64(findings)/float64(articles)) * 100))
	if score < 0 {
		return 0
	}
	return score
}

func ref(a domain.StoredArticle) domain.ArticleRef {
	return domain.ArticleRef{ID: a.ID, Title: a.Title, Author: a.Author, Version: a.Version}
}

func severity(score float64) string {
	switch {
	case score > HighThreshold:
		return High
	case score > MediumThreshold:
		return Medium
	default:
		return Low
	}
}

func conflictRecommendation(score float64) string {
	if score > HighThreshold {
		return "CRITICAL: Articles provide contradictory advice - immediate resolution needed"
	}
	return "WARNING: Articles may conflict - review and align recommendations"
}

func relevanceRecommendation(score float64) string {
	switch {
	case score < 0.3:
		return "HIGH PRIORITY: Needs immediate review/rewrite"
	case score < 0.6:
		return "MEDIUM PRIORITY: Should be updated"
	default:
		return "LOW PRIORITY: Content appears current"
	}
}
