package domain

import "time"

// Issue types and severities reported by the analyzer.
const (
	IssueAccuracy  = "accuracy"
	IssueRelevance = "relevance"
	IssueClarity   = "clarity"
	IssueConflict  = "conflict"

	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Issue is a single problem the language model found in an article.
type Issue struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
}

// Analysis is the structured result of analyzing one article.
// Score is in the 0-1 range.
type Analysis struct {
	Score            float64   `json:"score"`
	Issues           []Issue   `json:"issues"`
	Summary          string    `json:"summary"`
	SuggestedUpdates string    `json:"suggested_updates"`
	RawAnalysis      string    `json:"raw_analysis,omitempty"`
	Model            string    `json:"model,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// ArticleAnalysis pairs an article with its analysis. Analysis is nil when the
// analysis failed, in which case Error carries the reason.
type ArticleAnalysis struct {
	Article  Article   `json:"article"`
	Analysis *Analysis `json:"analysis"`
	Error    string    `json:"error,omitempty"`
}

// HasIssues reports whether the analysis exists and lists at least one issue.
func (r ArticleAnalysis) HasIssues() bool {
	return r.Analysis != nil && len(r.Analysis.Issues) > 0
}

// VersionInfo summarizes version strings and release dates mentioned in text.
type VersionInfo struct {
	VersionsMentioned []string `json:"versions_mentioned"`
	LatestVersion     string   `json:"latest_version,omitempty"`
	ReleaseDate       string   `json:"release_date,omitempty"`
}

// ContentQuality holds 0-1 quality scores.
type ContentQuality struct {
	Freshness float64 `json:"freshness"`
	Technical float64 `json:"technical"`
	Clarity   float64 `json:"clarity"`
}

// ContentReport is the heuristic, single-article report served by the API.
type ContentReport struct {
	VersionInfo        VersionInfo    `json:"version_info"`
	ContentQuality     ContentQuality `json:"content_quality"`
	IssuesFound        []string       `json:"issues_found"`
	RecommendedUpdates []string       `json:"recommended_updates"`
}
