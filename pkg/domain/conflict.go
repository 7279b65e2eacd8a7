package domain

// ArticleRef identifies an article inside a conflict entry.
type ArticleRef struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Author  string `json:"author,omitempty"`
	Version string `json:"version,omitempty"`
}

// Conflict describes contradictory advice between two articles in one category.
type Conflict struct {
	Article1       ArticleRef `json:"article1"`
	Article2       ArticleRef `json:"article2"`
	Category       string     `json:"conflict_category"`
	Score          float64    `json:"conflict_score"`
	Severity       string     `json:"severity"`
	Recommendation string     `json:"recommendation"`
}

// DeprecatedItem is a deprecated feature found in an article.
type DeprecatedItem struct {
	Feature        string `json:"feature"`
	DeprecatedDate string `json:"deprecated_date"`
	Reason         string `json:"reason"`
	ArticleDate    string `json:"article_date,omitempty"`
}

// DeprecatedArticle lists the deprecated features of one article.
type DeprecatedArticle struct {
	ID                 string           `json:"id"`
	Title              string           `json:"title"`
	DeprecatedFeatures []DeprecatedItem `json:"deprecated_features"`
	Urgency            string           `json:"urgency"`
}

// RelevanceScore rates how current an article is (0-1).
type RelevanceScore struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Author          string           `json:"author,omitempty"`
	Version         string           `json:"version,omitempty"`
	Score           float64          `json:"relevance_score"`
	LastUpdated     string           `json:"last_updated,omitempty"`
	DeprecatedItems []DeprecatedItem `json:"deprecated_items"`
	Recommendation  string           `json:"recommendation"`
}

// ConflictSummary holds the headline counts of a conflict report.
type ConflictSummary struct {
	TotalArticles       int `json:"total_articles"`
	ConflictsFound      int `json:"conflicts_found"`
	DeprecatedArticles  int `json:"deprecated_articles"`
	HighPriorityUpdates int `json:"high_priority_updates"`
}

// Recommendations aggregates the action counts and overall KB health.
type Recommendations struct {
	ImmediateAction int `json:"immediate_action"`
	ReviewNeeded    int `json:"review_needed"`
	HealthScore     int `json:"total_kb_health_score"`
}

// ConflictReport is the result of a knowledge-base wide conflict scan.
type ConflictReport struct {
	Summary            *ConflictSummary    `json:"summary,omitempty"`
	Conflicts          []Conflict          `json:"conflicts"`
	DeprecatedArticles []DeprecatedArticle `json:"deprecated_articles"`
	RelevanceScores    []RelevanceScore    `json:"relevance_scores"`
	Recommendations    *Recommendations    `json:"recommendations,omitempty"`
	Message            string              `json:"message,omitempty"`
}
