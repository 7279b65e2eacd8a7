package domain

import "time"

// Article statuses.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// NewArticle is the payload for creating a row in the article store.
type NewArticle struct {
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Type     FileType       `json:"type,omitempty"`
	Version  string         `json:"version,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Author   string         `json:"author,omitempty"`
	Status   string         `json:"status,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// StoredArticle is an article row as persisted by the storage backend.
type StoredArticle struct {
	ID          string         `json:"id" bson:"_id"`
	Title       string         `json:"title" bson:"title"`
	Content     string         `json:"content" bson:"content"`
	Type        FileType       `json:"type,omitempty" bson:"type,omitempty"`
	Version     string         `json:"version,omitempty" bson:"version,omitempty"`
	Tags        []string       `json:"tags" bson:"tags"`
	Author      string         `json:"author,omitempty" bson:"author,omitempty"`
	Status      string         `json:"status,omitempty" bson:"status,omitempty"`
	Metadata    map[string]any `json:"metadata" bson:"metadata"`
	CreatedAt   *time.Time     `json:"created_at,omitempty" bson:"created_at,omitempty"`
	UpdatedAt   *time.Time     `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
	LastUpdated *time.Time     `json:"last_updated,omitempty" bson:"last_updated,omitempty"`
}

// ModifiedAt returns the most relevant change timestamp of the row: updated_at,
// then last_updated, then created_at. The zero time is returned when none is set.
func (a StoredArticle) ModifiedAt() time.Time {
	for _, t := range []*time.Time{a.UpdatedAt, a.LastUpdated, a.CreatedAt} {
		if t != nil && !t.IsZero() {
			return *t
		}
	}
	return time.Time{}
}

// StoredAnalysis is an analysis row linked to an article.
type StoredAnalysis struct {
	ID           string     `json:"id" bson:"_id"`
	ArticleID    string     `json:"article_id" bson:"article_id"`
	AnalysisData any        `json:"analysis_data" bson:"analysis_data"`
	CreatedAt    *time.Time `json:"created_at,omitempty" bson:"created_at,omitempty"`
}
