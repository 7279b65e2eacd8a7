// Package analyzer reviews knowledge-base articles with a chat model and with
// local heuristics.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"kb-analyzer/pkg/domain"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4"

const (
	temperature = 0.2
	maxTokens   = 1000

	systemPrompt = "You are a technical documentation expert."
)

var errEmptyResponse = errors.New("empty response from model")

const analysisPrompt = `You are reviewing a technical knowledgebase article.
The article below may be outdated or conflict with others.
If the information is wrong, outdated, or unclear, suggest an improved version.
Explain why the original content should be updated.

Article Metadata:
%s

Article Content:
%s

Please analyze the following aspects:
1. Content Accuracy
2. Technical Relevance
3. Clarity and Readability
4. Potential Conflicts
5. Suggested Updates

Provide your analysis in JSON format with the following structure:
{
    "score": float,  # 0-1 score for overall quality
    "issues": [
        {
            "type": str,  # "accuracy", "relevance", "clarity", "conflict"
            "severity": str,  # "low", "medium", "high"
            "description": str,
            "suggestion": str
        }
    ],
    "summary": str,  # Brief summary of findings
    "suggested_updates": str  # Proposed content updates
}`

// Config configures an Analyzer.
type Config struct {
	Model  string
	Logger *zerolog.Logger
}

// Analyzer sends articles to a chat model and parses the structured review.
type Analyzer struct {
	client ChatClient
	model  string
	logger zerolog.Logger
}

// New creates an Analyzer backed by client.
func New(client ChatClient, cfg Config) *Analyzer {
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Analyzer{client: client, model: model, logger: logger}
}

// AnalyzeArticles analyzes every article in order. A failure for one article
// is recorded in its result and does not stop the others.
func (a *Analyzer) AnalyzeArticles(ctx context.Context, articles []domain.Article) []domain.ArticleAnalysis {
	results := make([]domain.ArticleAnalysis, 0, len(articles))
	for i, article := range articles {
		a.logger.Info().Str("path", article.Path).Int("index", i+1).Int("total", len(articles)).Msg("Analyzing article")

		analysis, err := a.AnalyzeArticle(ctx, article)
		if err != nil {
			a.logger.Error().Err(err).Str("path", article.Path).Msg("Error analyzing article")
			results = append(results, domain.ArticleAnalysis{Article: article, Error: err.Error()})
			continue
		}
		results = append(results, domain.ArticleAnalysis{Article: article, Analysis: analysis})
	}
	return results
}

// AnalyzeArticle runs a single chat completion for article.
func (a *Analyzer) AnalyzeArticle(ctx context.Context, article domain.Article) (*domain.Analysis, error) {
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(article)},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errEmptyResponse
	}

	analysis := ParseAnalysis(resp.Choices[0].Message.Content)
	analysis.Model = a.model
	if resp.Model != "" {
		analysis.Model = resp.Model
	}
	analysis.Timestamp = time.Now().UTC()
	if resp.Created > 0 {
		analysis.Timestamp = time.Unix(resp.Created, 0).UTC()
	}
	return analysis, nil
}

// BuildPrompt renders the user prompt for article.
func BuildPrompt(article domain.Article) string {
	return fmt.Sprintf(analysisPrompt, formatMetadata(article), article.Content)
}

func formatMetadata(article domain.Article) string {
	keys := make([]string, 0, len(article.Metadata))
	for k := range article.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, article.MetaString(k))
	}
	return strings.TrimRight(b.String(), "\n")
}

type modelAnalysis struct {
	Score            float64        `json:"score"`
	Issues           []domain.Issue `json:"issues"`
	Summary          string         `json:"summary"`
	SuggestedUpdates any            `json:"suggested_updates"`
}

// ParseAnalysis decodes the model reply. The reply may wrap the JSON object in
// a code fence or surrounding prose. When no object can be decoded only
// RawAnalysis is set.
func ParseAnalysis(raw string) *domain.Analysis {
	analysis := &domain.Analysis{RawAnalysis: raw, Issues: []domain.Issue{}}

	body := extractJSONObject(raw)
	if body == "" {
		return analysis
	}

	var parsed modelAnalysis
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return analysis
	}

	analysis.Score = clamp(parsed.Score, 0, 1)
	analysis.Summary = strings.TrimSpace(parsed.Summary)
	analysis.SuggestedUpdates = suggestionsText(parsed.SuggestedUpdates)
	for _, issue := range parsed.Issues {
		issue.Type = strings.ToLower(strings.TrimSpace(issue.Type))
		issue.Severity = strings.ToLower(strings.TrimSpace(issue.Severity))
		analysis.Issues = append(analysis.Issues, issue)
	}
	return analysis
}

// extractJSONObject returns the text between the first "{" and the last "}".
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// suggestionsText accepts the suggested updates as a string or a list.
func suggestionsText(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []any:
		lines := make([]string, 0, len(val))
		for _, item := range val {
			lines = append(lines, fmt.Sprint(item))
		}
		return strings.Join(lines, "\n")
	case nil:
		return ""
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
