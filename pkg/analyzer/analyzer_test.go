package analyzer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"kb-analyzer/pkg/domain"
)

type capturingClient struct {
	requests []openai.ChatCompletionRequest
	replies  []string
	errs     []error
}

func (c *capturingClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	i := len(c.requests)
	c.requests = append(c.requests, req)
	if i < len(c.errs) && c.errs[i] != nil {
		return openai.ChatCompletionResponse{}, c.errs[i]
	}
	reply := ""
	if i < len(c.replies) {
		reply = c.replies[i]
	}
	return openai.ChatCompletionResponse{
		Created: 1700000000,
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
		}},
	}, nil
}

const goodReply = "```json\n" + `{
  "score": 0.65,
  "issues": [{"type": "Accuracy", "severity": "HIGH", "description": "Uses MD5", "suggestion": "Use bcrypt"}],
  "summary": "Outdated hashing advice.",
  "suggested_updates": "Replace MD5 with bcrypt."
}` + "\n```"

func newTestAnalyzer(client ChatClient, buf *bytes.Buffer) *Analyzer {
	logger := zerolog.New(buf)
	return New(client, Config{Model: "test-model", Logger: &logger})
}

func TestAnalyzeArticle_RequestShape(t *testing.T) {
	cc := &capturingClient{replies: []string{goodReply}}
	var buf bytes.Buffer
	a := newTestAnalyzer(cc, &buf)

	article := domain.Article{
		Path:     "kb/hashing.md",
		Content:  "Hash passwords with MD5.",
		Metadata: map[string]any{"title": "Hashing"},
		FileType: domain.FileTypeMarkdown,
	}
	analysis, err := a.AnalyzeArticle(context.Background(), article)
	if err != nil {
		t.Fatalf("AnalyzeArticle returned error: %v", err)
	}

	req := cc.requests[0]
	if req.Model != "test-model" || req.Temperature != 0.2 || req.MaxTokens != 1000 {
		t.Errorf("Unexpected request parameters: %+v", req)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("Expected system and user messages, got %+v", req.Messages)
	}
	if !strings.Contains(req.Messages[1].Content, "title: Hashing") || !strings.Contains(req.Messages[1].Content, "Hash passwords with MD5.") {
		t.Errorf("Prompt missing metadata or content:\n%s", req.Messages[1].Content)
	}

	if analysis.Score != 0.65 || len(analysis.Issues) != 1 {
		t.Fatalf("Unexpected analysis: %+v", analysis)
	}
	if analysis.Issues[0].Type != domain.IssueAccuracy || analysis.Issues[0].Severity != domain.SeverityHigh {
		t.Errorf("Expected normalized issue fields, got %+v", analysis.Issues[0])
	}
	if !analysis.Timestamp.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("Expected timestamp from response, got %v", analysis.Timestamp)
	}
	if analysis.RawAnalysis != goodReply {
		t.Errorf("Expected raw reply to be kept")
	}
}

func TestAnalyzeArticles_PerRecordFailure(t *testing.T) {
	cc := &capturingClient{
		replies: []string{goodReply, "", goodReply},
		errs:    []error{nil, errors.New("rate limited"), nil},
	}
	var buf bytes.Buffer
	a := newTestAnalyzer(cc, &buf)

	articles := []domain.Article{
		{Path: "a.md", Content: "a"},
		{Path: "b.md", Content: "b"},
		{Path: "c.md", Content: "c"},
	}
	results := a.AnalyzeArticles(context.Background(), articles)

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results[1].Analysis != nil || !strings.Contains(results[1].Error, "rate limited") {
		t.Errorf("Expected failed result for b.md, got %+v", results[1])
	}
	if results[0].Analysis == nil || results[2].Analysis == nil {
		t.Errorf("Expected successful results around the failure")
	}
	for i, r := range results {
		if r.Article.Path != articles[i].Path {
			t.Errorf("Result %d out of order: %s", i, r.Article.Path)
		}
	}
	if !strings.Contains(buf.String(), `"path":"b.md"`) {
		t.Errorf("Expected failure to be logged with path, got %s", buf.String())
	}
}

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantScore float64
		wantSum   string
		wantIss   int
	}{
		{"fenced", goodReply, 0.65, "Outdated hashing advice.", 1},
		{"prose around", `Here you go: {"score": 2, "issues": [], "summary": "ok", "suggested_updates": ["a", "b"]} done`, 1, "ok", 0},
		{"not json", "The article looks fine.", 0, "", 0},
		{"broken json", `{"score": 0.5, "issues": [}`, 0, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAnalysis(tt.raw)
			if got.Score != tt.wantScore || got.Summary != tt.wantSum || len(got.Issues) != tt.wantIss {
				t.Errorf("Unexpected analysis: %+v", got)
			}
			if got.RawAnalysis != tt.raw {
				t.Errorf("Expected raw analysis to be kept")
			}
		})
	}

	if got := ParseAnalysis(`{"suggested_updates": ["a", "b"]}`).SuggestedUpdates; got != "a\nb" {
		t.Errorf("Expected list suggestions joined by newline, got %q", got)
	}
}

func TestAnalyzeArticle_EmptyChoices(t *testing.T) {
	var buf bytes.Buffer
	a := newTestAnalyzer(emptyClient{}, &buf)
	if _, err := a.AnalyzeArticle(context.Background(), domain.Article{Path: "x"}); !errors.Is(err, errEmptyResponse) {
		t.Fatalf("Expected errEmptyResponse, got %v", err)
	}
}

type emptyClient struct{}

func (emptyClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{}, nil
}
