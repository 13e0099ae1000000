package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/meeting-ingest/errors"
	"github.com/johnquangdev/meeting-ingest/internal/domain/entities"
)

// summaryLimit caps the fallback summary taken from an unparseable model
// response.
const summaryLimit = 150

// ChatClient is the LLM call the classifier depends on
type ChatClient interface {
	ChatCompletion(ctx context.Context, prompt string) (string, error)
}

// Classifier produces a short summary and a category label from transcript
// text. Malformed model output is never an error: the documented fallback is
// a truncated raw response and the "other" category.
type Classifier struct {
	llm    ChatClient
	logger *zap.Logger
}

// NewClassifier creates a Classifier backed by the given chat client.
func NewClassifier(llm ChatClient, logger *zap.Logger) *Classifier {
	return &Classifier{llm: llm, logger: logger}
}

// Classify summarizes and labels a transcript. The returned error covers
// transport/service failure only; any shape of model output yields a usable
// (summary, category) pair.
func (c *Classifier) Classify(ctx context.Context, transcript string) (string, entities.Category, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", entities.CategoryOther, nil
	}

	raw, err := c.llm.ChatCompletion(ctx, classifyPrompt(transcript))
	if err != nil {
		return "", entities.CategoryOther, apperrors.ErrTransient("classification request", err)
	}

	summary, category := parseClassification(raw)
	if category == entities.CategoryOther && c.logger != nil {
		c.logger.Debug("classification fell back to other", zap.Int("response_len", len(raw)))
	}
	return summary, category, nil
}

type classification struct {
	Summary  string `json:"summary"`
	Category string `json:"category"`
}

// parseClassification applies the fallback contract: an unparseable payload
// or an out-of-set label degrades to (truncated raw response, "other").
func parseClassification(raw string) (string, entities.Category) {
	var out classification
	if err := json.Unmarshal([]byte(extractJSON(raw)), &out); err != nil {
		return truncate(raw, summaryLimit), entities.CategoryOther
	}
	if !entities.ValidCategory(out.Category) {
		return truncate(raw, summaryLimit), entities.CategoryOther
	}
	return out.Summary, entities.Category(out.Category)
}

func classifyPrompt(transcript string) string {
	labels := make([]string, 0, len(entities.Categories))
	for _, c := range entities.Categories {
		labels = append(labels, string(c))
	}
	return fmt.Sprintf(`Summarize and classify the following meeting transcript.

Transcript:
%s

Respond with JSON only, in this exact shape:
{"summary": "<summary in at most 150 characters>", "category": "<one of: %s>"}`,
		transcript, strings.Join(labels, ", "))
}

// extractJSON extracts JSON content from markdown code blocks or plain text
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	}

	return strings.TrimSpace(content)
}

// truncate cuts s to at most limit runes without splitting a character.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
