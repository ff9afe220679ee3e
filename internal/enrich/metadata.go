package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goccy/go-json"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/shared"
)

const (
	metadataPrompt = "You are a document metadata assistant. " +
		"Given a document's transcribed content and original filename, suggest a concise title " +
		"and up to 5 relevant tags. " +
		`Respond with JSON only: {"title": "...", "tags": ["...", ...]}`

	summaryPrompt = "You are a document summarization assistant. " +
		"Given a document's transcribed text and its title, write a concise summary " +
		"that captures the key points, important details, dates, and named entities. " +
		"Aim for a few sentences to a short paragraph. " +
		"Output only the summary text, without commentary or headers."

	maxMetadataContext = 4000
	maxSummaryContext  = 8000
)

// SuggestMetadata asks the metadata model for a title and tag set. A malformed
// model response degrades to the original filename and no tags rather than
// failing the ingest.
func (e *VisionEnricher) SuggestMetadata(ctx context.Context, text, originalFilename string) (*Metadata, error) {
	prompt := fmt.Sprintf("Filename: %s\n\nContent:\n%s", originalFilename, truncate(text, maxMetadataContext))

	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.metadataModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(metadataPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("enrich: suggest metadata: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("enrich: suggest metadata: no choices returned")
	}

	raw := resp.Choices[0].Message.Content
	var meta Metadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		slog.Warn("metadata json parse failed", "raw", truncate(raw, 200))
		meta = Metadata{}
	}

	if meta.Title == "" {
		meta.Title = originalFilename
	}
	if meta.Tags == nil {
		meta.Tags = []string{}
	}
	return &meta, nil
}

// Summarize generates a short document summary, or empty when disabled or
// when the transcription is blank.
func (e *VisionEnricher) Summarize(ctx context.Context, text, title string) (string, error) {
	if e.summaryModel == "" || strings.TrimSpace(text) == "" {
		return "", nil
	}

	prompt := fmt.Sprintf("Document title: %q\n\nContent:\n%s", title, truncate(text, maxSummaryContext))

	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.summaryModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summaryPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return "", fmt.Errorf("enrich: summarize: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("enrich: summarize: no choices returned")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
