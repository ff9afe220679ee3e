package enrich

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v2"
)

const ocrPrompt = "You are a precise transcription assistant. " +
	"Transcribe the handwritten content of this document page exactly. " +
	"Preserve structure, headings, lists, and diagrams as ASCII art where possible. " +
	"Output only the transcribed text, without commentary."

// Transcribe runs the vision model over each page image of the PDF and joins
// the page transcriptions with blank lines.
func (e *VisionEnricher) Transcribe(ctx context.Context, pdf []byte) (string, error) {
	pages := extractJPEGPages(pdf)
	if len(pages) == 0 {
		return "", ErrNoPages
	}

	slog.Info("ocr start", "pages", len(pages), "model", e.visionModel)

	texts := make([]string, 0, len(pages))
	for i, img := range pages {
		dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img)

		resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(e.visionModel),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
					openai.TextContentPart(ocrPrompt),
					openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
				}),
			},
			Temperature: openai.Float(0),
		})
		if err != nil {
			return "", fmt.Errorf("enrich: transcribe page %d/%d: %w", i+1, len(pages), err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("enrich: transcribe page %d/%d: no choices returned", i+1, len(pages))
		}

		text := strings.TrimSpace(resp.Choices[0].Message.Content)
		texts = append(texts, text)
		slog.Debug("ocr page", "page", i+1, "pages", len(pages), "chars", len(text))
	}

	return strings.Join(texts, "\n\n"), nil
}
