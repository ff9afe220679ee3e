// Package enrich derives a transcription and suggested metadata from rendered
// note PDFs using an OpenAI-compatible vision gateway.
package enrich

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// ErrNoPages indicates the PDF contained no extractable page images.
var ErrNoPages = errors.New("enrich: no page images in pdf")

// Metadata is a suggested title and tag set for a document.
type Metadata struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

// Enricher produces a transcription and suggested metadata from derived
// content. Both calls may fail independently; neither mutates its input.
type Enricher interface {
	Transcribe(ctx context.Context, pdf []byte) (string, error)
	SuggestMetadata(ctx context.Context, text, originalFilename string) (*Metadata, error)
	Summarize(ctx context.Context, text, title string) (string, error)
	SummariesEnabled() bool
}

// Options configures a VisionEnricher.
type Options struct {
	BaseURL string
	APIKey  string
	// VisionModel transcribes handwriting from page images.
	VisionModel string
	// MetadataModel suggests title and tags from the transcription.
	MetadataModel string
	// SummaryModel writes a short document summary. Empty disables summaries.
	SummaryModel string
}

// VisionEnricher implements Enricher against an OpenAI-compatible API.
type VisionEnricher struct {
	client        openai.Client
	visionModel   string
	metadataModel string
	summaryModel  string
}

func New(opts Options) (*VisionEnricher, error) {
	if opts.VisionModel == "" || opts.MetadataModel == "" {
		return nil, fmt.Errorf("enrich: vision and metadata models are required")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &VisionEnricher{
		client:        openai.NewClient(reqOpts...),
		visionModel:   opts.VisionModel,
		metadataModel: opts.MetadataModel,
		summaryModel:  opts.SummaryModel,
	}, nil
}

// SummariesEnabled reports whether a summary model is configured.
func (e *VisionEnricher) SummariesEnabled() bool {
	return e.summaryModel != ""
}
