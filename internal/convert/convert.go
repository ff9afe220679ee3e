// Package convert turns device note files into PDF bytes. The preferred path
// is picking up output a sidecar renderer already produced; rendering in a
// subprocess is the fallback.
package convert

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoOutput indicates a converter could not produce any PDF bytes for the
// note. It is recoverable per note: the file stays pending and is retried on
// the next change event or startup scan.
var ErrNoOutput = errors.New("convert: no pdf output for note")

// Converter produces the rendered PDF for a note file.
type Converter interface {
	Convert(ctx context.Context, notePath string) ([]byte, error)
}

// Chain tries each converter in order and returns the first successful output.
type Chain []Converter

func (c Chain) Convert(ctx context.Context, notePath string) ([]byte, error) {
	var lastErr error
	for _, conv := range c {
		data, err := conv.Convert(ctx, notePath)
		if err == nil && len(data) > 0 {
			return data, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoOutput, lastErr)
	}
	return nil, ErrNoOutput
}
