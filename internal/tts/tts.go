package tts

import (
	"context"
	"io"
)

// Synthesizer writes spoken text as MP3 to w.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, w io.Writer) error
}
