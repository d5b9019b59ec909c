package stt

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnintelligible means the service answered but found no speech in the audio.
var ErrUnintelligible = errors.New("speech not understood")

// RequestError means the transcription service could not be reached or failed.
type RequestError struct {
	Service string
	Err     error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

type Transcriber interface {
	// pcm16k is mono 16 kHz float32 in [-1, 1].
	Transcribe(ctx context.Context, pcm16k []float32) (string, error)
}
