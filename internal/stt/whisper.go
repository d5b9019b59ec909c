package stt

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"

	"vqa/pkg/audioconv"
)

const serviceWhisper = "whisper"

// Whisper uses the OpenAI audio transcription endpoint.
type Whisper struct {
	client   openai.Client
	model    string
	language string
}

func NewWhisper(client openai.Client, model, language string) *Whisper {
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}
	// whisper takes ISO-639-1, so "en-US" becomes "en"
	if i := strings.IndexByte(language, '-'); i > 0 {
		language = language[:i]
	}
	return &Whisper{client: client, model: model, language: strings.ToLower(language)}
}

func (w *Whisper) Transcribe(ctx context.Context, pcm16k []float32) (string, error) {
	if len(pcm16k) == 0 {
		return "", ErrUnintelligible
	}

	wav, err := audioconv.EncodeWAV(pcm16k, audioconv.TargetRate)
	if err != nil {
		return "", fmt.Errorf("encode wav: %w", err)
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wav), "question.wav", "audio/wav"),
		Model: openai.AudioModel(w.model),
	}
	if w.language != "" {
		params.Language = openai.String(w.language)
	}

	res, err := w.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", &RequestError{Service: serviceWhisper, Err: err}
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", ErrUnintelligible
	}
	return text, nil
}
