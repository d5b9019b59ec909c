package tts

import (
	"context"
	"fmt"
	"io"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

type synthesizer interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
}

// Google speaks through Cloud Text-to-Speech in a fixed language.
type Google struct {
	client   synthesizer
	closer   func() error
	language string
}

func NewGoogle(ctx context.Context, language string, opts ...option.ClientOption) (*Google, error) {
	c, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("texttospeech client: %w", err)
	}
	if language == "" {
		language = "en-US"
	}
	return &Google{client: c, closer: c.Close, language: language}, nil
}

func (g *Google) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer()
}

func (g *Google) Synthesize(ctx context.Context, text string, w io.Writer) error {
	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.language,
			SsmlGender:   texttospeechpb.SsmlVoiceGender_NEUTRAL,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	})
	if err != nil {
		return fmt.Errorf("synthesize speech: %w", err)
	}

	if len(resp.GetAudioContent()) == 0 {
		return fmt.Errorf("synthesize speech: empty audio")
	}

	if _, err := w.Write(resp.GetAudioContent()); err != nil {
		return fmt.Errorf("write speech: %w", err)
	}
	return nil
}
