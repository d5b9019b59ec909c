package stt

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"vqa/pkg/audioconv"
)

const serviceGoogle = "google speech"

type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
}

// GoogleSpeech sends LINEAR16 audio to Cloud Speech-to-Text.
type GoogleSpeech struct {
	client   recognizer
	closer   func() error
	language string
}

func NewGoogleSpeech(ctx context.Context, language string, opts ...option.ClientOption) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	if language == "" {
		language = "en-US"
	}
	return &GoogleSpeech{client: c, closer: c.Close, language: language}, nil
}

func (g *GoogleSpeech) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer()
}

func (g *GoogleSpeech) Transcribe(ctx context.Context, pcm16k []float32) (string, error) {
	if len(pcm16k) == 0 {
		return "", ErrUnintelligible
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            audioconv.TargetRate,
			LanguageCode:               g.language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audioconv.Float32ToPCM16(pcm16k)},
		},
	})
	if err != nil {
		return "", &RequestError{Service: serviceGoogle, Err: err}
	}

	text := joinTranscript(resp)
	if text == "" {
		return "", ErrUnintelligible
	}
	return text, nil
}

// joinTranscript concatenates the top alternative of each result.
// Results cover consecutive stretches of the audio.
func joinTranscript(resp *speechpb.RecognizeResponse) string {
	var parts []string
	for _, r := range resp.GetResults() {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
