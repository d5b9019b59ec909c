package tts

import (
	"context"
	"fmt"
	"io"

	openai "github.com/openai/openai-go/v3"
)

type OpenAI struct {
	client openai.Client
	model  string
	voice  string
}

func NewOpenAI(client openai.Client, model, voice string) *OpenAI {
	if model == "" {
		model = string(openai.SpeechModelTTS1)
	}
	if voice == "" {
		voice = "alloy"
	}
	return &OpenAI{client: client, model: model, voice: voice}
}

func (o *OpenAI) Synthesize(ctx context.Context, text string, w io.Writer) error {
	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(o.model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(o.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("read speech: %w", err)
	}
	return nil
}
