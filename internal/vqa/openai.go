package vqa

import (
	"context"
	"encoding/base64"
	"fmt"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
)

// OpenAI talks to any OpenAI-compatible chat endpoint serving a vision model.
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(client openai.Client, model string) *OpenAI {
	return &OpenAI{client: client, model: model}
}

func (o *OpenAI) Answer(ctx context.Context, imagePath, question string) (string, error) {
	q, err := checkQuestion(question)
	if err != nil {
		return "", err
	}

	img, err := loadImage(imagePath)
	if err != nil {
		return "", err
	}

	dataURL := "data:" + img.mime + ";base64," + base64.StdEncoding.EncodeToString(img.data)

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
				openai.TextContentPart(q),
			}),
		},
		MaxCompletionTokens: openai.Int(MaxAnswerTokens),
		Temperature:         openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	log.Debug("Model replied", "model", resp.Model, "finish", resp.Choices[0].FinishReason)

	answer := CleanAnswer(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("empty answer")
	}
	return answer, nil
}
