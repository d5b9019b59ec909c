package vqa

import (
	"context"
	"fmt"
	"strings"

	genai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Gemini answers through a Vertex AI multimodal model.
type Gemini struct {
	client *genai.Client
	model  generator
}

func NewGemini(ctx context.Context, projectID, location, modelName string, opts ...option.ClientOption) (*Gemini, error) {
	c, err := genai.NewClient(ctx, projectID, location, opts...)
	if err != nil {
		return nil, fmt.Errorf("vertex client: %w", err)
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	m := c.GenerativeModel(modelName)
	m.SetMaxOutputTokens(MaxAnswerTokens)
	m.SetTemperature(0)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	return &Gemini{client: c, model: m}, nil
}

func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *Gemini) Answer(ctx context.Context, imagePath, question string) (string, error) {
	q, err := checkQuestion(question)
	if err != nil {
		return "", err
	}

	img, err := loadImage(imagePath)
	if err != nil {
		return "", err
	}

	format := strings.TrimPrefix(img.mime, "image/")
	resp, err := g.model.GenerateContent(ctx, genai.ImageData(format, img.data), genai.Text(q))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	answer := CleanAnswer(responseText(resp))
	if answer == "" {
		return "", fmt.Errorf("empty answer")
	}
	return answer, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		// first candidate only
		break
	}
	return sb.String()
}
