// Package vqa answers natural-language questions about a still image.
//
// Backends are built once at startup and shared by every request. Each call
// re-reads the image from disk, asks for at most MaxAnswerTokens tokens with
// greedy decoding and returns the answer with special tokens removed.
package vqa

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const MaxAnswerTokens = 50

const systemPrompt = `You answer questions about a single photo taken by a webcam.
Reply with the shortest answer that is correct: a word or a short phrase.
No explanations, no punctuation at the end.`

var ErrEmptyQuestion = errors.New("empty question")

type Answerer interface {
	Answer(ctx context.Context, imagePath, question string) (string, error)
}

var specialTokenRe = regexp.MustCompile(`\[(?:CLS|SEP|PAD|UNK|MASK)\]|</?s>|<pad>|<unk>|<\|[^|>]*\|>`)

// CleanAnswer drops tokenizer control tokens and normalizes whitespace.
func CleanAnswer(s string) string {
	s = specialTokenRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

type image struct {
	data []byte
	mime string
}

func loadImage(path string) (image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return image{}, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return image{}, fmt.Errorf("read image: %s is empty", path)
	}

	mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if !strings.HasPrefix(mt, "image/") {
		mt = "image/jpeg"
	}
	return image{data: data, mime: mt}, nil
}

func checkQuestion(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", ErrEmptyQuestion
	}
	return q, nil
}
