package vqa

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	genai "cloud.google.com/go/vertexai/genai"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

func TestCleanAnswer(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"red", "red"},
		{"[CLS] red [SEP]", "red"},
		{"<s> two cats </s>", "two cats"},
		{"  a   blue\n mug <|endoftext|>", "a blue mug"},
		{"[PAD][PAD]", ""},
	}
	for _, tt := range tests {
		if got := CleanAnswer(tt.in); got != tt.want {
			t.Errorf("CleanAnswer(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "captured_image.jpg")
	if err := os.WriteFile(path, []byte{0xff, 0xd8, 0xff, 0xe0}, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

type chatServer struct {
	mu     sync.Mutex
	bodies []map[string]any
	reply  string
}

func (s *chatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	json.Unmarshal(raw, &body)

	s.mu.Lock()
	s.bodies = append(s.bodies, body)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "vqa-test",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": s.reply},
		}},
	})
}

func newOpenAI(t *testing.T, reply string) (*OpenAI, *chatServer) {
	t.Helper()
	cs := &chatServer{reply: reply}
	srv := httptest.NewServer(cs)
	t.Cleanup(srv.Close)

	client := openai.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(srv.URL),
		option.WithMaxRetries(0),
	)
	return NewOpenAI(client, "vqa-test"), cs
}

func TestOpenAI_Answer(t *testing.T) {
	o, cs := newOpenAI(t, " red [SEP]")
	img := writeImage(t)

	answer, err := o.Answer(context.Background(), img, "what color is the object")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "red" {
		t.Errorf("answer = %q, want red", answer)
	}

	body := cs.bodies[0]
	if body["max_completion_tokens"] != float64(MaxAnswerTokens) {
		t.Errorf("max_completion_tokens = %v", body["max_completion_tokens"])
	}
	if _, ok := body["max_tokens"]; ok {
		t.Error("deprecated max_tokens should not be sent")
	}
	if body["temperature"] != float64(0) {
		t.Errorf("temperature = %v", body["temperature"])
	}
	raw, _ := json.Marshal(body["messages"])
	if !strings.Contains(string(raw), "data:image/jpeg;base64,") {
		t.Error("request should carry the image as a data URL")
	}
	if !strings.Contains(string(raw), "what color is the object") {
		t.Error("request should carry the question")
	}
}

func TestOpenAI_Deterministic(t *testing.T) {
	o, _ := newOpenAI(t, "red")
	img := writeImage(t)

	first, err := o.Answer(context.Background(), img, "what color is the object")
	if err != nil {
		t.Fatal(err)
	}
	second, err := o.Answer(context.Background(), img, "what color is the object")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("answers differ: %q vs %q", first, second)
	}
}

func TestOpenAI_Errors(t *testing.T) {
	o, cs := newOpenAI(t, "red")

	if _, err := o.Answer(context.Background(), writeImage(t), "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("err = %v, want ErrEmptyQuestion", err)
	}
	if _, err := o.Answer(context.Background(), filepath.Join(t.TempDir(), "none.jpg"), "what"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want not exist", err)
	}
	if len(cs.bodies) != 0 {
		t.Errorf("model called %d times on invalid input", len(cs.bodies))
	}
}

type fakeGenerator struct {
	resp  *genai.GenerateContentResponse
	err   error
	parts []genai.Part
}

func (f *fakeGenerator) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.parts = parts
	return f.resp, f.err
}

func textResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func TestGemini_Answer(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(genai.Text("red"), genai.Text("</s>"))}
	g := &Gemini{model: gen}

	answer, err := g.Answer(context.Background(), writeImage(t), "what color is the object")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "red" {
		t.Errorf("answer = %q", answer)
	}

	if len(gen.parts) != 2 {
		t.Fatalf("parts = %d", len(gen.parts))
	}
	blob, ok := gen.parts[0].(genai.Blob)
	if !ok || blob.MIMEType != "image/jpeg" {
		t.Errorf("first part = %#v", gen.parts[0])
	}
	if q, ok := gen.parts[1].(genai.Text); !ok || string(q) != "what color is the object" {
		t.Errorf("second part = %#v", gen.parts[1])
	}
}

func TestGemini_Errors(t *testing.T) {
	g := &Gemini{model: &fakeGenerator{err: errors.New("quota")}}
	if _, err := g.Answer(context.Background(), writeImage(t), "what"); err == nil {
		t.Error("expected model error to propagate")
	}

	g = &Gemini{model: &fakeGenerator{resp: &genai.GenerateContentResponse{}}}
	if _, err := g.Answer(context.Background(), writeImage(t), "what"); err == nil {
		t.Error("expected error on empty answer")
	}
}
