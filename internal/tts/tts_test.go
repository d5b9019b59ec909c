package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

func TestOpenAI_Synthesize(t *testing.T) {
	var body map[string]any
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3fake-mp3"))
	}))
	defer srv.Close()

	client := openai.NewClient(option.WithAPIKey("test"), option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	o := NewOpenAI(client, "", "nova")

	var out bytes.Buffer
	if err := o.Synthesize(context.Background(), "red", &out); err != nil {
		t.Fatal(err)
	}

	if out.String() != "ID3fake-mp3" {
		t.Errorf("audio = %q", out.String())
	}
	if !strings.HasSuffix(path, "/audio/speech") {
		t.Errorf("path = %q", path)
	}
	if body["input"] != "red" || body["voice"] != "nova" || body["model"] != "tts-1" || body["response_format"] != "mp3" {
		t.Errorf("body = %v", body)
	}
}

func TestOpenAI_SynthesizeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	client := openai.NewClient(option.WithAPIKey("test"), option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	if err := NewOpenAI(client, "", "").Synthesize(context.Background(), "red", io.Discard); err == nil {
		t.Error("expected error")
	}
}

type fakeSynth struct {
	resp *texttospeechpb.SynthesizeSpeechResponse
	err  error
	req  *texttospeechpb.SynthesizeSpeechRequest
}

func (f *fakeSynth) SynthesizeSpeech(_ context.Context, req *texttospeechpb.SynthesizeSpeechRequest, _ ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestGoogle_Synthesize(t *testing.T) {
	fs := &fakeSynth{resp: &texttospeechpb.SynthesizeSpeechResponse{AudioContent: []byte("mp3")}}
	g := &Google{client: fs, language: "en-US"}

	var out bytes.Buffer
	if err := g.Synthesize(context.Background(), "red", &out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "mp3" {
		t.Errorf("audio = %q", out.String())
	}
	if fs.req.GetVoice().GetLanguageCode() != "en-US" {
		t.Errorf("language = %q", fs.req.GetVoice().GetLanguageCode())
	}
	if fs.req.GetAudioConfig().GetAudioEncoding() != texttospeechpb.AudioEncoding_MP3 {
		t.Error("expected MP3 encoding")
	}
	if fs.req.GetInput().GetText() != "red" {
		t.Errorf("text = %q", fs.req.GetInput().GetText())
	}
}

func TestGoogle_SynthesizeErrors(t *testing.T) {
	g := &Google{client: &fakeSynth{err: errors.New("denied")}, language: "en-US"}
	if err := g.Synthesize(context.Background(), "red", io.Discard); err == nil {
		t.Error("expected request error")
	}

	g = &Google{client: &fakeSynth{resp: &texttospeechpb.SynthesizeSpeechResponse{}}, language: "en-US"}
	if err := g.Synthesize(context.Background(), "red", io.Discard); err == nil {
		t.Error("expected empty audio error")
	}
}

func TestGoogle_SatisfiesClient(t *testing.T) {
	var _ synthesizer = (*texttospeech.Client)(nil)
}
