package question

import (
	"context"
	"errors"
	log "log/slog"

	"vqa/internal/audio"
	"vqa/internal/stt"
	"vqa/pkg/audioconv"
)

// Source yields one utterance as mono 16 kHz samples.
type Source interface {
	Record(ctx context.Context) ([]float32, error)
}

type Mic struct {
	rec *audio.Recorder
}

func NewMic(rec *audio.Recorder) *Mic { return &Mic{rec: rec} }

func (m *Mic) Record(ctx context.Context) ([]float32, error) {
	return m.rec.RecordAuto(ctx)
}

// File replays a prerecorded question instead of listening.
type File struct {
	path string
}

func NewFile(path string) *File { return &File{path: path} }

func (f *File) Record(ctx context.Context) ([]float32, error) {
	return audioconv.ConvertFileToPCM16k(ctx, f.path, audioconv.Options{})
}

type cuePlayer interface {
	PlayFile(ctx context.Context, path string) error
}

type Listener struct {
	src     Source
	tr      stt.Transcriber
	cue     cuePlayer
	cuePath string
}

func NewListener(src Source, tr stt.Transcriber) *Listener {
	return &Listener{src: src, tr: tr}
}

// WithCue plays path before every recording.
func (l *Listener) WithCue(p cuePlayer, path string) *Listener {
	l.cue = p
	l.cuePath = path
	return l
}

// Ask records one question and transcribes it. The bool is false whenever no
// usable question came out; the reason is only logged.
func (l *Listener) Ask(ctx context.Context) (string, bool) {
	if l.cue != nil && l.cuePath != "" {
		if err := l.cue.PlayFile(ctx, l.cuePath); err != nil {
			log.Warn("Failed to play cue", "path", l.cuePath, "err", err)
		}
	}

	log.Info("Please ask a question about the captured image")

	pcm, err := l.src.Record(ctx)
	switch {
	case errors.Is(err, audio.ErrNoSpeech):
		log.Info("Sorry, I could not understand your question", "reason", err)
		return "", false
	case err != nil:
		log.Error("Failed to record question", "err", err)
		return "", false
	}

	log.Debug("Recorded", "samples", len(pcm))

	text, err := l.tr.Transcribe(ctx, pcm)
	if err != nil {
		var re *stt.RequestError
		if errors.As(err, &re) {
			log.Error("Could not request results from speech recognition service", "service", re.Service, "err", re.Err)
		} else {
			log.Info("Sorry, I could not understand your question", "reason", err)
		}
		return "", false
	}

	log.Info("You asked", "question", text)
	return text, true
}
