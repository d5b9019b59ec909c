package speech

import (
	"context"
	"fmt"
	log "log/slog"
	"os"

	"vqa/internal/tts"
)

type player interface {
	PlayFile(ctx context.Context, path string) error
}

type ducker interface {
	Duck(ctx context.Context) error
	Unduck(ctx context.Context) error
}

// Speaker reads answers out loud. Nothing it does can fail a request.
type Speaker struct {
	synth  tts.Synthesizer
	player player
	ducker ducker
	tmpDir string
}

func NewSpeaker(synth tts.Synthesizer, p player) *Speaker {
	return &Speaker{synth: synth, player: p}
}

// WithDucker lowers other applications while speaking.
func (s *Speaker) WithDucker(d ducker) *Speaker {
	s.ducker = d
	return s
}

func (s *Speaker) Say(ctx context.Context, text string) {
	if text == "" {
		return
	}

	path, err := s.synthesize(ctx, text)
	if path != "" {
		defer func() {
			if err := os.Remove(path); err != nil {
				log.Warn("Failed to remove speech file", "path", path, "err", err)
			}
		}()
	}
	if err != nil {
		log.Error("Failed to synthesize answer", "err", err)
		return
	}

	if s.ducker != nil {
		if err := s.ducker.Duck(ctx); err != nil {
			log.Warn("Failed to duck other streams", "err", err)
		}
		defer func() {
			if err := s.ducker.Unduck(context.WithoutCancel(ctx)); err != nil {
				log.Warn("Failed to restore other streams", "err", err)
			}
		}()
	}

	if err := s.player.PlayFile(ctx, path); err != nil {
		log.Error("An error occurred while playing the answer", "err", err)
		return
	}

	log.Debug("Spoke answer", "chars", len(text))
}

// synthesize returns the temp file path even on failure so the caller can
// remove it.
func (s *Speaker) synthesize(ctx context.Context, text string) (string, error) {
	f, err := os.CreateTemp(s.tmpDir, "vqa-answer-*.mp3")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()

	if err := s.synth.Synthesize(ctx, text, f); err != nil {
		f.Close()
		return path, err
	}
	if err := f.Close(); err != nil {
		return path, fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}
