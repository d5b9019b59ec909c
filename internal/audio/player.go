package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

type output interface {
	Init(sr beep.SampleRate, bufferSize int) error
	Play(s ...beep.Streamer)
	Clear()
	Close()
}

type speakerOutput struct{}

func (speakerOutput) Init(sr beep.SampleRate, n int) error { return speaker.Init(sr, n) }
func (speakerOutput) Play(s ...beep.Streamer)              { speaker.Play(s...) }
func (speakerOutput) Clear()                               { speaker.Clear() }
func (speakerOutput) Close()                               { speaker.Close() }

// Player plays whole files through the system speaker, one at a time.
type Player struct {
	out output
}

func NewPlayer() *Player { return &Player{out: speakerOutput{}} }

// PlayFile blocks until the file has been played or ctx is done. The speaker
// is opened for this file only and closed before returning.
func (p *Player) PlayFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	streamer, format, err := decode(f, path)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode %s: %w", path, err)
	}
	defer streamer.Close()

	if err := p.out.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("speaker init: %w", err)
	}
	defer p.out.Close()

	done := make(chan struct{})
	p.out.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.out.Clear()
		return ctx.Err()
	}
}

func decode(r io.ReadCloser, path string) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return wav.Decode(r)
	case ".mp3", "":
		return mp3.Decode(r)
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported audio file %q", path)
	}
}
