package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const SampleRate = 16000

var ErrNoSpeech = errors.New("no speech detected")

// VAD holds the end-of-speech thresholds used by RecordAuto.
type VAD struct {
	FrameSize        int
	SilenceThreshRMS float64
	SilenceDuration  time.Duration
	MaxLength        time.Duration
}

func DefaultVAD() VAD {
	return VAD{
		FrameSize:        320, // 20ms
		SilenceThreshRMS: 0.015,
		SilenceDuration:  600 * time.Millisecond,
		MaxLength:        10 * time.Second,
	}
}

func (v VAD) frameDuration() time.Duration {
	return time.Duration(v.FrameSize) * time.Second / SampleRate
}

type Recorder struct {
	vad VAD
}

func NewRecorder(vad VAD) *Recorder { return &Recorder{vad: vad} }

func (r *Recorder) Init() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	return nil
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// RecordAuto listens on the default input until speech is followed by
// VAD.SilenceDuration of quiet. Returns mono 16 kHz samples.
func (r *Recorder) RecordAuto(ctx context.Context) ([]float32, error) {
	buf := make([]float32, r.vad.FrameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	defer stream.Stop()

	ep := newEndpointer(r.vad)

	for !ep.done() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("read input stream: %w", err)
		}
		ep.push(buf)
	}

	if len(ep.out) == 0 {
		return nil, ErrNoSpeech
	}

	return ep.out, nil
}

// endpointer keeps voiced frames plus trailing silence and stops once the
// silence after speech is long enough or the max length is reached.
type endpointer struct {
	vad           VAD
	out           []float32
	speaking      bool
	silenceFrames int
	frames        int
	maxFrames     int
	silenceLimit  int
	stopped       bool
}

func newEndpointer(vad VAD) *endpointer {
	fd := vad.frameDuration()
	silenceLimit := int(vad.SilenceDuration / fd)
	if silenceLimit < 1 {
		silenceLimit = 1
	}

	return &endpointer{
		vad:          vad,
		out:          make([]float32, 0, SampleRate*3),
		maxFrames:    int(vad.MaxLength / fd),
		silenceLimit: silenceLimit,
	}
}

func (e *endpointer) push(frame []float32) {
	e.frames++
	if e.frames >= e.maxFrames {
		e.stopped = true
	}

	if frameRMS(frame) > e.vad.SilenceThreshRMS {
		e.speaking = true
		e.silenceFrames = 0
		e.out = append(e.out, frame...)
		return
	}

	if !e.speaking {
		return
	}

	e.silenceFrames++
	if e.silenceFrames >= e.silenceLimit {
		e.stopped = true
		return
	}
	e.out = append(e.out, frame...)
}

func (e *endpointer) done() bool { return e.stopped }

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
