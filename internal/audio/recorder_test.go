package audio

import (
	"math"
	"testing"
	"time"
)

func tone(n int, amp float32) []float32 {
	f := make([]float32, n)
	for i := range f {
		f[i] = amp * float32(math.Sin(float64(i)))
	}
	return f
}

func TestFrameRMS(t *testing.T) {
	if got := frameRMS(nil); got != 0 {
		t.Errorf("rms(nil) = %v", got)
	}
	if got := frameRMS([]float32{0.5, -0.5, 0.5, -0.5}); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("rms = %v, want 0.5", got)
	}
}

func TestEndpointer_StopsAfterSilence(t *testing.T) {
	vad := DefaultVAD()
	ep := newEndpointer(vad)

	silence := make([]float32, vad.FrameSize)
	voice := tone(vad.FrameSize, 0.5)

	// leading silence is dropped
	for i := 0; i < 5; i++ {
		ep.push(silence)
	}
	if len(ep.out) != 0 || ep.done() {
		t.Fatal("leading silence should not be kept or stop recording")
	}

	for i := 0; i < 10; i++ {
		ep.push(voice)
	}

	// 600ms / 20ms = 30 frames of silence ends the utterance
	for i := 0; i < 29; i++ {
		ep.push(silence)
		if ep.done() {
			t.Fatalf("stopped early after %d silent frames", i+1)
		}
	}
	ep.push(silence)
	if !ep.done() {
		t.Fatal("should stop after silence duration")
	}

	want := (10 + 29) * vad.FrameSize
	if len(ep.out) != want {
		t.Errorf("kept %d samples, want %d", len(ep.out), want)
	}
}

func TestEndpointer_MaxLength(t *testing.T) {
	vad := DefaultVAD()
	vad.MaxLength = 100 * time.Millisecond
	ep := newEndpointer(vad)

	voice := tone(vad.FrameSize, 0.5)
	for i := 0; i < 5; i++ {
		ep.push(voice)
	}
	if !ep.done() {
		t.Error("should stop at max length")
	}
}
