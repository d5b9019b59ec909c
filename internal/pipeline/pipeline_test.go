package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeCamera struct {
	path  string
	err   error
	calls int
}

func (c *fakeCamera) Capture(context.Context) (string, error) {
	c.calls++
	return c.path, c.err
}

type fakeListener struct {
	text  string
	ok    bool
	calls int
}

func (l *fakeListener) Ask(context.Context) (string, bool) {
	l.calls++
	return l.text, l.ok
}

type fakeAnswerer struct {
	answer string
	err    error
	calls  int
	gotImg string
	gotQ   string
}

func (a *fakeAnswerer) Answer(_ context.Context, img, q string) (string, error) {
	a.calls++
	a.gotImg, a.gotQ = img, q
	return a.answer, a.err
}

type fakeSpeaker struct {
	said []string
}

func (s *fakeSpeaker) Say(_ context.Context, text string) {
	s.said = append(s.said, text)
}

func TestRun_Success(t *testing.T) {
	cam := &fakeCamera{path: "static/uploads/captured_image.jpg"}
	lis := &fakeListener{text: "what color is the object", ok: true}
	ans := &fakeAnswerer{answer: "red"}
	spk := &fakeSpeaker{}

	res := New(cam, lis, ans, spk).Run(context.Background())

	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	if res.Question != "what color is the object" || res.Answer != "red" || res.ImagePath != cam.path {
		t.Errorf("result = %+v", res)
	}
	if ans.gotImg != cam.path || ans.gotQ != lis.text {
		t.Errorf("answerer got (%q, %q)", ans.gotImg, ans.gotQ)
	}
	if len(spk.said) != 1 || spk.said[0] != "red" {
		t.Errorf("said = %v", spk.said)
	}
}

func TestRun_CameraFailureShortCircuits(t *testing.T) {
	cam := &fakeCamera{err: errors.New("failed to open webcam")}
	lis := &fakeListener{ok: true}
	ans := &fakeAnswerer{}
	spk := &fakeSpeaker{}

	res := New(cam, lis, ans, spk).Run(context.Background())

	if res.Outcome != OutcomeError || res.Err == nil {
		t.Fatalf("result = %+v", res)
	}
	if lis.calls != 0 || ans.calls != 0 || len(spk.said) != 0 {
		t.Errorf("later stages ran: listener=%d answerer=%d speaker=%d", lis.calls, ans.calls, len(spk.said))
	}
}

func TestRun_NoQuestionSkipsModel(t *testing.T) {
	lis := &fakeListener{}
	ans := &fakeAnswerer{}
	spk := &fakeSpeaker{}

	res := New(&fakeCamera{path: "img.jpg"}, lis, ans, spk).Run(context.Background())

	if res.Outcome != OutcomeNoQuestion {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	if ans.calls != 0 || len(spk.said) != 0 {
		t.Errorf("model or speaker invoked without a question")
	}
}

func TestRun_AnswerFailure(t *testing.T) {
	spk := &fakeSpeaker{}
	res := New(
		&fakeCamera{path: "img.jpg"},
		&fakeListener{text: "what", ok: true},
		&fakeAnswerer{err: errors.New("model crashed")},
		spk,
	).Run(context.Background())

	if res.Outcome != OutcomeAnswerFailed || res.Err == nil {
		t.Fatalf("result = %+v", res)
	}
	if len(spk.said) != 0 {
		t.Error("nothing should be spoken when the model fails")
	}
}

type slowCamera struct {
	active, peak int32
}

func (c *slowCamera) Capture(context.Context) (string, error) {
	n := atomic.AddInt32(&c.active, 1)
	for {
		p := atomic.LoadInt32(&c.peak)
		if n <= p || atomic.CompareAndSwapInt32(&c.peak, p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&c.active, -1)
	return "img.jpg", nil
}

func TestRun_Serialized(t *testing.T) {
	cam := &slowCamera{}
	p := New(cam, &fakeListener{}, &fakeAnswerer{}, &fakeSpeaker{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Run(context.Background())
		}()
	}
	wg.Wait()

	if cam.peak != 1 {
		t.Errorf("peak concurrent captures = %d, want 1", cam.peak)
	}
}

func TestOutcome_String(t *testing.T) {
	for o, want := range map[Outcome]string{
		OutcomeSuccess:      "success",
		OutcomeError:        "error",
		OutcomeNoQuestion:   "no_question",
		OutcomeAnswerFailed: "answer_failed",
		Outcome(42):         "unknown",
	} {
		if o.String() != want {
			t.Errorf("%d.String() = %q, want %q", o, o.String(), want)
		}
	}
}
