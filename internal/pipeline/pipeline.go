package pipeline

import (
	"context"
	log "log/slog"
	"sync"
	"time"
)

type Camera interface {
	Capture(ctx context.Context) (string, error)
}

type Listener interface {
	Ask(ctx context.Context) (string, bool)
}

type Answerer interface {
	Answer(ctx context.Context, imagePath, question string) (string, error)
}

type Speaker interface {
	Say(ctx context.Context, text string)
}

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeError
	OutcomeNoQuestion
	OutcomeAnswerFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeError:
		return "error"
	case OutcomeNoQuestion:
		return "no_question"
	case OutcomeAnswerFailed:
		return "answer_failed"
	default:
		return "unknown"
	}
}

type Result struct {
	Outcome   Outcome
	Question  string
	Answer    string
	ImagePath string
	Err       error
}

// Pipeline drives capture -> question -> answer -> speech for one request.
// Runs are serialized: there is one camera, one microphone and one image path.
type Pipeline struct {
	mu       sync.Mutex
	camera   Camera
	listener Listener
	answerer Answerer
	speaker  Speaker
}

func New(c Camera, l Listener, a Answerer, s Speaker) *Pipeline {
	return &Pipeline{camera: c, listener: l, answerer: a, speaker: s}
}

func (p *Pipeline) Run(ctx context.Context) Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()

	imgPath, err := p.camera.Capture(ctx)
	if err != nil {
		log.Error("Failed to capture image", "err", err)
		return Result{Outcome: OutcomeError, Err: err}
	}

	question, ok := p.listener.Ask(ctx)
	if !ok {
		return Result{Outcome: OutcomeNoQuestion, ImagePath: imgPath}
	}

	answer, err := p.answerer.Answer(ctx, imgPath, question)
	if err != nil {
		log.Error("Failed to generate answer", "question", question, "err", err)
		return Result{Outcome: OutcomeAnswerFailed, Question: question, ImagePath: imgPath, Err: err}
	}

	log.Info("Answer", "question", question, "answer", answer)

	p.speaker.Say(ctx, answer)

	log.Debug("Pipeline done", "took", time.Since(start))

	return Result{
		Outcome:   OutcomeSuccess,
		Question:  question,
		Answer:    answer,
		ImagePath: imgPath,
	}
}
