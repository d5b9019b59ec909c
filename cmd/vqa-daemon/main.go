package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"vqa/internal/audio"
	"vqa/internal/camera"
	"vqa/internal/config"
	"vqa/internal/pipeline"
	"vqa/internal/proxy"
	"vqa/internal/question"
	"vqa/internal/speech"
	"vqa/internal/stt"
	"vqa/internal/tts"
	"vqa/internal/vqa"
	"vqa/internal/web"
)

const appName = "vqa-daemon"

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Error("Bad configuration", "err", err)
		os.Exit(2)
	}

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      config.LogLevels[cfg.LogLevel],
		TimeFormat: time.TimeOnly,
	})))

	log.Info("Booting up")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient, err := proxy.NewHTTPClient(cfg.Proxy)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", cfg.Proxy, "err", err)
		os.Exit(1)
	}

	gcpOpts, err := proxy.GRPCOptions(cfg.Proxy)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", cfg.Proxy, "err", err)
		os.Exit(1)
	}

	var client openai.Client
	if cfg.NeedsOpenAI() {
		opts := []option.RequestOption{option.WithHTTPClient(httpClient)}
		if cfg.OpenAIKey != "" {
			opts = append(opts, option.WithAPIKey(cfg.OpenAIKey))
		}
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
		}
		client = openai.NewClient(opts...)
		log.Debug("Loaded OpenAI client", "base_url", cfg.OpenAIBaseURL)
	}

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	player := audio.NewPlayer()

	var src question.Source
	if cfg.QuestionFile != "" {
		src = question.NewFile(cfg.QuestionFile)
		log.Info("Questions come from file", "path", cfg.QuestionFile)
	} else {
		rec := audio.NewRecorder(audio.DefaultVAD())
		if err := rec.Init(); err != nil {
			log.Error("Failed to init audio", "err", err)
			os.Exit(1)
		}
		defer rec.Close()
		src = question.NewMic(rec)
	}

	log.Debug("Loaded recorder")

	var transcriber stt.Transcriber
	switch cfg.STT {
	case config.BackendWhisper:
		transcriber = stt.NewWhisper(client, "", cfg.Language)
	default:
		g, err := stt.NewGoogleSpeech(ctx, cfg.Language, gcpOpts...)
		if err != nil {
			log.Error("Failed to init speech recognition", "err", err)
			os.Exit(1)
		}
		closers = append(closers, g)
		transcriber = g
	}

	log.Debug("Loaded transcriber", "backend", cfg.STT)

	var answerer vqa.Answerer
	switch cfg.VQA {
	case config.BackendGemini:
		g, err := vqa.NewGemini(ctx, cfg.GCPProject, cfg.GCPLocation, cfg.VQAModel, gcpOpts...)
		if err != nil {
			log.Error("Failed to init vision model", "err", err)
			os.Exit(1)
		}
		closers = append(closers, g)
		answerer = g
	default:
		answerer = vqa.NewOpenAI(client, cfg.VQAModel)
	}

	log.Debug("Loaded model", "backend", cfg.VQA, "model", cfg.VQAModel)

	var synth tts.Synthesizer
	switch cfg.TTS {
	case config.BackendOpenAI:
		synth = tts.NewOpenAI(client, cfg.TTSModel, cfg.Voice)
	default:
		g, err := tts.NewGoogle(ctx, cfg.Language, gcpOpts...)
		if err != nil {
			log.Error("Failed to init speech synthesis", "err", err)
			os.Exit(1)
		}
		closers = append(closers, g)
		synth = g
	}

	log.Debug("Loaded synthesizer", "backend", cfg.TTS)

	speaker := speech.NewSpeaker(synth, player)
	if cfg.Duck {
		speaker.WithDucker(audio.NewDucker([]string{appName}, cfg.DuckLevel, 5, 300*time.Millisecond))
	}

	listener := question.NewListener(src, transcriber)
	if cfg.CueFile != "" {
		listener.WithCue(player, cfg.CueFile)
	}

	p := pipeline.New(camera.New(cfg.CameraID, cfg.UploadDir), listener, answerer, speaker)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := web.NewRouter(p, cfg.StaticDir)
	if err != nil {
		log.Error("Failed to build router", "err", err)
		os.Exit(1)
	}

	log.Info("Boot up - successful")

	if err := web.Serve(ctx, cfg.Addr, router); err != nil {
		log.Error("Failed http server", "err", err)
		os.Exit(1)
	}

	log.Info("Shut down")
}
