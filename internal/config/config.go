package config

import (
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"
)

const (
	BackendGoogle  = "google"
	BackendOpenAI  = "openai"
	BackendWhisper = "whisper"
	BackendGemini  = "gemini"
)

var LogLevels = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

type Config struct {
	EnvFile  string
	LogLevel string
	Addr     string
	Proxy    string

	StaticDir string
	UploadDir string
	CameraID  int

	Language     string
	STT          string
	QuestionFile string
	CueFile      string

	VQA      string
	VQAModel string

	TTS       string
	TTSModel  string
	Voice     string
	Duck      bool
	DuckLevel float64

	OpenAIKey     string
	OpenAIBaseURL string
	GCPProject    string
	GCPLocation   string
}

// Load parses args (without the program name), then fills secrets from the
// environment after loading the env file. A missing env file is not an error.
func Load(args []string) (*Config, error) {
	var c Config

	fs := cli.NewFlagSet("vqa-daemon", cli.ContinueOnError)
	fs.StringVarP(&c.EnvFile, "env", "e", ".env", "Env file path")
	fs.StringVarP(&c.LogLevel, "log", "l", "info", "Log level (debug|info|warn|error)")
	fs.StringVarP(&c.Addr, "addr", "a", ":5000", "HTTP listen address")
	fs.StringVarP(&c.Proxy, "proxy", "p", "", "Socks Proxy Address for the OpenAI and Google Cloud clients")
	fs.StringVar(&c.StaticDir, "static", "static", "Directory served under /static")
	fs.StringVar(&c.UploadDir, "uploads", "", "Directory for the captured image (default <static>/uploads)")
	fs.IntVarP(&c.CameraID, "camera", "c", 0, "Camera device index")
	fs.StringVar(&c.Language, "lang", "en-US", "Language for recognition and speech")
	fs.StringVar(&c.STT, "stt", BackendGoogle, "Speech-to-text backend (google|whisper)")
	fs.StringVar(&c.QuestionFile, "question-file", "", "Read the question from an audio file instead of the microphone")
	fs.StringVar(&c.CueFile, "cue", "", "Sound played before listening")
	fs.StringVar(&c.VQA, "vqa", BackendOpenAI, "Answer backend (openai|gemini)")
	fs.StringVar(&c.VQAModel, "vqa-model", "", "Vision model name")
	fs.StringVar(&c.TTS, "tts", BackendGoogle, "Text-to-speech backend (google|openai)")
	fs.StringVar(&c.TTSModel, "tts-model", "", "OpenAI speech model")
	fs.StringVar(&c.Voice, "voice", "alloy", "OpenAI voice")
	fs.BoolVar(&c.Duck, "duck", true, "Lower other audio while speaking")
	fs.Float64Var(&c.DuckLevel, "duck-level", 0.3, "Volume factor for other audio while speaking")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := godotenv.Load(c.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", c.EnvFile, err)
	}

	c.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	c.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	c.GCPProject = os.Getenv("GOOGLE_CLOUD_PROJECT")
	c.GCPLocation = os.Getenv("GOOGLE_CLOUD_LOCATION")
	if c.GCPLocation == "" {
		c.GCPLocation = "us-central1"
	}

	if c.UploadDir == "" {
		c.UploadDir = filepath.Join(c.StaticDir, "uploads")
	}
	if c.VQAModel == "" {
		c.VQAModel = defaultModel(c.VQA)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func defaultModel(backend string) string {
	if backend == BackendGemini {
		return "gemini-1.5-flash"
	}
	return "gpt-4o-mini"
}

func (c *Config) Validate() error {
	if _, ok := LogLevels[c.LogLevel]; !ok {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if !slices.Contains([]string{BackendGoogle, BackendWhisper}, c.STT) {
		return fmt.Errorf("unknown stt backend %q", c.STT)
	}
	if !slices.Contains([]string{BackendOpenAI, BackendGemini}, c.VQA) {
		return fmt.Errorf("unknown vqa backend %q", c.VQA)
	}
	if !slices.Contains([]string{BackendGoogle, BackendOpenAI}, c.TTS) {
		return fmt.Errorf("unknown tts backend %q", c.TTS)
	}
	if c.NeedsOpenAI() && c.OpenAIKey == "" && c.OpenAIBaseURL == "" {
		return errors.New("OPENAI_API_KEY not set")
	}
	if c.VQA == BackendGemini && c.GCPProject == "" {
		return errors.New("GOOGLE_CLOUD_PROJECT not set")
	}
	if c.DuckLevel < 0 || c.DuckLevel > 1 {
		return fmt.Errorf("duck-level %v out of [0, 1]", c.DuckLevel)
	}
	return nil
}

func (c *Config) NeedsOpenAI() bool {
	return c.STT == BackendWhisper || c.VQA == BackendOpenAI || c.TTS == BackendOpenAI
}
