package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	log "log/slog"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"vqa/internal/pipeline"
)

const (
	NoQuestionMessage = "Sorry, I could not understand your question."
	StaticRoute       = "/static"
)

//go:embed templates/*.html
var templatesFS embed.FS

type Runner interface {
	Run(ctx context.Context) pipeline.Result
}

type Handler struct {
	runner    Runner
	staticDir string
}

// NewRouter serves the pipeline on GET / and staticDir under /static, the
// directory that holds the uploads folder.
func NewRouter(runner Runner, staticDir string) (*gin.Engine, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger())
	r.SetHTMLTemplate(tmpl)

	h := &Handler{runner: runner, staticDir: staticDir}
	r.GET("/", h.Index)
	r.Static(StaticRoute, staticDir)

	return r, nil
}

func (h *Handler) Index(c *gin.Context) {
	res := h.runner.Run(c.Request.Context())

	switch res.Outcome {
	case pipeline.OutcomeError:
		c.String(http.StatusOK, "Error: %v", res.Err)
	case pipeline.OutcomeNoQuestion:
		c.String(http.StatusOK, NoQuestionMessage)
	case pipeline.OutcomeAnswerFailed:
		if res.Err != nil {
			c.Error(res.Err)
		}
		c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	default:
		c.HTML(http.StatusOK, "index.html", gin.H{
			"question":   res.Question,
			"answer":     res.Answer,
			"image_path": res.ImagePath,
			"image_url":  h.imageURL(res.ImagePath),
		})
	}
}

func (h *Handler) imageURL(p string) string {
	rel, err := filepath.Rel(h.staticDir, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	return path.Join(StaticRoute, filepath.ToSlash(rel))
}

// Serve runs the HTTP server until ctx is done, then shuts it down.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
