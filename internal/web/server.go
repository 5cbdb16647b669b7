// Package web serves the search page and its JSON/SSE API.
package web

import (
	"context"
	"embed"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/kevinmichaelchen/profile-lens/internal/models"
	"github.com/kevinmichaelchen/profile-lens/internal/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Searcher is the slice of the orchestrator the web layer drives.
type Searcher interface {
	Run(ctx context.Context, query string) session.State
	Current() session.State
	Subscribe(fn func(session.State)) func()
}

// History lists past lookups. It is optional.
type History interface {
	Recent(ctx context.Context, limit int) ([]models.Snapshot, error)
}

type Server struct {
	searcher  Searcher
	history   History
	logger    *slog.Logger
	heartbeat time.Duration
}

// NewServer wires handlers around searcher. history may be nil.
func NewServer(searcher Searcher, history History, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		searcher:  searcher,
		history:   history,
		logger:    logger,
		heartbeat: 30 * time.Second,
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.logger))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))

	tmpl := template.Must(template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html"))
	router.SetHTMLTemplate(tmpl)

	router.GET("/", s.Index)
	router.POST("/search", s.SubmitSearch)

	api := router.Group("/api")
	{
		api.GET("/health", s.Health)
		api.GET("/state", s.State)
		api.POST("/search", s.Search)
		api.GET("/events", s.Events)
		api.GET("/history", s.History)
	}

	return router
}

// ListenAndServe runs until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
