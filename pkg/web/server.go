// Package web serves the report form and the generated documents.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/matiasinsaurralde/relatorio/pkg/config"
	"github.com/matiasinsaurralde/relatorio/pkg/processor"
	"github.com/matiasinsaurralde/relatorio/pkg/store"
	"github.com/rs/zerolog"
)

const (
	// requestTimeout covers photo preparation and the narrative clean up:
	requestTimeout  = 120 * time.Second
	shutdownTimeout = 10 * time.Second
)

//go:embed templates/*.html
var templatesFS embed.FS

// Server wraps the HTTP surface:
type Server struct {
	cfg       *config.Config
	store     *store.Store
	processor *processor.Processor
	logger    zerolog.Logger
	tmpl      *template.Template
}

// New parses the embedded templates and returns a server:
func New(cfg *config.Config, store *store.Store, processor *processor.Processor, logger zerolog.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:       cfg,
		store:     store,
		processor: processor,
		logger:    logger,
		tmpl:      tmpl,
	}
	return s, nil
}

// Routes returns the router with every handler and middleware mounted:
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/", s.index)
	r.Route("/reports", func(r chi.Router) {
		r.Get("/", s.listReports)
		r.Post("/", s.createReport)
		r.Get("/{id}", s.downloadReport)
		r.Delete("/{id}", s.deleteReport)
	})
	return r
}

// ListenAndServe blocks until ctx is cancelled or the listener fails:
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      requestTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Msgf("web listening on %s", s.cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info().Msg("shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLogger logs one line per request with the chi request ID:
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ts := time.Now()
			defer func() {
				logger.Info().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("took", time.Since(ts)).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
