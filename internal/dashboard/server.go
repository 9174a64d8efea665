// Package dashboard serves the browser surface: server-rendered pages, a JSON
// state API and admin triggers. Every browser session owns its own explorer.
package dashboard

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gauguri/NobelPrediction/internal/explorer"
	"github.com/gauguri/NobelPrediction/internal/viewstate"
	"github.com/gauguri/NobelPrediction/pkg/nobelapi"
)

//go:embed templates/*.html
var templateFiles embed.FS

const sessionCookie = "nobel_session"

// Options configures a Server.
type Options struct {
	Client         nobelapi.Client
	NewExplorer    ExplorerFactory
	SessionTTL     time.Duration
	AllowedOrigins []string
	Logger         *zap.Logger
}

// Server is the dashboard HTTP handler.
type Server struct {
	router    chi.Router
	client    nobelapi.Client
	sessions  *Sessions
	templates *template.Template
	logger    *zap.Logger

	// Triggers started from the JSON API outlive their request.
	baseCtx context.Context
	wg      sync.WaitGroup
}

// New builds a Server. ctx bounds asynchronous triggers started by the JSON
// API; cancel it on shutdown and then call Wait.
func New(ctx context.Context, opts Options) (*Server, error) {
	if opts.Client == nil {
		return nil, eris.New("dashboard: client is required")
	}
	if opts.NewExplorer == nil {
		client := opts.Client
		opts.NewExplorer = func() *explorer.Explorer { return explorer.New(client) }
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.L()
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, eris.Wrap(err, "dashboard: parse templates")
	}

	s := &Server{
		router:    chi.NewRouter(),
		client:    opts.Client,
		sessions:  NewSessions(opts.NewExplorer, opts.SessionTTL, logger),
		templates: tmpl,
		logger:    logger,
		baseCtx:   ctx,
	}
	s.routes(opts.AllowedOrigins)
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions exposes the session registry so callers can run its sweeper.
func (s *Server) Sessions() *Sessions {
	return s.sessions
}

// Wait blocks until every asynchronous trigger has returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) routes(allowedOrigins []string) {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/reports/{format}", s.handleReport)

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)
		r.Get("/", s.handleIndex)
		r.Post("/select/{id}", s.handleSelectForm)
		r.Post("/deselect", s.handleDeselectForm)
	})

	r.Route("/api", func(r chi.Router) {
		if len(allowedOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   allowedOrigins,
				AllowedMethods:   []string{http.MethodGet, http.MethodPost},
				AllowedHeaders:   []string{"Content-Type"},
				AllowCredentials: true,
				MaxAge:           300,
			}))
		}
		r.Use(s.withSession)
		r.Get("/state", s.handleState)
		r.Post("/filter", s.handleFilter)
		r.Post("/candidates/{id}/select", s.handleSelect)
		r.Post("/deselect", s.handleDeselect)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/etl", s.handleAdmin("etl", s.client.TriggerETL))
		r.Post("/train", s.handleAdmin("train", s.client.TriggerTraining))
	})
}

type ctxKey struct{}

// withSession resolves the session cookie to an explorer, creating a new
// session when the cookie is missing or expired.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ex *explorer.Explorer
		if c, err := r.Cookie(sessionCookie); err == nil {
			ex, _ = s.sessions.Get(c.Value)
		}
		if ex == nil {
			var id string
			id, ex = s.sessions.Create()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, ex)))
	})
}

func explorerFrom(r *http.Request) *explorer.Explorer {
	ex, _ := r.Context().Value(ctxKey{}).(*explorer.Explorer)
	return ex
}

// async runs a trigger detached from the request.
func (s *Server) async(op string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := fn(s.baseCtx); err != nil && !eris.Is(err, explorer.ErrSuperseded) {
			s.logger.Warn("dashboard: trigger failed", zap.String("op", op), zap.Error(err))
		}
	}()
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

var funcMap = template.FuncMap{
	"pct":     viewstate.FormatProbability,
	"drivers": viewstate.TopDrivers,
	"signed": func(v float64) string {
		return formatSigned(v)
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "unknown"
		}
		return t.Format("2006-01-02")
	},
}
