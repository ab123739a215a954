package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func (s *Server) routes() chi.Router {
	router := chi.NewRouter()

	// Middleware stack
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggerMiddleware(s.logger))
	router.Use(s.metrics.Middleware)
	router.Use(middleware.Recoverer)
	if d := seconds(s.cfg.Server.WriteTimeout); d > 0 {
		router.Use(middleware.Timeout(d))
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/", s.handleRoot)
	router.Get("/health", s.handleHealth)
	router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	router.Post("/logs", s.handleCreateLog)
	router.Get("/logs", s.handleListLogs)
	router.Delete("/logs/demo", s.handlePurgeDemo)
	router.Get("/analysis", s.handleAnalysis)
	router.Post("/chat", s.handleChat)
	router.Get("/stats", s.handleStats)

	// Demo fixtures
	router.Post("/simulate-attack", s.handleSimulateAttack)
	router.Get("/threat-intelligence", s.handleThreatIntelligence)
	router.Get("/attack-map", s.handleAttackMap)
	router.Post("/execute-action", s.handleExecuteAction)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "endpoint not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return router
}

// LoggerMiddleware logs one line per request.
func LoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("HTTP request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Int("status", ww.Status()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
