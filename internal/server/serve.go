package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"moodify/internal/shared"
)

// Server wires the routers, middleware and handlers into one http.Server.
type Server struct {
	httpServer *http.Server
	router     *BasicRouter
	logger     *log.Logger
}

// NewServer assembles the full route table.
//
// Requests per second across all clients are capped by the limiter; this is
// an outer guard against runaway clients, distinct from the per-catalog 429
// mapping in the API handlers.
func NewServer(addr string, auth *Auth, api *API, logger *log.Logger) *Server {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(logger), RateLimit(rate.NewLimiter(rate.Limit(20), 40)))

	router.Handle(http.MethodGet, "/auth/login", http.HandlerFunc(auth.Login))
	router.Handle(http.MethodGet, "/auth/callback", http.HandlerFunc(auth.Callback))
	router.Handle(http.MethodPost, "/auth/logout", http.HandlerFunc(auth.Logout))

	router.Handle(http.MethodPost, "/api/suggest-songs", http.HandlerFunc(api.SuggestSongs))
	router.Handle(http.MethodGet, "/api/me", http.HandlerFunc(api.Me))
	router.HandleMethods("/api/profile", map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(api.GetProfile),
		http.MethodPut: http.HandlerFunc(api.UpdateProfile),
	})

	router.Handle(http.MethodGet, "/healthz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, actionResponse{Success: true})
	}))

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		router: router,
		logger: logger,
	}
}

// Handler exposes the assembled route table, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe runs the server until the context is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
