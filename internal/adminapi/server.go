// Package adminapi is the read-only HTTP introspection surface over a
// live router.Router: connected sessions, live topics and subscriber
// counts, live registrations, and a Prometheus /metrics endpoint.
// Its route table and middleware chain, JWT/CORS/recovery middlewares,
// handler shape, and request/response structs follow the pattern used
// elsewhere in this codebase for HTTP admin surfaces, generalized from
// a client-facing event API to a router-operator one.
package adminapi

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CHOUAiB/wampcore/internal/router"
)

// Config holds the admin server's construction parameters.
type Config struct {
	Addr      string
	JWTSecret string
	// NoAuth disables bearer-token checks, for local development.
	NoAuth bool
	// Registry is the Prometheus registry /metrics serves. A nil
	// Registry disables the /metrics route.
	Registry *prometheus.Registry
}

// Server is the admin HTTP API.
type Server struct {
	httpServer *http.Server
}

// NewServer builds an admin Server over r, not yet listening.
func NewServer(r *router.Router, cfg Config) *Server {
	handlers := newHandlers(r)
	auth := newTokenAuth(cfg.JWTSecret)

	mux := http.NewServeMux()

	wrap := func(h http.HandlerFunc) http.Handler {
		return recovery(authRequired(auth, cfg.NoAuth, cors(h)))
	}

	mux.Handle("/api/v1/sessions", wrap(handlers.Sessions))
	mux.Handle("/api/v1/realms", wrap(handlers.Realms))
	mux.Handle("/api/v1/realms/", wrap(dispatchRealmPath(handlers)))
	mux.Handle("/api/v1/health", recovery(cors(handlers.Health)))
	mux.Handle("/api/v1/auth/token", recovery(cors(issueTokenHandler(auth))))

	if cfg.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	return &Server{httpServer: &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}}
}

// dispatchRealmPath routes /api/v1/realms/{realm}/{topics,registrations}
// to the matching handler based on the path suffix.
func dispatchRealmPath(h *Handlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case len(r.URL.Path) >= len("/topics") && r.URL.Path[len(r.URL.Path)-len("/topics"):] == "/topics":
			h.Topics(w, r)
		case len(r.URL.Path) >= len("/registrations") && r.URL.Path[len(r.URL.Path)-len("/registrations"):] == "/registrations":
			h.Registrations(w, r)
		default:
			writeError(w, "not found", http.StatusNotFound)
		}
	}
}

func cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

// Start runs the admin HTTP server until it is closed via Stop.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the admin HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
