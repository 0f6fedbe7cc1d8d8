package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"task-tracker/backend/internal/server/httpx"
)

const checkTimeout = 2 * time.Second

// Pinger checks a dependency. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RedisPinger adapts a go-redis client to Pinger.
type RedisPinger struct {
	Client redis.UniversalClient
}

// PingContext sends PING.
func (p RedisPinger) PingContext(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}

// Server serves liveness and readiness for Kubernetes, load balancers, and CI.
type Server struct {
	checks map[string]Pinger
}

// NewServer returns a Server that reports ready only when every named check pings.
// Nil pingers are skipped.
func NewServer(checks map[string]Pinger) *Server {
	s := &Server{checks: make(map[string]Pinger, len(checks))}
	for name, p := range checks {
		if p != nil {
			s.checks[name] = p
		}
	}
	return s
}

// Routes lists /healthz and /readyz.
func (s *Server) Routes() []httpx.Route {
	return []httpx.Route{
		{Pattern: "GET /healthz", Handler: http.HandlerFunc(s.live)},
		{Pattern: "GET /readyz", Handler: http.HandlerFunc(s.ready)},
	}
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) live(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, statusResponse{Status: "SERVING"})
}

// ready pings every dependency. A failing check yields 503 without leaking the error text.
func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()
	resp := statusResponse{Status: "SERVING", Checks: make(map[string]string, len(s.checks))}
	code := http.StatusOK
	for name, p := range s.checks {
		if err := p.PingContext(ctx); err != nil {
			resp.Checks[name] = "down"
			resp.Status = "NOT_SERVING"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "up"
	}
	httpx.WriteJSON(w, code, resp)
}
