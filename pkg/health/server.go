// Package health exposes the engine's operational HTTP surface: liveness,
// readiness, per-chain status, circuit breaker admin and Prometheus metrics.
package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hashdesk/intent-engine/pkg/circuitbreaker"
	"github.com/hashdesk/intent-engine/pkg/dedup"
	"github.com/hashdesk/intent-engine/pkg/logger"
	"github.com/hashdesk/intent-engine/pkg/registry"
)

// Server is the health and metrics HTTP server.
type Server struct {
	port          string
	registry      *registry.Registry
	breakers      *circuitbreaker.Set
	guard         *dedup.Store
	connected     func(chainID int) bool
	metricsAPIKey string
	log           logger.Logger
}

// NewServer creates a health server. connected reports whether an RPC client
// for the chain is up; a nil func means readiness only checks configuration.
func NewServer(port string, reg *registry.Registry, breakers *circuitbreaker.Set, guard *dedup.Store, connected func(chainID int) bool, metricsAPIKey string, log logger.Logger) *Server {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Server{
		port:          port,
		registry:      reg,
		breakers:      breakers,
		guard:         guard,
		connected:     connected,
		metricsAPIKey: metricsAPIKey,
		log:           log,
	}
}

// metricsAuthMiddleware checks for a valid bearer API key. Auth is skipped
// when no key is configured.
func (s *Server) metricsAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metricsAPIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		if parts[1] != s.metricsAPIKey {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Handler builds the server's mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if s.connected != nil {
			for _, chainID := range s.registry.ChainIDs() {
				if !s.connected(chainID) {
					w.WriteHeader(http.StatusServiceUnavailable)
					_, _ = w.Write([]byte(fmt.Sprintf("Chain %d client not connected", chainID)))
					return
				}
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ready"))
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		status := make(map[string]interface{})

		for _, chainID := range s.registry.ChainIDs() {
			info, _ := s.registry.Get(chainID)

			circuitStatus := "closed"
			if s.breakers != nil && s.breakers.For(chainID).IsOpen() {
				circuitStatus = "open"
			}

			chainStatus := map[string]interface{}{
				"name":    info.Name,
				"rpc_url": info.RPCURL,
				"circuit": circuitStatus,
			}
			if s.connected != nil {
				chainStatus["connected"] = s.connected(chainID)
			}

			status[fmt.Sprintf("chain_%d", chainID)] = chainStatus
		}

		if s.guard != nil {
			status["dedup_records"] = s.guard.Len()
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			s.log.Error("error encoding status JSON: %v", err)
		}
	})

	mux.HandleFunc("/circuit/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		chainIDStr := r.URL.Query().Get("chain")
		if chainIDStr == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("Missing chain parameter"))
			return
		}

		chainID, err := strconv.Atoi(chainIDStr)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("Invalid chain ID"))
			return
		}

		if s.breakers == nil {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("Circuit breakers not configured"))
			return
		}

		s.breakers.For(chainID).Reset()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(fmt.Sprintf("Circuit breaker for chain %d reset", chainID)))
	})

	mux.Handle("/metrics", s.metricsAuthMiddleware(promhttp.Handler()))

	return mux
}

// Start starts the health check server. It blocks.
func (s *Server) Start() {
	s.log.Notice("starting health and metrics server on port %s", s.port)
	if err := http.ListenAndServe(":"+s.port, s.Handler()); err != nil {
		s.log.Error("health server error: %v", err)
	}
}
