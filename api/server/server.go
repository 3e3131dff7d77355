// Package server exposes the ledger node over HTTP: the contract call
// surface (call/describe/provision), health and readiness probes, and node
// metrics. Transport auth is an API key or a bearer token; record-level
// authorization is intentionally absent; the contract is a permissionless
// index.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"medledger/core/config"
	"medledger/core/ledger"
)

type Server struct {
	cfg     *config.Config
	ledger  *ledger.Ledger
	log     zerolog.Logger
	methods map[string]methodFunc
	mux     *http.ServeMux
	httpSrv *http.Server
	started time.Time
}

func New(cfg *config.Config, led *ledger.Ledger, log zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		ledger:  led,
		log:     log,
		methods: map[string]methodFunc{},
		mux:     http.NewServeMux(),
		started: time.Now(),
	}
	s.registerMethods()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health/liveness", s.handleLiveness)
	s.mux.HandleFunc("/health/readiness", s.handleReadiness)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/nodehealth", s.handleNodeHealth)

	s.mux.HandleFunc("/api/v1/describe", s.handleDescribe)
	s.mux.HandleFunc("/api/v1/contract", s.handleContract)
	s.mux.HandleFunc("/api/v1/provision", s.requireAuth(s.handleProvision))
	s.mux.HandleFunc("/api/v1/call", s.handleCall)
}

// Handler exposes the routing table, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info().Str("addr", s.cfg.ListenAddr).Msg("ledger node listening")
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// requireAuth accepts either the configured API key (X-API-Key) or an HMAC
// bearer token signed with the JWT secret. With neither credential
// configured, the node is in an open development posture and logs a warning
// per request instead of rejecting.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey == "" && s.cfg.JWTSecret == "" {
			s.log.Warn().Str("path", r.URL.Path).Msg("no API key or JWT secret configured; accepting unauthenticated request")
			next(w, r)
			return
		}

		if key := r.Header.Get("X-API-Key"); key != "" && s.cfg.APIKey != "" && key == s.cfg.APIKey {
			next(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") && s.cfg.JWTSecret != "" {
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(s.cfg.JWTSecret), nil
			})
			if err == nil && token.Valid {
				next(w, r)
				return
			}
			s.log.Warn().Err(err).Msg("rejected bearer token")
		}

		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
