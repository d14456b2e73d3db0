package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/arkvault/userstore/internal/app/service"
	"github.com/arkvault/userstore/internal/domain/shared"
	"github.com/arkvault/userstore/pkg/logger"
)

// HealthChecker reports whether a backing dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int           `json:"port"`
	Host         string        `json:"host"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// Server exposes the sign-in flow and health checks over HTTP
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
	mux        *http.ServeMux
	signIn     *service.SignInService
	checks     map[string]HealthChecker
}

// NewServer creates a new HTTP server
func NewServer(config ServerConfig, log *logger.Logger, signIn *service.SignInService, checks map[string]HealthChecker) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		logger: log.WithComponent("api"),
		mux:    mux,
		signIn: signIn,
		checks: checks,
	}

	s.setupRoutes()
	s.httpServer.Handler = mux

	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/health", s.healthCheckHandler)
	s.mux.HandleFunc("/api/v1/auth.SignIn", s.handleSignIn)
	s.mux.HandleFunc("/api/v1/auth.Validate", s.handleValidate)
}

// Start starts the HTTP server and blocks until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("address", s.httpServer.Addr))

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	return s.Shutdown()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Server shutdown error", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// healthCheckHandler pings every registered dependency
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	results := make(map[string]string, len(s.checks))

	for name, check := range s.checks {
		if err := check.HealthCheck(r.Context()); err != nil {
			s.logger.Error("Health check failed",
				zap.String("dependency", name),
				zap.Error(err))
			results[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "up"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}

	respondJSON(w, status, map[string]interface{}{
		"status": overall,
		"checks": results,
	})
}

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signInResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, u, err := s.signIn.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, statusForError(err), "sign-in failed")
		return
	}

	respondJSON(w, http.StatusOK, signInResponse{
		Token:  token,
		UserID: u.ID.String(),
	})
}

type validateResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	token := r.Header.Get("Authorization")
	if len(token) > 7 && token[:7] == "Bearer " {
		token = token[7:]
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}

	u, err := s.signIn.Validate(r.Context(), token)
	if err != nil {
		respondError(w, statusForError(err), "token rejected")
		return
	}

	respondJSON(w, http.StatusOK, validateResponse{
		UserID:   u.ID.String(),
		Username: u.Username,
	})
}

// statusForError maps domain error codes onto HTTP statuses
func statusForError(err error) int {
	switch {
	case shared.HasCode(err, shared.ErrCodeInvalidInput):
		return http.StatusBadRequest
	case shared.HasCode(err, shared.ErrCodeInvalidCredentials),
		shared.HasCode(err, shared.ErrCodeStaleToken):
		return http.StatusUnauthorized
	case shared.HasCode(err, shared.ErrCodeLockedOut):
		return http.StatusForbidden
	case shared.HasCode(err, shared.ErrCodeThrottled):
		return http.StatusTooManyRequests
	case shared.HasCode(err, shared.ErrCodeNotFound):
		return http.StatusNotFound
	case shared.HasCode(err, shared.ErrCodeTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
