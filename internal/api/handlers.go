package api

import (
	"encoding/json"
	"net/http"
	"time"

	"crypto-backtest/internal/backtest"
	"crypto-backtest/internal/strategy"
)

const maxBodyBytes = 64 << 10

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, "+TOTPHeader)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// StatusFor maps an engine error to an HTTP status.
func StatusFor(err error) int {
	switch backtest.Kind(err) {
	case backtest.KindOK:
		return http.StatusOK
	case backtest.KindInvalidConfig, backtest.KindUnknownStrategy:
		return http.StatusBadRequest
	case backtest.KindDataUnavailable:
		return http.StatusUnprocessableEntity
	case backtest.KindTimeout:
		return http.StatusGatewayTimeout
	case backtest.KindCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusBadGateway
	}
}

// handleRun serves POST /api/backtest/run.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, backtest.Response{Error: "method not allowed"})
		return
	}

	var req backtest.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, backtest.Response{
			Error: "invalid JSON: " + err.Error(),
			Kind:  backtest.KindInvalidConfig,
		})
		return
	}

	rep, err := s.runner.Run(r.Context(), req)
	if err == nil {
		s.health.MarkBacktest(time.Now())
	}
	writeJSON(w, StatusFor(err), backtest.NewResponse(req.ID, rep, err))
}

// handleStrategies serves GET /api/backtest/strategies.
func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    strategy.Catalog(),
	})
}

// handleHealth serves GET /api/v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.start).Seconds()),
		"auth":           s.guard.Enabled(),
	})
}
