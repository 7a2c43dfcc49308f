package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/lottolab/internal/domain"
	"github.com/aristath/lottolab/internal/services"
)

// maxBodyBytes bounds analysis request bodies
const maxBodyBytes = 8 << 20

// handleListLotteries handles GET /api/lotteries
func (s *Server) handleListLotteries(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, http.StatusOK, s.engine.Lotteries())
}

// handleGetLottery handles GET /api/lotteries/{lottery}
func (s *Server) handleGetLottery(w http.ResponseWriter, r *http.Request) {
	lottery, err := s.engine.Lottery(chi.URLParam(r, "lottery"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	response := map[string]interface{}{"lottery": lottery}
	if table, err := s.engine.Paytable(lottery.ID); err == nil {
		response["paytable"] = table
	}
	if s.draws != nil {
		count, err := s.draws.Count(r.Context(), lottery.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("lottery", lottery.ID).Msg("Failed to count draws")
		}
		response["stored_draws"] = count
	}

	s.writeData(w, http.StatusOK, response)
}

// decodeBody decodes a JSON request body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.NewConfigurationError("body", "invalid JSON: %v", err)
	}
	return nil
}

// statusFor maps engine errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownLottery):
		return http.StatusNotFound
	case domain.IsConfigurationError(err):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrArchivingDisabled):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeData wraps data in the standard response envelope
func (s *Server) writeData(w http.ResponseWriter, status int, data interface{}) {
	s.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeError writes err with the status it maps to
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("Request failed")
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
