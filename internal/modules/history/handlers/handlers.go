// Package handlers provides HTTP handlers for draw history operations.
package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/lottolab/internal/domain"
	"github.com/aristath/lottolab/internal/modules/history"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// maxUploadBytes bounds draw uploads (a full Mega-Sena history is well under 1 MB)
const maxUploadBytes = 8 << 20

// LotteryLookup resolves lottery definitions
type LotteryLookup interface {
	Lottery(id string) (domain.Lottery, error)
}

// Handler handles draw history HTTP requests
type Handler struct {
	repo      *history.Repository
	lotteries LotteryLookup
	log       zerolog.Logger
}

// NewHandler creates a new draw history handler
func NewHandler(repo *history.Repository, lotteries LotteryLookup, log zerolog.Logger) *Handler {
	return &Handler{
		repo:      repo,
		lotteries: lotteries,
		log:       log.With().Str("handler", "history").Logger(),
	}
}

// RegisterRoutes registers the draw history routes under a lottery
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/lotteries/{lottery}/draws", func(r chi.Router) {
		r.Get("/", h.HandleListDraws)
		r.Post("/", h.HandleImportDraws)
		r.Delete("/", h.HandleDeleteDraws)
		r.Get("/latest", h.HandleLatestDraw)
	})
}

// HandleListDraws handles GET /api/lotteries/{lottery}/draws?limit=N
func (h *Handler) HandleListDraws(w http.ResponseWriter, r *http.Request) {
	lottery, ok := h.lottery(w, r)
	if !ok {
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	draws, err := h.repo.List(r.Context(), lottery.ID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("lottery", lottery.ID).Msg("Failed to list draws")
		h.writeError(w, http.StatusInternalServerError, "failed to list draws")
		return
	}
	if draws == nil {
		draws = []domain.Draw{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"lottery": lottery.ID,
			"draws":   draws,
			"count":   len(draws),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleImportDraws handles POST /api/lotteries/{lottery}/draws.
// The body is a JSON array of draws, or CSV when Content-Type is text/csv.
func (h *Handler) HandleImportDraws(w http.ResponseWriter, r *http.Request) {
	lottery, ok := h.lottery(w, r)
	if !ok {
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var (
		draws []domain.Draw
		err   error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "text/csv":
		draws, err = history.ParseCSV(body, lottery)
	default:
		draws, err = history.ParseJSON(body, lottery)
	}
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.repo.Save(r.Context(), lottery.ID, draws); err != nil {
		h.log.Error().Err(err).Str("lottery", lottery.ID).Msg("Failed to save draws")
		h.writeError(w, http.StatusInternalServerError, "failed to save draws")
		return
	}

	total, err := h.repo.Count(r.Context(), lottery.ID)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to count draws after import")
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"imported":       len(draws),
		"total":          total,
		"latest_contest": domain.LatestContest(draws),
	})
}

// HandleDeleteDraws handles DELETE /api/lotteries/{lottery}/draws
func (h *Handler) HandleDeleteDraws(w http.ResponseWriter, r *http.Request) {
	lottery, ok := h.lottery(w, r)
	if !ok {
		return
	}

	removed, err := h.repo.Delete(r.Context(), lottery.ID)
	if err != nil {
		h.log.Error().Err(err).Str("lottery", lottery.ID).Msg("Failed to delete draws")
		h.writeError(w, http.StatusInternalServerError, "failed to delete draws")
		return
	}

	h.log.Info().Str("lottery", lottery.ID).Int64("removed", removed).Msg("Draw history deleted")
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"removed": removed})
}

// HandleLatestDraw handles GET /api/lotteries/{lottery}/draws/latest
func (h *Handler) HandleLatestDraw(w http.ResponseWriter, r *http.Request) {
	lottery, ok := h.lottery(w, r)
	if !ok {
		return
	}

	draw, found, err := h.repo.Latest(r.Context(), lottery.ID)
	if err != nil {
		h.log.Error().Err(err).Str("lottery", lottery.ID).Msg("Failed to get latest draw")
		h.writeError(w, http.StatusInternalServerError, "failed to get latest draw")
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, "no draws stored for "+lottery.ID)
		return
	}

	h.writeJSON(w, http.StatusOK, draw)
}

// lottery resolves the {lottery} URL parameter, writing a 404 when it is unknown
func (h *Handler) lottery(w http.ResponseWriter, r *http.Request) (domain.Lottery, bool) {
	lottery, err := h.lotteries.Lottery(chi.URLParam(r, "lottery"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrUnknownLottery) {
			status = http.StatusNotFound
		}
		h.writeError(w, status, err.Error())
		return domain.Lottery{}, false
	}
	return lottery, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
