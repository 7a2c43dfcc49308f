package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/lottolab/internal/domain"
	"github.com/aristath/lottolab/internal/modules/backtest"
	"github.com/aristath/lottolab/internal/modules/genetic"
	"github.com/aristath/lottolab/internal/modules/scoring"
	"github.com/aristath/lottolab/internal/services"
)

// defaultTrainFraction is the training share used by /leakage when none is given
const defaultTrainFraction = 0.8

// drawSource selects the draws an analysis runs on: the request's own draws,
// or the last Limit stored draws (all of them when Limit is 0)
type drawSource struct {
	Draws []domain.Draw `json:"draws"`
	Limit int           `json:"limit"`
}

type scoresRequest struct {
	drawSource
	Weights   *scoring.Weights `json:"weights"`
	Reference []int            `json:"reference"`
	Window    int              `json:"window"`
	Archive   bool             `json:"archive"`
}

type candidatesRequest struct {
	drawSource
	Weights    *scoring.Weights `json:"weights"`
	Genetic    json.RawMessage  `json:"genetic"` // Partial override of the configured GA parameters
	GamesCount int              `json:"games_count"`
	Window     int              `json:"window"`
	Archive    bool             `json:"archive"`
}

type backtestRequest struct {
	drawSource
	Weights        *scoring.Weights `json:"weights"`
	Genetic        json.RawMessage  `json:"genetic"`
	Strategy       string           `json:"strategy"`
	Seed           int64            `json:"seed"`
	Window         int              `json:"window"`
	MinHistory     int              `json:"min_history"`
	TrailingWindow int              `json:"trailing_window"`
	FailFast       bool             `json:"fail_fast"`
	Archive        bool             `json:"archive"`
}

type leakageRequest struct {
	drawSource
	Training      []domain.Draw `json:"training"`
	Test          []domain.Draw `json:"test"`
	TrainFraction float64       `json:"train_fraction"`
	Archive       bool          `json:"archive"`
}

// handleFrequencies handles GET /api/lotteries/{lottery}/analysis/frequencies?window=&limit=
func (s *Server) handleFrequencies(w http.ResponseWriter, r *http.Request) {
	lotteryID := chi.URLParam(r, "lottery")
	window, limit, err := windowAndLimit(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	draws, err := s.loadDraws(r.Context(), lotteryID, drawSource{Limit: limit})
	if err != nil {
		s.writeError(w, err)
		return
	}

	freqs, err := s.engine.Frequencies(lotteryID, draws, window)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.respondAnalysis(w, r, domain.NewFrequencyAnalysis(lotteryID, window, freqs), queryBool(r, "archive"))
}

// handleCorrelation handles GET /api/lotteries/{lottery}/analysis/correlation?window=&limit=&min=
func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	lotteryID := chi.URLParam(r, "lottery")
	window, limit, err := windowAndLimit(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	minCorrelation := 0.0
	if raw := r.URL.Query().Get("min"); raw != "" {
		minCorrelation, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeError(w, domain.NewConfigurationError("min", "must be a number, got %q", raw))
			return
		}
	}

	draws, err := s.loadDraws(r.Context(), lotteryID, drawSource{Limit: limit})
	if err != nil {
		s.writeError(w, err)
		return
	}

	m, hit, err := s.engine.BuildCorrelationMap(r.Context(), lotteryID, draws, window)
	if err != nil {
		s.writeError(w, err)
		return
	}

	entries := make([]domain.CorrelationEntry, 0, m.Len())
	for _, e := range m.Entries() {
		if e.Correlation >= minCorrelation {
			entries = append(entries, e)
		}
	}

	s.respondAnalysis(w, r, domain.NewCorrelationAnalysis(lotteryID, domain.CorrelationAnalysis{
		Entries:   entries,
		Window:    window,
		Threshold: m.Threshold(),
		CacheHit:  hit,
	}), queryBool(r, "archive"))
}

// handleScores handles POST /api/lotteries/{lottery}/analysis/scores
func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	lotteryID := chi.URLParam(r, "lottery")

	var req scoresRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	draws, err := s.loadDraws(r.Context(), lotteryID, req.drawSource)
	if err != nil {
		s.writeError(w, err)
		return
	}

	scores, err := s.engine.ScoreNumbers(r.Context(), services.ScoreRequest{
		LotteryID: lotteryID,
		Draws:     draws,
		Weights:   req.Weights,
		Reference: req.Reference,
		Window:    req.Window,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.respondAnalysis(w, r, domain.NewScoresAnalysis(lotteryID, scores), req.Archive)
}

// handleCandidates handles POST /api/lotteries/{lottery}/analysis/candidates
func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	lotteryID := chi.URLParam(r, "lottery")

	var req candidatesRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	generate, err := s.generateRequest(r.Context(), lotteryID, req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.engine.Evolve(r.Context(), generate)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.respondAnalysis(w, r, domain.NewCandidatesAnalysis(lotteryID, *result), req.Archive)
}

// generateRequest resolves a candidates request into an engine request
func (s *Server) generateRequest(ctx context.Context, lotteryID string, req candidatesRequest) (services.GenerateRequest, error) {
	lottery, err := s.engine.Lottery(lotteryID)
	if err != nil {
		return services.GenerateRequest{}, err
	}
	draws, err := s.loadDraws(ctx, lotteryID, req.drawSource)
	if err != nil {
		return services.GenerateRequest{}, err
	}
	ga, err := s.geneticOverride(lottery, req.Genetic)
	if err != nil {
		return services.GenerateRequest{}, err
	}

	gamesCount := req.GamesCount
	if gamesCount == 0 {
		gamesCount = 1
	}

	return services.GenerateRequest{
		LotteryID:  lotteryID,
		Draws:      draws,
		GamesCount: gamesCount,
		Weights:    req.Weights,
		Genetic:    ga,
		Window:     req.Window,
	}, nil
}

// handleBacktest handles POST /api/lotteries/{lottery}/analysis/backtest
func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	lotteryID := chi.URLParam(r, "lottery")

	var req backtestRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	lottery, err := s.engine.Lottery(lotteryID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	draws, err := s.loadDraws(r.Context(), lotteryID, req.drawSource)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ga, err := s.geneticOverride(lottery, req.Genetic)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.engine.Backtest(r.Context(), services.BacktestRequest{
		LotteryID: lotteryID,
		Draws:     draws,
		Strategy:  req.Strategy,
		Params: services.StrategyParams{
			Weights: req.Weights,
			Genetic: ga,
			Window:  req.Window,
			Seed:    req.Seed,
		},
		MinHistory:     req.MinHistory,
		TrailingWindow: req.TrailingWindow,
		FailFast:       req.FailFast,
	})
	if err != nil {
		var execErr *backtest.StrategyExecutionError
		if errors.As(err, &execErr) {
			s.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":   err.Error(),
				"contest": execErr.Contest,
			})
			return
		}
		s.writeError(w, err)
		return
	}

	s.respondAnalysis(w, r, domain.NewBacktestAnalysis(lotteryID, result), req.Archive)
}

// handleLeakage handles POST /api/lotteries/{lottery}/analysis/leakage.
// Explicit training and test sets are checked as given; otherwise the selected
// draws are split chronologically at train_fraction.
func (s *Server) handleLeakage(w http.ResponseWriter, r *http.Request) {
	lotteryID := chi.URLParam(r, "lottery")

	var req leakageRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := s.engine.Lottery(lotteryID); err != nil {
		s.writeError(w, err)
		return
	}

	training, test := req.Training, req.Test
	if len(training) == 0 && len(test) == 0 {
		draws, err := s.loadDraws(r.Context(), lotteryID, req.drawSource)
		if err != nil {
			s.writeError(w, err)
			return
		}
		fraction := req.TrainFraction
		if fraction == 0 {
			fraction = defaultTrainFraction
		}
		training, test, err = backtest.SplitChronological(draws, fraction)
		if err != nil {
			s.writeError(w, err)
			return
		}
	}

	report := s.engine.CheckDataLeakage(training, test)
	s.respondAnalysis(w, r, domain.NewLeakageAnalysis(lotteryID, report), req.Archive)
}

// loadDraws returns the request's draws, or reads them from the history store
func (s *Server) loadDraws(ctx context.Context, lotteryID string, src drawSource) ([]domain.Draw, error) {
	if len(src.Draws) > 0 {
		return src.Draws, nil
	}
	if src.Limit < 0 {
		return nil, domain.NewConfigurationError("limit", "must not be negative, got %d", src.Limit)
	}
	if s.draws == nil {
		return nil, domain.NewConfigurationError("draws", "must be provided when no history store is configured")
	}
	if _, err := s.engine.Lottery(lotteryID); err != nil {
		return nil, err
	}

	draws, err := s.draws.List(ctx, lotteryID, src.Limit)
	if err != nil {
		return nil, err
	}
	if len(draws) == 0 {
		return nil, domain.NewConfigurationError("draws", "no draws stored for %s", lotteryID)
	}
	return draws, nil
}

// geneticOverride decodes a partial GA configuration over the lottery's defaults
func (s *Server) geneticOverride(lottery domain.Lottery, raw json.RawMessage) (*genetic.Config, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	cfg := s.engine.GeneticConfig(lottery)
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, domain.NewConfigurationError("genetic", "invalid JSON: %v", err)
	}
	return &cfg, nil
}

// respondAnalysis writes an analysis, archiving it first when asked to.
// A failed upload is reported in the metadata; the analysis is still returned.
func (s *Server) respondAnalysis(w http.ResponseWriter, r *http.Request, analysis domain.Analysis, archive bool) {
	metadata := map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
	}

	if archive {
		key, err := s.engine.Archive(r.Context(), analysis)
		if err != nil {
			s.log.Warn().Err(err).Str("kind", string(analysis.Kind)).Msg("Failed to archive analysis")
			metadata["archive_error"] = err.Error()
		} else {
			metadata["archive_key"] = key
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     analysis,
		"metadata": metadata,
	})
}

func windowAndLimit(r *http.Request) (window, limit int, err error) {
	if window, err = queryInt(r, "window"); err != nil {
		return 0, 0, err
	}
	if limit, err = queryInt(r, "limit"); err != nil {
		return 0, 0, err
	}
	return window, limit, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, domain.NewConfigurationError(name, "must be a non-negative integer, got %q", raw)
	}
	return v, nil
}

func queryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}
