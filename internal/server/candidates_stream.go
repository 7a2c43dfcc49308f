package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/lottolab/internal/domain"
	"github.com/aristath/lottolab/internal/modules/genetic"
)

// Stream message types
const (
	streamProgress = "progress"
	streamResult   = "result"
	streamError    = "error"
)

// streamMessage is one frame of the candidates stream
type streamMessage struct {
	Progress *genetic.Progress `json:"progress,omitempty"`
	Result   *domain.Analysis  `json:"result,omitempty"`
	Type     string            `json:"type"`
	Error    string            `json:"error,omitempty"`
}

// handleCandidatesStream handles GET /api/lotteries/{lottery}/analysis/stream.
// The client sends one candidates request as a JSON text frame; the server answers
// with a progress frame per generation, then a result frame, then closes.
func (s *Server) handleCandidatesStream(w http.ResponseWriter, r *http.Request) {
	lotteryID := chi.URLParam(r, "lottery")
	if _, err := s.engine.Lottery(lotteryID); err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS is open on every other route too
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to accept websocket")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected server error")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var req candidatesRequest
	if err := wsjson.Read(ctx, conn, &req); err != nil {
		s.log.Debug().Err(err).Msg("Candidates stream closed before a request arrived")
		return
	}

	// Only close frames are expected from here on
	ctx = conn.CloseRead(ctx)

	generate, err := s.generateRequest(ctx, lotteryID, req)
	if err != nil {
		s.closeStream(ctx, conn, err)
		return
	}

	generate.Progress = func(p genetic.Progress) {
		if ctx.Err() != nil {
			return
		}
		if err := wsjson.Write(ctx, conn, streamMessage{Type: streamProgress, Progress: &p}); err != nil {
			s.log.Debug().Err(err).Int("generation", p.Generation).Msg("Failed to send progress, stopping run")
			cancel()
		}
	}

	result, err := s.engine.Evolve(ctx, generate)
	if err != nil {
		s.closeStream(ctx, conn, err)
		return
	}

	analysis := domain.NewCandidatesAnalysis(lotteryID, *result)
	if req.Archive {
		if _, err := s.engine.Archive(ctx, analysis); err != nil {
			s.log.Warn().Err(err).Msg("Failed to archive streamed candidates")
		}
	}

	if err := wsjson.Write(ctx, conn, streamMessage{Type: streamResult, Result: &analysis}); err != nil {
		s.log.Debug().Err(err).Msg("Failed to send candidates")
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

// closeStream reports err to the client and closes the connection
func (s *Server) closeStream(ctx context.Context, conn *websocket.Conn, err error) {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// Client went away
		return
	}
	if writeErr := wsjson.Write(ctx, conn, streamMessage{Type: streamError, Error: err.Error()}); writeErr != nil {
		s.log.Debug().Err(writeErr).Msg("Failed to send stream error")
		return
	}

	code := websocket.StatusInternalError
	if statusFor(err) < http.StatusInternalServerError {
		code = websocket.StatusPolicyViolation
	}
	conn.Close(code, "")
}
