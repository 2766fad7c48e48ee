package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/suyashmankar/interview-studio/internal/capture"
	"github.com/suyashmankar/interview-studio/internal/config"
	"github.com/suyashmankar/interview-studio/internal/interview"
	"github.com/suyashmankar/interview-studio/internal/observability"
	"github.com/suyashmankar/interview-studio/internal/reliability"
	"github.com/suyashmankar/interview-studio/internal/transcript"
)

// Orchestrator is the interview engine surface the HTTP layer drives.
type Orchestrator interface {
	Launch() (interview.Snapshot, error)
	End() (interview.Snapshot, error)
	SetMode(mode interview.Mode) error
	UpdateSettings(s interview.Settings) error
	StartCapture() error
	StopCapture() error
	Submit(text string) error
	CancelReview() error
	DismissToast(id int64)
	Subscribe() (<-chan any, func())
	Snapshot() interview.Snapshot
	Transcript() []transcript.Turn
	Audio(ref string) ([]byte, bool)
}

type Server struct {
	cfg      config.Config
	orch     Orchestrator
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, orch Orchestrator, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		orch:    orch,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browsers may drive the interview unless
				// explicitly opened up; other sites must not reach the mic.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/interview/launch", s.handleLaunch)
	r.Post("/v1/interview/end", s.handleEnd)
	r.Get("/v1/interview", s.handleSnapshot)
	r.Post("/v1/interview/mode", s.handleSetMode)
	r.Post("/v1/interview/settings", s.handleUpdateSettings)
	r.Get("/v1/interview/ws", s.handleWS)

	r.Post("/v1/capture/start", s.handleStartCapture)
	r.Post("/v1/capture/stop", s.handleStopCapture)

	r.Post("/v1/turns", s.handleSubmitTurn)
	r.Post("/v1/review/cancel", s.handleCancelReview)
	r.Get("/v1/transcript", s.handleTranscript)
	r.Get("/v1/export/transcript", s.handleExportTranscript)
	r.Get("/v1/export/evaluation", s.handleExportEvaluation)

	r.Get("/v1/voices", s.handleListVoices)
	r.Get("/v1/audio/{ref}", s.handleAudio)
	r.Post("/v1/toasts/{id}/dismiss", s.handleDismissToast)
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"state":  s.orch.Snapshot().State,
	})
}

func (s *Server) handleLaunch(w http.ResponseWriter, _ *http.Request) {
	snap, err := s.orch.Launch()
	if err != nil {
		respondOrchestratorError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleEnd(w http.ResponseWriter, _ *http.Request) {
	snap, err := s.orch.End()
	if err != nil {
		respondOrchestratorError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.orch.Snapshot())
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := s.orch.SetMode(interview.Mode(req.Mode)); err != nil {
		respondOrchestratorError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.orch.Snapshot())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	// Seed with the current values so omitted fields are left unchanged.
	req := s.orch.Snapshot().Settings
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := s.orch.UpdateSettings(req); err != nil {
		respondOrchestratorError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.orch.Snapshot())
}

func (s *Server) handleStartCapture(w http.ResponseWriter, _ *http.Request) {
	if err := s.orch.StartCapture(); err != nil {
		respondOrchestratorError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, s.orch.Snapshot())
}

func (s *Server) handleStopCapture(w http.ResponseWriter, _ *http.Request) {
	if err := s.orch.StopCapture(); err != nil {
		respondOrchestratorError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, s.orch.Snapshot())
}

func (s *Server) handleSubmitTurn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := s.orch.Submit(req.Text); err != nil {
		respondOrchestratorError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, s.orch.Snapshot())
}

func (s *Server) handleCancelReview(w http.ResponseWriter, _ *http.Request) {
	if err := s.orch.CancelReview(); err != nil {
		respondOrchestratorError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.orch.Snapshot())
}

func (s *Server) handleTranscript(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": s.orch.Snapshot().SessionID,
		"turns":      s.orch.Transcript(),
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondOrchestratorError maps engine errors onto HTTP statuses: state
// guards conflict, validation rejects, rate limits surface with their
// reset headers, and everything else is a provider failure.
func respondOrchestratorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, interview.ErrNotActive),
		errors.Is(err, interview.ErrAlreadyActive),
		errors.Is(err, interview.ErrBusy),
		errors.Is(err, interview.ErrRecordingInProgress),
		errors.Is(err, interview.ErrNotCapturing),
		errors.Is(err, interview.ErrNoPendingReview),
		errors.Is(err, interview.ErrVoiceModeRequired),
		errors.Is(err, capture.ErrCaptureActive),
		errors.Is(err, capture.ErrNoDevice):
		respondError(w, http.StatusConflict, "state_conflict", err.Error())
		return
	case errors.Is(err, interview.ErrEmptyText):
		respondError(w, http.StatusBadRequest, "empty_text", err.Error())
		return
	case errors.Is(err, capture.ErrPermissionDenied):
		respondError(w, http.StatusForbidden, "permission_denied", err.Error())
		return
	}

	if limited, ok := reliability.IsRateLimited(err); ok {
		if limited.Remaining >= 0 {
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limited.Remaining))
		}
		if !limited.ResetAt.IsZero() {
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(limited.ResetAt.Unix(), 10))
		}
		respondError(w, http.StatusTooManyRequests, limited.Code, limited.Detail)
		return
	}

	var classified *reliability.Error
	if errors.As(err, &classified) {
		if classified.Kind == reliability.KindValidation {
			respondError(w, http.StatusUnprocessableEntity, classified.Code, classified.Detail)
			return
		}
		respondError(w, http.StatusBadGateway, classified.Code, classified.Detail)
		return
	}
	respondError(w, http.StatusInternalServerError, "internal", err.Error())
}
