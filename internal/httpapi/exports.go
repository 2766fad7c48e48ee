package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/suyashmankar/interview-studio/internal/speech"
	"github.com/suyashmankar/interview-studio/internal/transcript"
)

func (s *Server) handleExportTranscript(w http.ResponseWriter, _ *http.Request) {
	body := transcript.RenderText(s.orch.Transcript(), time.Now())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="interview-transcript.txt"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (s *Server) handleExportEvaluation(w http.ResponseWriter, _ *http.Request) {
	body, err := transcript.RenderJSON(s.orch.Transcript(), time.Now())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "export_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="interview-evaluation.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type voiceSummary struct {
	VoiceID string `json:"voice_id"`
	Name    string `json:"name"`
}

type listVoicesResponse struct {
	DefaultVoiceID string         `json:"default_voice_id"`
	SpeedMin       float64        `json:"speed_min"`
	SpeedMax       float64        `json:"speed_max"`
	Voices         []voiceSummary `json:"voices"`
}

func (s *Server) handleListVoices(w http.ResponseWriter, _ *http.Request) {
	voices := make([]voiceSummary, 0, len(speech.Voices))
	for _, v := range speech.Voices {
		voices = append(voices, voiceSummary{VoiceID: v.ID, Name: v.Name})
	}
	respondJSON(w, http.StatusOK, listVoicesResponse{
		DefaultVoiceID: s.cfg.DefaultVoice,
		SpeedMin:       speech.SpeedMin,
		SpeedMax:       speech.SpeedMax,
		Voices:         voices,
	})
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	data, ok := s.orch.Audio(ref)
	if !ok {
		respondError(w, http.StatusNotFound, "audio_not_found", "no audio cached for this reference")
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleDismissToast(w http.ResponseWriter, r *http.Request) {
	id, err := parseToastID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_toast_id", err.Error())
		return
	}
	s.orch.DismissToast(id)
	w.WriteHeader(http.StatusNoContent)
}

func parseToastID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("toast id must be a positive integer")
	}
	return id, nil
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"generated_at": "",
			"window_size":  0,
			"stages":       []any{},
		})
		return
	}
	respondJSON(w, http.StatusOK, s.metrics.Pipeline.Snapshot())
}
