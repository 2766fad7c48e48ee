package interview

import (
	"time"

	"github.com/suyashmankar/interview-studio/internal/notify"
)

// State is the lifecycle of an interview session.
type State string

const (
	StateInactive State = "inactive"
	StateActive   State = "active"
	StateEnded    State = "ended"
)

// Mode selects how the participant answers. Voice and text are exclusive.
type Mode string

const (
	ModeVoice Mode = "voice"
	ModeText  Mode = "text"
)

// Phase tracks where the current turn sits in the pipeline.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseCapturing        Phase = "capturing"
	PhaseTranscribing     Phase = "transcribing"
	PhaseAwaitingReview   Phase = "awaiting_review"
	PhaseSendingToAgent   Phase = "sending_to_agent"
	PhaseGeneratingSpeech Phase = "generating_speech"
)

// Settings are the participant-tunable knobs for speech output.
type Settings struct {
	Voice          string  `json:"voice"`
	Speed          float64 `json:"speed"`
	AutoPlaySpeech bool    `json:"auto_play_speech"`
}

// Snapshot is a point-in-time view of the orchestrator, safe to serialize.
type Snapshot struct {
	SessionID         string         `json:"session_id"`
	ParticipantID     string         `json:"participant_id"`
	State             State          `json:"state"`
	Mode              Mode           `json:"mode"`
	Phase             Phase          `json:"phase"`
	Transcribing      bool           `json:"transcribing"`
	AgentBusy         bool           `json:"agent_busy"`
	Synthesizing      bool           `json:"synthesizing"`
	Capturing         bool           `json:"capturing"`
	PendingReviewText string         `json:"pending_review_text,omitempty"`
	PendingConfidence float64        `json:"pending_confidence,omitempty"`
	Settings          Settings       `json:"settings"`
	StartedAt         time.Time      `json:"started_at,omitzero"`
	ElapsedSeconds    float64        `json:"elapsed_seconds"`
	CaptureSeconds    float64        `json:"capture_seconds,omitempty"`
	Turns             int            `json:"turns"`
	Toasts            []notify.Toast `json:"toasts,omitempty"`
}
