package transcript

import "time"

// Role identifies the speaker of a turn.
type Role string

const (
	RoleAgent       Role = "agent"
	RoleParticipant Role = "participant"
)

// Labels attached to agent turns depending on whether the reply carried
// structured evaluation data.
const (
	LabelQuestion = "Question"
	LabelFeedback = "Feedback"
)

// Turn is one utterance in the transcript. Turns are immutable once
// appended; the synthesized-audio reference is the sole field the store
// will mutate after the fact.
type Turn struct {
	ID             int64          `json:"id"`
	Role           Role           `json:"role"`
	Text           string         `json:"text"`
	Label          string         `json:"label,omitempty"`
	StructuredData map[string]any `json:"structured_data,omitempty"`
	AudioRef       string         `json:"audio_ref,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
