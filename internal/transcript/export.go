package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RenderText renders the transcript as a plain-text document listing
// timestamp, speaker label, text and optional annotation per turn.
func RenderText(turns []Turn, generatedAt time.Time) string {
	var b strings.Builder
	b.WriteString("Interview Studio - Transcript\n")
	b.WriteString(strings.Repeat("=", 50) + "\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", generatedAt.Format("2006-01-02 15:04:05"))

	for _, t := range turns {
		speaker := "Candidate"
		if t.Role == RoleAgent {
			speaker = "Interviewer"
		}
		fmt.Fprintf(&b, "[%s] %s:\n", t.CreatedAt.Format("15:04:05"), speaker)
		b.WriteString(t.Text + "\n")
		if t.Label != "" {
			fmt.Fprintf(&b, "  (%s)\n", t.Label)
		}
		b.WriteString("\n")
	}
	return b.String()
}

type exportedTurn struct {
	ID             int64          `json:"id"`
	Role           Role           `json:"role"`
	Text           string         `json:"text"`
	Timestamp      time.Time      `json:"timestamp"`
	Label          string         `json:"label,omitempty"`
	StructuredData map[string]any `json:"structured_data,omitempty"`
}

type exportDocument struct {
	ExportedAt  time.Time      `json:"exported_at"`
	SessionData []exportedTurn `json:"session_data"`
}

// RenderJSON renders the structured evaluation export: every turn with its
// identifier, role, text, timestamp, label and structured payload.
func RenderJSON(turns []Turn, exportedAt time.Time) ([]byte, error) {
	doc := exportDocument{
		ExportedAt:  exportedAt,
		SessionData: make([]exportedTurn, 0, len(turns)),
	}
	for _, t := range turns {
		doc.SessionData = append(doc.SessionData, exportedTurn{
			ID:             t.ID,
			Role:           t.Role,
			Text:           t.Text,
			Timestamp:      t.CreatedAt,
			Label:          t.Label,
			StructuredData: t.StructuredData,
		})
	}
	return json.MarshalIndent(doc, "", "  ")
}
