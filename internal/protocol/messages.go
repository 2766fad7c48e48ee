package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientControl  MessageType = "client_control"
	TypeStateSnapshot  MessageType = "state_snapshot"
	TypeTurnAppended   MessageType = "turn_appended"
	TypeTurnAudio      MessageType = "turn_audio"
	TypeToast          MessageType = "toast"
	TypeToastDismissed MessageType = "toast_dismissed"
	TypeLevelSample    MessageType = "level_sample"
	TypeErrorEvent     MessageType = "error_event"
)

// Client control actions accepted over the websocket.
const (
	ActionStartCapture = "start_capture"
	ActionStopCapture  = "stop_capture"
	ActionDismissToast = "dismiss_toast"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type ClientControl struct {
	Type    MessageType `json:"type"`
	Action  string      `json:"action"`
	ToastID int64       `json:"toast_id,omitempty"`
}

type StateSnapshot struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type TurnAppended struct {
	Type       MessageType    `json:"type"`
	TurnID     int64          `json:"turn_id"`
	Role       string         `json:"role"`
	Text       string         `json:"text"`
	Label      string         `json:"label,omitempty"`
	Structured map[string]any `json:"structured_data,omitempty"`
	TSMs       int64          `json:"ts_ms"`
}

type TurnAudio struct {
	Type     MessageType `json:"type"`
	TurnID   int64       `json:"turn_id"`
	AudioRef string      `json:"audio_ref"`
	AutoPlay bool        `json:"auto_play"`
}

type Toast struct {
	Type    MessageType `json:"type"`
	ToastID int64       `json:"toast_id"`
	Level   string      `json:"level"`
	Message string      `json:"message"`
}

type ToastDismissed struct {
	Type    MessageType `json:"type"`
	ToastID int64       `json:"toast_id"`
}

type LevelSample struct {
	Type  MessageType `json:"type"`
	Level float64     `json:"level"`
	TSMs  int64       `json:"ts_ms"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		switch msg.Action {
		case ActionStartCapture, ActionStopCapture:
		case ActionDismissToast:
			if msg.ToastID <= 0 {
				return nil, errors.New("invalid client_control: missing toast_id")
			}
		default:
			return nil, fmt.Errorf("invalid client_control action %q", msg.Action)
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
