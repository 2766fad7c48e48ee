package agent

import (
	"encoding/json"
	"strings"

	"github.com/suyashmankar/interview-studio/internal/reliability"
)

// The accepted upstream shapes are enumerated here and only here. The
// normalizer fails closed on anything outside this set instead of probing
// arbitrary fields.
var (
	textFields       = []string{"agent_text", "response", "message", "text"}
	nestedFields     = []string{"data", "result", "output"}
	structuredFields = []string{"structured_json", "structured_output", "evaluation", "metadata"}
)

// NormalizeReply parses one of the documented upstream response shapes:
//
//   - a bare JSON string,
//   - an object with a top-level text field (agent_text, response,
//     message or text),
//   - an object nesting one of those under data, result or output.
//
// Structured evaluation data is taken from structured_json,
// structured_output, evaluation or metadata when it is a JSON object.
// Anything else is a ValidationError.
func NormalizeReply(raw []byte) (Reply, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return Reply{}, reliability.New(reliability.KindValidation, "agent_empty_response", "agent returned an empty body")
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if strings.TrimSpace(asString) == "" {
			return Reply{}, reliability.New(reliability.KindValidation, "agent_empty_response", "agent returned an empty string")
		}
		return Reply{Text: asString}, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Reply{}, reliability.New(reliability.KindValidation, "agent_malformed_response", err.Error())
	}

	reply := Reply{
		Text:       extractText(obj),
		Structured: extractStructured(obj),
	}
	if reply.Text == "" {
		return Reply{}, reliability.New(reliability.KindValidation, "agent_unrecognized_shape",
			"no text field among the accepted response shapes")
	}
	return reply, nil
}

func extractText(obj map[string]any) string {
	for _, key := range textFields {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	for _, key := range nestedFields {
		switch nested := obj[key].(type) {
		case string:
			if strings.TrimSpace(nested) != "" {
				return nested
			}
		case map[string]any:
			for _, inner := range []string{"text", "message"} {
				if s, ok := nested[inner].(string); ok && strings.TrimSpace(s) != "" {
					return s
				}
			}
		}
	}
	return ""
}

func extractStructured(obj map[string]any) map[string]any {
	for _, key := range structuredFields {
		if m, ok := obj[key].(map[string]any); ok {
			return m
		}
	}
	return nil
}
