package agent

import (
	"testing"

	"github.com/suyashmankar/interview-studio/internal/reliability"
)

func TestNormalizeTopLevelTextFields(t *testing.T) {
	cases := map[string]string{
		`{"agent_text":"Great question..."}`: "Great question...",
		`{"response":"from response"}`:       "from response",
		`{"message":"from message"}`:         "from message",
		`{"text":"from text"}`:               "from text",
		`"a bare string reply"`:              "a bare string reply",
	}
	for raw, want := range cases {
		reply, err := NormalizeReply([]byte(raw))
		if err != nil {
			t.Fatalf("NormalizeReply(%s) error = %v", raw, err)
		}
		if reply.Text != want {
			t.Fatalf("NormalizeReply(%s) = %q, want %q", raw, reply.Text, want)
		}
	}
}

func TestNormalizeNestedShapes(t *testing.T) {
	cases := map[string]string{
		`{"data":"nested string"}`:            "nested string",
		`{"result":{"text":"nested text"}}`:   "nested text",
		`{"output":{"message":"nested msg"}}`: "nested msg",
		`{"data":{"message":"data message"}}`: "data message",
		`{"result":"answer","noise":"extra"}`: "answer",
	}
	for raw, want := range cases {
		reply, err := NormalizeReply([]byte(raw))
		if err != nil {
			t.Fatalf("NormalizeReply(%s) error = %v", raw, err)
		}
		if reply.Text != want {
			t.Fatalf("NormalizeReply(%s) = %q, want %q", raw, reply.Text, want)
		}
	}
}

func TestNormalizeStructuredData(t *testing.T) {
	reply, err := NormalizeReply([]byte(`{"agent_text":"Score: 8/10","structured_json":{"score":8}}`))
	if err != nil {
		t.Fatalf("NormalizeReply() error = %v", err)
	}
	if reply.Structured["score"] != float64(8) {
		t.Fatalf("Structured = %v", reply.Structured)
	}

	reply, err = NormalizeReply([]byte(`{"response":"ok","evaluation":{"clarity":"high"}}`))
	if err != nil {
		t.Fatalf("NormalizeReply() error = %v", err)
	}
	if reply.Structured["clarity"] != "high" {
		t.Fatalf("Structured = %v", reply.Structured)
	}

	// A non-object structured field is ignored, not an error.
	reply, err = NormalizeReply([]byte(`{"agent_text":"ok","metadata":"just a string"}`))
	if err != nil {
		t.Fatalf("NormalizeReply() error = %v", err)
	}
	if reply.Structured != nil {
		t.Fatalf("Structured = %v, want nil", reply.Structured)
	}
}

func TestNormalizeFailsClosed(t *testing.T) {
	for _, raw := range []string{
		`{"unknown_field":"value"}`,
		`{"data":{"other":"value"}}`,
		`{}`,
		`[]`,
		`42`,
		`not json at all`,
		``,
		`""`,
	} {
		_, err := NormalizeReply([]byte(raw))
		if err == nil {
			t.Fatalf("NormalizeReply(%q) should fail closed", raw)
		}
		if reliability.KindOf(err) != reliability.KindValidation {
			t.Fatalf("NormalizeReply(%q) error kind = %q, want validation", raw, reliability.KindOf(err))
		}
	}
}
