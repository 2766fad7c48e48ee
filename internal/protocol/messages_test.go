package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageControl(t *testing.T) {
	raw := []byte(`{"type":"client_control","action":"start_capture"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	control, ok := msg.(ClientControl)
	if !ok {
		t.Fatalf("message type = %T, want ClientControl", msg)
	}
	if control.Action != ActionStartCapture {
		t.Fatalf("Action = %q, want %q", control.Action, ActionStartCapture)
	}
}

func TestParseClientMessageDismissToast(t *testing.T) {
	raw := []byte(`{"type":"client_control","action":"dismiss_toast","toast_id":3}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	control, ok := msg.(ClientControl)
	if !ok {
		t.Fatalf("message type = %T, want ClientControl", msg)
	}
	if control.ToastID != 3 {
		t.Fatalf("ToastID = %d, want 3", control.ToastID)
	}
}

func TestParseClientMessageRejectsDismissWithoutID(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"client_control","action":"dismiss_toast"}`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsUnknownAction(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"client_control","action":"reboot"}`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}
