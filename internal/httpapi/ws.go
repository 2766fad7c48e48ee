package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/suyashmankar/interview-studio/internal/protocol"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 120 * time.Second
	wsReadLimit    = 1 << 20
)

// handleWS bridges the orchestrator event stream to a websocket client
// and feeds control messages back in. A fresh state snapshot is sent on
// connect so the client can render without a separate poll.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cancelSub := s.orch.Subscribe()
	outbound := make(chan any, 256)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range outbound {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}()

	forwarderDone := make(chan struct{})
	go func() {
		defer close(forwarderDone)
		for msg := range events {
			select {
			case outbound <- msg:
			default:
				// Keep websocket writes single-threaded; drop when the
				// outbound queue is saturated.
			}
		}
	}()

	// The forwarder is the only sender left once the read loop returns;
	// unsubscribe, drain it, then close outbound to end the writer.
	defer func() {
		cancelSub()
		<-forwarderDone
		close(outbound)
		<-writerDone
	}()

	if payload, err := json.Marshal(s.orch.Snapshot()); err == nil {
		outbound <- protocol.StateSnapshot{
			Type:    protocol.TypeStateSnapshot,
			Payload: payload,
		}
	}

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.pushWSError(outbound, "invalid_client_message", err)
			continue
		}
		control, ok := parsed.(protocol.ClientControl)
		if !ok {
			continue
		}
		switch control.Action {
		case protocol.ActionStartCapture:
			if err := s.orch.StartCapture(); err != nil {
				s.pushWSError(outbound, "start_capture_failed", err)
			}
		case protocol.ActionStopCapture:
			if err := s.orch.StopCapture(); err != nil {
				s.pushWSError(outbound, "stop_capture_failed", err)
			}
		case protocol.ActionDismissToast:
			s.orch.DismissToast(control.ToastID)
		}
	}
}

func (s *Server) pushWSError(outbound chan<- any, code string, err error) {
	event := protocol.ErrorEvent{
		Type:   protocol.TypeErrorEvent,
		Code:   code,
		Source: "gateway",
		Detail: err.Error(),
	}
	select {
	case outbound <- event:
	default:
	}
}
