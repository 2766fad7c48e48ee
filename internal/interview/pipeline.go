package interview

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/suyashmankar/interview-studio/internal/capture"
	"github.com/suyashmankar/interview-studio/internal/notify"
	"github.com/suyashmankar/interview-studio/internal/protocol"
	"github.com/suyashmankar/interview-studio/internal/reliability"
	"github.com/suyashmankar/interview-studio/internal/transcript"
)

// handleRecording runs the transcription leg after a capture finishes.
// Low-confidence results park in the review phase instead of being sent.
func (o *Orchestrator) handleRecording(launchID string, rec capture.Recording) {
	o.endCapture()

	if o.metrics != nil {
		o.metrics.CaptureSeconds.Observe(rec.Duration.Seconds())
	}
	if o.stale(launchID) {
		return
	}

	o.mu.Lock()
	o.transcribing = true
	o.phase = PhaseTranscribing
	o.mu.Unlock()
	o.publishSnapshot()

	ctx, cancelFn := context.WithTimeout(o.rootCtx, o.cfg.CallTimeout)
	start := time.Now()
	result, err := o.cfg.Transcriber.Transcribe(ctx, rec.Data, rec.Encoding)
	cancelFn()

	if o.stale(launchID) {
		o.clearTranscribing()
		return
	}
	if err != nil {
		o.clearTranscribing()
		o.reportError("transcription", err)
		o.publishSnapshot()
		return
	}
	if o.metrics != nil {
		o.metrics.ObserveStage("transcription", time.Since(start))
	}

	if result.Confidence < o.cfg.ConfidenceThreshold {
		o.mu.Lock()
		o.transcribing = false
		o.pendingText = result.Text
		o.pendingConfidence = result.Confidence
		o.phase = PhaseAwaitingReview
		o.mu.Unlock()
		o.toasts.Push(notify.LevelInfo, "Low-confidence transcription, please review before sending")
		o.publishSnapshot()
		return
	}

	o.mu.Lock()
	o.transcribing = false
	o.agentBusy = true
	o.phase = PhaseSendingToAgent
	o.mu.Unlock()
	o.publishSnapshot()
	o.runTurn(launchID, result.Text)
}

// runTurn drives one answer through the agent and, when auto-play is on,
// speech synthesis. The participant turn is committed to the transcript
// before the agent is called so a failed reply never loses the answer.
func (o *Orchestrator) runTurn(launchID, text string) {
	turnStart := time.Now()
	o.appendTurn(launchID, transcript.RoleParticipant, text, "", nil)

	ctx, cancelFn := context.WithTimeout(o.rootCtx, o.cfg.CallTimeout)
	agentStart := time.Now()
	reply, err := o.cfg.Agent.Respond(ctx, o.cfg.ParticipantID, launchID, text)
	cancelFn()

	if o.stale(launchID) {
		o.clearBusy()
		return
	}
	if err != nil {
		o.clearBusy()
		o.reportError("agent", err)
		o.publishSnapshot()
		return
	}
	if o.metrics != nil {
		o.metrics.ObserveStage("agent", time.Since(agentStart))
	}

	label := transcript.LabelQuestion
	if len(reply.Structured) > 0 {
		label = transcript.LabelFeedback
	}
	turn := o.appendTurn(launchID, transcript.RoleAgent, reply.Text, label, reply.Structured)

	o.mu.Lock()
	o.agentBusy = false
	settings := o.settings
	synthesize := settings.AutoPlaySpeech && reply.Text != ""
	if synthesize {
		o.synthesizing = true
		o.phase = PhaseGeneratingSpeech
	} else {
		o.phase = PhaseIdle
	}
	o.mu.Unlock()
	o.publishSnapshot()

	if synthesize {
		o.synthesizeTurn(launchID, turn, reply.Text, settings)
	}

	if o.metrics != nil {
		o.metrics.ObserveStage("turn_total", time.Since(turnStart))
	}
}

// synthesizeTurn voices the agent reply. Failures leave the text turn in
// place; the interview continues without audio.
func (o *Orchestrator) synthesizeTurn(launchID string, turn transcript.Turn, text string, settings Settings) {
	ctx, cancelFn := context.WithTimeout(o.rootCtx, o.cfg.CallTimeout)
	start := time.Now()
	audio, err := o.cfg.Speech.Synthesize(ctx, text, settings.Voice, settings.Speed)
	cancelFn()

	o.mu.Lock()
	o.synthesizing = false
	o.phase = PhaseIdle
	o.mu.Unlock()

	if o.stale(launchID) {
		o.publishSnapshot()
		return
	}
	if err != nil {
		o.reportError("synthesis", err)
		o.publishSnapshot()
		return
	}
	if o.metrics != nil {
		o.metrics.ObserveStage("synthesis", time.Since(start))
	}

	ref := uuid.NewString()
	o.audioMu.Lock()
	o.audio[ref] = audio
	o.audioMu.Unlock()

	if err := o.store.UpdateAudio(turn.ID, ref); err != nil {
		log.Printf("attach audio to turn %d: %v", turn.ID, err)
		return
	}
	o.events.publish(protocol.TurnAudio{
		Type:     protocol.TypeTurnAudio,
		TurnID:   turn.ID,
		AudioRef: ref,
		AutoPlay: true,
	})
	o.publishSnapshot()
}

func (o *Orchestrator) appendTurn(launchID string, role transcript.Role, text, label string, structured map[string]any) transcript.Turn {
	turn := o.store.Append(role, text, label, structured)
	if o.metrics != nil {
		o.metrics.Turns.WithLabelValues(string(role)).Inc()
	}
	o.events.publish(protocol.TurnAppended{
		Type:       protocol.TypeTurnAppended,
		TurnID:     turn.ID,
		Role:       string(turn.Role),
		Text:       turn.Text,
		Label:      turn.Label,
		Structured: turn.StructuredData,
		TSMs:       turn.CreatedAt.UnixMilli(),
	})

	go func() {
		ctx, cancelFn := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancelFn()
		if err := o.archive.SaveTurn(ctx, launchID, turn); err != nil {
			log.Printf("archive turn %d: %v", turn.ID, err)
		}
	}()
	return turn
}

// endCapture tears down the monitor and level pump once a take finishes,
// whatever the outcome.
func (o *Orchestrator) endCapture() {
	o.monitor.Stop()
	o.mu.Lock()
	o.capturing = false
	if o.levelStop != nil {
		close(o.levelStop)
		o.levelStop = nil
	}
	o.mu.Unlock()
}

func (o *Orchestrator) captureFailed(err error) {
	o.endCapture()
	o.mu.Lock()
	o.phase = PhaseIdle
	o.mu.Unlock()
	o.reportError("capture", err)
	o.publishSnapshot()
}

// stale reports whether the pipeline result belongs to a session that has
// been ended or relaunched since the work started.
func (o *Orchestrator) stale(launchID string) bool {
	return o.session.State() != StateActive || o.session.ID() != launchID
}

func (o *Orchestrator) clearTranscribing() {
	o.mu.Lock()
	o.transcribing = false
	o.phase = PhaseIdle
	o.mu.Unlock()
}

func (o *Orchestrator) clearBusy() {
	o.mu.Lock()
	o.agentBusy = false
	o.synthesizing = false
	o.phase = PhaseIdle
	o.mu.Unlock()
}

// reportError classifies a failure, records it and surfaces it as both a
// toast and a websocket error event. Rate limits are surfaced with their
// reset time rather than retried.
func (o *Orchestrator) reportError(source string, err error) {
	code := string(reliability.KindOf(err))
	if code == "" {
		code = "internal"
	}
	detail := err.Error()
	retryable := false

	var classified *reliability.Error
	if errors.As(err, &classified) {
		code = classified.Code
		retryable = classified.Retryable
	}
	if limited, ok := reliability.IsRateLimited(err); ok && !limited.ResetAt.IsZero() {
		o.toasts.Push(notify.LevelError,
			"Rate limited, try again after "+limited.ResetAt.Format(time.Kitchen))
	} else {
		o.toasts.Push(notify.LevelError, detail)
	}

	if o.metrics != nil {
		o.metrics.ProviderErrors.WithLabelValues(source, code).Inc()
	}
	log.Printf("%s error: %v", source, err)
	o.events.publish(protocol.ErrorEvent{
		Type:      protocol.TypeErrorEvent,
		Code:      code,
		Source:    source,
		Retryable: retryable,
		Detail:    detail,
	})
}

func (o *Orchestrator) publishSnapshot() {
	payload, err := json.Marshal(o.Snapshot())
	if err != nil {
		log.Printf("marshal snapshot: %v", err)
		return
	}
	o.events.publish(protocol.StateSnapshot{
		Type:    protocol.TypeStateSnapshot,
		Payload: payload,
	})
}
