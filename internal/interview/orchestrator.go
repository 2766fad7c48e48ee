package interview

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/suyashmankar/interview-studio/internal/agent"
	"github.com/suyashmankar/interview-studio/internal/capture"
	"github.com/suyashmankar/interview-studio/internal/notify"
	"github.com/suyashmankar/interview-studio/internal/observability"
	"github.com/suyashmankar/interview-studio/internal/protocol"
	"github.com/suyashmankar/interview-studio/internal/speech"
	"github.com/suyashmankar/interview-studio/internal/stt"
	"github.com/suyashmankar/interview-studio/internal/transcript"
)

var (
	ErrBusy                = errors.New("a turn is already in flight")
	ErrNotCapturing        = errors.New("no capture in progress")
	ErrRecordingInProgress = errors.New("capture in progress")
	ErrEmptyText           = errors.New("empty answer text")
	ErrVoiceModeRequired   = errors.New("voice mode required")
	ErrNoPendingReview     = errors.New("no transcription awaiting review")
)

const (
	// DefaultMaxCapture overrides the recorder's own default; interview
	// answers routinely run past ninety seconds.
	DefaultMaxCapture          = 5 * time.Minute
	DefaultConfidenceThreshold = 0.7
	defaultCallTimeout         = 60 * time.Second
	archiveTimeout             = 2 * time.Second
	levelSampleInterval        = 100 * time.Millisecond
)

// Config wires the orchestrator's collaborators. Source, Transcriber,
// Agent and Speech are required; everything else has a sane default.
type Config struct {
	ParticipantID string

	Source      capture.Source
	Transcriber stt.Client
	Agent       agent.Client
	Speech      speech.Client
	Archive     transcript.Archive
	Metrics     *observability.Metrics

	Settings            Settings
	MaxCaptureDuration  time.Duration
	ChunkInterval       time.Duration
	ConfidenceThreshold float64
	ToastTTL            time.Duration
	CallTimeout         time.Duration
}

// Orchestrator is the turn state machine. It owns the transcript, the
// capture hardware, the notification queue and the audio cache, and it
// drives each answer through transcription, the dialogue agent and
// speech synthesis. All public methods are safe for concurrent use.
type Orchestrator struct {
	cfg     Config
	session *Session
	store   *transcript.Store
	archive transcript.Archive

	recorder *capture.Recorder
	monitor  *capture.Monitor
	toasts   *notify.Center
	events   *broadcaster
	metrics  *observability.Metrics

	rootCtx context.Context
	cancel  context.CancelFunc

	mu                sync.Mutex
	mode              Mode
	phase             Phase
	transcribing      bool
	agentBusy         bool
	synthesizing      bool
	capturing         bool
	pendingText       string
	pendingConfidence float64
	settings          Settings
	levelStop         chan struct{}

	audioMu sync.Mutex
	audio   map[string][]byte
}

func New(cfg Config) *Orchestrator {
	if cfg.MaxCaptureDuration <= 0 {
		cfg.MaxCaptureDuration = DefaultMaxCapture
	}
	if cfg.ChunkInterval <= 0 {
		cfg.ChunkInterval = capture.DefaultChunkInterval
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.Settings.Voice == "" {
		cfg.Settings.Voice = "onyx"
	}
	if cfg.Settings.Speed == 0 {
		cfg.Settings.Speed = 1.0
	}
	if cfg.Archive == nil {
		cfg.Archive = transcript.NewMemoryArchive()
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		cfg:      cfg,
		session:  NewSession(),
		store:    transcript.NewStore(),
		archive:  cfg.Archive,
		monitor:  capture.NewMonitor(),
		events:   newBroadcaster(),
		metrics:  cfg.Metrics,
		rootCtx:  ctx,
		cancel:   cancel,
		mode:     ModeVoice,
		phase:    PhaseIdle,
		settings: cfg.Settings,
		audio:    make(map[string][]byte),
	}
	o.recorder = capture.NewRecorder(cfg.Source, capture.Config{
		MaxDuration:   cfg.MaxCaptureDuration,
		ChunkInterval: cfg.ChunkInterval,
	})
	o.toasts = notify.NewCenter(cfg.ToastTTL, notify.Hooks{
		OnPush: func(t notify.Toast) {
			o.events.publish(protocol.Toast{
				Type:    protocol.TypeToast,
				ToastID: t.ID,
				Level:   string(t.Level),
				Message: t.Message,
			})
		},
		OnDismiss: func(id int64) {
			o.events.publish(protocol.ToastDismissed{
				Type:    protocol.TypeToastDismissed,
				ToastID: id,
			})
		},
	})
	return o
}

// Launch starts a fresh interview: new session ID, empty transcript and
// an empty synthesized-audio cache. The mode falls back to text when no
// capture device is present.
func (o *Orchestrator) Launch() (Snapshot, error) {
	id, err := o.session.Launch()
	if err != nil {
		return Snapshot{}, err
	}

	o.mu.Lock()
	o.mode = ModeVoice
	if o.cfg.Source == nil || !o.cfg.Source.Available() {
		o.mode = ModeText
	}
	o.phase = PhaseIdle
	o.transcribing = false
	o.agentBusy = false
	o.synthesizing = false
	o.capturing = false
	o.pendingText = ""
	o.pendingConfidence = 0
	o.settings = o.cfg.Settings
	o.mu.Unlock()

	o.store.Clear()
	o.audioMu.Lock()
	o.audio = make(map[string][]byte)
	o.audioMu.Unlock()

	if o.metrics != nil {
		o.metrics.ActiveInterviews.Set(1)
		o.metrics.InterviewEvents.WithLabelValues("launched").Inc()
	}
	log.Printf("interview launched session=%s mode=%s", id, o.Mode())
	o.publishSnapshot()
	return o.Snapshot(), nil
}

// End stops any running capture and freezes the session clock. Pipeline
// results that arrive after End are dropped.
func (o *Orchestrator) End() (Snapshot, error) {
	// Ending first makes any in-flight pipeline result stale before the
	// recorder callback can fire.
	if err := o.session.End(); err != nil {
		return Snapshot{}, err
	}

	o.mu.Lock()
	capturing := o.capturing
	o.mu.Unlock()
	if capturing {
		o.recorder.Stop()
	}
	if o.metrics != nil {
		o.metrics.ActiveInterviews.Set(0)
		o.metrics.InterviewEvents.WithLabelValues("ended").Inc()
	}
	log.Printf("interview ended session=%s turns=%d elapsed=%s",
		o.session.ID(), o.store.Len(), o.session.Elapsed().Round(time.Second))
	o.publishSnapshot()
	return o.Snapshot(), nil
}

// SetMode switches between voice and text answers. The switch is refused
// while a capture or a turn is in flight.
func (o *Orchestrator) SetMode(mode Mode) error {
	if mode != ModeVoice && mode != ModeText {
		return errors.New("unknown mode")
	}
	if o.session.State() != StateActive {
		return ErrNotActive
	}
	if mode == ModeVoice && (o.cfg.Source == nil || !o.cfg.Source.Available()) {
		return capture.ErrNoDevice
	}

	o.mu.Lock()
	if o.capturing {
		o.mu.Unlock()
		return ErrRecordingInProgress
	}
	if o.transcribing || o.agentBusy || o.synthesizing {
		o.mu.Unlock()
		return ErrBusy
	}
	o.mode = mode
	o.pendingText = ""
	o.pendingConfidence = 0
	o.phase = PhaseIdle
	o.mu.Unlock()

	o.publishSnapshot()
	return nil
}

// UpdateSettings validates and applies speech output settings.
func (o *Orchestrator) UpdateSettings(s Settings) error {
	if err := speech.ValidateOutput(s.Voice, s.Speed); err != nil {
		return err
	}
	o.mu.Lock()
	o.settings = s
	o.mu.Unlock()
	o.publishSnapshot()
	return nil
}

// StartCapture begins recording the participant's answer. A permission
// denial downgrades the interview to text mode so it can continue.
func (o *Orchestrator) StartCapture() error {
	if o.session.State() != StateActive {
		return ErrNotActive
	}

	o.mu.Lock()
	if o.mode != ModeVoice {
		o.mu.Unlock()
		return ErrVoiceModeRequired
	}
	if o.capturing {
		o.mu.Unlock()
		return capture.ErrCaptureActive
	}
	if o.transcribing || o.agentBusy || o.synthesizing {
		o.mu.Unlock()
		return ErrBusy
	}
	// A fresh capture supersedes any transcription awaiting review.
	o.pendingText = ""
	o.pendingConfidence = 0
	// Flags go up before the recorder starts. A take that fails or
	// drains immediately runs endCapture from its own goroutine, and
	// that teardown must always find the flags it is meant to clear.
	o.capturing = true
	o.phase = PhaseCapturing
	o.levelStop = make(chan struct{})
	stop := o.levelStop
	o.mu.Unlock()

	launchID := o.session.ID()
	live, err := o.recorder.Start(o.rootCtx, capture.Callbacks{
		OnBlob: func(rec capture.Recording) {
			go o.handleRecording(launchID, rec)
		},
		OnError: func(err error) {
			o.captureFailed(err)
		},
		OnMaxDuration: func() {
			o.toasts.Push(notify.LevelInfo, "Maximum recording duration reached")
			if o.metrics != nil {
				o.metrics.InterviewEvents.WithLabelValues("capture_max_duration").Inc()
			}
		},
	})
	if err != nil {
		o.mu.Lock()
		o.capturing = false
		o.phase = PhaseIdle
		if o.levelStop != nil {
			close(o.levelStop)
			o.levelStop = nil
		}
		o.mu.Unlock()
		if errors.Is(err, capture.ErrPermissionDenied) {
			o.mu.Lock()
			o.mode = ModeText
			o.mu.Unlock()
			o.toasts.Push(notify.LevelError, "Microphone access denied, switched to text answers")
			o.publishSnapshot()
		}
		o.reportError("capture", err)
		return err
	}

	if err := o.monitor.Start(live); err != nil {
		log.Printf("level monitor unavailable: %v", err)
	}

	go o.pumpLevels(stop)

	if o.metrics != nil {
		o.metrics.InterviewEvents.WithLabelValues("capture_started").Inc()
	}
	o.publishSnapshot()
	return nil
}

// StopCapture ends the running capture; the finished blob arrives via the
// recorder callback and continues through the pipeline.
func (o *Orchestrator) StopCapture() error {
	o.mu.Lock()
	capturing := o.capturing
	o.mu.Unlock()
	if !capturing {
		return ErrNotCapturing
	}
	o.recorder.Stop()
	return nil
}

// Submit sends a text answer: either a typed answer in text mode or the
// reviewed transcription after a low-confidence capture.
func (o *Orchestrator) Submit(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}
	if o.session.State() != StateActive {
		return ErrNotActive
	}

	o.mu.Lock()
	if o.capturing {
		o.mu.Unlock()
		return ErrRecordingInProgress
	}
	if o.transcribing || o.agentBusy || o.synthesizing {
		o.mu.Unlock()
		return ErrBusy
	}
	o.pendingText = ""
	o.pendingConfidence = 0
	o.agentBusy = true
	o.phase = PhaseSendingToAgent
	o.mu.Unlock()

	o.publishSnapshot()
	go o.runTurn(o.session.ID(), text)
	return nil
}

// CancelReview discards a low-confidence transcription without sending it.
func (o *Orchestrator) CancelReview() error {
	o.mu.Lock()
	if o.phase != PhaseAwaitingReview {
		o.mu.Unlock()
		return ErrNoPendingReview
	}
	o.pendingText = ""
	o.pendingConfidence = 0
	o.phase = PhaseIdle
	o.mu.Unlock()
	o.publishSnapshot()
	return nil
}

func (o *Orchestrator) DismissToast(id int64) {
	o.toasts.Dismiss(id)
}

// Subscribe registers a websocket-facing event channel. The returned
// cancel func must be called when the subscriber goes away.
func (o *Orchestrator) Subscribe() (<-chan any, func()) {
	return o.events.subscribe()
}

func (o *Orchestrator) Transcript() []transcript.Turn {
	return o.store.Turns()
}

// Audio returns cached synthesized audio for a turn reference.
func (o *Orchestrator) Audio(ref string) ([]byte, bool) {
	o.audioMu.Lock()
	defer o.audioMu.Unlock()
	data, ok := o.audio[ref]
	return data, ok
}

func (o *Orchestrator) Mode() Mode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	snap := Snapshot{
		SessionID:         o.session.ID(),
		ParticipantID:     o.cfg.ParticipantID,
		State:             o.session.State(),
		Mode:              o.mode,
		Phase:             o.phase,
		Transcribing:      o.transcribing,
		AgentBusy:         o.agentBusy,
		Synthesizing:      o.synthesizing,
		Capturing:         o.capturing,
		PendingReviewText: o.pendingText,
		PendingConfidence: o.pendingConfidence,
		Settings:          o.settings,
	}
	o.mu.Unlock()

	if snap.State != StateInactive {
		snap.StartedAt = o.session.StartedAt()
		snap.ElapsedSeconds = o.session.Elapsed().Seconds()
	}
	if snap.Capturing {
		snap.CaptureSeconds = o.recorder.Elapsed().Seconds()
	}
	snap.Turns = o.store.Len()
	snap.Toasts = o.toasts.Active()
	return snap
}

// Close releases the orchestrator's background resources.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	capturing := o.capturing
	o.mu.Unlock()
	if capturing {
		o.recorder.Stop()
	}
	o.cancel()
	o.toasts.Close()
}

func (o *Orchestrator) pumpLevels(stop <-chan struct{}) {
	ticker := time.NewTicker(levelSampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-o.rootCtx.Done():
			return
		case <-ticker.C:
			o.events.publish(protocol.LevelSample{
				Type:  protocol.TypeLevelSample,
				Level: o.monitor.Level(),
				TSMs:  time.Now().UnixMilli(),
			})
		}
	}
}
