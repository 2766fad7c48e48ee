package capture

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func collectOutcome(t *testing.T, timeout time.Duration, blobCh <-chan Recording, errCh <-chan error) (Recording, error) {
	t.Helper()
	select {
	case rec := <-blobCh:
		select {
		case err := <-errCh:
			t.Fatalf("both blob and error fired: %v", err)
		case <-time.After(50 * time.Millisecond):
		}
		return rec, nil
	case err := <-errCh:
		select {
		case <-blobCh:
			t.Fatalf("both error and blob fired")
		case <-time.After(50 * time.Millisecond):
		}
		return Recording{}, err
	case <-time.After(timeout):
		t.Fatalf("no terminal callback within %v", timeout)
	}
	return Recording{}, nil
}

func TestRecorderConcatenatesChunks(t *testing.T) {
	src := &ScriptedSource{
		ChunkData: [][]byte{[]byte("aa"), []byte("bb"), []byte("cc")},
		Interval:  time.Millisecond,
	}
	r := NewRecorder(src, Config{MaxDuration: time.Second})

	blobCh := make(chan Recording, 1)
	errCh := make(chan error, 1)
	_, err := r.Start(context.Background(), Callbacks{
		OnBlob:  func(rec Recording) { blobCh <- rec },
		OnError: func(err error) { errCh <- err },
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	rec, err := collectOutcome(t, time.Second, blobCh, errCh)
	if err != nil {
		t.Fatalf("unexpected error outcome: %v", err)
	}
	if !bytes.Equal(rec.Data, []byte("aabbcc")) {
		t.Fatalf("Data = %q, want %q", rec.Data, "aabbcc")
	}
	if rec.Encoding != "audio/webm;codecs=opus" {
		t.Fatalf("Encoding = %q", rec.Encoding)
	}
	if r.Recording() {
		t.Fatalf("recorder should be released after finalization")
	}
}

func TestRecorderManualStop(t *testing.T) {
	src := &ScriptedSource{
		ChunkData: [][]byte{[]byte("xy")},
		Interval:  time.Millisecond,
		Loop:      true,
	}
	r := NewRecorder(src, Config{MaxDuration: time.Minute})

	blobCh := make(chan Recording, 1)
	errCh := make(chan error, 1)
	_, err := r.Start(context.Background(), Callbacks{
		OnBlob:  func(rec Recording) { blobCh <- rec },
		OnError: func(err error) { errCh <- err },
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if !r.Recording() {
		t.Fatalf("recorder should be active before Stop")
	}
	if r.Elapsed() <= 0 {
		t.Fatalf("Elapsed() should be positive while recording")
	}
	r.Stop()

	rec, err := collectOutcome(t, time.Second, blobCh, errCh)
	if err != nil {
		t.Fatalf("unexpected error outcome: %v", err)
	}
	if rec.Cause != CauseManual {
		t.Fatalf("Cause = %q, want %q", rec.Cause, CauseManual)
	}
	if len(rec.Data) == 0 {
		t.Fatalf("manual stop should still produce buffered audio")
	}
}

func TestRecorderMaxDurationNotifiesThenSucceeds(t *testing.T) {
	src := &ScriptedSource{
		ChunkData: [][]byte{[]byte("z")},
		Interval:  time.Millisecond,
		Loop:      true,
	}
	r := NewRecorder(src, Config{MaxDuration: 30 * time.Millisecond})

	blobCh := make(chan Recording, 1)
	errCh := make(chan error, 1)
	maxCh := make(chan time.Time, 2)
	_, err := r.Start(context.Background(), Callbacks{
		OnBlob:        func(rec Recording) { blobCh <- rec },
		OnError:       func(err error) { errCh <- err },
		OnMaxDuration: func() { maxCh <- time.Now() },
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	rec, err := collectOutcome(t, time.Second, blobCh, errCh)
	if err != nil {
		t.Fatalf("max duration must terminate with a blob, got error %v", err)
	}
	if rec.Cause != CauseMaxDuration {
		t.Fatalf("Cause = %q, want %q", rec.Cause, CauseMaxDuration)
	}

	select {
	case <-maxCh:
	default:
		t.Fatalf("max-duration notification did not fire")
	}
	select {
	case <-maxCh:
		t.Fatalf("max-duration notification fired more than once")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRecorderDeviceErrorOutcome(t *testing.T) {
	deviceErr := errors.New("stream torn down")
	src := &ScriptedSource{
		ChunkData: [][]byte{[]byte("a"), []byte("b")},
		Interval:  time.Millisecond,
		FailAfter: 1,
		FailErr:   deviceErr,
	}
	r := NewRecorder(src, Config{MaxDuration: time.Second})

	blobCh := make(chan Recording, 1)
	errCh := make(chan error, 1)
	_, err := r.Start(context.Background(), Callbacks{
		OnBlob:  func(rec Recording) { blobCh <- rec },
		OnError: func(err error) { errCh <- err },
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	_, outcomeErr := collectOutcome(t, time.Second, blobCh, errCh)
	if outcomeErr == nil {
		t.Fatalf("device failure must surface through the error callback")
	}
	if !errors.Is(outcomeErr, deviceErr) {
		t.Fatalf("error = %v, want wrapped %v", outcomeErr, deviceErr)
	}
	if r.Recording() {
		t.Fatalf("recorder must release the stream on the error path")
	}
}

func TestRecorderOpenFailure(t *testing.T) {
	openErr := errors.New("device busy")
	src := &ScriptedSource{OpenErr: openErr}
	r := NewRecorder(src, Config{})

	errCh := make(chan error, 1)
	_, err := r.Start(context.Background(), Callbacks{
		OnError: func(err error) { errCh <- err },
	})
	if !errors.Is(err, openErr) {
		t.Fatalf("Start() error = %v, want wrapped %v", err, openErr)
	}
	select {
	case cbErr := <-errCh:
		if !errors.Is(cbErr, openErr) {
			t.Fatalf("callback error = %v", cbErr)
		}
	default:
		t.Fatalf("error callback did not fire on open failure")
	}
	if r.Recording() {
		t.Fatalf("failed start must not leave an active session")
	}
}

func TestRecorderRejectsSecondStart(t *testing.T) {
	src := &ScriptedSource{
		ChunkData: [][]byte{[]byte("a")},
		Interval:  time.Millisecond,
		Loop:      true,
	}
	r := NewRecorder(src, Config{MaxDuration: time.Minute})

	if _, err := r.Start(context.Background(), Callbacks{}); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	defer r.Stop()

	if _, err := r.Start(context.Background(), Callbacks{}); !errors.Is(err, ErrCaptureActive) {
		t.Fatalf("second Start() error = %v, want ErrCaptureActive", err)
	}
}

func TestRecorderUnavailableDevice(t *testing.T) {
	src := &ScriptedSource{Unavailable: true}
	r := NewRecorder(src, Config{})

	_, err := r.Start(context.Background(), Callbacks{})
	if !errors.Is(err, ErrNoDevice) {
		t.Fatalf("Start() error = %v, want ErrNoDevice", err)
	}
}
