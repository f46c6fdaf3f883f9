// Package device owns the lifecycle of the optional live camera resource.
// The manager is an explicit state machine with guaranteed release on every
// exit path; nothing relies on incidental cleanup.
package device

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/retina-portal/internal/domain"
	apperrors "github.com/spec-kit/retina-portal/pkg/util/errorutil"
)

// State enumerates the capture device lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateStreaming  State = "streaming"
	StateFailed     State = "failed"
)

// Frame is one rasterized still at the stream's native resolution.
type Frame struct {
	Data   []byte
	Width  int
	Height int
}

// Stream is a live video stream.
type Stream interface {
	// Snapshot rasterizes the current frame without stopping the stream.
	Snapshot() (Frame, error)
	// Stop releases all underlying device tracks.
	Stop()
}

// Constraints narrows the stream request.
type Constraints struct {
	Video bool
}

// StreamProvider is the device API. Requests may fail with a permission or
// availability error.
type StreamProvider interface {
	RequestStream(ctx context.Context, c Constraints) (Stream, error)
}

// Notifier surfaces a non-fatal, user-visible message.
type Notifier func(message string)

// Manager drives one camera resource through
// Idle → Requesting → Streaming → Idle, with permission failures taking the
// Idle → Requesting → Failed → Idle path.
type Manager struct {
	provider StreamProvider
	notify   Notifier
	logger   *zap.Logger

	mu      sync.Mutex
	state   State
	stream  Stream
	lastErr error
}

// NewManager builds a manager in Idle.
func NewManager(provider StreamProvider, notify Notifier, logger *zap.Logger) *Manager {
	if notify == nil {
		notify = func(string) {}
	}
	return &Manager{provider: provider, notify: notify, logger: logger, state: StateIdle}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the most recent acquisition failure, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Acquire requests a live stream. On failure it surfaces "could not access
// camera" as a non-fatal notification and settles back in Idle so the
// file-upload path stays available; it never propagates the device error to
// the caller. Returns whether the stream is up.
func (m *Manager) Acquire(ctx context.Context) bool {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return m.State() == StateStreaming
	}
	m.state = StateRequesting
	m.mu.Unlock()

	stream, err := m.provider.RequestStream(ctx, Constraints{Video: true})

	m.mu.Lock()
	if m.state != StateRequesting {
		// Released while the request was in flight; the manager is no
		// longer live for this acquisition.
		m.mu.Unlock()
		if stream != nil {
			stream.Stop()
		}
		return false
	}

	if err != nil {
		m.state = StateFailed
		m.lastErr = apperrors.NewDeviceError(err)
		m.mu.Unlock()

		m.logger.Warn("camera acquire failed", zap.Error(err))
		m.notify("could not access camera")
		m.Release()
		return false
	}

	m.state = StateStreaming
	m.stream = stream
	m.lastErr = nil
	m.mu.Unlock()
	return true
}

// CaptureFrame rasterizes the current frame. Valid only while Streaming; it
// does not stop the stream.
func (m *Manager) CaptureFrame() (domain.ScanCapture, error) {
	m.mu.Lock()
	if m.state != StateStreaming || m.stream == nil {
		m.mu.Unlock()
		return domain.ScanCapture{}, apperrors.NewValidationError("no active camera stream", nil)
	}
	stream := m.stream
	m.mu.Unlock()

	frame, err := stream.Snapshot()
	if err != nil {
		return domain.ScanCapture{}, apperrors.NewDeviceError(err)
	}
	return domain.ScanCapture{ImageData: frame.Data, Source: domain.CaptureSourceCamera}, nil
}

// AdoptFile accepts a still image from file selection. Selecting a file
// while streaming is an implicit Release followed by adopting the file.
func (m *Manager) AdoptFile(data []byte) domain.ScanCapture {
	if m.State() == StateStreaming {
		m.Release()
	}
	return domain.ScanCapture{ImageData: data, Source: domain.CaptureSourceUpload}
}

// Release stops all underlying tracks and returns to Idle. Valid from any
// state and idempotent; it runs on every exit path: successful capture,
// cancellation and teardown.
func (m *Manager) Release() {
	m.mu.Lock()
	stream := m.stream
	m.stream = nil
	m.state = StateIdle
	m.mu.Unlock()

	if stream != nil {
		stream.Stop()
	}
}
