// Package scan drives one capture-screen visit: image in, analysis request
// out, persisted record, displayed result.
package scan

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/retina-portal/internal/domain"
	"github.com/spec-kit/retina-portal/internal/events"
	"github.com/spec-kit/retina-portal/internal/repository"
	apperrors "github.com/spec-kit/retina-portal/pkg/util/errorutil"
)

// State enumerates the workflow lifecycle.
type State string

const (
	StateEmpty      State = "empty"
	StateImageReady State = "image_ready"
	StateAnalyzing  State = "analyzing"
	StateResult     State = "result"
)

// Releaser releases the capture device. Satisfied by device.Manager.
type Releaser interface {
	Release()
}

// IdentityFunc reports the active identity at persist time, typically bound
// to the session mirror's Snapshot.
type IdentityFunc func() (string, bool)

// Workflow is one visit's Empty → ImageReady → Analyzing → Result machine.
// It is the sole writer of ScanRecord creation requests.
type Workflow struct {
	deps WorkflowDeps
	mu   sync.Mutex

	state   State
	capture *domain.ScanCapture
	result  *domain.AnalysisResult
	record  *domain.ScanRecord
	closed  bool
}

// WorkflowDeps bundles the workflow collaborators.
type WorkflowDeps struct {
	Analyzer   Analyzer
	Scans      repository.ScanRepository
	Device     Releaser
	Identity   IdentityFunc
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// Timeout bounds one analysis invocation. Zero means no bound.
	Timeout time.Duration
}

// NewWorkflow builds a workflow in Empty.
func NewWorkflow(deps WorkflowDeps) *Workflow {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Workflow{deps: deps, state: StateEmpty}
}

// State returns the current lifecycle state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Capture returns the pending image, if any.
func (w *Workflow) Capture() *domain.ScanCapture {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.capture
}

// Result returns the analysis outcome once in Result.
func (w *Workflow) Result() (*domain.AnalysisResult, *domain.ScanRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result, w.record
}

// SetImage moves Empty → ImageReady with the given capture.
func (w *Workflow) SetImage(capture domain.ScanCapture) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return apperrors.NewValidationError("scan workflow closed", nil)
	}
	if w.state != StateEmpty {
		return apperrors.NewValidationError("image already set", map[string]any{"state": string(w.state)})
	}
	if len(capture.ImageData) == 0 {
		return apperrors.NewValidationError("empty image", nil)
	}

	c := capture
	w.capture = &c
	w.state = StateImageReady
	return nil
}

// Discard drops the pending image, returning to Empty. A camera-sourced
// image releases the device on the way out.
func (w *Workflow) Discard() error {
	w.mu.Lock()

	if w.state != StateImageReady {
		w.mu.Unlock()
		return apperrors.NewValidationError("no image to discard", map[string]any{"state": string(w.state)})
	}

	fromCamera := w.capture != nil && w.capture.Source == domain.CaptureSourceCamera
	w.capture = nil
	w.state = StateEmpty
	w.mu.Unlock()

	if fromCamera && w.deps.Device != nil {
		w.deps.Device.Release()
	}
	return nil
}

// Analyze runs the pluggable analyzer on the pending image and, on success,
// persists exactly one ScanRecord tagged with the active identity before
// moving to Result. Analysis or persistence failure returns the workflow to
// ImageReady with the image intact; retry is user-initiated.
func (w *Workflow) Analyze(ctx context.Context) (*domain.ScanRecord, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, apperrors.NewValidationError("scan workflow closed", nil)
	}
	if w.state != StateImageReady || w.capture == nil {
		w.mu.Unlock()
		return nil, apperrors.NewValidationError("no image ready for analysis", map[string]any{"state": string(w.state)})
	}
	w.state = StateAnalyzing
	image := w.capture.ImageData
	w.mu.Unlock()

	// The analyzer call is the long suspension point; the lock is not held
	// so teardown and readers stay responsive.
	analyzeCtx := ctx
	cancel := func() {}
	if w.deps.Timeout > 0 {
		analyzeCtx, cancel = context.WithTimeout(ctx, w.deps.Timeout)
	}
	result, err := w.deps.Analyzer.Analyze(analyzeCtx, image)
	cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		// Late result after teardown: discarded, never persisted.
		return nil, apperrors.NewValidationError("scan workflow closed", nil)
	}

	if err != nil {
		w.state = StateImageReady
		w.deps.Logger.Warn("analysis failed", zap.Error(err))
		return nil, apperrors.NewAnalysisError(err)
	}

	identity, ok := w.deps.Identity()
	if !ok {
		w.state = StateImageReady
		return nil, apperrors.NewAuthError("no active identity", nil)
	}

	level := result.DiseaseLevel
	detected := result.DiseaseDetected
	confidence := result.ConfidenceScore
	record := &domain.ScanRecord{
		PatientID:       identity,
		ImageRef:        imageRef(image),
		DiseaseDetected: &detected,
		DiseaseLevel:    &level,
		ConfidenceScore: &confidence,
		ScanDate:        time.Now(),
	}
	if err := w.deps.Scans.Create(ctx, record); err != nil {
		w.state = StateImageReady
		w.deps.Logger.Warn("scan persist failed", zap.Error(err))
		return nil, apperrors.NewPersistenceError(err)
	}

	w.state = StateResult
	res := result
	w.result = &res
	w.record = record
	w.publishCompleted(ctx, identity, record, result)
	return record, nil
}

// Reset clears image and result, returning Result → Empty for a new scan.
func (w *Workflow) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateResult {
		return apperrors.NewValidationError("no result to reset", map[string]any{"state": string(w.state)})
	}
	w.capture = nil
	w.result = nil
	w.record = nil
	w.state = StateEmpty
	return nil
}

// Close tears the workflow down, releasing the device. An in-flight analysis
// observes the closed flag and discards its result without persisting.
func (w *Workflow) Close() {
	w.mu.Lock()
	w.closed = true
	w.capture = nil
	w.mu.Unlock()

	if w.deps.Device != nil {
		w.deps.Device.Release()
	}
}

func (w *Workflow) publishCompleted(ctx context.Context, identity string, record *domain.ScanRecord, result domain.AnalysisResult) {
	if w.deps.Dispatcher == nil {
		return
	}
	_ = w.deps.Dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventScanCompleted,
		Identity:  identity,
		Timestamp: time.Now(),
		Payload: events.ScanCompletedPayload{
			ScanID:          record.ID,
			DiseaseDetected: result.DiseaseDetected,
			DiseaseLevel:    result.DiseaseLevel,
			ConfidenceScore: result.ConfidenceScore,
		},
	})
}

// imageRef derives the stored reference for an image. Raw bytes never land
// in the record store; a real deployment would upload to object storage and
// keep the URL.
func imageRef([]byte) string {
	return "inline:" + uuid.NewString()
}
