package domain

import "time"

// DiseaseLevel grades the severity returned by an eye-image analysis.
type DiseaseLevel string

const (
	DiseaseLevelNormal   DiseaseLevel = "normal"
	DiseaseLevelMild     DiseaseLevel = "mild"
	DiseaseLevelModerate DiseaseLevel = "moderate"
	DiseaseLevelSevere   DiseaseLevel = "severe"
	DiseaseLevelCritical DiseaseLevel = "critical"
)

// CaptureSource identifies how a still image entered the scan workflow.
type CaptureSource string

const (
	CaptureSourceUpload CaptureSource = "upload"
	CaptureSourceCamera CaptureSource = "camera"
)

// ScanCapture is a transient in-memory image awaiting analysis. It is never
// persisted; it lives only while the capture screen is open.
type ScanCapture struct {
	ImageData []byte
	Source    CaptureSource
}

// AnalysisResult is what the pluggable analyzer resolves with.
type AnalysisResult struct {
	DiseaseDetected string
	DiseaseLevel    DiseaseLevel
	ConfidenceScore float64
}

// ScanRecord is the persisted outcome of one completed analysis. Records are
// immutable after creation; there is no update path.
type ScanRecord struct {
	ID              string
	PatientID       string
	ImageRef        string
	DiseaseDetected *string
	DiseaseLevel    *DiseaseLevel
	ConfidenceScore *float64
	ScanDate        time.Time
}
