package dto

import "time"

// ScanSubmitRequest carries the uploaded eye image (base64-encoded).
type ScanSubmitRequest struct {
	Image string `json:"image"`
}

// ScanResultResponse mirrors a persisted scan record.
type ScanResultResponse struct {
	ID              string    `json:"id"`
	DiseaseDetected *string   `json:"disease_detected,omitempty"`
	DiseaseLevel    *string   `json:"disease_level,omitempty"`
	ConfidenceScore *float64  `json:"confidence_score,omitempty"`
	ScanDate        time.Time `json:"scan_date"`
}
