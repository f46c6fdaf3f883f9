package events

import (
	"time"

	"github.com/spec-kit/retina-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSignedIn          EventType = "signed_in"
	EventSignedOut         EventType = "signed_out"
	EventTokenRefreshed    EventType = "token_refreshed"
	EventScanCompleted     EventType = "scan_completed"
	EventAppointmentBooked EventType = "appointment_booked"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Identity  string    `json:"identity,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// SessionChangedPayload accompanies sign-in/sign-out/refresh events. Session
// is nil on sign-out.
type SessionChangedPayload struct {
	Session *domain.Session `json:"session,omitempty"`
}

// ScanCompletedPayload payload.
type ScanCompletedPayload struct {
	ScanID          string              `json:"scan_id"`
	DiseaseDetected string              `json:"disease_detected"`
	DiseaseLevel    domain.DiseaseLevel `json:"disease_level"`
	ConfidenceScore float64             `json:"confidence_score"`
}

// AppointmentBookedPayload payload.
type AppointmentBookedPayload struct {
	AppointmentID   string    `json:"appointment_id"`
	DoctorID        string    `json:"doctor_id"`
	AppointmentDate time.Time `json:"appointment_date"`
}
