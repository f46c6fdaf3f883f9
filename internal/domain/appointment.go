package domain

import "time"

// AppointmentStatus tracks the lifecycle of a booked appointment. Bookings
// always start as pending; later transitions are driven by the doctor side.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Valid reports whether the status is a known value.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCompleted, AppointmentCancelled:
		return true
	}
	return false
}

// Appointment is a patient's booking with a doctor.
type Appointment struct {
	ID              string
	PatientID       string
	DoctorID        string
	AppointmentDate time.Time
	Symptoms        string
	Status          AppointmentStatus
	CreatedAt       time.Time
}
