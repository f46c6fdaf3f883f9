package dto

import "time"

// AppointmentBookRequest carries a booking action.
type AppointmentBookRequest struct {
	DoctorID        string    `json:"doctor_id"`
	AppointmentDate time.Time `json:"appointment_date"`
	Symptoms        string    `json:"symptoms"`
}

// AppointmentStatusRequest carries a doctor-driven status transition.
type AppointmentStatusRequest struct {
	Status string `json:"status"`
}

// AppointmentResponse mirrors an appointment.
type AppointmentResponse struct {
	ID              string    `json:"id"`
	PatientID       string    `json:"patient_id"`
	DoctorID        string    `json:"doctor_id"`
	AppointmentDate time.Time `json:"appointment_date"`
	Symptoms        string    `json:"symptoms"`
	Status          string    `json:"status"`
}
