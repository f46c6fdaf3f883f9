package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/retina-portal/internal/domain"
	"github.com/spec-kit/retina-portal/internal/events"
	"github.com/spec-kit/retina-portal/internal/repository"
	apperrors "github.com/spec-kit/retina-portal/pkg/util/errorutil"
)

// AppointmentService coordinates booking and status flows.
type AppointmentService struct {
	appointments repository.AppointmentRepository
	profiles     repository.ProfileRepository
	dispatcher   events.Dispatcher
}

// NewAppointmentService builds the service.
func NewAppointmentService(appointments repository.AppointmentRepository, profiles repository.ProfileRepository, dispatcher events.Dispatcher) *AppointmentService {
	return &AppointmentService{appointments: appointments, profiles: profiles, dispatcher: dispatcher}
}

// BookInput describes a patient booking action.
type BookInput struct {
	DoctorID        string
	AppointmentDate time.Time
	Symptoms        string
}

// Book creates an appointment for the patient. New bookings always start
// pending; later transitions belong to the doctor side.
func (s *AppointmentService) Book(ctx context.Context, patientID string, input BookInput) (*domain.Appointment, error) {
	if input.DoctorID == "" {
		return nil, apperrors.NewValidationError("doctor is required", nil)
	}
	if input.AppointmentDate.IsZero() {
		return nil, apperrors.NewValidationError("appointment date is required", nil)
	}

	doctor, err := s.profiles.GetByID(ctx, input.DoctorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("doctor", nil)
		}
		return nil, err
	}
	if doctor.UserType != domain.UserTypeDoctor {
		return nil, apperrors.NewValidationError("selected profile is not a doctor", nil)
	}

	appt := &domain.Appointment{
		PatientID:       patientID,
		DoctorID:        input.DoctorID,
		AppointmentDate: input.AppointmentDate,
		Symptoms:        input.Symptoms,
		Status:          domain.AppointmentPending,
	}
	if err := s.appointments.Create(ctx, appt); err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventAppointmentBooked,
			Identity:  patientID,
			Timestamp: time.Now(),
			Payload: events.AppointmentBookedPayload{
				AppointmentID:   appt.ID,
				DoctorID:        appt.DoctorID,
				AppointmentDate: appt.AppointmentDate,
			},
		})
	}
	return appt, nil
}

// ListForPatient returns the patient's appointments.
func (s *AppointmentService) ListForPatient(ctx context.Context, patientID string) ([]domain.Appointment, error) {
	return s.appointments.ListByPatient(ctx, patientID)
}

// ListForDoctor returns the doctor's appointments.
func (s *AppointmentService) ListForDoctor(ctx context.Context, doctorID string) ([]domain.Appointment, error) {
	return s.appointments.ListByDoctor(ctx, doctorID)
}

// UpdateStatus applies a doctor-driven status transition.
func (s *AppointmentService) UpdateStatus(ctx context.Context, doctorID, appointmentID string, status domain.AppointmentStatus) error {
	if !status.Valid() || status == domain.AppointmentPending {
		return apperrors.NewValidationError("invalid status transition", map[string]any{"status": status})
	}

	appts, err := s.appointments.ListByDoctor(ctx, doctorID)
	if err != nil {
		return err
	}
	owned := false
	for _, a := range appts {
		if a.ID == appointmentID {
			owned = true
			break
		}
	}
	if !owned {
		return apperrors.NewForbidden("appointment belongs to another doctor")
	}

	return s.appointments.UpdateStatus(ctx, appointmentID, status)
}

// PendingCountForDoctor backs the doctor dashboard counter.
func (s *AppointmentService) PendingCountForDoctor(ctx context.Context, doctorID string) (int64, error) {
	return s.appointments.CountByDoctor(ctx, doctorID, domain.AppointmentPending)
}
