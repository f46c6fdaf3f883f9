package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/retina-portal/internal/domain"
	"github.com/spec-kit/retina-portal/internal/recordstore"
)

// AppointmentRepository defines persistence access for appointments.
type AppointmentRepository interface {
	Create(ctx context.Context, appt *domain.Appointment) error
	ListByPatient(ctx context.Context, patientID string) ([]domain.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]domain.Appointment, error)
	UpdateStatus(ctx context.Context, id string, status domain.AppointmentStatus) error
	CountByDoctor(ctx context.Context, doctorID string, status domain.AppointmentStatus) (int64, error)
}

type appointmentRepository struct {
	store recordstore.Store
}

// NewAppointmentRepository returns a record-store backed implementation.
func NewAppointmentRepository(store recordstore.Store) AppointmentRepository {
	return &appointmentRepository{store: store}
}

func (r *appointmentRepository) Create(ctx context.Context, appt *domain.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now()
	}

	_, err := r.store.Insert(ctx, recordstore.TableAppointments, recordstore.Row{
		"id":               appt.ID,
		"patient_id":       appt.PatientID,
		"doctor_id":        appt.DoctorID,
		"appointment_date": appt.AppointmentDate,
		"symptoms":         appt.Symptoms,
		"status":           string(appt.Status),
		"created_at":       appt.CreatedAt,
	})
	return err
}

func (r *appointmentRepository) ListByPatient(ctx context.Context, patientID string) ([]domain.Appointment, error) {
	return r.list(ctx, recordstore.Filter{"patient_id": patientID})
}

func (r *appointmentRepository) ListByDoctor(ctx context.Context, doctorID string) ([]domain.Appointment, error) {
	return r.list(ctx, recordstore.Filter{"doctor_id": doctorID})
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id string, status domain.AppointmentStatus) error {
	affected, err := r.store.Update(ctx, recordstore.TableAppointments,
		recordstore.Filter{"id": id},
		recordstore.Row{"status": string(status)},
	)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepository) CountByDoctor(ctx context.Context, doctorID string, status domain.AppointmentStatus) (int64, error) {
	filter := recordstore.Filter{"doctor_id": doctorID}
	if status != "" {
		filter["status"] = string(status)
	}
	return r.store.Count(ctx, recordstore.TableAppointments, filter)
}

func (r *appointmentRepository) list(ctx context.Context, filter recordstore.Filter) ([]domain.Appointment, error) {
	rows, err := r.store.Query(ctx, recordstore.TableAppointments, filter)
	if err != nil {
		return nil, err
	}

	appts := make([]domain.Appointment, 0, len(rows))
	for _, row := range rows {
		appts = append(appts, domain.Appointment{
			ID:              rowString(row["id"]),
			PatientID:       rowString(row["patient_id"]),
			DoctorID:        rowString(row["doctor_id"]),
			AppointmentDate: rowTime(row["appointment_date"]),
			Symptoms:        rowString(row["symptoms"]),
			Status:          domain.AppointmentStatus(rowString(row["status"])),
			CreatedAt:       rowTime(row["created_at"]),
		})
	}
	return appts, nil
}
