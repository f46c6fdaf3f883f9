package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/retina-portal/internal/domain"
	"github.com/spec-kit/retina-portal/internal/recordstore"
)

// ScanRepository defines persistence access for scan records. Records are
// insert-only; there is no update path.
type ScanRepository interface {
	Create(ctx context.Context, record *domain.ScanRecord) error
	ListByPatient(ctx context.Context, patientID string) ([]domain.ScanRecord, error)
	CountByPatient(ctx context.Context, patientID string) (int64, error)
}

type scanRepository struct {
	store recordstore.Store
}

// NewScanRepository returns a record-store backed implementation.
func NewScanRepository(store recordstore.Store) ScanRepository {
	return &scanRepository{store: store}
}

func (r *scanRepository) Create(ctx context.Context, record *domain.ScanRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.ScanDate.IsZero() {
		record.ScanDate = time.Now()
	}

	row := recordstore.Row{
		"id":         record.ID,
		"patient_id": record.PatientID,
		"image_ref":  record.ImageRef,
		"scan_date":  record.ScanDate,
	}
	if record.DiseaseDetected != nil {
		row["disease_detected"] = *record.DiseaseDetected
	}
	if record.DiseaseLevel != nil {
		row["disease_level"] = string(*record.DiseaseLevel)
	}
	if record.ConfidenceScore != nil {
		row["confidence_score"] = *record.ConfidenceScore
	}

	_, err := r.store.Insert(ctx, recordstore.TableEyeScans, row)
	return err
}

func (r *scanRepository) ListByPatient(ctx context.Context, patientID string) ([]domain.ScanRecord, error) {
	rows, err := r.store.Query(ctx, recordstore.TableEyeScans, recordstore.Filter{"patient_id": patientID})
	if err != nil {
		return nil, err
	}

	records := make([]domain.ScanRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, scanFromRow(row))
	}
	return records, nil
}

func (r *scanRepository) CountByPatient(ctx context.Context, patientID string) (int64, error) {
	return r.store.Count(ctx, recordstore.TableEyeScans, recordstore.Filter{"patient_id": patientID})
}

func scanFromRow(row recordstore.Row) domain.ScanRecord {
	record := domain.ScanRecord{
		ID:              rowString(row["id"]),
		PatientID:       rowString(row["patient_id"]),
		ImageRef:        rowString(row["image_ref"]),
		DiseaseDetected: rowStringPtr(row["disease_detected"]),
		ConfidenceScore: rowFloatPtr(row["confidence_score"]),
		ScanDate:        rowTime(row["scan_date"]),
	}
	if level := rowStringPtr(row["disease_level"]); level != nil {
		dl := domain.DiseaseLevel(*level)
		record.DiseaseLevel = &dl
	}
	return record
}
