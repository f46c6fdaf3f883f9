package service

import (
	"context"

	"github.com/spec-kit/retina-portal/internal/domain"
	"github.com/spec-kit/retina-portal/internal/repository"
)

// ScanHistoryService answers history and dashboard-count queries over
// persisted scan records. It never writes; record creation belongs to the
// scan workflow alone.
type ScanHistoryService struct {
	scans repository.ScanRepository
}

// NewScanHistoryService builds the service.
func NewScanHistoryService(scans repository.ScanRepository) *ScanHistoryService {
	return &ScanHistoryService{scans: scans}
}

// ListForPatient returns the patient's past scans.
func (s *ScanHistoryService) ListForPatient(ctx context.Context, patientID string) ([]domain.ScanRecord, error) {
	return s.scans.ListByPatient(ctx, patientID)
}

// CountForPatient backs the patient dashboard counter.
func (s *ScanHistoryService) CountForPatient(ctx context.Context, patientID string) (int64, error) {
	return s.scans.CountByPatient(ctx, patientID)
}
