package handlers

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/retina-portal/internal/api/dto"
	"github.com/spec-kit/retina-portal/internal/domain"
	"github.com/spec-kit/retina-portal/internal/events"
	"github.com/spec-kit/retina-portal/internal/guard"
	"github.com/spec-kit/retina-portal/internal/repository"
	"github.com/spec-kit/retina-portal/internal/scan"
	"github.com/spec-kit/retina-portal/internal/service"
)

// ScanHandler exposes the scan workflow over HTTP. Each analyze request is
// one capture-screen visit: a fresh workflow is built, driven to Result and
// torn down, so the state machine invariants hold per request.
type ScanHandler struct {
	analyzer   scan.Analyzer
	scans      repository.ScanRepository
	history    *service.ScanHistoryService
	dispatcher events.Dispatcher
	logger     *zap.Logger
	timeout    time.Duration
	maxBytes   int64
}

// ScanHandlerDeps bundles constructor dependencies.
type ScanHandlerDeps struct {
	Analyzer   scan.Analyzer
	Scans      repository.ScanRepository
	History    *service.ScanHistoryService
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Timeout    time.Duration
	MaxBytes   int64
}

// NewScanHandler constructs handler.
func NewScanHandler(deps ScanHandlerDeps) *ScanHandler {
	return &ScanHandler{
		analyzer:   deps.Analyzer,
		scans:      deps.Scans,
		history:    deps.History,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		timeout:    deps.Timeout,
		maxBytes:   deps.MaxBytes,
	}
}

// Analyze handles POST /patient/scans.
func (h *ScanHandler) Analyze(c *fiber.Ctx) error {
	principal, ok := guard.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.ScanSubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Image == "" {
		return fiber.NewError(http.StatusBadRequest, "image required")
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "image must be base64 encoded")
	}
	if h.maxBytes > 0 && int64(len(image)) > h.maxBytes {
		return fiber.NewError(http.StatusRequestEntityTooLarge, "image too large")
	}

	workflow := scan.NewWorkflow(scan.WorkflowDeps{
		Analyzer:   h.analyzer,
		Scans:      h.scans,
		Identity:   func() (string, bool) { return principal.Identity, true },
		Dispatcher: h.dispatcher,
		Logger:     h.logger,
		Timeout:    h.timeout,
	})
	defer workflow.Close()

	if err := workflow.SetImage(domain.ScanCapture{ImageData: image, Source: domain.CaptureSourceUpload}); err != nil {
		return err
	}

	record, err := workflow.Analyze(c.Context())
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": scanResponse(*record)})
}

// History handles GET /patient/scans.
func (h *ScanHandler) History(c *fiber.Ctx) error {
	principal, ok := guard.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	records, err := h.history.ListForPatient(c.Context(), principal.Identity)
	if err != nil {
		return err
	}

	out := make([]dto.ScanResultResponse, 0, len(records))
	for _, record := range records {
		out = append(out, scanResponse(record))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Count handles GET /patient/scans/count for the dashboard.
func (h *ScanHandler) Count(c *fiber.Ctx) error {
	principal, ok := guard.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	count, err := h.history.CountForPatient(c.Context(), principal.Identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"count": count}})
}

func scanResponse(record domain.ScanRecord) dto.ScanResultResponse {
	resp := dto.ScanResultResponse{
		ID:              record.ID,
		DiseaseDetected: record.DiseaseDetected,
		ConfidenceScore: record.ConfidenceScore,
		ScanDate:        record.ScanDate,
	}
	if record.DiseaseLevel != nil {
		level := string(*record.DiseaseLevel)
		resp.DiseaseLevel = &level
	}
	return resp
}
