package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/retina-portal/internal/api/dto"
	"github.com/spec-kit/retina-portal/internal/domain"
	"github.com/spec-kit/retina-portal/internal/guard"
	"github.com/spec-kit/retina-portal/internal/service"
)

// AppointmentHandler exposes booking and listing endpoints.
type AppointmentHandler struct {
	appointments *service.AppointmentService
}

// NewAppointmentHandler constructs handler.
func NewAppointmentHandler(appointments *service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

// Book handles POST /patient/appointments.
func (h *AppointmentHandler) Book(c *fiber.Ctx) error {
	principal, ok := guard.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.AppointmentBookRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	appt, err := h.appointments.Book(c.Context(), principal.Identity, service.BookInput{
		DoctorID:        req.DoctorID,
		AppointmentDate: req.AppointmentDate,
		Symptoms:        req.Symptoms,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": appointmentResponse(*appt)})
}

// ListForPatient handles GET /patient/appointments.
func (h *AppointmentHandler) ListForPatient(c *fiber.Ctx) error {
	principal, ok := guard.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	appts, err := h.appointments.ListForPatient(c.Context(), principal.Identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": appointmentResponses(appts)})
}

// ListForDoctor handles GET /doctor/appointments.
func (h *AppointmentHandler) ListForDoctor(c *fiber.Ctx) error {
	principal, ok := guard.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	appts, err := h.appointments.ListForDoctor(c.Context(), principal.Identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": appointmentResponses(appts)})
}

// UpdateStatus handles PATCH /doctor/appointments/:id/status.
func (h *AppointmentHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := guard.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.AppointmentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	err := h.appointments.UpdateStatus(c.Context(), principal.Identity, c.Params("id"), domain.AppointmentStatus(req.Status))
	if err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func appointmentResponse(a domain.Appointment) dto.AppointmentResponse {
	return dto.AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		DoctorID:        a.DoctorID,
		AppointmentDate: a.AppointmentDate,
		Symptoms:        a.Symptoms,
		Status:          string(a.Status),
	}
}

func appointmentResponses(appts []domain.Appointment) []dto.AppointmentResponse {
	out := make([]dto.AppointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, appointmentResponse(a))
	}
	return out
}
