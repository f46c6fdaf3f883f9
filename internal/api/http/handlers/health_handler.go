package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/retina-portal/internal/persistence"
)

// HealthHandler answers liveness and readiness checks. Ready means both
// stores behind the portal answer: the record store holding profiles, scans
// and appointments, and the token store backing sessions.
type HealthHandler struct {
	service string
	version string
	records *persistence.Postgres
	tokens  *persistence.Redis
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(service, version string, records *persistence.Postgres, tokens *persistence.Redis) *HealthHandler {
	return &HealthHandler{service: service, version: version, records: records, tokens: tokens}
}

// Live reports process liveness without touching any dependency.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "up",
		"service": h.service,
		"version": h.version,
	})
}

// Ready pings both stores, reporting per-store state so a degraded
// response says which one is down.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	checks := fiber.Map{"record_store": "ok", "token_store": "ok"}
	degraded := false

	if err := h.records.Ping(ctx); err != nil {
		checks["record_store"] = err.Error()
		degraded = true
	}
	if err := h.tokens.Ping(ctx); err != nil {
		checks["token_store"] = err.Error()
		degraded = true
	}

	if degraded {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded",
			"checks": checks,
		})
	}
	return c.JSON(fiber.Map{
		"status": "ready",
		"checks": checks,
	})
}
