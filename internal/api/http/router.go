package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/retina-portal/internal/api/http/handlers"
	"github.com/spec-kit/retina-portal/internal/domain"
	"github.com/spec-kit/retina-portal/internal/guard"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health       *handlers.HealthHandler
	Auth         *handlers.AuthHandler
	Scans        *handlers.ScanHandler
	Appointments *handlers.AppointmentHandler
	Guard        *guard.Middleware
}

// RegisterRoutes wires HTTP routes. Patient and doctor surfaces are gated by
// role; rejected requests are redirected to the required role's sign-in.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/patient/register", cfg.Auth.SignUp(domain.UserTypePatient))
	authGroup.Post("/patient/login", cfg.Auth.SignIn)
	authGroup.Post("/doctor/register", cfg.Auth.SignUp(domain.UserTypeDoctor))
	authGroup.Post("/doctor/login", cfg.Auth.SignIn)
	authGroup.Post("/logout", cfg.Auth.SignOut)
	authGroup.Get("/session", cfg.Auth.Session)

	patient := app.Group("/patient", cfg.Guard.RequireRole(domain.UserTypePatient))
	patient.Post("/scans", cfg.Scans.Analyze)
	patient.Get("/scans", cfg.Scans.History)
	patient.Get("/scans/count", cfg.Scans.Count)
	patient.Post("/appointments", cfg.Appointments.Book)
	patient.Get("/appointments", cfg.Appointments.ListForPatient)

	doctor := app.Group("/doctor", cfg.Guard.RequireRole(domain.UserTypeDoctor))
	doctor.Get("/appointments", cfg.Appointments.ListForDoctor)
	doctor.Patch("/appointments/:id/status", cfg.Appointments.UpdateStatus)
}
