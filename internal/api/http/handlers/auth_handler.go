package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/retina-portal/internal/api/dto"
	"github.com/spec-kit/retina-portal/internal/auth"
	"github.com/spec-kit/retina-portal/internal/capability"
	"github.com/spec-kit/retina-portal/internal/domain"
	"github.com/spec-kit/retina-portal/internal/service"
	"github.com/spec-kit/retina-portal/internal/session"
	apperrors "github.com/spec-kit/retina-portal/pkg/util/errorutil"
)

// AuthHandler exposes sign-up/sign-in/sign-out for both roles. The route
// fixes the role; sign-up payloads cannot choose one.
type AuthHandler struct {
	accounts *service.AccountService
	tokens   *auth.TokenManager
	source   *capability.TokenSource
	mirror   *session.Synchronizer
}

// AuthHandlerDeps bundles constructor dependencies.
type AuthHandlerDeps struct {
	Accounts *service.AccountService
	Tokens   *auth.TokenManager
	Source   *capability.TokenSource
	Mirror   *session.Synchronizer
}

// NewAuthHandler constructs handler.
func NewAuthHandler(deps AuthHandlerDeps) *AuthHandler {
	return &AuthHandler{
		accounts: deps.Accounts,
		tokens:   deps.Tokens,
		source:   deps.Source,
		mirror:   deps.Mirror,
	}
}

// SignUp handles POST /auth/{patient,doctor}/register.
func (h *AuthHandler) SignUp(userType domain.UserType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req dto.SignUpRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid payload")
		}
		if req.Email == "" || req.Password == "" || req.FullName == "" {
			return fiber.NewError(http.StatusBadRequest, "full_name, email, password required")
		}

		session, profile, err := h.accounts.SignUp(c.Context(), service.SignUpInput{
			Email:           req.Email,
			Password:        req.Password,
			UserType:        userType,
			FullName:        req.FullName,
			Phone:           req.Phone,
			Specialization:  req.Specialization,
			ExperienceYears: req.ExperienceYears,
		})
		if err != nil {
			return err
		}

		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"data": fiber.Map{
				"profile": profileResponse(profile),
				"session": dto.SessionResponse{Token: session.Token, ExpiresAt: session.ExpiresAt},
			},
		})
	}
}

// SignIn handles POST /auth/{patient,doctor}/login.
func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	session, err := h.accounts.SignIn(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	profile, err := h.accounts.ProfileOf(c.Context(), session.Identity)
	if err != nil {
		// Profile degrade is non-fatal; the session still stands.
		profile = nil
	}

	resp := fiber.Map{
		"session": dto.SessionResponse{Token: session.Token, ExpiresAt: session.ExpiresAt},
	}
	if profile != nil {
		resp["profile"] = profileResponse(profile)
	}
	return c.JSON(fiber.Map{"data": resp})
}

// SignOut handles POST /auth/logout. It revokes the caller's own bearer
// token and nothing else; a request without a valid token has no session to
// end and is rejected.
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	tokenID, ok := h.bearerTokenID(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	if err := h.source.RevokeToken(c.Context(), tokenID); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Session handles GET /auth/session: the synchronizer's mirror, exposed for
// operational introspection of the in-process session state.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	st := h.mirror.Snapshot()

	resp := fiber.Map{
		"ready":     st.Ready,
		"signed_in": st.Identity != "",
	}
	if st.Identity != "" {
		resp["identity"] = st.Identity
	}
	if st.Profile != nil {
		resp["profile"] = profileResponse(st.Profile)
	}
	return c.JSON(fiber.Map{"data": resp})
}

func (h *AuthHandler) bearerTokenID(c *fiber.Ctx) (string, bool) {
	parts := strings.SplitN(c.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	claims, err := h.tokens.ParseToken(parts[1])
	if err != nil {
		return "", false
	}
	return claims.ID, true
}

func profileResponse(p *domain.Profile) *dto.ProfileResponse {
	if p == nil {
		return nil
	}
	return &dto.ProfileResponse{
		ID:              p.ID,
		UserType:        string(p.UserType),
		FullName:        p.FullName,
		Email:           p.Email,
		Phone:           p.Phone,
		Specialization:  p.Specialization,
		ExperienceYears: p.ExperienceYears,
		AvatarURL:       p.AvatarURL,
	}
}
