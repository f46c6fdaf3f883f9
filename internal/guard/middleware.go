package guard

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/retina-portal/internal/auth"
	"github.com/spec-kit/retina-portal/internal/capability"
	"github.com/spec-kit/retina-portal/internal/domain"
	"github.com/spec-kit/retina-portal/internal/repository"
	"github.com/spec-kit/retina-portal/internal/session"
	apperrors "github.com/spec-kit/retina-portal/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller on an HTTP request.
type Principal struct {
	Identity string
	Profile  *domain.Profile
}

// Middleware validates bearer tokens, loads the profile and applies the same
// role decision the in-process guard applies to screens.
type Middleware struct {
	tokens   *auth.TokenManager
	store    capability.TokenStore
	profiles repository.ProfileRepository
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *auth.TokenManager, store capability.TokenStore, profiles repository.ProfileRepository) *Middleware {
	return &Middleware{tokens: tokens, store: store, profiles: profiles}
}

// RequireRole gates a route group behind one role. Requests that fail the
// check are redirected to the required role's sign-in surface.
func (m *Middleware) RequireRole(required domain.UserType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := m.stateFromRequest(c)
		if err != nil {
			return err
		}

		switch res := Decide(st, required); res.Decision {
		case DecisionAllow:
			c.Locals(principalKey, &Principal{Identity: st.Identity, Profile: st.Profile})
			return c.Next()
		default:
			return c.Redirect(res.RedirectTo, fiber.StatusSeeOther)
		}
	}
}

// stateFromRequest builds a per-request session state from the bearer token.
// An absent or invalid token reads as signed out, which Decide turns into a
// redirect rather than an error page.
func (m *Middleware) stateFromRequest(c *fiber.Ctx) (session.State, error) {
	st := session.State{Ready: true}

	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return st, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return st, nil
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return st, nil
	}

	// A signed-out token is still a well-formed JWT; the token store is what
	// makes revocation stick.
	valid, err := m.store.Valid(c.Context(), claims.ID)
	if err != nil {
		return st, apperrors.MapError(err)
	}
	if !valid {
		return st, nil
	}

	profile, err := m.profiles.GetByID(c.Context(), claims.Identity)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return st, nil
		}
		return st, apperrors.MapError(err)
	}

	st.Identity = claims.Identity
	st.Profile = profile
	return st, nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
