package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/retina-portal/internal/capability"
	"github.com/spec-kit/retina-portal/internal/domain"
	"github.com/spec-kit/retina-portal/internal/repository"
)

// AccountService coordinates sign-up and sign-in flows around the capability
// source. Sign-up is where a profile's role is fixed for good.
type AccountService struct {
	source   capability.Source
	profiles repository.ProfileRepository
	logger   *zap.Logger
}

// NewAccountService builds the service.
func NewAccountService(source capability.Source, profiles repository.ProfileRepository, logger *zap.Logger) *AccountService {
	return &AccountService{source: source, profiles: profiles, logger: logger}
}

// SignUpInput describes account creation payload.
type SignUpInput struct {
	Email           string
	Password        string
	UserType        domain.UserType
	FullName        string
	Phone           *string
	Specialization  *string
	ExperienceYears *int
}

// SignUp registers the credential with the capability source and creates the
// role-tagged profile keyed by the issued identity.
func (s *AccountService) SignUp(ctx context.Context, input SignUpInput) (*domain.Session, *domain.Profile, error) {
	session, err := s.source.SignUp(ctx, input.Email, input.Password, input.UserType)
	if err != nil {
		return nil, nil, err
	}

	profile := &domain.Profile{
		ID:              session.Identity,
		UserType:        input.UserType,
		FullName:        input.FullName,
		Email:           input.Email,
		Phone:           input.Phone,
		Specialization:  input.Specialization,
		ExperienceYears: input.ExperienceYears,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		// The credential exists but the profile write failed; the session
		// mirror will degrade to a nil profile until sign-up is repaired.
		s.logger.Error("profile creation failed after sign-up",
			zap.String("identity", session.Identity),
			zap.Error(err),
		)
		return session, nil, err
	}
	return session, profile, nil
}

// SignIn authenticates against the capability source.
func (s *AccountService) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	return s.source.SignIn(ctx, email, password)
}

// SignOut destroys the active session.
func (s *AccountService) SignOut(ctx context.Context) error {
	return s.source.SignOut(ctx)
}

// ProfileOf loads a profile by identity.
func (s *AccountService) ProfileOf(ctx context.Context, identity string) (*domain.Profile, error) {
	return s.profiles.GetByID(ctx, identity)
}
