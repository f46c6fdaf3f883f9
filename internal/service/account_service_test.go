package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/retina-portal/internal/auth"
	"github.com/spec-kit/retina-portal/internal/capability"
	"github.com/spec-kit/retina-portal/internal/domain"
	"github.com/spec-kit/retina-portal/internal/recordstore"
	"github.com/spec-kit/retina-portal/internal/repository"
)

func newAccountFixture(t *testing.T, store *recordstore.MemoryStore) *AccountService {
	t.Helper()
	source := capability.NewTokenSource(capability.TokenSourceDeps{
		Tokens:      auth.NewTokenManager("test-secret", time.Hour),
		Credentials: repository.NewCredentialRepository(store),
		Profiles:    repository.NewProfileRepository(store),
		Store:       capability.NewMemoryTokenStore(),
		Logger:      zap.NewNop(),
		BcryptCost:  4,
		SessionTTL:  time.Hour,
	})
	return NewAccountService(source, repository.NewProfileRepository(store), zap.NewNop())
}

func TestSignUpCreatesRoleTaggedProfile(t *testing.T) {
	store := recordstore.NewMemoryStore()
	svc := newAccountFixture(t, store)

	specialty := "Retina"
	years := 12
	session, profile, err := svc.SignUp(context.Background(), SignUpInput{
		Email:           "d@example.com",
		Password:        "secret123",
		UserType:        domain.UserTypeDoctor,
		FullName:        "Dr. Example",
		Specialization:  &specialty,
		ExperienceYears: &years,
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if profile.ID != session.Identity {
		t.Fatalf("profile id %s != session identity %s", profile.ID, session.Identity)
	}
	if profile.UserType != domain.UserTypeDoctor {
		t.Fatalf("user type = %s, want doctor", profile.UserType)
	}

	stored, err := svc.ProfileOf(context.Background(), session.Identity)
	if err != nil {
		t.Fatalf("profile of: %v", err)
	}
	if stored.Specialization == nil || *stored.Specialization != "Retina" {
		t.Fatalf("specialization = %v", stored.Specialization)
	}
	if stored.ExperienceYears == nil || *stored.ExperienceYears != 12 {
		t.Fatalf("experience years = %v", stored.ExperienceYears)
	}
}

func TestSignUpProfileWriteFailureKeepsSession(t *testing.T) {
	// Credential inserts succeed, profile inserts fail: two stores.
	store := recordstore.NewMemoryStore()
	failing := recordstore.NewMemoryStore()
	failing.FailInsert = errors.New("store down")

	source := capability.NewTokenSource(capability.TokenSourceDeps{
		Tokens:      auth.NewTokenManager("test-secret", time.Hour),
		Credentials: repository.NewCredentialRepository(store),
		Profiles:    repository.NewProfileRepository(failing),
		Store:       capability.NewMemoryTokenStore(),
		Logger:      zap.NewNop(),
		BcryptCost:  4,
		SessionTTL:  time.Hour,
	})
	svc := NewAccountService(source, repository.NewProfileRepository(failing), zap.NewNop())

	session, profile, err := svc.SignUp(context.Background(), SignUpInput{
		Email:    "p@example.com",
		Password: "secret123",
		UserType: domain.UserTypePatient,
		FullName: "Pat",
	})
	if err == nil {
		t.Fatal("profile write failure must surface")
	}
	if profile != nil {
		t.Fatalf("profile = %+v, want nil", profile)
	}
	// The credential and session already exist; callers get the session back
	// so the account is not orphaned silently.
	if session == nil || session.Identity == "" {
		t.Fatal("session must be returned even when the profile write fails")
	}
}

func TestSignInSignOutDelegate(t *testing.T) {
	store := recordstore.NewMemoryStore()
	svc := newAccountFixture(t, store)

	if _, _, err := svc.SignUp(context.Background(), SignUpInput{
		Email:    "p@example.com",
		Password: "secret123",
		UserType: domain.UserTypePatient,
		FullName: "Pat",
	}); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if err := svc.SignOut(context.Background()); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	session, err := svc.SignIn(context.Background(), "p@example.com", "secret123")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if session.UserType != domain.UserTypePatient {
		t.Fatalf("user type = %s, want patient", session.UserType)
	}
}
