package capability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/retina-portal/internal/auth"
	"github.com/spec-kit/retina-portal/internal/domain"
	"github.com/spec-kit/retina-portal/internal/recordstore"
	"github.com/spec-kit/retina-portal/internal/repository"
	apperrors "github.com/spec-kit/retina-portal/pkg/util/errorutil"
)

func newTestSource(t *testing.T) (*TokenSource, repository.ProfileRepository) {
	t.Helper()
	store := recordstore.NewMemoryStore()
	profiles := repository.NewProfileRepository(store)
	source := NewTokenSource(TokenSourceDeps{
		Tokens:      auth.NewTokenManager("test-secret", time.Hour),
		Credentials: repository.NewCredentialRepository(store),
		Profiles:    profiles,
		Store:       NewMemoryTokenStore(),
		Logger:      zap.NewNop(),
		BcryptCost:  4, // min cost keeps the test fast
		SessionTTL:  time.Hour,
	})
	return source, profiles
}

func TestSignUpIssuesSession(t *testing.T) {
	source, _ := newTestSource(t)

	var changes []ChangeEvent
	source.Subscribe(func(ev ChangeEvent) { changes = append(changes, ev) })

	sess, err := source.SignUp(context.Background(), "p@example.com", "secret123", domain.UserTypePatient)
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if sess.Identity == "" || sess.Token == "" {
		t.Fatalf("incomplete session: %+v", sess)
	}
	if sess.UserType != domain.UserTypePatient {
		t.Fatalf("user type = %s, want patient", sess.UserType)
	}

	if len(changes) != 1 || changes[0].Type != ChangeSignedIn {
		t.Fatalf("changes = %+v, want one SIGNED_IN", changes)
	}

	cur, err := source.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("current session: %v", err)
	}
	if cur == nil || cur.Identity != sess.Identity {
		t.Fatalf("current = %+v, want %s", cur, sess.Identity)
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	source, _ := newTestSource(t)

	if _, err := source.SignUp(context.Background(), "p@example.com", "secret123", domain.UserTypePatient); err != nil {
		t.Fatalf("first sign up: %v", err)
	}
	_, err := source.SignUp(context.Background(), "p@example.com", "other456", domain.UserTypePatient)
	var domErr *apperrors.DomainError
	if !errors.As(err, &domErr) || domErr.Code != "CONFLICT" {
		t.Fatalf("error = %v, want conflict", err)
	}
}

func TestSignInRoundTrip(t *testing.T) {
	source, profiles := newTestSource(t)

	sess, err := source.SignUp(context.Background(), "d@example.com", "secret123", domain.UserTypeDoctor)
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if err := profiles.Create(context.Background(), &domain.Profile{
		ID: sess.Identity, UserType: domain.UserTypeDoctor, FullName: "Dr. Example", Email: "d@example.com",
	}); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if err := source.SignOut(context.Background()); err != nil {
		t.Fatalf("sign out: %v", err)
	}

	signed, err := source.SignIn(context.Background(), "d@example.com", "secret123")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if signed.Identity != sess.Identity {
		t.Fatalf("identity = %s, want %s", signed.Identity, sess.Identity)
	}
	// The user type is re-derived from the stored profile, not trusted from
	// the request.
	if signed.UserType != domain.UserTypeDoctor {
		t.Fatalf("user type = %s, want doctor", signed.UserType)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	source, _ := newTestSource(t)

	if _, err := source.SignUp(context.Background(), "p@example.com", "secret123", domain.UserTypePatient); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	for _, attempt := range []struct{ email, password string }{
		{"p@example.com", "wrong-pass"},
		{"nobody@example.com", "secret123"},
	} {
		_, err := source.SignIn(context.Background(), attempt.email, attempt.password)
		var domErr *apperrors.DomainError
		if !errors.As(err, &domErr) || domErr.Code != "AUTH_FAILED" {
			t.Fatalf("SignIn(%s) error = %v, want auth-failed", attempt.email, err)
		}
	}
}

func TestSignOutRevokesSession(t *testing.T) {
	source, _ := newTestSource(t)

	var changes []ChangeEvent
	source.Subscribe(func(ev ChangeEvent) { changes = append(changes, ev) })

	if _, err := source.SignUp(context.Background(), "p@example.com", "secret123", domain.UserTypePatient); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if err := source.SignOut(context.Background()); err != nil {
		t.Fatalf("sign out: %v", err)
	}

	cur, err := source.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("current session: %v", err)
	}
	if cur != nil {
		t.Fatalf("current after sign out = %+v, want nil", cur)
	}
	if len(changes) != 2 || changes[1].Type != ChangeSignedOut {
		t.Fatalf("changes = %+v, want SIGNED_IN then SIGNED_OUT", changes)
	}
	if changes[1].Session != nil {
		t.Fatal("signed-out change must carry no session")
	}
}

func TestRevokedTokenReadsSignedOut(t *testing.T) {
	tokenStore := NewMemoryTokenStore()
	store := recordstore.NewMemoryStore()
	source := NewTokenSource(TokenSourceDeps{
		Tokens:      auth.NewTokenManager("test-secret", time.Hour),
		Credentials: repository.NewCredentialRepository(store),
		Profiles:    repository.NewProfileRepository(store),
		Store:       tokenStore,
		Logger:      zap.NewNop(),
		BcryptCost:  4,
		SessionTTL:  time.Hour,
	})

	sess, err := source.SignUp(context.Background(), "p@example.com", "secret123", domain.UserTypePatient)
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	// Revocation elsewhere (another device, an admin) invalidates the local
	// snapshot too.
	if err := tokenStore.Revoke(context.Background(), sess.TokenID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	cur, err := source.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("current session: %v", err)
	}
	if cur != nil {
		t.Fatalf("current = %+v, want nil after revocation", cur)
	}
}

func TestRevokeTokenOnlyTouchesItsSession(t *testing.T) {
	source, _ := newTestSource(t)

	first, err := source.SignUp(context.Background(), "a@example.com", "secret123", domain.UserTypePatient)
	if err != nil {
		t.Fatalf("sign up alice: %v", err)
	}
	second, err := source.SignUp(context.Background(), "b@example.com", "secret123", domain.UserTypePatient)
	if err != nil {
		t.Fatalf("sign up bob: %v", err)
	}

	// Revoking alice's token must leave bob, the current session, intact.
	if err := source.RevokeToken(context.Background(), first.TokenID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	cur, err := source.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("current session: %v", err)
	}
	if cur == nil || cur.TokenID != second.TokenID {
		t.Fatalf("current = %+v, want bob's session untouched", cur)
	}
}

func TestRevokeTokenSignsOutCurrent(t *testing.T) {
	source, _ := newTestSource(t)

	var changes []ChangeEvent
	source.Subscribe(func(ev ChangeEvent) { changes = append(changes, ev) })

	sess, err := source.SignUp(context.Background(), "p@example.com", "secret123", domain.UserTypePatient)
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if err := source.RevokeToken(context.Background(), sess.TokenID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	cur, err := source.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("current session: %v", err)
	}
	if cur != nil {
		t.Fatalf("current = %+v, want nil after revoking its own token", cur)
	}
	if len(changes) != 2 || changes[1].Type != ChangeSignedOut {
		t.Fatalf("changes = %+v, want SIGNED_IN then SIGNED_OUT", changes)
	}
}

func TestRefreshReissuesToken(t *testing.T) {
	source, _ := newTestSource(t)

	first, err := source.SignUp(context.Background(), "p@example.com", "secret123", domain.UserTypePatient)
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	refreshed, err := source.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.TokenID == first.TokenID {
		t.Fatal("refresh must mint a new token")
	}
	if refreshed.Identity != first.Identity {
		t.Fatalf("identity changed across refresh: %s vs %s", refreshed.Identity, first.Identity)
	}

	cur, err := source.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("current session: %v", err)
	}
	if cur == nil || cur.TokenID != refreshed.TokenID {
		t.Fatalf("current = %+v, want refreshed token", cur)
	}
}

func TestCallsInsideCallbackAreRejected(t *testing.T) {
	source, _ := newTestSource(t)

	var reentrantErrs []error
	source.Subscribe(func(ChangeEvent) {
		_, err := source.CurrentSession(context.Background())
		reentrantErrs = append(reentrantErrs, err)
		reentrantErrs = append(reentrantErrs, source.SignOut(context.Background()))
	})

	if _, err := source.SignUp(context.Background(), "p@example.com", "secret123", domain.UserTypePatient); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	if len(reentrantErrs) != 2 {
		t.Fatalf("callback ran %d nested calls, want 2", len(reentrantErrs))
	}
	for i, err := range reentrantErrs {
		if !errors.Is(err, ErrReentrantCall) {
			t.Fatalf("nested call %d error = %v, want ErrReentrantCall", i, err)
		}
	}

	// The source stays usable after the rejected nested calls.
	cur, err := source.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("current session after notification: %v", err)
	}
	if cur == nil {
		t.Fatal("session must survive rejected nested calls")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	source, _ := newTestSource(t)

	var count int
	unsubscribe := source.Subscribe(func(ChangeEvent) { count++ })

	if _, err := source.SignUp(context.Background(), "p@example.com", "secret123", domain.UserTypePatient); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	unsubscribe()
	if err := source.SignOut(context.Background()); err != nil {
		t.Fatalf("sign out: %v", err)
	}

	if count != 1 {
		t.Fatalf("deliveries = %d, want 1", count)
	}
}
