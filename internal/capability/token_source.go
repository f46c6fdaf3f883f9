package capability

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/retina-portal/internal/auth"
	"github.com/spec-kit/retina-portal/internal/domain"
	"github.com/spec-kit/retina-portal/internal/events"
	"github.com/spec-kit/retina-portal/internal/repository"
	apperrors "github.com/spec-kit/retina-portal/pkg/util/errorutil"
)

// TokenSource is the shipped Source implementation: JWT session tokens,
// credentials checked against the record store, live tokens tracked in the
// token store so sign-out revokes them.
type TokenSource struct {
	tokens     *auth.TokenManager
	creds      repository.CredentialRepository
	profiles   repository.ProfileRepository
	store      TokenStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	ttl        time.Duration

	mu      sync.Mutex
	current *domain.Session
	subs    map[int]func(ChangeEvent)
	nextSub int

	notifying atomic.Bool
}

// TokenSourceDeps bundles constructor dependencies.
type TokenSourceDeps struct {
	Tokens      *auth.TokenManager
	Credentials repository.CredentialRepository
	Profiles    repository.ProfileRepository
	Store       TokenStore
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	BcryptCost  int
	SessionTTL  time.Duration
}

// NewTokenSource builds the source.
func NewTokenSource(deps TokenSourceDeps) *TokenSource {
	return &TokenSource{
		tokens:     deps.Tokens,
		creds:      deps.Credentials,
		profiles:   deps.Profiles,
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		bcryptCost: deps.BcryptCost,
		ttl:        deps.SessionTTL,
		subs:       make(map[int]func(ChangeEvent)),
	}
}

// Subscribe registers a change callback.
func (s *TokenSource) Subscribe(fn func(ChangeEvent)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// CurrentSession returns the live session, validating it against the token
// store. An expired or revoked session reads as signed out.
func (s *TokenSource) CurrentSession(ctx context.Context) (*domain.Session, error) {
	if s.notifying.Load() {
		return nil, ErrReentrantCall
	}

	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()

	if cur == nil {
		return nil, nil
	}
	if cur.Expired(time.Now()) {
		s.dropCurrent(cur.TokenID)
		return nil, nil
	}

	valid, err := s.store.Valid(ctx, cur.TokenID)
	if err != nil {
		return nil, err
	}
	if !valid {
		s.dropCurrent(cur.TokenID)
		return nil, nil
	}

	copied := *cur
	return &copied, nil
}

// SignUp registers a credential for a new identity and signs it in. The
// surrounding account flow creates the profile row.
func (s *TokenSource) SignUp(ctx context.Context, email, password string, userType domain.UserType) (*domain.Session, error) {
	if s.notifying.Load() {
		return nil, ErrReentrantCall
	}
	if !userType.Valid() {
		return nil, apperrors.NewValidationError("unknown user type", map[string]any{"user_type": userType})
	}

	if _, err := s.creds.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	cred := &domain.Credential{
		Identity:     uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.creds.Create(ctx, cred); err != nil {
		return nil, err
	}

	return s.issueSession(ctx, cred.Identity, userType, ChangeSignedIn, events.EventSignedIn)
}

// SignIn authenticates a credential and issues a fresh session.
func (s *TokenSource) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	if s.notifying.Load() {
		return nil, ErrReentrantCall
	}

	cred, err := s.creds.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewAuthError("invalid credentials", nil)
		}
		return nil, err
	}
	if err := auth.ComparePassword(cred.PasswordHash, password); err != nil {
		return nil, apperrors.NewAuthError("invalid credentials", nil)
	}

	userType := domain.UserType("")
	if profile, err := s.profiles.GetByID(ctx, cred.Identity); err == nil {
		userType = profile.UserType
	}

	return s.issueSession(ctx, cred.Identity, userType, ChangeSignedIn, events.EventSignedIn)
}

// SignOut revokes the current session and notifies subscribers.
func (s *TokenSource) SignOut(ctx context.Context) error {
	if s.notifying.Load() {
		return ErrReentrantCall
	}

	s.mu.Lock()
	cur := s.current
	s.current = nil
	s.mu.Unlock()

	if cur == nil {
		return nil
	}

	if err := s.store.Revoke(ctx, cur.TokenID); err != nil {
		s.logger.Warn("failed to revoke session token", zap.Error(err))
	}

	s.notify(ChangeEvent{Type: ChangeSignedOut})
	s.publish(ctx, events.EventSignedOut, cur.Identity, nil)
	return nil
}

// RevokeToken revokes one session token by ID. Unlike SignOut it never
// touches any other session: only when the revoked token backs the current
// in-process session does it sign that session out and notify subscribers.
func (s *TokenSource) RevokeToken(ctx context.Context, tokenID string) error {
	if s.notifying.Load() {
		return ErrReentrantCall
	}

	if err := s.store.Revoke(ctx, tokenID); err != nil {
		return err
	}

	s.mu.Lock()
	cur := s.current
	isCurrent := cur != nil && cur.TokenID == tokenID
	if isCurrent {
		s.current = nil
	}
	s.mu.Unlock()

	if isCurrent {
		s.notify(ChangeEvent{Type: ChangeSignedOut})
		s.publish(ctx, events.EventSignedOut, cur.Identity, nil)
	}
	return nil
}

// Refresh reissues the current session with a new token and expiry.
func (s *TokenSource) Refresh(ctx context.Context) (*domain.Session, error) {
	if s.notifying.Load() {
		return nil, ErrReentrantCall
	}

	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur == nil {
		return nil, apperrors.NewAuthError("no active session", nil)
	}

	if err := s.store.Revoke(ctx, cur.TokenID); err != nil {
		s.logger.Warn("failed to revoke session token", zap.Error(err))
	}
	return s.issueSession(ctx, cur.Identity, cur.UserType, ChangeTokenRefreshed, events.EventTokenRefreshed)
}

func (s *TokenSource) issueSession(ctx context.Context, identity string, userType domain.UserType, change ChangeType, eventType events.EventType) (*domain.Session, error) {
	session, err := s.tokens.GenerateSession(identity, userType)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, session.TokenID, identity, s.ttl); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = session
	s.mu.Unlock()

	copied := *session
	s.notify(ChangeEvent{Type: change, Session: &copied})
	s.publish(ctx, eventType, identity, events.SessionChangedPayload{Session: &copied})
	return session, nil
}

func (s *TokenSource) dropCurrent(tokenID string) {
	s.mu.Lock()
	if s.current != nil && s.current.TokenID == tokenID {
		s.current = nil
	}
	s.mu.Unlock()
}

// notify delivers a change event to all subscribers, serialized. Requests
// back into the source while a callback runs are rejected.
func (s *TokenSource) notify(ev ChangeEvent) {
	s.mu.Lock()
	callbacks := make([]func(ChangeEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		callbacks = append(callbacks, fn)
	}
	s.mu.Unlock()

	s.notifying.Store(true)
	defer s.notifying.Store(false)
	for _, fn := range callbacks {
		fn(ev)
	}
}

func (s *TokenSource) publish(ctx context.Context, eventType events.EventType, identity string, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Identity:  identity,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
