// Package capability fronts the authentication service: it issues session
// tokens, answers session snapshots and fans out session-change
// notifications to subscribers.
package capability

import (
	"context"
	"errors"

	"github.com/spec-kit/retina-portal/internal/domain"
)

// ErrReentrantCall is returned when a source method is invoked from inside
// one of the source's own change callbacks. Callers must defer such work to
// a later scheduling turn.
var ErrReentrantCall = errors.New("capability: call from inside a change notification")

// ChangeType classifies a session-change notification.
type ChangeType string

const (
	ChangeSignedIn       ChangeType = "SIGNED_IN"
	ChangeSignedOut      ChangeType = "SIGNED_OUT"
	ChangeTokenRefreshed ChangeType = "TOKEN_REFRESHED"
)

// ChangeEvent is delivered to subscribers on every session transition.
// Session is nil for ChangeSignedOut.
type ChangeEvent struct {
	Type    ChangeType
	Session *domain.Session
}

// Source is the capability-source contract consumed by the session
// synchronizer and the account flow. Notifications are delivered serialized;
// no two callbacks run concurrently.
type Source interface {
	// Subscribe registers a change callback and returns its unsubscribe
	// function. The callback must not call back into the source.
	Subscribe(fn func(ChangeEvent)) (unsubscribe func())

	// CurrentSession returns the session snapshot, or nil when signed out.
	CurrentSession(ctx context.Context) (*domain.Session, error)

	SignUp(ctx context.Context, email, password string, userType domain.UserType) (*domain.Session, error)
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context) error
}
