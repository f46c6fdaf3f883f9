// Package guard gates screens behind a required role, derived from the
// session mirror.
package guard

import (
	"github.com/spec-kit/retina-portal/internal/domain"
	"github.com/spec-kit/retina-portal/internal/session"
)

// Decision says what the caller should do with the protected content.
type Decision int

const (
	// DecisionPending: the mirror is not ready yet; render nothing.
	DecisionPending Decision = iota
	// DecisionRedirect: send the visitor to RedirectTo.
	DecisionRedirect
	// DecisionAllow: render the protected content.
	DecisionAllow
)

// Result carries the decision and, for redirects, the target surface.
type Result struct {
	Decision   Decision
	RedirectTo string
}

// SignInPath returns the sign-in surface for a role. A visitor rejected from
// a role-B page is always sent to role B's sign-in, never role A's.
func SignInPath(role domain.UserType) string {
	if role == domain.UserTypeDoctor {
		return "/doctor/auth"
	}
	return "/patient/auth"
}

// Decide evaluates the mirror against the required role. It must be
// re-evaluated on every state change, not just once: a session expiring
// mid-visit flips the result to a redirect.
func Decide(st session.State, required domain.UserType) Result {
	if !st.Ready {
		return Result{Decision: DecisionPending}
	}
	if st.Identity == "" || st.Profile == nil || st.Profile.UserType != required {
		return Result{Decision: DecisionRedirect, RedirectTo: SignInPath(required)}
	}
	return Result{Decision: DecisionAllow}
}

// Watcher re-evaluates the guard on every mirror change.
type Watcher struct {
	sync     *session.Synchronizer
	required domain.UserType
}

// NewWatcher builds a watcher for one protected surface.
func NewWatcher(sync *session.Synchronizer, required domain.UserType) *Watcher {
	return &Watcher{sync: sync, required: required}
}

// Current evaluates against the latest mirror.
func (w *Watcher) Current() Result {
	return Decide(w.sync.Snapshot(), w.required)
}

// Results returns a channel emitting a fresh decision after every mirror
// change. The first receive reflects the state at call time.
func (w *Watcher) Results() <-chan Result {
	states := w.sync.Watch()
	out := make(chan Result, 1)
	out <- w.Current()

	go func() {
		defer close(out)
		for st := range states {
			res := Decide(st, w.required)
			select {
			case <-out:
			default:
			}
			select {
			case out <- res:
			default:
			}
		}
	}()
	return out
}
