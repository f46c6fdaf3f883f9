package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/retina-portal/internal/capability"
	"github.com/spec-kit/retina-portal/internal/domain"
)

type mockSource struct {
	mu           sync.Mutex
	subscriber   func(capability.ChangeEvent)
	unsubscribes int
	currentFn    func(ctx context.Context) (*domain.Session, error)
}

func (m *mockSource) Subscribe(fn func(capability.ChangeEvent)) func() {
	m.mu.Lock()
	m.subscriber = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.unsubscribes++
		m.subscriber = nil
		m.mu.Unlock()
	}
}

func (m *mockSource) CurrentSession(ctx context.Context) (*domain.Session, error) {
	if m.currentFn != nil {
		return m.currentFn(ctx)
	}
	return nil, nil
}

func (m *mockSource) SignUp(context.Context, string, string, domain.UserType) (*domain.Session, error) {
	return nil, nil
}

func (m *mockSource) SignIn(context.Context, string, string) (*domain.Session, error) {
	return nil, nil
}

func (m *mockSource) SignOut(context.Context) error { return nil }

func (m *mockSource) emit(ev capability.ChangeEvent) {
	m.mu.Lock()
	fn := m.subscriber
	m.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func (m *mockSource) unsubscribeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unsubscribes
}

type mockProfiles struct {
	mu      sync.Mutex
	getFn   func(ctx context.Context, identity string) (*domain.Profile, error)
	fetches []string
}

func (m *mockProfiles) GetByID(ctx context.Context, identity string) (*domain.Profile, error) {
	m.mu.Lock()
	m.fetches = append(m.fetches, identity)
	fn := m.getFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, identity)
	}
	return nil, errors.New("no profile")
}

func sessionFor(identity string) *domain.Session {
	return &domain.Session{
		Token:     "token-" + identity,
		TokenID:   "tid-" + identity,
		Identity:  identity,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func profileFor(identity string, userType domain.UserType) *domain.Profile {
	return &domain.Profile{ID: identity, UserType: userType, FullName: "Person " + identity}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestSnapshotOnlySignedOut(t *testing.T) {
	source := &mockSource{}
	s := NewSynchronizer(source, &mockProfiles{}, zap.NewNop())
	s.Start(context.Background())
	defer s.Close()

	waitFor(t, func() bool { return s.Snapshot().Ready })

	st := s.Snapshot()
	if st.Identity != "" || st.Profile != nil || st.Session != nil {
		t.Fatalf("expected signed-out state, got %+v", st)
	}
}

func TestSnapshotResolvesProfile(t *testing.T) {
	source := &mockSource{
		currentFn: func(context.Context) (*domain.Session, error) {
			return sessionFor("alice"), nil
		},
	}
	profiles := &mockProfiles{
		getFn: func(_ context.Context, identity string) (*domain.Profile, error) {
			return profileFor(identity, domain.UserTypePatient), nil
		},
	}
	s := NewSynchronizer(source, profiles, zap.NewNop())
	s.Start(context.Background())
	defer s.Close()

	waitFor(t, func() bool { return s.Snapshot().Ready })

	st := s.Snapshot()
	if st.Identity != "alice" {
		t.Fatalf("identity = %q, want alice", st.Identity)
	}
	if st.Profile == nil || st.Profile.ID != "alice" {
		t.Fatalf("profile = %+v, want alice's", st.Profile)
	}
}

// A notification applied while the snapshot is still in flight is more
// recent; the stale snapshot must not regress the mirror.
func TestStaleSnapshotDoesNotRegressNotification(t *testing.T) {
	release := make(chan struct{})
	source := &mockSource{
		currentFn: func(context.Context) (*domain.Session, error) {
			<-release
			return nil, nil // stale: says signed out
		},
	}
	profiles := &mockProfiles{
		getFn: func(_ context.Context, identity string) (*domain.Profile, error) {
			return profileFor(identity, domain.UserTypePatient), nil
		},
	}
	s := NewSynchronizer(source, profiles, zap.NewNop())
	s.Start(context.Background())
	defer s.Close()

	source.emit(capability.ChangeEvent{Type: capability.ChangeSignedIn, Session: sessionFor("bob")})
	waitFor(t, func() bool {
		st := s.Snapshot()
		return st.Ready && st.Profile != nil
	})

	close(release)
	// Give the stale snapshot a chance to (incorrectly) apply.
	time.Sleep(50 * time.Millisecond)

	st := s.Snapshot()
	if st.Identity != "bob" || st.Profile == nil || st.Profile.ID != "bob" {
		t.Fatalf("stale snapshot regressed state: %+v", st)
	}
}

// Whichever identity the source confirms last wins; the mirror never shows
// a stale identity's profile.
func TestLaterNotificationSupersedesPendingProfileFetch(t *testing.T) {
	firstFetch := make(chan struct{})
	profiles := &mockProfiles{}
	profiles.getFn = func(_ context.Context, identity string) (*domain.Profile, error) {
		if identity == "alice" {
			<-firstFetch // alice's fetch resolves late
		}
		return profileFor(identity, domain.UserTypePatient), nil
	}
	source := &mockSource{}
	s := NewSynchronizer(source, profiles, zap.NewNop())
	s.Start(context.Background())
	defer s.Close()

	source.emit(capability.ChangeEvent{Type: capability.ChangeSignedIn, Session: sessionFor("alice")})
	source.emit(capability.ChangeEvent{Type: capability.ChangeSignedIn, Session: sessionFor("carol")})

	waitFor(t, func() bool {
		st := s.Snapshot()
		return st.Ready && st.Profile != nil
	})
	close(firstFetch)
	time.Sleep(50 * time.Millisecond)

	st := s.Snapshot()
	if st.Identity != "carol" || st.Profile == nil || st.Profile.ID != "carol" {
		t.Fatalf("mirror shows stale identity's profile: %+v", st)
	}
}

func TestProfileFetchFailureDegradesSilently(t *testing.T) {
	source := &mockSource{
		currentFn: func(context.Context) (*domain.Session, error) {
			return sessionFor("dave"), nil
		},
	}
	profiles := &mockProfiles{
		getFn: func(context.Context, string) (*domain.Profile, error) {
			return nil, errors.New("store down")
		},
	}
	s := NewSynchronizer(source, profiles, zap.NewNop())
	s.Start(context.Background())
	defer s.Close()

	waitFor(t, func() bool { return s.Snapshot().Ready })

	st := s.Snapshot()
	if st.Identity != "dave" {
		t.Fatalf("identity = %q, want dave", st.Identity)
	}
	if st.Profile != nil {
		t.Fatalf("profile should be nil on fetch failure, got %+v", st.Profile)
	}
}

func TestSignOutClearsMirror(t *testing.T) {
	source := &mockSource{
		currentFn: func(context.Context) (*domain.Session, error) {
			return sessionFor("erin"), nil
		},
	}
	profiles := &mockProfiles{
		getFn: func(_ context.Context, identity string) (*domain.Profile, error) {
			return profileFor(identity, domain.UserTypeDoctor), nil
		},
	}
	s := NewSynchronizer(source, profiles, zap.NewNop())
	s.Start(context.Background())
	defer s.Close()

	waitFor(t, func() bool {
		st := s.Snapshot()
		return st.Ready && st.Profile != nil
	})

	source.emit(capability.ChangeEvent{Type: capability.ChangeSignedOut})

	waitFor(t, func() bool {
		st := s.Snapshot()
		return st.Identity == "" && st.Profile == nil && st.Session == nil
	})
	if !s.Snapshot().Ready {
		t.Fatal("ready must stay latched after sign-out")
	}
}

func TestCloseUnsubscribes(t *testing.T) {
	source := &mockSource{}
	s := NewSynchronizer(source, &mockProfiles{}, zap.NewNop())
	s.Start(context.Background())

	s.Close()
	s.Close() // idempotent

	if got := source.unsubscribeCount(); got != 1 {
		t.Fatalf("unsubscribe count = %d, want 1", got)
	}
}

func TestWatchDeliversLatestState(t *testing.T) {
	source := &mockSource{}
	profiles := &mockProfiles{
		getFn: func(_ context.Context, identity string) (*domain.Profile, error) {
			return profileFor(identity, domain.UserTypePatient), nil
		},
	}
	s := NewSynchronizer(source, profiles, zap.NewNop())
	s.Start(context.Background())
	defer s.Close()

	watch := s.Watch()
	source.emit(capability.ChangeEvent{Type: capability.ChangeSignedIn, Session: sessionFor("frank")})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-watch:
			if st.Ready && st.Profile != nil && st.Profile.ID == "frank" {
				return
			}
		case <-deadline:
			t.Fatal("never observed frank's ready state on watch channel")
		}
	}
}
