// Package session owns the mirrored session/identity/profile state. The
// synchronizer is the single writer of that mirror; every other component
// reads it through Snapshot or Watch.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/retina-portal/internal/capability"
	"github.com/spec-kit/retina-portal/internal/domain"
)

// State is the consistent read view exposed to consumers. Ready latches true
// once the first session resolution (snapshot or notification) settles.
type State struct {
	Identity string
	Session  *domain.Session
	Profile  *domain.Profile
	Ready    bool
}

// ProfileReader fetches the profile for an identity.
type ProfileReader interface {
	GetByID(ctx context.Context, identity string) (*domain.Profile, error)
}

// Synchronizer resolves the capability source's two independent sources of
// truth, the initial session snapshot and the async change notifications,
// into one mirror. All transitions run on a single internal loop, so the two
// paths can never interleave mid-update.
type Synchronizer struct {
	source   capability.Source
	profiles ProfileReader
	logger   *zap.Logger

	tasks       chan func()
	stop        chan struct{}
	stopped     chan struct{}
	closeOnce   sync.Once
	unsubscribe func()

	// seq counts applied session changes. It is touched only from the run
	// loop; stale completions compare against it and drop themselves.
	seq uint64

	mu          sync.RWMutex
	state       State
	watchers    map[int]chan State
	nextWatcher int
}

// NewSynchronizer builds a synchronizer. Call Start to begin resolving.
func NewSynchronizer(source capability.Source, profiles ProfileReader, logger *zap.Logger) *Synchronizer {
	return &Synchronizer{
		source:   source,
		profiles: profiles,
		logger:   logger,
		tasks:    make(chan func(), 128),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
		watchers: make(map[int]chan State),
	}
}

// Start subscribes to change notifications and then requests the initial
// snapshot. Subscribing first means no transition can slip between the two
// calls. ctx bounds the profile and snapshot fetches.
func (s *Synchronizer) Start(ctx context.Context) {
	// The callback only enqueues; no capability request ever runs inside
	// the notification's own execution context.
	s.unsubscribe = s.source.Subscribe(func(ev capability.ChangeEvent) {
		sess := ev.Session
		s.enqueue(func() { s.applyChange(ctx, sess) })
	})

	go s.run()

	s.enqueue(func() {
		startSeq := s.seq
		go func() {
			snapshot, err := s.source.CurrentSession(ctx)
			s.enqueue(func() {
				// A notification applied while the snapshot was in flight is
				// more recent; the stale snapshot must not regress it.
				if s.seq != startSeq {
					return
				}
				if err != nil {
					s.logger.Warn("session snapshot failed", zap.Error(err))
					s.applyChange(ctx, nil)
					return
				}
				s.applyChange(ctx, snapshot)
			})
		}()
	})
}

// Snapshot returns a copy of the current mirror.
func (s *Synchronizer) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Watch returns a channel that receives the mirror after every change. Slow
// receivers only ever see the most recent state.
func (s *Synchronizer) Watch() <-chan State {
	ch := make(chan State, 1)
	select {
	case <-s.stop:
		close(ch)
		return ch
	default:
	}
	s.mu.Lock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = ch
	s.mu.Unlock()
	return ch
}

// Close unsubscribes from the capability source and stops the loop. Safe to
// call more than once and on every exit path.
func (s *Synchronizer) Close() {
	s.closeOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		close(s.stop)
		<-s.stopped
	})
}

func (s *Synchronizer) run() {
	defer func() {
		s.mu.Lock()
		for id, ch := range s.watchers {
			close(ch)
			delete(s.watchers, id)
		}
		s.mu.Unlock()
		close(s.stopped)
	}()
	for {
		select {
		case fn := <-s.tasks:
			fn()
		case <-s.stop:
			return
		}
	}
}

func (s *Synchronizer) enqueue(fn func()) {
	select {
	case s.tasks <- fn:
	case <-s.stop:
	}
}

// applyChange runs on the loop. It updates session and identity
// synchronously, then defers the profile fetch a turn so the fetch never
// runs inside a notification callback.
func (s *Synchronizer) applyChange(ctx context.Context, sess *domain.Session) {
	s.seq++
	mySeq := s.seq

	identity := ""
	if sess != nil {
		identity = sess.Identity
	}

	if identity == "" {
		s.setState(State{Ready: true})
		return
	}

	s.mu.Lock()
	if s.state.Identity != identity {
		// Never expose the previous identity's profile against the new one.
		s.state.Profile = nil
	}
	s.state.Identity = identity
	s.state.Session = sess
	s.mu.Unlock()
	s.publish()

	s.enqueue(func() {
		if s.seq != mySeq {
			return
		}
		go func() {
			profile, err := s.profiles.GetByID(ctx, identity)
			s.enqueue(func() {
				if s.seq != mySeq {
					return
				}
				if err != nil {
					// Silent degrade: the mirror still becomes ready so the
					// UI never hangs; no automatic retry.
					s.logger.Warn("profile fetch failed",
						zap.String("identity", identity),
						zap.Error(err),
					)
					profile = nil
				}
				s.mu.Lock()
				s.state.Profile = profile
				s.state.Ready = true
				s.mu.Unlock()
				s.publish()
			})
		}()
	})
}

func (s *Synchronizer) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.publish()
}

func (s *Synchronizer) publish() {
	s.mu.RLock()
	st := s.state
	channels := make([]chan State, 0, len(s.watchers))
	for _, ch := range s.watchers {
		channels = append(channels, ch)
	}
	s.mu.RUnlock()

	for _, ch := range channels {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}
