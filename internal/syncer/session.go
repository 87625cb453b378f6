package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/dvloznov/finance-ledger/internal/ledgerstore"
	"github.com/rs/zerolog"
)

// Session holds the state of one remote connection: the bearer token, the
// OAuth client id and the single pending push timer. It is owned by the
// Coordinator and implements remotefile.Credentials.
type Session struct {
	mu       sync.Mutex
	store    *ledgerstore.Store
	log      zerolog.Logger
	token    string
	clientID string

	timer *time.Timer
	gen   uint64
}

// NewSession loads the persisted credentials from store.
func NewSession(ctx context.Context, store *ledgerstore.Store, log zerolog.Logger) (*Session, error) {
	token, err := store.Token(ctx)
	if err != nil {
		return nil, err
	}
	clientID, err := store.ClientID(ctx)
	if err != nil {
		return nil, err
	}
	return &Session{store: store, log: log, token: token, clientID: clientID}, nil
}

// Token returns the cached bearer token.
func (s *Session) Token(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Connected reports whether a token is held.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

// Connect caches and persists token.
func (s *Session) Connect(ctx context.Context, token string) error {
	if err := s.store.SetToken(ctx, token); err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Revoke forgets the token locally and drops any pending push. The session
// drops back to local-only.
func (s *Session) Revoke(ctx context.Context) {
	s.cancel()
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	if err := s.store.SetToken(ctx, ""); err != nil {
		s.log.Error().Err(err).Msg("failed to remove stored token")
	}
	s.log.Warn().Msg("remote token revoked, continuing local-only")
}

// ClientID returns the OAuth client identifier.
func (s *Session) ClientID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientID
}

// SetClientID caches and persists id.
func (s *Session) SetClientID(ctx context.Context, id string) error {
	if err := s.store.SetClientID(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	s.clientID = id
	s.mu.Unlock()
	return nil
}

// schedule replaces any pending timer with one that runs fn after d. A timer
// that was already firing when it got replaced sees a stale generation and
// does nothing.
func (s *Session) schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()
		fn()
	})
	pendingPushes.Set(1)
}

// cancel drops the pending timer. It reports whether one was pending.
func (s *Session) cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	if s.timer == nil {
		return false
	}
	s.timer.Stop()
	s.timer = nil
	pendingPushes.Set(0)
	return true
}

// pending reports whether a timer is waiting to fire.
func (s *Session) pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}
