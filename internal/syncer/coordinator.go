// Package syncer mirrors the local ledger to a remote document: debounced
// pushes after local writes, pulls that adopt the remote snapshot, and a
// manual pull-then-push.
package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dvloznov/finance-ledger/internal/ledgerstore"
	"github.com/dvloznov/finance-ledger/internal/remotefile"
	"github.com/dvloznov/finance-ledger/internal/syncerr"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period before a scheduled push fires.
const DefaultDebounce = 3 * time.Second

// Coordinator owns the Session and serialises every remote operation.
type Coordinator struct {
	store    *ledgerstore.Store
	gw       remotefile.Gateway
	session  *Session
	debounce time.Duration
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	opMu   sync.Mutex // one remote operation at a time
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewCoordinator wires a coordinator. debounce <= 0 uses DefaultDebounce.
func NewCoordinator(store *ledgerstore.Store, gw remotefile.Gateway, session *Session, debounce time.Duration, log zerolog.Logger) *Coordinator {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		store:    store,
		gw:       gw,
		session:  session,
		debounce: debounce,
		log:      log.With().Str("component", "syncer").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Session returns the coordinator's session.
func (c *Coordinator) Session() *Session { return c.session }

// SchedulePush (re)starts the debounce window. When it elapses the local
// database is exported as it is at that moment and pushed. Without a token
// nothing is scheduled.
func (c *Coordinator) SchedulePush() {
	if !c.session.Connected() {
		c.log.Debug().Msg("not connected, push not scheduled")
		return
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}

	c.session.schedule(c.debounce, c.fire)
}

func (c *Coordinator) fire() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()

	pendingPushes.Set(0)
	if err := c.Push(c.ctx); err != nil {
		c.log.Warn().Err(err).Msg("debounced push failed")
		return
	}
	c.log.Info().Msg("debounced push completed")
}

// Pending reports whether a debounced push is waiting.
func (c *Coordinator) Pending() bool {
	return c.session.pending()
}

// Push exports the local database and overwrites the remote document.
func (c *Coordinator) Push(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.pushLocked(ctx)
}

func (c *Coordinator) pushLocked(ctx context.Context) (err error) {
	defer func() { pushesTotal.WithLabelValues(result(err)).Inc() }()

	doc, err := c.store.ExportAll(ctx)
	if err != nil {
		return err
	}
	if _, err := remotefile.SyncFile(ctx, c.gw, c.session, doc); err != nil {
		return err
	}
	c.log.Debug().Int("bytes", len(doc)).Msg("pushed ledger document")
	return nil
}

// Pull downloads the remote document and, if one exists, replaces every
// local entity it carries. It reports whether a document was found.
func (c *Coordinator) Pull(ctx context.Context) (bool, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.pullLocked(ctx)
}

func (c *Coordinator) pullLocked(ctx context.Context) (found bool, err error) {
	defer func() { pullsTotal.WithLabelValues(result(err)).Inc() }()

	doc, err := remotefile.SyncFile(ctx, c.gw, c.session, nil)
	if err != nil {
		return false, err
	}
	if doc == nil {
		return false, nil
	}
	if err := c.store.ImportAll(ctx, doc); err != nil {
		return false, err
	}
	c.log.Info().Int("bytes", len(doc)).Msg("adopted remote ledger document")
	return true, nil
}

// SyncNow pulls first, adopting the remote snapshot, then pushes the result
// back, whether or not a remote document existed. A pending debounced push
// is absorbed. If the pull fails nothing is pushed, so a stale local state
// never replaces a remote snapshot it has not seen.
func (c *Coordinator) SyncNow(ctx context.Context) error {
	c.session.cancel()

	c.opMu.Lock()
	defer c.opMu.Unlock()

	if _, err := c.pullLocked(ctx); err != nil {
		return err
	}
	return c.pushLocked(ctx)
}

// Close drops any pending push and waits for one already running.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	if c.session.cancel() {
		c.log.Info().Msg("pending push dropped on shutdown")
	}
	c.cancel()
	c.wg.Wait()
}

// IsNotConnected reports whether err means the session holds no valid token.
func IsNotConnected(err error) bool {
	return errors.Is(err, syncerr.ErrUnauthorized)
}
