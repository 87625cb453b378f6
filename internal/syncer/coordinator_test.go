package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledgerstore"
	"github.com/dvloznov/finance-ledger/internal/remotefile/remotefiletest"
	"github.com/dvloznov/finance-ledger/internal/syncerr"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

const testDebounce = 50 * time.Millisecond

func newTestCoordinator(t *testing.T, token string, gw *remotefiletest.Gateway) (*Coordinator, *ledgerstore.Store) {
	t.Helper()
	ctx := context.Background()
	store := ledgerstore.New(ledgerstore.NewMemoryBlobStore(), zerolog.Nop())
	if token != "" {
		require.NoError(t, store.SetToken(ctx, token))
	}
	session, err := NewSession(ctx, store, zerolog.Nop())
	require.NoError(t, err)

	c := NewCoordinator(store, gw, session, testDebounce, zerolog.Nop())
	t.Cleanup(c.Close)
	return c, store
}

func rulesIn(t *testing.T, doc []byte) []domain.TextCategoryRule {
	t.Helper()
	var parsed struct {
		Rules []domain.TextCategoryRule `json:"ff_v2_rules"`
	}
	require.NoError(t, json.Unmarshal(doc, &parsed))
	return parsed.Rules
}

func TestCoordinator_DebounceCoalesces(t *testing.T) {
	ctx := context.Background()
	gw := &remotefiletest.Gateway{}
	c, store := newTestCoordinator(t, "tok", gw)

	for i := 0; i < 5; i++ {
		rules := make([]domain.TextCategoryRule, i+1)
		for j := range rules {
			rules[j] = domain.TextCategoryRule{Pattern: "p", CategoryID: "1"}
		}
		require.NoError(t, store.SaveRules(ctx, rules))
		c.SchedulePush()
		time.Sleep(testDebounce / 5)
	}
	assert.True(t, c.Pending())

	assert.Eventually(t, func() bool {
		_, n := gw.Snapshot()
		return n == 1
	}, time.Second, 5*time.Millisecond)

	// No further pushes trail the first one.
	time.Sleep(3 * testDebounce)
	doc, n := gw.Snapshot()
	assert.Equal(t, 1, n)
	assert.Len(t, rulesIn(t, doc), 5, "push carries the state after the last mutation")
	assert.False(t, c.Pending())
}

func TestCoordinator_SchedulePushWithoutTokenIsNoop(t *testing.T) {
	gw := &remotefiletest.Gateway{}
	c, _ := newTestCoordinator(t, "", gw)

	c.SchedulePush()
	assert.False(t, c.Pending())

	err := c.Push(context.Background())
	assert.True(t, IsNotConnected(err))
	assert.Zero(t, gw.Finds)
}

func TestCoordinator_CloseDropsPendingPush(t *testing.T) {
	gw := &remotefiletest.Gateway{}
	c, _ := newTestCoordinator(t, "tok", gw)

	c.SchedulePush()
	require.True(t, c.Pending())
	c.Close()

	time.Sleep(3 * testDebounce)
	_, n := gw.Snapshot()
	assert.Zero(t, n)
	assert.False(t, c.Pending())

	c.SchedulePush()
	assert.False(t, c.Pending(), "closed coordinator schedules nothing")
}

func TestCoordinator_PullAdoptsRemoteEntities(t *testing.T) {
	ctx := context.Background()
	gw := &remotefiletest.Gateway{
		Exists: true,
		Doc:    []byte(`{"ff_v2_rules":[{"pattern":"vea","categoryId":"2"}],"ff_v2_jars":[]}`),
	}
	c, store := newTestCoordinator(t, "tok", gw)
	require.NoError(t, store.SaveRules(ctx, []domain.TextCategoryRule{
		{Pattern: "a", CategoryID: "1"}, {Pattern: "b", CategoryID: "1"},
	}))

	found, err := c.Pull(ctx)
	require.NoError(t, err)
	assert.True(t, found)

	rules, err := store.Rules(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.TextCategoryRule{{Pattern: "vea", CategoryID: "2"}}, rules)

	accounts, err := store.Accounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 3, "entities missing remotely are kept")
}

func TestCoordinator_PullWithoutRemoteDocument(t *testing.T) {
	c, _ := newTestCoordinator(t, "tok", &remotefiletest.Gateway{})

	found, err := c.Pull(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCoordinator_SyncNowPullsThenPushes(t *testing.T) {
	ctx := context.Background()
	gw := &remotefiletest.Gateway{
		Exists: true,
		Doc:    []byte(`{"ff_v2_rules":[{"pattern":"remote","categoryId":"2"}]}`),
	}
	c, store := newTestCoordinator(t, "tok", gw)
	require.NoError(t, store.SaveRules(ctx, []domain.TextCategoryRule{{Pattern: "local", CategoryID: "1"}}))
	c.SchedulePush()

	require.NoError(t, c.SyncNow(ctx))

	doc, n := gw.Snapshot()
	require.Equal(t, 1, n)
	assert.Equal(t, []domain.TextCategoryRule{{Pattern: "remote", CategoryID: "2"}}, rulesIn(t, doc))
	assert.Equal(t, 1, gw.Downloads)
	assert.Equal(t, 1, gw.Overwrites)
	assert.False(t, c.Pending(), "pending push absorbed by SyncNow")
}

func TestCoordinator_SyncNowStopsOnPullFailure(t *testing.T) {
	gw := &remotefiletest.Gateway{Err: errors.New("dial tcp: no route to host")}
	c, _ := newTestCoordinator(t, "tok", gw)

	err := c.SyncNow(context.Background())
	assert.True(t, errors.Is(err, syncerr.ErrNetworkUnavailable))
	assert.Zero(t, gw.Creates+gw.Overwrites)
}

func TestCoordinator_UnauthorizedRevokesToken(t *testing.T) {
	ctx := context.Background()
	gw := &remotefiletest.Gateway{Err: &googleapi.Error{Code: 401}}
	c, store := newTestCoordinator(t, "expired", gw)

	err := c.Push(ctx)
	assert.True(t, IsNotConnected(err))
	assert.False(t, c.Session().Connected())

	tok, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok, "revocation is persisted")
}

func TestSession_ConnectAndClientID(t *testing.T) {
	ctx := context.Background()
	store := ledgerstore.New(ledgerstore.NewMemoryBlobStore(), zerolog.Nop())
	s, err := NewSession(ctx, store, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, s.Connected())

	require.NoError(t, s.Connect(ctx, "tok"))
	require.NoError(t, s.SetClientID(ctx, "cid"))

	reloaded, err := NewSession(ctx, store, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "tok", reloaded.Token(ctx))
	assert.Equal(t, "cid", reloaded.ClientID())
}

func TestResultLabel(t *testing.T) {
	assert.Equal(t, "ok", result(nil))
	assert.Equal(t, "unauthorized", result(syncerr.New(syncerr.Unauthorized, "x", nil)))
	assert.Equal(t, "error", result(errors.New("x")))
}
