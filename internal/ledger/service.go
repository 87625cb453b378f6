// Package ledger is the single entry point used by the API, the CLI and the
// worker. It routes every read and write to the configured backends: the
// local store always, the relational store when configured, and the remote
// document through debounced pushes.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dvloznov/finance-ledger/internal/balance"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledgerstore"
	"github.com/dvloznov/finance-ledger/internal/relational"
	"github.com/dvloznov/finance-ledger/internal/syncer"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Backend names the storage mode the service runs in.
type Backend string

const (
	BackendLocal      Backend = "local"
	BackendRelational Backend = "relational"
	BackendRemoteFile Backend = "remote_file"
)

// Fallback records the last read that was served locally because the
// relational backend failed.
type Fallback struct {
	Op  string
	Err error
	At  time.Time
}

// Service implements the consumer operations over the configured backends.
type Service struct {
	store *ledgerstore.Store
	rel   relational.Gateway  // nil when not configured
	sync  *syncer.Coordinator // nil when no remote document is configured
	log   zerolog.Logger
	now   func() time.Time

	mu           sync.Mutex
	lastFallback *Fallback
}

// Option customises a Service.
type Option func(*Service)

// WithRelational routes reads and writes through gw as well.
func WithRelational(gw relational.Gateway) Option {
	return func(s *Service) { s.rel = gw }
}

// WithSync enables remote document mirroring.
func WithSync(c *syncer.Coordinator) Option {
	return func(s *Service) { s.sync = c }
}

// WithClock overrides the clock used for jar valuation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New builds a Service over store.
func New(store *ledgerstore.Store, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   log.With().Str("component", "ledger").Logger(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log.Info().Str("mode", string(s.Mode())).Msg("ledger service ready")
	return s
}

// Mode reports the backend selected at construction.
func (s *Service) Mode() Backend {
	switch {
	case s.rel != nil:
		return BackendRelational
	case s.sync != nil:
		return BackendRemoteFile
	default:
		return BackendLocal
	}
}

// Store exposes the local store.
func (s *Service) Store() *ledgerstore.Store { return s.store }

// LastFallback returns the most recent relational read failure, if any.
func (s *Service) LastFallback() *Fallback {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastFallback == nil {
		return nil
	}
	f := *s.lastFallback
	return &f
}

// Close stops pending pushes and releases the relational connection.
func (s *Service) Close() error {
	if s.sync != nil {
		s.sync.Close()
	}
	if s.rel != nil {
		return s.rel.Close()
	}
	return nil
}

// readThrough asks the relational backend first and falls back to the local
// store when it fails.
func readThrough[T any](ctx context.Context, s *Service, op string, remote func(context.Context) ([]T, error), local func(context.Context) ([]T, error)) ([]T, error) {
	if s.rel != nil && remote != nil {
		items, err := remote(ctx)
		if err == nil {
			return items, nil
		}
		s.recordFallback(op, err)
	}
	return local(ctx)
}

func (s *Service) recordFallback(op string, err error) {
	fallbacksTotal.WithLabelValues(op).Inc()
	s.log.Warn().Err(err).Str("op", op).Msg("relational read failed, serving local data")

	s.mu.Lock()
	s.lastFallback = &Fallback{Op: op, Err: err, At: s.now()}
	s.mu.Unlock()
}

// mirror forwards a write to the relational backend. Failures are logged and
// never retried; the local write has already succeeded.
func (s *Service) mirror(ctx context.Context, op string, fn func(context.Context, relational.Gateway) error) {
	if s.rel == nil {
		return
	}
	if err := fn(ctx, s.rel); err != nil {
		mirrorFailuresTotal.WithLabelValues(op).Inc()
		s.log.Warn().Err(err).Str("op", op).Msg("relational write failed")
	}
}

func (s *Service) changed() {
	if s.sync != nil {
		s.sync.SchedulePush()
	}
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// GetAccounts returns all accounts.
func (s *Service) GetAccounts(ctx context.Context) ([]domain.Account, error) {
	var remote func(context.Context) ([]domain.Account, error)
	if s.rel != nil {
		remote = s.rel.ListAccounts
	}
	return readThrough(ctx, s, "get_accounts", remote, s.store.Accounts)
}

// AddAccount stores a new account, assigning an ID when missing.
func (s *Service) AddAccount(ctx context.Context, acc domain.Account) (domain.Account, error) {
	acc.ID = newID(acc.ID)
	if err := s.store.AddAccount(ctx, acc); err != nil {
		return domain.Account{}, fmt.Errorf("AddAccount: %w", err)
	}
	s.mirror(ctx, "add_account", func(ctx context.Context, gw relational.Gateway) error {
		return gw.InsertAccount(ctx, acc)
	})
	s.changed()
	return acc, nil
}

// UpdateAccount replaces the account with the same ID.
func (s *Service) UpdateAccount(ctx context.Context, acc domain.Account) error {
	if err := s.store.UpdateAccount(ctx, acc); err != nil {
		return fmt.Errorf("UpdateAccount: %w", err)
	}
	s.mirror(ctx, "update_account", func(ctx context.Context, gw relational.Gateway) error {
		return gw.UpdateAccount(ctx, acc)
	})
	s.changed()
	return nil
}

// DeleteAccount removes an account. Its transactions and checkpoints stay.
func (s *Service) DeleteAccount(ctx context.Context, id string) error {
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}
	s.mirror(ctx, "delete_account", func(ctx context.Context, gw relational.Gateway) error {
		return gw.DeleteAccount(ctx, id)
	})
	s.changed()
	return nil
}

func (s *Service) GetAccountTypes(ctx context.Context) ([]domain.AccountType, error) {
	var remote func(context.Context) ([]domain.AccountType, error)
	if s.rel != nil {
		remote = s.rel.ListAccountTypes
	}
	return readThrough(ctx, s, "get_account_types", remote, s.store.AccountTypes)
}

func (s *Service) GetCategories(ctx context.Context) ([]domain.Category, error) {
	var remote func(context.Context) ([]domain.Category, error)
	if s.rel != nil {
		remote = s.rel.ListCategories
	}
	return readThrough(ctx, s, "get_categories", remote, s.store.Categories)
}

func (s *Service) GetSubCategories(ctx context.Context) ([]domain.SubCategory, error) {
	var remote func(context.Context) ([]domain.SubCategory, error)
	if s.rel != nil {
		remote = s.rel.ListSubCategories
	}
	return readThrough(ctx, s, "get_sub_categories", remote, s.store.SubCategories)
}

// GetTransactions returns transactions newest first.
func (s *Service) GetTransactions(ctx context.Context) ([]domain.Transaction, error) {
	var remote func(context.Context) ([]domain.Transaction, error)
	if s.rel != nil {
		remote = s.rel.ListTransactions
	}
	txs, err := readThrough(ctx, s, "get_transactions", remote, s.store.Transactions)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.After(txs[j].Date) })
	return txs, nil
}

// AddTransaction validates and stores a transaction.
func (s *Service) AddTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	if !tx.Type.Valid() {
		return domain.Transaction{}, fmt.Errorf("AddTransaction: invalid type %q", tx.Type)
	}
	if tx.AccountID == "" {
		return domain.Transaction{}, fmt.Errorf("AddTransaction: account id is required")
	}
	tx.ID = newID(tx.ID)
	if err := s.store.AddTransaction(ctx, tx); err != nil {
		return domain.Transaction{}, fmt.Errorf("AddTransaction: %w", err)
	}
	s.mirror(ctx, "add_transaction", func(ctx context.Context, gw relational.Gateway) error {
		return gw.InsertTransaction(ctx, tx)
	})
	s.changed()
	return tx, nil
}

func (s *Service) GetMonthlyBalances(ctx context.Context) ([]domain.MonthlyBalance, error) {
	var remote func(context.Context) ([]domain.MonthlyBalance, error)
	if s.rel != nil {
		remote = s.rel.ListMonthlyBalances
	}
	return readThrough(ctx, s, "get_monthly_balances", remote, s.store.MonthlyBalances)
}

// SaveMonthlyBalances replaces every checkpoint.
func (s *Service) SaveMonthlyBalances(ctx context.Context, balances []domain.MonthlyBalance) error {
	for i := range balances {
		balances[i].ID = newID(balances[i].ID)
	}
	if err := s.store.SaveMonthlyBalances(ctx, balances); err != nil {
		return fmt.Errorf("SaveMonthlyBalances: %w", err)
	}
	s.mirror(ctx, "save_monthly_balances", func(ctx context.Context, gw relational.Gateway) error {
		return gw.ReplaceMonthlyBalances(ctx, balances)
	})
	s.changed()
	return nil
}

func (s *Service) GetJars(ctx context.Context) ([]domain.Jar, error) {
	return s.store.Jars(ctx)
}

func (s *Service) SaveJars(ctx context.Context, jars []domain.Jar) error {
	for i := range jars {
		jars[i].ID = newID(jars[i].ID)
	}
	if err := s.store.SaveJars(ctx, jars); err != nil {
		return fmt.Errorf("SaveJars: %w", err)
	}
	s.changed()
	return nil
}

// JarValues values every jar at the current time.
func (s *Service) JarValues(ctx context.Context) ([]balance.JarWithCurrentValue, error) {
	jars, err := s.store.Jars(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]balance.JarWithCurrentValue, 0, len(jars))
	for _, j := range jars {
		out = append(out, balance.CalculateJar(j, now))
	}
	return out, nil
}

func (s *Service) GetRules(ctx context.Context) ([]domain.TextCategoryRule, error) {
	return s.store.Rules(ctx)
}

func (s *Service) SaveRules(ctx context.Context, rules []domain.TextCategoryRule) error {
	for i := range rules {
		rules[i].ID = newID(rules[i].ID)
	}
	if err := s.store.SaveRules(ctx, rules); err != nil {
		return fmt.Errorf("SaveRules: %w", err)
	}
	s.changed()
	return nil
}

func (s *Service) GetBudgetItems(ctx context.Context) ([]domain.BudgetItem, error) {
	return s.store.BudgetItems(ctx)
}

func (s *Service) SaveBudgetItems(ctx context.Context, items []domain.BudgetItem) error {
	for i := range items {
		items[i].ID = newID(items[i].ID)
	}
	if err := s.store.SaveBudgetItems(ctx, items); err != nil {
		return fmt.Errorf("SaveBudgetItems: %w", err)
	}
	s.changed()
	return nil
}

// PeriodView is the dashboard for one month.
type PeriodView struct {
	Period  domain.Period                `json:"period"`
	States  []balance.PeriodAccountState `json:"states"`
	Summary balance.Summary              `json:"summary"`
}

// PeriodStates computes the state of every active account for month/year.
func (s *Service) PeriodStates(ctx context.Context, month, year int) (PeriodView, error) {
	p := domain.NewPeriod(year, month)
	if !p.Valid() || p.Month != month {
		return PeriodView{}, fmt.Errorf("PeriodStates: invalid month %d", month)
	}

	accounts, err := s.GetAccounts(ctx)
	if err != nil {
		return PeriodView{}, err
	}
	txs, err := s.GetTransactions(ctx)
	if err != nil {
		return PeriodView{}, err
	}
	checkpoints, err := s.GetMonthlyBalances(ctx)
	if err != nil {
		return PeriodView{}, err
	}
	types, err := s.GetAccountTypes(ctx)
	if err != nil {
		return PeriodView{}, err
	}

	states := balance.ComputePeriodStates(accounts, txs, checkpoints, month, year)
	return PeriodView{Period: p, States: states, Summary: balance.Summarize(states, types)}, nil
}

// ExportAllData returns the whole local database as one document.
func (s *Service) ExportAllData(ctx context.Context) ([]byte, error) {
	return s.store.ExportAll(ctx)
}

// ImportAllData replaces every entity present in blob and schedules a push.
func (s *Service) ImportAllData(ctx context.Context, blob []byte) error {
	if err := s.store.ImportAll(ctx, blob); err != nil {
		return err
	}
	s.changed()
	return nil
}

// PushToRemote uploads the local database now.
func (s *Service) PushToRemote(ctx context.Context) error {
	if s.sync == nil {
		return errNoRemote("PushToRemote")
	}
	return s.sync.Push(ctx)
}

// PullFromRemote adopts the remote document and reports whether one existed.
func (s *Service) PullFromRemote(ctx context.Context) (bool, error) {
	if s.sync == nil {
		return false, errNoRemote("PullFromRemote")
	}
	return s.sync.Pull(ctx)
}

// SyncNow pulls then pushes.
func (s *Service) SyncNow(ctx context.Context) error {
	if s.sync == nil {
		return errNoRemote("SyncNow")
	}
	return s.sync.SyncNow(ctx)
}

// Connect stores the bearer token for the remote document.
func (s *Service) Connect(ctx context.Context, token string) error {
	if s.sync == nil {
		return errNoRemote("Connect")
	}
	return s.sync.Session().Connect(ctx, token)
}

// Disconnect forgets the token and drops any pending push.
func (s *Service) Disconnect(ctx context.Context) error {
	if s.sync == nil {
		return errNoRemote("Disconnect")
	}
	s.sync.Session().Revoke(ctx)
	return nil
}

// HasRemote reports whether remote document mirroring is configured.
func (s *Service) HasRemote() bool { return s.sync != nil }

// Connected reports whether a remote token is held.
func (s *Service) Connected() bool {
	return s.sync != nil && s.sync.Session().Connected()
}

// ErrNoRemote is returned by remote operations when no remote document
// backend is configured. It is distinct from a rejected token.
var ErrNoRemote = errors.New("no remote document configured")

func errNoRemote(op string) error {
	return fmt.Errorf("%s: %w", op, ErrNoRemote)
}
