// Package ledgerstore is the local, always-available persistence layer: one
// JSON array per entity under a versioned key, seeded on first read, with
// whole-database export and import.
package ledgerstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/syncerr"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when an update targets a record that does not exist.
var ErrNotFound = errors.New("record not found")

// Store persists ledger collections on top of a BlobStore. All methods are
// safe for concurrent use; a write is visible to every read that starts after
// it returns.
type Store struct {
	mu    sync.Mutex
	blobs BlobStore
	log   zerolog.Logger
}

// New wraps blobs.
func New(blobs BlobStore, log zerolog.Logger) *Store {
	return &Store{blobs: blobs, log: log.With().Str("component", "ledgerstore").Logger()}
}

// rawLocked returns the stored bytes for e, seeding and persisting the
// starter dataset when the key is absent. Caller holds s.mu.
func (s *Store) rawLocked(ctx context.Context, e Entity) ([]byte, error) {
	raw, ok, err := s.blobs.Get(ctx, e.Key())
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", e, err)
	}
	if ok {
		return raw, nil
	}

	raw, err = json.Marshal(seedFor(e))
	if err != nil {
		return nil, fmt.Errorf("marshal seed %s: %w", e, err)
	}
	if err := s.blobs.Set(ctx, e.Key(), raw); err != nil {
		return nil, fmt.Errorf("persist seed %s: %w", e, err)
	}
	s.log.Debug().Str("entity", string(e)).Msg("seeded collection")
	return raw, nil
}

func loadLocked[T any](ctx context.Context, s *Store, e Entity) ([]T, error) {
	raw, err := s.rawLocked(ctx, e)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", e, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func saveLocked[T any](ctx context.Context, s *Store, e Entity, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e, err)
	}
	if err := s.blobs.Set(ctx, e.Key(), raw); err != nil {
		return fmt.Errorf("set %s: %w", e, err)
	}
	return nil
}

func load[T any](ctx context.Context, s *Store, e Entity) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return loadLocked[T](ctx, s, e)
}

func save[T any](ctx context.Context, s *Store, e Entity, items []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveLocked(ctx, s, e, items)
}

// mutate loads e, applies fn and writes the result back under one lock.
func mutate[T any](ctx context.Context, s *Store, e Entity, fn func([]T) ([]T, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := loadLocked[T](ctx, s, e)
	if err != nil {
		return err
	}
	items, err = fn(items)
	if err != nil {
		return err
	}
	return saveLocked(ctx, s, e, items)
}

func (s *Store) AccountTypes(ctx context.Context) ([]domain.AccountType, error) {
	return load[domain.AccountType](ctx, s, AccountTypes)
}

func (s *Store) SaveAccountTypes(ctx context.Context, v []domain.AccountType) error {
	return save(ctx, s, AccountTypes, v)
}

func (s *Store) Accounts(ctx context.Context) ([]domain.Account, error) {
	return load[domain.Account](ctx, s, Accounts)
}

func (s *Store) SaveAccounts(ctx context.Context, v []domain.Account) error {
	return save(ctx, s, Accounts, v)
}

// AddAccount appends acc.
func (s *Store) AddAccount(ctx context.Context, acc domain.Account) error {
	return mutate(ctx, s, Accounts, func(all []domain.Account) ([]domain.Account, error) {
		return append(all, acc), nil
	})
}

// UpdateAccount replaces the account with the same ID. ErrNotFound if absent.
func (s *Store) UpdateAccount(ctx context.Context, acc domain.Account) error {
	return mutate(ctx, s, Accounts, func(all []domain.Account) ([]domain.Account, error) {
		for i := range all {
			if all[i].ID == acc.ID {
				all[i] = acc
				return all, nil
			}
		}
		return nil, fmt.Errorf("account %s: %w", acc.ID, ErrNotFound)
	})
}

// DeleteAccount removes the account with id. Deleting a missing id is a no-op.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	return mutate(ctx, s, Accounts, func(all []domain.Account) ([]domain.Account, error) {
		kept := all[:0]
		for _, a := range all {
			if a.ID != id {
				kept = append(kept, a)
			}
		}
		return kept, nil
	})
}

func (s *Store) MonthlyBalances(ctx context.Context) ([]domain.MonthlyBalance, error) {
	return load[domain.MonthlyBalance](ctx, s, MonthlyBalances)
}

func (s *Store) SaveMonthlyBalances(ctx context.Context, v []domain.MonthlyBalance) error {
	return save(ctx, s, MonthlyBalances, v)
}

func (s *Store) Categories(ctx context.Context) ([]domain.Category, error) {
	return load[domain.Category](ctx, s, Categories)
}

func (s *Store) SubCategories(ctx context.Context) ([]domain.SubCategory, error) {
	return load[domain.SubCategory](ctx, s, SubCategories)
}

func (s *Store) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	return load[domain.Transaction](ctx, s, Transactions)
}

func (s *Store) SaveTransactions(ctx context.Context, v []domain.Transaction) error {
	return save(ctx, s, Transactions, v)
}

// AddTransaction appends tx.
func (s *Store) AddTransaction(ctx context.Context, tx domain.Transaction) error {
	return mutate(ctx, s, Transactions, func(all []domain.Transaction) ([]domain.Transaction, error) {
		return append(all, tx), nil
	})
}

func (s *Store) BudgetItems(ctx context.Context) ([]domain.BudgetItem, error) {
	return load[domain.BudgetItem](ctx, s, Budget)
}

func (s *Store) SaveBudgetItems(ctx context.Context, v []domain.BudgetItem) error {
	return save(ctx, s, Budget, v)
}

func (s *Store) Jars(ctx context.Context) ([]domain.Jar, error) {
	return load[domain.Jar](ctx, s, Jars)
}

func (s *Store) SaveJars(ctx context.Context, v []domain.Jar) error {
	return save(ctx, s, Jars, v)
}

func (s *Store) Rules(ctx context.Context) ([]domain.TextCategoryRule, error) {
	return load[domain.TextCategoryRule](ctx, s, Rules)
}

func (s *Store) SaveRules(ctx context.Context, v []domain.TextCategoryRule) error {
	return save(ctx, s, Rules, v)
}

// ExportAll returns one JSON object holding every entity, keyed by its blob
// store key, in the fixed order of Entities. Absent collections are exported
// as their seed without being persisted.
func (s *Store) ExportAll(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range Entities {
		raw, ok, err := s.blobs.Get(ctx, e.Key())
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", e, err)
		}
		if !ok {
			if raw, err = json.Marshal(seedFor(e)); err != nil {
				return nil, fmt.Errorf("export seed %s: %w", e, err)
			}
		}

		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(e.Key())
		buf.Write(key)
		buf.WriteByte(':')
		if err := json.Compact(&buf, raw); err != nil {
			return nil, fmt.Errorf("export %s: stored value is not JSON: %w", e, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ImportAll replaces every entity present in blob and leaves the others
// untouched. The whole document is validated before anything is written, so
// a malformed document changes nothing and yields a MalformedPayload error.
//
// Besides the current shape, documents whose values are JSON strings holding
// the array, and documents keyed by the older finanza_<entity>_v7 names, are
// accepted.
func (s *Store) ImportAll(ctx context.Context, blob []byte) error {
	values, err := decodeDocument(blob)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.blobs.SetMany(ctx, values); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	s.log.Info().Int("entities", len(values)).Msg("imported ledger document")
	return nil
}

// decodeDocument validates an export document and returns the compacted
// value to store for each entity key it carries.
func decodeDocument(blob []byte) (map[string][]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(blob, &doc); err != nil {
		return nil, syncerr.New(syncerr.MalformedPayload, "import", err)
	}
	if doc == nil {
		return nil, syncerr.New(syncerr.MalformedPayload, "import", errors.New("document is not an object"))
	}

	values := make(map[string][]byte)
	for key, raw := range doc {
		e, ok := entityForDocumentKey(key)
		if !ok {
			continue
		}

		value, err := normalizeValue(raw)
		if err != nil {
			return nil, syncerr.New(syncerr.MalformedPayload, "import", fmt.Errorf("%s: %w", key, err))
		}
		if err := e.validate(value); err != nil {
			return nil, syncerr.New(syncerr.MalformedPayload, "import", fmt.Errorf("%s: %w", key, err))
		}
		values[e.Key()] = value
	}

	if len(values) == 0 {
		return nil, syncerr.New(syncerr.MalformedPayload, "import", errors.New("document holds no ledger entities"))
	}
	return values, nil
}

func entityForDocumentKey(key string) (Entity, bool) {
	if e, ok := EntityForKey(key); ok {
		return e, true
	}
	if strings.HasPrefix(key, "finanza_") && strings.HasSuffix(key, "_v7") {
		name := strings.TrimSuffix(strings.TrimPrefix(key, "finanza_"), "_v7")
		return EntityForKey(KeyPrefix + name)
	}
	return "", false
}

// normalizeValue unwraps string-encoded arrays, maps null to an empty array
// and compacts the result.
func normalizeValue(raw json.RawMessage) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, err
		}
		raw = bytes.TrimSpace([]byte(inner))
	}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []byte("[]"), nil
	}
	if raw[0] != '[' {
		return nil, errors.New("value is not an array")
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Reset removes every stored collection so the next read seeds again.
// Credentials are kept.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.blobs.Keys(ctx)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	for _, k := range keys {
		if !strings.HasPrefix(k, KeyPrefix) {
			continue
		}
		if err := s.blobs.Delete(ctx, k); err != nil {
			return fmt.Errorf("reset %s: %w", k, err)
		}
	}
	s.log.Warn().Msg("local ledger reset")
	return nil
}

// Token returns the persisted bearer token, or "" when none is stored.
func (s *Store) Token(ctx context.Context) (string, error) {
	return s.credential(ctx, TokenKey)
}

// SetToken persists token. An empty token deletes the stored one.
func (s *Store) SetToken(ctx context.Context, token string) error {
	return s.setCredential(ctx, TokenKey, token)
}

// ClientID returns the persisted OAuth client identifier.
func (s *Store) ClientID(ctx context.Context) (string, error) {
	return s.credential(ctx, ClientIDKey)
}

// SetClientID persists id. An empty id deletes the stored one.
func (s *Store) SetClientID(ctx context.Context, id string) error {
	return s.setCredential(ctx, ClientIDKey, id)
}

func (s *Store) credential(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok, err := s.blobs.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	if !ok {
		return "", nil
	}
	return string(v), nil
}

func (s *Store) setCredential(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value == "" {
		return s.blobs.Delete(ctx, key)
	}
	return s.blobs.Set(ctx, key, []byte(value))
}
