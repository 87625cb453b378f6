package ledgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/syncerr"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() (*Store, *MemoryBlobStore) {
	blobs := NewMemoryBlobStore()
	return New(blobs, zerolog.Nop()), blobs
}

func TestStore_SeedsOnFirstRead(t *testing.T) {
	ctx := context.Background()
	s, blobs := newTestStore()

	accounts, err := s.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, "acc_1", accounts[0].ID)

	_, ok, err := blobs.Get(ctx, Accounts.Key())
	require.NoError(t, err)
	assert.True(t, ok, "seed must be persisted")

	jars, err := s.Jars(ctx)
	require.NoError(t, err)
	assert.NotNil(t, jars)
	assert.Empty(t, jars)

	balances, err := s.MonthlyBalances(ctx)
	require.NoError(t, err)
	assert.Len(t, balances, 3)
}

func TestStore_ReadAfterWrite(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	rules := []domain.TextCategoryRule{{Pattern: "netflix", CategoryID: "13"}}
	require.NoError(t, s.SaveRules(ctx, rules))

	got, err := s.Rules(ctx)
	require.NoError(t, err)
	assert.Equal(t, rules, got)
}

func TestStore_AccountCRUD(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	require.NoError(t, s.AddAccount(ctx, domain.Account{ID: "acc_9", Name: "BROKER", AccountTypeID: "type_invest", Currency: "ARS", IsActive: true}))

	updated := domain.Account{ID: "acc_9", Name: "BROKER IOL", AccountTypeID: "type_invest", Currency: "ARS", IsActive: false}
	require.NoError(t, s.UpdateAccount(ctx, updated))

	err := s.UpdateAccount(ctx, domain.Account{ID: "missing"})
	assert.True(t, errors.Is(err, ErrNotFound))

	accounts, err := s.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 4)
	assert.Equal(t, updated, accounts[3])

	require.NoError(t, s.DeleteAccount(ctx, "acc_1"))
	require.NoError(t, s.DeleteAccount(ctx, "nope"))

	accounts, err = s.Accounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 3)
	for _, a := range accounts {
		assert.NotEqual(t, "acc_1", a.ID)
	}
}

func TestStore_AddTransaction(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	tx := domain.Transaction{
		ID: "t_new", Date: civil.Date{Year: 2024, Month: 12, Day: 2}, Description: "Sueldo Diciembre",
		Amount: decimal.NewFromInt(900000), Type: domain.TransactionTypeIn, AccountID: "acc_3", CategoryID: "7",
	}
	require.NoError(t, s.AddTransaction(ctx, tx))

	txs, err := s.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 12)
	assert.Equal(t, "t_new", txs[11].ID)
	assert.True(t, txs[11].Amount.Equal(decimal.NewFromInt(900000)))
}

func TestStore_ExportImportIdempotent(t *testing.T) {
	ctx := context.Background()
	s, blobs := newTestStore()

	// Touch a few collections so stored and seeded values are mixed.
	_, err := s.Transactions(ctx)
	require.NoError(t, err)
	require.NoError(t, s.SaveJars(ctx, []domain.Jar{{
		ID: "j1", Name: "Plazo fijo", Principal: decimal.NewFromInt(100000), AnnualRate: decimal.NewFromInt(38),
		StartDate: civil.Date{Year: 2024, Month: 10, Day: 1}, Compounding: domain.CompoundingSimple,
	}}))

	exported, err := s.ExportAll(ctx)
	require.NoError(t, err)

	before := map[string][]byte{}
	for _, e := range Entities {
		v, ok, err := blobs.Get(ctx, e.Key())
		require.NoError(t, err)
		if ok {
			before[e.Key()] = v
		}
	}

	require.NoError(t, s.ImportAll(ctx, exported))

	for key, v := range before {
		after, ok, err := blobs.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, string(v), string(after), key)
	}

	again, err := s.ExportAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, string(exported), string(again))
}

func TestStore_ExportHasEveryEntityInOrder(t *testing.T) {
	s, _ := newTestStore()

	exported, err := s.ExportAll(context.Background())
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(exported, &doc))
	assert.Len(t, doc, len(Entities))
	for _, e := range Entities {
		assert.Contains(t, doc, e.Key())
	}
	assert.Regexp(t, `^\{"ff_v2_account_types":`, string(exported))
}

func TestStore_ImportIsAdditive(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	require.NoError(t, s.SaveRules(ctx, []domain.TextCategoryRule{{Pattern: "sube", CategoryID: "15"}}))

	doc := `{"ff_v2_accounts":[{"id":"acc_x","name":"ONLY","accountTypeId":"type_bank","currency":"ARS","isActive":true}]}`
	require.NoError(t, s.ImportAll(ctx, []byte(doc)))

	accounts, err := s.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "acc_x", accounts[0].ID)

	rules, err := s.Rules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 1, "entities absent from the document are untouched")
}

func TestStore_ImportMalformedIsAtomic(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{{{`},
		{"not an object", `[1,2,3]`},
		{"no entity keys", `{"something":[]}`},
		{"bad record", `{"ff_v2_accounts":[],"ff_v2_transactions":[{"id":"t","date":"yesterday"}]}`},
		{"not an array", `{"ff_v2_accounts":{"id":"acc_1"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s, _ := newTestStore()
			before, err := s.ExportAll(ctx)
			require.NoError(t, err)

			err = s.ImportAll(ctx, []byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, syncerr.ErrMalformedPayload))

			after, err := s.ExportAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, string(before), string(after))
		})
	}
}

func TestStore_ImportLegacyDocument(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	doc := `{
		"finanza_rules_v7": "[{\"pattern\":\"netflix\",\"categoryId\":\"13\"}]",
		"finanza_jars_v7": null,
		"ff_google_token": "should-be-ignored"
	}`
	require.NoError(t, s.ImportAll(ctx, []byte(doc)))

	rules, err := s.Rules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "netflix", rules[0].Pattern)

	token, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestStore_Credentials(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	require.NoError(t, s.SetToken(ctx, "ya29.token"))
	require.NoError(t, s.SetClientID(ctx, "client.apps.googleusercontent.com"))

	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ya29.token", tok)

	require.NoError(t, s.SetToken(ctx, ""))
	tok, err = s.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	cid, err := s.ClientID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "client.apps.googleusercontent.com", cid)
}

func TestStore_ResetKeepsCredentials(t *testing.T) {
	ctx := context.Background()
	s, blobs := newTestStore()

	require.NoError(t, s.SetToken(ctx, "tok"))
	require.NoError(t, s.SaveAccounts(ctx, nil))

	require.NoError(t, s.Reset(ctx))

	keys, err := blobs.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{TokenKey}, keys)

	accounts, err := s.Accounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 3, "reads seed again after reset")
}
