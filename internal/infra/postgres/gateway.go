// Package postgres implements the relational gateway on a hosted Postgres
// database through a pgx connection pool.
package postgres

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/relational"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Gateway is a relational.Gateway backed by Postgres.
type Gateway struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for url and checks it with a ping.
func Connect(ctx context.Context, url string) (*Gateway, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("Connect: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("Connect: ping: %w", err)
	}
	return &Gateway{pool: pool}, nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool *pgxpool.Pool) *Gateway {
	return &Gateway{pool: pool}
}

// Pool exposes the pool for migrations.
func (g *Gateway) Pool() *pgxpool.Pool { return g.pool }

// Close closes the pool.
func (g *Gateway) Close() error {
	g.pool.Close()
	return nil
}

func (g *Gateway) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT id, name, account_type_id, currency, is_active
		FROM accounts
		ORDER BY name
	`)
	if err != nil {
		return nil, relational.Unavailable("postgres.list_accounts", err)
	}

	accounts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Account, error) {
		var a domain.Account
		err := row.Scan(&a.ID, &a.Name, &a.AccountTypeID, &a.Currency, &a.IsActive)
		return a, err
	})
	if err != nil {
		return nil, relational.Unavailable("postgres.list_accounts", err)
	}
	return accounts, nil
}

func (g *Gateway) InsertAccount(ctx context.Context, acc domain.Account) error {
	_, err := g.pool.Exec(ctx, `
		INSERT INTO accounts (id, name, account_type_id, currency, is_active)
		VALUES ($1, $2, $3, $4, $5)
	`, acc.ID, acc.Name, acc.AccountTypeID, acc.Currency, acc.IsActive)
	return relational.Unavailable("postgres.insert_account", err)
}

func (g *Gateway) UpdateAccount(ctx context.Context, acc domain.Account) error {
	_, err := g.pool.Exec(ctx, `
		UPDATE accounts
		SET name = $2, account_type_id = $3, currency = $4, is_active = $5
		WHERE id = $1
	`, acc.ID, acc.Name, acc.AccountTypeID, acc.Currency, acc.IsActive)
	return relational.Unavailable("postgres.update_account", err)
}

func (g *Gateway) DeleteAccount(ctx context.Context, id string) error {
	_, err := g.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	return relational.Unavailable("postgres.delete_account", err)
}

func (g *Gateway) ListAccountTypes(ctx context.Context) ([]domain.AccountType, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT id, name, include_in_cashflow, is_active, COALESCE(description, '')
		FROM account_types
		ORDER BY name
	`)
	if err != nil {
		return nil, relational.Unavailable("postgres.list_account_types", err)
	}

	types, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AccountType, error) {
		var t domain.AccountType
		err := row.Scan(&t.ID, &t.Name, &t.IncludeInCashflow, &t.IsActive, &t.Description)
		return t, err
	})
	if err != nil {
		return nil, relational.Unavailable("postgres.list_account_types", err)
	}
	return types, nil
}

func (g *Gateway) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := g.pool.Query(ctx, `SELECT id, name, type FROM categories ORDER BY name`)
	if err != nil {
		return nil, relational.Unavailable("postgres.list_categories", err)
	}

	cats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Category, error) {
		var c domain.Category
		var typ string
		err := row.Scan(&c.ID, &c.Name, &typ)
		c.Type = domain.TransactionType(typ)
		return c, err
	})
	if err != nil {
		return nil, relational.Unavailable("postgres.list_categories", err)
	}
	return cats, nil
}

func (g *Gateway) ListSubCategories(ctx context.Context) ([]domain.SubCategory, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT id, COALESCE(category_id, ''), name, type
		FROM sub_categories
		ORDER BY name
	`)
	if err != nil {
		return nil, relational.Unavailable("postgres.list_sub_categories", err)
	}

	subs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.SubCategory, error) {
		var s domain.SubCategory
		var typ string
		err := row.Scan(&s.ID, &s.CategoryID, &s.Name, &typ)
		s.Type = domain.TransactionType(typ)
		return s, err
	})
	if err != nil {
		return nil, relational.Unavailable("postgres.list_sub_categories", err)
	}
	return subs, nil
}

func (g *Gateway) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT id, to_char(date, 'YYYY-MM-DD'), description, amount::text, type, account_id, category_id
		FROM transactions
		ORDER BY date DESC, id
	`)
	if err != nil {
		return nil, relational.Unavailable("postgres.list_transactions", err)
	}

	txs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Transaction, error) {
		var (
			t              domain.Transaction
			date, amt, typ string
		)
		if err := row.Scan(&t.ID, &date, &t.Description, &amt, &typ, &t.AccountID, &t.CategoryID); err != nil {
			return t, err
		}
		return t, decodeTransaction(&t, date, amt, typ)
	})
	if err != nil {
		return nil, relational.Unavailable("postgres.list_transactions", err)
	}
	return txs, nil
}

func (g *Gateway) InsertTransaction(ctx context.Context, tx domain.Transaction) error {
	_, err := g.pool.Exec(ctx, `
		INSERT INTO transactions (id, date, description, amount, type, account_id, category_id)
		VALUES ($1, $2::date, $3, $4::numeric, $5, $6, $7)
	`, tx.ID, tx.Date.String(), tx.Description, tx.Amount.String(), string(tx.Type), tx.AccountID, tx.CategoryID)
	return relational.Unavailable("postgres.insert_transaction", err)
}

// listMonthlyBalancesSQL ends with id so duplicate checkpoints for one
// account and month always come back in the same order.
const listMonthlyBalancesSQL = `
		SELECT id, account_id, year, month, amount::text
		FROM monthly_balances
		ORDER BY year, month, account_id, id
	`

func (g *Gateway) ListMonthlyBalances(ctx context.Context) ([]domain.MonthlyBalance, error) {
	rows, err := g.pool.Query(ctx, listMonthlyBalancesSQL)
	if err != nil {
		return nil, relational.Unavailable("postgres.list_monthly_balances", err)
	}

	balances, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.MonthlyBalance, error) {
		var (
			b   domain.MonthlyBalance
			amt string
		)
		if err := row.Scan(&b.ID, &b.AccountID, &b.Year, &b.Month, &amt); err != nil {
			return b, err
		}
		var err error
		b.Amount, err = decimal.NewFromString(amt)
		return b, err
	})
	if err != nil {
		return nil, relational.Unavailable("postgres.list_monthly_balances", err)
	}
	return balances, nil
}

func (g *Gateway) ReplaceMonthlyBalances(ctx context.Context, balances []domain.MonthlyBalance) error {
	err := pgx.BeginFunc(ctx, g.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM monthly_balances`); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, b := range balances {
			batch.Queue(`
				INSERT INTO monthly_balances (id, account_id, year, month, amount)
				VALUES ($1, $2, $3, $4, $5::numeric)
			`, b.ID, b.AccountID, b.Year, b.Month, b.Amount.String())
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	return relational.Unavailable("postgres.replace_monthly_balances", err)
}

// decodeTransaction fills the columns selected as text.
func decodeTransaction(t *domain.Transaction, date, amount, typ string) error {
	d, err := civil.ParseDate(date)
	if err != nil {
		return fmt.Errorf("transaction %s: date: %w", t.ID, err)
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return fmt.Errorf("transaction %s: amount: %w", t.ID, err)
	}
	tt, err := domain.ParseTransactionType(typ)
	if err != nil {
		return fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	t.Date, t.Amount, t.Type = d, a, tt
	return nil
}
