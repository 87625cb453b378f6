// Package relational defines the optional hosted table store that mirrors
// the ledger entity by entity.
package relational

import (
	"context"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/syncerr"
)

// Gateway reads and writes ledger rows in a hosted relational store.
// Implementations return errors classified as syncerr NetworkUnavailable and
// never retry.
type Gateway interface {
	// ListAccounts returns accounts ordered by name.
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	InsertAccount(ctx context.Context, acc domain.Account) error
	UpdateAccount(ctx context.Context, acc domain.Account) error
	DeleteAccount(ctx context.Context, id string) error

	ListAccountTypes(ctx context.Context) ([]domain.AccountType, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListSubCategories(ctx context.Context) ([]domain.SubCategory, error)

	// ListTransactions returns transactions newest first.
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
	InsertTransaction(ctx context.Context, tx domain.Transaction) error

	ListMonthlyBalances(ctx context.Context) ([]domain.MonthlyBalance, error)
	// ReplaceMonthlyBalances swaps the whole checkpoint table for balances.
	ReplaceMonthlyBalances(ctx context.Context, balances []domain.MonthlyBalance) error

	Close() error
}

// Tables lists the tables a backend must provide.
var Tables = []string{
	"account_types",
	"accounts",
	"categories",
	"sub_categories",
	"transactions",
	"monthly_balances",
}

// Unavailable wraps a backend failure as NetworkUnavailable. Errors that are
// already classified keep their kind.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if syncerr.KindOf(err) != 0 {
		return err
	}
	return syncerr.New(syncerr.NetworkUnavailable, op, err)
}
