package ledger

import (
	"context"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// mockRelational is a relational.Gateway whose behaviour is set per test.
// Unset list funcs return empty results; unset writes succeed.
type mockRelational struct {
	ListAccountsFunc           func(ctx context.Context) ([]domain.Account, error)
	InsertAccountFunc          func(ctx context.Context, acc domain.Account) error
	UpdateAccountFunc          func(ctx context.Context, acc domain.Account) error
	DeleteAccountFunc          func(ctx context.Context, id string) error
	ListAccountTypesFunc       func(ctx context.Context) ([]domain.AccountType, error)
	ListCategoriesFunc         func(ctx context.Context) ([]domain.Category, error)
	ListSubCategoriesFunc      func(ctx context.Context) ([]domain.SubCategory, error)
	ListTransactionsFunc       func(ctx context.Context) ([]domain.Transaction, error)
	InsertTransactionFunc      func(ctx context.Context, tx domain.Transaction) error
	ListMonthlyBalancesFunc    func(ctx context.Context) ([]domain.MonthlyBalance, error)
	ReplaceMonthlyBalancesFunc func(ctx context.Context, balances []domain.MonthlyBalance) error

	closed bool
}

func (m *mockRelational) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	if m.ListAccountsFunc != nil {
		return m.ListAccountsFunc(ctx)
	}
	return nil, nil
}

func (m *mockRelational) InsertAccount(ctx context.Context, acc domain.Account) error {
	if m.InsertAccountFunc != nil {
		return m.InsertAccountFunc(ctx, acc)
	}
	return nil
}

func (m *mockRelational) UpdateAccount(ctx context.Context, acc domain.Account) error {
	if m.UpdateAccountFunc != nil {
		return m.UpdateAccountFunc(ctx, acc)
	}
	return nil
}

func (m *mockRelational) DeleteAccount(ctx context.Context, id string) error {
	if m.DeleteAccountFunc != nil {
		return m.DeleteAccountFunc(ctx, id)
	}
	return nil
}

func (m *mockRelational) ListAccountTypes(ctx context.Context) ([]domain.AccountType, error) {
	if m.ListAccountTypesFunc != nil {
		return m.ListAccountTypesFunc(ctx)
	}
	return nil, nil
}

func (m *mockRelational) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if m.ListCategoriesFunc != nil {
		return m.ListCategoriesFunc(ctx)
	}
	return nil, nil
}

func (m *mockRelational) ListSubCategories(ctx context.Context) ([]domain.SubCategory, error) {
	if m.ListSubCategoriesFunc != nil {
		return m.ListSubCategoriesFunc(ctx)
	}
	return nil, nil
}

func (m *mockRelational) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	if m.ListTransactionsFunc != nil {
		return m.ListTransactionsFunc(ctx)
	}
	return nil, nil
}

func (m *mockRelational) InsertTransaction(ctx context.Context, tx domain.Transaction) error {
	if m.InsertTransactionFunc != nil {
		return m.InsertTransactionFunc(ctx, tx)
	}
	return nil
}

func (m *mockRelational) ListMonthlyBalances(ctx context.Context) ([]domain.MonthlyBalance, error) {
	if m.ListMonthlyBalancesFunc != nil {
		return m.ListMonthlyBalancesFunc(ctx)
	}
	return nil, nil
}

func (m *mockRelational) ReplaceMonthlyBalances(ctx context.Context, balances []domain.MonthlyBalance) error {
	if m.ReplaceMonthlyBalancesFunc != nil {
		return m.ReplaceMonthlyBalancesFunc(ctx, balances)
	}
	return nil
}

func (m *mockRelational) Close() error {
	m.closed = true
	return nil
}
