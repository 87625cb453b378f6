package bigquery

import (
	"fmt"
	"math/big"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// numericScale is the fractional precision of BigQuery NUMERIC.
const numericScale = 9

type AccountRow struct {
	ID            string `bigquery:"id"`              // REQUIRED
	Name          string `bigquery:"name"`            // REQUIRED
	AccountTypeID string `bigquery:"account_type_id"` // REQUIRED
	Currency      string `bigquery:"currency"`        // REQUIRED
	IsActive      bool   `bigquery:"is_active"`       // REQUIRED
}

type AccountTypeRow struct {
	ID                string              `bigquery:"id"`
	Name              string              `bigquery:"name"`
	IncludeInCashflow bool                `bigquery:"include_in_cashflow"`
	IsActive          bool                `bigquery:"is_active"`
	Description       bigquery.NullString `bigquery:"description"` // NULLABLE
}

type CategoryRow struct {
	ID   string `bigquery:"id"`
	Name string `bigquery:"name"`
	Type string `bigquery:"type"` // IN | OUT
}

type SubCategoryRow struct {
	ID         string              `bigquery:"id"`
	CategoryID bigquery.NullString `bigquery:"category_id"` // NULLABLE
	Name       string              `bigquery:"name"`
	Type       string              `bigquery:"type"`
}

type TransactionRow struct {
	ID          string     `bigquery:"id"`
	Date        civil.Date `bigquery:"date"` // DATE
	Description string     `bigquery:"description"`
	Amount      *big.Rat   `bigquery:"amount"` // NUMERIC
	Type        string     `bigquery:"type"`
	AccountID   string     `bigquery:"account_id"`
	CategoryID  string     `bigquery:"category_id"`
}

type MonthlyBalanceRow struct {
	ID        string   `bigquery:"id"`
	AccountID string   `bigquery:"account_id"`
	Year      int64    `bigquery:"year"`
	Month     int64    `bigquery:"month"` // 0-indexed
	Amount    *big.Rat `bigquery:"amount"`
}

func ratToDecimal(r *big.Rat) (decimal.Decimal, error) {
	if r == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(r.FloatString(numericScale))
}

func (r AccountRow) toDomain() domain.Account {
	return domain.Account{ID: r.ID, Name: r.Name, AccountTypeID: r.AccountTypeID, Currency: r.Currency, IsActive: r.IsActive}
}

func (r AccountTypeRow) toDomain() domain.AccountType {
	return domain.AccountType{
		ID: r.ID, Name: r.Name, IncludeInCashflow: r.IncludeInCashflow, IsActive: r.IsActive,
		Description: r.Description.StringVal,
	}
}

func (r TransactionRow) toDomain() (domain.Transaction, error) {
	amount, err := ratToDecimal(r.Amount)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: amount: %w", r.ID, err)
	}
	typ, err := domain.ParseTransactionType(r.Type)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: %w", r.ID, err)
	}
	return domain.Transaction{
		ID: r.ID, Date: r.Date, Description: r.Description, Amount: amount,
		Type: typ, AccountID: r.AccountID, CategoryID: r.CategoryID,
	}, nil
}

func (r MonthlyBalanceRow) toDomain() (domain.MonthlyBalance, error) {
	amount, err := ratToDecimal(r.Amount)
	if err != nil {
		return domain.MonthlyBalance{}, fmt.Errorf("monthly balance %s: amount: %w", r.ID, err)
	}
	return domain.MonthlyBalance{
		ID: r.ID, AccountID: r.AccountID, Year: int(r.Year), Month: int(r.Month), Amount: amount,
	}, nil
}

func monthlyBalanceRow(b domain.MonthlyBalance) MonthlyBalanceRow {
	return MonthlyBalanceRow{
		ID: b.ID, AccountID: b.AccountID, Year: int64(b.Year), Month: int64(b.Month), Amount: b.Amount.Rat(),
	}
}
