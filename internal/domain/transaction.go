package domain

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func init() {
	// Export documents carry amounts as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// TransactionType is the direction of money for a transaction or category.
type TransactionType string

const (
	// TransactionTypeIn is money entering an account.
	TransactionTypeIn TransactionType = "IN"
	// TransactionTypeOut is money leaving an account.
	TransactionTypeOut TransactionType = "OUT"
)

// Valid reports whether t is one of the known directions.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIn || t == TransactionTypeOut
}

// Sign returns +1 for IN and -1 for OUT.
func (t TransactionType) Sign() int64 {
	if t == TransactionTypeOut {
		return -1
	}
	return 1
}

// ParseTransactionType parses "IN"/"OUT" (case-sensitive, as stored).
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(s)
	if !t.Valid() {
		return "", fmt.Errorf("invalid transaction type %q", s)
	}
	return t, nil
}

// Transaction is one movement of money on a single account.
// Amount is never negative; the direction lives in Type.
type Transaction struct {
	ID          string          `json:"id"`
	Date        civil.Date      `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	AccountID   string          `json:"accountId"`
	CategoryID  string          `json:"categoryId"`
}

// Period returns the calendar month the transaction falls into.
func (t Transaction) Period() Period {
	return PeriodOf(t.Date)
}

// Net returns the signed amount: positive for IN, negative for OUT.
func (t Transaction) Net() decimal.Decimal {
	if t.Type == TransactionTypeOut {
		return t.Amount.Neg()
	}
	return t.Amount
}

// MonthlyBalance is a checkpoint: the balance of AccountID at the start of
// (Year, Month). Month is 0-indexed (0 = January).
type MonthlyBalance struct {
	ID        string          `json:"id"`
	AccountID string          `json:"accountId"`
	Year      int             `json:"year"`
	Month     int             `json:"month"`
	Amount    decimal.Decimal `json:"amount"`
}

// Period returns the month this checkpoint asserts a balance for.
func (m MonthlyBalance) Period() Period {
	return Period{Year: m.Year, Month: m.Month}
}

// ImportLine is a candidate transaction extracted from a statement before the
// user confirms it.
type ImportLine struct {
	ID          string          `json:"id"`
	RawText     string          `json:"rawText"`
	Date        civil.Date      `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	CategoryID  string          `json:"categoryId,omitempty"`
	IsSelected  bool            `json:"isSelected"`
	IsDuplicate bool            `json:"isDuplicate"`
}
