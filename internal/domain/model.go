// Package domain holds the ledger's record types. Every type here is a plain
// value that round-trips through the export document unchanged.
package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Account is a place money lives (bank account, wallet, cash).
// Accounts referenced by transactions are deactivated, never removed.
type Account struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	AccountTypeID string `json:"accountTypeId"`
	Currency      string `json:"currency"`
	IsActive      bool   `json:"isActive"`
}

// AccountType groups accounts and decides whether they count toward the
// headline cashflow totals.
type AccountType struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	IncludeInCashflow bool   `json:"includeInCashflow"`
	IsActive          bool   `json:"isActive"`
	Description       string `json:"description,omitempty"`
}

// Category classifies transactions. Type should match the transaction's type.
type Category struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Type TransactionType `json:"type"`
}

// SubCategory refines a Category.
type SubCategory struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"categoryId,omitempty"`
	Name       string          `json:"name"`
	Type       TransactionType `json:"type"`
}

// TextCategoryRule pre-selects CategoryID for imported lines whose
// description contains Pattern (case-insensitive).
type TextCategoryRule struct {
	ID         string `json:"id,omitempty"`
	Pattern    string `json:"pattern"`
	CategoryID string `json:"categoryId"`
}

// BudgetItem is a spending target for one category and month.
type BudgetItem struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"categoryId"`
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Amount     decimal.Decimal `json:"amount"`
}

// Compounding selects how a Jar accrues returns.
type Compounding string

const (
	// CompoundingSimple accrues linearly on the principal.
	CompoundingSimple Compounding = "SIMPLE"
	// CompoundingDaily capitalises returns every day.
	CompoundingDaily Compounding = "DAILY"
)

// Jar is an investment bucket. Its current value is derived, never stored.
type Jar struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Principal    decimal.Decimal `json:"principal"`
	AnnualRate   decimal.Decimal `json:"annualRate"` // percent, e.g. 40 = 40% TNA
	StartDate    civil.Date      `json:"startDate"`
	MaturityDate *civil.Date     `json:"maturityDate,omitempty"`
	Compounding  Compounding     `json:"compounding,omitempty"`
}
