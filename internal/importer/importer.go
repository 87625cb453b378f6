// Package importer turns statement screenshots and PDFs into candidate
// transactions: extraction by a model, category rules, duplicate flags, and
// the final commit of the lines the user kept.
package importer

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// duplicateTolerance is the amount difference below which two movements on
// the same day and account are considered the same.
var duplicateTolerance = decimal.NewFromInt(1)

// RawLine is one movement as returned by the extractor.
type RawLine struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
}

// Extractor reads movements out of a statement file.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) ([]RawLine, error)
}

// Ledger is the subset of the ledger service the importer needs.
type Ledger interface {
	GetRules(ctx context.Context) ([]domain.TextCategoryRule, error)
	GetTransactions(ctx context.Context) ([]domain.Transaction, error)
	AddTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error)
}

// MatchRule returns the category of the first rule whose pattern occurs in
// description, ignoring case.
func MatchRule(description string, rules []domain.TextCategoryRule) (string, bool) {
	desc := strings.ToLower(description)
	for _, r := range rules {
		if r.Pattern == "" {
			continue
		}
		if strings.Contains(desc, strings.ToLower(r.Pattern)) {
			return r.CategoryID, true
		}
	}
	return "", false
}

// IsDuplicate reports whether existing already has a movement on accountID
// and date whose amount is within one unit of amount.
func IsDuplicate(accountID string, date civil.Date, amount decimal.Decimal, existing []domain.Transaction) bool {
	for _, t := range existing {
		if t.AccountID != accountID || t.Date != date {
			continue
		}
		if t.Amount.Sub(amount).Abs().LessThan(duplicateTolerance) {
			return true
		}
	}
	return false
}

// Importer prepares and commits imports for one ledger.
type Importer struct {
	ledger    Ledger
	extractor Extractor
	log       zerolog.Logger
}

func New(ledger Ledger, extractor Extractor, log zerolog.Logger) *Importer {
	return &Importer{ledger: ledger, extractor: extractor, log: log.With().Str("component", "importer").Logger()}
}

// Scan extracts the statement and prepares its lines for accountID.
func (i *Importer) Scan(ctx context.Context, accountID string, data []byte, mimeType string) ([]domain.ImportLine, error) {
	if i.extractor == nil {
		return nil, fmt.Errorf("Scan: no extractor configured")
	}
	raw, err := i.extractor.Extract(ctx, data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("Scan: %w", err)
	}
	return i.Prepare(ctx, accountID, raw)
}

// Prepare normalises raw lines into import candidates. Amounts become
// positive, matching rules pre-select a category, and likely duplicates are
// flagged and left unselected. Lines with an unreadable date or type are
// skipped.
func (i *Importer) Prepare(ctx context.Context, accountID string, raw []RawLine) ([]domain.ImportLine, error) {
	rules, err := i.ledger.GetRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("Prepare: loading rules: %w", err)
	}
	existing, err := i.ledger.GetTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("Prepare: loading transactions: %w", err)
	}

	lines := make([]domain.ImportLine, 0, len(raw))
	for _, r := range raw {
		date, err := civil.ParseDate(strings.TrimSpace(r.Date))
		if err != nil {
			i.log.Warn().Str("date", r.Date).Str("description", r.Description).Msg("skipping line with invalid date")
			continue
		}
		typ, err := domain.ParseTransactionType(strings.ToUpper(strings.TrimSpace(r.Type)))
		if err != nil {
			i.log.Warn().Str("type", r.Type).Str("description", r.Description).Msg("skipping line with invalid type")
			continue
		}

		amount := r.Amount.Abs()
		dup := IsDuplicate(accountID, date, amount, existing)
		categoryID, _ := MatchRule(r.Description, rules)

		lines = append(lines, domain.ImportLine{
			ID:          uuid.NewString(),
			RawText:     r.Description,
			Date:        date,
			Description: r.Description,
			Amount:      amount,
			Type:        typ,
			CategoryID:  categoryID,
			IsSelected:  !dup,
			IsDuplicate: dup,
		})
	}
	return lines, nil
}

// ErrNothingToImport is returned when no line is both selected and categorised.
var ErrNothingToImport = fmt.Errorf("no selected lines with a category")

// Commit adds every selected line that has a category as a transaction on
// accountID and returns the transactions created.
func (i *Importer) Commit(ctx context.Context, accountID string, lines []domain.ImportLine) ([]domain.Transaction, error) {
	if accountID == "" {
		return nil, fmt.Errorf("Commit: account id is required")
	}

	var created []domain.Transaction
	for _, l := range lines {
		if !l.IsSelected || l.CategoryID == "" {
			continue
		}
		tx, err := i.ledger.AddTransaction(ctx, domain.Transaction{
			Date:        l.Date,
			Description: l.Description,
			Amount:      l.Amount,
			Type:        l.Type,
			AccountID:   accountID,
			CategoryID:  l.CategoryID,
		})
		if err != nil {
			return created, fmt.Errorf("Commit: %w", err)
		}
		created = append(created, tx)
	}
	if len(created) == 0 {
		return nil, ErrNothingToImport
	}

	i.log.Info().Str("account_id", accountID).Int("count", len(created)).Msg("imported transactions")
	return created, nil
}
