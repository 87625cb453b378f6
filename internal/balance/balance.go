// Package balance reconstructs per-account balances for a month from sparse
// checkpoints and the transaction log. Everything here is a pure function of
// its inputs.
package balance

import (
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// PeriodAccountState is the reconstructed position of one account for one month.
type PeriodAccountState struct {
	Account          domain.Account  `json:"account"`
	OpeningBalance   decimal.Decimal `json:"openingBalance"`
	TotalIn          decimal.Decimal `json:"totalIn"`
	TotalOut         decimal.Decimal `json:"totalOut"`
	FinalBalance     decimal.Decimal `json:"finalBalance"`
	HasOpeningRecord bool            `json:"hasOpeningRecord"`
}

// ComputePeriodState derives the opening balance, inflow, outflow and closing
// balance of account for (year, month). month is 0-indexed.
//
// The opening balance starts from the latest checkpoint at or before the
// requested month (the anchor) and rolls forward every transaction dated from
// the anchor's month up to, but excluding, the requested month. Without an
// anchor the roll-forward starts from zero at the beginning of time.
// Checkpoints and transactions are not reconciled against each other: a later
// anchor wins over whatever the earlier history implies.
func ComputePeriodState(account domain.Account, allTransactions []domain.Transaction, allCheckpoints []domain.MonthlyBalance, month, year int) PeriodAccountState {
	target := domain.NewPeriod(year, month)

	state := PeriodAccountState{
		Account:        account,
		OpeningBalance: decimal.Zero,
		TotalIn:        decimal.Zero,
		TotalOut:       decimal.Zero,
	}

	anchor, hasAnchor := findAnchor(account.ID, allCheckpoints, target)
	if hasAnchor {
		state.OpeningBalance = anchor.Amount
		state.HasOpeningRecord = true
	}

	for _, tx := range allTransactions {
		if tx.AccountID != account.ID || !tx.Type.Valid() {
			continue
		}

		p := tx.Period()
		switch {
		case p == target:
			if tx.Type == domain.TransactionTypeIn {
				state.TotalIn = state.TotalIn.Add(tx.Amount)
			} else {
				state.TotalOut = state.TotalOut.Add(tx.Amount)
			}
		case p.Before(target):
			// When the anchor is the target month this never matches, so the
			// checkpoint amount is used as-is.
			if !hasAnchor || !p.Before(anchor.Period()) {
				state.OpeningBalance = state.OpeningBalance.Add(tx.Net())
			}
		}
	}

	state.FinalBalance = state.OpeningBalance.Add(state.TotalIn).Sub(state.TotalOut)
	return state
}

// findAnchor picks the checkpoint of accountID with the latest period not
// after target. For duplicates of the same period the last one seen wins.
func findAnchor(accountID string, checkpoints []domain.MonthlyBalance, target domain.Period) (domain.MonthlyBalance, bool) {
	var (
		best  domain.MonthlyBalance
		found bool
	)
	for _, cp := range checkpoints {
		if cp.AccountID != accountID {
			continue
		}
		p := cp.Period()
		if p.After(target) {
			continue
		}
		if !found || !p.Before(best.Period()) {
			best = cp
			found = true
		}
	}
	return best, found
}

// ComputePeriodStates returns one state per active account, in input order.
func ComputePeriodStates(accounts []domain.Account, allTransactions []domain.Transaction, allCheckpoints []domain.MonthlyBalance, month, year int) []PeriodAccountState {
	states := make([]PeriodAccountState, 0, len(accounts))
	for _, acc := range accounts {
		if !acc.IsActive {
			continue
		}
		states = append(states, ComputePeriodState(acc, allTransactions, allCheckpoints, month, year))
	}
	return states
}

// Summary holds the headline totals for a month.
type Summary struct {
	TotalIn    decimal.Decimal `json:"totalIn"`
	TotalOut   decimal.Decimal `json:"totalOut"`
	TotalFinal decimal.Decimal `json:"totalFinal"`
	Accounts   int             `json:"accounts"`
}

// Summarize adds up the states whose account type counts toward cashflow.
// Accounts with an unknown type are included.
func Summarize(states []PeriodAccountState, accountTypes []domain.AccountType) Summary {
	excluded := make(map[string]bool)
	for _, at := range accountTypes {
		if !at.IncludeInCashflow {
			excluded[at.ID] = true
		}
	}

	sum := Summary{TotalIn: decimal.Zero, TotalOut: decimal.Zero, TotalFinal: decimal.Zero}
	for _, st := range states {
		if excluded[st.Account.AccountTypeID] {
			continue
		}
		sum.TotalIn = sum.TotalIn.Add(st.TotalIn)
		sum.TotalOut = sum.TotalOut.Add(st.TotalOut)
		sum.TotalFinal = sum.TotalFinal.Add(st.FinalBalance)
		sum.Accounts++
	}
	return sum
}
