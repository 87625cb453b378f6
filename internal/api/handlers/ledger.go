package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ListAccounts handles GET /api/accounts
func (h *LedgerHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.GetAccounts(r.Context())
	if err != nil {
		writeFailure(w, r, "Failed to list accounts", err)
		return
	}
	list(w, "accounts", accounts)
}

// CreateAccount handles POST /api/accounts
func (h *LedgerHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var acc domain.Account
	if !decode(w, r, &acc) {
		return
	}
	if acc.Name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Name is required")
		return
	}

	created, err := h.svc.AddAccount(r.Context(), acc)
	if err != nil {
		writeFailure(w, r, "Failed to create account", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// UpdateAccount handles PUT /api/accounts/{id}
func (h *LedgerHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var acc domain.Account
	if !decode(w, r, &acc) {
		return
	}
	acc.ID = chi.URLParam(r, "id")

	if err := h.svc.UpdateAccount(r.Context(), acc); err != nil {
		writeFailure(w, r, "Failed to update account", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, acc)
}

// DeleteAccount handles DELETE /api/accounts/{id}
func (h *LedgerHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeFailure(w, r, "Failed to delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAccountTypes handles GET /api/account-types
func (h *LedgerHandler) ListAccountTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.svc.GetAccountTypes(r.Context())
	if err != nil {
		writeFailure(w, r, "Failed to list account types", err)
		return
	}
	list(w, "accountTypes", types)
}

// ListCategories handles GET /api/categories
func (h *LedgerHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	categories, err := h.svc.GetCategories(ctx)
	if err != nil {
		writeFailure(w, r, "Failed to list categories", err)
		return
	}
	subs, err := h.svc.GetSubCategories(ctx)
	if err != nil {
		writeFailure(w, r, "Failed to list subcategories", err)
		return
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	if subs == nil {
		subs = []domain.SubCategory{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories":    categories,
		"subCategories": subs,
		"count":         len(categories),
	})
}

// ListTransactions handles GET /api/transactions. Optional account_id narrows
// the result.
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.svc.GetTransactions(r.Context())
	if err != nil {
		writeFailure(w, r, "Failed to list transactions", err)
		return
	}

	if accountID := r.URL.Query().Get("account_id"); accountID != "" {
		filtered := txs[:0:0]
		for _, tx := range txs {
			if tx.AccountID == accountID {
				filtered = append(filtered, tx)
			}
		}
		txs = filtered
	}
	list(w, "transactions", txs)
}

// CreateTransaction handles POST /api/transactions
func (h *LedgerHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx domain.Transaction
	if !decode(w, r, &tx) {
		return
	}
	if !tx.Type.Valid() || tx.AccountID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "type must be IN or OUT and accountId is required")
		return
	}

	created, err := h.svc.AddTransaction(r.Context(), tx)
	if err != nil {
		writeFailure(w, r, "Failed to create transaction", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// ListMonthlyBalances handles GET /api/monthly-balances
func (h *LedgerHandler) ListMonthlyBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.svc.GetMonthlyBalances(r.Context())
	if err != nil {
		writeFailure(w, r, "Failed to list monthly balances", err)
		return
	}
	list(w, "monthlyBalances", balances)
}

// SaveMonthlyBalances handles PUT /api/monthly-balances
func (h *LedgerHandler) SaveMonthlyBalances(w http.ResponseWriter, r *http.Request) {
	var balances []domain.MonthlyBalance
	if !decode(w, r, &balances) {
		return
	}
	for _, b := range balances {
		if b.Month < 0 || b.Month > 11 || b.AccountID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "each balance needs an accountId and a month in 0..11")
			return
		}
	}
	if err := h.svc.SaveMonthlyBalances(r.Context(), balances); err != nil {
		writeFailure(w, r, "Failed to save monthly balances", err)
		return
	}
	list(w, "monthlyBalances", balances)
}

// ListJars handles GET /api/jars
func (h *LedgerHandler) ListJars(w http.ResponseWriter, r *http.Request) {
	jars, err := h.svc.GetJars(r.Context())
	if err != nil {
		writeFailure(w, r, "Failed to list jars", err)
		return
	}
	list(w, "jars", jars)
}

// SaveJars handles PUT /api/jars
func (h *LedgerHandler) SaveJars(w http.ResponseWriter, r *http.Request) {
	var jars []domain.Jar
	if !decode(w, r, &jars) {
		return
	}
	if err := h.svc.SaveJars(r.Context(), jars); err != nil {
		writeFailure(w, r, "Failed to save jars", err)
		return
	}
	list(w, "jars", jars)
}

// JarValues handles GET /api/jars/value
func (h *LedgerHandler) JarValues(w http.ResponseWriter, r *http.Request) {
	values, err := h.svc.JarValues(r.Context())
	if err != nil {
		writeFailure(w, r, "Failed to value jars", err)
		return
	}
	list(w, "jars", values)
}

// ListRules handles GET /api/rules
func (h *LedgerHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.svc.GetRules(r.Context())
	if err != nil {
		writeFailure(w, r, "Failed to list rules", err)
		return
	}
	list(w, "rules", rules)
}

// SaveRules handles PUT /api/rules
func (h *LedgerHandler) SaveRules(w http.ResponseWriter, r *http.Request) {
	var rules []domain.TextCategoryRule
	if !decode(w, r, &rules) {
		return
	}
	if err := h.svc.SaveRules(r.Context(), rules); err != nil {
		writeFailure(w, r, "Failed to save rules", err)
		return
	}
	list(w, "rules", rules)
}

// ListBudget handles GET /api/budget
func (h *LedgerHandler) ListBudget(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.GetBudgetItems(r.Context())
	if err != nil {
		writeFailure(w, r, "Failed to list budget", err)
		return
	}
	list(w, "budget", items)
}

// SaveBudget handles PUT /api/budget
func (h *LedgerHandler) SaveBudget(w http.ResponseWriter, r *http.Request) {
	var items []domain.BudgetItem
	if !decode(w, r, &items) {
		return
	}
	if err := h.svc.SaveBudgetItems(r.Context(), items); err != nil {
		writeFailure(w, r, "Failed to save budget", err)
		return
	}
	list(w, "budget", items)
}

// PeriodStates handles GET /api/periods/{year}/{month}. The month in the
// path is 1..12.
func (h *LedgerHandler) PeriodStates(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid year")
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid month, expected 1..12")
		return
	}

	view, err := h.svc.PeriodStates(r.Context(), month-1, year)
	if err != nil {
		writeFailure(w, r, "Failed to compute period", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, view)
}

// Export handles GET /api/export
func (h *LedgerHandler) Export(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.ExportAllData(r.Context())
	if err != nil {
		writeFailure(w, r, "Failed to export", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="finanzaflow_db_v2.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// Import handles POST /api/import. The body is an export document.
func (h *LedgerHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if err := h.svc.ImportAllData(r.Context(), body); err != nil {
		writeFailure(w, r, "Failed to import", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}
