package ledgerstore

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// The starter dataset written on first read of an empty store.

func seedAccountTypes() []domain.AccountType {
	return []domain.AccountType{
		{ID: "type_cash", Name: "EFECTIVO", IncludeInCashflow: true, IsActive: true, Description: "Dinero físico"},
		{ID: "type_bank", Name: "BANCO", IncludeInCashflow: true, IsActive: true, Description: "Cuentas bancarias (CBU)"},
		{ID: "type_wallet", Name: "BILLETERA VIRTUAL", IncludeInCashflow: true, IsActive: true, Description: "MercadoPago, Naranja X, etc (CVU)"},
		{ID: "type_invest", Name: "INVERSIÓN", IncludeInCashflow: false, IsActive: true, Description: "Fondos no líquidos inmediatos"},
	}
}

func seedAccounts() []domain.Account {
	return []domain.Account{
		{ID: "acc_1", Name: "EFECTIVO", AccountTypeID: "type_cash", Currency: "ARS", IsActive: true},
		{ID: "acc_3", Name: "CTA CP", AccountTypeID: "type_bank", Currency: "ARS", IsActive: true},
		{ID: "acc_8", Name: "CTA. MERCP", AccountTypeID: "type_wallet", Currency: "ARS", IsActive: true},
	}
}

func seedCategories() []domain.Category {
	out := domain.TransactionTypeOut
	return []domain.Category{
		{ID: "1", Name: "AHORRO", Type: out},
		{ID: "2", Name: "ALIMENTOS", Type: out},
		{ID: "3", Name: "ALQUILER", Type: out},
		{ID: "4", Name: "COMIDA", Type: out},
		{ID: "5", Name: "EDUCACIÓN", Type: out},
		{ID: "7", Name: "INGRESOS", Type: domain.TransactionTypeIn},
		{ID: "12", Name: "SERVICIOS", Type: out},
		{ID: "13", Name: "SUSCRIPCIONES", Type: out},
		{ID: "15", Name: "VIÁTICOS", Type: out},
	}
}

func seedTransactions() []domain.Transaction {
	in, out := domain.TransactionTypeIn, domain.TransactionTypeOut
	tx := func(id string, month time.Month, day int, cat, desc string, amount int64, typ domain.TransactionType, acc string) domain.Transaction {
		return domain.Transaction{
			ID:          id,
			Date:        civil.Date{Year: 2024, Month: month, Day: day},
			CategoryID:  cat,
			Description: desc,
			Amount:      decimal.NewFromInt(amount),
			Type:        typ,
			AccountID:   acc,
		}
	}
	return []domain.Transaction{
		tx("t_oct_1", time.October, 1, "7", "Sueldo Octubre", 850000, in, "acc_3"),
		tx("t_oct_2", time.October, 5, "3", "Alquiler Depto", 250000, out, "acc_3"),
		tx("t_oct_3", time.October, 10, "12", "Expensas Oct", 45000, out, "acc_3"),
		tx("t_oct_4", time.October, 12, "2", "Compra Carcor", 85000, out, "acc_8"),
		tx("t_oct_5", time.October, 20, "4", "Cena Amigos", 15000, out, "acc_1"),

		tx("t_nov_1", time.November, 1, "7", "Sueldo Noviembre", 850000, in, "acc_3"),
		tx("t_nov_2", time.November, 5, "3", "Alquiler Depto (Ajuste)", 280000, out, "acc_3"),
		tx("t_nov_3", time.November, 8, "13", "Netflix", 8500, out, "acc_8"),
		tx("t_nov_4", time.November, 15, "2", "Supermercado Vea", 110000, out, "acc_8"),
		tx("t_nov_5", time.November, 22, "15", "Carga SUBE", 5000, out, "acc_1"),
		tx("t_nov_6", time.November, 25, "4", "Delivery PedidosYa", 12500, out, "acc_8"),
	}
}

func seedMonthlyBalances() []domain.MonthlyBalance {
	return []domain.MonthlyBalance{
		{ID: "b_oct_3", AccountID: "acc_3", Year: 2024, Month: 9, Amount: decimal.NewFromInt(120000)},
		{ID: "b_nov_3", AccountID: "acc_3", Year: 2024, Month: 10, Amount: decimal.NewFromInt(675000)},
		{ID: "b_dec_3", AccountID: "acc_3", Year: 2024, Month: 11, Amount: decimal.NewFromInt(1245000)},
	}
}

// seedFor returns the starter collection for e. Entities without a starter
// dataset seed as an empty array.
func seedFor(e Entity) any {
	switch e {
	case AccountTypes:
		return seedAccountTypes()
	case Accounts:
		return seedAccounts()
	case Categories:
		return seedCategories()
	case Transactions:
		return seedTransactions()
	case MonthlyBalances:
		return seedMonthlyBalances()
	}
	return []struct{}{}
}
