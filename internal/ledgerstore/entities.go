package ledgerstore

import (
	"encoding/json"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// KeyPrefix namespaces every entity key in the blob store.
const KeyPrefix = "ff_v2_"

// Credential keys live next to the data but are never exported.
const (
	TokenKey    = "ff_google_token"
	ClientIDKey = "ff_google_client_id"
)

// Entity names one persisted collection.
type Entity string

const (
	AccountTypes    Entity = "account_types"
	Accounts        Entity = "accounts"
	MonthlyBalances Entity = "monthly_balances"
	Categories      Entity = "categories"
	SubCategories   Entity = "subcategories"
	Transactions    Entity = "transactions"
	Budget          Entity = "budget"
	Jars            Entity = "jars"
	Rules           Entity = "rules"
)

// Entities lists every collection in export order.
var Entities = []Entity{
	AccountTypes,
	Accounts,
	MonthlyBalances,
	Categories,
	SubCategories,
	Transactions,
	Budget,
	Jars,
	Rules,
}

// Key returns the blob store key for e.
func (e Entity) Key() string {
	return KeyPrefix + string(e)
}

// EntityForKey resolves a blob store key back to its entity.
func EntityForKey(key string) (Entity, bool) {
	for _, e := range Entities {
		if e.Key() == key {
			return e, true
		}
	}
	return "", false
}

// validate decodes raw into the entity's record type and reports whether it
// is a well-formed collection.
func (e Entity) validate(raw []byte) error {
	switch e {
	case AccountTypes:
		return decodeInto[domain.AccountType](raw)
	case Accounts:
		return decodeInto[domain.Account](raw)
	case MonthlyBalances:
		return decodeInto[domain.MonthlyBalance](raw)
	case Categories:
		return decodeInto[domain.Category](raw)
	case SubCategories:
		return decodeInto[domain.SubCategory](raw)
	case Transactions:
		return decodeInto[domain.Transaction](raw)
	case Budget:
		return decodeInto[domain.BudgetItem](raw)
	case Jars:
		return decodeInto[domain.Jar](raw)
	case Rules:
		return decodeInto[domain.TextCategoryRule](raw)
	}
	return nil
}

func decodeInto[T any](raw []byte) error {
	var out []T
	return json.Unmarshal(raw, &out)
}
