// Package bigquery implements the relational gateway on a BigQuery dataset.
// Writes go through DML so that rows are immediately updatable.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/relational"
	"google.golang.org/api/iterator"
)

// Gateway is a relational.Gateway backed by BigQuery. It holds one shared
// client for all operations.
type Gateway struct {
	client  *bigquery.Client
	project string
	dataset string
}

// NewGateway creates a client for project and targets dataset.
func NewGateway(ctx context.Context, project, dataset string) (*Gateway, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewGateway: creating client: %w", err)
	}
	return NewGatewayWithClient(client, project, dataset), nil
}

// NewGatewayWithClient wraps an existing client.
func NewGatewayWithClient(client *bigquery.Client, project, dataset string) *Gateway {
	return &Gateway{client: client, project: project, dataset: dataset}
}

// Client exposes the client for migrations.
func (g *Gateway) Client() *bigquery.Client { return g.client }

// Close closes the BigQuery client connection.
func (g *Gateway) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Table returns the fully qualified, backquoted name of table.
func (g *Gateway) Table(table string) string {
	return TableName(g.project, g.dataset, table)
}

// TableName formats `project.dataset.table`.
func TableName(project, dataset, table string) string {
	return "`" + project + "." + dataset + "." + table + "`"
}

// readAll runs q and decodes every row into T.
func readAll[T any](ctx context.Context, q *bigquery.Query) ([]T, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading query: %w", err)
	}

	var rows []T
	for {
		var r T
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating: %w", err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// exec runs a DML statement and waits for it.
func exec(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

func (g *Gateway) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	q := g.client.Query(`
		SELECT id, name, account_type_id, currency, is_active
		FROM ` + g.Table("accounts") + `
		ORDER BY name
	`)
	rows, err := readAll[AccountRow](ctx, q)
	if err != nil {
		return nil, relational.Unavailable("bigquery.list_accounts", err)
	}

	accounts := make([]domain.Account, 0, len(rows))
	for _, r := range rows {
		accounts = append(accounts, r.toDomain())
	}
	return accounts, nil
}

func (g *Gateway) InsertAccount(ctx context.Context, acc domain.Account) error {
	q := g.client.Query(`
		INSERT INTO ` + g.Table("accounts") + ` (id, name, account_type_id, currency, is_active)
		VALUES (@id, @name, @account_type_id, @currency, @is_active)
	`)
	q.Parameters = accountParams(acc)
	return relational.Unavailable("bigquery.insert_account", exec(ctx, q))
}

func (g *Gateway) UpdateAccount(ctx context.Context, acc domain.Account) error {
	q := g.client.Query(`
		UPDATE ` + g.Table("accounts") + `
		SET name = @name, account_type_id = @account_type_id, currency = @currency, is_active = @is_active
		WHERE id = @id
	`)
	q.Parameters = accountParams(acc)
	return relational.Unavailable("bigquery.update_account", exec(ctx, q))
}

func accountParams(acc domain.Account) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "id", Value: acc.ID},
		{Name: "name", Value: acc.Name},
		{Name: "account_type_id", Value: acc.AccountTypeID},
		{Name: "currency", Value: acc.Currency},
		{Name: "is_active", Value: acc.IsActive},
	}
}

func (g *Gateway) DeleteAccount(ctx context.Context, id string) error {
	q := g.client.Query(`DELETE FROM ` + g.Table("accounts") + ` WHERE id = @id`)
	q.Parameters = []bigquery.QueryParameter{{Name: "id", Value: id}}
	return relational.Unavailable("bigquery.delete_account", exec(ctx, q))
}

func (g *Gateway) ListAccountTypes(ctx context.Context) ([]domain.AccountType, error) {
	q := g.client.Query(`
		SELECT id, name, include_in_cashflow, is_active, description
		FROM ` + g.Table("account_types") + `
		ORDER BY name
	`)
	rows, err := readAll[AccountTypeRow](ctx, q)
	if err != nil {
		return nil, relational.Unavailable("bigquery.list_account_types", err)
	}

	types := make([]domain.AccountType, 0, len(rows))
	for _, r := range rows {
		types = append(types, r.toDomain())
	}
	return types, nil
}

func (g *Gateway) ListCategories(ctx context.Context) ([]domain.Category, error) {
	q := g.client.Query(`SELECT id, name, type FROM ` + g.Table("categories") + ` ORDER BY name`)
	rows, err := readAll[CategoryRow](ctx, q)
	if err != nil {
		return nil, relational.Unavailable("bigquery.list_categories", err)
	}

	cats := make([]domain.Category, 0, len(rows))
	for _, r := range rows {
		cats = append(cats, domain.Category{ID: r.ID, Name: r.Name, Type: domain.TransactionType(r.Type)})
	}
	return cats, nil
}

func (g *Gateway) ListSubCategories(ctx context.Context) ([]domain.SubCategory, error) {
	q := g.client.Query(`SELECT id, category_id, name, type FROM ` + g.Table("sub_categories") + ` ORDER BY name`)
	rows, err := readAll[SubCategoryRow](ctx, q)
	if err != nil {
		return nil, relational.Unavailable("bigquery.list_sub_categories", err)
	}

	subs := make([]domain.SubCategory, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, domain.SubCategory{
			ID: r.ID, CategoryID: r.CategoryID.StringVal, Name: r.Name, Type: domain.TransactionType(r.Type),
		})
	}
	return subs, nil
}

func (g *Gateway) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	q := g.client.Query(`
		SELECT id, date, description, amount, type, account_id, category_id
		FROM ` + g.Table("transactions") + `
		ORDER BY date DESC, id
	`)
	rows, err := readAll[TransactionRow](ctx, q)
	if err != nil {
		return nil, relational.Unavailable("bigquery.list_transactions", err)
	}

	txs := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		tx, err := r.toDomain()
		if err != nil {
			return nil, relational.Unavailable("bigquery.list_transactions", err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (g *Gateway) InsertTransaction(ctx context.Context, tx domain.Transaction) error {
	q := g.client.Query(`
		INSERT INTO ` + g.Table("transactions") + ` (id, date, description, amount, type, account_id, category_id)
		VALUES (@id, @date, @description, @amount, @type, @account_id, @category_id)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: tx.ID},
		{Name: "date", Value: tx.Date},
		{Name: "description", Value: tx.Description},
		{Name: "amount", Value: tx.Amount.Rat()},
		{Name: "type", Value: string(tx.Type)},
		{Name: "account_id", Value: tx.AccountID},
		{Name: "category_id", Value: tx.CategoryID},
	}
	return relational.Unavailable("bigquery.insert_transaction", exec(ctx, q))
}

// listMonthlyBalancesSQL ends with id so duplicate checkpoints for one
// account and month always come back in the same order.
func listMonthlyBalancesSQL(table string) string {
	return `
		SELECT id, account_id, year, month, amount
		FROM ` + table + `
		ORDER BY year, month, account_id, id
	`
}

func (g *Gateway) ListMonthlyBalances(ctx context.Context) ([]domain.MonthlyBalance, error) {
	q := g.client.Query(listMonthlyBalancesSQL(g.Table("monthly_balances")))
	rows, err := readAll[MonthlyBalanceRow](ctx, q)
	if err != nil {
		return nil, relational.Unavailable("bigquery.list_monthly_balances", err)
	}

	balances := make([]domain.MonthlyBalance, 0, len(rows))
	for _, r := range rows {
		b, err := r.toDomain()
		if err != nil {
			return nil, relational.Unavailable("bigquery.list_monthly_balances", err)
		}
		balances = append(balances, b)
	}
	return balances, nil
}

// ReplaceMonthlyBalances deletes and re-inserts the table inside one
// multi-statement transaction.
func (g *Gateway) ReplaceMonthlyBalances(ctx context.Context, balances []domain.MonthlyBalance) error {
	rows := make([]MonthlyBalanceRow, 0, len(balances))
	for _, b := range balances {
		rows = append(rows, monthlyBalanceRow(b))
	}

	table := g.Table("monthly_balances")
	q := g.client.Query(`
		BEGIN TRANSACTION;
		DELETE FROM ` + table + ` WHERE TRUE;
		INSERT INTO ` + table + ` (id, account_id, year, month, amount)
		SELECT id, account_id, year, month, amount FROM UNNEST(@rows);
		COMMIT TRANSACTION;
	`)
	q.Parameters = []bigquery.QueryParameter{{Name: "rows", Value: rows}}
	return relational.Unavailable("bigquery.replace_monthly_balances", exec(ctx, q))
}
