package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository aggregates journal lines for the report builders. The COGS
// category is not a chart-of-accounts category; accounts bound to a mapping
// key ending in ".cogs" surface under it so the income statement can
// segregate cost of goods sold.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountBalancesQuery = `
	SELECT a.id, a.code, a.name,
	       CASE WHEN EXISTS (
	           SELECT 1 FROM account_mappings m
	           WHERE m.account_id = a.id AND m.key LIKE '%.cogs'
	       ) THEN 'COGS' ELSE a.category END AS category,
	       COALESCE(SUM(l.debit), 0) AS debit,
	       COALESCE(SUM(l.credit), 0) AS credit
	FROM accounts a
	JOIN journal_lines l ON l.account_id = a.id
	JOIN journal_entries e ON e.id = l.entry_id
	WHERE e.posted AND e.entry_date >= $1 AND e.entry_date <= $2
	GROUP BY a.id, a.code, a.name, a.category
	HAVING COALESCE(SUM(l.debit), 0) <> 0 OR COALESCE(SUM(l.credit), 0) <> 0`

// AccountBalances sums posted debits and credits per account over the range,
// inclusive of both endpoints.
func (r *Repository) AccountBalances(ctx context.Context, from, to time.Time) ([]AccountBalance, error) {
	rows, err := r.pool.Query(ctx, accountBalancesQuery, from, to)
	if err != nil {
		return nil, fmt.Errorf("reports: query balances: %w", err)
	}
	defer rows.Close()

	var balances []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.AccountID, &b.Code, &b.Name, &b.Category, &b.Debit, &b.Credit); err != nil {
			return nil, fmt.Errorf("reports: scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

const revenueByLocationQuery = `
	SELECT loc.id, loc.name,
	       COALESCE(SUM(l.credit - l.debit), 0) AS revenue
	FROM journal_lines l
	JOIN journal_entries e ON e.id = l.entry_id
	JOIN accounts a ON a.id = l.account_id
	JOIN locations loc ON loc.id = l.location_id
	WHERE e.posted AND a.category = 'INCOME'
	  AND l.location_id IS NOT NULL
	  AND e.entry_date >= $1 AND e.entry_date <= $2
	GROUP BY loc.id, loc.name
	ORDER BY revenue DESC`

// RevenueByLocation sums income-account credits net of debits per location.
// Lines without a location are excluded.
func (r *Repository) RevenueByLocation(ctx context.Context, from, to time.Time) ([]LocationRevenue, error) {
	rows, err := r.pool.Query(ctx, revenueByLocationQuery, from, to)
	if err != nil {
		return nil, fmt.Errorf("reports: query revenue by location: %w", err)
	}
	defer rows.Close()

	var result []LocationRevenue
	for rows.Next() {
		var lr LocationRevenue
		if err := rows.Scan(&lr.LocationID, &lr.LocationName, &lr.Revenue); err != nil {
			return nil, fmt.Errorf("reports: scan revenue: %w", err)
		}
		result = append(result, lr)
	}
	return result, rows.Err()
}
