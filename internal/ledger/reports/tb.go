package reports

import "sort"

// TrialBalanceRow is one account's aggregate debit/credit/balance.
type TrialBalanceRow struct {
	AccountID int64   `json:"accountId"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Debit     float64 `json:"debit"`
	Credit    float64 `json:"credit"`
	Balance   float64 `json:"balance"`
}

// TrialBalanceTotals is the totals row; for a ledger of balanced entries the
// debit and credit totals always match.
type TrialBalanceTotals struct {
	Debit   float64 `json:"debit"`
	Credit  float64 `json:"credit"`
	Balance float64 `json:"balance"`
}

// TrialBalance is the structured trial balance report.
type TrialBalance struct {
	Rows   []TrialBalanceRow  `json:"rows"`
	Totals TrialBalanceTotals `json:"totals"`
}

// BuildTrialBalance converts aggregated balances into trial balance rows
// sorted by account code ascending.
func BuildTrialBalance(accounts []AccountBalance) TrialBalance {
	result := TrialBalance{Rows: make([]TrialBalanceRow, 0, len(accounts))}
	for _, acc := range accounts {
		row := TrialBalanceRow{
			AccountID: acc.AccountID,
			Code:      acc.Code,
			Name:      acc.Name,
			Category:  acc.Category,
			Debit:     acc.Debit,
			Credit:    acc.Credit,
			Balance:   acc.Balance(),
		}
		result.Rows = append(result.Rows, row)
		result.Totals.Debit += row.Debit
		result.Totals.Credit += row.Credit
		result.Totals.Balance += row.Balance
	}
	sort.Slice(result.Rows, func(i, j int) bool {
		return result.Rows[i].Code < result.Rows[j].Code
	})
	return result
}
