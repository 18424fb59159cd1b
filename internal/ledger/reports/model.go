package reports

// AccountBalance is a ledger account with debit/credit sums aggregated over a
// date range. Category is the account's chart category, except that accounts
// mapped as cost-of-goods accounts surface as "COGS" so the profit & loss can
// segregate them.
type AccountBalance struct {
	AccountID int64
	Code      string
	Name      string
	Category  string
	Debit     float64
	Credit    float64
}

// Balance computes the debit-normal balance for the account.
func (a AccountBalance) Balance() float64 {
	return a.Debit - a.Credit
}

// LocationRevenue is one row of the revenue-by-location report.
type LocationRevenue struct {
	LocationID   int64   `json:"locationId"`
	LocationName string  `json:"locationName"`
	Revenue      float64 `json:"revenue"`
}
