package reports

import (
	"math"
	"sort"
)

// BalanceSheetLine is one account's balance in natural sign for its side of
// the statement.
type BalanceSheetLine struct {
	AccountID int64   `json:"accountId"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Amount    float64 `json:"amount"`
}

// BalanceSheetSection groups lines with a subtotal.
type BalanceSheetSection struct {
	Lines []BalanceSheetLine `json:"lines"`
	Total float64            `json:"total"`
}

// BalanceSheet is the statement of financial position as of a date. Equity
// includes retained earnings, the accumulated net profit of income, cost of
// goods sold, and expense accounts.
type BalanceSheet struct {
	Assets           BalanceSheetSection `json:"assets"`
	Liabilities      BalanceSheetSection `json:"liabilities"`
	Equity           BalanceSheetSection `json:"equity"`
	RetainedEarnings float64             `json:"retainedEarnings"`
	Balanced         bool                `json:"balanced"`
}

const identityTolerance = 1e-6

// BuildBalanceSheet splits balances into assets, liabilities, and equity.
// Liability and equity accounts carry credit balances, so the sign is flipped.
// Profit-and-loss account balances fold into retained earnings so the
// accounting identity holds at any cutoff date.
func BuildBalanceSheet(accounts []AccountBalance) BalanceSheet {
	var bs BalanceSheet
	for _, acc := range accounts {
		switch acc.Category {
		case "ASSET":
			appendBSLine(&bs.Assets, acc, acc.Balance())
		case "LIABILITY":
			appendBSLine(&bs.Liabilities, acc, -acc.Balance())
		case "EQUITY":
			appendBSLine(&bs.Equity, acc, -acc.Balance())
		case "INCOME", "COGS", "EXPENSE":
			bs.RetainedEarnings -= acc.Balance()
		}
	}
	sortBSSection(&bs.Assets)
	sortBSSection(&bs.Liabilities)
	sortBSSection(&bs.Equity)
	equity := bs.Equity.Total + bs.RetainedEarnings
	bs.Balanced = math.Abs(bs.Assets.Total-bs.Liabilities.Total-equity) < identityTolerance
	return bs
}

func appendBSLine(section *BalanceSheetSection, acc AccountBalance, amount float64) {
	section.Lines = append(section.Lines, BalanceSheetLine{
		AccountID: acc.AccountID,
		Code:      acc.Code,
		Name:      acc.Name,
		Amount:    amount,
	})
	section.Total += amount
}

func sortBSSection(section *BalanceSheetSection) {
	sort.Slice(section.Lines, func(i, j int) bool {
		return section.Lines[i].Code < section.Lines[j].Code
	})
}
