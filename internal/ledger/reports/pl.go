package reports

import "sort"

// ProfitAndLossLine is a single account's contribution to a section.
type ProfitAndLossLine struct {
	AccountID int64   `json:"accountId"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Amount    float64 `json:"amount"`
}

// ProfitAndLossSection groups lines under one heading with a subtotal.
type ProfitAndLossSection struct {
	Lines []ProfitAndLossLine `json:"lines"`
	Total float64             `json:"total"`
}

// ProfitAndLoss is the income statement. Cost of goods sold is carried in its
// own section so gross profit can be read off directly.
type ProfitAndLoss struct {
	Income      ProfitAndLossSection `json:"income"`
	COGS        ProfitAndLossSection `json:"cogs"`
	Expense     ProfitAndLossSection `json:"expense"`
	GrossProfit float64              `json:"grossProfit"`
	NetProfit   float64              `json:"netProfit"`
}

// BuildProfitAndLoss splits aggregated balances into income, cost of goods
// sold, and expense sections. Income accounts carry credit balances, so the
// sign is flipped to report revenue as a positive number.
func BuildProfitAndLoss(accounts []AccountBalance) ProfitAndLoss {
	var pl ProfitAndLoss
	for _, acc := range accounts {
		switch acc.Category {
		case "INCOME":
			appendLine(&pl.Income, acc, -acc.Balance())
		case "COGS":
			appendLine(&pl.COGS, acc, acc.Balance())
		case "EXPENSE":
			appendLine(&pl.Expense, acc, acc.Balance())
		}
	}
	sortSection(&pl.Income)
	sortSection(&pl.COGS)
	sortSection(&pl.Expense)
	pl.GrossProfit = pl.Income.Total - pl.COGS.Total
	pl.NetProfit = pl.GrossProfit - pl.Expense.Total
	return pl
}

func appendLine(section *ProfitAndLossSection, acc AccountBalance, amount float64) {
	section.Lines = append(section.Lines, ProfitAndLossLine{
		AccountID: acc.AccountID,
		Code:      acc.Code,
		Name:      acc.Name,
		Amount:    amount,
	})
	section.Total += amount
}

func sortSection(section *ProfitAndLossSection) {
	sort.Slice(section.Lines, func(i, j int) bool {
		return section.Lines[i].Code < section.Lines[j].Code
	})
}
