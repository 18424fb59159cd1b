package posting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glowdesk/glowdesk/internal/ledger/journals"
	"github.com/glowdesk/glowdesk/internal/ledger/mappings"
	ledgershared "github.com/glowdesk/glowdesk/internal/ledger/shared"
)

func TestRecipeBuild(t *testing.T) {
	store := newMemoryStore()
	recipe := Recipe{
		Date:          testDate(),
		Memo:          "Sales Invoice INV-1",
		ReferenceType: journals.ReferenceSalesInvoice,
		DocumentID:    42,
		Steps: []Step{
			{Account: AccountSelector{Module: mappings.ModuleSales, Key: mappings.KeySalesReceivable}, Side: Debit, Amount: 100},
			{Account: AccountSelector{AccountID: 12}, Side: Credit, Amount: 100},
			{Account: AccountSelector{Module: mappings.ModuleSales, Key: mappings.KeySalesCOGS}, Side: Debit, Amount: 0},
		},
	}

	input, err := recipe.Build(context.Background(), newMappingResolver(store))
	require.NoError(t, err)
	require.Equal(t, journals.SourceRef(journals.ReferenceSalesInvoice, 42), input.ReferenceID)
	require.Len(t, input.Lines, 2, "zero amount steps are dropped")
	require.Equal(t, accAR, input.Lines[0].AccountID)
	require.Equal(t, float64(100), input.Lines[0].Debit)
	require.Equal(t, int64(12), input.Lines[1].AccountID)
	require.Equal(t, float64(100), input.Lines[1].Credit)
	require.NoError(t, input.Validate())
}

func TestRecipeBuildRoundsToCents(t *testing.T) {
	store := newMemoryStore()
	recipe := Recipe{
		Date:          testDate(),
		ReferenceType: journals.ReferencePayment,
		DocumentID:    7,
		Steps: []Step{
			{Account: AccountSelector{AccountID: accBank}, Side: Debit, Amount: 33.333333},
			{Account: AccountSelector{Module: mappings.ModulePayment, Key: mappings.KeyPaymentAR}, Side: Credit, Amount: 33.333333},
		},
	}

	input, err := recipe.Build(context.Background(), newMappingResolver(store))
	require.NoError(t, err)
	require.Equal(t, 33.33, input.Lines[0].Debit)
	require.Equal(t, 33.33, input.Lines[1].Credit)
}

func TestRecipeBuildRejectsNegativeAmount(t *testing.T) {
	store := newMemoryStore()
	recipe := Recipe{
		Date:          testDate(),
		ReferenceType: journals.ReferenceManual,
		DocumentID:    1,
		Steps: []Step{
			{Account: AccountSelector{AccountID: accBank}, Side: Debit, Amount: -5, Description: "refund"},
		},
	}

	_, err := recipe.Build(context.Background(), newMappingResolver(store))
	require.ErrorIs(t, err, ledgershared.ErrInvalidInput)
}

func TestRecipeBuildUnknownMapping(t *testing.T) {
	store := newMemoryStore()
	recipe := Recipe{
		Date:          testDate(),
		ReferenceType: journals.ReferenceManual,
		DocumentID:    1,
		Steps: []Step{
			{Account: AccountSelector{Module: "SALES", Key: "sales.missing"}, Side: Debit, Amount: 10},
		},
	}

	_, err := recipe.Build(context.Background(), newMappingResolver(store))
	require.ErrorIs(t, err, ledgershared.ErrMappingNotFound)
}
