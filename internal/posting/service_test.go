package posting

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/glowdesk/internal/catalog/products"
	"github.com/glowdesk/glowdesk/internal/inventory"
	"github.com/glowdesk/glowdesk/internal/ledger/journals"
	"github.com/glowdesk/glowdesk/internal/ledger/mappings"
	ledgershared "github.com/glowdesk/glowdesk/internal/ledger/shared"
	internalshared "github.com/glowdesk/glowdesk/internal/shared"
)

// Account ids used across the fixtures.
const (
	accAR        = int64(1)
	accRevenue   = int64(2)
	accCOGS      = int64(3)
	accInventory = int64(4)
	accAP        = int64(5)
	accBank      = int64(6)
	accGain      = int64(9)
	accLoss      = int64(10)
)

type memoryStore struct {
	invoices  map[int64]SalesInvoice
	bills     map[int64]PurchaseBill
	payments  map[int64]Payment
	movements map[int64]inventory.StockMovement
	levels    map[int64]inventory.StockLevel
	entries   map[int64]journals.JournalEntry
	entryLine map[int64][]journals.PostingLineInput
	links     map[string]int64
	keys      map[string]int64
	mappings  map[string]int64
	products  map[int64]products.Product
	nextID    int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		invoices:  map[int64]SalesInvoice{},
		bills:     map[int64]PurchaseBill{},
		payments:  map[int64]Payment{},
		movements: map[int64]inventory.StockMovement{},
		levels:    map[int64]inventory.StockLevel{},
		entries:   map[int64]journals.JournalEntry{},
		entryLine: map[int64][]journals.PostingLineInput{},
		links:     map[string]int64{},
		keys:      map[string]int64{},
		mappings: map[string]int64{
			mappings.ModuleSales + "/" + mappings.KeySalesReceivable:         accAR,
			mappings.ModuleSales + "/" + mappings.KeySalesRevenue:            accRevenue,
			mappings.ModuleSales + "/" + mappings.KeySalesCOGS:               accCOGS,
			mappings.ModuleSales + "/" + mappings.KeySalesInventory:          accInventory,
			mappings.ModulePurchase + "/" + mappings.KeyPurchaseInventory:    accInventory,
			mappings.ModulePurchase + "/" + mappings.KeyPurchasePayable:      accAP,
			mappings.ModulePayment + "/" + mappings.KeyPaymentAR:             accAR,
			mappings.ModulePayment + "/" + mappings.KeyPaymentAP:             accAP,
			mappings.ModuleInventory + "/" + mappings.KeyAdjustmentInventory: accInventory,
			mappings.ModuleInventory + "/" + mappings.KeyAdjustmentGain:      accGain,
			mappings.ModuleInventory + "/" + mappings.KeyAdjustmentLoss:      accLoss,
		},
		products: map[int64]products.Product{
			100: {ID: 100, Code: "SHMP-01", Name: "Shampoo", Price: 50, Cost: 20, IsActive: true},
			101: {ID: 101, Code: "COND-01", Name: "Conditioner", Price: 12, Cost: 5, IsActive: true},
		},
	}
}

func (s *memoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

// Repository

func (s *memoryStore) GetSalesInvoice(ctx context.Context, id int64) (SalesInvoice, error) {
	inv, ok := s.invoices[id]
	if !ok {
		return SalesInvoice{}, ErrDocumentNotFound
	}
	return inv, nil
}

func (s *memoryStore) GetPurchaseBill(ctx context.Context, id int64) (PurchaseBill, error) {
	bill, ok := s.bills[id]
	if !ok {
		return PurchaseBill{}, ErrDocumentNotFound
	}
	return bill, nil
}

func (s *memoryStore) GetPayment(ctx context.Context, id int64) (Payment, error) {
	p, ok := s.payments[id]
	if !ok {
		return Payment{}, ErrDocumentNotFound
	}
	return p, nil
}

func (s *memoryStore) GetMovement(ctx context.Context, id int64) (inventory.StockMovement, error) {
	m, ok := s.movements[id]
	if !ok {
		return inventory.StockMovement{}, ErrDocumentNotFound
	}
	return m, nil
}

type snapshot struct {
	invoices  map[int64]SalesInvoice
	bills     map[int64]PurchaseBill
	payments  map[int64]Payment
	movements map[int64]inventory.StockMovement
	levels    map[int64]inventory.StockLevel
	entries   map[int64]journals.JournalEntry
	entryLine map[int64][]journals.PostingLineInput
	links     map[string]int64
	keys      map[string]int64
	nextID    int64
}

func (s *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snap := snapshot{
		invoices:  maps.Clone(s.invoices),
		bills:     maps.Clone(s.bills),
		payments:  maps.Clone(s.payments),
		movements: maps.Clone(s.movements),
		levels:    maps.Clone(s.levels),
		entries:   maps.Clone(s.entries),
		entryLine: maps.Clone(s.entryLine),
		links:     maps.Clone(s.links),
		keys:      maps.Clone(s.keys),
		nextID:    s.nextID,
	}
	if err := fn(ctx, &memoryTx{store: s}); err != nil {
		s.invoices, s.bills, s.payments = snap.invoices, snap.bills, snap.payments
		s.movements, s.levels = snap.movements, snap.levels
		s.entries, s.entryLine = snap.entries, snap.entryLine
		s.links, s.keys, s.nextID = snap.links, snap.keys, snap.nextID
		return err
	}
	return nil
}

// MappingSource

func (s *memoryStore) Get(ctx context.Context, module, key string) (mappings.AccountMapping, error) {
	id, ok := s.mappings[module+"/"+key]
	if !ok {
		return mappings.AccountMapping{}, fmt.Errorf("%w: %s/%s", ledgershared.ErrMappingNotFound, module, key)
	}
	return mappings.AccountMapping{Module: module, Key: key, AccountID: id}, nil
}

// KeyIndex

func (s *memoryStore) Lookup(ctx context.Context, key, module string) (int64, bool, error) {
	id, ok := s.keys[module+"/"+key]
	return id, ok, nil
}

type productSource struct{ store *memoryStore }

func (p productSource) Get(ctx context.Context, id int64) (products.Product, error) {
	prod, ok := p.store.products[id]
	if !ok {
		return products.Product{}, internalshared.ErrNotFound
	}
	return prod, nil
}

// TxRepository

type memoryTx struct{ store *memoryStore }

func (t *memoryTx) InsertSalesInvoice(ctx context.Context, inv SalesInvoice) (SalesInvoice, error) {
	inv.ID = t.store.id()
	for i := range inv.Items {
		inv.Items[i].ID = t.store.id()
		inv.Items[i].InvoiceID = inv.ID
	}
	t.store.invoices[inv.ID] = inv
	return inv, nil
}

func (t *memoryTx) InsertPurchaseBill(ctx context.Context, bill PurchaseBill) (PurchaseBill, error) {
	bill.ID = t.store.id()
	for i := range bill.Items {
		bill.Items[i].ID = t.store.id()
		bill.Items[i].BillID = bill.ID
	}
	t.store.bills[bill.ID] = bill
	return bill, nil
}

func (t *memoryTx) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	p.ID = t.store.id()
	t.store.payments[p.ID] = p
	return p, nil
}

func (t *memoryTx) MarkPosted(ctx context.Context, table string, documentID, entryID int64) error {
	switch table {
	case TableSalesInvoices:
		inv, ok := t.store.invoices[documentID]
		if !ok {
			return ErrDocumentNotFound
		}
		inv.Status = StatusPosted
		inv.PostedEntryID = &entryID
		t.store.invoices[documentID] = inv
	case TablePurchaseBills:
		bill, ok := t.store.bills[documentID]
		if !ok {
			return ErrDocumentNotFound
		}
		bill.Status = StatusPosted
		bill.PostedEntryID = &entryID
		t.store.bills[documentID] = bill
	case TablePayments:
		p, ok := t.store.payments[documentID]
		if !ok {
			return ErrDocumentNotFound
		}
		p.Status = StatusPosted
		p.JournalEntryID = &entryID
		t.store.payments[documentID] = p
	}
	return nil
}

func (t *memoryTx) ClaimKey(ctx context.Context, key, module string, entityID int64) error {
	composite := module + "/" + key
	if _, ok := t.store.keys[composite]; ok {
		return ErrKeyClaimed
	}
	t.store.keys[composite] = entityID
	return nil
}

func (t *memoryTx) Journal() journals.TxRepository { return journalTx{store: t.store} }
func (t *memoryTx) Stock() inventory.TxRepository  { return stockTx{store: t.store} }

type journalTx struct{ store *memoryStore }

func (j journalTx) InsertEntry(ctx context.Context, in journals.PostingInput) (journals.JournalEntry, error) {
	entry := journals.JournalEntry{
		ID:            j.store.id(),
		Date:          in.Date,
		Memo:          in.Memo,
		Posted:        true,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		CreatedBy:     in.CreatedBy,
	}
	j.store.entries[entry.ID] = entry
	return entry, nil
}

func (j journalTx) InsertLines(ctx context.Context, entryID int64, lines []journals.PostingLineInput) error {
	j.store.entryLine[entryID] = append(j.store.entryLine[entryID], lines...)
	return nil
}

func (j journalTx) EnsureAccounts(ctx context.Context, accountIDs []int64) error {
	for _, id := range accountIDs {
		if id <= 0 || id > 20 {
			return fmt.Errorf("%w: account %d", ledgershared.ErrAccountNotFound, id)
		}
	}
	return nil
}

func (j journalTx) LinkSource(ctx context.Context, refType journals.ReferenceType, refID uuid.UUID, entryID int64) error {
	composite := string(refType) + "/" + refID.String()
	if _, ok := j.store.links[composite]; ok {
		return ledgershared.ErrSourceConflict
	}
	j.store.links[composite] = entryID
	return nil
}

type stockTx struct{ store *memoryStore }

func (s stockTx) InsertMovement(ctx context.Context, m inventory.StockMovement) (int64, error) {
	m.ID = s.store.id()
	s.store.movements[m.ID] = m
	return m.ID, nil
}

func (s stockTx) LinkMovementEntry(ctx context.Context, movementID, entryID int64) error {
	m, ok := s.store.movements[movementID]
	if !ok {
		return inventory.ErrInvalidMovement
	}
	m.JournalEntryID = &entryID
	s.store.movements[movementID] = m
	return nil
}

func (s stockTx) ApplyLevelDelta(ctx context.Context, productID int64, quantityDelta, valueDelta float64) error {
	lvl := s.store.levels[productID]
	lvl.ProductID = productID
	lvl.Quantity += quantityDelta
	lvl.Value += valueDelta
	s.store.levels[productID] = lvl
	return nil
}

func (s stockTx) EnsureProducts(ctx context.Context, productIDs []int64) error {
	for _, id := range productIDs {
		if _, ok := s.store.products[id]; !ok {
			return fmt.Errorf("%w: product %d", inventory.ErrProductNotFound, id)
		}
	}
	return nil
}

func newTestService(store *memoryStore) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, store, store, productSource{store: store}, store, nil)
}

var testActor = internalshared.Identity{UserID: 7, Name: "front desk"}

func testDate() time.Time {
	return time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
}

func TestPostSalesInvoice(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	invoice, err := svc.PostSalesInvoice(context.Background(), testActor, SalesInvoiceInput{
		Number: "INV-1001",
		Date:   testDate(),
		Post:   true,
		Items:  []SalesItemInput{{ProductID: 100, Quantity: 2, UnitPrice: 50}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPosted, invoice.Status)
	require.Equal(t, float64(100), invoice.Total)
	require.NotNil(t, invoice.PostedEntryID)
	require.Equal(t, float64(20), invoice.Items[0].UnitCost)

	lines := store.entryLine[*invoice.PostedEntryID]
	require.Len(t, lines, 4)
	require.Equal(t, accAR, lines[0].AccountID)
	require.Equal(t, float64(100), lines[0].Debit)
	require.Equal(t, accRevenue, lines[1].AccountID)
	require.Equal(t, float64(100), lines[1].Credit)
	require.Equal(t, accCOGS, lines[2].AccountID)
	require.Equal(t, float64(40), lines[2].Debit)
	require.Equal(t, accInventory, lines[3].AccountID)
	require.Equal(t, float64(40), lines[3].Credit)

	require.Len(t, store.movements, 1)
	for _, m := range store.movements {
		require.Equal(t, inventory.MovementOut, m.Type)
		require.Equal(t, float64(2), m.Quantity)
		require.Equal(t, float64(20), m.CostPerUnit)
		require.Equal(t, invoice.PostedEntryID, m.JournalEntryID)
	}
	require.Equal(t, float64(-2), store.levels[100].Quantity)
	require.Equal(t, float64(-40), store.levels[100].Value)
}

func TestSalesInvoiceDraftHasNoSideEffects(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	invoice, err := svc.PostSalesInvoice(context.Background(), testActor, SalesInvoiceInput{
		Number: "INV-1002",
		Date:   testDate(),
		Post:   false,
		Items:  []SalesItemInput{{ProductID: 100, Quantity: 1, UnitPrice: 30}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, invoice.Status)
	require.Nil(t, invoice.PostedEntryID)
	require.Empty(t, store.entries)
	require.Empty(t, store.movements)
	require.Empty(t, store.levels)
}

func TestSalesInvoiceIdempotentReplay(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	input := SalesInvoiceInput{
		Number:         "INV-1003",
		Date:           testDate(),
		Post:           true,
		IdempotencyKey: "ios-retry-42",
		Items:          []SalesItemInput{{ProductID: 100, Quantity: 1, UnitPrice: 50}},
	}

	first, err := svc.PostSalesInvoice(context.Background(), testActor, input)
	require.NoError(t, err)

	second, err := svc.PostSalesInvoice(context.Background(), testActor, input)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, store.invoices, 1)
	require.Len(t, store.entries, 1)
	require.Len(t, store.movements, 1)
}

func TestSalesInvoiceRevenueOverride(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	override := int64(12)

	invoice, err := svc.PostSalesInvoice(context.Background(), testActor, SalesInvoiceInput{
		Number:           "INV-1004",
		Date:             testDate(),
		Post:             true,
		RevenueAccountID: &override,
		Items:            []SalesItemInput{{ProductID: 100, Quantity: 1, UnitPrice: 50}},
	})
	require.NoError(t, err)
	lines := store.entryLine[*invoice.PostedEntryID]
	require.Equal(t, override, lines[1].AccountID)
}

func TestSalesInvoiceUnknownProduct(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	_, err := svc.PostSalesInvoice(context.Background(), testActor, SalesInvoiceInput{
		Number: "INV-1005",
		Date:   testDate(),
		Post:   true,
		Items:  []SalesItemInput{{ProductID: 999, Quantity: 1, UnitPrice: 10}},
	})
	require.ErrorIs(t, err, ledgershared.ErrInvalidInput)
	require.Empty(t, store.invoices)
}

func TestSalesInvoiceMissingMappingRollsBack(t *testing.T) {
	store := newMemoryStore()
	delete(store.mappings, mappings.ModuleSales+"/"+mappings.KeySalesReceivable)
	svc := newTestService(store)

	_, err := svc.PostSalesInvoice(context.Background(), testActor, SalesInvoiceInput{
		Number: "INV-1006",
		Date:   testDate(),
		Post:   true,
		Items:  []SalesItemInput{{ProductID: 100, Quantity: 1, UnitPrice: 50}},
	})
	require.ErrorIs(t, err, ledgershared.ErrMappingNotFound)
	require.Empty(t, store.invoices)
	require.Empty(t, store.entries)
	require.Empty(t, store.movements)
}

func TestPostPurchaseBill(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	bill, err := svc.PostPurchaseBill(context.Background(), testActor, PurchaseBillInput{
		Number:       "BILL-2001",
		SupplierName: "Beauty Supply Co",
		Date:         testDate(),
		Post:         true,
		Items:        []PurchaseItemInput{{ProductID: 101, Quantity: 10, UnitCost: 5}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPosted, bill.Status)
	require.Equal(t, float64(50), bill.Total)

	lines := store.entryLine[*bill.PostedEntryID]
	require.Len(t, lines, 2)
	require.Equal(t, accInventory, lines[0].AccountID)
	require.Equal(t, float64(50), lines[0].Debit)
	require.Equal(t, accAP, lines[1].AccountID)
	require.Equal(t, float64(50), lines[1].Credit)

	require.Equal(t, float64(10), store.levels[101].Quantity)
	require.Equal(t, float64(50), store.levels[101].Value)
	for _, m := range store.movements {
		require.Equal(t, inventory.MovementIn, m.Type)
	}
}

func TestPurchaseBillSubCentCostsBalance(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	bill, err := svc.PostPurchaseBill(context.Background(), testActor, PurchaseBillInput{
		Number:       "BILL-2002",
		SupplierName: "Bulk Wholesale",
		Date:         testDate(),
		Post:         true,
		Items: []PurchaseItemInput{
			{ProductID: 101, Quantity: 1, UnitCost: 0.125},
			{ProductID: 101, Quantity: 1, UnitCost: 0.125},
			{ProductID: 101, Quantity: 1, UnitCost: 0.125},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPosted, bill.Status)
	require.InDelta(t, 0.39, bill.Total, 1e-9)

	lines := store.entryLine[*bill.PostedEntryID]
	require.Len(t, lines, 4)
	var debits, credits float64
	for _, line := range lines {
		debits += line.Debit
		credits += line.Credit
	}
	require.InDelta(t, debits, credits, 1e-9)
	require.Equal(t, accAP, lines[3].AccountID)
	require.InDelta(t, 0.39, lines[3].Credit, 1e-9)
}

// staleProducts simulates a product visible to the pre-transaction snapshot
// read but already deleted by the time the posting transaction runs.
type staleProducts struct{}

func (staleProducts) Get(ctx context.Context, id int64) (products.Product, error) {
	return products.Product{ID: id, Code: "GONE", Name: "Ghost", Price: 10, Cost: 4, IsActive: true}, nil
}

func TestSalesInvoiceDeletedProductRollsBack(t *testing.T) {
	store := newMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(logger, store, store, staleProducts{}, store, nil)

	_, err := svc.PostSalesInvoice(context.Background(), testActor, SalesInvoiceInput{
		Number: "INV-1007",
		Date:   testDate(),
		Post:   true,
		Items:  []SalesItemInput{{ProductID: 999, Quantity: 1, UnitPrice: 10}},
	})
	require.ErrorIs(t, err, inventory.ErrProductNotFound)
	require.Empty(t, store.invoices)
	require.Empty(t, store.entries)
	require.Empty(t, store.movements)
}

func TestPostPaymentDirections(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	in, err := svc.PostPayment(context.Background(), testActor, PaymentInput{
		Direction:     PaymentIn,
		BankAccountID: accBank,
		Amount:        75,
		Date:          testDate(),
		Post:          true,
	})
	require.NoError(t, err)
	inLines := store.entryLine[*in.JournalEntryID]
	require.Len(t, inLines, 2)
	require.Equal(t, accBank, inLines[0].AccountID)
	require.Equal(t, float64(75), inLines[0].Debit)
	require.Equal(t, accAR, inLines[1].AccountID)
	require.Equal(t, float64(75), inLines[1].Credit)

	out, err := svc.PostPayment(context.Background(), testActor, PaymentInput{
		Direction:     PaymentOut,
		BankAccountID: accBank,
		Amount:        30,
		Date:          testDate(),
		Post:          true,
	})
	require.NoError(t, err)
	outLines := store.entryLine[*out.JournalEntryID]
	require.Equal(t, accAP, outLines[0].AccountID)
	require.Equal(t, float64(30), outLines[0].Debit)
	require.Equal(t, accBank, outLines[1].AccountID)
	require.Equal(t, float64(30), outLines[1].Credit)
}

func TestPostAdjustmentWriteDown(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	movement, err := svc.PostAdjustment(context.Background(), testActor, AdjustmentInput{
		ProductID: 101,
		Quantity:  -2,
		Date:      testDate(),
	})
	require.NoError(t, err)
	require.Equal(t, inventory.MovementAdjustment, movement.Type)
	require.NotNil(t, movement.JournalEntryID)

	lines := store.entryLine[*movement.JournalEntryID]
	require.Len(t, lines, 2)
	require.Equal(t, accLoss, lines[0].AccountID)
	require.Equal(t, float64(10), lines[0].Debit)
	require.Equal(t, accInventory, lines[1].AccountID)
	require.Equal(t, float64(10), lines[1].Credit)

	require.Equal(t, float64(-2), store.levels[101].Quantity)
	require.Equal(t, float64(-10), store.levels[101].Value)
}

func TestPostAdjustmentWriteUpUsesGain(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	cost := 8.0

	movement, err := svc.PostAdjustment(context.Background(), testActor, AdjustmentInput{
		ProductID:   101,
		Quantity:    3,
		CostPerUnit: &cost,
		Date:        testDate(),
	})
	require.NoError(t, err)
	lines := store.entryLine[*movement.JournalEntryID]
	require.Equal(t, accInventory, lines[0].AccountID)
	require.Equal(t, float64(24), lines[0].Debit)
	require.Equal(t, accGain, lines[1].AccountID)
	require.Equal(t, float64(24), lines[1].Credit)
	require.Equal(t, float64(3), store.levels[101].Quantity)
	require.Equal(t, float64(24), store.levels[101].Value)
}
