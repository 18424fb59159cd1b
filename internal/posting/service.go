package posting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/glowdesk/glowdesk/internal/catalog/products"
	"github.com/glowdesk/glowdesk/internal/inventory"
	"github.com/glowdesk/glowdesk/internal/ledger/journals"
	"github.com/glowdesk/glowdesk/internal/ledger/mappings"
	ledgershared "github.com/glowdesk/glowdesk/internal/ledger/shared"
	internalshared "github.com/glowdesk/glowdesk/internal/shared"
)

// ProductSource supplies product snapshots for cost and account overrides.
type ProductSource interface {
	Get(ctx context.Context, id int64) (products.Product, error)
}

// KeyIndex looks up previously processed idempotency keys.
type KeyIndex interface {
	Lookup(ctx context.Context, key, module string) (int64, bool, error)
}

// CacheInvalidator drops cached reports after a posting changes the ledger.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service turns business documents into balanced journal entries plus
// correlated stock movements, each document in exactly one transaction.
type Service struct {
	logger   *slog.Logger
	repo     Repository
	mappings MappingSource
	products ProductSource
	keys     KeyIndex
	cache    CacheInvalidator
}

func NewService(logger *slog.Logger, repo Repository, mappingSource MappingSource, productSource ProductSource, keys KeyIndex, cache CacheInvalidator) *Service {
	return &Service{
		logger:   logger,
		repo:     repo,
		mappings: mappingSource,
		products: productSource,
		keys:     keys,
		cache:    cache,
	}
}

// PostSalesInvoice persists the invoice and, when input.Post is set, emits
// four journal lines per item (receivable, revenue, cost of goods, inventory)
// and one OUT movement per item at the product's cost snapshot.
func (s *Service) PostSalesInvoice(ctx context.Context, actor internalshared.Identity, in SalesInvoiceInput) (SalesInvoice, error) {
	if err := in.Validate(); err != nil {
		return SalesInvoice{}, err
	}
	if existing, ok, err := s.replaySalesInvoice(ctx, in.IdempotencyKey); err != nil || ok {
		return existing, err
	}

	snapshots, err := s.loadProducts(ctx, salesProductIDs(in.Items))
	if err != nil {
		return SalesInvoice{}, err
	}
	inv := SalesInvoice{
		Number:           in.Number,
		CustomerName:     in.CustomerName,
		LocationID:       in.LocationID,
		Date:             in.Date,
		RevenueAccountID: in.RevenueAccountID,
		Status:           StatusDraft,
		CreatedBy:        actor.UserID,
	}
	for _, item := range in.Items {
		prod := snapshots[item.ProductID]
		desc := item.Description
		if desc == "" {
			desc = prod.Name
		}
		inv.Items = append(inv.Items, SalesInvoiceItem{
			ProductID:   item.ProductID,
			Description: desc,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			UnitCost:    prod.Cost,
		})
		// Line totals round individually on the journal side, so the invoice
		// total must be the sum of rounded lines, not a rounded raw sum.
		inv.Total += round2(item.Quantity * item.UnitPrice)
	}
	inv.Total = round2(inv.Total)

	var result SalesInvoice
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		// Re-check inside the transaction; a product deleted after the
		// snapshot read must roll the whole posting back.
		if err := tx.Stock().EnsureProducts(ctx, salesProductIDs(in.Items)); err != nil {
			return err
		}
		inserted, err := tx.InsertSalesInvoice(ctx, inv)
		if err != nil {
			return err
		}
		if in.IdempotencyKey != "" {
			if err := tx.ClaimKey(ctx, in.IdempotencyKey, ModuleSalesInvoice, inserted.ID); err != nil {
				return err
			}
		}
		if in.Post {
			if err := s.applySalesEffects(ctx, tx, &inserted, snapshots); err != nil {
				return err
			}
		}
		result = inserted
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrKeyClaimed) {
			existing, ok, lerr := s.replaySalesInvoice(ctx, in.IdempotencyKey)
			if lerr == nil && ok {
				return existing, nil
			}
		}
		return SalesInvoice{}, err
	}
	if in.Post {
		s.bump(ctx)
	}
	return result, nil
}

func (s *Service) applySalesEffects(ctx context.Context, tx TxRepository, inv *SalesInvoice, snapshots map[int64]products.Product) error {
	recipe := Recipe{
		Date:          inv.Date,
		Memo:          fmt.Sprintf("Sales Invoice %s", inv.Number),
		ReferenceType: journals.ReferenceSalesInvoice,
		DocumentID:    inv.ID,
		CreatedBy:     inv.CreatedBy,
	}
	for i := range inv.Items {
		item := inv.Items[i]
		prod := snapshots[item.ProductID]
		lineTotal := round2(item.Quantity * item.UnitPrice)
		costTotal := round2(item.Quantity * item.UnitCost)
		pid := item.ProductID

		revenue := selector(prod.RevenueAccountID, mappings.ModuleSales, mappings.KeySalesRevenue)
		if inv.RevenueAccountID != nil && *inv.RevenueAccountID != 0 {
			revenue = AccountSelector{AccountID: *inv.RevenueAccountID}
		}
		recipe.Steps = append(recipe.Steps,
			Step{Account: AccountSelector{Module: mappings.ModuleSales, Key: mappings.KeySalesReceivable}, Side: Debit, Amount: lineTotal, Description: item.Description, ProductID: &pid, LocationID: inv.LocationID},
			Step{Account: revenue, Side: Credit, Amount: lineTotal, Description: item.Description, ProductID: &pid, LocationID: inv.LocationID},
			Step{Account: selector(prod.COGSAccountID, mappings.ModuleSales, mappings.KeySalesCOGS), Side: Debit, Amount: costTotal, Description: item.Description, ProductID: &pid, LocationID: inv.LocationID},
			Step{Account: selector(prod.InventoryAccountID, mappings.ModuleSales, mappings.KeySalesInventory), Side: Credit, Amount: costTotal, Description: item.Description, ProductID: &pid, LocationID: inv.LocationID},
		)
	}
	entry, err := s.postRecipe(ctx, tx, recipe)
	if err != nil {
		return err
	}
	for _, item := range inv.Items {
		movement := inventory.StockMovement{
			ProductID:      item.ProductID,
			LocationID:     inv.LocationID,
			Type:           inventory.MovementOut,
			Quantity:       item.Quantity,
			CostPerUnit:    item.UnitCost,
			ReferenceType:  string(journals.ReferenceSalesInvoice),
			ReferenceID:    journals.SourceRef(journals.ReferenceSalesInvoice, inv.ID),
			JournalEntryID: &entry.ID,
			Date:           inv.Date,
		}
		if _, err := tx.Stock().InsertMovement(ctx, movement); err != nil {
			return err
		}
		if err := tx.Stock().ApplyLevelDelta(ctx, item.ProductID, movement.QuantityDelta(), movement.ValueDelta()); err != nil {
			return err
		}
	}
	if err := tx.MarkPosted(ctx, TableSalesInvoices, inv.ID, entry.ID); err != nil {
		return err
	}
	inv.Status = StatusPosted
	inv.PostedEntryID = &entry.ID
	return nil
}

// PostPurchaseBill persists the bill and, when input.Post is set, debits
// inventory per item against one aggregate payable credit, with an IN
// movement per item.
func (s *Service) PostPurchaseBill(ctx context.Context, actor internalshared.Identity, in PurchaseBillInput) (PurchaseBill, error) {
	if err := in.Validate(); err != nil {
		return PurchaseBill{}, err
	}
	if existing, ok, err := s.replayPurchaseBill(ctx, in.IdempotencyKey); err != nil || ok {
		return existing, err
	}

	snapshots, err := s.loadProducts(ctx, purchaseProductIDs(in.Items))
	if err != nil {
		return PurchaseBill{}, err
	}
	bill := PurchaseBill{
		Number:       in.Number,
		SupplierName: in.SupplierName,
		Date:         in.Date,
		Status:       StatusDraft,
		CreatedBy:    actor.UserID,
	}
	for _, item := range in.Items {
		prod := snapshots[item.ProductID]
		desc := item.Description
		if desc == "" {
			desc = prod.Name
		}
		bill.Items = append(bill.Items, PurchaseBillItem{
			ProductID:   item.ProductID,
			Description: desc,
			Quantity:    item.Quantity,
			UnitCost:    item.UnitCost,
		})
		// Accumulate rounded line totals so the aggregate payable credit
		// equals the sum of the per-item inventory debits to the cent.
		bill.Total += round2(item.Quantity * item.UnitCost)
	}
	bill.Total = round2(bill.Total)

	var result PurchaseBill
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.Stock().EnsureProducts(ctx, purchaseProductIDs(in.Items)); err != nil {
			return err
		}
		inserted, err := tx.InsertPurchaseBill(ctx, bill)
		if err != nil {
			return err
		}
		if in.IdempotencyKey != "" {
			if err := tx.ClaimKey(ctx, in.IdempotencyKey, ModulePurchaseBill, inserted.ID); err != nil {
				return err
			}
		}
		if in.Post {
			if err := s.applyPurchaseEffects(ctx, tx, &inserted, snapshots); err != nil {
				return err
			}
		}
		result = inserted
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrKeyClaimed) {
			existing, ok, lerr := s.replayPurchaseBill(ctx, in.IdempotencyKey)
			if lerr == nil && ok {
				return existing, nil
			}
		}
		return PurchaseBill{}, err
	}
	if in.Post {
		s.bump(ctx)
	}
	return result, nil
}

func (s *Service) applyPurchaseEffects(ctx context.Context, tx TxRepository, bill *PurchaseBill, snapshots map[int64]products.Product) error {
	recipe := Recipe{
		Date:          bill.Date,
		Memo:          fmt.Sprintf("Purchase Bill %s", bill.Number),
		ReferenceType: journals.ReferencePurchaseBill,
		DocumentID:    bill.ID,
		CreatedBy:     bill.CreatedBy,
	}
	for i := range bill.Items {
		item := bill.Items[i]
		prod := snapshots[item.ProductID]
		costTotal := round2(item.Quantity * item.UnitCost)
		pid := item.ProductID
		recipe.Steps = append(recipe.Steps, Step{
			Account:     selector(prod.InventoryAccountID, mappings.ModulePurchase, mappings.KeyPurchaseInventory),
			Side:        Debit,
			Amount:      costTotal,
			Description: item.Description,
			ProductID:   &pid,
		})
	}
	recipe.Steps = append(recipe.Steps, Step{
		Account:     AccountSelector{Module: mappings.ModulePurchase, Key: mappings.KeyPurchasePayable},
		Side:        Credit,
		Amount:      bill.Total,
		Description: fmt.Sprintf("Payable to %s", bill.SupplierName),
	})
	entry, err := s.postRecipe(ctx, tx, recipe)
	if err != nil {
		return err
	}
	for _, item := range bill.Items {
		movement := inventory.StockMovement{
			ProductID:      item.ProductID,
			Type:           inventory.MovementIn,
			Quantity:       item.Quantity,
			CostPerUnit:    item.UnitCost,
			ReferenceType:  string(journals.ReferencePurchaseBill),
			ReferenceID:    journals.SourceRef(journals.ReferencePurchaseBill, bill.ID),
			JournalEntryID: &entry.ID,
			Date:           bill.Date,
		}
		if _, err := tx.Stock().InsertMovement(ctx, movement); err != nil {
			return err
		}
		if err := tx.Stock().ApplyLevelDelta(ctx, item.ProductID, movement.QuantityDelta(), movement.ValueDelta()); err != nil {
			return err
		}
	}
	if err := tx.MarkPosted(ctx, TablePurchaseBills, bill.ID, entry.ID); err != nil {
		return err
	}
	bill.Status = StatusPosted
	bill.PostedEntryID = &entry.ID
	return nil
}

// PostPayment persists the payment and, when input.Post is set, posts a two
// line entry: IN debits the bank and credits receivables, OUT debits payables
// and credits the bank.
func (s *Service) PostPayment(ctx context.Context, actor internalshared.Identity, in PaymentInput) (Payment, error) {
	if err := in.Validate(); err != nil {
		return Payment{}, err
	}
	if existing, ok, err := s.replayPayment(ctx, in.IdempotencyKey); err != nil || ok {
		return existing, err
	}

	payment := Payment{
		Direction:     in.Direction,
		BankAccountID: in.BankAccountID,
		Counterparty:  in.Counterparty,
		Amount:        round2(in.Amount),
		Date:          in.Date,
		Memo:          in.Memo,
		Status:        StatusDraft,
		CreatedBy:     actor.UserID,
	}
	var result Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inserted, err := tx.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		if in.IdempotencyKey != "" {
			if err := tx.ClaimKey(ctx, in.IdempotencyKey, ModulePayment, inserted.ID); err != nil {
				return err
			}
		}
		if in.Post {
			if err := s.applyPaymentEffects(ctx, tx, &inserted); err != nil {
				return err
			}
		}
		result = inserted
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrKeyClaimed) {
			existing, ok, lerr := s.replayPayment(ctx, in.IdempotencyKey)
			if lerr == nil && ok {
				return existing, nil
			}
		}
		return Payment{}, err
	}
	if in.Post {
		s.bump(ctx)
	}
	return result, nil
}

func (s *Service) applyPaymentEffects(ctx context.Context, tx TxRepository, payment *Payment) error {
	recipe := Recipe{
		Date:          payment.Date,
		Memo:          fmt.Sprintf("Payment %s %s", payment.Direction, payment.Counterparty),
		ReferenceType: journals.ReferencePayment,
		DocumentID:    payment.ID,
		CreatedBy:     payment.CreatedBy,
	}
	bank := AccountSelector{AccountID: payment.BankAccountID}
	if payment.Direction == PaymentIn {
		recipe.Steps = append(recipe.Steps,
			Step{Account: bank, Side: Debit, Amount: payment.Amount, Description: payment.Memo},
			Step{Account: AccountSelector{Module: mappings.ModulePayment, Key: mappings.KeyPaymentAR}, Side: Credit, Amount: payment.Amount, Description: payment.Memo},
		)
	} else {
		recipe.Steps = append(recipe.Steps,
			Step{Account: AccountSelector{Module: mappings.ModulePayment, Key: mappings.KeyPaymentAP}, Side: Debit, Amount: payment.Amount, Description: payment.Memo},
			Step{Account: bank, Side: Credit, Amount: payment.Amount, Description: payment.Memo},
		)
	}
	entry, err := s.postRecipe(ctx, tx, recipe)
	if err != nil {
		return err
	}
	if err := tx.MarkPosted(ctx, TablePayments, payment.ID, entry.ID); err != nil {
		return err
	}
	payment.Status = StatusPosted
	payment.JournalEntryID = &entry.ID
	return nil
}

// PostAdjustment records a signed stock adjustment with its valuing journal
// entry: write-ups debit inventory against a gain account, write-downs debit
// a loss account against inventory.
func (s *Service) PostAdjustment(ctx context.Context, actor internalshared.Identity, in AdjustmentInput) (inventory.StockMovement, error) {
	if err := in.Validate(); err != nil {
		return inventory.StockMovement{}, err
	}
	if existing, ok, err := s.replayAdjustment(ctx, in.IdempotencyKey); err != nil || ok {
		return existing, err
	}
	prod, err := s.products.Get(ctx, in.ProductID)
	if err != nil {
		if errors.Is(err, internalshared.ErrNotFound) {
			return inventory.StockMovement{}, fmt.Errorf("%w: product %d", inventory.ErrProductNotFound, in.ProductID)
		}
		return inventory.StockMovement{}, err
	}
	cost := prod.Cost
	if in.CostPerUnit != nil {
		cost = *in.CostPerUnit
	}

	refID := adjustmentRef(in.IdempotencyKey)
	var result inventory.StockMovement
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.Stock().EnsureProducts(ctx, []int64{in.ProductID}); err != nil {
			return err
		}
		movement := inventory.StockMovement{
			ProductID:     in.ProductID,
			LocationID:    in.LocationID,
			Type:          inventory.MovementAdjustment,
			Quantity:      in.Quantity,
			CostPerUnit:   cost,
			ReferenceType: string(journals.ReferenceAdjustment),
			ReferenceID:   refID,
			Date:          in.Date,
		}
		movementID, err := tx.Stock().InsertMovement(ctx, movement)
		if err != nil {
			return err
		}
		movement.ID = movementID
		if in.IdempotencyKey != "" {
			if err := tx.ClaimKey(ctx, in.IdempotencyKey, ModuleAdjustment, movementID); err != nil {
				return err
			}
		}
		amount := round2(abs(in.Quantity) * cost)
		if amount > 0 {
			recipe := Recipe{
				Date:          in.Date,
				Memo:          memoOr(in.Memo, fmt.Sprintf("Stock adjustment %s", prod.Code)),
				ReferenceType: journals.ReferenceAdjustment,
				DocumentID:    movementID,
				ReferenceID:   refID,
				CreatedBy:     actor.UserID,
			}
			pid := in.ProductID
			invAcct := selector(prod.InventoryAccountID, mappings.ModuleInventory, mappings.KeyAdjustmentInventory)
			if in.Quantity > 0 {
				recipe.Steps = append(recipe.Steps,
					Step{Account: invAcct, Side: Debit, Amount: amount, Description: prod.Name, ProductID: &pid, LocationID: in.LocationID},
					Step{Account: AccountSelector{Module: mappings.ModuleInventory, Key: mappings.KeyAdjustmentGain}, Side: Credit, Amount: amount, Description: prod.Name, ProductID: &pid, LocationID: in.LocationID},
				)
			} else {
				recipe.Steps = append(recipe.Steps,
					Step{Account: AccountSelector{Module: mappings.ModuleInventory, Key: mappings.KeyAdjustmentLoss}, Side: Debit, Amount: amount, Description: prod.Name, ProductID: &pid, LocationID: in.LocationID},
					Step{Account: invAcct, Side: Credit, Amount: amount, Description: prod.Name, ProductID: &pid, LocationID: in.LocationID},
				)
			}
			entry, err := s.postRecipe(ctx, tx, recipe)
			if err != nil {
				return err
			}
			if err := tx.Stock().LinkMovementEntry(ctx, movementID, entry.ID); err != nil {
				return err
			}
			movement.JournalEntryID = &entry.ID
		}
		if err := tx.Stock().ApplyLevelDelta(ctx, in.ProductID, movement.QuantityDelta(), movement.ValueDelta()); err != nil {
			return err
		}
		result = movement
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrKeyClaimed) {
			existing, ok, lerr := s.replayAdjustment(ctx, in.IdempotencyKey)
			if lerr == nil && ok {
				return existing, nil
			}
		}
		return inventory.StockMovement{}, err
	}
	s.bump(ctx)
	return result, nil
}

// postRecipe resolves and validates the recipe, then writes the entry, its
// lines, and the source link through the transaction's journal port.
func (s *Service) postRecipe(ctx context.Context, tx TxRepository, recipe Recipe) (journals.JournalEntry, error) {
	input, err := recipe.Build(ctx, newMappingResolver(s.mappings))
	if err != nil {
		return journals.JournalEntry{}, err
	}
	if err := input.Validate(); err != nil {
		return journals.JournalEntry{}, err
	}
	journal := tx.Journal()
	accountIDs := make([]int64, 0, len(input.Lines))
	for _, line := range input.Lines {
		accountIDs = append(accountIDs, line.AccountID)
	}
	if err := journal.EnsureAccounts(ctx, accountIDs); err != nil {
		return journals.JournalEntry{}, err
	}
	entry, err := journal.InsertEntry(ctx, input)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	if err := journal.InsertLines(ctx, entry.ID, input.Lines); err != nil {
		return journals.JournalEntry{}, err
	}
	if err := journal.LinkSource(ctx, input.ReferenceType, input.ReferenceID, entry.ID); err != nil {
		return journals.JournalEntry{}, err
	}
	return entry, nil
}

func (s *Service) loadProducts(ctx context.Context, ids []int64) (map[int64]products.Product, error) {
	snapshots := make(map[int64]products.Product, len(ids))
	for _, id := range ids {
		if _, ok := snapshots[id]; ok {
			continue
		}
		prod, err := s.products.Get(ctx, id)
		if err != nil {
			if errors.Is(err, internalshared.ErrNotFound) {
				return nil, ledgershared.Invalid("unknown product %d", id)
			}
			return nil, err
		}
		snapshots[id] = prod
	}
	return snapshots, nil
}

func (s *Service) replaySalesInvoice(ctx context.Context, key string) (SalesInvoice, bool, error) {
	id, ok, err := s.lookupKey(ctx, key, ModuleSalesInvoice)
	if err != nil || !ok {
		return SalesInvoice{}, false, err
	}
	inv, err := s.repo.GetSalesInvoice(ctx, id)
	if err != nil {
		return SalesInvoice{}, false, err
	}
	return inv, true, nil
}

func (s *Service) replayPurchaseBill(ctx context.Context, key string) (PurchaseBill, bool, error) {
	id, ok, err := s.lookupKey(ctx, key, ModulePurchaseBill)
	if err != nil || !ok {
		return PurchaseBill{}, false, err
	}
	bill, err := s.repo.GetPurchaseBill(ctx, id)
	if err != nil {
		return PurchaseBill{}, false, err
	}
	return bill, true, nil
}

func (s *Service) replayPayment(ctx context.Context, key string) (Payment, bool, error) {
	id, ok, err := s.lookupKey(ctx, key, ModulePayment)
	if err != nil || !ok {
		return Payment{}, false, err
	}
	payment, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return Payment{}, false, err
	}
	return payment, true, nil
}

func (s *Service) replayAdjustment(ctx context.Context, key string) (inventory.StockMovement, bool, error) {
	id, ok, err := s.lookupKey(ctx, key, ModuleAdjustment)
	if err != nil || !ok {
		return inventory.StockMovement{}, false, err
	}
	movement, err := s.repo.GetMovement(ctx, id)
	if err != nil {
		return inventory.StockMovement{}, false, err
	}
	return movement, true, nil
}

func (s *Service) lookupKey(ctx context.Context, key, module string) (int64, bool, error) {
	if key == "" || s.keys == nil {
		return 0, false, nil
	}
	return s.keys.Lookup(ctx, key, module)
}

func (s *Service) bump(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("report cache invalidation failed", slog.Any("error", err))
	}
}

func salesProductIDs(items []SalesItemInput) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

func purchaseProductIDs(items []PurchaseItemInput) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

func memoOr(memo, fallback string) string {
	if memo != "" {
		return memo
	}
	return fallback
}

// adjustmentRef derives a stable source id from the idempotency key when one
// is supplied, so a retried adjustment maps to the same journal link.
func adjustmentRef(key string) uuid.UUID {
	if key == "" {
		return uuid.New()
	}
	return uuid.NewSHA1(uuid.Nil, []byte("ADJUSTMENT:"+key))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
