package inventory

import (
	"context"
)

// Service derives weighted average valuations from running stock levels and
// serves movement history.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Valuation reports each active product's quantity on hand, weighted average
// cost, and inventory value. When nothing is on hand the product's list cost
// stands in for the average.
func (s *Service) Valuation(ctx context.Context) ([]Valuation, error) {
	levels, err := s.repo.Levels(ctx)
	if err != nil {
		return nil, err
	}
	valuations := make([]Valuation, 0, len(levels))
	for _, lvl := range levels {
		v := Valuation{
			ProductID:      lvl.ProductID,
			ProductCode:    lvl.ProductCode,
			ProductName:    lvl.ProductName,
			QuantityOnHand: lvl.Quantity,
			InventoryValue: lvl.Value,
		}
		if lvl.Quantity != 0 {
			v.AvgCost = lvl.Value / lvl.Quantity
		} else {
			v.AvgCost = lvl.ListCost
		}
		valuations = append(valuations, v)
	}
	return valuations, nil
}

// MovementHistory lists movements newest first, optionally filtered by
// product, location, and date range.
func (s *Service) MovementHistory(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	movements, err := s.repo.ListMovements(ctx, filter)
	if err != nil {
		return nil, err
	}
	if movements == nil {
		movements = []StockMovement{}
	}
	return movements, nil
}
