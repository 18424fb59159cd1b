package reports

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"
)

// BalanceSource supplies the aggregated rows the builders consume.
type BalanceSource interface {
	AccountBalances(ctx context.Context, from, to time.Time) ([]AccountBalance, error)
	RevenueByLocation(ctx context.Context, from, to time.Time) ([]LocationRevenue, error)
}

// rangeFloor is the lower bound used when a report has no explicit start date.
var rangeFloor = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// Service builds financial reports from aggregated balances, caching results
// and collapsing concurrent identical requests.
type Service struct {
	source BalanceSource
	cache  *Cache
	group  singleflight.Group
}

func NewService(source BalanceSource, cache *Cache) *Service {
	return &Service{source: source, cache: cache}
}

func (s *Service) TrialBalance(ctx context.Context, from, to time.Time) (TrialBalance, error) {
	from, to = normalizeRange(from, to)
	var tb TrialBalance
	err := s.fetch(ctx, "tb", from, to, &tb, func(ctx context.Context) (any, error) {
		balances, err := s.source.AccountBalances(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return BuildTrialBalance(balances), nil
	})
	return tb, err
}

func (s *Service) ProfitAndLoss(ctx context.Context, from, to time.Time) (ProfitAndLoss, error) {
	from, to = normalizeRange(from, to)
	var pl ProfitAndLoss
	err := s.fetch(ctx, "pl", from, to, &pl, func(ctx context.Context) (any, error) {
		balances, err := s.source.AccountBalances(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return BuildProfitAndLoss(balances), nil
	})
	return pl, err
}

// BalanceSheet reports the position as of the cutoff date, scanning the whole
// ledger up to and including it.
func (s *Service) BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	var bs BalanceSheet
	err := s.fetch(ctx, "bs", rangeFloor, asOf, &bs, func(ctx context.Context) (any, error) {
		balances, err := s.source.AccountBalances(ctx, rangeFloor, asOf)
		if err != nil {
			return nil, err
		}
		return BuildBalanceSheet(balances), nil
	})
	return bs, err
}

func (s *Service) RevenueByLocation(ctx context.Context, from, to time.Time) ([]LocationRevenue, error) {
	from, to = normalizeRange(from, to)
	var result []LocationRevenue
	err := s.fetch(ctx, "revloc", from, to, &result, func(ctx context.Context) (any, error) {
		return s.source.RevenueByLocation(ctx, from, to)
	})
	if result == nil {
		result = []LocationRevenue{}
	}
	return result, err
}

// fetch collapses concurrent identical report builds onto one flight and
// shares the encoded result, so every caller gets a decoded copy.
func (s *Service) fetch(ctx context.Context, name string, from, to time.Time, dest any, loader func(context.Context) (any, error)) error {
	key, err := s.cache.BuildKey(ctx, "reports", name, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return err
	}
	value, err, _ := s.group.Do(key, func() (any, error) {
		var payload json.RawMessage
		if err := s.cache.FetchJSON(ctx, key, &payload, loader); err != nil {
			return nil, err
		}
		return payload, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(value.(json.RawMessage), dest)
}

func normalizeRange(from, to time.Time) (time.Time, time.Time) {
	if from.IsZero() {
		from = rangeFloor
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	return from, to
}
