package posting

import (
	"context"

	"github.com/glowdesk/glowdesk/internal/ledger/mappings"
)

// MappingSource resolves posting keys to mapped accounts.
type MappingSource interface {
	Get(ctx context.Context, module, key string) (mappings.AccountMapping, error)
}

// mappingResolver caches mapping lookups for the duration of one posting so a
// multi-item recipe hits each key once.
type mappingResolver struct {
	source MappingSource
	seen   map[string]int64
}

func newMappingResolver(source MappingSource) *mappingResolver {
	return &mappingResolver{source: source, seen: make(map[string]int64)}
}

func (r *mappingResolver) Resolve(ctx context.Context, module, key string) (int64, error) {
	cacheKey := module + "/" + key
	if id, ok := r.seen[cacheKey]; ok {
		return id, nil
	}
	mapping, err := r.source.Get(ctx, module, key)
	if err != nil {
		return 0, err
	}
	r.seen[cacheKey] = mapping.AccountID
	return mapping.AccountID, nil
}

// selector prefers a per-product or per-document account override over the
// configured mapping.
func selector(override *int64, module, key string) AccountSelector {
	if override != nil && *override != 0 {
		return AccountSelector{AccountID: *override}
	}
	return AccountSelector{Module: module, Key: key}
}
