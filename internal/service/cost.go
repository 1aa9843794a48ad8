package service

import (
	"sync"

	"github.com/arcana-app/credits-server-go/internal/config"
	apperrors "github.com/arcana-app/credits-server-go/internal/errors"
	"github.com/arcana-app/credits-server-go/internal/model"
)

// CostResolver maps a reading mode to its credit cost. The table is
// configuration, not user data; it is safe to cache and is swapped whole
// on an admin-triggered reload.
type CostResolver struct {
	mu    sync.RWMutex
	costs map[model.FeatureKey]int64
}

func NewCostResolver(cfg *config.Config) *CostResolver {
	return &CostResolver{
		costs: map[model.FeatureKey]int64{
			model.FeatureSingleCard: cfg.CostSingleCard,
			model.FeatureThreeCard:  cfg.CostThreeCard,
			model.FeatureClassic10:  cfg.CostClassic10,
		},
	}
}

// CostOf returns the cost of a reading mode. An unknown key is a caller
// error, never a zero-cost default.
func (r *CostResolver) CostOf(key model.FeatureKey) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cost, ok := r.costs[key]
	if !ok {
		return 0, apperrors.InvalidMode(string(key))
	}
	return cost, nil
}

// Reload replaces the cost table.
func (r *CostResolver) Reload(costs map[model.FeatureKey]int64) {
	next := make(map[model.FeatureKey]int64, len(costs))
	for k, v := range costs {
		next[k] = v
	}

	r.mu.Lock()
	r.costs = next
	r.mu.Unlock()
}

// Table returns a copy of the current cost table.
func (r *CostResolver) Table() map[model.FeatureKey]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[model.FeatureKey]int64, len(r.costs))
	for k, v := range r.costs {
		out[k] = v
	}
	return out
}
