// Package metadata resolves and caches per-symbol exchange trading rules.
package metadata

import (
	"context"
	"math"
	"sync"

	"github.com/rxtech-lab/argo-riskbot/internal/logger"
	"github.com/rxtech-lab/argo-riskbot/internal/types"
	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RulesSource returns the raw trading filters for a symbol.
type RulesSource interface {
	ExchangeRules(ctx context.Context, symbol string) (types.ExchangeRules, error)
}

// Resolver turns exchange rules into SymbolMetadata. Successful results are
// cached until invalidated; failures are never cached.
type Resolver struct {
	source    RulesSource
	overrides map[string]decimal.Decimal
	log       *logger.Logger

	mu    sync.RWMutex
	cache map[string]types.SymbolMetadata
}

// NewResolver creates a resolver. overrides maps symbol to a min notional that
// replaces the exchange's value.
func NewResolver(source RulesSource, overrides map[string]decimal.Decimal, log *logger.Logger) *Resolver {
	if overrides == nil {
		overrides = map[string]decimal.Decimal{}
	}

	return &Resolver{
		source:    source,
		overrides: overrides,
		log:       log,
		cache:     make(map[string]types.SymbolMetadata),
	}
}

// Resolve returns the metadata for symbol, fetching it when not cached.
func (r *Resolver) Resolve(ctx context.Context, symbol string) (types.SymbolMetadata, error) {
	r.mu.RLock()
	meta, ok := r.cache[symbol]
	r.mu.RUnlock()

	if ok {
		return meta, nil
	}

	rules, err := r.source.ExchangeRules(ctx, symbol)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeMetadataUnavailable) {
			return types.SymbolMetadata{}, err
		}

		return types.SymbolMetadata{}, errors.Wrapf(errors.ErrCodeMetadataUnavailable, err, "failed to fetch rules for %s", symbol)
	}

	meta, err = FromRules(rules)
	if err != nil {
		return types.SymbolMetadata{}, err
	}

	if override, ok := r.overrides[symbol]; ok && override.IsPositive() {
		meta.MinNotional = override
	}

	r.mu.Lock()
	r.cache[symbol] = meta
	r.mu.Unlock()

	r.log.Debug("Resolved symbol metadata",
		zap.String("symbol", symbol),
		zap.Int32("price_precision", meta.PricePrecision),
		zap.Int32("quantity_precision", meta.QuantityPrecision),
		zap.String("min_qty", meta.MinQty.String()),
		zap.String("min_notional", meta.MinNotional.String()),
	)

	return meta, nil
}

// Invalidate drops the cached entry for symbol.
func (r *Resolver) Invalidate(symbol string) {
	r.mu.Lock()
	delete(r.cache, symbol)
	r.mu.Unlock()
}

// InvalidateAll clears the cache.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[string]types.SymbolMetadata)
	r.mu.Unlock()
}

// FromRules validates rules and derives precisions from tick and step sizes.
func FromRules(rules types.ExchangeRules) (types.SymbolMetadata, error) {
	if rules.Status != types.SymbolStatusTrading {
		return types.SymbolMetadata{}, errors.Newf(errors.ErrCodeMetadataUnavailable,
			"symbol %s is not trading (status %q)", rules.Symbol, rules.Status)
	}

	pricePrecision, err := PrecisionFromStep(rules.TickSize)
	if err != nil {
		return types.SymbolMetadata{}, errors.Wrapf(errors.ErrCodeMetadataUnavailable, err, "bad tick size for %s", rules.Symbol)
	}

	qtyPrecision, err := PrecisionFromStep(rules.StepSize)
	if err != nil {
		return types.SymbolMetadata{}, errors.Wrapf(errors.ErrCodeMetadataUnavailable, err, "bad step size for %s", rules.Symbol)
	}

	return types.SymbolMetadata{
		Symbol:            rules.Symbol,
		PricePrecision:    pricePrecision,
		QuantityPrecision: qtyPrecision,
		MinQty:            rules.MinQty,
		MinNotional:       rules.MinNotional,
	}, nil
}

// PrecisionFromStep returns round(-log10(step)): 0.01 gives 2, 1 gives 0.
func PrecisionFromStep(step decimal.Decimal) (int32, error) {
	if !step.IsPositive() {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "step must be positive, got %s", step)
	}

	f, _ := step.Float64()

	return int32(math.Round(-math.Log10(f))), nil
}
