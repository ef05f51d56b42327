package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lifecaller/simulator/simulation"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultTTL is used when Coefficients is built with a zero TTL.
const DefaultTTL = 10 * time.Minute

// Coefficients decorates a CoefficientStore with a read-through cache.
//
// Only a unique match is cached: misses and duplicate rows always go to the
// store so NotFound and AmbiguousData are reported from fresh data. Cache
// failures are logged and bypassed; store failures are returned as is.
type Coefficients struct {
	next  simulation.CoefficientStore
	cache Cache
	ttl   time.Duration
}

func NewCoefficients(next simulation.CoefficientStore, c Cache, ttl time.Duration) *Coefficients {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Coefficients{next: next, cache: c, ttl: ttl}
}

type cachedCoefficient struct {
	ID           int64  `json:"id"`
	Bank         string `json:"banco"`
	Installments int    `json:"parcelas"`
	Value        string `json:"coeficiente"`
}

// Key returns the cache key for (bank, installments).
func Key(bank string, installments int) string {
	return fmt.Sprintf("coef:%s:%d", simulation.BankKey(bank), installments)
}

func (c *Coefficients) FindCoefficients(ctx context.Context, bank string, installments int) ([]simulation.Coefficient, error) {
	log := zerolog.Ctx(ctx)
	key := Key(bank, installments)

	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("coefficient cache get failed")
	} else if ok {
		if coef, err := decode(raw); err == nil {
			return []simulation.Coefficient{coef}, nil
		}
		log.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	}

	matches, err := c.next.FindCoefficients(ctx, bank, installments)
	if err != nil {
		return nil, err
	}
	if len(matches) == 1 {
		if err := c.cache.Set(ctx, key, encode(matches[0]), c.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("coefficient cache set failed")
		}
	}
	return matches, nil
}

// Invalidate evicts the keys of cs. Called after an import.
func (c *Coefficients) Invalidate(ctx context.Context, cs []simulation.Coefficient) error {
	keys := make([]string, 0, len(cs))
	for _, coef := range cs {
		keys = append(keys, Key(coef.Bank, coef.Installments))
	}
	return c.cache.Delete(ctx, keys...)
}

func encode(c simulation.Coefficient) string {
	b, _ := json.Marshal(cachedCoefficient{
		ID:           int64(c.ID),
		Bank:         c.Bank,
		Installments: c.Installments,
		Value:        c.Value.String(),
	})
	return string(b)
}

func decode(raw string) (simulation.Coefficient, error) {
	var cc cachedCoefficient
	if err := json.Unmarshal([]byte(raw), &cc); err != nil {
		return simulation.Coefficient{}, err
	}
	value, err := decimal.NewFromString(cc.Value)
	if err != nil {
		return simulation.Coefficient{}, err
	}
	return simulation.Coefficient{
		ID:           simulation.CoefficientID(cc.ID),
		Bank:         cc.Bank,
		Installments: cc.Installments,
		Value:        value,
	}, nil
}
