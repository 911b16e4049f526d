package oracle

import (
	"math/big"
	"sync"

	"github.com/darshprotocol/lending-engine/internal/domain"
	customError "github.com/darshprotocol/lending-engine/pkg/errors"
)

// PriceScale is the fixed-point scale of oracle prices: a price of
// 1 USD is represented as 1e8, matching the upstream feed precision.
var PriceScale = big.NewInt(100_000_000)

// PriceOracle maps an asset to its USD-denominated fixed-point price.
type PriceOracle interface {
	Price(asset domain.Asset) (*big.Int, error)
	HasPriceFeed(asset domain.Asset) bool
}

// FeedTable is an in-process oracle backed by an admin-settable price table.
// It mirrors the upstream feed registry: one entry per asset plus a synthetic
// USD reference feed pinned at exactly one dollar.
type FeedTable struct {
	mu     sync.RWMutex
	prices map[domain.Asset]*big.Int
}

func NewFeedTable() *FeedTable {
	return &FeedTable{prices: make(map[domain.Asset]*big.Int)}
}

// Set installs or replaces the price feed for an asset.
func (t *FeedTable) Set(asset domain.Asset, price *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prices[asset] = new(big.Int).Set(price)
}

func (t *FeedTable) Price(asset domain.Asset) (*big.Int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	price, ok := t.prices[asset]
	if !ok || price.Sign() <= 0 {
		return nil, customError.WrapPriceFeedMissing(asset.String())
	}
	return new(big.Int).Set(price), nil
}

func (t *FeedTable) HasPriceFeed(asset domain.Asset) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	price, ok := t.prices[asset]
	return ok && price.Sign() > 0
}

// UsdReference returns the synthetic one-dollar reference price.
func UsdReference() *big.Int {
	return new(big.Int).Set(PriceScale)
}
