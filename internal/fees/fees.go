package fees

import (
	"math/big"
	"sync"

	"github.com/darshprotocol/lending-engine/internal/domain"
)

var basisPoints = big.NewInt(10_000)

// Manager applies the deterministic protocol fee schedule and tracks the
// accrued cut per asset. The schedule is flat basis points on the amount
// passing through; fee math truncates toward zero so the net never rounds
// against the payer.
type Manager struct {
	mu      sync.Mutex
	feeBps  uint64
	accrued map[domain.Asset]*big.Int
}

func NewManager(feeBps uint64) *Manager {
	return &Manager{
		feeBps:  feeBps,
		accrued: make(map[domain.Asset]*big.Int),
	}
}

// TakeFee deducts the protocol cut from amount and returns (net, fee).
func (m *Manager) TakeFee(amount *big.Int, asset domain.Asset) (*big.Int, *big.Int) {
	if amount == nil || amount.Sign() <= 0 || m.feeBps == 0 {
		net := big.NewInt(0)
		if amount != nil {
			net.Set(amount)
		}
		return net, big.NewInt(0)
	}

	fee := new(big.Int).Mul(amount, new(big.Int).SetUint64(m.feeBps))
	fee.Quo(fee, basisPoints)
	net := new(big.Int).Sub(amount, fee)

	m.mu.Lock()
	defer m.mu.Unlock()
	total, ok := m.accrued[asset]
	if !ok {
		total = big.NewInt(0)
		m.accrued[asset] = total
	}
	total.Add(total, fee)

	return net, fee
}

// Accrued returns the total fees collected so far for an asset.
func (m *Manager) Accrued(asset domain.Asset) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total, ok := m.accrued[asset]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(total)
}

// FeeBps exposes the configured schedule.
func (m *Manager) FeeBps() uint64 { return m.feeBps }
