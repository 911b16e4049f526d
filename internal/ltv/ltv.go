package ltv

import (
	"math/big"
	"sync"

	"github.com/darshprotocol/lending-engine/internal/domain"
	customError "github.com/darshprotocol/lending-engine/pkg/errors"
)

// ScoreProvider exposes the borrower trust score read-only.
type ScoreProvider interface {
	GetScore(account domain.AccountID) uint64
}

// Config holds the two score thresholds and the two LTV bounds between which
// the ceiling is interpolated.
type Config struct {
	LowScoreThreshold  uint64
	HighScoreThreshold uint64
	LowLtvBps          uint64
	HighLtvBps         uint64
}

func (c Config) valid() bool {
	return c.HighScoreThreshold > c.LowScoreThreshold &&
		c.LowLtvBps > 0 && c.LowLtvBps <= 10_000 &&
		c.HighLtvBps >= c.LowLtvBps && c.HighLtvBps <= 10_000
}

// Engine converts a borrower's trust score into an LTV ceiling in basis
// points. Unconfigured engines fail every query with LtvNotConfigured; there
// is no default curve.
type Engine struct {
	mu         sync.RWMutex
	cfg        Config
	configured bool
	scores     ScoreProvider
}

func NewEngine(scores ScoreProvider) *Engine {
	return &Engine{scores: scores}
}

// SetConfig installs the thresholds and bounds. Mirrors the admin
// setTrustScore call on the original ratio contract.
func (e *Engine) SetConfig(cfg Config) error {
	if !cfg.valid() {
		return customError.WrapInvalidLtv(cfg.HighLtvBps)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	e.configured = true
	return nil
}

// ComputeMaxLtvBps maps the borrower's score through the configured curve.
func (e *Engine) ComputeMaxLtvBps(borrower domain.AccountID) (uint64, error) {
	e.mu.RLock()
	cfg, configured := e.cfg, e.configured
	e.mu.RUnlock()
	if !configured {
		return 0, customError.WrapLtvNotConfigured()
	}
	return interpolate(cfg, e.scores.GetScore(borrower)), nil
}

// interpolate is the pure curve: linear between the bounds, clamped at both
// ends, integer arithmetic truncating toward zero. Monotonically
// non-decreasing in score and always within [LowLtvBps, HighLtvBps].
func interpolate(cfg Config, score uint64) uint64 {
	if score <= cfg.LowScoreThreshold {
		return cfg.LowLtvBps
	}
	if score >= cfg.HighScoreThreshold {
		return cfg.HighLtvBps
	}
	// Thresholds are unconstrained uint64s, so the distance-times-rise
	// product can exceed 64 bits; widen through big.Int like the rest of
	// the protocol math.
	delta := new(big.Int).SetUint64(score - cfg.LowScoreThreshold)
	delta.Mul(delta, new(big.Int).SetUint64(cfg.HighLtvBps-cfg.LowLtvBps))
	delta.Quo(delta, new(big.Int).SetUint64(cfg.HighScoreThreshold-cfg.LowScoreThreshold))
	return cfg.LowLtvBps + delta.Uint64()
}
