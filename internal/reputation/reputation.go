package reputation

import (
	"math/big"
	"sync"
	"time"

	"github.com/darshprotocol/lending-engine/internal/domain"
)

// Scoring weights. Positive history grows the score, explicit penalty events
// (defaults, late repayments) shrink it, and the result never falls below the
// configured floor.
const (
	pointsPerCompletedLoan   = 2
	pointsPerOnTimeRepayment = 3
	penaltyPerDefault        = 10
	penaltyPerLateRepayment  = 2
	volumePointCap           = 20
)

// volumeUnitUsd is the fixed-point USD volume worth one score point.
var volumeUnitUsd = new(big.Int).Mul(big.NewInt(1_000), big.NewInt(100_000_000))

// Config sets the score baseline for accounts with no history and the floor
// below which penalties cannot push an account.
type Config struct {
	BaseScore  uint64
	FloorScore uint64
}

// Log is the append-only activity history per account. Scores are derived
// from it on demand and never persisted separately.
type Log struct {
	mu     sync.Mutex
	cfg    Config
	events map[domain.AccountID][]domain.ActivityEvent
	nowFn  func() time.Time
}

func NewLog(cfg Config) *Log {
	return &Log{
		cfg:    cfg,
		events: make(map[domain.AccountID][]domain.ActivityEvent),
		nowFn:  time.Now,
	}
}

// SetNowFunc overrides the wall clock, used by tests.
func (l *Log) SetNowFunc(now func() time.Time) {
	if l == nil || now == nil {
		return
	}
	l.nowFn = now
}

// Record appends an event to the account's history.
func (l *Log) Record(account domain.AccountID, kind domain.ActivityKind, amountUsd *big.Int, loanClosed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	event := domain.ActivityEvent{
		Account:    account,
		Kind:       kind,
		OccurredAt: l.nowFn(),
		LoanClosed: loanClosed,
	}
	if amountUsd != nil {
		event.AmountUsd = new(big.Int).Set(amountUsd)
	}
	l.events[account] = append(l.events[account], event)
}

// GetActivity aggregates the account's history.
func (l *Log) GetActivity(account domain.AccountID) domain.ActivitySummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.summarize(account)
}

func (l *Log) summarize(account domain.AccountID) domain.ActivitySummary {
	summary := domain.ActivitySummary{
		Account:   account,
		VolumeUsd: big.NewInt(0),
	}
	for _, event := range l.events[account] {
		if event.AmountUsd != nil {
			summary.VolumeUsd.Add(summary.VolumeUsd, event.AmountUsd)
		}
		switch event.Kind {
		case domain.ActivityRepaidOnTime:
			summary.OnTimeRepayments++
		case domain.ActivityRepaidLate:
			summary.LateRepayments++
		case domain.ActivityDefaulted:
			summary.Defaults++
		}
		if event.LoanClosed && event.Kind != domain.ActivityDefaulted {
			summary.CompletedLoans++
		}
	}
	return summary
}

// GetScore derives the account's trust score from its activity history.
// Deterministic: two accounts with identical histories always score equally.
func (l *Log) GetScore(account domain.AccountID) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	summary := l.summarize(account)

	score := int64(l.cfg.BaseScore)
	score += int64(summary.CompletedLoans) * pointsPerCompletedLoan
	score += int64(summary.OnTimeRepayments) * pointsPerOnTimeRepayment
	score += volumePoints(summary.VolumeUsd)
	score -= int64(summary.Defaults) * penaltyPerDefault
	score -= int64(summary.LateRepayments) * penaltyPerLateRepayment

	if score < int64(l.cfg.FloorScore) {
		return l.cfg.FloorScore
	}
	return uint64(score)
}

func volumePoints(volumeUsd *big.Int) int64 {
	if volumeUsd == nil || volumeUsd.Sign() <= 0 {
		return 0
	}
	points := new(big.Int).Quo(volumeUsd, volumeUnitUsd)
	if points.Cmp(big.NewInt(volumePointCap)) > 0 {
		return volumePointCap
	}
	return points.Int64()
}
