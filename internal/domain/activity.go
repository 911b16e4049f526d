package domain

import (
	"math/big"
	"time"
)

// ActivityKind enumerates the reputation-relevant events recorded against an
// account. The log is append-only; scores are recomputed from it on demand.
type ActivityKind string

const (
	ActivityBorrowed     ActivityKind = "borrowed"
	ActivityRepaidOnTime ActivityKind = "repaid_on_time"
	ActivityRepaidLate   ActivityKind = "repaid_late"
	ActivityDefaulted    ActivityKind = "defaulted"
)

// ActivityEvent is a single entry in an account's activity log. LoanClosed
// marks the repayment that retired its loan in full.
type ActivityEvent struct {
	Account    AccountID
	Kind       ActivityKind
	AmountUsd  *big.Int
	OccurredAt time.Time
	LoanClosed bool
}

// ActivitySummary aggregates an account's history for score derivation.
type ActivitySummary struct {
	Account          AccountID
	CompletedLoans   uint64
	OnTimeRepayments uint64
	LateRepayments   uint64
	Defaults         uint64
	VolumeUsd        *big.Int
}
