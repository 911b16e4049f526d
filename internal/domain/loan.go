package domain

import (
	"math/big"
	"time"
)

type LoanStatus string

const (
	LoanStatusActive     LoanStatus = "active"
	LoanStatusRepaid     LoanStatus = "repaid"
	LoanStatusDefaulted  LoanStatus = "defaulted"
	LoanStatusLiquidated LoanStatus = "liquidated"
)

// Terminal reports whether the loan admits no further transitions.
func (s LoanStatus) Terminal() bool {
	return s == LoanStatusRepaid || s == LoanStatusLiquidated
}

// Loan is an active draw against an offer, collateralized and accruing
// simple interest per second. Lender and terms are copied at draw time and
// are immune to later offer mutation. OfferID is an audit back-reference
// only: cancelling the originating offer never touches the loan.
type Loan struct {
	ID                    uint64
	OfferID               uint64
	Borrower              AccountID
	Lender                AccountID
	PrincipalAsset        Asset
	PrincipalAmount       *big.Int
	CollateralAsset       Asset
	CollateralAmount      *big.Int
	InterestRatePerSecond *big.Int
	MaturityDays          uint64
	CreatedAt             time.Time
	Status                LoanStatus
}

// MaturityDeadline is the unix second after which an Active loan is in
// default. Partial repayment resets CreatedAt, which pushes the deadline out
// along with the accrual clock.
func (l *Loan) MaturityDeadline() int64 {
	return l.CreatedAt.Unix() + int64(l.MaturityDays)*86_400
}

// Matured reports whether the maturity window has elapsed at the given time.
func (l *Loan) Matured(now time.Time) bool {
	return now.Unix() > l.MaturityDeadline()
}

// Clone returns a deep copy so callers cannot alias the canonical record.
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	clone := *l
	clone.PrincipalAmount = new(big.Int).Set(l.PrincipalAmount)
	clone.CollateralAmount = new(big.Int).Set(l.CollateralAmount)
	clone.InterestRatePerSecond = new(big.Int).Set(l.InterestRatePerSecond)
	return &clone
}
