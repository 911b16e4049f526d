package core

import (
	"math/big"
	"time"

	"github.com/darshprotocol/lending-engine/internal/domain"
	customError "github.com/darshprotocol/lending-engine/pkg/errors"
)

// LoanLedger is the arena holding every loan ever drawn. Same discipline as
// the offer book: monotonic ids from 1, insertion order preserved, no lock
// of its own.
type LoanLedger struct {
	order  []*domain.Loan
	byID   map[uint64]*domain.Loan
	nextID uint64
}

func NewLoanLedger() *LoanLedger {
	return &LoanLedger{
		byID:   make(map[uint64]*domain.Loan),
		nextID: 1,
	}
}

// create mints a loan record from a validated fill. The ledger re-validates
// amounts even though the pool has already checked them.
func (l *LoanLedger) create(offer *domain.Offer, borrower domain.AccountID, principalAmount *big.Int, collateralAsset domain.Asset, collateralAmount *big.Int, createdAt time.Time) (*domain.Loan, error) {
	if principalAmount == nil || principalAmount.Sign() <= 0 {
		return nil, customError.WrapInvalidAmount("loan principal")
	}
	if collateralAmount == nil || collateralAmount.Sign() <= 0 {
		return nil, customError.WrapInvalidAmount("loan collateral")
	}
	loan := &domain.Loan{
		ID:                    l.nextID,
		OfferID:               offer.ID,
		Borrower:              borrower,
		Lender:                offer.Lender,
		PrincipalAsset:        offer.PrincipalAsset,
		PrincipalAmount:       new(big.Int).Set(principalAmount),
		CollateralAsset:       collateralAsset,
		CollateralAmount:      new(big.Int).Set(collateralAmount),
		InterestRatePerSecond: new(big.Int).Set(offer.InterestRatePerSecond),
		MaturityDays:          offer.MaturityDays,
		CreatedAt:             createdAt,
		Status:                domain.LoanStatusActive,
	}
	l.nextID++
	l.order = append(l.order, loan)
	l.byID[loan.ID] = loan
	return loan, nil
}

func (l *LoanLedger) get(loanID uint64) (*domain.Loan, error) {
	loan, ok := l.byID[loanID]
	if !ok {
		return nil, customError.WrapLoanNotFound(loanID)
	}
	return loan, nil
}

// getActive fetches a loan and rejects any that has left Active. Terminal
// loans fail with LoanNotActive, which is what makes repeated liquidation
// idempotent instead of double-seizing.
func (l *LoanLedger) getActive(loanID uint64) (*domain.Loan, error) {
	loan, err := l.get(loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != domain.LoanStatusActive {
		return nil, customError.WrapLoanNotActive(loanID, string(loan.Status))
	}
	return loan, nil
}

// applyRepayment mutates the loan for a validated repayment and returns the
// collateral released. Full repayment retires the loan and releases all
// remaining collateral; partial repayment shrinks principal and collateral
// pro-rata and resets the accrual clock.
func (l *LoanLedger) applyRepayment(loan *domain.Loan, percentageBps uint64, now time.Time) *big.Int {
	if percentageBps == 10_000 {
		released := new(big.Int).Set(loan.CollateralAmount)
		loan.CollateralAmount.SetInt64(0)
		loan.Status = domain.LoanStatusRepaid
		return released
	}
	released := bpsShare(loan.CollateralAmount, percentageBps)
	repaidPrincipal := bpsShare(loan.PrincipalAmount, percentageBps)
	loan.CollateralAmount.Sub(loan.CollateralAmount, released)
	loan.PrincipalAmount.Sub(loan.PrincipalAmount, repaidPrincipal)
	loan.CreatedAt = now
	return released
}

// applyLiquidation walks the loan through Defaulted into Liquidated and
// returns the seized collateral.
func (l *LoanLedger) applyLiquidation(loan *domain.Loan) *big.Int {
	loan.Status = domain.LoanStatusDefaulted
	seized := new(big.Int).Set(loan.CollateralAmount)
	loan.CollateralAmount.SetInt64(0)
	loan.Status = domain.LoanStatusLiquidated
	return seized
}

// discard rolls back the creation of the most recently minted loan. Only
// valid inside the same transaction that created it, before the id was ever
// observable, so id monotonicity is preserved.
func (l *LoanLedger) discard(loan *domain.Loan) {
	if len(l.order) == 0 || l.order[len(l.order)-1] != loan {
		return
	}
	l.order = l.order[:len(l.order)-1]
	delete(l.byID, loan.ID)
	l.nextID = loan.ID
}

// list returns clones of all loans in insertion order.
func (l *LoanLedger) list() []*domain.Loan {
	out := make([]*domain.Loan, 0, len(l.order))
	for _, loan := range l.order {
		out = append(out, loan.Clone())
	}
	return out
}
