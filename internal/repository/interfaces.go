package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OfferRecord is the archive row for a lending offer. The in-memory book is
// authoritative; rows exist for indexing and offline analysis, so amounts are
// stored as NUMERIC and the registry id is kept verbatim.
type OfferRecord struct {
	ID               string          `db:"id"`
	OfferID          uint64          `db:"offer_id"`
	Lender           string          `db:"lender"`
	PrincipalAsset   string          `db:"principal_asset"`
	PrincipalAmount  decimal.Decimal `db:"principal_amount"`
	RemainingAmount  decimal.Decimal `db:"remaining_amount"`
	CollateralAssets string          `db:"collateral_assets"`
	InterestRate     decimal.Decimal `db:"interest_rate_per_second"`
	MaturityDays     uint64          `db:"maturity_days"`
	MaxLtvBps        uint64          `db:"max_ltv_bps"`
	Status           string          `db:"status"`
	OfferCreatedAt   time.Time       `db:"offer_created_at"`
	ArchivedAt       time.Time       `db:"archived_at"`
}

// LoanRecord is the archive row for a loan.
type LoanRecord struct {
	ID               string          `db:"id"`
	LoanID           uint64          `db:"loan_id"`
	OfferID          uint64          `db:"offer_id"`
	Lender           string          `db:"lender"`
	Borrower         string          `db:"borrower"`
	PrincipalAsset   string          `db:"principal_asset"`
	PrincipalAmount  decimal.Decimal `db:"principal_amount"`
	CollateralAsset  string          `db:"collateral_asset"`
	CollateralAmount decimal.Decimal `db:"collateral_amount"`
	InterestRate     decimal.Decimal `db:"interest_rate_per_second"`
	MaturityDays     uint64          `db:"maturity_days"`
	Status           string          `db:"status"`
	LoanCreatedAt    time.Time       `db:"loan_created_at"`
	ArchivedAt       time.Time       `db:"archived_at"`
}

// RepaymentRecord is the archive row for one repayment settlement.
type RepaymentRecord struct {
	ID            string          `db:"id"`
	LoanID        uint64          `db:"loan_id"`
	Payer         string          `db:"payer"`
	PercentageBps uint64          `db:"percentage_bps"`
	AmountPaid    decimal.Decimal `db:"amount_paid"`
	Released      decimal.Decimal `db:"released_collateral"`
	PaidAt        time.Time       `db:"paid_at"`
}

// ActivityRecord is the archive row for one reputation-relevant event.
type ActivityRecord struct {
	ID         string          `db:"id"`
	Account    string          `db:"account"`
	Kind       string          `db:"kind"`
	AmountUsd  decimal.Decimal `db:"amount_usd"`
	LoanClosed bool            `db:"loan_closed"`
	OccurredAt time.Time       `db:"occurred_at"`
}

// OfferRepository defines the interface for offer archive operations
type OfferRepository interface {
	// Upsert writes the latest snapshot of an offer
	Upsert(ctx context.Context, offer *OfferRecord) error

	// GetByOfferID retrieves an archived offer by its registry id
	GetByOfferID(ctx context.Context, offerID uint64) (*OfferRecord, error)

	// ListByLender retrieves all archived offers of a lender
	ListByLender(ctx context.Context, lender string) ([]*OfferRecord, error)
}

// LoanRepository defines the interface for loan archive operations
type LoanRepository interface {
	// Upsert writes the latest snapshot of a loan
	Upsert(ctx context.Context, loan *LoanRecord) error

	// GetByLoanID retrieves an archived loan by its registry id
	GetByLoanID(ctx context.Context, loanID uint64) (*LoanRecord, error)

	// ListByBorrower retrieves all archived loans of a borrower
	ListByBorrower(ctx context.Context, borrower string) ([]*LoanRecord, error)
}

// RepaymentRepository defines the interface for the repayment archive
type RepaymentRepository interface {
	// Create appends one repayment settlement
	Create(ctx context.Context, repayment *RepaymentRecord) error

	// ListByLoanID retrieves all archived repayments of a loan
	ListByLoanID(ctx context.Context, loanID uint64) ([]*RepaymentRecord, error)
}

// ActivityRepository defines the interface for the activity event archive
type ActivityRepository interface {
	// Create appends one activity event
	Create(ctx context.Context, event *ActivityRecord) error

	// ListByAccount retrieves all archived events for an account
	ListByAccount(ctx context.Context, account string) ([]*ActivityRecord, error)
}
