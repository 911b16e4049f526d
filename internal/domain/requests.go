package domain

import "time"

// DTOs for requests and responses. Amounts travel as base-10 strings in
// smallest units so precision survives JSON.

type CreateOfferRequest struct {
	Lender           string   `json:"lender" validate:"required"`
	PrincipalAsset   string   `json:"principal_asset" validate:"required"`
	PrincipalAmount  string   `json:"principal_amount" validate:"required"`
	CollateralAssets []string `json:"collateral_assets" validate:"required,min=1"`
	MaturityDays     uint64   `json:"maturity_days" validate:"required,gt=0"`
	InterestPerSec   string   `json:"interest_rate_per_second" validate:"required"`
	MaxLtvBps        uint64   `json:"max_ltv_bps" validate:"required,gt=0,lte=10000"`
}

type AcceptOfferRequest struct {
	Borrower        string `json:"borrower" validate:"required"`
	Amount          string `json:"amount" validate:"required"`
	CollateralAsset string `json:"collateral_asset" validate:"required"`
}

type CancelOfferRequest struct {
	Caller string `json:"caller" validate:"required"`
}

type RepayLoanRequest struct {
	Payer         string `json:"payer" validate:"required"`
	PercentageBps uint64 `json:"percentage_bps" validate:"required,gte=1,lte=10000"`
	Payment       string `json:"payment" validate:"required"`
}

type LiquidateLoanRequest struct {
	Liquidator string `json:"liquidator" validate:"required"`
}

type DepositRequest struct {
	Asset  string `json:"asset" validate:"required"`
	Amount string `json:"amount" validate:"required"`
}

type OfferResponse struct {
	ID               uint64    `json:"id"`
	Lender           string    `json:"lender"`
	PrincipalAsset   string    `json:"principal_asset"`
	PrincipalAmount  string    `json:"principal_amount"`
	RemainingAmount  string    `json:"remaining_amount"`
	CollateralAssets []string  `json:"collateral_assets"`
	InterestPerSec   string    `json:"interest_rate_per_second"`
	MaturityDays     uint64    `json:"maturity_days"`
	MaxLtvBps        uint64    `json:"max_ltv_bps"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

type AcceptOfferResponse struct {
	LoanID           uint64 `json:"loan_id"`
	PrincipalAmount  string `json:"principal_amount"`
	CollateralAmount string `json:"collateral_amount"`
}

type LoanResponse struct {
	ID               uint64    `json:"id"`
	OfferID          uint64    `json:"offer_id"`
	Borrower         string    `json:"borrower"`
	Lender           string    `json:"lender"`
	PrincipalAsset   string    `json:"principal_asset"`
	PrincipalAmount  string    `json:"principal_amount"`
	CollateralAsset  string    `json:"collateral_asset"`
	CollateralAmount string    `json:"collateral_amount"`
	InterestPerSec   string    `json:"interest_rate_per_second"`
	MaturityDays     uint64    `json:"maturity_days"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	CurrentOwed      string    `json:"current_owed,omitempty"`
}

type RepayLoanResponse struct {
	LoanID             uint64 `json:"loan_id"`
	AmountPaid         string `json:"amount_paid"`
	ReleasedCollateral string `json:"released_collateral"`
	Status             string `json:"status"`
}

type LiquidateLoanResponse struct {
	LoanID           uint64 `json:"loan_id"`
	SeizedCollateral string `json:"seized_collateral"`
	Status           string `json:"status"`
}

type SetPriceFeedRequest struct {
	Asset string `json:"asset" validate:"required"`
	Price string `json:"price" validate:"required"`
}

type ActivityResponse struct {
	Account          string `json:"account"`
	CompletedLoans   uint64 `json:"completed_loans"`
	OnTimeRepayments uint64 `json:"on_time_repayments"`
	LateRepayments   uint64 `json:"late_repayments"`
	Defaults         uint64 `json:"defaults"`
	VolumeUsd        string `json:"volume_usd"`
	Score            uint64 `json:"score"`
}

type BalanceResponse struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

type LtvResponse struct {
	Account   string `json:"account"`
	Score     uint64 `json:"score"`
	MaxLtvBps uint64 `json:"max_ltv_bps"`
}

type OwedResponse struct {
	LoanID         uint64 `json:"loan_id"`
	ElapsedSeconds int64  `json:"elapsed_seconds"`
	TotalOwed      string `json:"total_owed"`
}
