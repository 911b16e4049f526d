package errors

import (
	"errors"
	"fmt"
)

// Category groups protocol errors so callers can map them to transport
// status codes without matching individual sentinels.
type Category string

const (
	CategoryValidation    Category = "validation"
	CategoryState         Category = "state"
	CategoryAuthorization Category = "authorization"
	CategoryResource      Category = "resource"
	CategoryConfiguration Category = "configuration"
	CategoryInfra         Category = "infra"
)

// Domain errors
var (
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInvalidDuration       = errors.New("maturity must be positive")
	ErrInvalidRate           = errors.New("interest rate must be positive")
	ErrInvalidLtv            = errors.New("ltv must be within (0, 10000] basis points")
	ErrInvalidPercentage     = errors.New("percentage must be within [1, 10000] basis points")
	ErrNoCollateralAssets    = errors.New("at least one collateral asset is required")
	ErrUnknownAsset          = errors.New("asset has no price feed")
	ErrOfferNotFound         = errors.New("offer not found")
	ErrOfferNotOpen          = errors.New("offer is not open for fills")
	ErrOfferNotCancellable   = errors.New("offer can no longer be cancelled")
	ErrInsufficientCapacity  = errors.New("requested amount exceeds offer capacity")
	ErrCollateralNotAccepted = errors.New("collateral asset not accepted by offer")
	ErrLoanNotFound          = errors.New("loan not found")
	ErrLoanNotActive         = errors.New("loan is not active")
	ErrLoanNotMatured        = errors.New("loan has not reached maturity")
	ErrUnauthorized          = errors.New("caller is not permitted to perform this operation")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrCollateralTooLow      = errors.New("collateral value below required minimum")
	ErrUnderPayment          = errors.New("payment below amount owed")
	ErrLtvNotConfigured      = errors.New("loan-to-value thresholds not configured")
	ErrPriceFeedMissing      = errors.New("price feed not configured for asset")
)

// Error codes
const (
	ErrCodeInvalidAmount         = "INVALID_AMOUNT"
	ErrCodeInvalidDuration       = "INVALID_DURATION"
	ErrCodeInvalidRate           = "INVALID_RATE"
	ErrCodeInvalidLtv            = "INVALID_LTV"
	ErrCodeInvalidPercentage     = "INVALID_PERCENTAGE"
	ErrCodeNoCollateralAssets    = "NO_COLLATERAL_ASSETS"
	ErrCodeUnknownAsset          = "UNKNOWN_ASSET"
	ErrCodeOfferNotFound         = "OFFER_NOT_FOUND"
	ErrCodeOfferNotOpen          = "OFFER_NOT_OPEN"
	ErrCodeOfferNotCancellable   = "OFFER_NOT_CANCELLABLE"
	ErrCodeInsufficientCapacity  = "INSUFFICIENT_OFFER_CAPACITY"
	ErrCodeCollateralNotAccepted = "COLLATERAL_ASSET_NOT_ACCEPTED"
	ErrCodeLoanNotFound          = "LOAN_NOT_FOUND"
	ErrCodeLoanNotActive         = "LOAN_NOT_ACTIVE"
	ErrCodeLoanNotMatured        = "LOAN_NOT_MATURED"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeInsufficientFunds     = "INSUFFICIENT_FUNDS"
	ErrCodeCollateralTooLow      = "COLLATERAL_INSUFFICIENT"
	ErrCodeUnderPayment          = "UNDER_PAYMENT"
	ErrCodeLtvNotConfigured      = "LTV_NOT_CONFIGURED"
	ErrCodePriceFeedMissing      = "PRICE_FEED_MISSING"
	ErrCodeDatabaseError         = "DATABASE_ERROR"
	ErrCodeCacheError            = "CACHE_ERROR"
)

// BusinessError represents a protocol-level failure of a single transaction.
// Transactions fail atomically: a returned BusinessError guarantees no
// partial state change was committed.
type BusinessError struct {
	Code     string
	Category Category
	Message  string
	Err      error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code string, category Category, message string, err error) *BusinessError {
	return &BusinessError{
		Code:     code,
		Category: category,
		Message:  message,
		Err:      err,
	}
}

// CategoryOf extracts the category from an error chain, defaulting to infra
// for errors that did not originate in the protocol core.
func CategoryOf(err error) Category {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Category
	}
	return CategoryInfra
}

// CodeOf extracts the protocol error code from an error chain.
func CodeOf(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ErrCodeDatabaseError
}

// Wrap common errors with business context

func WrapInvalidAmount(field string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidAmount,
		CategoryValidation,
		fmt.Sprintf("%s must be a positive integer", field),
		ErrInvalidAmount,
	)
}

func WrapInvalidDuration() *BusinessError {
	return NewBusinessError(ErrCodeInvalidDuration, CategoryValidation, "maturity days must be greater than zero", ErrInvalidDuration)
}

func WrapInvalidRate() *BusinessError {
	return NewBusinessError(ErrCodeInvalidRate, CategoryValidation, "interest rate per second must be greater than zero", ErrInvalidRate)
}

func WrapInvalidLtv(bps uint64) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidLtv,
		CategoryValidation,
		fmt.Sprintf("max LTV %d bps outside (0, 10000]", bps),
		ErrInvalidLtv,
	)
}

func WrapInvalidPercentage(bps uint64) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPercentage,
		CategoryValidation,
		fmt.Sprintf("percentage %d bps outside [1, 10000]", bps),
		ErrInvalidPercentage,
	)
}

func WrapNoCollateralAssets() *BusinessError {
	return NewBusinessError(ErrCodeNoCollateralAssets, CategoryValidation, "offer must accept at least one collateral asset", ErrNoCollateralAssets)
}

func WrapUnknownAsset(asset string) *BusinessError {
	return NewBusinessError(
		ErrCodeUnknownAsset,
		CategoryValidation,
		fmt.Sprintf("asset %s is not enabled", asset),
		ErrUnknownAsset,
	)
}

func WrapOfferNotFound(offerID uint64) *BusinessError {
	return NewBusinessError(
		ErrCodeOfferNotFound,
		CategoryState,
		fmt.Sprintf("offer %d not found", offerID),
		ErrOfferNotFound,
	)
}

func WrapOfferNotOpen(offerID uint64, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeOfferNotOpen,
		CategoryState,
		fmt.Sprintf("offer %d is %s and accepts no further draws", offerID, status),
		ErrOfferNotOpen,
	)
}

func WrapOfferNotCancellable(offerID uint64, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeOfferNotCancellable,
		CategoryState,
		fmt.Sprintf("offer %d is %s and cannot be cancelled", offerID, status),
		ErrOfferNotCancellable,
	)
}

func WrapInsufficientCapacity(offerID uint64, requested, remaining string) *BusinessError {
	return NewBusinessError(
		ErrCodeInsufficientCapacity,
		CategoryState,
		fmt.Sprintf("offer %d has %s remaining, %s requested", offerID, remaining, requested),
		ErrInsufficientCapacity,
	)
}

func WrapCollateralNotAccepted(offerID uint64, asset string) *BusinessError {
	return NewBusinessError(
		ErrCodeCollateralNotAccepted,
		CategoryState,
		fmt.Sprintf("offer %d does not accept %s as collateral", offerID, asset),
		ErrCollateralNotAccepted,
	)
}

func WrapLoanNotFound(loanID uint64) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		CategoryState,
		fmt.Sprintf("loan %d not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapLoanNotActive(loanID uint64, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotActive,
		CategoryState,
		fmt.Sprintf("loan %d is %s", loanID, status),
		ErrLoanNotActive,
	)
}

func WrapLoanNotMatured(loanID uint64) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotMatured,
		CategoryState,
		fmt.Sprintf("loan %d has not reached its maturity deadline", loanID),
		ErrLoanNotMatured,
	)
}

func WrapUnauthorized(caller, role string) *BusinessError {
	return NewBusinessError(
		ErrCodeUnauthorized,
		CategoryAuthorization,
		fmt.Sprintf("%s is not the %s", caller, role),
		ErrUnauthorized,
	)
}

func WrapInsufficientFunds(account, asset string) *BusinessError {
	return NewBusinessError(
		ErrCodeInsufficientFunds,
		CategoryResource,
		fmt.Sprintf("account %s has insufficient %s balance", account, asset),
		ErrInsufficientFunds,
	)
}

func WrapCollateralTooLow(required, offered string) *BusinessError {
	return NewBusinessError(
		ErrCodeCollateralTooLow,
		CategoryResource,
		fmt.Sprintf("collateral %s below required %s", offered, required),
		ErrCollateralTooLow,
	)
}

func WrapUnderPayment(owed, paid string) *BusinessError {
	return NewBusinessError(
		ErrCodeUnderPayment,
		CategoryResource,
		fmt.Sprintf("paid %s but %s is owed", paid, owed),
		ErrUnderPayment,
	)
}

func WrapLtvNotConfigured() *BusinessError {
	return NewBusinessError(ErrCodeLtvNotConfigured, CategoryConfiguration, "loan-to-value engine has no thresholds configured", ErrLtvNotConfigured)
}

func WrapPriceFeedMissing(asset string) *BusinessError {
	return NewBusinessError(
		ErrCodePriceFeedMissing,
		CategoryConfiguration,
		fmt.Sprintf("no price feed configured for %s", asset),
		ErrPriceFeedMissing,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(ErrCodeDatabaseError, CategoryInfra, "database operation failed", err)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(ErrCodeCacheError, CategoryInfra, "cache operation failed", err)
}
