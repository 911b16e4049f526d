package core

import (
	"math/big"
	"sync"
	"time"

	"github.com/darshprotocol/lending-engine/internal/domain"
	"github.com/darshprotocol/lending-engine/internal/oracle"
	customError "github.com/darshprotocol/lending-engine/pkg/errors"
)

// Capability interfaces for the external collaborators. Implementations are
// injected at construction so tests can substitute doubles.

type PriceSource interface {
	Price(asset domain.Asset) (*big.Int, error)
	HasPriceFeed(asset domain.Asset) bool
}

type LtvSource interface {
	ComputeMaxLtvBps(borrower domain.AccountID) (uint64, error)
}

type ActivityRecorder interface {
	Record(account domain.AccountID, kind domain.ActivityKind, amountUsd *big.Int, loanClosed bool)
}

type FeeTaker interface {
	TakeFee(amount *big.Int, asset domain.Asset) (net *big.Int, fee *big.Int)
}

type TokenCustody interface {
	TransferIn(account domain.AccountID, asset domain.Asset, amount *big.Int) error
	TransferOut(account domain.AccountID, asset domain.Asset, amount *big.Int) error
	Balance(account domain.AccountID, asset domain.Asset) *big.Int
}

// Collaborators bundles every external dependency the pool calls into.
// Assembled once at initialization and passed by reference; there are no
// mutable globals.
type Collaborators struct {
	Oracle   PriceSource
	Ltv      LtvSource
	Activity ActivityRecorder
	Fees     FeeTaker
	Custody  TokenCustody
}

// Pool orchestrates the offer book and loan ledger. Every public operation
// is one transaction: it runs to completion under a single mutex, and any
// failure after a custody pull rolls the pull back, so a returned error
// guarantees no observable state change. This serialization is the off-chain
// equivalent of the chain's global transaction ordering.
type Pool struct {
	mu     sync.Mutex
	deps   Collaborators
	offers *OfferBook
	loans  *LoanLedger
	nowFn  func() time.Time

	// offerWindow caps how long an open offer stays listed, in seconds.
	// Zero means each offer ages out on its own maturity window.
	offerWindow int64
}

func NewPool(deps Collaborators) *Pool {
	return &Pool{
		deps:   deps,
		offers: NewOfferBook(),
		loans:  NewLoanLedger(),
		nowFn:  time.Now,
	}
}

// SetNowFunc overrides the wall clock, used by tests and simulations.
func (p *Pool) SetNowFunc(now func() time.Time) {
	if p == nil || now == nil {
		return
	}
	p.nowFn = now
}

// CreateOffer escrows the lender's principal and posts a new open offer.
func (p *Pool) CreateOffer(lender domain.AccountID, principalAsset domain.Asset, amount *big.Int, collateralAssets []domain.Asset, maturityDays uint64, ratePerSecond *big.Int, maxLtvBps uint64) (*domain.Offer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return nil, customError.WrapInvalidAmount("principal amount")
	}
	if len(collateralAssets) == 0 {
		return nil, customError.WrapNoCollateralAssets()
	}
	if maturityDays == 0 {
		return nil, customError.WrapInvalidDuration()
	}
	if ratePerSecond == nil || ratePerSecond.Sign() <= 0 {
		return nil, customError.WrapInvalidRate()
	}
	if maxLtvBps == 0 || maxLtvBps > 10_000 {
		return nil, customError.WrapInvalidLtv(maxLtvBps)
	}
	if !p.deps.Oracle.HasPriceFeed(principalAsset) {
		return nil, customError.WrapUnknownAsset(principalAsset.String())
	}
	for _, asset := range collateralAssets {
		if !p.deps.Oracle.HasPriceFeed(asset) {
			return nil, customError.WrapUnknownAsset(asset.String())
		}
	}

	if err := p.deps.Custody.TransferIn(lender, principalAsset, amount); err != nil {
		return nil, err
	}

	offer := p.offers.create(lender, principalAsset, amount, collateralAssets, maturityDays, ratePerSecond, maxLtvBps, p.nowFn())
	return offer.Clone(), nil
}

// AcceptOffer draws requestedAmount against an offer. The borrower's LTV
// ceiling bounds the draw: the required collateral is the USD value of the
// principal divided by the effective LTV, converted into collateral units
// rounding up. The collateral pull is the only resource acquired before the
// commit point; every later failure refunds it.
func (p *Pool) AcceptOffer(offerID uint64, borrower domain.AccountID, requestedAmount *big.Int, collateralAsset domain.Asset) (*domain.Loan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if requestedAmount == nil || requestedAmount.Sign() <= 0 {
		return nil, customError.WrapInvalidAmount("requested amount")
	}

	offer, err := p.offers.checkFill(offerID, requestedAmount, collateralAsset)
	if err != nil {
		return nil, err
	}

	maxLtvBps, err := p.deps.Ltv.ComputeMaxLtvBps(borrower)
	if err != nil {
		return nil, err
	}
	if offer.MaxLtvBps < maxLtvBps {
		maxLtvBps = offer.MaxLtvBps
	}
	if maxLtvBps == 0 {
		return nil, customError.WrapInvalidLtv(maxLtvBps)
	}

	principalPrice, err := p.deps.Oracle.Price(offer.PrincipalAsset)
	if err != nil {
		return nil, err
	}
	collateralPrice, err := p.deps.Oracle.Price(collateralAsset)
	if err != nil {
		return nil, err
	}

	// requiredCollateral = principalUsd * 10000 / (maxLtv * collateralPrice),
	// rounded up so truncation can never leave the draw above the ceiling.
	numerator := new(big.Int).Mul(requestedAmount, principalPrice)
	numerator.Mul(numerator, basisPoints)
	denominator := new(big.Int).Mul(new(big.Int).SetUint64(maxLtvBps), collateralPrice)
	requiredCollateral := ceilDiv(numerator, denominator)
	if held := p.deps.Custody.Balance(borrower, collateralAsset); held.Cmp(requiredCollateral) < 0 {
		return nil, customError.WrapCollateralTooLow(requiredCollateral.String(), held.String())
	}

	if err := p.deps.Custody.TransferIn(borrower, collateralAsset, requiredCollateral); err != nil {
		return nil, err
	}

	rollback := func() {
		_ = p.deps.Custody.TransferOut(borrower, collateralAsset, requiredCollateral)
	}

	loan, err := p.loans.create(offer, borrower, requestedAmount, collateralAsset, requiredCollateral, p.nowFn())
	if err != nil {
		rollback()
		return nil, err
	}
	if err := p.deps.Custody.TransferOut(borrower, offer.PrincipalAsset, requestedAmount); err != nil {
		rollback()
		p.loans.discard(loan)
		return nil, err
	}
	p.offers.applyFill(offer, requestedAmount)

	p.deps.Activity.Record(borrower, domain.ActivityBorrowed, p.usdValue(requestedAmount, principalPrice), false)

	return loan.Clone(), nil
}

// CancelOffer refunds the remaining escrowed principal to the lender and
// closes the offer. Loans already drawn from it are untouched.
func (p *Pool) CancelOffer(offerID uint64, caller domain.AccountID) (*domain.Offer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	offer, err := p.offers.get(offerID)
	if err != nil {
		return nil, err
	}
	if offer.Lender != caller {
		return nil, customError.WrapUnauthorized(caller.String(), "offer lender")
	}
	if !offer.Status.Fillable() {
		return nil, customError.WrapOfferNotCancellable(offerID, string(offer.Status))
	}

	refund := new(big.Int).Set(offer.RemainingAmount)
	if err := p.deps.Custody.TransferOut(caller, offer.PrincipalAsset, refund); err != nil {
		return nil, err
	}
	offer.RemainingAmount.SetInt64(0)
	offer.Status = domain.OfferStatusCancelled
	return offer.Clone(), nil
}

// ExpireOffer retires an open offer whose listing window elapsed with
// capacity left, refunding the remainder to the lender. Expiry is evaluated
// lazily: nothing transitions until a keeper or caller invokes this.
func (p *Pool) ExpireOffer(offerID uint64) (*domain.Offer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	offer, err := p.offers.get(offerID)
	if err != nil {
		return nil, err
	}
	if !offer.Status.Fillable() {
		return nil, customError.WrapOfferNotOpen(offerID, string(offer.Status))
	}
	if p.nowFn().Unix() <= p.offerDeadline(offer) {
		return nil, customError.WrapOfferNotOpen(offerID, "not yet expired")
	}

	refund := new(big.Int).Set(offer.RemainingAmount)
	if err := p.deps.Custody.TransferOut(offer.Lender, offer.PrincipalAsset, refund); err != nil {
		return nil, err
	}
	p.offers.expire(offer)
	return offer.Clone(), nil
}

// RepayLoan settles percentageBps of the loan's current owed amount. The
// owed share is pulled from the payer, routed to the lender minus the
// protocol fee, and the matching slice of collateral is released back to
// the borrower. Full repayment retires the loan; partial repayment resets
// the accrual clock.
func (p *Pool) RepayLoan(loanID uint64, percentageBps uint64, payment *big.Int, payer domain.AccountID) (*big.Int, *domain.Loan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if percentageBps == 0 || percentageBps > 10_000 {
		return nil, nil, customError.WrapInvalidPercentage(percentageBps)
	}
	loan, err := p.loans.getActive(loanID)
	if err != nil {
		return nil, nil, err
	}

	now := p.nowFn()
	totalOwed := FullInterestAmount(loan.PrincipalAmount, p.elapsedSeconds(loan, now), loan.InterestRatePerSecond)
	owedShare := totalOwed
	if percentageBps < 10_000 {
		owedShare = bpsShare(totalOwed, percentageBps)
	}
	if payment == nil || payment.Cmp(owedShare) < 0 {
		paid := "0"
		if payment != nil {
			paid = payment.String()
		}
		return nil, nil, customError.WrapUnderPayment(owedShare.String(), paid)
	}

	// Pull exactly the owed share; any overpayment stays with the payer.
	if err := p.deps.Custody.TransferIn(payer, loan.PrincipalAsset, owedShare); err != nil {
		return nil, nil, err
	}
	net, _ := p.deps.Fees.TakeFee(owedShare, loan.PrincipalAsset)
	if err := p.deps.Custody.TransferOut(loan.Lender, loan.PrincipalAsset, net); err != nil {
		_ = p.deps.Custody.TransferOut(payer, loan.PrincipalAsset, owedShare)
		return nil, nil, err
	}

	// Timeliness is judged against the deadline as it stood when the payment
	// arrived; applyRepayment resets the accrual clock on partial repays.
	onTime := now.Unix() <= loan.CreatedAt.Unix()+int64(loan.MaturityDays)*86_400

	released := p.loans.applyRepayment(loan, percentageBps, now)
	if err := p.deps.Custody.TransferOut(loan.Borrower, loan.CollateralAsset, released); err != nil {
		// Custody holds the released slice in pool escrow until the
		// borrower can receive it; the repayment itself stands.
		released = big.NewInt(0)
	}

	kind := domain.ActivityRepaidLate
	if onTime {
		kind = domain.ActivityRepaidOnTime
	}
	closed := loan.Status == domain.LoanStatusRepaid
	p.deps.Activity.Record(loan.Borrower, kind, p.assetUsdValue(loan.PrincipalAsset, owedShare), closed)

	return released, loan.Clone(), nil
}

// LiquidateLoan seizes a matured loan's collateral and hands it to the
// lender minus the protocol fee. The loan passes Active into Defaulted and
// then Liquidated within this one transaction; a second call finds it
// terminal and fails with LoanNotActive.
func (p *Pool) LiquidateLoan(loanID uint64, liquidator domain.AccountID) (*big.Int, *domain.Loan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	loan, err := p.loans.getActive(loanID)
	if err != nil {
		return nil, nil, err
	}
	if !loan.Matured(p.nowFn()) {
		return nil, nil, customError.WrapLoanNotMatured(loanID)
	}

	seized := new(big.Int).Set(loan.CollateralAmount)
	net, _ := p.deps.Fees.TakeFee(seized, loan.CollateralAsset)
	if err := p.deps.Custody.TransferOut(loan.Lender, loan.CollateralAsset, net); err != nil {
		return nil, nil, err
	}
	p.loans.applyLiquidation(loan)

	p.deps.Activity.Record(loan.Borrower, domain.ActivityDefaulted, p.assetUsdValue(loan.CollateralAsset, seized), false)

	return seized, loan.Clone(), nil
}

// OwedAmount reports the loan's total owed at the current clock without
// mutating anything.
func (p *Pool) OwedAmount(loanID uint64) (*big.Int, int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	loan, err := p.loans.get(loanID)
	if err != nil {
		return nil, 0, err
	}
	elapsed := p.elapsedSeconds(loan, p.nowFn())
	return FullInterestAmount(loan.PrincipalAmount, elapsed, loan.InterestRatePerSecond), elapsed, nil
}

// GetOffer returns a snapshot of the offer.
func (p *Pool) GetOffer(offerID uint64) (*domain.Offer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	offer, err := p.offers.get(offerID)
	if err != nil {
		return nil, err
	}
	return offer.Clone(), nil
}

// GetLoan returns a snapshot of the loan.
func (p *Pool) GetLoan(loanID uint64) (*domain.Loan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	loan, err := p.loans.get(loanID)
	if err != nil {
		return nil, err
	}
	return loan.Clone(), nil
}

// ListOffers returns snapshots of all offers in insertion order.
func (p *Pool) ListOffers() []*domain.Offer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offers.list()
}

// ListLoans returns snapshots of all loans in insertion order.
func (p *Pool) ListLoans() []*domain.Loan {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loans.list()
}

// MaturedActiveLoans returns the ids of Active loans past their maturity
// deadline at the current clock. Keepers sweep this.
func (p *Pool) MaturedActiveLoans() []uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.nowFn()
	var out []uint64
	for _, loan := range p.loans.order {
		if loan.Status == domain.LoanStatusActive && loan.Matured(now) {
			out = append(out, loan.ID)
		}
	}
	return out
}

// AgedOpenOffers returns the ids of fillable offers whose listing window
// elapsed with capacity remaining.
func (p *Pool) AgedOpenOffers() []uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.nowFn().Unix()
	var out []uint64
	for _, offer := range p.offers.order {
		if !offer.Status.Fillable() {
			continue
		}
		if now > p.offerDeadline(offer) {
			out = append(out, offer.ID)
		}
	}
	return out
}

// SetOfferListingWindow caps the listing lifetime of open offers at the
// given number of days. Zero restores the per-offer maturity window.
func (p *Pool) SetOfferListingWindow(days uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offerWindow = int64(days) * 86_400
}

func (p *Pool) offerDeadline(offer *domain.Offer) int64 {
	if p.offerWindow > 0 {
		return offer.CreatedAt.Unix() + p.offerWindow
	}
	return offer.CreatedAt.Unix() + int64(offer.MaturityDays)*86_400
}

func (p *Pool) elapsedSeconds(loan *domain.Loan, now time.Time) int64 {
	elapsed := now.Unix() - loan.CreatedAt.Unix()
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

func (p *Pool) usdValue(amount, price *big.Int) *big.Int {
	return mulDiv(amount, price, oracle.PriceScale)
}

func (p *Pool) assetUsdValue(asset domain.Asset, amount *big.Int) *big.Int {
	price, err := p.deps.Oracle.Price(asset)
	if err != nil {
		return nil
	}
	return p.usdValue(amount, price)
}
