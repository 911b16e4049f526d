package core

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darshprotocol/lending-engine/internal/custody"
	"github.com/darshprotocol/lending-engine/internal/domain"
	"github.com/darshprotocol/lending-engine/internal/fees"
	"github.com/darshprotocol/lending-engine/internal/ltv"
	"github.com/darshprotocol/lending-engine/internal/oracle"
	"github.com/darshprotocol/lending-engine/internal/reputation"
	customError "github.com/darshprotocol/lending-engine/pkg/errors"
)

const (
	lender   = domain.AccountID("0xlender")
	borrower = domain.AccountID("0xborrower")
	keeper   = domain.AccountID("0xkeeper")

	dai  = domain.Asset("0xdai")
	usdc = domain.Asset("0xusdc")
)

type poolFixture struct {
	pool     *Pool
	book     *custody.Book
	feeds    *oracle.FeedTable
	activity *reputation.Log
	now      time.Time
	rateSec  *big.Int
}

func (f *poolFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// newPoolFixture wires a pool against real in-process collaborators: DAI at
// 1 USD, USDC at 2 USD, a flat 8000 bps LTV curve and a zero protocol fee so
// amounts stay exact.
func newPoolFixture(t *testing.T) *poolFixture {
	t.Helper()

	feeds := oracle.NewFeedTable()
	feeds.Set(dai, big.NewInt(100_000_000))
	feeds.Set(usdc, big.NewInt(200_000_000))

	activity := reputation.NewLog(reputation.Config{BaseScore: 100, FloorScore: 50})
	ltvEngine := ltv.NewEngine(activity)
	require.NoError(t, ltvEngine.SetConfig(ltv.Config{
		LowScoreThreshold:  100,
		HighScoreThreshold: 120,
		LowLtvBps:          8_000,
		HighLtvBps:         8_000,
	}))

	f := &poolFixture{
		book:     custody.NewBook(),
		feeds:    feeds,
		activity: activity,
		now:      time.Unix(1_700_000_000, 0),
		rateSec:  big.NewInt(385_802_400_000),
	}
	f.pool = NewPool(Collaborators{
		Oracle:   feeds,
		Ltv:      ltvEngine,
		Activity: activity,
		Fees:     fees.NewManager(0),
		Custody:  f.book,
	})
	f.pool.SetNowFunc(func() time.Time { return f.now })
	activity.SetNowFunc(func() time.Time { return f.now })

	f.book.Deposit(lender, dai, big.NewInt(1_000_000))
	f.book.Deposit(borrower, usdc, big.NewInt(1_000_000))
	f.book.Deposit(borrower, dai, big.NewInt(1_000_000))
	return f
}

func (f *poolFixture) createOffer(t *testing.T, amount int64) *domain.Offer {
	t.Helper()
	offer, err := f.pool.CreateOffer(lender, dai, big.NewInt(amount), []domain.Asset{usdc}, 30, f.rateSec, 8_000)
	require.NoError(t, err)
	return offer
}

func TestCreateOffer_EscrowsPrincipal(t *testing.T) {
	f := newPoolFixture(t)

	offer := f.createOffer(t, 1_000)

	assert.Equal(t, uint64(1), offer.ID)
	assert.Equal(t, domain.OfferStatusOpen, offer.Status)
	assert.Equal(t, "1000", offer.RemainingAmount.String())
	assert.Equal(t, "999000", f.book.Balance(lender, dai).String())
	assert.Equal(t, "1000", f.book.Balance(custody.PoolAccount, dai).String())
}

func TestCreateOffer_Validation(t *testing.T) {
	f := newPoolFixture(t)

	_, err := f.pool.CreateOffer(lender, dai, big.NewInt(0), []domain.Asset{usdc}, 30, f.rateSec, 8_000)
	assert.ErrorIs(t, err, customError.ErrInvalidAmount)

	_, err = f.pool.CreateOffer(lender, dai, big.NewInt(100), nil, 30, f.rateSec, 8_000)
	assert.ErrorIs(t, err, customError.ErrNoCollateralAssets)

	_, err = f.pool.CreateOffer(lender, dai, big.NewInt(100), []domain.Asset{usdc}, 0, f.rateSec, 8_000)
	assert.ErrorIs(t, err, customError.ErrInvalidDuration)

	_, err = f.pool.CreateOffer(lender, dai, big.NewInt(100), []domain.Asset{usdc}, 30, f.rateSec, 10_001)
	assert.ErrorIs(t, err, customError.ErrInvalidLtv)

	_, err = f.pool.CreateOffer(lender, domain.Asset("0xunknown"), big.NewInt(100), []domain.Asset{usdc}, 30, f.rateSec, 8_000)
	assert.ErrorIs(t, err, customError.ErrUnknownAsset)
}

func TestCreateOffer_InsufficientFunds(t *testing.T) {
	f := newPoolFixture(t)

	_, err := f.pool.CreateOffer(lender, dai, big.NewInt(2_000_000), []domain.Asset{usdc}, 30, f.rateSec, 8_000)

	assert.ErrorIs(t, err, customError.ErrInsufficientFunds)
	assert.Empty(t, f.pool.ListOffers())
}

func TestAcceptOffer_CollateralRoundsUp(t *testing.T) {
	// 500 DAI at 1 USD against USDC at 2 USD with an 8000 bps ceiling:
	// 500 / 0.8 / 2 = 312.5, charged as 313 units.
	f := newPoolFixture(t)
	offer := f.createOffer(t, 1_000)

	loan, err := f.pool.AcceptOffer(offer.ID, borrower, big.NewInt(500), usdc)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), loan.ID)
	assert.Equal(t, offer.ID, loan.OfferID)
	assert.Equal(t, "500", loan.PrincipalAmount.String())
	assert.Equal(t, "313", loan.CollateralAmount.String())
	assert.Equal(t, lender, loan.Lender)
	assert.Equal(t, domain.LoanStatusActive, loan.Status)

	updated, err := f.pool.GetOffer(offer.ID)
	require.NoError(t, err)
	assert.Equal(t, "500", updated.RemainingAmount.String())
	assert.Equal(t, domain.OfferStatusPartiallyFilled, updated.Status)

	// Borrower paid 313 USDC in and received 500 DAI.
	assert.Equal(t, "999687", f.book.Balance(borrower, usdc).String())
	assert.Equal(t, "1000500", f.book.Balance(borrower, dai).String())
}

func TestAcceptOffer_CollateralTooLow(t *testing.T) {
	f := newPoolFixture(t)
	offer := f.createOffer(t, 1_000)
	broke := domain.AccountID("0xbroke")
	f.book.Deposit(broke, usdc, big.NewInt(100)) // 313 required for a 500 draw

	_, err := f.pool.AcceptOffer(offer.ID, broke, big.NewInt(500), usdc)

	assert.ErrorIs(t, err, customError.ErrCollateralTooLow)
	assert.Equal(t, "100", f.book.Balance(broke, usdc).String())
	updated, getErr := f.pool.GetOffer(offer.ID)
	require.NoError(t, getErr)
	assert.Equal(t, "1000", updated.RemainingAmount.String())
}

func TestAcceptOffer_CapacityConserved(t *testing.T) {
	f := newPoolFixture(t)
	offer := f.createOffer(t, 1_000)

	filled := big.NewInt(0)
	for _, amount := range []int64{200, 300, 500} {
		loan, err := f.pool.AcceptOffer(offer.ID, borrower, big.NewInt(amount), usdc)
		require.NoError(t, err)
		filled.Add(filled, loan.PrincipalAmount)

		snapshot, err := f.pool.GetOffer(offer.ID)
		require.NoError(t, err)
		total := new(big.Int).Add(filled, snapshot.RemainingAmount)
		assert.Equal(t, "1000", total.String(), "fills plus remaining must equal principal")
	}

	snapshot, err := f.pool.GetOffer(offer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferStatusFilled, snapshot.Status)

	_, err = f.pool.AcceptOffer(offer.ID, borrower, big.NewInt(1), usdc)
	assert.ErrorIs(t, err, customError.ErrOfferNotOpen)
}

func TestAcceptOffer_OverCapacityNoMutation(t *testing.T) {
	f := newPoolFixture(t)
	offer := f.createOffer(t, 1_000)
	balanceBefore := f.book.Balance(borrower, usdc)

	_, err := f.pool.AcceptOffer(offer.ID, borrower, big.NewInt(1_500), usdc)

	assert.ErrorIs(t, err, customError.ErrInsufficientCapacity)
	snapshot, getErr := f.pool.GetOffer(offer.ID)
	require.NoError(t, getErr)
	assert.Equal(t, "1000", snapshot.RemainingAmount.String())
	assert.Equal(t, domain.OfferStatusOpen, snapshot.Status)
	assert.Equal(t, balanceBefore.String(), f.book.Balance(borrower, usdc).String())
	assert.Empty(t, f.pool.ListLoans())
}

func TestAcceptOffer_RejectsUnlistedCollateral(t *testing.T) {
	f := newPoolFixture(t)
	offer := f.createOffer(t, 1_000)

	_, err := f.pool.AcceptOffer(offer.ID, borrower, big.NewInt(100), dai)

	assert.ErrorIs(t, err, customError.ErrCollateralNotAccepted)
}

func TestAcceptOffer_UnknownOffer(t *testing.T) {
	f := newPoolFixture(t)

	_, err := f.pool.AcceptOffer(99, borrower, big.NewInt(100), usdc)

	assert.ErrorIs(t, err, customError.ErrOfferNotFound)
}

func TestCancelOffer_RefundsRemaining(t *testing.T) {
	f := newPoolFixture(t)
	offer := f.createOffer(t, 1_000)

	cancelled, err := f.pool.CancelOffer(offer.ID, lender)
	require.NoError(t, err)

	assert.Equal(t, domain.OfferStatusCancelled, cancelled.Status)
	assert.Equal(t, "0", cancelled.RemainingAmount.String())
	assert.Equal(t, "1000000", f.book.Balance(lender, dai).String())
}

func TestCancelOffer_Unauthorized(t *testing.T) {
	f := newPoolFixture(t)
	offer := f.createOffer(t, 1_000)

	_, err := f.pool.CancelOffer(offer.ID, borrower)

	assert.ErrorIs(t, err, customError.ErrUnauthorized)
}

func TestCancelOffer_FilledNotCancellable(t *testing.T) {
	f := newPoolFixture(t)
	offer := f.createOffer(t, 1_000)
	_, err := f.pool.AcceptOffer(offer.ID, borrower, big.NewInt(1_000), usdc)
	require.NoError(t, err)

	_, err = f.pool.CancelOffer(offer.ID, lender)

	assert.ErrorIs(t, err, customError.ErrOfferNotCancellable)
}

func TestCancelOffer_LeavesExistingLoansAlone(t *testing.T) {
	f := newPoolFixture(t)
	offer := f.createOffer(t, 1_000)
	loan, err := f.pool.AcceptOffer(offer.ID, borrower, big.NewInt(400), usdc)
	require.NoError(t, err)

	_, err = f.pool.CancelOffer(offer.ID, lender)
	require.NoError(t, err)

	snapshot, err := f.pool.GetLoan(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, snapshot.Status)
	assert.Equal(t, "400", snapshot.PrincipalAmount.String())
}

func TestRepayLoan_FullReleasesAllCollateral(t *testing.T) {
	f := newPoolFixture(t)
	offer := f.createOffer(t, 1_000)
	loan, err := f.pool.AcceptOffer(offer.ID, borrower, big.NewInt(500), usdc)
	require.NoError(t, err)

	f.advance(10 * 24 * time.Hour)
	owed, _, err := f.pool.OwedAmount(loan.ID)
	require.NoError(t, err)

	released, settled, err := f.pool.RepayLoan(loan.ID, 10_000, owed, borrower)
	require.NoError(t, err)

	assert.Equal(t, "313", released.String())
	assert.Equal(t, domain.LoanStatusRepaid, settled.Status)
	assert.Equal(t, "0", settled.CollateralAmount.String())
	// Lender received principal plus interest with a zero fee schedule.
	lenderBalance := f.book.Balance(lender, dai)
	assert.Equal(t, new(big.Int).Add(big.NewInt(999_000), owed).String(), lenderBalance.String())
}

func TestRepayLoan_UnderPayment(t *testing.T) {
	f := newPoolFixture(t)
	offer := f.createOffer(t, 1_000)
	loan, err := f.pool.AcceptOffer(offer.ID, borrower, big.NewInt(500), usdc)
	require.NoError(t, err)

	f.advance(24 * time.Hour)
	owed, _, err := f.pool.OwedAmount(loan.ID)
	require.NoError(t, err)
	short := new(big.Int).Sub(owed, big.NewInt(1))

	_, _, err = f.pool.RepayLoan(loan.ID, 10_000, short, borrower)

	assert.ErrorIs(t, err, customError.ErrUnderPayment)
	snapshot, getErr := f.pool.GetLoan(loan.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.LoanStatusActive, snapshot.Status)
}

func TestRepayLoan_HalfTwiceMatchesFullOnce(t *testing.T) {
	f := newPoolFixture(t)
	offer := f.createOffer(t, 1_000)
	loan, err := f.pool.AcceptOffer(offer.ID, borrower, big.NewInt(500), usdc)
	require.NoError(t, err)

	payment := big.NewInt(1_000_000)

	released1, after1, err := f.pool.RepayLoan(loan.ID, 5_000, payment, borrower)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, after1.Status)
	assert.Equal(t, "250", after1.PrincipalAmount.String())

	released2, after2, err := f.pool.RepayLoan(loan.ID, 10_000, payment, borrower)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusRepaid, after2.Status)

	total := new(big.Int).Add(released1, released2)
	assert.Equal(t, "313", total.String(), "both halves together release all collateral")
}

func TestRepayLoan_PartialResetsAccrualClock(t *testing.T) {
	f := newPoolFixture(t)
	offer := f.createOffer(t, 1_000)
	loan, err := f.pool.AcceptOffer(offer.ID, borrower, big.NewInt(500), usdc)
	require.NoError(t, err)

	f.advance(10 * 24 * time.Hour)
	_, after, err := f.pool.RepayLoan(loan.ID, 5_000, big.NewInt(1_000_000), borrower)
	require.NoError(t, err)
	assert.Equal(t, f.now.Unix(), after.CreatedAt.Unix())

	// Immediately after a partial repayment nothing further has accrued.
	owed, elapsed, err := f.pool.OwedAmount(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), elapsed)
	assert.Equal(t, after.PrincipalAmount.String(), owed.String())
}

func TestRepayLoan_LatePartialRecordedLate(t *testing.T) {
	f := newPoolFixture(t)
	offer := f.createOffer(t, 1_000)
	loan, err := f.pool.AcceptOffer(offer.ID, borrower, big.NewInt(500), usdc)
	require.NoError(t, err)

	// Ten days past the 30-day maturity: counted late even though the
	// partial repayment resets the accrual clock.
	f.advance(40 * 24 * time.Hour)
	_, _, err = f.pool.RepayLoan(loan.ID, 5_000, big.NewInt(1_000_000), borrower)
	require.NoError(t, err)

	summary := f.activity.GetActivity(borrower)
	assert.Equal(t, uint64(1), summary.LateRepayments)
	assert.Equal(t, uint64(0), summary.OnTimeRepayments)
}

func TestRepayLoan_PartialBeforeMaturityRecordedOnTime(t *testing.T) {
	f := newPoolFixture(t)
	offer := f.createOffer(t, 1_000)
	loan, err := f.pool.AcceptOffer(offer.ID, borrower, big.NewInt(500), usdc)
	require.NoError(t, err)

	f.advance(10 * 24 * time.Hour)
	_, _, err = f.pool.RepayLoan(loan.ID, 5_000, big.NewInt(1_000_000), borrower)
	require.NoError(t, err)

	summary := f.activity.GetActivity(borrower)
	assert.Equal(t, uint64(1), summary.OnTimeRepayments)
	assert.Equal(t, uint64(0), summary.LateRepayments)
}

func TestRepayLoan_TerminalLoanRejected(t *testing.T) {
	f := newPoolFixture(t)
	offer := f.createOffer(t, 1_000)
	loan, err := f.pool.AcceptOffer(offer.ID, borrower, big.NewInt(500), usdc)
	require.NoError(t, err)
	_, _, err = f.pool.RepayLoan(loan.ID, 10_000, big.NewInt(1_000_000), borrower)
	require.NoError(t, err)

	_, _, err = f.pool.RepayLoan(loan.ID, 10_000, big.NewInt(1_000_000), borrower)

	assert.ErrorIs(t, err, customError.ErrLoanNotActive)
}

func TestLiquidateLoan_ExactlyOnce(t *testing.T) {
	f := newPoolFixture(t)
	offer := f.createOffer(t, 1_000)
	loan, err := f.pool.AcceptOffer(offer.ID, borrower, big.NewInt(500), usdc)
	require.NoError(t, err)

	// Before maturity the keeper is turned away.
	_, _, err = f.pool.LiquidateLoan(loan.ID, keeper)
	assert.ErrorIs(t, err, customError.ErrLoanNotMatured)

	f.advance(31 * 24 * time.Hour)
	seized, settled, err := f.pool.LiquidateLoan(loan.ID, keeper)
	require.NoError(t, err)
	assert.Equal(t, "313", seized.String())
	assert.Equal(t, domain.LoanStatusLiquidated, settled.Status)
	// Seized collateral lands with the lender.
	assert.Equal(t, "313", f.book.Balance(lender, usdc).String())

	_, _, err = f.pool.LiquidateLoan(loan.ID, keeper)
	assert.ErrorIs(t, err, customError.ErrLoanNotActive)
}

func TestMaturedActiveLoans(t *testing.T) {
	f := newPoolFixture(t)
	offer := f.createOffer(t, 1_000)
	loan, err := f.pool.AcceptOffer(offer.ID, borrower, big.NewInt(500), usdc)
	require.NoError(t, err)

	assert.Empty(t, f.pool.MaturedActiveLoans())

	f.advance(31 * 24 * time.Hour)
	assert.Equal(t, []uint64{loan.ID}, f.pool.MaturedActiveLoans())
}

func TestExpireOffer_RefundsLender(t *testing.T) {
	f := newPoolFixture(t)
	offer := f.createOffer(t, 1_000)

	_, err := f.pool.ExpireOffer(offer.ID)
	assert.Error(t, err, "offer inside its window must not expire")

	f.advance(31 * 24 * time.Hour)
	expired, err := f.pool.ExpireOffer(offer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferStatusExpired, expired.Status)
	assert.Equal(t, "1000000", f.book.Balance(lender, dai).String())

	_, err = f.pool.AcceptOffer(offer.ID, borrower, big.NewInt(1), usdc)
	assert.ErrorIs(t, err, customError.ErrOfferNotOpen)
}

func TestExpireOffer_ListingWindowOverridesMaturity(t *testing.T) {
	f := newPoolFixture(t)
	f.pool.SetOfferListingWindow(10)
	offer := f.createOffer(t, 1_000) // 30-day maturity

	f.advance(9 * 24 * time.Hour)
	_, err := f.pool.ExpireOffer(offer.ID)
	assert.Error(t, err, "offer inside the listing window must not expire")
	assert.Empty(t, f.pool.AgedOpenOffers())

	f.advance(2 * 24 * time.Hour)
	assert.Equal(t, []uint64{offer.ID}, f.pool.AgedOpenOffers())
	expired, err := f.pool.ExpireOffer(offer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferStatusExpired, expired.Status)
	assert.Equal(t, "1000000", f.book.Balance(lender, dai).String())
}

func TestLoanIDsNeverReused(t *testing.T) {
	f := newPoolFixture(t)
	offer := f.createOffer(t, 1_000)

	first, err := f.pool.AcceptOffer(offer.ID, borrower, big.NewInt(100), usdc)
	require.NoError(t, err)
	second, err := f.pool.AcceptOffer(offer.ID, borrower, big.NewInt(100), usdc)
	require.NoError(t, err)

	assert.Equal(t, first.ID+1, second.ID)
}
