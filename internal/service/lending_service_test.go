package service

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/darshprotocol/lending-engine/internal/config"
	"github.com/darshprotocol/lending-engine/internal/domain"
	"github.com/darshprotocol/lending-engine/internal/repository"
	customError "github.com/darshprotocol/lending-engine/pkg/errors"
	"github.com/darshprotocol/lending-engine/tests/mocks"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Protocol = config.ProtocolConfig{
		FeeBps:             0,
		BaseScore:          100,
		FloorScore:         50,
		LowScoreThreshold:  100,
		HighScoreThreshold: 120,
		LowLtvBps:          2000,
		HighLtvBps:         8000,
		OfferMaxAgeDays:    30,
		NativePriceUsd:     "100000000",
	}
	return cfg
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type serviceFixture struct {
	service       *LendingService
	offerRepo     *mocks.MockOfferRepository
	loanRepo      *mocks.MockLoanRepository
	repaymentRepo *mocks.MockRepaymentRepository
	activityRepo  *mocks.MockActivityRepository
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	offerRepo := &mocks.MockOfferRepository{}
	loanRepo := &mocks.MockLoanRepository{}
	repaymentRepo := &mocks.MockRepaymentRepository{}
	activityRepo := &mocks.MockActivityRepository{}

	svc, err := NewLendingService(offerRepo, loanRepo, repaymentRepo, activityRepo, nil, testConfig(), testLogger())
	require.NoError(t, err)

	return &serviceFixture{
		service:       svc,
		offerRepo:     offerRepo,
		loanRepo:      loanRepo,
		repaymentRepo: repaymentRepo,
		activityRepo:  activityRepo,
	}
}

// seedMarket installs price feeds and funds the two participants.
func (f *serviceFixture) seedMarket(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.service.SetPriceFeed(ctx, &domain.SetPriceFeedRequest{Asset: "0xdai", Price: "100000000"}))
	require.NoError(t, f.service.SetPriceFeed(ctx, &domain.SetPriceFeedRequest{Asset: "0xusdc", Price: "100000000"}))

	_, err := f.service.Deposit(ctx, "0xlender", &domain.DepositRequest{Asset: "0xdai", Amount: "1000000"})
	require.NoError(t, err)
	_, err = f.service.Deposit(ctx, "0xborrower", &domain.DepositRequest{Asset: "0xusdc", Amount: "1000000"})
	require.NoError(t, err)
	_, err = f.service.Deposit(ctx, "0xborrower", &domain.DepositRequest{Asset: "0xdai", Amount: "1000000"})
	require.NoError(t, err)
}

func TestCreateOffer_ArchivesSnapshot(t *testing.T) {
	f := newServiceFixture(t)
	f.seedMarket(t)

	f.offerRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(record *repository.OfferRecord) bool {
		return record.OfferID == 1 && record.Status == "open"
	})).Return(nil)

	offer, err := f.service.CreateOffer(context.Background(), &domain.CreateOfferRequest{
		Lender:           "0xlender",
		PrincipalAsset:   "0xdai",
		PrincipalAmount:  "1000",
		CollateralAssets: []string{"0xusdc"},
		MaturityDays:     30,
		InterestPerSec:   "1",
		MaxLtvBps:        8000,
	})

	require.NoError(t, err)
	assert.Equal(t, uint64(1), offer.ID)
	assert.Equal(t, "1000", offer.RemainingAmount)
	assert.Equal(t, "open", offer.Status)

	f.offerRepo.AssertExpectations(t)
}

func TestCreateOffer_InvalidAmountRejected(t *testing.T) {
	f := newServiceFixture(t)
	f.seedMarket(t)

	_, err := f.service.CreateOffer(context.Background(), &domain.CreateOfferRequest{
		Lender:           "0xlender",
		PrincipalAsset:   "0xdai",
		PrincipalAmount:  "not-a-number",
		CollateralAssets: []string{"0xusdc"},
		MaturityDays:     30,
		InterestPerSec:   "1",
		MaxLtvBps:        8000,
	})

	assert.ErrorIs(t, err, customError.ErrInvalidAmount)
	f.offerRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestAcceptOffer_WritesLoanAndActivity(t *testing.T) {
	f := newServiceFixture(t)
	f.seedMarket(t)

	f.offerRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.loanRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(record *repository.LoanRecord) bool {
		return record.LoanID == 1 && record.Borrower == "0xborrower" && record.Status == "active"
	})).Return(nil)
	f.activityRepo.On("Create", mock.Anything, mock.MatchedBy(func(record *repository.ActivityRecord) bool {
		return record.Account == "0xborrower" && record.Kind == "borrowed"
	})).Return(nil)

	offer, err := f.service.CreateOffer(context.Background(), &domain.CreateOfferRequest{
		Lender:           "0xlender",
		PrincipalAsset:   "0xdai",
		PrincipalAmount:  "1000",
		CollateralAssets: []string{"0xusdc"},
		MaturityDays:     30,
		InterestPerSec:   "1",
		MaxLtvBps:        8000,
	})
	require.NoError(t, err)

	accepted, err := f.service.AcceptOffer(context.Background(), offer.ID, &domain.AcceptOfferRequest{
		Borrower:        "0xborrower",
		Amount:          "500",
		CollateralAsset: "0xusdc",
	})

	require.NoError(t, err)
	assert.Equal(t, uint64(1), accepted.LoanID)
	assert.Equal(t, "500", accepted.PrincipalAmount)
	// score 100 on a 100→2000bps curve: collateral = 500/0.20, rounded up.
	assert.Equal(t, "2500", accepted.CollateralAmount)

	f.loanRepo.AssertExpectations(t)
	f.activityRepo.AssertExpectations(t)
}

func TestRepayLoan_FullCycle(t *testing.T) {
	f := newServiceFixture(t)
	f.seedMarket(t)

	f.offerRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.loanRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.activityRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.repaymentRepo.On("Create", mock.Anything, mock.MatchedBy(func(record *repository.RepaymentRecord) bool {
		return record.LoanID == 1 && record.PercentageBps == 10_000
	})).Return(nil)

	offer, err := f.service.CreateOffer(context.Background(), &domain.CreateOfferRequest{
		Lender:           "0xlender",
		PrincipalAsset:   "0xdai",
		PrincipalAmount:  "1000",
		CollateralAssets: []string{"0xusdc"},
		MaturityDays:     30,
		InterestPerSec:   "1",
		MaxLtvBps:        8000,
	})
	require.NoError(t, err)

	accepted, err := f.service.AcceptOffer(context.Background(), offer.ID, &domain.AcceptOfferRequest{
		Borrower:        "0xborrower",
		Amount:          "500",
		CollateralAsset: "0xusdc",
	})
	require.NoError(t, err)

	// A rate of 1e-18 per second accrues nothing measurable within the test,
	// so the owed amount is exactly the principal.
	repaid, err := f.service.RepayLoan(context.Background(), accepted.LoanID, &domain.RepayLoanRequest{
		Payer:         "0xborrower",
		PercentageBps: 10_000,
		Payment:       "500",
	})

	require.NoError(t, err)
	assert.Equal(t, "repaid", repaid.Status)
	assert.Equal(t, accepted.CollateralAmount, repaid.ReleasedCollateral)

	f.repaymentRepo.AssertExpectations(t)
}

func TestRepayLoan_ArchiveFailureDoesNotFailRepayment(t *testing.T) {
	f := newServiceFixture(t)
	f.seedMarket(t)

	f.offerRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.loanRepo.On("Upsert", mock.Anything, mock.Anything).Return(assert.AnError)
	f.repaymentRepo.On("Create", mock.Anything, mock.Anything).Return(assert.AnError)
	f.activityRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	offer, err := f.service.CreateOffer(context.Background(), &domain.CreateOfferRequest{
		Lender:           "0xlender",
		PrincipalAsset:   "0xdai",
		PrincipalAmount:  "1000",
		CollateralAssets: []string{"0xusdc"},
		MaturityDays:     30,
		InterestPerSec:   "1",
		MaxLtvBps:        8000,
	})
	require.NoError(t, err)

	accepted, err := f.service.AcceptOffer(context.Background(), offer.ID, &domain.AcceptOfferRequest{
		Borrower:        "0xborrower",
		Amount:          "500",
		CollateralAsset: "0xusdc",
	})
	require.NoError(t, err)

	repaid, err := f.service.RepayLoan(context.Background(), accepted.LoanID, &domain.RepayLoanRequest{
		Payer:         "0xborrower",
		PercentageBps: 10_000,
		Payment:       "500",
	})

	require.NoError(t, err)
	assert.Equal(t, "repaid", repaid.Status)
}

func TestBorrowerLtv_FreshAccount(t *testing.T) {
	f := newServiceFixture(t)

	ltvResp, err := f.service.BorrowerLtv(context.Background(), "0xnobody")

	require.NoError(t, err)
	assert.Equal(t, uint64(100), ltvResp.Score)
	assert.Equal(t, uint64(2000), ltvResp.MaxLtvBps)
}

func TestGetActivity_ReflectsBorrowing(t *testing.T) {
	f := newServiceFixture(t)
	f.seedMarket(t)

	f.offerRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.loanRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.activityRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	offer, err := f.service.CreateOffer(context.Background(), &domain.CreateOfferRequest{
		Lender:           "0xlender",
		PrincipalAsset:   "0xdai",
		PrincipalAmount:  "1000",
		CollateralAssets: []string{"0xusdc"},
		MaturityDays:     30,
		InterestPerSec:   "1",
		MaxLtvBps:        8000,
	})
	require.NoError(t, err)

	_, err = f.service.AcceptOffer(context.Background(), offer.ID, &domain.AcceptOfferRequest{
		Borrower:        "0xborrower",
		Amount:          "500",
		CollateralAsset: "0xusdc",
	})
	require.NoError(t, err)

	activity, err := f.service.GetActivity(context.Background(), "0xborrower")

	require.NoError(t, err)
	assert.Equal(t, uint64(0), activity.CompletedLoans)
	assert.Equal(t, "500", activity.VolumeUsd)
}

func TestDeposit_InvalidAmount(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.Deposit(context.Background(), "0xanyone", &domain.DepositRequest{
		Asset:  "0xdai",
		Amount: "0",
	})

	assert.ErrorIs(t, err, customError.ErrInvalidAmount)
}
