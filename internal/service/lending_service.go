package service

import (
	"context"
	"encoding/json"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/darshprotocol/lending-engine/internal/config"
	"github.com/darshprotocol/lending-engine/internal/core"
	"github.com/darshprotocol/lending-engine/internal/custody"
	"github.com/darshprotocol/lending-engine/internal/domain"
	"github.com/darshprotocol/lending-engine/internal/fees"
	"github.com/darshprotocol/lending-engine/internal/ltv"
	"github.com/darshprotocol/lending-engine/internal/oracle"
	"github.com/darshprotocol/lending-engine/internal/repository"
	"github.com/darshprotocol/lending-engine/internal/reputation"
	customError "github.com/darshprotocol/lending-engine/pkg/errors"
	"github.com/darshprotocol/lending-engine/pkg/utils"
)

const (
	loanCacheTTL = 30 * time.Second
	ltvCacheTTL  = 30 * time.Second
)

// LendingService fronts the in-memory protocol state with context-aware
// methods. The pool is authoritative; Postgres rows are a write-through
// archive for indexer consumers and Redis holds short-lived read caches, so
// failures on either are logged and absorbed rather than surfaced.
type LendingService struct {
	pool       *core.Pool
	book       *custody.Book
	feeds      *oracle.FeedTable
	reputation *reputation.Log
	ltvEngine  *ltv.Engine
	fees       *fees.Manager

	OfferRepo     repository.OfferRepository
	LoanRepo      repository.LoanRepository
	RepaymentRepo repository.RepaymentRepository
	ActivityRepo  repository.ActivityRepository

	redis  *redis.Client
	config *config.Config
	logger *logrus.Logger
}

// archivingRecorder feeds the reputation log and mirrors each event into the
// activity archive. Archive failures must not fail the protocol operation.
type archivingRecorder struct {
	log    *reputation.Log
	repo   repository.ActivityRepository
	logger *logrus.Logger
	nowFn  func() time.Time
}

func (r *archivingRecorder) Record(account domain.AccountID, kind domain.ActivityKind, amountUsd *big.Int, loanClosed bool) {
	r.log.Record(account, kind, amountUsd, loanClosed)

	if r.repo == nil {
		return
	}
	record := &repository.ActivityRecord{
		ID:         uuid.New().String(),
		Account:    account.String(),
		Kind:       string(kind),
		AmountUsd:  utils.DecimalFromBig(amountUsd),
		LoanClosed: loanClosed,
		OccurredAt: r.nowFn(),
	}
	if err := r.repo.Create(context.Background(), record); err != nil {
		r.logger.WithError(err).WithField("account", account).Warn("activity archive write failed")
	}
}

func NewLendingService(
	offerRepo repository.OfferRepository,
	loanRepo repository.LoanRepository,
	repaymentRepo repository.RepaymentRepository,
	activityRepo repository.ActivityRepository,
	redisClient *redis.Client,
	cfg *config.Config,
	logger *logrus.Logger,
) (*LendingService, error) {
	book := custody.NewBook()
	feeds := oracle.NewFeedTable()
	feeds.Set(domain.NativeAsset, cfg.GetNativePriceUsd())

	reputationLog := reputation.NewLog(reputation.Config{
		BaseScore:  cfg.Protocol.BaseScore,
		FloorScore: cfg.Protocol.FloorScore,
	})
	ltvEngine := ltv.NewEngine(reputationLog)
	if err := ltvEngine.SetConfig(ltv.Config{
		LowScoreThreshold:  cfg.Protocol.LowScoreThreshold,
		HighScoreThreshold: cfg.Protocol.HighScoreThreshold,
		LowLtvBps:          cfg.Protocol.LowLtvBps,
		HighLtvBps:         cfg.Protocol.HighLtvBps,
	}); err != nil {
		return nil, err
	}
	feeManager := fees.NewManager(cfg.Protocol.FeeBps)

	recorder := &archivingRecorder{
		log:    reputationLog,
		repo:   activityRepo,
		logger: logger,
		nowFn:  time.Now,
	}
	pool := core.NewPool(core.Collaborators{
		Oracle:   feeds,
		Ltv:      ltvEngine,
		Activity: recorder,
		Fees:     feeManager,
		Custody:  book,
	})
	pool.SetOfferListingWindow(cfg.Protocol.OfferMaxAgeDays)

	return &LendingService{
		pool:          pool,
		book:          book,
		feeds:         feeds,
		reputation:    reputationLog,
		ltvEngine:     ltvEngine,
		fees:          feeManager,
		OfferRepo:     offerRepo,
		LoanRepo:      loanRepo,
		RepaymentRepo: repaymentRepo,
		ActivityRepo:  activityRepo,
		redis:         redisClient,
		config:        cfg,
		logger:        logger,
	}, nil
}

// Pool exposes the underlying orchestrator for keeper sweeps and tests.
func (s *LendingService) Pool() *core.Pool {
	return s.pool
}

// CreateOffer escrows the lender's principal and posts a new offer.
func (s *LendingService) CreateOffer(ctx context.Context, request *domain.CreateOfferRequest) (*domain.OfferResponse, error) {
	amount, err := utils.ParseAmount(request.PrincipalAmount)
	if err != nil {
		return nil, customError.WrapInvalidAmount("principal_amount")
	}
	rate, err := utils.ParseAmount(request.InterestPerSec)
	if err != nil {
		return nil, customError.WrapInvalidRate()
	}
	collateral := make([]domain.Asset, 0, len(request.CollateralAssets))
	for _, asset := range request.CollateralAssets {
		collateral = append(collateral, domain.Asset(asset))
	}

	offer, err := s.pool.CreateOffer(
		domain.AccountID(request.Lender),
		domain.Asset(request.PrincipalAsset),
		amount,
		collateral,
		request.MaturityDays,
		rate,
		request.MaxLtvBps,
	)
	if err != nil {
		return nil, err
	}

	s.archiveOffer(ctx, offer)
	s.logger.WithFields(logrus.Fields{
		"offer_id": offer.ID,
		"lender":   offer.Lender,
		"amount":   offer.PrincipalAmount.String(),
	}).Info("offer created")

	return offerResponse(offer), nil
}

// AcceptOffer draws against an offer and opens a loan.
func (s *LendingService) AcceptOffer(ctx context.Context, offerID uint64, request *domain.AcceptOfferRequest) (*domain.AcceptOfferResponse, error) {
	amount, err := utils.ParseAmount(request.Amount)
	if err != nil {
		return nil, customError.WrapInvalidAmount("amount")
	}

	loan, err := s.pool.AcceptOffer(offerID, domain.AccountID(request.Borrower), amount, domain.Asset(request.CollateralAsset))
	if err != nil {
		return nil, err
	}

	s.archiveLoan(ctx, loan)
	if offer, getErr := s.pool.GetOffer(offerID); getErr == nil {
		s.archiveOffer(ctx, offer)
	}
	s.invalidateLtvCache(ctx, loan.Borrower)
	s.logger.WithFields(logrus.Fields{
		"loan_id":  loan.ID,
		"offer_id": offerID,
		"borrower": loan.Borrower,
	}).Info("offer accepted")

	return &domain.AcceptOfferResponse{
		LoanID:           loan.ID,
		PrincipalAmount:  loan.PrincipalAmount.String(),
		CollateralAmount: loan.CollateralAmount.String(),
	}, nil
}

// CancelOffer closes a fillable offer and refunds the remaining principal.
func (s *LendingService) CancelOffer(ctx context.Context, offerID uint64, request *domain.CancelOfferRequest) (*domain.OfferResponse, error) {
	offer, err := s.pool.CancelOffer(offerID, domain.AccountID(request.Caller))
	if err != nil {
		return nil, err
	}

	s.archiveOffer(ctx, offer)
	s.logger.WithField("offer_id", offerID).Info("offer cancelled")

	return offerResponse(offer), nil
}

// ExpireOffer retires an aged open offer, refunding the remainder.
func (s *LendingService) ExpireOffer(ctx context.Context, offerID uint64) (*domain.OfferResponse, error) {
	offer, err := s.pool.ExpireOffer(offerID)
	if err != nil {
		return nil, err
	}

	s.archiveOffer(ctx, offer)
	s.logger.WithField("offer_id", offerID).Info("offer expired")

	return offerResponse(offer), nil
}

// GetOffer returns a snapshot of one offer.
func (s *LendingService) GetOffer(ctx context.Context, offerID uint64) (*domain.OfferResponse, error) {
	offer, err := s.pool.GetOffer(offerID)
	if err != nil {
		return nil, err
	}
	return offerResponse(offer), nil
}

// ListOffers returns snapshots of all offers in creation order.
func (s *LendingService) ListOffers(ctx context.Context) ([]*domain.OfferResponse, error) {
	offers := s.pool.ListOffers()
	out := make([]*domain.OfferResponse, 0, len(offers))
	for _, offer := range offers {
		out = append(out, offerResponse(offer))
	}
	return out, nil
}

// RepayLoan settles a share of the loan and releases collateral.
func (s *LendingService) RepayLoan(ctx context.Context, loanID uint64, request *domain.RepayLoanRequest) (*domain.RepayLoanResponse, error) {
	payment, err := utils.ParseAmount(request.Payment)
	if err != nil {
		return nil, customError.WrapInvalidAmount("payment")
	}

	released, loan, err := s.pool.RepayLoan(loanID, request.PercentageBps, payment, domain.AccountID(request.Payer))
	if err != nil {
		return nil, err
	}

	s.archiveLoan(ctx, loan)
	s.archiveRepayment(ctx, loanID, request, released)
	s.invalidateLoanCache(ctx, loanID)
	s.invalidateLtvCache(ctx, loan.Borrower)
	s.logger.WithFields(logrus.Fields{
		"loan_id": loanID,
		"status":  loan.Status,
	}).Info("loan repaid")

	return &domain.RepayLoanResponse{
		LoanID:             loanID,
		AmountPaid:         request.Payment,
		ReleasedCollateral: released.String(),
		Status:             string(loan.Status),
	}, nil
}

// LiquidateLoan seizes a matured loan's collateral for the lender.
func (s *LendingService) LiquidateLoan(ctx context.Context, loanID uint64, request *domain.LiquidateLoanRequest) (*domain.LiquidateLoanResponse, error) {
	seized, loan, err := s.pool.LiquidateLoan(loanID, domain.AccountID(request.Liquidator))
	if err != nil {
		return nil, err
	}

	s.archiveLoan(ctx, loan)
	s.invalidateLoanCache(ctx, loanID)
	s.invalidateLtvCache(ctx, loan.Borrower)
	s.logger.WithFields(logrus.Fields{
		"loan_id":    loanID,
		"liquidator": request.Liquidator,
		"seized":     seized.String(),
	}).Info("loan liquidated")

	return &domain.LiquidateLoanResponse{
		LoanID:           loanID,
		SeizedCollateral: seized.String(),
		Status:           string(loan.Status),
	}, nil
}

// GetLoan returns a loan snapshot including the owed amount at now.
func (s *LendingService) GetLoan(ctx context.Context, loanID uint64) (*domain.LoanResponse, error) {
	if cached := s.cachedLoan(ctx, loanID); cached != nil {
		return cached, nil
	}

	loan, err := s.pool.GetLoan(loanID)
	if err != nil {
		return nil, err
	}
	response := loanResponse(loan)
	if owed, _, owedErr := s.pool.OwedAmount(loanID); owedErr == nil {
		response.CurrentOwed = owed.String()
	}

	s.cacheLoan(ctx, loanID, response)
	return response, nil
}

// ListLoans returns snapshots of all loans in creation order.
func (s *LendingService) ListLoans(ctx context.Context) ([]*domain.LoanResponse, error) {
	loans := s.pool.ListLoans()
	out := make([]*domain.LoanResponse, 0, len(loans))
	for _, loan := range loans {
		out = append(out, loanResponse(loan))
	}
	return out, nil
}

// OwedAmount reports the loan's total owed at the current clock.
func (s *LendingService) OwedAmount(ctx context.Context, loanID uint64) (*domain.OwedResponse, error) {
	owed, elapsed, err := s.pool.OwedAmount(loanID)
	if err != nil {
		return nil, err
	}
	return &domain.OwedResponse{
		LoanID:         loanID,
		ElapsedSeconds: elapsed,
		TotalOwed:      owed.String(),
	}, nil
}

// BorrowerLtv reports the account's reputation score and LTV ceiling.
func (s *LendingService) BorrowerLtv(ctx context.Context, account string) (*domain.LtvResponse, error) {
	cacheKey := "ltv:" + account
	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var cached domain.LtvResponse
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return &cached, nil
			}
		}
	}

	maxLtvBps, err := s.ltvEngine.ComputeMaxLtvBps(domain.AccountID(account))
	if err != nil {
		return nil, err
	}
	response := &domain.LtvResponse{
		Account:   account,
		Score:     s.reputation.GetScore(domain.AccountID(account)),
		MaxLtvBps: maxLtvBps,
	}

	if s.redis != nil {
		if raw, marshalErr := json.Marshal(response); marshalErr == nil {
			if err := s.redis.Set(ctx, cacheKey, raw, ltvCacheTTL).Err(); err != nil {
				s.logger.WithError(err).Debug("ltv cache write failed")
			}
		}
	}
	return response, nil
}

// GetActivity returns the account's aggregated lending history and score.
func (s *LendingService) GetActivity(ctx context.Context, account string) (*domain.ActivityResponse, error) {
	summary := s.reputation.GetActivity(domain.AccountID(account))
	volume := "0"
	if summary.VolumeUsd != nil {
		volume = summary.VolumeUsd.String()
	}
	return &domain.ActivityResponse{
		Account:          account,
		CompletedLoans:   summary.CompletedLoans,
		OnTimeRepayments: summary.OnTimeRepayments,
		LateRepayments:   summary.LateRepayments,
		Defaults:         summary.Defaults,
		VolumeUsd:        volume,
		Score:            s.reputation.GetScore(domain.AccountID(account)),
	}, nil
}

// Deposit credits simulation funds to an account's custody balance.
func (s *LendingService) Deposit(ctx context.Context, account string, request *domain.DepositRequest) (*domain.BalanceResponse, error) {
	amount, err := utils.ParseAmount(request.Amount)
	if err != nil || amount.Sign() <= 0 {
		return nil, customError.WrapInvalidAmount("amount")
	}

	s.book.Deposit(domain.AccountID(account), domain.Asset(request.Asset), amount)
	return &domain.BalanceResponse{
		Account: account,
		Asset:   request.Asset,
		Balance: s.book.Balance(domain.AccountID(account), domain.Asset(request.Asset)).String(),
	}, nil
}

// SetPriceFeed installs or replaces an asset's USD price feed.
func (s *LendingService) SetPriceFeed(ctx context.Context, request *domain.SetPriceFeedRequest) error {
	price, err := utils.ParseAmount(request.Price)
	if err != nil || price.Sign() <= 0 {
		return customError.WrapInvalidAmount("price")
	}

	s.feeds.Set(domain.Asset(request.Asset), price)
	s.logger.WithFields(logrus.Fields{
		"asset": request.Asset,
		"price": request.Price,
	}).Info("price feed updated")
	return nil
}

func (s *LendingService) archiveOffer(ctx context.Context, offer *domain.Offer) {
	if s.OfferRepo == nil {
		return
	}
	assets := make([]string, 0, len(offer.AcceptedCollateralAssets))
	for _, asset := range offer.AcceptedCollateralAssets {
		assets = append(assets, asset.String())
	}
	record := &repository.OfferRecord{
		ID:               uuid.New().String(),
		OfferID:          offer.ID,
		Lender:           offer.Lender.String(),
		PrincipalAsset:   offer.PrincipalAsset.String(),
		PrincipalAmount:  utils.DecimalFromBig(offer.PrincipalAmount),
		RemainingAmount:  utils.DecimalFromBig(offer.RemainingAmount),
		CollateralAssets: strings.Join(assets, ","),
		InterestRate:     utils.DecimalFromBig(offer.InterestRatePerSecond),
		MaturityDays:     offer.MaturityDays,
		MaxLtvBps:        offer.MaxLtvBps,
		Status:           string(offer.Status),
		OfferCreatedAt:   offer.CreatedAt,
		ArchivedAt:       time.Now(),
	}
	if err := s.OfferRepo.Upsert(ctx, record); err != nil {
		s.logger.WithError(err).WithField("offer_id", offer.ID).Warn("offer archive write failed")
	}
}

func (s *LendingService) archiveLoan(ctx context.Context, loan *domain.Loan) {
	if s.LoanRepo == nil {
		return
	}
	record := &repository.LoanRecord{
		ID:               uuid.New().String(),
		LoanID:           loan.ID,
		OfferID:          loan.OfferID,
		Lender:           loan.Lender.String(),
		Borrower:         loan.Borrower.String(),
		PrincipalAsset:   loan.PrincipalAsset.String(),
		PrincipalAmount:  utils.DecimalFromBig(loan.PrincipalAmount),
		CollateralAsset:  loan.CollateralAsset.String(),
		CollateralAmount: utils.DecimalFromBig(loan.CollateralAmount),
		InterestRate:     utils.DecimalFromBig(loan.InterestRatePerSecond),
		MaturityDays:     loan.MaturityDays,
		Status:           string(loan.Status),
		LoanCreatedAt:    loan.CreatedAt,
		ArchivedAt:       time.Now(),
	}
	if err := s.LoanRepo.Upsert(ctx, record); err != nil {
		s.logger.WithError(err).WithField("loan_id", loan.ID).Warn("loan archive write failed")
	}
}

func (s *LendingService) archiveRepayment(ctx context.Context, loanID uint64, request *domain.RepayLoanRequest, released *big.Int) {
	if s.RepaymentRepo == nil {
		return
	}
	paid, err := utils.ParseAmount(request.Payment)
	if err != nil {
		return
	}
	record := &repository.RepaymentRecord{
		ID:            uuid.New().String(),
		LoanID:        loanID,
		Payer:         request.Payer,
		PercentageBps: request.PercentageBps,
		AmountPaid:    utils.DecimalFromBig(paid),
		Released:      utils.DecimalFromBig(released),
		PaidAt:        time.Now(),
	}
	if err := s.RepaymentRepo.Create(ctx, record); err != nil {
		s.logger.WithError(err).WithField("loan_id", loanID).Warn("repayment archive write failed")
	}
}

func (s *LendingService) cachedLoan(ctx context.Context, loanID uint64) *domain.LoanResponse {
	if s.redis == nil {
		return nil
	}
	raw, err := s.redis.Get(ctx, loanCacheKey(loanID)).Result()
	if err != nil {
		return nil
	}
	var cached domain.LoanResponse
	if json.Unmarshal([]byte(raw), &cached) != nil {
		return nil
	}
	return &cached
}

func (s *LendingService) cacheLoan(ctx context.Context, loanID uint64, response *domain.LoanResponse) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, loanCacheKey(loanID), raw, loanCacheTTL).Err(); err != nil {
		s.logger.WithError(err).Debug("loan cache write failed")
	}
}

func (s *LendingService) invalidateLoanCache(ctx context.Context, loanID uint64) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, loanCacheKey(loanID)).Err()
}

func (s *LendingService) invalidateLtvCache(ctx context.Context, account domain.AccountID) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, "ltv:"+account.String()).Err()
}

func loanCacheKey(loanID uint64) string {
	return "loan:" + strconv.FormatUint(loanID, 10)
}

func offerResponse(offer *domain.Offer) *domain.OfferResponse {
	assets := make([]string, 0, len(offer.AcceptedCollateralAssets))
	for _, asset := range offer.AcceptedCollateralAssets {
		assets = append(assets, asset.String())
	}
	return &domain.OfferResponse{
		ID:               offer.ID,
		Lender:           offer.Lender.String(),
		PrincipalAsset:   offer.PrincipalAsset.String(),
		PrincipalAmount:  offer.PrincipalAmount.String(),
		RemainingAmount:  offer.RemainingAmount.String(),
		CollateralAssets: assets,
		InterestPerSec:   offer.InterestRatePerSecond.String(),
		MaturityDays:     offer.MaturityDays,
		MaxLtvBps:        offer.MaxLtvBps,
		Status:           string(offer.Status),
		CreatedAt:        offer.CreatedAt,
	}
}

func loanResponse(loan *domain.Loan) *domain.LoanResponse {
	return &domain.LoanResponse{
		ID:               loan.ID,
		OfferID:          loan.OfferID,
		Borrower:         loan.Borrower.String(),
		Lender:           loan.Lender.String(),
		PrincipalAsset:   loan.PrincipalAsset.String(),
		PrincipalAmount:  loan.PrincipalAmount.String(),
		CollateralAsset:  loan.CollateralAsset.String(),
		CollateralAmount: loan.CollateralAmount.String(),
		InterestPerSec:   loan.InterestRatePerSecond.String(),
		MaturityDays:     loan.MaturityDays,
		Status:           string(loan.Status),
		CreatedAt:        loan.CreatedAt,
	}
}
