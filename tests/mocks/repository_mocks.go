package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/darshprotocol/lending-engine/internal/repository"
)

// MockOfferRepository is a mock implementation of repository.OfferRepository
type MockOfferRepository struct {
	mock.Mock
}

func (m *MockOfferRepository) Upsert(ctx context.Context, offer *repository.OfferRecord) error {
	args := m.Called(ctx, offer)
	return args.Error(0)
}

func (m *MockOfferRepository) GetByOfferID(ctx context.Context, offerID uint64) (*repository.OfferRecord, error) {
	args := m.Called(ctx, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.OfferRecord), args.Error(1)
}

func (m *MockOfferRepository) ListByLender(ctx context.Context, lender string) ([]*repository.OfferRecord, error) {
	args := m.Called(ctx, lender)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.OfferRecord), args.Error(1)
}

// MockLoanRepository is a mock implementation of repository.LoanRepository
type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Upsert(ctx context.Context, loan *repository.LoanRecord) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByLoanID(ctx context.Context, loanID uint64) (*repository.LoanRecord, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.LoanRecord), args.Error(1)
}

func (m *MockLoanRepository) ListByBorrower(ctx context.Context, borrower string) ([]*repository.LoanRecord, error) {
	args := m.Called(ctx, borrower)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.LoanRecord), args.Error(1)
}

// MockRepaymentRepository is a mock implementation of repository.RepaymentRepository
type MockRepaymentRepository struct {
	mock.Mock
}

func (m *MockRepaymentRepository) Create(ctx context.Context, repayment *repository.RepaymentRecord) error {
	args := m.Called(ctx, repayment)
	return args.Error(0)
}

func (m *MockRepaymentRepository) ListByLoanID(ctx context.Context, loanID uint64) ([]*repository.RepaymentRecord, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.RepaymentRecord), args.Error(1)
}

// MockActivityRepository is a mock implementation of repository.ActivityRepository
type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) Create(ctx context.Context, event *repository.ActivityRecord) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockActivityRepository) ListByAccount(ctx context.Context, account string) ([]*repository.ActivityRecord, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.ActivityRecord), args.Error(1)
}
