package transactions

import (
	"context"
	"errors"
	"fmt"

	"lamf-backend/internal/application/loans"
	"lamf-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrTransactionNotFound = errors.New("Transaction not found")
	ErrLoanIDRequired      = errors.New("loan_id is required")
)

type Service struct {
	DB    *gorm.DB
	Loans *loans.Service
}

type CreateInput struct {
	LoanID uuid.UUID `json:"loan_id"`
	loans.TransactionInput
}

// List returns ledger rows newest first, optionally for one loan.
func (s *Service) List(ctx context.Context, loanID *uuid.UUID) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	q := s.DB.WithContext(ctx).Order("created_at DESC")
	if loanID != nil {
		q = q.Where("loan_id = ?", *loanID)
	}
	if err := q.Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("Failed to fetch transactions: %v", err)
	}
	return txs, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Create books a repayment; balances are maintained by the loans service.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Transaction, error) {
	if in.LoanID == uuid.Nil {
		return nil, ErrLoanIDRequired
	}
	return s.Loans.RecordTransaction(ctx, in.LoanID, in.TransactionInput)
}
