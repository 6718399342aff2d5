package pool

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/heavenly-temple/pounds-bot/internal/common"
)

// Service содержит бизнес-логику серверного пула.
type Service struct {
	repo *Repository
}

// NewService создаёт новый сервис пула.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Initialize создаёт пул со стартовым балансом (идемпотентно).
func (s *Service) Initialize(ctx context.Context, seed decimal.Decimal) error {
	if seed.IsNegative() {
		return common.ErrInvalidAmount
	}
	return s.repo.Initialize(ctx, seed)
}

// Balance возвращает текущий баланс пула.
func (s *Service) Balance(ctx context.Context) (decimal.Decimal, error) {
	return s.repo.Balance(ctx)
}

// Credit пополняет пул. Сумма должна быть положительной.
func (s *Service) Credit(ctx context.Context, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return common.ErrInvalidAmount
	}
	return s.repo.Credit(ctx, amount)
}

// Debit списывает из пула. Сумма должна быть положительной,
// средств должно хватать.
func (s *Service) Debit(ctx context.Context, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return common.ErrInvalidAmount
	}
	return s.repo.Debit(ctx, amount)
}
