package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/heavenly-temple/pounds-bot/internal/common"
)

// Service содержит бизнес-логику работы со счетами.
// Валидация сумм происходит здесь, а не в репозитории.
type Service struct {
	repo *Repository
}

// NewService создаёт новый сервис счетов.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// EnsureUser регистрирует пользователя (или обновляет профиль).
func (s *Service) EnsureUser(ctx context.Context, userID int64, username, firstName, lastName string) error {
	return s.repo.EnsureUser(ctx, userID, username, firstName, lastName)
}

// GetAccount возвращает счёт пользователя.
func (s *Service) GetAccount(ctx context.Context, userID int64) (*Account, error) {
	return s.repo.GetAccount(ctx, userID)
}

// Known сообщает, есть ли пользователь в базе.
func (s *Service) Known(ctx context.Context, userID int64) (bool, error) {
	return s.repo.Known(ctx, userID)
}

// GetByUsername возвращает счёт пользователя по @username.
func (s *Service) GetByUsername(ctx context.Context, username string) (*Account, error) {
	return s.repo.GetByUsername(ctx, username)
}

// Credit начисляет фунты на счёт. Сумма должна быть положительной.
func (s *Service) Credit(ctx context.Context, userID int64, amount decimal.Decimal, txType, description string) error {
	if !amount.IsPositive() {
		return common.ErrInvalidAmount
	}
	return s.repo.Credit(ctx, userID, amount, txType, description)
}

// Debit списывает фунты со счёта. Сумма должна быть положительной,
// средств должно хватать.
func (s *Service) Debit(ctx context.Context, userID int64, amount decimal.Decimal, txType, description string) error {
	if !amount.IsPositive() {
		return common.ErrInvalidAmount
	}
	return s.repo.Debit(ctx, userID, amount, txType, description)
}

// TakeUpTo списывает до amount фунтов и возвращает фактическую сумму.
func (s *Service) TakeUpTo(ctx context.Context, userID int64, amount decimal.Decimal, txType, description string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, common.ErrInvalidAmount
	}
	return s.repo.TakeUpTo(ctx, userID, amount, txType, description)
}

// Top возвращает таблицу лидеров по балансу.
func (s *Service) Top(ctx context.Context, limit int) ([]*Account, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.repo.Top(ctx, limit)
}

// Rank возвращает позицию пользователя в рейтинге.
func (s *Service) Rank(ctx context.Context, userID int64) (int, error) {
	return s.repo.Rank(ctx, userID)
}
