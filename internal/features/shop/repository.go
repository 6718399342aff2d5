package shop

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/heavenly-temple/pounds-bot/internal/common"
	"github.com/heavenly-temple/pounds-bot/internal/features/ledger"
)

// Repository выполняет покупки в магазине.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий магазина.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CommitPurchase проводит покупку одной транзакцией:
// условное списание фунтов, зачисление ресурса, пополнение пула, запись
// в журнал. Если фунтов не хватает — ErrInsufficientFunds и ничего
// не меняется. Частичных покупок не бывает.
func (r *Repository) CommitPurchase(ctx context.Context, userID int64, res Resource, amount int64, cost decimal.Decimal) error {
	column, err := res.column()
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// column из белого списка (gold/wood/food/stone), не из ввода пользователя
	ct, err := tx.Exec(ctx, fmt.Sprintf(`
		UPDATE users
		SET balance = balance - $2::numeric, %s = %s + $3, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2::numeric
	`, column, column), userID, cost.String(), amount)
	if err != nil {
		return fmt.Errorf("ошибка списания за покупку: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return common.ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx, `
		UPDATE server_stats
		SET pool_balance = pool_balance + $1::numeric, updated_at = NOW()
		WHERE id = 1
	`, cost.String()); err != nil {
		return fmt.Errorf("ошибка пополнения пула: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (from_user_id, to_user_id, amount, transaction_type, description, created_at)
		VALUES ($1, NULL, $2::numeric, $3, $4, $5)
	`, userID, cost.String(), ledger.TxTypeShopPurchase,
		fmt.Sprintf("Покупка: %s x%d", res, amount), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("ошибка записи транзакции покупки: %w", err)
	}

	return tx.Commit(ctx)
}
