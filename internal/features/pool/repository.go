package pool

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/heavenly-temple/pounds-bot/internal/common"
)

// Repository предоставляет доступ к таблице server_stats.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий пула.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Initialize создаёт строку пула со стартовым балансом, если её ещё нет.
// Повторный запуск ничего не меняет: баланс живого пула не трогаем.
func (r *Repository) Initialize(ctx context.Context, seed decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO server_stats (id, pool_balance)
		VALUES ($1, $2::numeric)
		ON CONFLICT (id) DO NOTHING
	`, statsRowID, seed.String())
	if err != nil {
		return fmt.Errorf("ошибка инициализации пула: %w", err)
	}
	return nil
}

// Balance возвращает текущий баланс пула.
func (r *Repository) Balance(ctx context.Context) (decimal.Decimal, error) {
	var balance string
	err := r.db.QueryRow(ctx,
		`SELECT pool_balance::text FROM server_stats WHERE id = $1`, statsRowID,
	).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ошибка получения баланса пула: %w", err)
	}
	return decimal.NewFromString(balance)
}

// Credit пополняет пул.
func (r *Repository) Credit(ctx context.Context, amount decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `
		UPDATE server_stats
		SET pool_balance = pool_balance + $2::numeric, updated_at = NOW()
		WHERE id = $1
	`, statsRowID, amount.String())
	if err != nil {
		return fmt.Errorf("ошибка пополнения пула: %w", err)
	}
	return nil
}

// Debit списывает из пула. Списание условное: при нехватке средств
// возвращается ErrInsufficientPoolFunds и пул не меняется.
func (r *Repository) Debit(ctx context.Context, amount decimal.Decimal) error {
	ct, err := r.db.Exec(ctx, `
		UPDATE server_stats
		SET pool_balance = pool_balance - $2::numeric, updated_at = NOW()
		WHERE id = $1 AND pool_balance >= $2::numeric
	`, statsRowID, amount.String())
	if err != nil {
		return fmt.Errorf("ошибка списания из пула: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return common.ErrInsufficientPoolFunds
	}
	return nil
}
