// Package daily реализует ежедневную награду с серией (streak):
// одна выплата на календарный день UTC, размер растёт с серией.
package daily

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/heavenly-temple/pounds-bot/internal/features/ledger"
)

// State — состояние ежедневной награды пользователя.
type State struct {
	LastDaily *time.Time // дата последней выплаты (UTC, без времени)
	Streak    int        // текущая серия
}

// Repository предоставляет доступ к полям ежедневной награды в users.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий ежедневных наград.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetState возвращает состояние ежедневной награды,
// лениво создавая счёт, если его ещё нет.
func (r *Repository) GetState(ctx context.Context, userID int64) (*State, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пользователя: %w", err)
	}

	var st State
	err = r.db.QueryRow(ctx,
		`SELECT last_daily, daily_streak FROM users WHERE user_id = $1`, userID,
	).Scan(&st.LastDaily, &st.Streak)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения состояния награды: %w", err)
	}
	return &st, nil
}

// CommitClaim пытается провести выплату за день today.
// Выплата защищена условием «сегодня ещё не платили»: при гонке двух
// одновременных /daily пройдёт ровно одна. Возвращает false, если
// награда за сегодня уже получена.
func (r *Repository) CommitClaim(ctx context.Context, userID int64, today time.Time, streak int, reward decimal.Decimal) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
		UPDATE users
		SET last_daily = $2::date,
		    daily_streak = $3,
		    balance = balance + $4::numeric,
		    updated_at = NOW()
		WHERE user_id = $1 AND (last_daily IS NULL OR last_daily < $2::date)
	`, userID, today, streak, reward.String())
	if err != nil {
		return false, fmt.Errorf("ошибка выплаты ежедневной награды: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (from_user_id, to_user_id, amount, transaction_type, description, created_at)
		VALUES (NULL, $1, $2::numeric, $3, $4, $5)
	`, userID, reward.String(), ledger.TxTypeDailyReward,
		fmt.Sprintf("Ежедневная награда (серия %d)", streak), time.Now().UTC(),
	); err != nil {
		return false, fmt.Errorf("ошибка записи транзакции награды: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
