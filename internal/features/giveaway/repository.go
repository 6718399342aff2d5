package giveaway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/heavenly-temple/pounds-bot/internal/common"
	"github.com/heavenly-temple/pounds-bot/internal/features/ledger"
)

// Repository предоставляет доступ к таблице giveaways.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий розыгрышей.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const giveawayColumns = `
	id, prize::text, entry_cost::text, winners_count,
	COALESCE(participants, '{}'), COALESCE(winners, '{}'),
	message_id, created_by, ends_at, ended, cancelled, created_at`

func scanGiveaway(row pgx.Row) (*Giveaway, error) {
	var g Giveaway
	var prize, entryCost string
	err := row.Scan(
		&g.ID, &prize, &entryCost, &g.WinnersCount,
		&g.Participants, &g.Winners,
		&g.MessageID, &g.CreatedBy, &g.EndsAt, &g.Ended, &g.Cancelled, &g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if g.Prize, err = decimal.NewFromString(prize); err != nil {
		return nil, fmt.Errorf("ошибка разбора приза: %w", err)
	}
	if g.EntryCost, err = decimal.NewFromString(entryCost); err != nil {
		return nil, fmt.Errorf("ошибка разбора взноса: %w", err)
	}
	return &g, nil
}

// Create сохраняет новый розыгрыш и возвращает его ID.
func (r *Repository) Create(ctx context.Context, g *Giveaway) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO giveaways (prize, entry_cost, winners_count, created_by, ends_at, created_at)
		VALUES ($1::numeric, $2::numeric, $3, $4, $5, $6)
		RETURNING id
	`, g.Prize.String(), g.EntryCost.String(), g.WinnersCount, g.CreatedBy, g.EndsAt, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания розыгрыша: %w", err)
	}
	return id, nil
}

// Get возвращает розыгрыш по ID.
func (r *Repository) Get(ctx context.Context, id int64) (*Giveaway, error) {
	g, err := scanGiveaway(r.db.QueryRow(ctx,
		`SELECT `+giveawayColumns+` FROM giveaways WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrGiveawayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения розыгрыша: %w", err)
	}
	return g, nil
}

// GetByMessage возвращает розыгрыш по ID сообщения-анонса.
func (r *Repository) GetByMessage(ctx context.Context, messageID int64) (*Giveaway, error) {
	g, err := scanGiveaway(r.db.QueryRow(ctx,
		`SELECT `+giveawayColumns+` FROM giveaways WHERE message_id = $1`, messageID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrGiveawayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска розыгрыша по сообщению: %w", err)
	}
	return g, nil
}

// SetMessage привязывает к розыгрышу сообщение-анонс.
func (r *Repository) SetMessage(ctx context.Context, id, messageID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE giveaways SET message_id = $2 WHERE id = $1`, id, messageID)
	if err != nil {
		return fmt.Errorf("ошибка привязки сообщения: %w", err)
	}
	return nil
}

// Enter регистрирует заявку пользователя одной транзакцией:
// строка розыгрыша блокируется, проверяются окно приёма и дубликат,
// взнос условно списывается со счёта и зачисляется в пул.
// Любая проверка не прошла — транзакция откатывается целиком.
func (r *Repository) Enter(ctx context.Context, giveawayID, userID int64, now time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	g, err := scanGiveaway(tx.QueryRow(ctx,
		`SELECT `+giveawayColumns+` FROM giveaways WHERE id = $1 FOR UPDATE`, giveawayID))
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrGiveawayNotFound
	}
	if err != nil {
		return fmt.Errorf("ошибка чтения розыгрыша: %w", err)
	}

	if !g.Open(now) {
		return common.ErrEntriesClosed
	}
	if g.HasParticipant(userID) {
		return common.ErrDuplicateEntry
	}

	if g.EntryCost.IsPositive() {
		ct, err := tx.Exec(ctx, `
			UPDATE users
			SET balance = balance - $2::numeric, updated_at = NOW()
			WHERE user_id = $1 AND balance >= $2::numeric
		`, userID, g.EntryCost.String())
		if err != nil {
			return fmt.Errorf("ошибка списания взноса: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return common.ErrInsufficientFunds
		}

		if _, err := tx.Exec(ctx, `
			UPDATE server_stats
			SET pool_balance = pool_balance + $1::numeric, updated_at = NOW()
			WHERE id = 1
		`, g.EntryCost.String()); err != nil {
			return fmt.Errorf("ошибка зачисления взноса в пул: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO transactions (from_user_id, to_user_id, amount, transaction_type, description, created_at)
			VALUES ($1, NULL, $2::numeric, $3, $4, $5)
		`, userID, g.EntryCost.String(), ledger.TxTypeGiveawayEntry,
			fmt.Sprintf("Взнос за участие в розыгрыше #%d", giveawayID), now,
		); err != nil {
			return fmt.Errorf("ошибка записи транзакции взноса: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE giveaways
		SET participants = array_append(COALESCE(participants, '{}'), $2)
		WHERE id = $1
	`, giveawayID, userID); err != nil {
		return fmt.Errorf("ошибка добавления участника: %w", err)
	}

	return tx.Commit(ctx)
}

// ClaimEnd атомарно переводит розыгрыш в терминальное состояние.
// Возвращает (state, true), если переход совершил именно этот вызов,
// и (nil, false), если розыгрыш уже был завершён кем-то другим.
// Это единственная точка входа в терминальное состояние: таймер,
// админская команда и отмена конкурируют здесь за одну строку.
func (r *Repository) ClaimEnd(ctx context.Context, id int64, cancelled bool) (*Giveaway, bool, error) {
	g, err := scanGiveaway(r.db.QueryRow(ctx, `
		UPDATE giveaways
		SET ended = TRUE, cancelled = $2
		WHERE id = $1 AND ended = FALSE
		RETURNING `+giveawayColumns, id, cancelled))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ошибка завершения розыгрыша: %w", err)
	}
	return g, true, nil
}

// SetWinners сохраняет список победителей.
func (r *Repository) SetWinners(ctx context.Context, id int64, winners []int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE giveaways SET winners = $2 WHERE id = $1`, id, winners)
	if err != nil {
		return fmt.Errorf("ошибка записи победителей: %w", err)
	}
	return nil
}

// ListOpen возвращает все незавершённые розыгрыши.
// Используется при старте бота для восстановления таймеров.
func (r *Repository) ListOpen(ctx context.Context) ([]*Giveaway, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+giveawayColumns+` FROM giveaways WHERE ended = FALSE ORDER BY ends_at`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения открытых розыгрышей: %w", err)
	}
	defer rows.Close()

	var out []*Giveaway
	for rows.Next() {
		g, err := scanGiveaway(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения розыгрыша: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
