package accrual

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository предоставляет доступ к таблицам счётчиков активности.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий активности.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// IncrMessages атомарно увеличивает счётчик сообщений на 1
// и возвращает новые значения count и rewarded.
func (r *Repository) IncrMessages(ctx context.Context, userID int64) (count, rewarded int64, err error) {
	err = r.db.QueryRow(ctx, `
		INSERT INTO message_counts (user_id, count)
		VALUES ($1, 1)
		ON CONFLICT (user_id) DO UPDATE SET count = message_counts.count + 1
		RETURNING count, rewarded
	`, userID).Scan(&count, &rewarded)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка инкремента сообщений: %w", err)
	}
	return count, rewarded, nil
}

// AdvanceMessagesRewarded пытается сдвинуть отметку выплаченных сообщений
// на take вперёд. Сдвиг защищён условием: неоплаченных сообщений должно
// хватать. Возвращает true, если сдвиг удался (и значит надо платить).
func (r *Repository) AdvanceMessagesRewarded(ctx context.Context, userID, take int64) (bool, error) {
	ct, err := r.db.Exec(ctx, `
		UPDATE message_counts
		SET rewarded = rewarded + $2
		WHERE user_id = $1 AND count - rewarded >= $2
	`, userID, take)
	if err != nil {
		return false, fmt.Errorf("ошибка сдвига отметки сообщений: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// AddVoiceMinutes атомарно добавляет minutes минут голосовой активности
// и возвращает новые значения minutes и rewarded_minutes.
func (r *Repository) AddVoiceMinutes(ctx context.Context, userID, minutes int64) (total, rewarded int64, err error) {
	err = r.db.QueryRow(ctx, `
		INSERT INTO voice_times (user_id, minutes)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET minutes = voice_times.minutes + $2
		RETURNING minutes, rewarded_minutes
	`, userID, minutes).Scan(&total, &rewarded)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка добавления голосовых минут: %w", err)
	}
	return total, rewarded, nil
}

// AdvanceVoiceRewarded пытается сдвинуть отметку выплаченных минут на take.
// Возвращает true, если сдвиг удался.
func (r *Repository) AdvanceVoiceRewarded(ctx context.Context, userID, take int64) (bool, error) {
	ct, err := r.db.Exec(ctx, `
		UPDATE voice_times
		SET rewarded_minutes = rewarded_minutes + $2
		WHERE user_id = $1 AND minutes - rewarded_minutes >= $2
	`, userID, take)
	if err != nil {
		return false, fmt.Errorf("ошибка сдвига отметки минут: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// IncrInvites атомарно увеличивает счётчик приглашений на by
// и возвращает новое значение.
func (r *Repository) IncrInvites(ctx context.Context, userID, by int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO invites (user_id, count)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET count = invites.count + $2
		RETURNING count
	`, userID, by).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка инкремента приглашений: %w", err)
	}
	return count, nil
}

// ObserveBoosts записывает наблюдаемое суммарное число бустов пользователя
// и возвращает, на сколько сдвинулась отметка оплаченных (0 — платить нечего).
// Повторная доставка того же total даёт 0: отметка уже на месте.
//
// Upsert блокирует строку до конца транзакции, и отметка читается из её
// актуальной версии. Два конкурентных события с одним total выстраиваются
// на этой блокировке: второе увидит уже сдвинутую отметку и получит 0.
func (r *Repository) ObserveBoosts(ctx context.Context, userID, total int64) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var rewarded int64
	err = tx.QueryRow(ctx, `
		INSERT INTO boosts (user_id, count)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET count = GREATEST(boosts.count, $2)
		RETURNING rewarded
	`, userID, total).Scan(&rewarded)
	if err != nil {
		return 0, fmt.Errorf("ошибка записи бустов: %w", err)
	}

	if rewarded >= total {
		return 0, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE boosts SET rewarded = $2 WHERE user_id = $1`, userID, total,
	); err != nil {
		return 0, fmt.Errorf("ошибка сдвига отметки бустов: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return total - rewarded, nil
}

// GetStats возвращает сводку активности пользователя.
// Отсутствующие счётчики читаются как нули.
func (r *Repository) GetStats(ctx context.Context, userID int64) (*UserStats, error) {
	stats := &UserStats{}
	stats.Messages.UserID = userID
	stats.Voice.UserID = userID
	stats.Invites.UserID = userID
	stats.Boosts.UserID = userID

	err := r.db.QueryRow(ctx, `
		SELECT
			COALESCE(m.count, 0), COALESCE(m.rewarded, 0),
			COALESCE(v.minutes, 0), COALESCE(v.rewarded_minutes, 0),
			COALESCE(i.count, 0),
			COALESCE(b.count, 0), COALESCE(b.rewarded, 0)
		FROM (SELECT $1::bigint AS user_id) u
		LEFT JOIN message_counts m ON m.user_id = u.user_id
		LEFT JOIN voice_times v ON v.user_id = u.user_id
		LEFT JOIN invites i ON i.user_id = u.user_id
		LEFT JOIN boosts b ON b.user_id = u.user_id
	`, userID).Scan(
		&stats.Messages.Count, &stats.Messages.Rewarded,
		&stats.Voice.Minutes, &stats.Voice.RewardedMinutes,
		&stats.Invites.Count,
		&stats.Boosts.Count, &stats.Boosts.Rewarded,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики: %w", err)
	}
	return stats, nil
}
