package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/heavenly-temple/pounds-bot/internal/common"
)

// Repository предоставляет доступ к таблицам users и transactions.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий счетов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const accountColumns = `
	id, user_id, COALESCE(username, ''), COALESCE(first_name, ''), COALESCE(last_name, ''),
	balance::text, gold, wood, food, stone, last_daily, daily_streak, created_at, updated_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	var balance string
	err := row.Scan(
		&a.ID, &a.UserID, &a.Username, &a.FirstName, &a.LastName,
		&balance, &a.Gold, &a.Wood, &a.Food, &a.Stone,
		&a.LastDaily, &a.DailyStreak, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора баланса: %w", err)
	}
	return &a, nil
}

// EnsureUser создаёт счёт пользователя, если его ещё нет,
// и обновляет профиль (username меняется со временем).
func (r *Repository) EnsureUser(ctx context.Context, userID int64, username, firstName, lastName string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (user_id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			updated_at = NOW()
	`, userID, username, firstName, lastName)
	if err != nil {
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return nil
}

// GetAccount возвращает счёт пользователя.
func (r *Repository) GetAccount(ctx context.Context, userID int64) (*Account, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM users WHERE user_id = $1`, userID)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения счёта: %w", err)
	}
	return a, nil
}

// Known сообщает, есть ли пользователь в базе.
func (r *Repository) Known(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки пользователя: %w", err)
	}
	return exists, nil
}

// GetByUsername возвращает счёт пользователя по @username (без учёта регистра).
func (r *Repository) GetByUsername(ctx context.Context, username string) (*Account, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM users WHERE LOWER(username) = LOWER($1)`, username)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска по username: %w", err)
	}
	return a, nil
}

// Credit начисляет amount фунтов на счёт пользователя и пишет транзакцию.
// Счёт создаётся лениво, если пользователя ещё нет в базе.
func (r *Repository) Credit(ctx context.Context, userID int64, amount decimal.Decimal, txType, description string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO users (user_id, balance)
		VALUES ($1, $2::numeric)
		ON CONFLICT (user_id) DO UPDATE SET
			balance = users.balance + EXCLUDED.balance,
			updated_at = NOW()
	`, userID, amount.String())
	if err != nil {
		return fmt.Errorf("ошибка начисления: %w", err)
	}

	if err := insertTransaction(ctx, tx, nil, &userID, amount, txType, description); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Debit списывает amount фунтов со счёта пользователя.
// Списание условное: если средств не хватает, возвращается
// ErrInsufficientFunds и баланс не меняется.
func (r *Repository) Debit(ctx context.Context, userID int64, amount decimal.Decimal, txType, description string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
		UPDATE users
		SET balance = balance - $2::numeric, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2::numeric
	`, userID, amount.String())
	if err != nil {
		return fmt.Errorf("ошибка списания: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return common.ErrInsufficientFunds
	}

	if err := insertTransaction(ctx, tx, &userID, nil, amount, txType, description); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// TakeUpTo списывает со счёта до amount фунтов (сколько есть, но не больше)
// и возвращает фактически списанную сумму. Используется админ-командой take
// и возвратом взносов при отмене розыгрыша.
//
// Строка берётся под блокировку, сумма считается по актуальному балансу,
// а само списание относительное. Конкурентное начисление, закоммиченное
// перед нашей блокировкой, не затирается.
func (r *Repository) TakeUpTo(ctx context.Context, userID int64, amount decimal.Decimal, txType, description string) (decimal.Decimal, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var balStr string
	err = tx.QueryRow(ctx,
		`SELECT balance::text FROM users WHERE user_id = $1 FOR UPDATE`, userID,
	).Scan(&balStr)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, common.ErrUserNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("ошибка изъятия: %w", err)
	}

	balance, err := decimal.NewFromString(balStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ошибка разбора баланса: %w", err)
	}

	taken := clampTake(balance, amount)
	if !taken.IsPositive() {
		return decimal.Zero, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET balance = balance - $2::numeric, updated_at = NOW()
		WHERE user_id = $1
	`, userID, taken.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("ошибка изъятия: %w", err)
	}

	if err := insertTransaction(ctx, tx, &userID, nil, taken, txType, description); err != nil {
		return decimal.Zero, err
	}
	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, err
	}
	return taken, nil
}

// clampTake ограничивает изымаемую сумму текущим балансом: взять можно
// сколько есть, но не больше запрошенного и не меньше нуля.
func clampTake(balance, amount decimal.Decimal) decimal.Decimal {
	taken := amount
	if balance.LessThan(taken) {
		taken = balance
	}
	if taken.IsNegative() {
		return decimal.Zero
	}
	return taken
}

// Top возвращает первых limit пользователей по балансу.
func (r *Repository) Top(ctx context.Context, limit int) ([]*Account, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+accountColumns+` FROM users ORDER BY balance DESC, user_id ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения топа: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения топа: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Rank возвращает позицию пользователя в рейтинге по балансу (1 = первый).
func (r *Repository) Rank(ctx context.Context, userID int64) (int, error) {
	var rank int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) + 1 FROM users
		WHERE balance > (SELECT balance FROM users WHERE user_id = $1)
	`, userID).Scan(&rank)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, common.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка получения ранга: %w", err)
	}
	return rank, nil
}

// insertTransaction пишет запись в журнал транзакций внутри переданной tx.
func insertTransaction(ctx context.Context, tx pgx.Tx, from, to *int64, amount decimal.Decimal, txType, description string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO transactions (from_user_id, to_user_id, amount, transaction_type, description, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6)
	`, from, to, amount.String(), txType, description, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("ошибка записи транзакции: %w", err)
	}
	return nil
}
