// Package admin — service.go содержит логику аутентификации, управления
// сессиями и казначейские операции grant/take.
package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"github.com/heavenly-temple/pounds-bot/internal/common"
	"github.com/heavenly-temple/pounds-bot/internal/config"
	"github.com/heavenly-temple/pounds-bot/internal/features/ledger"
)

// Wallet — часть сервиса счетов, нужная казначейству.
type Wallet interface {
	Credit(ctx context.Context, userID int64, amount decimal.Decimal, txType, description string) error
	TakeUpTo(ctx context.Context, userID int64, amount decimal.Decimal, txType, description string) (decimal.Decimal, error)
}

// Fund — часть сервиса пула, нужная казначейству.
type Fund interface {
	Credit(ctx context.Context, amount decimal.Decimal) error
	Debit(ctx context.Context, amount decimal.Decimal) error
	Balance(ctx context.Context) (decimal.Decimal, error)
}

// Service управляет админ-панелью.
type Service struct {
	repo     *Repository
	wallet   Wallet
	fund     Fund
	cfg      *config.Config
	notifier common.Notifier

	states   map[int64]*DialogState // Состояния диалогов (in-memory)
	statesMu sync.RWMutex
}

// NewService создаёт сервис админ-панели.
func NewService(repo *Repository, wallet Wallet, fund Fund, cfg *config.Config, notifier common.Notifier) *Service {
	if notifier == nil {
		notifier = common.NopNotifier{}
	}
	return &Service{
		repo:     repo,
		wallet:   wallet,
		fund:     fund,
		cfg:      cfg,
		notifier: notifier,
		states:   make(map[int64]*DialogState),
	}
}

// Authorized проверяет, может ли пользователь выполнять админ-команды.
// Нужно входить в ADMIN_IDS; если задан ADMIN_PASSWORD_HASH —
// дополнительно нужна активная сессия после /login.
func (s *Service) Authorized(ctx context.Context, userID int64) bool {
	if !s.cfg.IsAdmin(userID) {
		return false
	}
	if s.cfg.AdminPasswordHash == "" {
		return true
	}
	return s.HasActiveSession(ctx, userID)
}

// VerifyPassword проверяет пароль администратора с использованием Argon2id.
// Включает защиту от brute-force: 3 неудачные попытки = блокировка на 1 час.
func (s *Service) VerifyPassword(ctx context.Context, userID int64, password string) error {
	// Проверяем лимит попыток
	attempts, err := s.repo.GetRecentAttempts(ctx, userID, 1*time.Hour)
	if err != nil {
		return err
	}
	if attempts >= 3 {
		return common.ErrTooManyAttempts
	}

	// Проверяем пароль
	match := verifyArgon2id(password, s.cfg.AdminPasswordHash)

	// Логируем попытку
	s.repo.LogAttempt(ctx, userID, match)

	if !match {
		return common.ErrWrongPassword
	}

	// Создаём сессию (24 часа)
	token := generateSecureToken()
	session := &Session{
		UserID:       userID,
		SessionToken: token,
		ExpiresAt:    time.Now().Add(24 * time.Hour),
	}

	return s.repo.CreateSession(ctx, session)
}

// HasActiveSession проверяет, есть ли у пользователя активная сессия.
func (s *Service) HasActiveSession(ctx context.Context, userID int64) bool {
	session, err := s.repo.GetActiveSession(ctx, userID)
	return err == nil && session != nil
}

// Logout деактивирует сессии администратора.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.repo.DeactivateSession(ctx, userID)
}

// CleanupSessions деактивирует истёкшие сессии. Вызывается по расписанию.
func (s *Service) CleanupSessions(ctx context.Context) error {
	n, err := s.repo.CleanupExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		log.WithField("count", n).Info("Деактивированы истёкшие админ-сессии")
	}
	return nil
}

// Grant выдаёт пользователю amount фунтов из серверного пула.
// Если в пуле не хватает — ErrInsufficientPoolFunds, счёт не меняется.
func (s *Service) Grant(ctx context.Context, adminID, targetID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return common.ErrInvalidAmount
	}

	if err := s.fund.Debit(ctx, amount); err != nil {
		return err
	}
	if err := s.wallet.Credit(ctx, targetID, amount, ledger.TxTypeAdminGrant,
		fmt.Sprintf("Выдача администратором %d", adminID)); err != nil {
		// Пул уже уменьшен — возвращаем
		if refundErr := s.fund.Credit(ctx, amount); refundErr != nil {
			log.WithError(refundErr).Error("Не удалось вернуть в пул после неудачной выдачи")
		}
		return err
	}

	log.WithFields(log.Fields{
		"admin":  adminID,
		"target": targetID,
		"amount": amount.String(),
	}).Info("Админ выдал фунты из пула")

	s.notifier.LogActivity("🏦 Выдача из пула",
		fmt.Sprintf("Администратор выдал %s пользователю %d", common.FormatPounds(amount), targetID),
		common.ColorBlue)
	return nil
}

// Take изымает у пользователя до amount фунтов в серверный пул.
// Изымается сколько есть (но не больше amount); возвращается
// фактически изъятая сумма.
func (s *Service) Take(ctx context.Context, adminID, targetID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, common.ErrInvalidAmount
	}

	taken, err := s.wallet.TakeUpTo(ctx, targetID, amount, ledger.TxTypeAdminTake,
		fmt.Sprintf("Изъятие администратором %d", adminID))
	if err != nil {
		return decimal.Zero, err
	}
	if taken.IsPositive() {
		if err := s.fund.Credit(ctx, taken); err != nil {
			log.WithError(err).Error("Не удалось зачислить изъятое в пул")
		}
	}

	log.WithFields(log.Fields{
		"admin":  adminID,
		"target": targetID,
		"taken":  taken.String(),
	}).Info("Админ изъял фунты в пул")

	s.notifier.LogActivity("🏦 Изъятие в пул",
		fmt.Sprintf("Администратор изъял %s у пользователя %d", common.FormatPounds(taken), targetID),
		common.ColorOrange)
	return taken, nil
}

// PoolBalance возвращает баланс серверного пула.
func (s *Service) PoolBalance(ctx context.Context) (decimal.Decimal, error) {
	return s.fund.Balance(ctx)
}

// GetState возвращает текущее состояние диалога.
func (s *Service) GetState(userID int64) *DialogState {
	s.statesMu.RLock()
	defer s.statesMu.RUnlock()

	state, ok := s.states[userID]
	if !ok {
		return nil
	}
	// Проверяем истечение
	if time.Now().After(state.ExpiresAt) {
		return nil
	}
	return state
}

// SetState устанавливает состояние диалога с 5-минутным таймаутом.
func (s *Service) SetState(userID int64, stateName string) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()

	s.states[userID] = &DialogState{
		State:     stateName,
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
}

// ClearState сбрасывает состояние диалога.
func (s *Service) ClearState(userID int64) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()
	delete(s.states, userID)
}

// --- Криптографические утилиты ---

// verifyArgon2id проверяет пароль по хешу Argon2id.
// Формат хеша: $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func verifyArgon2id(password, encodedHash string) bool {
	// Парсим хеш
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	// Извлекаем параметры
	var memory uint32
	var iterations uint32
	var parallelism uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism)
	if err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	// Декодируем соль
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}

	// Декодируем хеш
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	// Вычисляем хеш введённого пароля
	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Сравниваем в постоянном времени (защита от timing attack)
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}

// generateSecureToken генерирует криптографически безопасный токен сессии.
func generateSecureToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}
