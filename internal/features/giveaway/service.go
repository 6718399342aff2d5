package giveaway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/heavenly-temple/pounds-bot/internal/common"
	"github.com/heavenly-temple/pounds-bot/internal/features/ledger"
)

// Пределы длительности розыгрыша
const (
	MinDuration = 1 * time.Minute
	MaxDuration = 30 * 24 * time.Hour
)

// resolveTimeout — бюджет фоновой развязки по таймеру.
const resolveTimeout = 30 * time.Second

// store — операции репозитория, нужные сервису.
type store interface {
	Create(ctx context.Context, g *Giveaway) (int64, error)
	Get(ctx context.Context, id int64) (*Giveaway, error)
	GetByMessage(ctx context.Context, messageID int64) (*Giveaway, error)
	SetMessage(ctx context.Context, id, messageID int64) error
	Enter(ctx context.Context, giveawayID, userID int64, now time.Time) error
	ClaimEnd(ctx context.Context, id int64, cancelled bool) (*Giveaway, bool, error)
	SetWinners(ctx context.Context, id int64, winners []int64) error
	ListOpen(ctx context.Context) ([]*Giveaway, error)
}

// Wallet — часть сервиса счетов, нужная розыгрышам.
type Wallet interface {
	Credit(ctx context.Context, userID int64, amount decimal.Decimal, txType, description string) error
}

// Fund — часть сервиса пула, нужная розыгрышам.
type Fund interface {
	Credit(ctx context.Context, amount decimal.Decimal) error
	Debit(ctx context.Context, amount decimal.Decimal) error
}

// Result — итог терминального перехода розыгрыша.
type Result struct {
	Giveaway  *Giveaway
	Winners   []int64
	Share     decimal.Decimal // выплата каждому победителю
	Cancelled bool
	Reason    string // причина отмены (пустая при розыгрыше)
}

// Service управляет жизненным циклом розыгрышей.
type Service struct {
	repo     store
	wallet   Wallet
	fund     Fund
	timers   *TimerRegistry
	notifier common.Notifier

	rngMu sync.Mutex
	rng   *rand.Rand

	announceMu sync.RWMutex
	announce   func(*Result) // объявление итогов в чате (ставит бот)
}

// NewService создаёт новый сервис розыгрышей.
// rng может быть nil — тогда берётся генератор со случайным зерном.
func NewService(repo store, wallet Wallet, fund Fund, notifier common.Notifier, rng *rand.Rand) *Service {
	if notifier == nil {
		notifier = common.NopNotifier{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		repo:     repo,
		wallet:   wallet,
		fund:     fund,
		timers:   NewTimerRegistry(),
		notifier: notifier,
		rng:      rng,
	}
}

// SetAnnouncer устанавливает колбэк объявления итогов.
// Вызывается ботом после сборки: сервис не знает про Telegram.
func (s *Service) SetAnnouncer(fn func(*Result)) {
	s.announceMu.Lock()
	defer s.announceMu.Unlock()
	s.announce = fn
}

// Create создаёт розыгрыш: резервирует приз из пула, сохраняет запись
// и ставит таймер завершения. Если в пуле не хватает на приз —
// ErrInsufficientPoolFunds и ничего не создаётся.
func (s *Service) Create(ctx context.Context, createdBy int64, prize decimal.Decimal, winners int, entryCost decimal.Decimal, duration time.Duration) (*Giveaway, error) {
	if !prize.IsPositive() || winners < 1 || entryCost.IsNegative() {
		return nil, common.ErrInvalidAmount
	}
	if duration < MinDuration || duration > MaxDuration {
		return nil, common.ErrInvalidDuration
	}

	// Приз резервируется сразу: после этой точки пул уже не может
	// «потратить» деньги розыгрыша на что-то другое.
	if err := s.fund.Debit(ctx, prize); err != nil {
		return nil, err
	}

	g := &Giveaway{
		Prize:        prize,
		EntryCost:    entryCost,
		WinnersCount: winners,
		CreatedBy:    createdBy,
		EndsAt:       time.Now().UTC().Add(duration),
	}

	id, err := s.repo.Create(ctx, g)
	if err != nil {
		// Запись не создалась — возвращаем резерв в пул
		if refundErr := s.fund.Credit(ctx, prize); refundErr != nil {
			log.WithError(refundErr).WithField("prize", prize.String()).
				Error("Не удалось вернуть резерв приза в пул")
		}
		return nil, err
	}
	g.ID = id

	s.timers.Schedule(id, g.EndsAt, func() { s.resolveByTimer(id) })

	log.WithFields(log.Fields{
		"giveaway_id": id,
		"prize":       prize.String(),
		"winners":     winners,
		"entry_cost":  entryCost.String(),
		"ends_at":     g.EndsAt,
	}).Info("Создан розыгрыш")

	s.notifier.LogActivity("🎉 Новый розыгрыш",
		fmt.Sprintf("Розыгрыш #%d: приз %s, победителей: %d, взнос: %s",
			id, common.FormatPounds(prize), winners, common.FormatPounds(entryCost)),
		common.ColorPurple)

	return g, nil
}

// AttachMessage привязывает сообщение-анонс к розыгрышу.
func (s *Service) AttachMessage(ctx context.Context, id, messageID int64) error {
	return s.repo.SetMessage(ctx, id, messageID)
}

// Get возвращает розыгрыш по ID.
func (s *Service) Get(ctx context.Context, id int64) (*Giveaway, error) {
	return s.repo.Get(ctx, id)
}

// ListOpen возвращает открытые розыгрыши.
func (s *Service) ListOpen(ctx context.Context) ([]*Giveaway, error) {
	return s.repo.ListOpen(ctx)
}

// Enter регистрирует заявку пользователя. Взнос списывается ровно один раз:
// дубликат и закрытое окно приёма отклоняются без списания.
func (s *Service) Enter(ctx context.Context, giveawayID, userID int64, displayName string) error {
	if err := s.repo.Enter(ctx, giveawayID, userID, time.Now().UTC()); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"giveaway_id": giveawayID,
		"user_id":     userID,
	}).Info("Заявка на участие в розыгрыше")

	s.notifier.LogActivity("🎟 Заявка на розыгрыш",
		fmt.Sprintf("%s участвует в розыгрыше #%d", displayName, giveawayID),
		common.ColorPurple)
	return nil
}

// Resolve разыгрывает призы. Переход терминальный и одноразовый:
// если розыгрыш уже завершён (таймером, командой или отменой),
// возвращается ErrGiveawayNotFound и никакие деньги не двигаются.
//
// Распределение: победителей min(winners_count, участников), каждому
// floor(prize / победителей), неделимый остаток возвращается в пул.
// Без участников весь приз возвращается в пул.
func (s *Service) Resolve(ctx context.Context, id int64) (*Result, error) {
	g, claimed, err := s.repo.ClaimEnd(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, common.ErrGiveawayNotFound
	}
	s.timers.Cancel(id)

	res := &Result{Giveaway: g}

	if len(g.Participants) == 0 {
		if err := s.fund.Credit(ctx, g.Prize); err != nil {
			log.WithError(err).WithField("giveaway_id", id).
				Error("Не удалось вернуть приз в пул (нет участников)")
		}
		log.WithField("giveaway_id", id).Info("Розыгрыш завершён без участников")
		s.notifier.LogActivity("🎉 Розыгрыш завершён",
			fmt.Sprintf("Розыгрыш #%d: участников не было, приз вернулся в пул", id),
			common.ColorPurple)
		return res, nil
	}

	n := g.WinnersCount
	if n > len(g.Participants) {
		n = len(g.Participants)
	}

	s.rngMu.Lock()
	winners := DrawWinners(g.Participants, n, s.rng)
	s.rngMu.Unlock()

	share := g.Prize.Div(decimal.NewFromInt(int64(n))).Floor()
	// Приз меньше числа победителей: доля обнуляется, весь приз уходит
	// обратно в пул как остаток
	if share.IsPositive() {
		for _, winnerID := range winners {
			if err := s.wallet.Credit(ctx, winnerID, share, ledger.TxTypeGiveawayPrize,
				fmt.Sprintf("Выигрыш в розыгрыше #%d", id)); err != nil {
				log.WithError(err).WithFields(log.Fields{
					"giveaway_id": id,
					"winner":      winnerID,
				}).Error("Не удалось выплатить выигрыш")
			}
		}
	}

	// Неделимый остаток возвращается в пул
	remainder := g.Prize.Sub(share.Mul(decimal.NewFromInt(int64(n))))
	if remainder.IsPositive() {
		if err := s.fund.Credit(ctx, remainder); err != nil {
			log.WithError(err).WithField("giveaway_id", id).
				Error("Не удалось вернуть остаток приза в пул")
		}
	}

	if err := s.repo.SetWinners(ctx, id, winners); err != nil {
		log.WithError(err).WithField("giveaway_id", id).Error("Не удалось записать победителей")
	}

	res.Winners = winners
	res.Share = share

	log.WithFields(log.Fields{
		"giveaway_id": id,
		"winners":     winners,
		"share":       share.String(),
	}).Info("Розыгрыш разыгран")

	s.notifier.LogActivity("🏆 Итоги розыгрыша",
		fmt.Sprintf("Розыгрыш #%d: %d победител(ей), по %s каждому",
			id, len(winners), common.FormatPounds(share)),
		common.ColorPurple)

	return res, nil
}

// Cancel отменяет розыгрыш: приз возвращается в пул, взносы участников
// возвращаются на их счета. Переход такой же одноразовый, как у Resolve.
func (s *Service) Cancel(ctx context.Context, id int64, reason string) (*Result, error) {
	g, claimed, err := s.repo.ClaimEnd(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, common.ErrGiveawayNotFound
	}
	s.timers.Cancel(id)

	if err := s.fund.Credit(ctx, g.Prize); err != nil {
		log.WithError(err).WithField("giveaway_id", id).
			Error("Не удалось вернуть приз в пул при отмене")
	}

	if g.EntryCost.IsPositive() {
		for _, userID := range g.Participants {
			if err := s.wallet.Credit(ctx, userID, g.EntryCost, ledger.TxTypeGiveawayRefund,
				fmt.Sprintf("Возврат взноса: розыгрыш #%d отменён", id)); err != nil {
				log.WithError(err).WithFields(log.Fields{
					"giveaway_id": id,
					"user_id":     userID,
				}).Error("Не удалось вернуть взнос участнику")
				continue
			}
			// Взносы при вступлении ушли в пул — оттуда и возвращаются
			if err := s.fund.Debit(ctx, g.EntryCost); err != nil {
				log.WithError(err).WithField("giveaway_id", id).
					Error("Пул не покрыл возврат взноса")
			}
		}
	}

	log.WithFields(log.Fields{
		"giveaway_id": id,
		"reason":      reason,
	}).Info("Розыгрыш отменён")

	s.notifier.LogActivity("🚫 Розыгрыш отменён",
		fmt.Sprintf("Розыгрыш #%d отменён (%s). Приз и взносы возвращены.", id, reason),
		common.ColorOrange)

	return &Result{Giveaway: g, Cancelled: true, Reason: reason}, nil
}

// CancelByMessage отменяет розыгрыш, чьё сообщение-анонс было удалено.
func (s *Service) CancelByMessage(ctx context.Context, messageID int64, reason string) (*Result, error) {
	g, err := s.repo.GetByMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return s.Cancel(ctx, g.ID, reason)
}

// RestoreTimers восстанавливает таймеры открытых розыгрышей после рестарта.
// Просроченные разыгрываются почти сразу.
func (s *Service) RestoreTimers(ctx context.Context) error {
	open, err := s.repo.ListOpen(ctx)
	if err != nil {
		return err
	}
	for _, g := range open {
		id := g.ID
		s.timers.Schedule(id, g.EndsAt, func() { s.resolveByTimer(id) })
	}
	if len(open) > 0 {
		log.WithField("count", len(open)).Info("Восстановлены таймеры розыгрышей")
	}
	return nil
}

// Shutdown останавливает все таймеры.
func (s *Service) Shutdown() {
	s.timers.StopAll()
}

// resolveByTimer — фоновая развязка по истечении времени.
func (s *Service) resolveByTimer(id int64) {
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	res, err := s.Resolve(ctx, id)
	if err != nil {
		// Уже завершён вручную — это не ошибка
		if err != common.ErrGiveawayNotFound {
			log.WithError(err).WithField("giveaway_id", id).
				Error("Не удалось разыграть розыгрыш по таймеру")
		}
		return
	}

	s.announceMu.RLock()
	announce := s.announce
	s.announceMu.RUnlock()
	if announce != nil {
		announce(res)
	}
}
