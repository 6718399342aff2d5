package accrual

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/heavenly-temple/pounds-bot/internal/common"
	"github.com/heavenly-temple/pounds-bot/internal/features/ledger"
)

// maxBatchesPerEvent ограничивает число порций, оплачиваемых за одно событие.
// Обычный сценарий — одна порция; больше бывает только после долгой
// голосовой сессии или гонки конкурентных событий.
const maxBatchesPerEvent = 16

// Wallet — часть сервиса счетов, нужная начислениям.
type Wallet interface {
	Credit(ctx context.Context, userID int64, amount decimal.Decimal, txType, description string) error
}

// store — операции репозитория активности, нужные сервису.
type store interface {
	IncrMessages(ctx context.Context, userID int64) (count, rewarded int64, err error)
	AdvanceMessagesRewarded(ctx context.Context, userID, take int64) (bool, error)
	AddVoiceMinutes(ctx context.Context, userID, minutes int64) (total, rewarded int64, err error)
	AdvanceVoiceRewarded(ctx context.Context, userID, take int64) (bool, error)
	IncrInvites(ctx context.Context, userID, by int64) (int64, error)
	ObserveBoosts(ctx context.Context, userID, total int64) (int64, error)
	GetStats(ctx context.Context, userID int64) (*UserStats, error)
}

// Rates — ставки наград за активность.
type Rates struct {
	Invite           int64 // фунтов за приглашение
	MessageBatch     int64 // фунтов за порцию сообщений
	MessageThreshold int64 // сообщений в порции
	VoiceBatch       int64 // фунтов за порцию минут
	VoiceThreshold   int64 // минут в порции
	Boost            int64 // фунтов за буст
}

// Service начисляет награды за активность.
type Service struct {
	repo     store
	wallet   Wallet
	rates    Rates
	voice    *VoiceRegistry
	invites  *InviteRegistry
	notifier common.Notifier
}

// NewService создаёт новый сервис начислений.
func NewService(repo store, wallet Wallet, rates Rates, notifier common.Notifier) *Service {
	if notifier == nil {
		notifier = common.NopNotifier{}
	}
	return &Service{
		repo:     repo,
		wallet:   wallet,
		rates:    rates,
		voice:    NewVoiceRegistry(),
		invites:  NewInviteRegistry(),
		notifier: notifier,
	}
}

// RecordMessage засчитывает одно сообщение пользователя и выплачивает
// награду за каждую набранную полную порцию.
func (s *Service) RecordMessage(ctx context.Context, userID int64, displayName string) error {
	count, rewarded, err := s.repo.IncrMessages(ctx, userID)
	if err != nil {
		return err
	}
	if count-rewarded < s.rates.MessageThreshold {
		return nil
	}
	return s.payBatches(ctx, userID, displayName,
		s.rates.MessageThreshold, s.rates.MessageBatch,
		s.repo.AdvanceMessagesRewarded,
		ledger.TxTypeMessageReward,
		fmt.Sprintf("Награда за %d сообщений", s.rates.MessageThreshold),
		"💬 Награда за сообщения",
	)
}

// VoiceJoin отмечает вход пользователя в голосовой чат.
func (s *Service) VoiceJoin(userID int64) {
	s.voice.Join(userID, time.Now().UTC())
	log.WithField("user_id", userID).Debug("Голосовая сессия открыта")
}

// VoiceLeave закрывает голосовую сессию, записывает минуты
// и выплачивает награду за полные часы.
func (s *Service) VoiceLeave(ctx context.Context, userID int64, displayName string) error {
	minutes, ok := s.voice.Leave(userID, time.Now().UTC())
	if !ok || minutes <= 0 {
		return nil
	}
	return s.RecordVoiceMinutes(ctx, userID, displayName, minutes)
}

// VoiceEndAll закрывает все открытые сессии (голосовой чат завершился)
// и начисляет минуты каждому участнику.
func (s *Service) VoiceEndAll(ctx context.Context) {
	for userID, minutes := range s.voice.CloseAll(time.Now().UTC()) {
		if minutes <= 0 {
			continue
		}
		if err := s.RecordVoiceMinutes(ctx, userID, fmt.Sprintf("Пользователь %d", userID), minutes); err != nil {
			log.WithError(err).WithField("user_id", userID).Error("Ошибка начисления голосовых минут")
		}
	}
}

// RecordVoiceMinutes добавляет minutes минут голосовой активности
// и выплачивает награду за каждую полную порцию.
func (s *Service) RecordVoiceMinutes(ctx context.Context, userID int64, displayName string, minutes int64) error {
	if minutes <= 0 {
		return nil
	}
	total, rewarded, err := s.repo.AddVoiceMinutes(ctx, userID, minutes)
	if err != nil {
		return err
	}
	if total-rewarded < s.rates.VoiceThreshold {
		return nil
	}
	return s.payBatches(ctx, userID, displayName,
		s.rates.VoiceThreshold, s.rates.VoiceBatch,
		s.repo.AdvanceVoiceRewarded,
		ledger.TxTypeVoiceReward,
		fmt.Sprintf("Награда за %d минут в голосовом чате", s.rates.VoiceThreshold),
		"🎙 Награда за голосовой чат",
	)
}

// RecordInvite начисляет награду пригласившему, если этого участника
// ещё не засчитывали.
func (s *Service) RecordInvite(ctx context.Context, inviterID, inviteeID int64, inviterName string) error {
	if inviterID == inviteeID {
		return nil
	}
	if !s.invites.Claim(inviteeID, inviterID) {
		return nil
	}

	total, err := s.repo.IncrInvites(ctx, inviterID, 1)
	if err != nil {
		return err
	}

	reward := decimal.NewFromInt(s.rates.Invite)
	if err := s.wallet.Credit(ctx, inviterID, reward, ledger.TxTypeInviteReward, "Награда за приглашение"); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"inviter": inviterID,
		"invitee": inviteeID,
		"total":   total,
	}).Info("Засчитано приглашение")

	s.notifier.LogActivity("🤝 Приглашение",
		fmt.Sprintf("%s пригласил нового участника: +%s %s (всего приглашений: %d)",
			inviterName, common.FormatNumber(s.rates.Invite), common.PluralizePounds(s.rates.Invite), total),
		common.ColorGreen)
	return nil
}

// RecordBoosts записывает наблюдаемое суммарное число бустов пользователя
// и выплачивает награду только за прирост. Повторная доставка того же
// значения ничего не начисляет.
func (s *Service) RecordBoosts(ctx context.Context, userID int64, total int64, displayName string) error {
	if total < 0 {
		return nil
	}
	delta, err := s.repo.ObserveBoosts(ctx, userID, total)
	if err != nil {
		return err
	}
	if delta <= 0 {
		return nil
	}

	reward := decimal.NewFromInt(delta * s.rates.Boost)
	if err := s.wallet.Credit(ctx, userID, reward, ledger.TxTypeBoostReward,
		fmt.Sprintf("Награда за %d буст(ов)", delta)); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"delta":   delta,
		"total":   total,
	}).Info("Начислена награда за бусты")

	s.notifier.LogActivity("🚀 Буст сообщества",
		fmt.Sprintf("%s забустил сообщество: +%s %s",
			displayName, reward.StringFixed(0), common.PluralizePounds(delta*s.rates.Boost)),
		common.ColorGold)
	return nil
}

// Stats возвращает сводку активности пользователя.
func (s *Service) Stats(ctx context.Context, userID int64) (*UserStats, error) {
	return s.repo.GetStats(ctx, userID)
}

// payBatches оплачивает все набранные полные порции активности.
// Каждая порция защищена атомарным сдвигом отметки: при конкурентных
// событиях порцию оплатит ровно один из них, остальные получат «нет порции»
// и молча выйдут.
func (s *Service) payBatches(
	ctx context.Context,
	userID int64,
	displayName string,
	threshold, batchReward int64,
	advance func(ctx context.Context, userID, take int64) (bool, error),
	txType, description, logTitle string,
) error {
	for i := 0; i < maxBatchesPerEvent; i++ {
		ok, err := advance(ctx, userID, threshold)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		reward := decimal.NewFromInt(batchReward)
		if err := s.wallet.Credit(ctx, userID, reward, txType, description); err != nil {
			// Отметка уже сдвинута, а выплата не прошла. Логируем громко:
			// это единственное место, где порция может потеряться.
			log.WithError(err).WithFields(log.Fields{
				"user_id": userID,
				"tx_type": txType,
			}).Error("Порция активности засчитана, но выплата не прошла")
			return err
		}

		log.WithFields(log.Fields{
			"user_id": userID,
			"reward":  batchReward,
			"tx_type": txType,
		}).Info("Выплачена порция награды за активность")

		s.notifier.LogActivity(logTitle,
			fmt.Sprintf("%s: +%s %s", displayName,
				common.FormatNumber(batchReward), common.PluralizePounds(batchReward)),
			common.ColorGreen)
	}
	return nil
}
