package daily

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/heavenly-temple/pounds-bot/internal/common"
)

// store — операции репозитория, нужные сервису.
type store interface {
	GetState(ctx context.Context, userID int64) (*State, error)
	CommitClaim(ctx context.Context, userID int64, today time.Time, streak int, reward decimal.Decimal) (bool, error)
}

// Claim — итог успешного получения ежедневной награды.
type Claim struct {
	Reward decimal.Decimal
	Streak int
}

// Service содержит бизнес-логику ежедневной награды.
type Service struct {
	repo       store
	baseReward int64
	notifier   common.Notifier
	now        func() time.Time // подменяется в тестах
}

// NewService создаёт новый сервис ежедневной награды.
func NewService(repo store, baseReward int64, notifier common.Notifier) *Service {
	if notifier == nil {
		notifier = common.NopNotifier{}
	}
	return &Service{
		repo:       repo,
		baseReward: baseReward,
		notifier:   notifier,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ClaimDaily выдаёт ежедневную награду.
//
// Правила серии: награда вчера была — серия растёт на 1; вчера пропущен —
// серия начинается заново с 1. Размер награды: base + серия.
// Повторный вызов в тот же день UTC возвращает *common.AlreadyClaimedError
// со временем до следующей полуночи.
func (s *Service) ClaimDaily(ctx context.Context, userID int64, displayName string) (*Claim, error) {
	now := s.now()
	today := common.UTCDate(now)
	yesterday := today.Add(-24 * time.Hour)

	st, err := s.repo.GetState(ctx, userID)
	if err != nil {
		return nil, err
	}

	if st.LastDaily != nil && !common.UTCDate(*st.LastDaily).Before(today) {
		return nil, &common.AlreadyClaimedError{RetryAfter: common.NextUTCMidnight(now).Sub(now)}
	}

	streak := 1
	if st.LastDaily != nil && common.UTCDate(*st.LastDaily).Equal(yesterday) {
		streak = st.Streak + 1
	}
	reward := decimal.NewFromInt(s.baseReward + int64(streak))

	ok, err := s.repo.CommitClaim(ctx, userID, today, streak, reward)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Гонка: параллельный /daily успел первым
		return nil, &common.AlreadyClaimedError{RetryAfter: common.NextUTCMidnight(now).Sub(now)}
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"streak":  streak,
		"reward":  reward.String(),
	}).Info("Выдана ежедневная награда")

	s.notifier.LogActivity("📅 Ежедневная награда",
		fmt.Sprintf("%s получил %s (серия: %d %s)",
			displayName, common.FormatPounds(reward), streak, common.PluralizeDays(streak)),
		common.ColorGold)

	return &Claim{Reward: reward, Streak: streak}, nil
}
