package shop

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/heavenly-temple/pounds-bot/internal/common"
)

// Purchase — итог успешной покупки.
type Purchase struct {
	UserID      int64
	DisplayName string
	Resource    Resource
	Amount      int64           // единиц ресурса
	Cost        decimal.Decimal // списано фунтов
	At          time.Time
}

// purchaseStore — часть репозитория, нужная сервису.
type purchaseStore interface {
	CommitPurchase(ctx context.Context, userID int64, res Resource, amount int64, cost decimal.Decimal) error
}

// Exporter дописывает запись о покупке во внешний журнал.
// Экспорт best-effort: его ошибка не отменяет покупку.
type Exporter interface {
	Append(p Purchase) error
}

// Service содержит бизнес-логику магазина.
type Service struct {
	repo     purchaseStore
	exporter Exporter
	notifier common.Notifier
}

// NewService создаёт новый сервис магазина.
// exporter может быть nil — тогда экспорт отключён.
func NewService(repo purchaseStore, exporter Exporter, notifier common.Notifier) *Service {
	if notifier == nil {
		notifier = common.NopNotifier{}
	}
	return &Service{repo: repo, exporter: exporter, notifier: notifier}
}

// Quote считает, сколько ресурса даст покупка за spend фунтов,
// не проводя саму покупку. Используется экраном подтверждения.
func (s *Service) Quote(res Resource, spend decimal.Decimal) (int64, error) {
	return PriceResources(res, spend)
}

// Buy проводит покупку: списывает spend фунтов, зачисляет ресурс,
// переводит выручку в пул. Журналы (CSV и лог-канал) пишутся после
// фиксации покупки и на её исход не влияют.
func (s *Service) Buy(ctx context.Context, userID int64, displayName string, res Resource, spend decimal.Decimal) (*Purchase, error) {
	amount, err := PriceResources(res, spend)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CommitPurchase(ctx, userID, res, amount, spend); err != nil {
		return nil, err
	}

	p := &Purchase{
		UserID:      userID,
		DisplayName: displayName,
		Resource:    res,
		Amount:      amount,
		Cost:        spend,
		At:          time.Now().UTC(),
	}

	log.WithFields(log.Fields{
		"user_id":  userID,
		"resource": res,
		"amount":   amount,
		"cost":     spend.String(),
	}).Info("Покупка в магазине")

	if s.exporter != nil {
		if err := s.exporter.Append(*p); err != nil {
			log.WithError(err).Warn("Не удалось записать покупку в CSV-журнал")
		}
	}

	s.notifier.LogActivity("🛒 Покупка в магазине",
		fmt.Sprintf("%s купил %s x%s за %s",
			displayName, res.Title(), common.FormatNumber(amount), common.FormatPounds(spend)),
		common.ColorBlue)

	return p, nil
}
