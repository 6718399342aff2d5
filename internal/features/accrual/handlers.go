// Package accrual — handlers.go обрабатывает команду /stats.
package accrual

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"github.com/heavenly-temple/pounds-bot/internal/common"
	"github.com/heavenly-temple/pounds-bot/internal/features/ledger"
)

// Accounts — поиск счетов для разрешения @username в ID.
type Accounts interface {
	GetByUsername(ctx context.Context, username string) (*ledger.Account, error)
}

// Handler обрабатывает команды статистики активности.
type Handler struct {
	service  *Service
	accounts Accounts
	bot      *telego.Bot
}

// NewHandler создаёт новый обработчик статистики.
func NewHandler(service *Service, accounts Accounts, bot *telego.Bot) *Handler {
	return &Handler{service: service, accounts: accounts, bot: bot}
}

// HandleStats обрабатывает команду /stats [@username] — сводка активности
// своей или чужой (по @username).
func (h *Handler) HandleStats(ctx context.Context, chatID, userID int64, args []string) {
	title := "📊 Ваша активность"
	if len(args) > 0 && strings.HasPrefix(args[0], "@") {
		account, err := h.accounts.GetByUsername(ctx, strings.TrimPrefix(args[0], "@"))
		if err != nil {
			h.sendMessage(ctx, chatID, "❌ Пользователь не найден")
			return
		}
		userID = account.UserID
		title = fmt.Sprintf("📊 Активность %s", account.DisplayName())
	}

	stats, err := h.service.Stats(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения статистики")
		h.sendMessage(ctx, chatID, "❌ Ошибка получения статистики")
		return
	}

	text := title + fmt.Sprintf(
		"\n\n"+
			"💬 Сообщений: %s (оплачено: %s)\n"+
			"🎙 Минут в голосовых: %s (оплачено: %s)\n"+
			"🤝 Приглашений: %s\n"+
			"🚀 Бустов: %s",
		common.FormatNumber(stats.Messages.Count), common.FormatNumber(stats.Messages.Rewarded),
		common.FormatNumber(stats.Voice.Minutes), common.FormatNumber(stats.Voice.RewardedMinutes),
		common.FormatNumber(stats.Invites.Count),
		common.FormatNumber(stats.Boosts.Count),
	)
	h.sendMessage(ctx, chatID, text)
}

// sendMessage — вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) sendMessage(ctx context.Context, chatID int64, text string) {
	_, err := h.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: chatID},
		Text:   text,
	})
	if err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
