// Package ledger — handlers.go обрабатывает команды:
// /balance (баланс и ресурсы), /leaderboard (таблица лидеров).
package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"github.com/heavenly-temple/pounds-bot/internal/common"
)

// Handler обрабатывает команды счетов.
type Handler struct {
	service *Service
	bot     *telego.Bot
}

// NewHandler создаёт новый обработчик команд счетов.
func NewHandler(service *Service, bot *telego.Bot) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleBalance обрабатывает команду /balance — показывает фунты и ресурсы.
func (h *Handler) HandleBalance(ctx context.Context, chatID, userID int64) {
	account, err := h.service.GetAccount(ctx, userID)
	if err == common.ErrUserNotFound {
		h.sendMessage(ctx, chatID, "💰 Баланс: 0 фунтов\nНачните общаться — фунты придут сами!")
		return
	}
	if err != nil {
		log.WithError(err).Error("Ошибка получения баланса")
		h.sendMessage(ctx, chatID, "❌ Ошибка получения баланса")
		return
	}

	text := fmt.Sprintf(
		"💰 Баланс: %s\n\n🪙 Золото: %s\n🪵 Дерево: %s\n🍖 Еда: %s\n🪨 Камень: %s",
		common.FormatPounds(account.Balance),
		common.FormatNumber(account.Gold),
		common.FormatNumber(account.Wood),
		common.FormatNumber(account.Food),
		common.FormatNumber(account.Stone),
	)
	h.sendMessage(ctx, chatID, text)
}

// HandleLeaderboard обрабатывает команду /leaderboard — топ-10 по балансу.
func (h *Handler) HandleLeaderboard(ctx context.Context, chatID, userID int64) {
	top, err := h.service.Top(ctx, 10)
	if err != nil {
		log.WithError(err).Error("Ошибка получения таблицы лидеров")
		h.sendMessage(ctx, chatID, "❌ Ошибка получения таблицы лидеров")
		return
	}
	if len(top) == 0 {
		h.sendMessage(ctx, chatID, "Таблица лидеров пока пуста")
		return
	}

	var b strings.Builder
	b.WriteString("🏆 Таблица лидеров\n\n")
	medals := []string{"🥇", "🥈", "🥉"}
	for i, account := range top {
		place := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			place = medals[i]
		}
		fmt.Fprintf(&b, "%s %s — %s\n", place, account.DisplayName(), common.FormatPounds(account.Balance))
	}

	if rank, err := h.service.Rank(ctx, userID); err == nil && rank > len(top) {
		fmt.Fprintf(&b, "\nВаше место: %d", rank)
	}

	h.sendMessage(ctx, chatID, b.String())
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
