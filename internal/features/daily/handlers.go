// Package daily — handlers.go обрабатывает команду /daily.
package daily

import (
	"context"
	"errors"
	"fmt"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"github.com/heavenly-temple/pounds-bot/internal/common"
)

// Handler обрабатывает команду ежедневной награды.
type Handler struct {
	service *Service
	bot     *telego.Bot
}

// NewHandler создаёт новый обработчик ежедневной награды.
func NewHandler(service *Service, bot *telego.Bot) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleDaily обрабатывает команду /daily.
func (h *Handler) HandleDaily(ctx context.Context, chatID, userID int64, displayName string) {
	claim, err := h.service.ClaimDaily(ctx, userID, displayName)

	var already *common.AlreadyClaimedError
	if errors.As(err, &already) {
		hours := int(already.RetryAfter.Hours())
		minutes := int(already.RetryAfter.Minutes()) % 60
		h.sendMessage(ctx, chatID, fmt.Sprintf(
			"⏳ Награда уже получена сегодня.\nВозвращайтесь через %dч %dмин", hours, minutes))
		return
	}
	if err != nil {
		log.WithError(err).Error("Ошибка ежедневной награды")
		h.sendMessage(ctx, chatID, "❌ Ошибка получения награды, попробуйте позже")
		return
	}

	h.sendMessage(ctx, chatID, fmt.Sprintf(
		"📅 Ежедневная награда: +%s\n🔥 Серия: %d %s подряд",
		common.FormatPounds(claim.Reward), claim.Streak, common.PluralizeDays(claim.Streak)))
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
