// Package shop — handlers.go обрабатывает команды /shop и /buy
// и колбэки подтверждения покупки.
package shop

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"github.com/heavenly-temple/pounds-bot/internal/common"
)

// Префиксы callback-данных кнопок подтверждения.
// Формат: confirm_buy:<ресурс>:<сумма>:<user_id>
const (
	callbackConfirmBuy = "confirm_buy"
	callbackCancelBuy  = "cancel_buy"
)

// Handler обрабатывает команды магазина.
type Handler struct {
	service *Service
	bot     *telego.Bot
}

// NewHandler создаёт новый обработчик магазина.
func NewHandler(service *Service, bot *telego.Bot) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleShop обрабатывает команду /shop — показывает прейскурант.
func (h *Handler) HandleShop(ctx context.Context, chatID int64) {
	var b strings.Builder
	b.WriteString("🏪 Магазин ресурсов храма\n\nКурс за ")
	b.WriteString(common.FormatPounds(PackagePrice))
	b.WriteString(":\n")
	for _, res := range AllResources {
		fmt.Fprintf(&b, "%s — %s\n", res.Title(), common.FormatNumber(Yield(res)))
	}
	b.WriteString("\nПокупка: /buy <ресурс> <фунты>\nПример: /buy золото 100 (можно 1k, 2m)")
	h.sendMessage(ctx, chatID, b.String())
}

// HandleBuy обрабатывает команду /buy <ресурс> <сумма>.
// Покупка двухшаговая: сначала экран подтверждения с кнопками,
// списание происходит только после нажатия «Подтвердить».
func (h *Handler) HandleBuy(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 2 {
		h.sendMessage(ctx, chatID, "❌ Формат: /buy <ресурс> <фунты>\nРесурсы: золото, дерево, еда, камень")
		return
	}

	res, err := ParseResource(args[0])
	if err != nil {
		h.sendMessage(ctx, chatID, "❌ Неизвестный ресурс. Доступны: золото, дерево, еда, камень")
		return
	}

	spend, err := common.ParseShorthand(args[1])
	if err != nil {
		h.sendMessage(ctx, chatID, "❌ Сумма должна быть положительным числом (можно 1k, 2m)")
		return
	}

	amount, err := h.service.Quote(res, spend)
	if err == common.ErrSpendTooSmall {
		h.sendMessage(ctx, chatID, "❌ Сумма слишком мала: не хватит даже на 1 единицу ресурса")
		return
	}
	if err != nil {
		h.sendMessage(ctx, chatID, "❌ "+err.Error())
		return
	}

	text := fmt.Sprintf("Подтвердите покупку:\n%s x%s за %s",
		res.Title(), common.FormatNumber(amount), common.FormatPounds(spend))

	keyboard := &telego.InlineKeyboardMarkup{
		InlineKeyboard: [][]telego.InlineKeyboardButton{{
			{
				Text:         "✅ Подтвердить",
				CallbackData: fmt.Sprintf("%s:%s:%s:%d", callbackConfirmBuy, res, spend.String(), userID),
			},
			{
				Text:         "❌ Отмена",
				CallbackData: fmt.Sprintf("%s:%d", callbackCancelBuy, userID),
			},
		}},
	}

	_, err = h.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:      telego.ChatID{ID: chatID},
		Text:        text,
		ReplyMarkup: keyboard,
	})
	if err != nil {
		log.WithError(err).Error("Ошибка отправки подтверждения покупки")
	}
}

// HandleCallback обрабатывает нажатия кнопок подтверждения покупки.
// Возвращает true, если колбэк относился к магазину.
func (h *Handler) HandleCallback(ctx context.Context, query *telego.CallbackQuery) bool {
	parts := strings.Split(query.Data, ":")

	switch parts[0] {
	case callbackCancelBuy:
		if len(parts) != 2 || !h.fromExpectedUser(query, parts[1]) {
			h.answer(ctx, query, "Это не ваша покупка", true)
			return true
		}
		h.answer(ctx, query, "Покупка отменена", false)
		h.clearKeyboard(ctx, query, "Покупка отменена")
		return true

	case callbackConfirmBuy:
		if len(parts) != 4 {
			return true
		}
		if !h.fromExpectedUser(query, parts[3]) {
			h.answer(ctx, query, "Это не ваша покупка", true)
			return true
		}

		res, err := ParseResource(parts[1])
		if err != nil {
			h.answer(ctx, query, "Неизвестный ресурс", true)
			return true
		}
		spend, err := common.ParseShorthand(parts[2])
		if err != nil {
			h.answer(ctx, query, "Некорректная сумма", true)
			return true
		}

		purchase, err := h.service.Buy(ctx, query.From.ID, displayName(&query.From), res, spend)
		switch err {
		case nil:
		case common.ErrInsufficientFunds:
			h.answer(ctx, query, "Недостаточно фунтов на счёте", true)
			return true
		default:
			log.WithError(err).Error("Ошибка покупки")
			h.answer(ctx, query, "Ошибка покупки, попробуйте позже", true)
			return true
		}

		h.answer(ctx, query, "Покупка совершена!", false)
		h.clearKeyboard(ctx, query, fmt.Sprintf("✅ Куплено: %s x%s за %s",
			purchase.Resource.Title(), common.FormatNumber(purchase.Amount), common.FormatPounds(purchase.Cost)))
		return true
	}

	return false
}

// fromExpectedUser проверяет, что кнопку нажал автор команды /buy.
func (h *Handler) fromExpectedUser(query *telego.CallbackQuery, idPart string) bool {
	expected, err := strconv.ParseInt(idPart, 10, 64)
	return err == nil && query.From.ID == expected
}

// answer отвечает на callback query (всплывашка или алерт).
func (h *Handler) answer(ctx context.Context, query *telego.CallbackQuery, text string, alert bool) {
	err := h.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: query.ID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		log.WithError(err).Debug("Ошибка ответа на callback")
	}
}

// clearKeyboard заменяет сообщение подтверждения итоговым текстом без кнопок.
func (h *Handler) clearKeyboard(ctx context.Context, query *telego.CallbackQuery, text string) {
	msg, ok := query.Message.(*telego.Message)
	if !ok || msg == nil {
		return
	}
	_, err := h.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:    telego.ChatID{ID: msg.Chat.ID},
		MessageID: msg.MessageID,
		Text:      text,
	})
	if err != nil {
		log.WithError(err).Debug("Ошибка редактирования сообщения")
	}
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

// displayName возвращает отображаемое имя пользователя Telegram.
func displayName(u *telego.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}
