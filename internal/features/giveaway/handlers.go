// Package giveaway — handlers.go обрабатывает команды /giveaway,
// /giveaway_end, /giveaway_cancel и колбэк кнопки участия.
package giveaway

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/heavenly-temple/pounds-bot/internal/common"
)

// callbackEnter — префикс callback-данных кнопки участия: gw_enter:<id>
const callbackEnter = "gw_enter"

// sendTimeout — бюджет отправки объявления вне контекста апдейта.
const sendTimeout = 10 * time.Second

// Authorizer проверяет право пользователя на админ-команды розыгрышей.
type Authorizer interface {
	Authorized(ctx context.Context, userID int64) bool
}

// Handler обрабатывает команды розыгрышей.
type Handler struct {
	service         *Service
	auth            Authorizer
	bot             *telego.Bot
	communityChatID int64
}

// NewHandler создаёт новый обработчик розыгрышей.
func NewHandler(service *Service, auth Authorizer, bot *telego.Bot, communityChatID int64) *Handler {
	return &Handler{
		service:         service,
		auth:            auth,
		bot:             bot,
		communityChatID: communityChatID,
	}
}

// HandleCreate обрабатывает команду
// /giveaway <приз> <победителей> <длительность> [взнос].
// Пример: /giveaway 5000 3 2h 50
func (h *Handler) HandleCreate(ctx context.Context, chatID, userID int64, args []string) {
	if !h.auth.Authorized(ctx, userID) {
		h.sendMessage(ctx, chatID, "❌ Розыгрыши создают только администраторы")
		return
	}
	if len(args) < 3 {
		h.sendMessage(ctx, chatID,
			"❌ Формат: /giveaway <приз> <победителей> <длительность> [взнос]\nПример: /giveaway 5000 3 2h 50")
		return
	}

	prize, err := common.ParseShorthand(args[0])
	if err != nil {
		h.sendMessage(ctx, chatID, "❌ Приз должен быть положительным числом (можно 1k, 2m)")
		return
	}
	winners, err := strconv.Atoi(args[1])
	if err != nil || winners < 1 {
		h.sendMessage(ctx, chatID, "❌ Число победителей должно быть не меньше 1")
		return
	}
	duration, err := common.ParseDuration(args[2])
	if err != nil {
		h.sendMessage(ctx, chatID, "❌ Длительность в формате 10m, 2h или 3d")
		return
	}
	entryCost := decimal.Zero
	if len(args) >= 4 {
		entryCost, err = common.ParseShorthand(args[3])
		if err != nil {
			h.sendMessage(ctx, chatID, "❌ Взнос должен быть положительным числом")
			return
		}
	}

	g, err := h.service.Create(ctx, userID, prize, winners, entryCost, duration)
	switch err {
	case nil:
	case common.ErrInsufficientPoolFunds:
		h.sendMessage(ctx, chatID, "❌ В серверном пуле не хватает фунтов на приз")
		return
	case common.ErrInvalidDuration:
		h.sendMessage(ctx, chatID, "❌ Длительность от 1 минуты до 30 дней")
		return
	default:
		log.WithError(err).Error("Ошибка создания розыгрыша")
		h.sendMessage(ctx, chatID, "❌ Ошибка создания розыгрыша")
		return
	}

	h.announceOpen(ctx, g)
}

// HandleEnd обрабатывает команду /giveaway_end <id> — досрочное разыгрывание.
func (h *Handler) HandleEnd(ctx context.Context, chatID, userID int64, args []string) {
	id, ok := h.adminTargetID(ctx, chatID, userID, args, "/giveaway_end <id>")
	if !ok {
		return
	}

	res, err := h.service.Resolve(ctx, id)
	if err == common.ErrGiveawayNotFound {
		h.sendMessage(ctx, chatID, "❌ Розыгрыш не найден или уже завершён")
		return
	}
	if err != nil {
		log.WithError(err).Error("Ошибка завершения розыгрыша")
		h.sendMessage(ctx, chatID, "❌ Ошибка завершения розыгрыша")
		return
	}
	h.AnnounceResult(res)
}

// HandleCancel обрабатывает команду /giveaway_cancel <id>.
// Без аргумента команда работает ответом на сообщение-анонс:
// розыгрыш находится по привязанному message_id.
func (h *Handler) HandleCancel(ctx context.Context, chatID, userID int64, message *telego.Message, args []string) {
	if len(args) == 0 && message != nil && message.ReplyToMessage != nil {
		if !h.auth.Authorized(ctx, userID) {
			h.sendMessage(ctx, chatID, "❌ Команда доступна только администраторам")
			return
		}
		res, err := h.service.CancelByMessage(ctx,
			int64(message.ReplyToMessage.MessageID), "отменён администратором")
		h.reportCancel(ctx, chatID, res, err)
		return
	}

	id, ok := h.adminTargetID(ctx, chatID, userID, args, "/giveaway_cancel <id> (или ответом на анонс)")
	if !ok {
		return
	}

	res, err := h.service.Cancel(ctx, id, "отменён администратором")
	h.reportCancel(ctx, chatID, res, err)
}

// reportCancel объявляет итог отмены либо сообщает об ошибке.
func (h *Handler) reportCancel(ctx context.Context, chatID int64, res *Result, err error) {
	if err == common.ErrGiveawayNotFound {
		h.sendMessage(ctx, chatID, "❌ Розыгрыш не найден или уже завершён")
		return
	}
	if err != nil {
		log.WithError(err).Error("Ошибка отмены розыгрыша")
		h.sendMessage(ctx, chatID, "❌ Ошибка отмены розыгрыша")
		return
	}
	h.AnnounceResult(res)
}

// HandleCallback обрабатывает нажатие кнопки «Участвовать».
// Возвращает true, если колбэк относился к розыгрышам.
func (h *Handler) HandleCallback(ctx context.Context, query *telego.CallbackQuery) bool {
	parts := strings.Split(query.Data, ":")
	if parts[0] != callbackEnter || len(parts) != 2 {
		return false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return true
	}

	err = h.service.Enter(ctx, id, query.From.ID, displayName(&query.From))
	switch err {
	case nil:
		h.answer(ctx, query, "🎟 Вы участвуете!", false)
	case common.ErrDuplicateEntry:
		// Повторное нажатие — молча подтверждаем, взнос не списан
		h.answer(ctx, query, "Вы уже участвуете", false)
	case common.ErrEntriesClosed, common.ErrGiveawayNotFound:
		h.answer(ctx, query, "Приём заявок закрыт", true)
	case common.ErrInsufficientFunds:
		h.answer(ctx, query, "Не хватает фунтов на взнос", true)
	default:
		log.WithError(err).Error("Ошибка заявки на розыгрыш")
		h.answer(ctx, query, "Ошибка, попробуйте позже", true)
	}
	return true
}

// AnnounceResult объявляет итоги розыгрыша в чате сообщества.
// Ставится колбэком в Service, чтобы таймеры тоже объявляли итоги.
func (h *Handler) AnnounceResult(res *Result) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	g := res.Giveaway
	var text string
	switch {
	case res.Cancelled:
		text = fmt.Sprintf("🚫 Розыгрыш #%d отменён (%s).\nПриз вернулся в пул, взносы возвращены участникам.",
			g.ID, res.Reason)
	case len(res.Winners) == 0:
		text = fmt.Sprintf("🎉 Розыгрыш #%d завершён: участников не было, приз %s вернулся в пул.",
			g.ID, common.FormatPounds(g.Prize))
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "🏆 Итоги розыгрыша #%d!\nПриз: %s\n\nПобедители (по %s каждому):\n",
			g.ID, common.FormatPounds(g.Prize), common.FormatPounds(res.Share))
		for _, winnerID := range res.Winners {
			fmt.Fprintf(&b, "• [победитель](tg://user?id=%d)\n", winnerID)
		}
		text = b.String()
	}

	_, err := h.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: h.communityChatID},
		Text:      text,
		ParseMode: "Markdown",
	})
	if err != nil {
		log.WithError(err).Error("Ошибка объявления итогов розыгрыша")
	}
}

// announceOpen публикует анонс розыгрыша с кнопкой участия
// и привязывает сообщение к записи розыгрыша.
func (h *Handler) announceOpen(ctx context.Context, g *Giveaway) {
	text := fmt.Sprintf(
		"🎉 Розыгрыш #%d!\n\n💰 Приз: %s\n🏆 Победителей: %d\n🎟 Взнос: %s\n⏰ Итоги: %s (UTC)",
		g.ID, common.FormatPounds(g.Prize), g.WinnersCount,
		common.FormatPounds(g.EntryCost), common.FormatDateTime(g.EndsAt))

	keyboard := &telego.InlineKeyboardMarkup{
		InlineKeyboard: [][]telego.InlineKeyboardButton{{
			{Text: "🎟 Участвовать", CallbackData: fmt.Sprintf("%s:%d", callbackEnter, g.ID)},
		}},
	}

	msg, err := h.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:      telego.ChatID{ID: h.communityChatID},
		Text:        text,
		ReplyMarkup: keyboard,
	})
	if err != nil {
		log.WithError(err).Error("Ошибка публикации анонса розыгрыша")
		return
	}

	if err := h.service.AttachMessage(ctx, g.ID, int64(msg.MessageID)); err != nil {
		log.WithError(err).Error("Ошибка привязки анонса к розыгрышу")
	}
}

// adminTargetID проверяет права и разбирает аргумент <id>.
func (h *Handler) adminTargetID(ctx context.Context, chatID, userID int64, args []string, usage string) (int64, bool) {
	if !h.auth.Authorized(ctx, userID) {
		h.sendMessage(ctx, chatID, "❌ Команда доступна только администраторам")
		return 0, false
	}
	if len(args) < 1 {
		h.sendMessage(ctx, chatID, "❌ Формат: "+usage)
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		h.sendMessage(ctx, chatID, "❌ ID розыгрыша должен быть числом")
		return 0, false
	}
	return id, true
}

// answer отвечает на callback query.
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
