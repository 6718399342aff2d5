// Package admin — handlers.go обрабатывает админ-панель в личных сообщениях:
// /login, /logout, /grant, /take, /pool.
package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/heavenly-temple/pounds-bot/internal/common"
	"github.com/heavenly-temple/pounds-bot/internal/features/ledger"
)

// Accounts — поиск счетов для разрешения @username в ID.
type Accounts interface {
	GetByUsername(ctx context.Context, username string) (*ledger.Account, error)
}

// Handler обрабатывает админ-команды в DM.
type Handler struct {
	service  *Service
	accounts Accounts
	bot      *telego.Bot
}

// NewHandler создаёт новый обработчик админ-панели.
func NewHandler(service *Service, accounts Accounts, bot *telego.Bot) *Handler {
	return &Handler{service: service, accounts: accounts, bot: bot}
}

// HandleAdminMessage обрабатывает сообщение в DM.
// Возвращает true, если сообщение было админ-командой или шагом диалога.
func (h *Handler) HandleAdminMessage(ctx context.Context, chatID, userID int64, text string) bool {
	// Шаг диалога: ждём пароль после /login
	if state := h.service.GetState(userID); state != nil && state.State == StateAwaitingPassword {
		h.service.ClearState(userID)
		h.handlePassword(ctx, chatID, userID, strings.TrimSpace(text))
		return true
	}

	parts := strings.Fields(strings.TrimSpace(text))
	if len(parts) == 0 || !strings.HasPrefix(parts[0], "/") {
		return false
	}
	cmd := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	args := parts[1:]

	switch cmd {
	case "admin":
		h.handleHelp(ctx, chatID, userID)
	case "login":
		h.handleLogin(ctx, chatID, userID, args)
	case "logout":
		h.handleLogout(ctx, chatID, userID)
	case "grant":
		h.handleGrant(ctx, chatID, userID, args)
	case "take":
		h.handleTake(ctx, chatID, userID, args)
	case "pool":
		h.handlePool(ctx, chatID)
	default:
		return false
	}
	return true
}

// HandlePool показывает баланс серверного пула. Команда публичная.
func (h *Handler) HandlePool(ctx context.Context, chatID int64) {
	h.handlePool(ctx, chatID)
}

func (h *Handler) handleHelp(ctx context.Context, chatID, userID int64) {
	if !h.service.cfg.IsAdmin(userID) {
		return
	}
	h.sendMessage(ctx, chatID,
		"🛠 Админ-панель\n\n"+
			"/login — вход по паролю\n"+
			"/logout — завершить сессию\n"+
			"/grant <@username|id> <сумма> — выдать из пула\n"+
			"/take <@username|id> <сумма> — изъять в пул\n"+
			"/pool — баланс пула\n"+
			"/giveaway <приз> <победителей> <длительность> [взнос]\n"+
			"/giveaway_end <id>, /giveaway_cancel <id>")
}

func (h *Handler) handleLogin(ctx context.Context, chatID, userID int64, args []string) {
	if !h.service.cfg.IsAdmin(userID) {
		h.sendMessage(ctx, chatID, "❌ У вас нет прав администратора")
		return
	}
	if h.service.cfg.AdminPasswordHash == "" {
		h.sendMessage(ctx, chatID, "Парольный вход отключён — достаточно быть в списке админов")
		return
	}
	if h.service.HasActiveSession(ctx, userID) {
		h.sendMessage(ctx, chatID, "✅ Сессия уже активна")
		return
	}

	// Пароль можно передать сразу: /login <пароль>
	if len(args) > 0 {
		h.handlePassword(ctx, chatID, userID, strings.Join(args, " "))
		return
	}

	h.service.SetState(userID, StateAwaitingPassword)
	h.sendMessage(ctx, chatID, "🔐 Введите пароль администратора:")
}

func (h *Handler) handlePassword(ctx context.Context, chatID, userID int64, password string) {
	err := h.service.VerifyPassword(ctx, userID, password)
	switch err {
	case nil:
		h.sendMessage(ctx, chatID, "✅ Вход выполнен. Сессия активна 24 часа.")
	case common.ErrWrongPassword:
		h.sendMessage(ctx, chatID, "❌ Неверный пароль")
	case common.ErrTooManyAttempts:
		h.sendMessage(ctx, chatID, "❌ Слишком много попыток, подождите 1 час")
	default:
		log.WithError(err).Error("Ошибка входа администратора")
		h.sendMessage(ctx, chatID, "❌ Ошибка входа, попробуйте позже")
	}
}

func (h *Handler) handleLogout(ctx context.Context, chatID, userID int64) {
	if err := h.service.Logout(ctx, userID); err != nil {
		log.WithError(err).Error("Ошибка выхода")
		h.sendMessage(ctx, chatID, "❌ Ошибка выхода")
		return
	}
	h.sendMessage(ctx, chatID, "👋 Сессия завершена")
}

func (h *Handler) handleGrant(ctx context.Context, chatID, userID int64, args []string) {
	if !h.service.Authorized(ctx, userID) {
		h.sendMessage(ctx, chatID, "❌ Нужны права администратора (/login)")
		return
	}
	targetID, amount, ok := h.parseTargetAmount(ctx, chatID, args, "/grant <@username|id> <сумма>")
	if !ok {
		return
	}

	err := h.service.Grant(ctx, userID, targetID, amount)
	switch err {
	case nil:
		h.sendMessage(ctx, chatID, fmt.Sprintf("✅ Выдано %s пользователю %d", common.FormatPounds(amount), targetID))
	case common.ErrInsufficientPoolFunds:
		h.sendMessage(ctx, chatID, "❌ В пуле не хватает фунтов")
	default:
		log.WithError(err).Error("Ошибка выдачи из пула")
		h.sendMessage(ctx, chatID, "❌ Ошибка выдачи")
	}
}

func (h *Handler) handleTake(ctx context.Context, chatID, userID int64, args []string) {
	if !h.service.Authorized(ctx, userID) {
		h.sendMessage(ctx, chatID, "❌ Нужны права администратора (/login)")
		return
	}
	targetID, amount, ok := h.parseTargetAmount(ctx, chatID, args, "/take <@username|id> <сумма>")
	if !ok {
		return
	}

	taken, err := h.service.Take(ctx, userID, targetID, amount)
	switch err {
	case nil:
		h.sendMessage(ctx, chatID, fmt.Sprintf("✅ Изъято %s у пользователя %d", common.FormatPounds(taken), targetID))
	case common.ErrUserNotFound:
		h.sendMessage(ctx, chatID, "❌ Пользователь не найден")
	default:
		log.WithError(err).Error("Ошибка изъятия в пул")
		h.sendMessage(ctx, chatID, "❌ Ошибка изъятия")
	}
}

func (h *Handler) handlePool(ctx context.Context, chatID int64) {
	balance, err := h.service.PoolBalance(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка получения баланса пула")
		h.sendMessage(ctx, chatID, "❌ Ошибка получения баланса пула")
		return
	}
	h.sendMessage(ctx, chatID, fmt.Sprintf("🏦 Серверный пул: %s", common.FormatPounds(balance)))
}

// parseTargetAmount разбирает пару <@username|id> <сумма>.
func (h *Handler) parseTargetAmount(ctx context.Context, chatID int64, args []string, usage string) (int64, decimal.Decimal, bool) {
	if len(args) < 2 {
		h.sendMessage(ctx, chatID, "❌ Формат: "+usage)
		return 0, decimal.Zero, false
	}

	var targetID int64
	if strings.HasPrefix(args[0], "@") {
		account, err := h.accounts.GetByUsername(ctx, strings.TrimPrefix(args[0], "@"))
		if err != nil {
			h.sendMessage(ctx, chatID, "❌ Пользователь не найден")
			return 0, decimal.Zero, false
		}
		targetID = account.UserID
	} else {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			h.sendMessage(ctx, chatID, "❌ Укажите @username или числовой ID")
			return 0, decimal.Zero, false
		}
		targetID = id
	}

	amount, err := common.ParseShorthand(args[1])
	if err != nil {
		h.sendMessage(ctx, chatID, "❌ Сумма должна быть положительным числом (можно 1k, 2m)")
		return 0, decimal.Zero, false
	}
	return targetID, amount, true
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
