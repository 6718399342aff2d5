// Package bot содержит главный модуль бота — инициализацию, запуск и остановку.
// bot.go принимает апдейты Telegram, фильтрует их и маршрутизирует
// к обработчикам фич.
package bot

import (
	"context"
	"strings"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"github.com/heavenly-temple/pounds-bot/internal/bot/filters"
	"github.com/heavenly-temple/pounds-bot/internal/bot/middleware"
	"github.com/heavenly-temple/pounds-bot/internal/config"
	"github.com/heavenly-temple/pounds-bot/internal/features/accrual"
	"github.com/heavenly-temple/pounds-bot/internal/features/admin"
	"github.com/heavenly-temple/pounds-bot/internal/features/daily"
	"github.com/heavenly-temple/pounds-bot/internal/features/giveaway"
	"github.com/heavenly-temple/pounds-bot/internal/features/ledger"
	"github.com/heavenly-temple/pounds-bot/internal/features/shop"
)

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *telego.Bot
	cfg *config.Config

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter

	ledgerHandler   *ledger.Handler
	accrualHandler  *accrual.Handler
	shopHandler     *shop.Handler
	dailyHandler    *daily.Handler
	giveawayHandler *giveaway.Handler
	adminHandler    *admin.Handler

	ledgerService  *ledger.Service
	accrualService *accrual.Service

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api *telego.Bot,
	cfg *config.Config,
	ledgerService *ledger.Service,
	ledgerHandler *ledger.Handler,
	accrualService *accrual.Service,
	accrualHandler *accrual.Handler,
	shopHandler *shop.Handler,
	dailyHandler *daily.Handler,
	giveawayHandler *giveaway.Handler,
	adminHandler *admin.Handler,
	chatFilter *filters.ChatFilter,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:             api,
		cfg:             cfg,
		chatFilter:      chatFilter,
		rateLimiter:     middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		ledgerHandler:   ledgerHandler,
		accrualHandler:  accrualHandler,
		shopHandler:     shopHandler,
		dailyHandler:    dailyHandler,
		giveawayHandler: giveawayHandler,
		adminHandler:    adminHandler,
		ledgerService:   ledgerService,
		accrualService:  accrualService,
		parser:          NewCommandParser(),
		inflight:        make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
// chat_member и chat_boost надо запрашивать явно — по умолчанию
// Telegram их не присылает.
func (b *Bot) Start(ctx context.Context) error {
	updates, err := b.api.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: b.cfg.BotUpdateTimeoutSeconds,
		AllowedUpdates: []string{
			"message", "callback_query", "chat_member", "chat_boost",
		},
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает апдейты...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.rateLimiter.Close()
			return nil

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				b.rateLimiter.Close()
				return nil
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd telego.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update telego.Update) {
	defer middleware.RecoverFromPanic()

	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.ChatMember != nil:
		b.handleChatMember(ctx, update.ChatMember)
	case update.ChatBoost != nil:
		b.handleChatBoost(ctx, update.ChatBoost)
	}
}

// handleMessage обрабатывает входящее сообщение: сервисные события
// голосовых чатов, команды и счётчик сообщений.
func (b *Bot) handleMessage(ctx context.Context, message *telego.Message) {
	// События голосового чата (только в чате сообщества)
	if message.Chat.ID == b.cfg.CommunityChatID {
		if message.VideoChatParticipantsInvited != nil {
			for _, user := range message.VideoChatParticipantsInvited.Users {
				b.accrualService.VoiceJoin(user.ID)
			}
			return
		}
		if message.VideoChatEnded != nil {
			b.accrualService.VoiceEndAll(ctx)
			return
		}
	}

	if message.From == nil || message.Text == "" {
		return
	}

	// Логируем входящее
	middleware.LogMessage(message)

	// Проверяем доступ (чат сообщества или DM участника)
	if !b.chatFilter.CheckAccess(ctx, message) {
		return
	}

	// Rate limiting
	if !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	// EnsureUser — ошибки нельзя игнорировать, иначе потом будет "оно не работает"
	if err := b.ledgerService.EnsureUser(ctx, userID,
		message.From.Username, message.From.FirstName, message.From.LastName,
	); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("EnsureUser failed")
	}

	// В DM проверяем админ-панель
	if message.Chat.Type == telego.ChatTypePrivate {
		if b.adminHandler.HandleAdminMessage(ctx, chatID, userID, message.Text) {
			return
		}
	}

	// Парсим команду
	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if isCommand {
		b.routeCommand(ctx, chatID, userID, message, cmd, args)
		return
	}

	// Не команда в чате сообщества — засчитываем для наград за активность
	if chatID == b.cfg.CommunityChatID {
		if err := b.accrualService.RecordMessage(ctx, userID, userDisplayName(message.From)); err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("RecordMessage failed")
		}
	}
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, chatID, userID int64, message *telego.Message, cmd string, args []string) {
	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debug("routing command")

	switch cmd {
	case "start", "help":
		b.sendHelp(ctx, chatID)

	case "balance", "баланс":
		b.ledgerHandler.HandleBalance(ctx, chatID, userID)

	case "leaderboard", "топ":
		b.ledgerHandler.HandleLeaderboard(ctx, chatID, userID)

	case "stats", "стата":
		b.accrualHandler.HandleStats(ctx, chatID, userID, args)

	case "shop", "магазин":
		if b.cfg.FeatureShopEnabled {
			b.shopHandler.HandleShop(ctx, chatID)
		}

	case "buy", "купить":
		if b.cfg.FeatureShopEnabled {
			b.shopHandler.HandleBuy(ctx, chatID, userID, args)
		} else {
			b.sendMessage(ctx, chatID, "🏪 Магазин временно отключён")
		}

	case "daily", "награда":
		if b.cfg.FeatureDailyEnabled {
			b.dailyHandler.HandleDaily(ctx, chatID, userID, userDisplayName(message.From))
		}

	case "pool", "пул":
		b.adminHandler.HandlePool(ctx, chatID)

	case "giveaway":
		if b.cfg.FeatureGiveawaysEnabled {
			b.giveawayHandler.HandleCreate(ctx, chatID, userID, args)
		} else {
			b.sendMessage(ctx, chatID, "🎉 Розыгрыши временно отключены")
		}

	case "giveaway_end":
		if b.cfg.FeatureGiveawaysEnabled {
			b.giveawayHandler.HandleEnd(ctx, chatID, userID, args)
		}

	case "giveaway_cancel":
		if b.cfg.FeatureGiveawaysEnabled {
			b.giveawayHandler.HandleCancel(ctx, chatID, userID, message, args)
		}
	}
}

// handleCallback маршрутизирует нажатия inline-кнопок.
func (b *Bot) handleCallback(ctx context.Context, query *telego.CallbackQuery) {
	if query.Data == "" {
		return
	}
	if !b.rateLimiter.Allow(query.From.ID) {
		return
	}

	if b.cfg.FeatureShopEnabled && b.shopHandler.HandleCallback(ctx, query) {
		return
	}
	if b.cfg.FeatureGiveawaysEnabled && b.giveawayHandler.HandleCallback(ctx, query) {
		return
	}
}

// handleChatMember обрабатывает вступления в чат сообщества.
// Если участник пришёл по пригласительной ссылке — награждаем её создателя.
func (b *Bot) handleChatMember(ctx context.Context, upd *telego.ChatMemberUpdated) {
	if upd.Chat.ID != b.cfg.CommunityChatID {
		return
	}

	oldStatus := upd.OldChatMember.MemberStatus()
	newStatus := upd.NewChatMember.MemberStatus()
	joined := (oldStatus == telego.MemberStatusLeft || oldStatus == telego.MemberStatusBanned) &&
		(newStatus == telego.MemberStatusMember || newStatus == telego.MemberStatusRestricted)
	if !joined {
		return
	}

	member := upd.NewChatMember.MemberUser()
	if err := b.ledgerService.EnsureUser(ctx, member.ID,
		member.Username, member.FirstName, member.LastName); err != nil {
		log.WithError(err).WithField("user_id", member.ID).Warn("EnsureUser failed")
	}

	if upd.InviteLink == nil {
		return
	}
	inviter := upd.InviteLink.Creator
	if inviter.IsBot {
		return
	}

	if err := b.accrualService.RecordInvite(ctx, inviter.ID, member.ID, userDisplayName(&inviter)); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"inviter": inviter.ID,
			"invitee": member.ID,
		}).Warn("RecordInvite failed")
	}
}

// handleChatBoost обрабатывает бусты сообщества.
// Суммарное число бустов пользователя перечитывается через API,
// начисление идемпотентно к повторной доставке события.
func (b *Bot) handleChatBoost(ctx context.Context, upd *telego.ChatBoostUpdated) {
	if upd.Chat.ID != b.cfg.CommunityChatID {
		return
	}

	booster := boostUser(upd.Boost.Source)
	if booster == nil || booster.IsBot {
		return
	}

	boosts, err := b.api.GetUserChatBoosts(ctx, &telego.GetUserChatBoostsParams{
		ChatID: telego.ChatID{ID: b.cfg.CommunityChatID},
		UserID: booster.ID,
	})
	if err != nil {
		log.WithError(err).WithField("user_id", booster.ID).Error("GetUserChatBoosts failed")
		return
	}

	if err := b.accrualService.RecordBoosts(ctx, booster.ID, int64(len(boosts.Boosts)), userDisplayName(booster)); err != nil {
		log.WithError(err).WithField("user_id", booster.ID).Warn("RecordBoosts failed")
	}
}

// boostUser извлекает пользователя из источника буста.
func boostUser(source telego.ChatBoostSource) *telego.User {
	switch s := source.(type) {
	case *telego.ChatBoostSourcePremium:
		return &s.User
	case *telego.ChatBoostSourceGiftCode:
		return &s.User
	case *telego.ChatBoostSourceGiveaway:
		return s.User
	default:
		return nil
	}
}

// sendHelp показывает список команд.
func (b *Bot) sendHelp(ctx context.Context, chatID int64) {
	b.sendMessage(ctx, chatID,
		"⛩ Бот небесных фунтов\n\n"+
			"Фунты начисляются за сообщения, голосовые чаты, приглашения и бусты.\n\n"+
			"/balance — баланс и ресурсы\n"+
			"/daily — ежедневная награда\n"+
			"/shop — магазин ресурсов\n"+
			"/buy <ресурс> <фунты> — покупка\n"+
			"/stats — ваша активность\n"+
			"/leaderboard — таблица лидеров\n"+
			"/pool — серверный пул\n"+
			"/giveaway — розыгрыш (админы)")
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) {
	_, err := b.api.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: chatID},
		Text:   text,
	})
	if err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// userDisplayName возвращает отображаемое имя пользователя Telegram.
func userDisplayName(u *telego.User) string {
	if u == nil {
		return "?"
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}

// CommandParser парсит команды с префиксами / и !
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"/", "!"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
// Суффикс @botname у команды отбрасывается.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	text = strings.TrimSpace(text)
	parts := strings.Fields(text)

	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	if i := strings.Index(command, "@"); i >= 0 {
		command = command[:i]
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}
