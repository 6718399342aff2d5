// Package filters ограничивает, откуда бот принимает сообщения:
// чат сообщества и личные сообщения его участников.
package filters

import (
	"context"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

// Accounts — проверка известности пользователя по базе.
type Accounts interface {
	EnsureUser(ctx context.Context, userID int64, username, firstName, lastName string) error
	Known(ctx context.Context, userID int64) (bool, error)
}

type ChatFilter struct {
	communityChatID int64
	accounts        Accounts
	bot             *telego.Bot
}

func NewChatFilter(communityChatID int64, accounts Accounts, bot *telego.Bot) *ChatFilter {
	return &ChatFilter{
		communityChatID: communityChatID,
		accounts:        accounts,
		bot:             bot,
	}
}

// CheckAccess решает, обрабатывать ли сообщение.
// Разрешены: чат сообщества и личка участников чата. Для незнакомых
// пользователей в личке членство проверяется через Telegram API
// и результат доливается в базу.
func (f *ChatFilter) CheckAccess(ctx context.Context, message *telego.Message) bool {
	if message == nil || message.From == nil {
		return false
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	logger := log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   chatID,
		"chat_type": message.Chat.Type,
		"user_id":   userID,
	})

	// 1) Разрешённый чат сообщества
	if chatID == f.communityChatID {
		return true
	}

	// 2) Личка: сначала быстро по БД
	if message.Chat.Type == telego.ChatTypePrivate {
		known, err := f.accounts.Known(ctx, userID)
		if err != nil {
			logger.WithError(err).Error("member check failed (db)")
			return false
		}
		if known {
			return true
		}

		// 2.1) БД не знает пользователя: проверяем членство через Telegram API
		cm, err := f.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
			ChatID: telego.ChatID{ID: f.communityChatID},
			UserID: userID,
		})
		if err != nil {
			logger.WithError(err).Error("member check failed (telegram GetChatMember)")
			return false
		}

		switch cm.MemberStatus() {
		case telego.MemberStatusCreator, telego.MemberStatusAdministrator,
			telego.MemberStatusMember, telego.MemberStatusRestricted:
			if err := f.accounts.EnsureUser(ctx, userID,
				message.From.Username, message.From.FirstName, message.From.LastName,
			); err != nil {
				logger.WithError(err).Warn("failed to backfill user to DB (allowing anyway)")
			}
			logger.WithField("tg_status", cm.MemberStatus()).Info("allow: private (telegram member, backfilled)")
			return true

		default:
			logger.WithField("tg_status", cm.MemberStatus()).Info("deny: private (not a chat member)")
			_, sendErr := f.bot.SendMessage(ctx, &telego.SendMessageParams{
				ChatID: telego.ChatID{ID: chatID},
				Text:   "❌ Бот работает только для участников чата сообщества",
			})
			if sendErr != nil {
				logger.WithError(sendErr).Warn("failed to send deny message")
			}
			return false
		}
	}

	// 3) Остальные чаты игнорируем
	logger.Debug("deny: not community chat and not private")
	return false
}
