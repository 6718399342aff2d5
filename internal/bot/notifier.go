// Package bot — notifier.go отправляет события в канал журнала активности.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"github.com/heavenly-temple/pounds-bot/internal/common"
)

// colorEmoji — маркер события по его семантическому цвету.
var colorEmoji = map[string]string{
	common.ColorGreen:  "🟢",
	common.ColorBlue:   "🔵",
	common.ColorGold:   "🟡",
	common.ColorPurple: "🟣",
	common.ColorOrange: "🟠",
	common.ColorRed:    "🔴",
}

// ChannelNotifier пишет события в лог-канал Telegram.
// Отправка fire-and-forget: горутина с таймаутом, ошибки только в лог.
type ChannelNotifier struct {
	bot       *telego.Bot
	channelID int64
}

// NewChannelNotifier создаёт нотификатор лог-канала.
// При channelID == 0 журнал отключён — возвращается заглушка.
func NewChannelNotifier(bot *telego.Bot, channelID int64) common.Notifier {
	if channelID == 0 {
		return common.NopNotifier{}
	}
	return &ChannelNotifier{bot: bot, channelID: channelID}
}

// LogActivity отправляет событие в лог-канал, не блокируя вызывающего.
func (n *ChannelNotifier) LogActivity(title, text, color string) {
	emoji, ok := colorEmoji[color]
	if !ok {
		emoji = "⚪️"
	}
	message := fmt.Sprintf("%s %s\n%s", emoji, title, text)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_, err := n.bot.SendMessage(ctx, &telego.SendMessageParams{
			ChatID: telego.ChatID{ID: n.channelID},
			Text:   message,
		})
		if err != nil {
			log.WithError(err).WithField("title", title).Warn("Не удалось записать событие в лог-канал")
		}
	}()
}
