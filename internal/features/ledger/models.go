// Package ledger управляет счетами пользователей: балансом небесных фунтов,
// инвентарём ресурсов и журналом транзакций.
// models.go описывает структуры для таблиц users и transactions.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account представляет счёт пользователя.
// Создаётся лениво при первой активности или первой команде
// и никогда не удаляется.
type Account struct {
	ID          int64           `db:"id"`           // ID записи
	UserID      int64           `db:"user_id"`      // Telegram user ID
	Username    string          `db:"username"`     // @username (может быть пустым)
	FirstName   string          `db:"first_name"`   // Имя
	LastName    string          `db:"last_name"`    // Фамилия
	Balance     decimal.Decimal `db:"balance"`      // Небесные фунты (бывают дробными)
	Gold        int64           `db:"gold"`         // Ресурсы храма
	Wood        int64           `db:"wood"`
	Food        int64           `db:"food"`
	Stone       int64           `db:"stone"`
	LastDaily   *time.Time      `db:"last_daily"`   // Дата последней ежедневной награды (UTC)
	DailyStreak int             `db:"daily_streak"` // Серия ежедневных наград
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// DisplayName возвращает отображаемое имя пользователя.
func (a *Account) DisplayName() string {
	if a.Username != "" {
		return "@" + a.Username
	}
	name := a.FirstName
	if a.LastName != "" {
		name += " " + a.LastName
	}
	return name
}

// Transaction представляет одну операцию с фунтами.
// Все движения (награды, покупки, розыгрыши, админ-операции) записываются сюда.
type Transaction struct {
	ID              int64           `db:"id"`
	FromUserID      *int64          `db:"from_user_id"` // nil для системных начислений
	ToUserID        *int64          `db:"to_user_id"`   // nil для системных списаний
	Amount          decimal.Decimal `db:"amount"`       // Всегда положительная
	TransactionType string          `db:"transaction_type"`
	Description     string          `db:"description"`
	CreatedAt       time.Time       `db:"created_at"`
}

// Допустимые типы транзакций
const (
	TxTypeInviteReward   = "invite_reward"   // Награда за приглашение
	TxTypeMessageReward  = "message_reward"  // Награда за 100 сообщений
	TxTypeVoiceReward    = "voice_reward"    // Награда за час в голосовом чате
	TxTypeBoostReward    = "boost_reward"    // Награда за буст
	TxTypeDailyReward    = "daily_reward"    // Ежедневная награда
	TxTypeShopPurchase   = "shop_purchase"   // Покупка в магазине
	TxTypeGiveawayEntry  = "giveaway_entry"  // Взнос за участие в розыгрыше
	TxTypeGiveawayPrize  = "giveaway_prize"  // Выигрыш в розыгрыше
	TxTypeGiveawayRefund = "giveaway_refund" // Возврат взноса при отмене
	TxTypeAdminGrant     = "admin_grant"     // Выдача админом из пула
	TxTypeAdminTake      = "admin_take"      // Изъятие админом в пул
)
