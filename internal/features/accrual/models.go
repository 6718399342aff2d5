// Package accrual начисляет награды за активность: сообщения, минуты
// в голосовых чатах, приглашения и бусты.
//
// Счётчики активности накопительные (за всё время), а выплаченная часть
// хранится отдельной «верхней отметкой» (rewarded). Начисление устроено так,
// что при любом чередовании конкурентных событий каждая порция активности
// оплачивается не более одного раза.
package accrual

// MessageCount — счётчик сообщений пользователя в чате сообщества.
type MessageCount struct {
	UserID   int64 `db:"user_id"`
	Count    int64 `db:"count"`    // Всего засчитанных сообщений
	Rewarded int64 `db:"rewarded"` // Сообщений, за которые уже выплачено
}

// VoiceTime — счётчик минут пользователя в голосовых чатах.
type VoiceTime struct {
	UserID          int64 `db:"user_id"`
	Minutes         int64 `db:"minutes"`          // Всего минут
	RewardedMinutes int64 `db:"rewarded_minutes"` // Минут, за которые уже выплачено
}

// InviteCount — счётчик успешных приглашений.
type InviteCount struct {
	UserID int64 `db:"user_id"`
	Count  int64 `db:"count"`
}

// BoostCount — наблюдаемое число бустов пользователя и верхняя отметка
// оплаченных. Награда выдаётся только за прирост отметки, поэтому
// повторная доставка одного и того же события ничего не начисляет.
type BoostCount struct {
	UserID   int64 `db:"user_id"`
	Count    int64 `db:"count"`
	Rewarded int64 `db:"rewarded"`
}

// UserStats — сводка активности для команды /stats.
type UserStats struct {
	Messages MessageCount
	Voice    VoiceTime
	Invites  InviteCount
	Boosts   BoostCount
}
