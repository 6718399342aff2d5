// Package giveaway реализует розыгрыши фунтов, финансируемые серверным пулом.
//
// Жизненный цикл: открыт → завершён (разыгран или отменён). Приз
// резервируется из пула при создании. Завершение одноразовое: кто бы ни
// пришёл первым — таймер, админская команда или отмена — переход в
// терминальное состояние случается ровно один раз.
package giveaway

import (
	"time"

	"github.com/shopspring/decimal"
)

// Giveaway представляет один розыгрыш.
type Giveaway struct {
	ID           int64           `db:"id"`
	Prize        decimal.Decimal `db:"prize"`         // Призовой фонд (зарезервирован из пула)
	EntryCost    decimal.Decimal `db:"entry_cost"`    // Взнос за участие (может быть 0)
	WinnersCount int             `db:"winners_count"` // Сколько победителей хотел создатель
	Participants []int64         `db:"participants"`  // ID участников в порядке вступления
	Winners      []int64         `db:"winners"`       // Заполняется при разыгрывании
	MessageID    int64           `db:"message_id"`    // ID сообщения-анонса (0 — ещё не отправлен)
	CreatedBy    int64           `db:"created_by"`    // Админ-создатель
	EndsAt       time.Time       `db:"ends_at"`       // Конец приёма заявок
	Ended        bool            `db:"ended"`         // Терминальное состояние достигнуто
	Cancelled    bool            `db:"cancelled"`     // Терминальное состояние — отмена
	CreatedAt    time.Time       `db:"created_at"`
}

// Open сообщает, принимает ли розыгрыш заявки в момент now.
func (g *Giveaway) Open(now time.Time) bool {
	return !g.Ended && now.Before(g.EndsAt)
}

// HasParticipant проверяет, участвует ли пользователь.
func (g *Giveaway) HasParticipant(userID int64) bool {
	for _, id := range g.Participants {
		if id == userID {
			return true
		}
	}
	return false
}
