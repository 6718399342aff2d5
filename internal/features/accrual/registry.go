package accrual

import (
	"sync"
	"time"
)

// VoiceRegistry хранит открытые голосовые сессии в памяти процесса.
// При рестарте бота открытые сессии теряются — минуты начисляются
// только за завершённые сессии, поэтому двойной оплаты не бывает.
type VoiceRegistry struct {
	mu     sync.Mutex
	joined map[int64]time.Time // userID -> время входа
}

// NewVoiceRegistry создаёт пустой реестр голосовых сессий.
func NewVoiceRegistry() *VoiceRegistry {
	return &VoiceRegistry{joined: make(map[int64]time.Time)}
}

// Join отмечает вход пользователя в голосовой чат.
// Повторный вход без выхода просто обновляет время старта.
func (v *VoiceRegistry) Join(userID int64, at time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.joined[userID] = at
}

// Leave закрывает сессию и возвращает полные минуты её длительности.
// Если сессии не было (выход без входа, рестарт бота) — ok == false.
func (v *VoiceRegistry) Leave(userID int64, at time.Time) (minutes int64, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	start, exists := v.joined[userID]
	if !exists {
		return 0, false
	}
	delete(v.joined, userID)
	d := at.Sub(start)
	if d < 0 {
		return 0, false
	}
	return int64(d / time.Minute), true
}

// CloseAll закрывает все открытые сессии на момент at и возвращает
// полные минуты каждой. Вызывается, когда голосовой чат завершается:
// Bot API не присылает индивидуальные выходы.
func (v *VoiceRegistry) CloseAll(at time.Time) map[int64]int64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make(map[int64]int64, len(v.joined))
	for userID, start := range v.joined {
		if d := at.Sub(start); d > 0 {
			out[userID] = int64(d / time.Minute)
		}
	}
	v.joined = make(map[int64]time.Time)
	return out
}

// Active сообщает, открыта ли сессия пользователя.
func (v *VoiceRegistry) Active(userID int64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.joined[userID]
	return ok
}

// InviteRegistry запоминает, чьё приглашение уже было оплачено.
// Ключ — ID приглашённого: перевход одного и того же участника
// не приносит пригласившему вторую награду.
type InviteRegistry struct {
	mu       sync.Mutex
	credited map[int64]int64 // invitee -> inviter
}

// NewInviteRegistry создаёт пустой реестр приглашений.
func NewInviteRegistry() *InviteRegistry {
	return &InviteRegistry{credited: make(map[int64]int64)}
}

// Claim пытается засчитать приглашение invitee пользователем inviter.
// Возвращает false, если этот invitee уже был засчитан ранее.
func (i *InviteRegistry) Claim(invitee, inviter int64) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.credited[invitee]; ok {
		return false
	}
	i.credited[invitee] = inviter
	return true
}
