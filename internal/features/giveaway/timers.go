package giveaway

import (
	"sync"
	"time"
)

// TimerRegistry хранит таймеры завершения розыгрышей в памяти процесса.
// При рестарте таймеры восстанавливаются из базы (см. Service.RestoreTimers),
// поэтому потеря процесса не теряет розыгрыши.
type TimerRegistry struct {
	mu     sync.Mutex
	timers map[int64]*time.Timer
}

// NewTimerRegistry создаёт пустой реестр таймеров.
func NewTimerRegistry() *TimerRegistry {
	return &TimerRegistry{timers: make(map[int64]*time.Timer)}
}

// Schedule ставит таймер завершения розыгрыша id на момент at.
// Просроченный момент срабатывает почти сразу. Повторный вызов
// для того же id заменяет старый таймер.
func (t *TimerRegistry) Schedule(id int64, at time.Time, fire func()) {
	d := time.Until(at)
	if d < time.Second {
		d = time.Second
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.timers[id]; ok {
		old.Stop()
	}
	t.timers[id] = time.AfterFunc(d, func() {
		t.Cancel(id)
		fire()
	})
}

// Cancel снимает таймер розыгрыша, если он есть.
func (t *TimerRegistry) Cancel(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[id]; ok {
		timer.Stop()
		delete(t.timers, id)
	}
}

// StopAll снимает все таймеры. Вызывается при остановке бота.
func (t *TimerRegistry) StopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}
