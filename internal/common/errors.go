// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import (
	"errors"
	"fmt"
	"time"
)

// Ошибки движения фунтов
var (
	// ErrInsufficientFunds — недостаточно фунтов на счёте пользователя
	ErrInsufficientFunds = errors.New("недостаточно фунтов на счёте")
	// ErrInsufficientPoolFunds — в серверном пуле не хватает фунтов
	ErrInsufficientPoolFunds = errors.New("недостаточно фунтов в серверном пуле")
	// ErrInvalidAmount — некорректная сумма (ноль, отрицательная или не число)
	ErrInvalidAmount = errors.New("сумма должна быть положительным числом")
	// ErrUserNotFound — пользователь не найден в базе
	ErrUserNotFound = errors.New("пользователь не найден")
)

// Ошибки магазина
var (
	// ErrUnknownResource — такого ресурса в магазине нет
	ErrUnknownResource = errors.New("неизвестный ресурс")
	// ErrSpendTooSmall — на эту сумму не купить даже 1 единицу ресурса
	ErrSpendTooSmall = errors.New("сумма слишком мала для покупки хотя бы 1 единицы ресурса")
)

// Ошибки розыгрышей
var (
	// ErrInvalidDuration — длительность не в формате 10m / 2h / 3d
	ErrInvalidDuration = errors.New("некорректная длительность (примеры: 10m, 2h, 3d)")
	// ErrGiveawayNotFound — розыгрыш не найден или уже завершён
	ErrGiveawayNotFound = errors.New("розыгрыш не найден или уже завершён")
	// ErrEntriesClosed — приём заявок закрыт (время вышло)
	ErrEntriesClosed = errors.New("приём заявок в розыгрыш закрыт")
	// ErrDuplicateEntry — пользователь уже участвует. Повторная заявка
	// молча игнорируется и денег не списывает.
	ErrDuplicateEntry = errors.New("вы уже участвуете в этом розыгрыше")
)

// Ошибки админки
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
)

// AlreadyClaimedError — ежедневная награда уже получена сегодня.
// Несёт время до следующей полуночи UTC, чтобы показать пользователю,
// когда можно вернуться.
type AlreadyClaimedError struct {
	RetryAfter time.Duration
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("ежедневная награда уже получена, возвращайтесь через %s",
		e.RetryAfter.Round(time.Minute))
}
