// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование сумм, работа с датами.
package common

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// PluralizePounds возвращает правильную форму слова «фунт» для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → "фунт" (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → "фунта" (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → "фунтов" (0, 5-20, 25-30, 100, ...)
func PluralizePounds(n int64) string {
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "фунт"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "фунта"
	}
	return "фунтов"
}

// PluralizeDays возвращает правильную форму слова «день» для числа n.
func PluralizeDays(n int) string {
	absN := int(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "день"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "дня"
	}
	return "дней"
}

// FormatPounds форматирует сумму небесных фунтов в читабельную строку.
// Дробная часть показывается только когда она есть: "150 фунтов", "5.5 фунта".
func FormatPounds(amount decimal.Decimal) string {
	text := amount.String()
	return fmt.Sprintf("%s %s", text, PluralizePounds(amount.IntPart()))
}

// FormatNumber форматирует целое число с разделителями тысяч (пробелами).
// Пример: FormatNumber(150000) → "150 000"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	rest := n / 1000
	last := n % 1000
	return fmt.Sprintf("%s %03d", FormatNumber(rest), last)
}

// UTCDate возвращает дату (без времени) в UTC.
// Ежедневная награда привязана к календарному дню UTC, как и в исходном боте.
func UTCDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextUTCMidnight возвращает момент следующей полуночи UTC после t.
// Используется, чтобы сказать пользователю, когда доступна следующая
// ежедневная награда.
func NextUTCMidnight(t time.Time) time.Time {
	return UTCDate(t).Add(24 * time.Hour)
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04" (UTC).
// Используется для отображения дат транзакций.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("02.01.2006 15:04")
}
