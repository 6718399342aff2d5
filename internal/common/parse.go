// Package common — parse.go разбирает пользовательский ввод:
// суммы с суффиксами (100k, 1.5m) и длительности розыгрышей (10m, 2h, 3d).
package common

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// durationRe — целое число и единица: m (минуты), h (часы), d (дни).
var durationRe = regexp.MustCompile(`^(\d+)([mhd])$`)

// Множители суффиксов сумм.
var shorthandMultipliers = map[byte]int64{
	'k': 1_000,
	'm': 1_000_000,
	'b': 1_000_000_000,
}

// ParseShorthand разбирает сумму фунтов с необязательным суффиксом.
//
// Примеры:
//
//	ParseShorthand("10")   → 10
//	ParseShorthand("5.5")  → 5.5
//	ParseShorthand("100k") → 100000
//	ParseShorthand("1.5m") → 1500000
//
// Возвращает ErrInvalidAmount, если строка не число или сумма не положительна.
func ParseShorthand(value string) (decimal.Decimal, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	multiplier := int64(1)
	if m, ok := shorthandMultipliers[value[len(value)-1]]; ok {
		multiplier = m
		value = value[:len(value)-1]
	}

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}

	amount = amount.Mul(decimal.NewFromInt(multiplier))
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

// ParseDuration разбирает длительность розыгрыша: "10m", "2h", "3d".
// Возвращает ErrInvalidDuration для любого другого формата.
func ParseDuration(value string) (time.Duration, error) {
	match := durationRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(value)))
	if match == nil {
		return 0, ErrInvalidDuration
	}

	n, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidDuration
	}

	switch match[2] {
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return 0, ErrInvalidDuration
}
