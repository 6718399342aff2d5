package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClampTake(t *testing.T) {
	d := func(s string) decimal.Decimal {
		v, err := decimal.NewFromString(s)
		if err != nil {
			t.Fatalf("плохая сумма в тесте: %s", s)
		}
		return v
	}

	tests := []struct {
		name    string
		balance string
		amount  string
		want    string
	}{
		{"средств хватает", "100", "30", "30"},
		{"средств меньше запрошенного", "12.50", "30", "12.50"},
		{"баланс точно равен запросу", "30", "30", "30"},
		{"пустой счёт", "0", "30", "0"},
		{"запрошен ноль", "100", "0", "0"},
		// Баланс не уходит ниже нуля, даже если строка уже испорчена
		{"отрицательный баланс", "-5", "30", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clampTake(d(tt.balance), d(tt.amount))
			assert.True(t, got.Equal(d(tt.want)),
				"clampTake(%s, %s) = %s, ожидали %s", tt.balance, tt.amount, got, tt.want)
		})
	}
}
