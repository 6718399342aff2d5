package shop

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heavenly-temple/pounds-bot/internal/common"
)

func TestPriceResources(t *testing.T) {
	tests := []struct {
		res   Resource
		spend string
		want  int64
	}{
		{ResourceGold, "10", 50_000},
		{ResourceGold, "1000", 5_000_000},
		{ResourceWood, "10", 150_000},
		{ResourceFood, "10", 150_000},
		{ResourceStone, "10", 112_000},
		// Нецелое число пакетов: количество округляется вниз
		{ResourceGold, "15", 75_000},
		{ResourceStone, "1", 11_200},
		{ResourceGold, "0.01", 50},
	}

	for _, tt := range tests {
		spend, _ := decimal.NewFromString(tt.spend)
		got, err := PriceResources(tt.res, spend)
		require.NoError(t, err, "%s за %s", tt.res, tt.spend)
		assert.Equal(t, tt.want, got, "%s за %s", tt.res, tt.spend)
	}
}

func TestPriceResourcesTooSmall(t *testing.T) {
	// На эту сумму не купить даже 1 единицу золота
	_, err := PriceResources(ResourceGold, decimal.RequireFromString("0.0001"))
	assert.ErrorIs(t, err, common.ErrSpendTooSmall)
}

func TestPriceResourcesInvalid(t *testing.T) {
	_, err := PriceResources(ResourceGold, decimal.Zero)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = PriceResources(ResourceGold, decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = PriceResources(Resource("mithril"), decimal.NewFromInt(10))
	assert.ErrorIs(t, err, common.ErrUnknownResource)
}

func TestParseResource(t *testing.T) {
	for input, want := range map[string]Resource{
		"gold":   ResourceGold,
		"золото": ResourceGold,
		"Дерево": ResourceWood,
		"wood":   ResourceWood,
		"еда":    ResourceFood,
		"камень": ResourceStone,
		"STONE":  ResourceStone,
	} {
		got, err := ParseResource(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, got, "input %q", input)
	}

	_, err := ParseResource("мифрил")
	assert.ErrorIs(t, err, common.ErrUnknownResource)
}
