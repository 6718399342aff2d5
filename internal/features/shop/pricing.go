package shop

import (
	"github.com/shopspring/decimal"

	"github.com/heavenly-temple/pounds-bot/internal/common"
)

// PackagePrice — цена одного «пакета» ресурсов в фунтах.
// Все курсы магазина выражены как «столько-то ресурса за 10 фунтов».
var PackagePrice = decimal.NewFromInt(10)

// packageYields — сколько единиц ресурса даёт один пакет за 10 фунтов.
var packageYields = map[Resource]int64{
	ResourceGold:  50_000,
	ResourceWood:  150_000,
	ResourceFood:  150_000,
	ResourceStone: 112_000,
}

// Yield возвращает количество ресурса за один пакет (10 фунтов).
func Yield(r Resource) int64 {
	return packageYields[r]
}

// PriceResources считает, сколько единиц ресурса получит покупатель
// за spend фунтов. Количество округляется вниз до целой единицы,
// остаток фунтов не списывается: покупатель платит ровно spend.
func PriceResources(r Resource, spend decimal.Decimal) (int64, error) {
	yield, ok := packageYields[r]
	if !ok {
		return 0, common.ErrUnknownResource
	}
	if !spend.IsPositive() {
		return 0, common.ErrInvalidAmount
	}

	amount := spend.Mul(decimal.NewFromInt(yield)).Div(PackagePrice).Floor()
	if amount.LessThan(decimal.NewFromInt(1)) {
		return 0, common.ErrSpendTooSmall
	}
	return amount.IntPart(), nil
}
