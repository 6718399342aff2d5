// Package shop реализует магазин ресурсов храма: обмен небесных фунтов
// на золото, дерево, еду и камень. Выручка магазина уходит в серверный пул.
package shop

import (
	"strings"

	"github.com/heavenly-temple/pounds-bot/internal/common"
)

// Resource — тип ресурса храма.
type Resource string

// Ресурсы магазина
const (
	ResourceGold  Resource = "gold"
	ResourceWood  Resource = "wood"
	ResourceFood  Resource = "food"
	ResourceStone Resource = "stone"
)

// AllResources перечисляет ресурсы в порядке показа в /shop.
var AllResources = []Resource{ResourceGold, ResourceWood, ResourceFood, ResourceStone}

// ParseResource распознаёт ресурс по русскому или английскому названию.
func ParseResource(s string) (Resource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gold", "золото":
		return ResourceGold, nil
	case "wood", "дерево":
		return ResourceWood, nil
	case "food", "еда":
		return ResourceFood, nil
	case "stone", "камень":
		return ResourceStone, nil
	default:
		return "", common.ErrUnknownResource
	}
}

// Title возвращает русское название ресурса с эмодзи.
func (r Resource) Title() string {
	switch r {
	case ResourceGold:
		return "🪙 Золото"
	case ResourceWood:
		return "🪵 Дерево"
	case ResourceFood:
		return "🍖 Еда"
	case ResourceStone:
		return "🪨 Камень"
	default:
		return string(r)
	}
}

// column возвращает имя столбца таблицы users для ресурса.
// Белый список: SQL собирается только из этих четырёх значений.
func (r Resource) column() (string, error) {
	switch r {
	case ResourceGold, ResourceWood, ResourceFood, ResourceStone:
		return string(r), nil
	default:
		return "", common.ErrUnknownResource
	}
}
