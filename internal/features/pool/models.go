// Package pool управляет общим фондом сервера (серверным пулом).
// Пул — единственный источник призов розыгрышей и админ-выдач;
// взносы участников и выручка магазина стекаются обратно в него.
package pool

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stats представляет строку server_stats — единственную запись с id = 1.
type Stats struct {
	ID          int64           `db:"id"`
	PoolBalance decimal.Decimal `db:"pool_balance"` // Текущий баланс пула
	UpdatedAt   time.Time       `db:"updated_at"`
}

// statsRowID — фиксированный ID единственной строки server_stats.
const statsRowID = 1
