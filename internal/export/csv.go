// Package export пишет append-only CSV-журнал покупок магазина.
// Журнал нужен казначеям сообщества: его можно открыть в любой таблице.
//
// Экспорт best-effort: файл недоступен — покупка всё равно проходит,
// в логах остаётся предупреждение.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/heavenly-temple/pounds-bot/internal/features/shop"
)

var csvHeader = []string{"timestamp_utc", "user_id", "username", "resource", "amount", "cost_pounds"}

// CSVLedger дописывает покупки в CSV-файл.
// Мьютекс сериализует записи: покупки приходят из разных горутин.
type CSVLedger struct {
	mu   sync.Mutex
	path string
}

// NewCSVLedger создаёт журнал по указанному пути. Если файла нет,
// он будет создан с заголовком при первой записи.
func NewCSVLedger(path string) *CSVLedger {
	return &CSVLedger{path: path}
}

// Append дописывает одну покупку в конец файла.
func (l *CSVLedger) Append(p shop.Purchase) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	writeHeader := false
	if info, err := os.Stat(l.path); os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		writeHeader = true
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("ошибка открытия CSV-журнала: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("ошибка записи заголовка CSV: %w", err)
		}
	}

	record := []string{
		p.At.UTC().Format("2006-01-02T15:04:05Z"),
		fmt.Sprintf("%d", p.UserID),
		p.DisplayName,
		string(p.Resource),
		fmt.Sprintf("%d", p.Amount),
		p.Cost.String(),
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("ошибка записи строки CSV: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("ошибка сброса CSV: %w", err)
	}
	return nil
}
