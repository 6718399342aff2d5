// Package common — notify.go определяет контракт журнала активности.
// Все начисления, покупки и переходы розыгрышей зеркалируются в лог-канал
// «по возможности»: ошибка доставки никогда не влияет на саму операцию.
package common

// Цвета событий журнала (семантика, а не оформление).
const (
	ColorGreen  = "green"  // начисления, успешные операции
	ColorBlue   = "blue"   // покупки
	ColorGold   = "gold"   // бусты, ежедневные награды
	ColorPurple = "purple" // розыгрыши
	ColorOrange = "orange" // отмены, возвраты
	ColorRed    = "red"    // ошибки внешних коллабораторов
)

// Notifier отправляет событие в журнал активности.
// Реализация обязана быть fire-and-forget: не блокировать вызывающего
// и не возвращать ошибок.
type Notifier interface {
	LogActivity(title, text, color string)
}

// NopNotifier — заглушка для тестов и отключённого лог-канала.
type NopNotifier struct{}

// LogActivity ничего не делает.
func (NopNotifier) LogActivity(title, text, color string) {}
