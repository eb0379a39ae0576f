// Package models содержит структуры данных, описывающие основные сущности предметной области.
// Пакет не содержит бизнес-логику и используется для передачи данных между слоями приложения.
package models

import (
	"net/netip"
	"time"
)

// Константы типов метрик
const (
	// Counter представляет метрику-счётчик, значение которой только увеличивается.
	Counter = "counter"
)

// LogRecord представляет одну разобранную строку access-лога nginx.
// Создаётся парсером на каждую строку и сразу же передаётся агрегатору.
type LogRecord struct {
	// RemoteAddr содержит IP-адрес клиента (v4 или v6).
	RemoteAddr netip.Addr

	// RemoteUser содержит имя пользователя, часто заглушку "-".
	RemoteUser string

	// TimeLocal содержит время запроса с фиксированным смещением часового пояса.
	TimeLocal time.Time

	RequestMethod   string
	RequestPath     string
	RequestProtocol string

	// ResponseStatus содержит HTTP-код ответа в диапазоне [100, 599].
	ResponseStatus uint16

	// ResponseBodyBytesSent содержит размер тела ответа в байтах.
	ResponseBodyBytesSent uint64

	HTTPReferer   string
	HTTPUserAgent string
}

// EnabledMetrics определяет, какие семейства счётчиков активны.
// Фиксируется при запуске и не меняется до завершения процесса.
type EnabledMetrics struct {
	// ResponseStatus включает счётчик ответов по коду статуса.
	ResponseStatus bool

	// ResponseCode включает счётчик ответов по маршруту и коду статуса.
	ResponseCode bool

	// ResponseSize включает счётчик отправленных байт по маршруту.
	ResponseSize bool
}

// AllMetrics возвращает конфигурацию со всеми включёнными семействами.
func AllMetrics() EnabledMetrics {
	return EnabledMetrics{
		ResponseStatus: true,
		ResponseCode:   true,
		ResponseSize:   true,
	}
}

// ListMetrics содержит список текущих значений счётчиков.
type ListMetrics struct {
	List []Metrics
}

// Metrics представляет одну серию счётчика для выдачи в списке.
type Metrics struct {
	// ID содержит полное имя метрики с префиксом пространства имён.
	ID string `json:"id"`

	// MType определяет тип метрики, всегда "counter".
	MType string `json:"type"`

	// Labels содержит метки серии.
	Labels map[string]string `json:"labels,omitempty"`

	// Delta содержит накопленное значение счётчика.
	Delta *uint64 `json:"delta,omitempty"`
}
