// Package aggregator переводит разобранные записи лога в увеличения счётчиков.
package aggregator

import (
	"github.com/levinOo/nginx-log-exporter/internal/models"
	"github.com/levinOo/nginx-log-exporter/internal/repository"
)

// Aggregator обновляет счётчики в хранилище.
// Рассчитан на одного писателя: вызывать Record и RecordFailure должен только tailer.
type Aggregator struct {
	store repository.Storage
}

func New(store repository.Storage) *Aggregator {
	return &Aggregator{store: store}
}

// Record увеличивает по одной серии в каждом включённом семействе.
// Счётчик размера увеличивается на число отправленных байт.
func (a *Aggregator) Record(record models.LogRecord, enabled models.EnabledMetrics) {
	if enabled.ResponseStatus {
		a.store.IncResponse(record.ResponseStatus)
	}

	if enabled.ResponseCode {
		a.store.IncResponseCode(record.RequestMethod, record.RequestPath, record.RequestProtocol, record.ResponseStatus)
	}

	if enabled.ResponseSize {
		a.store.AddResponseBodySize(record.RequestMethod, record.RequestPath, record.RequestProtocol, record.ResponseBodyBytesSent)
	}
}

// RecordFailure учитывает строку, которую не удалось разобрать.
func (a *Aggregator) RecordFailure() {
	a.store.IncParseError()
}
