// Package repository хранит счётчики трафика, собранные из access-лога.
//
// Счётчики построены на prometheus.CounterVec и зарегистрированы в собственном реестре.
// Каждое увеличение атомарно для отдельной серии. Общего снимка всех серий нет.
//
// Метки method/path/protocol берутся из лога как есть, число серий не ограничено.
package repository

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/levinOo/nginx-log-exporter/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Имена семейств счётчиков без префикса пространства имён.
const (
	ResponsesTotal        = "responses_total"
	ResponseCodeTotal     = "response_code_total"
	ResponseBodySizeTotal = "response_body_size_total"
	ParseErrorTotal       = "parse_error_total"
)

// HTTPCodes содержит коды, для которых серия responses_total создаётся сразу при запуске,
// чтобы на дашбордах была стабильная ось ещё до появления трафика.
var HTTPCodes = []uint16{
	100, 101, 102, 200, 201, 202, 203, 204, 205, 206, 207, 208, 226, 300, 301, 302, 303,
	304, 305, 307, 308, 400, 401, 402, 403, 404, 405, 406, 407, 408, 409, 410, 411, 412,
	413, 414, 415, 416, 417, 418, 421, 422, 423, 424, 426, 428, 429, 431, 444, 451, 499,
	500, 501, 502, 503, 504, 505, 506, 507, 508, 510, 511, 599,
}

// Storage описывает набор счётчиков, в который пишет агрегатор.
type Storage interface {
	IncResponse(status uint16)
	IncResponseCode(method, path, protocol string, status uint16)
	AddResponseBodySize(method, path, protocol string, size uint64)
	IncParseError()
	GetAll() (*models.ListMetrics, error)
}

// PromStorage реализует Storage поверх счётчиков Prometheus.
type PromStorage struct {
	registry *prometheus.Registry

	responses   *prometheus.CounterVec
	codes       *prometheus.CounterVec
	bodySize    *prometheus.CounterVec
	parseErrors prometheus.Counter
}

// NewPromStorage создаёт счётчики с префиксом namespace и регистрирует их в новом реестре.
func NewPromStorage(namespace string) (*PromStorage, error) {
	s := &PromStorage{
		registry: prometheus.NewRegistry(),
		responses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      ResponsesTotal,
				Help:      "Number of HTTP responses by status code",
			},
			[]string{"status"},
		),
		codes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      ResponseCodeTotal,
				Help:      "Number of HTTP responses by request info and status code",
			},
			[]string{"method", "path", "protocol", "status"},
		),
		bodySize: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      ResponseBodySizeTotal,
				Help:      "Bytes of HTTP response bodies sent by request info",
			},
			[]string{"method", "path", "protocol"},
		),
		parseErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      ParseErrorTotal,
				Help:      "Number of access log lines that could not be parsed",
			},
		),
	}

	for _, c := range []prometheus.Collector{s.responses, s.codes, s.bodySize, s.parseErrors} {
		if err := s.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register counter: %w", err)
		}
	}

	return s, nil
}

// Registry возвращает реестр со всеми счётчиками для выдачи по HTTP.
func (s *PromStorage) Registry() *prometheus.Registry {
	return s.registry
}

// FillStatusCodes создаёт нулевые серии responses_total для всех кодов из HTTPCodes.
func (s *PromStorage) FillStatusCodes() {
	for _, code := range HTTPCodes {
		s.responses.WithLabelValues(statusLabel(code))
	}
}

func (s *PromStorage) IncResponse(status uint16) {
	s.responses.WithLabelValues(statusLabel(status)).Inc()
}

func (s *PromStorage) IncResponseCode(method, path, protocol string, status uint16) {
	s.codes.WithLabelValues(method, path, protocol, statusLabel(status)).Inc()
}

// AddResponseBodySize прибавляет size к счётчику байт. Счётчик хранит float64,
// поэтому суммы больше 2^53 теряют точность в младших разрядах.
func (s *PromStorage) AddResponseBodySize(method, path, protocol string, size uint64) {
	s.bodySize.WithLabelValues(method, path, protocol).Add(float64(size))
}

func (s *PromStorage) IncParseError() {
	s.parseErrors.Inc()
}

// GetAll собирает текущие значения всех серий.
// Значения каждой серии согласованы, но между сериями снимок не атомарен.
func (s *PromStorage) GetAll() (*models.ListMetrics, error) {
	families, err := s.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather counters: %w", err)
	}

	var list models.ListMetrics

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			list.List = append(list.List, toModel(mf.GetName(), m))
		}
	}

	sort.SliceStable(list.List, func(i, j int) bool {
		return list.List[i].ID < list.List[j].ID
	})

	return &list, nil
}

func toModel(name string, m *dto.Metric) models.Metrics {
	labels := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}

	delta := uint64(m.GetCounter().GetValue())

	return models.Metrics{
		ID:     name,
		MType:  models.Counter,
		Labels: labels,
		Delta:  &delta,
	}
}

func statusLabel(status uint16) string {
	return strconv.FormatUint(uint64(status), 10)
}
