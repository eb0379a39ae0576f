// Package handler содержит HTTP-обработчики экспортёра: выдачу метрик в формате
// Prometheus, проверку живости и человекочитаемый список счётчиков.
package handler

import (
	"compress/gzip"
	"fmt"
	"html"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/levinOo/nginx-log-exporter/internal/logger"
	"github.com/levinOo/nginx-log-exporter/internal/models"
	"github.com/levinOo/nginx-log-exporter/internal/repository"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Lister возвращает текущие значения счётчиков.
type Lister interface {
	GetAll() (*models.ListMetrics, error)
}

// NewRouter собирает маршруты экспортёра:
//
//	GET /        список счётчиков (text/plain или text/html, опционально gzip)
//	GET /metrics формат экспозиции Prometheus
//	GET /health  проверка живости
func NewRouter(storage *repository.PromStorage, sugar *zap.SugaredLogger) *chi.Mux {
	r := chi.NewRouter()

	metrics := promhttp.HandlerFor(storage.Registry(), promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(sugar.Desugar()),
	})

	r.Get("/", LoggerFuncServer(GetListHandler(storage), sugar))
	r.Get("/health", LoggerFuncServer(HealthHandler(), sugar))
	r.Get("/metrics", LoggerFuncServer(metrics, sugar))

	return r
}

// LoggerFuncServer логирует каждый запрос: URI, метод, длительность, статус и размер ответа.
func LoggerFuncServer(h http.Handler, sugar *zap.SugaredLogger) http.HandlerFunc {
	logFn := func(rw http.ResponseWriter, r *http.Request) {
		start := time.Now()

		responseData := &logger.ResponseData{}
		lw := logger.LoggingRW{
			ResponseWriter: rw,
			ResponseData:   responseData,
		}

		h.ServeHTTP(&lw, r)

		sugar.Debugw("HTTP request",
			"uri", r.RequestURI,
			"method", r.Method,
			"duration", time.Since(start),
			"status", responseData.Status,
			"size", responseData.Size,
		)
	}
	return http.HandlerFunc(logFn)
}

// HealthHandler всегда отвечает 200 OK, пока процесс жив.
func HealthHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain")
		rw.WriteHeader(http.StatusOK)
		if _, err := rw.Write([]byte("OK")); err != nil {
			log.Printf("write error: %v", err)
		}
	}
}

// GetListHandler выводит все серии счётчиков. Формат выбирается по заголовку Accept,
// сжатие по Accept-Encoding.
func GetListHandler(storage Lister) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		list, err := storage.GetAll()
		if err != nil {
			http.Error(rw, "Failed to collect metrics", http.StatusInternalServerError)
			return
		}

		asHTML := strings.Contains(r.Header.Get("Accept"), "text/html")

		var body string
		if asHTML {
			body = renderHTML(list)
			rw.Header().Set("Content-Type", "text/html")
		} else {
			body = renderText(list)
			rw.Header().Set("Content-Type", "text/plain")
		}

		if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			rw.Header().Set("Content-Encoding", "gzip")
			rw.WriteHeader(http.StatusOK)

			gz := gzip.NewWriter(rw)
			defer gz.Close()

			if _, err := gz.Write([]byte(body)); err != nil {
				log.Printf("gzip write error: %v", err)
			}
			return
		}

		rw.WriteHeader(http.StatusOK)
		if _, err := rw.Write([]byte(body)); err != nil {
			log.Printf("write error: %v", err)
		}
	}
}

func renderText(list *models.ListMetrics) string {
	var sb strings.Builder
	for _, m := range list.List {
		fmt.Fprintf(&sb, "%s: %d\n", seriesName(m), deltaOf(m))
	}
	return sb.String()
}

func renderHTML(list *models.ListMetrics) string {
	var sb strings.Builder

	sb.WriteString("<html><body>")
	sb.WriteString("<h1>Metrics</h1>")

	if len(list.List) > 0 {
		sb.WriteString("<h2>Counters</h2><ul>")
		for _, m := range list.List {
			fmt.Fprintf(&sb, "<li>%s: %d</li>", html.EscapeString(seriesName(m)), deltaOf(m))
		}
		sb.WriteString("</ul>")
	}

	sb.WriteString("</body></html>")
	return sb.String()
}

// seriesName форматирует серию как в экспозиции Prometheus: name{k="v",...}.
func seriesName(m models.Metrics) string {
	if len(m.Labels) == 0 {
		return m.ID
	}

	keys := make([]string, 0, len(m.Labels))
	for k := range m.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%q", k, m.Labels[k]))
	}
	return m.ID + "{" + strings.Join(pairs, ",") + "}"
}

func deltaOf(m models.Metrics) uint64 {
	if m.Delta == nil {
		return 0
	}
	return *m.Delta
}
