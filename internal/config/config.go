// Package config предоставляет функциональность для управления конфигурацией приложения.
// Поддерживает загрузку настроек из JSON-файла, флагов командной строки и переменных окружения,
// с приоритетом переменных окружения над флагами и флагов над файлом.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/levinOo/nginx-log-exporter/internal/models"
	"github.com/levinOo/nginx-log-exporter/internal/tailer"
)

// Значения по умолчанию.
const (
	DefaultNamespace     = "nginx"
	DefaultAddr          = "0.0.0.0:5000"
	DefaultStartPosition = "end"
	DefaultLogLevel      = "info"
	DefaultPollInterval  = tailer.DefaultPollInterval
)

// ErrNoAccessLog возвращается, если путь к access-логу не задан ни одним из источников.
var ErrNoAccessLog = errors.New("access log path is required")

// ConfigStruct описывает JSON-файл конфигурации.
// Незаданные поля не переопределяют значения по умолчанию.
type ConfigStruct struct {
	AccessLog      string `json:"access_log"`
	Namespace      string `json:"namespace"`
	Addr           string `json:"address"`
	ResponseStatus *bool  `json:"metric_response_status"`
	ResponseCode   *bool  `json:"metric_response_code"`
	ResponseSize   *bool  `json:"metric_response_size"`
	StartPosition  string `json:"start_position"`
	PollInterval   string `json:"poll_interval"`
	Watch          *bool  `json:"watch"`
	LogLevel       string `json:"log_level"`
}

// Config содержит все параметры экспортёра.
type Config struct {
	// AccessLog задаёт путь к access-логу nginx, за которым следит экспортёр.
	AccessLog string `env:"ACCESS_LOG"`

	// Namespace задаёт префикс имён метрик.
	Namespace string `env:"NAMESPACE"`

	// Addr задает адрес и порт HTTP-сервера метрик (например, "0.0.0.0:5000").
	Addr string `env:"ADDRESS"`

	// ResponseStatus, ResponseCode и ResponseSize включают семейства счётчиков
	// responses_total, response_code_total и response_body_size_total.
	ResponseStatus bool `env:"METRIC_RESPONSE_STATUS"`
	ResponseCode   bool `env:"METRIC_RESPONSE_CODE"`
	ResponseSize   bool `env:"METRIC_RESPONSE_SIZE"`

	// StartPosition определяет, читать ли файл с начала ("beginning") или только новые строки ("end").
	StartPosition string `env:"START_POSITION"`

	// PollInterval задаёт паузу между попытками чтения в конце файла.
	PollInterval time.Duration `env:"POLL_INTERVAL"`

	// Watch включает пробуждение по событиям файловой системы в дополнение к опросу.
	Watch bool `env:"WATCH"`

	LogLevel string `env:"LOG_LEVEL"`

	ConfigFilePath string `env:"CONFIG"`
}

// Default возвращает конфигурацию по умолчанию: все семейства счётчиков включены.
func Default() Config {
	return Config{
		Namespace:      DefaultNamespace,
		Addr:           DefaultAddr,
		ResponseStatus: true,
		ResponseCode:   true,
		ResponseSize:   true,
		StartPosition:  DefaultStartPosition,
		PollInterval:   DefaultPollInterval,
		LogLevel:       DefaultLogLevel,
	}
}

// EnabledMetrics возвращает набор включённых семейств счётчиков.
func (c Config) EnabledMetrics() models.EnabledMetrics {
	return models.EnabledMetrics{
		ResponseStatus: c.ResponseStatus,
		ResponseCode:   c.ResponseCode,
		ResponseSize:   c.ResponseSize,
	}
}

// LoadDotEnv загружает переменные из файла .env в текущем каталоге, если он есть.
// Уже установленные переменные окружения не перезаписываются.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Load собирает конфигурацию из args (без имени программы), JSON-файла и окружения.
//
// Поддерживаемые флаги:
//
//	-f:         путь к access-логу (также позиционным аргументом, флаги допускаются до и после него)
//	-n:         префикс метрик (по умолчанию "nginx")
//	-a:         адрес HTTP-сервера (по умолчанию "0.0.0.0:5000")
//	-status:    счётчик ответов по коду (по умолчанию true)
//	-code:      счётчик ответов по маршруту и коду (по умолчанию true)
//	-size:      счётчик байт по маршруту (по умолчанию true)
//	-start:     "end" или "beginning" (по умолчанию "end")
//	-poll:      интервал опроса файла (по умолчанию 50ms)
//	-watch:     просыпаться по событиям fsnotify (по умолчанию false)
//	-log-level: уровень логирования (по умолчанию "info")
//	-config:    путь к JSON-файлу конфигурации
//
// Соответствующие переменные окружения:
//
//	ACCESS_LOG, NAMESPACE, ADDRESS, METRIC_RESPONSE_STATUS, METRIC_RESPONSE_CODE,
//	METRIC_RESPONSE_SIZE, START_POSITION, POLL_INTERVAL, WATCH, LOG_LEVEL, CONFIG
func Load(args []string) (Config, error) {
	return load(args, io.Discard)
}

// LoadWithUsage работает как Load, но печатает справку по флагам в out.
func LoadWithUsage(args []string, out io.Writer) (Config, error) {
	return load(args, out)
}

func load(args []string, out io.Writer) (Config, error) {
	cfg := Default()

	fs, fv := newFlagSet(out)
	accessLog, err := parseArgs(fs, args)
	if err != nil {
		return Config{}, err
	}

	configPath := getString(os.Getenv("CONFIG"), fv.configPath, "")
	if configPath != "" {
		if err := applyFile(&cfg, configPath); err != nil {
			return Config{}, err
		}
		cfg.ConfigFilePath = configPath
	}

	fv.apply(fs, &cfg)

	if accessLog != "" {
		cfg.AccessLog = accessLog
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("ошибка парсинга ENV: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate проверяет согласованность конфигурации.
func (c Config) Validate() error {
	if strings.TrimSpace(c.AccessLog) == "" {
		return ErrNoAccessLog
	}
	if strings.TrimSpace(c.Namespace) == "" {
		return errors.New("metrics namespace must not be empty")
	}
	if _, err := tailer.ParseStartPosition(c.StartPosition); err != nil {
		return err
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	return nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc ConfigStruct
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	cfg.AccessLog = getString("", fc.AccessLog, cfg.AccessLog)
	cfg.Namespace = getString("", fc.Namespace, cfg.Namespace)
	cfg.Addr = getString("", fc.Addr, cfg.Addr)
	cfg.StartPosition = getString("", fc.StartPosition, cfg.StartPosition)
	cfg.LogLevel = getString("", fc.LogLevel, cfg.LogLevel)
	cfg.ResponseStatus = getBool(fc.ResponseStatus, cfg.ResponseStatus)
	cfg.ResponseCode = getBool(fc.ResponseCode, cfg.ResponseCode)
	cfg.ResponseSize = getBool(fc.ResponseSize, cfg.ResponseSize)
	cfg.Watch = getBool(fc.Watch, cfg.Watch)

	if fc.PollInterval != "" {
		d, err := time.ParseDuration(fc.PollInterval)
		if err != nil {
			return fmt.Errorf("invalid poll_interval in %s: %w", path, err)
		}
		cfg.PollInterval = d
	}

	return nil
}

// getString возвращает первое непустое значение по приоритету.
func getString(envValue, flagValue, configValue string) string {
	if envValue != "" {
		return envValue
	} else if flagValue != "" {
		return flagValue
	}

	return configValue
}

func getBool(fileValue *bool, current bool) bool {
	if fileValue != nil {
		return *fileValue
	}
	return current
}
