// Package service собирает экспортёр целиком: хранилище счётчиков, разбор и чтение
// access-лога под надзором супервизора и HTTP-сервер метрик.
// Управляет жизненным циклом компонентов и корректным завершением по SIGINT/SIGTERM.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/levinOo/nginx-log-exporter/internal/aggregator"
	"github.com/levinOo/nginx-log-exporter/internal/config"
	"github.com/levinOo/nginx-log-exporter/internal/handler"
	"github.com/levinOo/nginx-log-exporter/internal/logger"
	"github.com/levinOo/nginx-log-exporter/internal/parser"
	"github.com/levinOo/nginx-log-exporter/internal/repository"
	"github.com/levinOo/nginx-log-exporter/internal/supervisor"
	"github.com/levinOo/nginx-log-exporter/internal/tailer"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// ServerComponents содержит все компоненты работающего экспортёра.
type ServerComponents struct {
	server *http.Server
	store  *repository.PromStorage
	tailer *tailer.Tailer
	waiter io.Closer
	logger *zap.SugaredLogger
}

// Serve запускает экспортёр с указанной конфигурацией и блокируется до SIGINT/SIGTERM
// или ошибки HTTP-сервера. Сбой чтения лога завершает процесс с кодом 1.
func Serve(cfg config.Config) error {
	sugar, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer sugar.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case <-quit:
			sugar.Infoln("Shutting down server...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return Run(ctx, cfg, sugar)
}

// Run работает как Serve, но останавливается по отмене ctx.
// Опции передаются супервизору чтения лога.
func Run(ctx context.Context, cfg config.Config, sugar *zap.SugaredLogger, opts ...supervisor.Option) error {
	components, err := setupServer(cfg, sugar)
	if err != nil {
		return err
	}

	tailCtx, stopTail := context.WithCancel(ctx)
	defer stopTail()

	tailDone := make(chan struct{})
	go func() {
		defer close(tailDone)
		supervisor.New(sugar, opts...).Supervise(tailCtx, "tailer", components.tailer.Run)
	}()

	serverErr := make(chan error, 1)

	go func() {
		sugar.Infow("HTTP server started", "address", cfg.Addr)
		if err := components.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error

	select {
	case err := <-serverErr:
		if err != nil {
			sugar.Errorw("Server error", "error", err)
			runErr = fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	stopTail()
	<-tailDone

	if err := gracefulShutdown(components); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func setupServer(cfg config.Config, sugar *zap.SugaredLogger) (*ServerComponents, error) {
	sugar.Infow("Starting exporter with config",
		"accessLog", cfg.AccessLog,
		"namespace", cfg.Namespace,
		"address", cfg.Addr,
		"responseStatus", cfg.ResponseStatus,
		"responseCode", cfg.ResponseCode,
		"responseSize", cfg.ResponseSize,
		"startPosition", cfg.StartPosition,
		"pollInterval", cfg.PollInterval,
		"watch", cfg.Watch,
	)

	storage, err := repository.NewPromStorage(cfg.Namespace)
	if err != nil {
		return nil, err
	}

	if cfg.ResponseStatus {
		storage.FillStatusCodes()
	}

	start, err := tailer.ParseStartPosition(cfg.StartPosition)
	if err != nil {
		return nil, err
	}

	components := &ServerComponents{
		store:  storage,
		logger: sugar,
	}

	var waiter tailer.Waiter = tailer.PollWaiter{Interval: cfg.PollInterval}
	if cfg.Watch {
		nw, err := tailer.NewNotifyWaiter(cfg.AccessLog, cfg.PollInterval, sugar)
		if err != nil {
			return nil, err
		}
		waiter = nw
		components.waiter = nw
	}

	processor := tailer.NewProcessor(parser.New(), aggregator.New(storage), cfg.EnabledMetrics(), sugar)
	components.tailer = tailer.New(cfg.AccessLog, processor, sugar,
		tailer.WithStartPosition(start),
		tailer.WithWaiter(waiter),
	)

	components.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.NewRouter(storage, sugar),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return components, nil
}

func gracefulShutdown(c *ServerComponents) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := c.server.Shutdown(ctx); err != nil {
		c.logger.Errorw("Server shutdown error", "error", err)
		shutdownErr = fmt.Errorf("server shutdown: %w", err)
	}

	if c.waiter != nil {
		if err := c.waiter.Close(); err != nil {
			c.logger.Errorw("Error closing file watcher", "error", err)
		}
	}

	c.logger.Infoln("Exporter stopped gracefully")
	return shutdownErr
}
