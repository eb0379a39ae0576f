package tailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrWatcherClosed возвращается, если наблюдатель файловой системы закрыт во время ожидания.
var ErrWatcherClosed = errors.New("file watcher closed")

// Waiter блокируется, пока в файле, возможно, не появятся новые данные.
type Waiter interface {
	Wait(ctx context.Context) error
}

// PollWaiter ждёт фиксированный интервал.
type PollWaiter struct {
	Interval time.Duration
}

func (w PollWaiter) Wait(ctx context.Context) error {
	timer := time.NewTimer(w.Interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NotifyWaiter просыпается по событию записи в файл от fsnotify,
// а если событий нет, то по истечении интервала, как PollWaiter.
// Ошибки наблюдателя (например, переполнение очереди событий) только логируются.
type NotifyWaiter struct {
	watcher  *fsnotify.Watcher
	interval time.Duration
	logger   *zap.SugaredLogger
}

// NewNotifyWaiter подписывается на изменения файла path.
func NewNotifyWaiter(path string, interval time.Duration, logger *zap.SugaredLogger) (*NotifyWaiter, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	return &NotifyWaiter{watcher: watcher, interval: interval, logger: logger}, nil
}

func (w *NotifyWaiter) Wait(ctx context.Context) error {
	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return ErrWatcherClosed
			}
			if ev.Has(fsnotify.Write) {
				return nil
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return ErrWatcherClosed
			}
			w.logger.Warnw("File watcher error, waiting for poll interval", "error", err)
		}
	}
}

// Close освобождает ресурсы наблюдателя.
func (w *NotifyWaiter) Close() error {
	return w.watcher.Close()
}
