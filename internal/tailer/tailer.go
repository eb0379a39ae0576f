// Package tailer следит за растущим access-логом и передаёт каждую новую строку обработчику.
//
// Файл читается построчно. Когда новых данных нет, Tailer ждёт через Waiter и пробует снова.
// Неполная строка на границе дописывания накапливается, пока не придёт перевод строки.
// Любая ошибка чтения возвращается из Run: переоткрытия файла и повторов нет.
package tailer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval задаёт паузу между попытками чтения в конце файла.
const DefaultPollInterval = 50 * time.Millisecond

// LineHandler получает каждую полную строку без завершающего перевода строки.
type LineHandler interface {
	HandleLine(line string)
}

// Tailer читает дописываемые в файл строки.
type Tailer struct {
	path    string
	start   StartPosition
	waiter  Waiter
	handler LineHandler
	logger  *zap.SugaredLogger
}

// Option настраивает Tailer.
type Option func(*Tailer)

// WithStartPosition задаёт позицию чтения при открытии файла.
func WithStartPosition(p StartPosition) Option {
	return func(t *Tailer) {
		t.start = p
	}
}

// WithWaiter задаёт стратегию ожидания новых данных.
func WithWaiter(w Waiter) Option {
	return func(t *Tailer) {
		t.waiter = w
	}
}

// New создаёт Tailer для файла path.
// По умолчанию чтение начинается с конца файла, а ожидание опрашивает файл раз в DefaultPollInterval.
func New(path string, handler LineHandler, logger *zap.SugaredLogger, opts ...Option) *Tailer {
	t := &Tailer{
		path:    path,
		start:   StartEnd,
		waiter:  PollWaiter{Interval: DefaultPollInterval},
		handler: handler,
		logger:  logger,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Run открывает файл и обрабатывает строки до ошибки чтения или отмены ctx.
// При отмене ctx возвращает ctx.Err().
func (t *Tailer) Run(ctx context.Context) error {
	f, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("failed to open access log %s: %w", t.path, err)
	}
	defer f.Close()

	if t.start == StartEnd {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			return fmt.Errorf("failed to seek access log %s: %w", t.path, err)
		}
	}

	t.logger.Infow("Processing data from access log", "path", t.path, "start", t.start.String())

	return t.follow(ctx, bufio.NewReader(f))
}

func (t *Tailer) follow(ctx context.Context, r *bufio.Reader) error {
	var line []byte

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk, err := r.ReadBytes('\n')
		line = append(line, chunk...)

		switch {
		case err == nil:
			t.handler.HandleLine(string(trimEOL(line)))
			line = line[:0]
		case errors.Is(err, io.EOF):
			if len(chunk) > 0 {
				continue
			}
			if err := t.waiter.Wait(ctx); err != nil {
				return err
			}
		default:
			return fmt.Errorf("failed to read access log %s: %w", t.path, err)
		}
	}
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}
