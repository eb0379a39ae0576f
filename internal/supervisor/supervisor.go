// Package supervisor запускает долгоживущие задачи и завершает процесс,
// если такая задача остановилась.
//
// Задачи вроде чтения access-лога должны работать до конца жизни процесса.
// Любое их завершение до отмены контекста (ошибка, nil или panic) приводит
// к выходу с кодом 1.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"go.uber.org/zap"
)

// ErrTaskExited означает, что задача завершилась без ошибки, хотя не должна была.
var ErrTaskExited = errors.New("task exited")

// Task описывает долгоживущую задачу под наблюдением.
type Task func(ctx context.Context) error

// PanicError содержит значение panic и стек горутины задачи.
type PanicError struct {
	Task  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", e.Task, e.Value)
}

// Supervisor следит за задачами и завершает процесс при их остановке.
type Supervisor struct {
	logger *zap.SugaredLogger
	exit   func(code int)
}

// Option настраивает Supervisor.
type Option func(*Supervisor)

// WithExit подменяет os.Exit, используется в тестах.
func WithExit(exit func(code int)) Option {
	return func(s *Supervisor) {
		s.exit = exit
	}
}

func New(logger *zap.SugaredLogger, opts ...Option) *Supervisor {
	s := &Supervisor{
		logger: logger,
		exit:   os.Exit,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Go запускает задачу в отдельной горутине и возвращает канал завершения.
// В канал попадает ровно одно значение, после чего он закрывается.
func (s *Supervisor) Go(ctx context.Context, name string, task Task) <-chan error {
	done := make(chan error, 1)

	go func() {
		defer close(done)
		done <- s.run(ctx, name, task)
	}()

	return done
}

// Supervise запускает задачу и блокируется до её завершения.
// Если задача остановилась, пока ctx не отменён, процесс завершается с кодом 1.
// После отмены ctx завершение задачи считается штатным.
func (s *Supervisor) Supervise(ctx context.Context, name string, task Task) {
	err := <-s.Go(ctx, name, task)

	if ctx.Err() != nil {
		s.logger.Infow("Task stopped", "task", name, "reason", err)
		return
	}

	s.fail(name, err)
}

func (s *Supervisor) run(ctx context.Context, name string, task Task) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Task: name, Value: v, Stack: debug.Stack()}
		}
	}()

	if err := task(ctx); err != nil {
		return err
	}
	return fmt.Errorf("task %s: %w", name, ErrTaskExited)
}

func (s *Supervisor) fail(name string, err error) {
	var perr *PanicError
	if errors.As(err, &perr) {
		s.logger.Errorw("Task panic, terminating process", "task", name, "panic", perr.Value, "stack", string(perr.Stack))
	} else {
		s.logger.Errorw("Task failed, terminating process", "task", name, "error", err)
	}

	_ = s.logger.Sync()
	s.exit(1)
}
