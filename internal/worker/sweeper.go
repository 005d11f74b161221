// Package worker содержит фоновые периодические задачи.
package worker

import (
	"context"
	"time"

	"github.com/ignatzorin/studgig-backend/internal/goroutine"
	"github.com/ignatzorin/studgig-backend/internal/logger"
)

const defaultRunTimeout = time.Minute

// SweepFunc один проход задачи. Возвращает число обработанных записей.
type SweepFunc func(ctx context.Context) (int, error)

// Sweeper периодически запускает SweepFunc с ограничением по времени на проход.
type Sweeper struct {
	name       string
	interval   time.Duration
	runTimeout time.Duration
	fn         SweepFunc
	recovery   *goroutine.RecoveryHandler
	done       chan struct{}
}

func NewSweeper(name string, interval time.Duration, fn SweepFunc) *Sweeper {
	return &Sweeper{
		name:       name,
		interval:   interval,
		runTimeout: defaultRunTimeout,
		fn:         fn,
		recovery:   goroutine.NewRecoveryHandler(logger.Log, "worker:"+name),
		done:       make(chan struct{}),
	}
}

// Start запускает первый проход сразу, дальше по тикеру, пока не отменён ctx.
func (s *Sweeper) Start(ctx context.Context) {
	s.recovery.SafeGoWithContext(ctx, func(ctx context.Context) {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	})
}

// Done закрывается, когда цикл завершился.
func (s *Sweeper) Done() <-chan struct{} {
	return s.done
}

// RunOnce выполняет один проход.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	processed, err := s.fn(runCtx)
	if err != nil {
		logger.Log.WithFields(map[string]interface{}{
			"worker":    s.name,
			"processed": processed,
			"error":     err.Error(),
		}).Error("worker: проход завершился ошибкой")
		return processed
	}
	if processed > 0 {
		logger.Log.WithFields(map[string]interface{}{
			"worker":    s.name,
			"processed": processed,
		}).Info("worker: проход выполнен")
	}
	return processed
}
