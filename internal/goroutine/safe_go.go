// Package goroutine запускает фоновые горутины так, чтобы паника не роняла процесс.
package goroutine

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// RecoveryHandler перехватывает панику в горутинах компонента и пишет её в лог со стеком.
type RecoveryHandler struct {
	log       logrus.FieldLogger
	component string
}

func NewRecoveryHandler(log logrus.FieldLogger, component string) *RecoveryHandler {
	return &RecoveryHandler{log: log, component: component}
}

// SafeGo запускает fn в отдельной горутине.
func (rh *RecoveryHandler) SafeGo(fn func()) {
	go func() {
		defer rh.handlePanic()
		fn()
	}()
}

// SafeGoWithContext то же, что SafeGo, но передаёт ctx в fn.
func (rh *RecoveryHandler) SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer rh.handlePanic()
		fn(ctx)
	}()
}

func (rh *RecoveryHandler) handlePanic() {
	if r := recover(); r != nil {
		rh.log.WithFields(logrus.Fields{
			"component": rh.component,
			"panic":     fmt.Sprint(r),
			"stack":     string(debug.Stack()),
		}).Error("goroutine: паника перехвачена")
	}
}
