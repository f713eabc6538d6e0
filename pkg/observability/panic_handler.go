package observability

import (
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it with structured logging.
//
// The function should be called in a defer statement. If a panic occurs,
// it is recovered and logged at Error level with the panic value, the full
// stack trace, and context about where the panic occurred. The panic is NOT
// re-raised.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
	}
}

