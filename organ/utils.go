package organ

import "log"

// defaultLogger adapts the standard library logger to Logger, used when
// NewEngine is not given one explicitly.
type defaultLogger struct{}

func (defaultLogger) Printf(format string, args ...any) {
	log.Printf(format, args...)
}
