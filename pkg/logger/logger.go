package logger

import "sync"

// LoggerInstance is a logging backend.
type LoggerInstance interface {
	Log(message string, keyvals ...any)
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

// Level selects the backend method a message is routed to.
type Level int

const (
	LevelPrint Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	mu        sync.RWMutex
	instances []LoggerInstance
)

// Init replaces the configured backends. Messages sent before the first
// Init, or after Init with no backends, are dropped. The CLI re-initializes
// per command, so Init may run while other goroutines log.
func Init(backends ...LoggerInstance) {
	mu.Lock()
	instances = append([]LoggerInstance(nil), backends...)
	mu.Unlock()
}

// Write routes message to every backend at the given level.
func Write(level Level, message string, keyvals ...any) {
	mu.RLock()
	backends := instances
	mu.RUnlock()

	for _, b := range backends {
		switch level {
		case LevelDebug:
			b.Debug(message, keyvals...)
		case LevelInfo:
			b.Info(message, keyvals...)
		case LevelWarn:
			b.Warn(message, keyvals...)
		case LevelError:
			b.Error(message, keyvals...)
		case LevelFatal:
			b.Fatal(message, keyvals...)
		default:
			b.Log(message, keyvals...)
		}
	}
}

func Log(message string, keyvals ...any)   { Write(LevelPrint, message, keyvals...) }
func Debug(message string, keyvals ...any) { Write(LevelDebug, message, keyvals...) }
func Info(message string, keyvals ...any)  { Write(LevelInfo, message, keyvals...) }
func Warn(message string, keyvals ...any)  { Write(LevelWarn, message, keyvals...) }
func Error(message string, keyvals ...any) { Write(LevelError, message, keyvals...) }

// Fatal logs at FATAL level. Backends are expected to terminate the process.
func Fatal(message string, keyvals ...any) { Write(LevelFatal, message, keyvals...) }
