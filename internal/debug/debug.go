package debug

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

const logFilepath = "/tmp/navi-debug.log"

var (
	once   sync.Once
	logger *slog.Logger
)

// GetLogger returns a singleton slog logger instance.
// The full-screen UI owns stdout, so records go to a file.
func GetLogger() *slog.Logger {
	once.Do(func() {
		var w io.Writer = io.Discard
		if f, err := os.OpenFile(logFilepath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666); err == nil {
			w = f
		}
		logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		}))
	})
	return logger
}
