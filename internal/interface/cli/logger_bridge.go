package cli

import (
	"github.com/YoshitsuguKoike/align/internal/app"
)

// InitializeLoggers sets up loggers for all layers
func InitializeLoggers(logger *Logger) {
	app.SetLogger(app.NewZapLogger(logger.Sugared()))
}
