package settings

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger is the shared process logger. Usable after ResetSettings.
var Logger zerolog.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

func setupLogger(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	Logger = zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
