package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/target/drive-notes/config"
)

// InitLogger installs the process-wide slog logger: JSON at info in
// production, text at debug with source locations in dev.
func InitLogger(dev bool) *slog.Logger {
	logger := slog.New(newLogHandler(os.Stdout, dev))
	slog.SetDefault(logger)
	return logger
}

func newLogHandler(w io.Writer, dev bool) slog.Handler {
	if dev {
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug, AddSource: true})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
}

// LoadConfig reads optional dotenv files (".env" when none are named) into
// the environment and parses AppConfig from it. Variables already set win
// over file values.
func LoadConfig(files ...string) (config.AppConfig, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config.AppConfig{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}
