// Package config loads pkdex settings from the environment.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/caarlos0/env/v11"

	"github.com/FocuswithJustin/pkdex/core/game"
	"github.com/FocuswithJustin/pkdex/internal/logging"
)

// Offset is a save offset that accepts decimal or 0x-prefixed hex.
type Offset int

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Offset) UnmarshalText(text []byte) error {
	v, err := strconv.ParseUint(string(text), 0, 32)
	if err != nil {
		return fmt.Errorf("invalid offset %q: %w", text, err)
	}
	*o = Offset(v)
	return nil
}

// Config is the environment view of the CLI settings. Zero values mean
// "not set"; command-line flags take precedence over everything here.
type Config struct {
	DataDir   string `env:"PKDEX_DATA_DIR"`
	Personal  string `env:"PKDEX_PERSONAL"`
	NamesDir  string `env:"PKDEX_NAMES_DIR"`
	Lang      string `env:"PKDEX_LANG" envDefault:"en"`
	LogLevel  string `env:"PKDEX_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"PKDEX_LOG_FORMAT" envDefault:"text"`
	Game      string `env:"PKDEX_GAME"`

	XYDexOffset   Offset `env:"PKDEX_XY_DEX_OFFSET"`
	ORASDexOffset Offset `env:"PKDEX_ORAS_DEX_OFFSET"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment into a Config and fills in DataDir.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}
	return cfg, nil
}

var userConfigDir = os.UserConfigDir

func defaultDataDir() string {
	dir, err := userConfigDir()
	if err != nil {
		return ".pkdex"
	}
	return filepath.Join(dir, "pkdex")
}

// BackupDir is where save backups are stored.
func (c Config) BackupDir() string {
	return filepath.Join(c.DataDir, "backups")
}

// JournalPath is the SQLite file recording imports.
func (c Config) JournalPath() string {
	return filepath.Join(c.DataDir, "journal.db")
}

// Layout returns the save layout for v with any configured dex offset
// override applied.
func (c Config) Layout(v game.Version) (game.Layout, error) {
	l, err := game.LayoutFor(v)
	if err != nil {
		return game.Layout{}, err
	}
	switch {
	case v == game.XY && c.XYDexOffset != 0:
		l = l.WithDexOffset(int(c.XYDexOffset))
	case v == game.ORAS && c.ORASDexOffset != 0:
		l = l.WithDexOffset(int(c.ORASDexOffset))
	}
	return l, nil
}

// InitLogging applies LogLevel and LogFormat to the global logger.
func (c Config) InitLogging() error {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(c.LogFormat)
	if err != nil {
		return err
	}
	logging.InitLogger(level, format)
	return nil
}

// stderr and exit are replaced in tests.
var (
	stderr io.Writer = os.Stderr
	exit             = os.Exit
)

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(stderr, format+"\n", args...)
	exit(1)
}
