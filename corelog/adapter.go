// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package corelog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const appName = "headerdb"

var (
	// Disabled is a logger that discards everything.  Packages use it until
	// the application installs a real logger.
	Disabled zerolog.Logger

	DefaultLevel   = zerolog.InfoLevel
	DefaultLogFile = "headerdbd.log"
)

func init() {
	Disabled = zerolog.Nop()
}

// Config for logging
type Config struct {
	// Disable console logging
	DisableConsoleLog bool `yaml:"disable_console_log"`
	// LogsAsJSON makes the log framework log JSON
	LogsAsJSON bool `yaml:"logs_as_json"`
	// FileLoggingEnabled makes the framework log to a file
	// the fields below can be skipped if this value is false!
	FileLoggingEnabled bool `yaml:"file_logging_enabled"`
	// Directory to log to when file logging is enabled
	Directory string `yaml:"directory"`
	// Filename is the name of the logfile which will be placed inside the directory
	Filename string `yaml:"filename"`
	// MaxSize the max size in MB of the logfile before it's rolled
	MaxSize int `yaml:"max_size"`
	// MaxBackups the max number of rolled files to keep
	MaxBackups int `yaml:"max_backups"`
	// MaxAge the max age in days to keep a logfile
	MaxAge int `yaml:"max_age"`
}

func (Config) Default() Config {
	return Config{
		Directory:  "logs",
		Filename:   DefaultLogFile,
		MaxSize:    150,
		MaxBackups: 3,
		MaxAge:     28,
	}
}

// Validate reports settings that would make New produce a logger writing
// nowhere useful.
func (cfg Config) Validate() error {
	if !cfg.FileLoggingEnabled {
		return nil
	}
	if cfg.Filename == "" {
		return errors.New("file logging enabled but filename is empty")
	}
	if cfg.MaxSize < 0 || cfg.MaxBackups < 0 || cfg.MaxAge < 0 {
		return errors.New("log rotation limits must not be negative")
	}
	return nil
}

// New creates a logger for the subsystem unit.  Output goes to the console
// (human readable or JSON) and optionally to a rolling file.
func New(unit string, logLevel zerolog.Level, config Config) zerolog.Logger {
	var writers []io.Writer
	if !config.DisableConsoleLog && !config.LogsAsJSON {
		writers = append(writers, ConsoleWriter(os.Stderr, unit))
	}
	if !config.DisableConsoleLog && config.LogsAsJSON {
		writers = append(writers, os.Stdout)
	}
	if config.FileLoggingEnabled {
		if file, err := newRollingFile(config); err != nil {
			fmt.Fprintf(os.Stderr, "%s: file logging disabled: %v\n", unit, err)
		} else {
			writers = append(writers, file)
		}
	}
	if len(writers) == 0 {
		return Disabled
	}

	logger := NewWithWriter(unit, logLevel, io.MultiWriter(writers...))

	logger.Trace().
		Bool("fileLogging", config.FileLoggingEnabled).
		Bool("jsonLogOutput", config.LogsAsJSON).
		Str("logDirectory", config.Directory).
		Str("fileName", config.Filename).
		Int("maxSizeMB", config.MaxSize).
		Int("maxBackups", config.MaxBackups).
		Int("maxAgeInDays", config.MaxAge).
		Msg("logging configured")

	return logger
}

// NewWithWriter creates a JSON logger for unit that writes to w.
func NewWithWriter(unit string, logLevel zerolog.Level, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(logLevel).
		With().
		Str("app", appName).
		Str("unit", unit).
		Timestamp().
		Logger()
}

// ConsoleWriter returns the colored console output used by the daemon.
func ConsoleWriter(out io.Writer, unit string) zerolog.ConsoleWriter {
	w := zerolog.ConsoleWriter{Out: out, NoColor: false}
	w.TimeFormat = time.RFC3339
	w.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s| %s |", i, unit))
	}
	w.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("%-6s  ", i)
	}
	w.FieldsExclude = []string{"app", "unit"}
	return w
}

func newRollingFile(config Config) (io.Writer, error) {
	if err := os.MkdirAll(config.Directory, 0744); err != nil {
		return nil, errors.Wrapf(err, "can't create log directory %s", config.Directory)
	}

	return &lumberjack.Logger{
		Filename:   filepath.Join(config.Directory, config.Filename),
		MaxBackups: config.MaxBackups, // files
		MaxSize:    config.MaxSize,    // megabytes
		MaxAge:     config.MaxAge,     // days
	}, nil
}
