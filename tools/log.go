package tools

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// LogConfig is the log section of the yaml config
type LogConfig struct {
	// whether the logger is enabled
	Enabled bool `yaml:"enabled"`
	// level of the logger, any zerolog level name
	Level string `yaml:"level"`
	// output of the logger, if stdout or file path, or both with "," separated
	Output string `yaml:"output"`
}

// NewLogger creates a new multilevelWriter logger with level
// and can be turned off and set output to os.Stdout or file
func NewLogger(cfg LogConfig) (zerolog.Logger, error) {
	if !cfg.Enabled {
		return zerolog.New(io.Discard).With().Timestamp().Logger(), nil
	}

	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	output := cfg.Output
	if output == "" {
		output = "stdout"
	}

	var writers []io.Writer
	for _, out := range strings.Split(output, ",") {
		out = strings.TrimSpace(out)
		if out == "stdout" {
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout})
			continue
		}
		// check the output path has a directory,
		// if not, create the directory
		dir := filepath.Dir(out)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return zerolog.Nop(), fmt.Errorf("create log dir %s: %w", dir, err)
			}
		}
		file, err := os.OpenFile(out, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("open log file %s: %w", out, err)
		}
		writers = append(writers, file)
	}

	var w io.Writer
	if len(writers) == 1 {
		w = writers[0]
	} else {
		w = io.MultiWriter(writers...)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
