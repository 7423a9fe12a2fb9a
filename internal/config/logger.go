package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

type LoggingConfig struct {
	Level string `toml:"level"`          // none, normal or debug
	File  string `toml:"file,omitempty"` // optional log file, always at debug level
}

// Prepare builds the program logger: console on stderr at the configured
// level plus an optional file.
func (conf LoggingConfig) Prepare() (*zap.Logger, error) {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	if term.IsTerminal(int(os.Stderr.Fd())) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.TimeKey = zapcore.OmitKey
	} else {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	var console zapcore.Core
	switch conf.Level {
	case "debug":
		console = zapcore.NewCore(zapcore.NewConsoleEncoder(ec), zapcore.Lock(os.Stderr), zapcore.DebugLevel)
	case "normal", "":
		console = zapcore.NewCore(zapcore.NewConsoleEncoder(ec), zapcore.Lock(os.Stderr), zapcore.InfoLevel)
	case "none":
		console = zapcore.NewNopCore()
	default:
		return nil, fmt.Errorf("unsupported log level: %q (supported: none, normal, debug)", conf.Level)
	}

	file := zapcore.NewNopCore()
	if conf.File != "" {
		f, err := os.OpenFile(conf.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("unable to access log file (%s): %w", conf.File, err)
		}
		file = zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.Lock(f), zapcore.DebugLevel)
	}

	return zap.New(zapcore.NewTee(console, file), zap.AddCaller()).Named("ttsdeck"), nil
}
