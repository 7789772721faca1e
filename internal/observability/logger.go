// Package observability builds the agent's zap logger.
package observability

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/grez-lucas/dialer-helper/internal/config"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// NewLogger builds a logger writing cfg.Format to console and, when
// cfg.LogFile is set, JSON to a rotated file. An unknown level falls back to
// info.
func NewLogger(cfg config.LoggerConfig, console zapcore.WriteSyncer) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	consoleEncoder, err := encoder(cfg.Format)
	if err != nil {
		return nil, err
	}
	cores := []zapcore.Core{zapcore.NewCore(consoleEncoder, console, level)}

	if cfg.LogFile != "" {
		fileEncoder, _ := encoder("json")
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
		cores = append(cores, zapcore.NewCore(fileEncoder, fileWriter, level))
	}

	options := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
	if cfg.AddSource {
		options = append(options, zap.AddCaller())
	}

	logger := zap.New(zapcore.NewTee(cores...), options...)
	if cfg.ServiceName != "" {
		logger = logger.Named(cfg.ServiceName)
	}
	return logger, nil
}

// Install builds the logger on stderr and makes it the zap and stdlib
// global. The returned func flushes it.
func Install(cfg config.LoggerConfig) (*zap.Logger, func(), error) {
	logger, err := NewLogger(cfg, zapcore.Lock(os.Stderr))
	if err != nil {
		return nil, nil, err
	}
	undoGlobals := zap.ReplaceGlobals(logger)
	undoStdLog := zap.RedirectStdLog(logger)
	return logger, func() {
		_ = logger.Sync()
		undoStdLog()
		undoGlobals()
	}, nil
}

func encoder(format string) (zapcore.Encoder, error) {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)

	switch format {
	case "json":
		return zapcore.NewJSONEncoder(ec), nil
	case "console", "":
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.EncodeCaller = zapcore.ShortCallerEncoder
		ec.ConsoleSeparator = "  "
		return zapcore.NewConsoleEncoder(ec), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
