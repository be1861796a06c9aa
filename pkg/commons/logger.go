// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.
package commons

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logging surface every component of the voice core receives.
// It is a thin veneer over a zap sugared logger so call sites stay terse.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Fatalf(template string, args ...interface{})
	Sync() error
}

type applicationLogger struct {
	*zap.SugaredLogger
}

type loggerOptions struct {
	name  string
	path  string
	level string
}

type LoggerOption func(*loggerOptions)

// Name sets the application name attached to every entry.
func Name(name string) LoggerOption {
	return func(o *loggerOptions) { o.name = name }
}

// Path enables file output (rotated) under the given directory.
func Path(path string) LoggerOption {
	return func(o *loggerOptions) { o.path = path }
}

// Level sets the minimum log level: debug, info, warn or error.
func Level(level string) LoggerOption {
	return func(o *loggerOptions) { o.level = level }
}

// NewApplicationLogger builds the standard application logger: console
// output always, plus a rotated file when a path is configured.
func NewApplicationLogger(opts ...LoggerOption) (Logger, error) {
	options := &loggerOptions{
		name:  "voice-core",
		level: "debug",
	}
	for _, opt := range opts {
		opt(options)
	}

	level := zapcore.DebugLevel
	if err := level.Set(options.level); err != nil {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderCfg),
			zapcore.Lock(os.Stdout),
			level,
		),
	}

	if options.path != "" {
		rotated := &lumberjack.Logger{
			Filename:   filepath.Join(options.path, options.name+".log"),
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.AddSync(rotated),
			level,
		))
	}

	logger := zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	).Named(options.name)

	return &applicationLogger{SugaredLogger: logger.Sugar()}, nil
}
