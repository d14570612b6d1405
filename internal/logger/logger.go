package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the process-wide logger. It starts as a no-op so packages may log
// before Initialize runs, which also keeps tests quiet.
var Log = zap.NewNop()

// SugaredLog mirrors Log for printf-style call sites.
var SugaredLog = Log.Sugar()

var levelNames = map[string]zapcore.Level{
	"debug":   zapcore.DebugLevel,
	"info":    zapcore.InfoLevel,
	"warn":    zapcore.WarnLevel,
	"warning": zapcore.WarnLevel,
	"error":   zapcore.ErrorLevel,
}

// Initialize replaces the no-op logger with a tee of human-readable console
// output and rotated JSON files. Unknown levels fall back to info.
func Initialize(logLevel string, logFile string) error {
	if logFile == "" {
		logFile = "server.log"
	}
	if logLevel == "" {
		logLevel = "info"
	}

	level, ok := levelNames[strings.ToLower(logLevel)]
	if !ok {
		level = zapcore.InfoLevel
	}

	rotated := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100, // MB per file
		MaxBackups: 5,
		MaxAge:     7, // days
		Compress:   true,
	})

	jsonCfg := zap.NewProductionEncoderConfig()
	jsonCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(os.Stdout),
			level,
		),
		zapcore.NewCore(zapcore.NewJSONEncoder(jsonCfg), rotated, level),
	)

	Log = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	SugaredLog = Log.Sugar()

	Log.Info("Logger initialized",
		zap.String("level", logLevel),
		zap.String("file", logFile),
	)
	return nil
}

// Close flushes buffered entries. Call it on the way out of main.
func Close() error {
	if Log != nil {
		return Log.Sync()
	}
	return nil
}

// InfoWithFields logs at info level with structured fields.
func InfoWithFields(msg string, fields ...zap.Field) {
	Log.Info(msg, fields...)
}

// Warn logs at warn level with structured fields.
func Warn(msg string, fields ...zap.Field) {
	Log.Warn(msg, fields...)
}

// WarnWithFields logs a warning, attaching err when non-nil.
func WarnWithFields(msg string, err error) {
	if err != nil {
		Log.Warn(msg, zap.Error(err))
		return
	}
	Log.Warn(msg)
}

// ErrorWithFields logs an error, attaching err when non-nil.
func ErrorWithFields(msg string, err error) {
	if err != nil {
		Log.Error(msg, zap.Error(err))
		return
	}
	Log.Error(msg)
}

// Error logs at error level with structured fields.
func Error(msg string, fields ...zap.Field) {
	Log.Error(msg, fields...)
}

// FatalWithFields logs and exits.
func FatalWithFields(msg string, err error) {
	if err != nil {
		Log.Fatal(msg, zap.Error(err))
		return
	}
	Log.Fatal(msg)
}

// Field constructors for the keys used across handlers and middleware, so
// log queries see one consistent name per concept.

func WithRequestID(requestID string) zap.Field { return zap.String("request_id", requestID) }

func WithUserID(userID string) zap.Field { return zap.String("user_id", userID) }

func WithPostID(postID string) zap.Field { return zap.String("post_id", postID) }

func WithIP(ip string) zap.Field { return zap.String("ip", ip) }

func WithStatus(status int) zap.Field { return zap.Int("status", status) }
