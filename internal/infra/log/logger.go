package log

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger writes structured lines to the log file; console output is limited to success/error lines.
// Both stay no-op until Init is called, which keeps tests quiet.
var Logger = zap.NewNop()
var consoleLogger = zap.NewNop()
var mu sync.Mutex
var fileSink *lumberjack.Logger

// Config controls where and how much is logged
type Config struct {
	File       string // log file path, empty disables the file sink
	Level      string // debug, info, warn, error
	Console    bool
	MaxSizeMB  int
	MaxBackups int
}

// Init builds the file and console loggers. Safe to call again, later calls replace earlier loggers.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}

		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 50
		}
		if fileSink != nil {
			fileSink.Close()
		}
		fileSink = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize,
			MaxBackups: cfg.MaxBackups,
		}

		fileConfig := zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
			EncodeDuration: zapcore.MillisDurationEncoder,
		}
		Logger = zap.New(zapcore.NewCore(
			zapcore.NewJSONEncoder(fileConfig),
			zapcore.AddSync(fileSink),
			level,
		))
	} else {
		Logger = zap.NewNop()
	}

	if cfg.Console {
		consoleConfig := zap.NewDevelopmentConfig()
		consoleConfig.EncoderConfig.EncodeLevel = customLevelEncoder
		consoleConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		consoleConfig.EncoderConfig.EncodeCaller = nil
		consoleConfig.Development = false
		consoleConfig.DisableStacktrace = true
		consoleConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

		built, err := consoleConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to build console logger: %w", err)
		}
		consoleLogger = built
	} else {
		consoleLogger = zap.NewNop()
	}

	return nil
}

// Sync flushes both loggers
func Sync() {
	_ = Logger.Sync()
	_ = consoleLogger.Sync()
}

// GenerateRequestID returns a short random id for correlating request/response lines
func GenerateRequestID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// LogRequest HTTP request (file only)
func LogRequest(requestID, method, endpoint string, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("endpoint", endpoint),
	}, fields...)
	Logger.Info("HTTP request", allFields...)
}

// LogResponse HTTP response. Non-2xx and transport failures (status 0) also reach the console.
func LogResponse(requestID string, statusCode int, durationMs int64, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.String("request_id", requestID),
		zap.Int("status_code", statusCode),
		zap.Int64("duration_ms", durationMs),
	}, fields...)

	if statusCode >= 200 && statusCode < 300 {
		Logger.Info("HTTP response", allFields...)
		return
	}

	Logger.Error("HTTP response", allFields...)
	if endpoint := fieldString(fields, "endpoint"); endpoint != "" {
		consoleLogger.Error(fmt.Sprintf("✗ HTTP request failed [%d] %s", statusCode, endpoint))
	} else {
		consoleLogger.Error(fmt.Sprintf("✗ HTTP request failed [%d]", statusCode))
	}
}

const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorWhite   = "\033[37m"
)

func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(colorCyan + "DEBUG" + colorReset)
	case zapcore.InfoLevel:
		enc.AppendString(colorGreen + "INFO" + colorReset)
	case zapcore.WarnLevel:
		enc.AppendString(colorYellow + "WARN" + colorReset)
	case zapcore.ErrorLevel:
		enc.AppendString(colorRed + "ERROR" + colorReset)
	case zapcore.FatalLevel, zapcore.PanicLevel:
		enc.AppendString(colorRed + level.CapitalString() + colorReset)
	default:
		enc.AppendString(colorWhite + level.String() + colorReset)
	}
}

// LogInfo writes to the file only
func LogInfo(message string, fields ...zap.Field) {
	Logger.Info(message, fields...)
}

// LogStatus writes to the file and prints the message on the console
func LogStatus(message string, fields ...zap.Field) {
	Logger.Info(message, fields...)
	consoleLogger.Info(message)
}

// LogCycle marks sweep boundaries on the console
func LogCycle(message string, fields ...zap.Field) {
	Logger.Info(message, fields...)
	consoleLogger.Info(colorMagenta + "=== " + message + " ===" + colorReset)
}

// LogSuccess (file and console)
func LogSuccess(message string, fields ...zap.Field) {
	Logger.Info(message, fields...)

	if durationMs := extractDuration(fields); durationMs > 0 {
		consoleLogger.Info(fmt.Sprintf("✓ %s (%dms)", message, durationMs))
	} else {
		consoleLogger.Info("✓ " + message)
	}
}

// LogError (file and console)
func LogError(message string, fields ...zap.Field) {
	Logger.Error(message, fields...)

	if errText := fieldError(fields); errText != "" {
		consoleLogger.Error(fmt.Sprintf("✗ %s: %s", message, errText))
	} else {
		consoleLogger.Error("✗ " + message)
	}
}

// LogWarn writes to the file only
func LogWarn(message string, fields ...zap.Field) {
	Logger.Warn(message, fields...)
}

// LogDebug writes to the file only
func LogDebug(message string, fields ...zap.Field) {
	Logger.Debug(message, fields...)
}

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`Bearer\s+[^"\s]+(\s+[^"\s]+){0,3}`),
	regexp.MustCompile(`(?i)"(auth_token|signature|signed_nonce)"\s*:\s*"[^"]*"`),
	regexp.MustCompile(`\b(0x)?[0-9a-fA-F]{64}\b`),
}

// Redact masks bearer credentials, auth tokens, signatures and 32-byte hex secrets in s
func Redact(s string) string {
	result := s
	for _, pattern := range secretPatterns {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}

func extractDuration(fields []zap.Field) int64 {
	for _, field := range fields {
		if field.Key == "duration_ms" && field.Type == zapcore.Int64Type {
			return field.Integer
		}
	}
	return 0
}

func fieldString(fields []zap.Field, key string) string {
	for _, field := range fields {
		if field.Key == key && field.Type == zapcore.StringType {
			return field.String
		}
	}
	return ""
}

func fieldError(fields []zap.Field) string {
	for _, field := range fields {
		if field.Type == zapcore.ErrorType && field.Interface != nil {
			if err, ok := field.Interface.(error); ok {
				return err.Error()
			}
		}
	}
	return ""
}
