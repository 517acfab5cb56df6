package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLogDir is tried first when logging to a file; ./logs is the fallback
const DefaultLogDir = "/var/log/grain"

// Config selects level, encoding and an optional log file
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	// File is a path, "auto" for <log dir>/<component>.log, or empty for stdout only
	File      string
	Component string
	// Stderr replaces stdout as the console sink, for commands that own stdout
	Stderr bool
}

// New builds a zap logger writing to stdout (or stderr) and, when configured, a log file.
// The returned AtomicLevel changes the level of the running logger.
func New(cfg Config) (*zap.Logger, zap.AtomicLevel, error) {
	level := zap.NewAtomicLevelAt(ParseLevel(cfg.Level))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(cfg.Format, "console") {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	console := os.Stdout
	if cfg.Stderr {
		console = os.Stderr
	}
	sinks := []zapcore.WriteSyncer{zapcore.Lock(console)}
	if cfg.File != "" {
		path := cfg.File
		if path == "auto" {
			path = GetLogPath(cfg.Component)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, level, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, level, fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		sinks = append(sinks, zapcore.AddSync(f))
	}

	core := zapcore.NewCore(encoder, zap.CombineWriteSyncers(sinks...), level)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if cfg.Component != "" {
		logger = logger.Named(cfg.Component)
	}
	return logger, level, nil
}

// ParseLevel parses a log level string, defaulting to info
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// GetLogPath returns the log file path for a component
func GetLogPath(component string) string {
	if component == "" {
		component = "grain"
	}
	baseDir := DefaultLogDir
	if !isWritable(baseDir) {
		baseDir = "./logs"
	}
	return filepath.Join(baseDir, component+".log")
}

// isWritable checks if directory is writable
func isWritable(path string) bool {
	if err := os.MkdirAll(path, 0755); err != nil {
		return false
	}

	testFile := filepath.Join(path, ".write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(testFile)
	return true
}
