package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"feedback-webapp/internal/config"
	"feedback-webapp/internal/models"
	"feedback-webapp/internal/repositories"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalFileLogger  *zap.Logger
	globalAuditLogger *zap.Logger // Can be nil
	globalLoggersMu   sync.RWMutex
)

// AppLoggers holds the different logger instances for the application.
type AppLoggers struct {
	File  *zap.Logger // For general logging (console, file)
	Audit *zap.Logger // Security events persisted to SQLite (Nop when disabled)
}

// Custom level encoder function
func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + level.CapitalString() + "]")
}

// Custom level encoder function with color for console
func customColorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var colorPrefix, colorSuffix string
	switch level {
	case zapcore.DebugLevel:
		colorPrefix = "\x1b[35m" // Magenta
	case zapcore.InfoLevel:
		colorPrefix = "\x1b[32m" // Green
	case zapcore.WarnLevel:
		colorPrefix = "\x1b[33m" // Yellow
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		colorPrefix = "\x1b[31m" // Red
	}
	if colorPrefix != "" {
		colorSuffix = "\x1b[0m"
	}
	enc.AppendString(colorPrefix + "[" + level.CapitalString() + "]" + colorSuffix)
}

// CreateFileConsoleEncoderConfigs sets up the encoder configurations.
func CreateFileConsoleEncoderConfigs() (zapcore.EncoderConfig, zapcore.EncoderConfig) {
	consoleEncoderCfg := zap.NewDevelopmentEncoderConfig()
	consoleEncoderCfg.EncodeLevel = customColorLevelEncoder
	consoleEncoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEncoderCfg.EncodeCaller = zapcore.ShortCallerEncoder

	fileEncoderCfg := zap.NewProductionEncoderConfig()
	fileEncoderCfg.EncodeLevel = customLevelEncoder
	fileEncoderCfg.TimeKey = "timestamp"
	fileEncoderCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	fileEncoderCfg.EncodeCaller = zapcore.ShortCallerEncoder

	return consoleEncoderCfg, fileEncoderCfg
}

// InitializeLoggers creates the file/console application logger
// and the dedicated audit logger backed by logRepo.
func InitializeLoggers(cfg *config.Config, logRepo repositories.LogRepository, fileSyncer zapcore.WriteSyncer) (*AppLoggers, error) {
	appLoggers := &AppLoggers{}

	var fileLogLevel zapcore.Level
	if err := fileLogLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Invalid LOG_LEVEL '%s' for file/console logger, defaulting to info: %v\n", cfg.LogLevel, err)
		fileLogLevel = zapcore.InfoLevel
	}

	consoleEncoderCfg, fileEncoderCfg := CreateFileConsoleEncoderConfigs()
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderCfg), zapcore.Lock(os.Stdout), fileLogLevel)
	cores := []zapcore.Core{consoleCore}
	if fileSyncer != nil {
		// Plain text in the file too, for bracketed output.
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(fileEncoderCfg), fileSyncer, fileLogLevel))
	}

	appLoggers.File = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	appLoggers.File.Info("File/Console application logger initialized",
		zap.String("environment", cfg.AppEnv),
		zap.String("configuredLevel", cfg.LogLevel),
		zap.String("effectiveLevel", fileLogLevel.String()),
		zap.String("logFile", cfg.LogFilePath),
	)

	if cfg.AuditLogEnabled && logRepo != nil {
		var auditLevel zapcore.Level
		if err := auditLevel.UnmarshalText([]byte(cfg.AuditLogLevel)); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] Invalid AUDIT_LOG_LEVEL '%s', defaulting to info: %v\n", cfg.AuditLogLevel, err)
			auditLevel = zapcore.InfoLevel
		}
		appLoggers.Audit = zap.New(NewSQLiteCore(auditLevel, logRepo))
		appLoggers.File.Info("Audit logger initialized", zap.String("effectiveLevel", auditLevel.String()))
	} else {
		appLoggers.File.Info("Audit logger is disabled by configuration.")
		appLoggers.Audit = zap.NewNop()
	}

	return appLoggers, nil
}

// --- Custom SQLite Zap Core ---

// sqliteCore implements zapcore.Core and writes entries to SQLite via a LogRepository.
type sqliteCore struct {
	zapcore.LevelEnabler
	repo   repositories.LogRepository
	fields []zapcore.Field // Fields added via logger.With()
}

// NewSQLiteCore creates a new core for writing logs to SQLite.
func NewSQLiteCore(enab zapcore.LevelEnabler, repo repositories.LogRepository) zapcore.Core {
	return &sqliteCore{
		LevelEnabler: enab,
		repo:         repo,
	}
}

func (c *sqliteCore) With(fields []zapcore.Field) zapcore.Core {
	clone := c.clone()
	clone.fields = append(clone.fields, fields...)
	return clone
}

func (c *sqliteCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write uses MapObjectEncoder to extract and marshal custom fields.
func (c *sqliteCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	allFields := append(append([]zapcore.Field(nil), c.fields...), fields...)

	mapEncoder := zapcore.NewMapObjectEncoder()
	for _, field := range allFields {
		field.AddTo(mapEncoder)
	}

	logEntry := models.LogEntry{
		Timestamp: ent.Time,
		Level:     ent.Level.String(),
		Message:   ent.Message,
		Fields:    "{}",
	}

	if len(mapEncoder.Fields) > 0 {
		fieldBytes, err := json.Marshal(mapEncoder.Fields)
		if err == nil {
			logEntry.Fields = string(fieldBytes)
		} else {
			fmt.Fprintf(os.Stderr, "ERROR: Failed to marshal custom fields map for SQLite: %v\n", err)
			logEntry.Fields = fmt.Sprintf(`{"marshal_error": %q}`, err.Error())
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.repo.InsertSQLiteLog(ctx, logEntry); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to insert audit entry into SQLite: %v\n", err)
	}

	return nil
}

func (c *sqliteCore) Sync() error {
	return nil
}

func (c *sqliteCore) clone() *sqliteCore {
	return &sqliteCore{
		LevelEnabler: c.LevelEnabler,
		repo:         c.repo,
		fields:       append([]zapcore.Field(nil), c.fields...),
	}
}

// --- Global Logger Access ---

// SetGlobalLoggers sets the global logger instances.
func SetGlobalLoggers(fileLogger, auditLogger *zap.Logger) {
	globalLoggersMu.Lock()
	defer globalLoggersMu.Unlock()
	globalFileLogger = fileLogger
	if auditLogger != nil {
		globalAuditLogger = auditLogger
	} else {
		globalAuditLogger = zap.NewNop() // Ensure it's not nil
	}
}

// GetFileLogger returns the initialized global file/console logger.
func GetFileLogger() *zap.Logger {
	globalLoggersMu.RLock()
	l := globalFileLogger
	globalLoggersMu.RUnlock()

	if l == nil {
		fallbackLogger, _ := zap.NewProduction()
		fallbackLogger.Warn("Global file/console logger accessed before being set!")
		return fallbackLogger
	}
	return l
}

// GetAuditLogger returns the global audit logger, or a Nop logger if auditing is off.
func GetAuditLogger() *zap.Logger {
	globalLoggersMu.RLock()
	l := globalAuditLogger
	globalLoggersMu.RUnlock()

	if l == nil {
		return zap.NewNop()
	}
	return l
}
