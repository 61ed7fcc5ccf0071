package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ILogger interface {
	Debug(module, message string, details map[string]interface{})
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
	Sync() error
	// With returns a logger whose entries all carry the given fields.
	With(fields map[string]interface{}) ILogger
}

type ZapLogger struct {
	logger   *zap.Logger
	filePath string
}

// NewNopLogger discards everything. Used by tests and optional components.
func NewNopLogger() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop()}
}

// newFileCore builds a JSON core writing to a lumberjack-rotated file at Info
// and above.
func newFileCore(logFilePath string) (zapcore.Core, zapcore.Encoder) {
	rotator := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    10, // Megabytes
		MaxBackups: 5,
		MaxAge:     30, // Days
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.LevelKey = "level"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)
	return zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotator), zap.InfoLevel), jsonEncoder
}

// NewZapLogger tees the rotated file with stdout. Development builds get the
// human readable console encoder.
func NewZapLogger(logFilePath string, isProd bool) *ZapLogger {
	fileCore, jsonEncoder := newFileCore(logFilePath)

	consoleEncoder := jsonEncoder
	if !isProd {
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	consoleCore := zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), zap.DebugLevel)

	// Skip 2 to point past the level method and log
	l := zap.New(zapcore.NewTee(fileCore, consoleCore), zap.AddCaller(), zap.AddCallerSkip(2))

	return &ZapLogger{logger: l, filePath: logFilePath}
}

// NewIsolatedLogger creates a logger that ONLY writes to the file, not console.
// Used for the bus log (WebSocket traffic) to keep the main log readable.
func NewIsolatedLogger(logFilePath string) *ZapLogger {
	fileCore, _ := newFileCore(logFilePath)
	l := zap.New(fileCore, zap.AddCaller(), zap.AddCallerSkip(2))

	return &ZapLogger{logger: l, filePath: logFilePath}
}

func (l *ZapLogger) log(level zapcore.Level, module, message string, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	fields := []zap.Field{zap.String("module", module), zap.Any("details", details)}
	if err, ok := details["error"]; ok && level >= zapcore.ErrorLevel {
		fields = append(fields, zap.Any("error_ref", err))
	}
	if ce := l.logger.Check(level, message); ce != nil {
		ce.Write(fields...)
	}
}

func (l *ZapLogger) Debug(module, message string, details map[string]interface{}) {
	l.log(zapcore.DebugLevel, module, message, details)
}

func (l *ZapLogger) Info(module, message string, details map[string]interface{}) {
	l.log(zapcore.InfoLevel, module, message, details)
}

func (l *ZapLogger) Warn(module, message string, details map[string]interface{}) {
	l.log(zapcore.WarnLevel, module, message, details)
}

func (l *ZapLogger) Error(module, message string, details map[string]interface{}) {
	l.log(zapcore.ErrorLevel, module, message, details)
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

func (l *ZapLogger) With(fields map[string]interface{}) ILogger {
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return &ZapLogger{logger: l.logger.With(zf...), filePath: l.filePath}
}

// FilePath is where the file core writes, empty for a nop logger.
func (l *ZapLogger) FilePath() string {
	return l.filePath
}
