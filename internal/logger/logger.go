package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig 日志配置接口，由 config.LogConfig 实现
type LogConfig interface {
	GetLevel() string
	GetOutput() string
	GetFile() string
}

// Logger printf 风格的 zap 日志器
type Logger struct {
	zap *zap.Logger
}

var defaultLogger = New(zapcore.InfoLevel, zapcore.Lock(os.Stdout))

// New 创建输出到 ws 的日志器，debug 级别使用控制台格式，其余使用 JSON
func New(level zapcore.Level, ws zapcore.WriteSyncer) *Logger {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.MessageKey = "message"
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	ec.EncodeCaller = zapcore.ShortCallerEncoder
	ec.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006-01-02 15:04:05"))
	}

	encoder := zapcore.NewJSONEncoder(ec)
	if level == zapcore.DebugLevel {
		encoder = zapcore.NewConsoleEncoder(ec)
	}
	core := zapcore.NewCore(encoder, ws, zap.NewAtomicLevelAt(level))
	// 跳过 Logger 方法和包级函数两层
	return &Logger{zap: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2))}
}

// rotating 按大小轮转的日志文件
func rotating(file string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   file,
		MaxSize:    100, // MB
		MaxBackups: 3,
		MaxAge:     28, // 天
		Compress:   true,
	})
}

// Init 根据配置替换默认日志器
func Init(cfg LogConfig) error {
	level := ParseLevel(cfg.GetLevel())

	var ws zapcore.WriteSyncer
	switch strings.ToLower(cfg.GetOutput()) {
	case "", "stdout":
		ws = zapcore.Lock(os.Stdout)
	case "stderr":
		ws = zapcore.Lock(os.Stderr)
	case "file":
		if cfg.GetFile() == "" {
			return fmt.Errorf("log file path is empty")
		}
		ws = rotating(cfg.GetFile())
	default:
		return fmt.Errorf("unknown log output %q", cfg.GetOutput())
	}

	defaultLogger.Sync()
	defaultLogger = New(level, ws)
	return nil
}

// ParseLevel 解析日志级别，无法识别时为 info
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
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

func (l *Logger) Debug(format string, args ...interface{}) {
	l.zap.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.zap.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.zap.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.zap.Error(fmt.Sprintf(format, args...))
}

// Fatal 记录后退出进程
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.zap.Fatal(fmt.Sprintf(format, args...))
}

// Sync 刷新缓冲
func (l *Logger) Sync() {
	_ = l.zap.Sync()
}

func Debug(format string, args ...interface{}) { defaultLogger.Debug(format, args...) }

func Info(format string, args ...interface{}) { defaultLogger.Info(format, args...) }

func Warn(format string, args ...interface{}) { defaultLogger.Warn(format, args...) }

func Error(format string, args ...interface{}) { defaultLogger.Error(format, args...) }

func Fatal(format string, args ...interface{}) { defaultLogger.Fatal(format, args...) }

func Sync() { defaultLogger.Sync() }
