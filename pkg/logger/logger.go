package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/varnishstat-agent/pkg/config"
	"github.com/varnishstat-agent/pkg/goid"
)

type Logger = zap.Logger

var (
	baseLogger        *zap.Logger
	loggerInitOnce    sync.Once
	loggerInitialized bool
	mu                sync.RWMutex
)

const timeLayout = "2006-01-02 15:04:05.000 -07:00"

// Init 初始化全局日志（只执行一次）
func Init(cfg config.ZapLogConfig) (*zap.Logger, error) {
	var err error
	loggerInitOnce.Do(func() {
		var l *zap.Logger
		l, err = New(cfg)
		if err != nil {
			return
		}
		mu.Lock()
		baseLogger = l
		loggerInitialized = true
		mu.Unlock()
		zap.ReplaceGlobals(l)
	})
	if err != nil {
		return nil, err
	}
	return GetLogger(), nil
}

// New 按配置构建 logger：控制台 core + （可选）滚动 JSON 文件 core
func New(cfg config.ZapLogConfig) (*zap.Logger, error) {
	var console io.Writer = os.Stdout
	if cfg.Stderr {
		console = os.Stderr
	}
	return NewWithWriter(cfg, console)
}

// NewWithWriter 同 New，控制台输出写到指定 writer
func NewWithWriter(cfg config.ZapLogConfig, console io.Writer) (*zap.Logger, error) {
	level := parseLevel(cfg.Level)

	var consoleEncoder zapcore.Encoder
	if cfg.Format == "console" {
		consoleEncoder = zapcore.NewConsoleEncoder(consoleEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(jsonEncoderConfig())
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(console), level),
	}

	if cfg.File {
		if err := os.MkdirAll(cfg.Path, 0755); err != nil {
			return nil, fmt.Errorf("create log dir %s: %w", cfg.Path, err)
		}

		writer, err := rotatelogs.New(
			filepath.Join(cfg.Path, "varnishstat-agent-%Y%m%d.log"),
			rotatelogs.WithMaxAge(time.Duration(cfg.MaxAge)*24*time.Hour),
			rotatelogs.WithRotationTime(24*time.Hour),
			rotatelogs.WithRotationSize(int64(cfg.MaxSize)*1024*1024),
		)
		if err != nil {
			return nil, fmt.Errorf("open rotate log: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonEncoderConfig()), zapcore.AddSync(writer), level))
	}

	return zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "dbg", "debug":
		return zapcore.DebugLevel
	case "war", "warn":
		return zapcore.WarnLevel
	case "err", "error":
		return zapcore.ErrorLevel
	case "dpanic":
		return zapcore.DPanicLevel
	case "pan", "panic":
		return zapcore.PanicLevel
	case "fat", "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	// 控制台彩色时间
	customTimeEncoderConsole := func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(fmt.Sprintf("\033[34m%s\033[0m", t.Format(timeLayout)))
	}

	coloredLevelEncoder := func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		var levelStr string
		switch level {
		case zapcore.DebugLevel:
			levelStr = "\033[36mDEBUG\033[0m"
		case zapcore.InfoLevel:
			levelStr = "\033[32mINFO \033[0m"
		case zapcore.WarnLevel:
			levelStr = "\033[33mWARN \033[0m"
		case zapcore.ErrorLevel:
			levelStr = "\033[31mERROR\033[0m"
		case zapcore.DPanicLevel:
			levelStr = "\033[35mDPANIC\033[0m"
		case zapcore.PanicLevel:
			levelStr = "\033[35mPANIC\033[0m"
		case zapcore.FatalLevel:
			levelStr = "\033[35mFATAL\033[0m"
		default:
			levelStr = "UNK  "
		}
		enc.AppendString(levelStr)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.ConsoleSeparator = " "
	encCfg.EncodeLevel = coloredLevelEncoder
	encCfg.EncodeTime = customTimeEncoderConsole
	// Caller 两级路径
	encCfg.EncodeCaller = func(c zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		rel := filepath.Join(filepath.Base(filepath.Dir(c.File)), filepath.Base(c.File))
		enc.AppendString(fmt.Sprintf("%s:%d", rel, c.Line))
	}
	return encCfg
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format(timeLayout))
	}
	encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	return encCfg
}

func log(level zapcore.Level, msg string, fields ...zapcore.Field) {
	l := GetLogger().WithOptions(zap.AddCallerSkip(2))
	if ce := l.Check(level, msg); ce != nil {
		ce.Write(append(fields, zap.String("goid", goid.String()))...)
	}
}

func Debug(msg string, fields ...zapcore.Field) { log(zap.DebugLevel, msg, fields...) }
func Info(msg string, fields ...zapcore.Field)  { log(zap.InfoLevel, msg, fields...) }
func Warn(msg string, fields ...zapcore.Field)  { log(zap.WarnLevel, msg, fields...) }
func Error(msg string, fields ...zapcore.Field) { log(zap.ErrorLevel, msg, fields...) }

func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if !loggerInitialized {
		return nil
	}
	return baseLogger.Sync()
}

// GetLogger 返回全局 logger，未初始化时返回 zap 全局 logger（默认 no-op）
func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if !loggerInitialized {
		return zap.L()
	}
	return baseLogger
}
