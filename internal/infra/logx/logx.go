package logx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config 描述日志输出。
//
// 约束：日志永远不写 stdout（stdout 留给 JSON/回复文本）。
type Config struct {
	Level  string     `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string     `yaml:"format" json:"format"` // json, console
	Output string     `yaml:"output" json:"output"` // stderr, file, both
	File   FileConfig `yaml:"file" json:"file"`
}

// FileConfig 是 lumberjack 滚动文件配置。
type FileConfig struct {
	Filename   string `yaml:"filename" json:"filename"`
	MaxSize    int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxAge     int    `yaml:"max_age_days" json:"max_age_days"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// DefaultConfig 返回默认配置：warn 级别、console 格式、输出到 stderr。
func DefaultConfig() Config {
	return Config{
		Level:  "warn",
		Format: "console",
		Output: "stderr",
		File: FileConfig{
			Filename:   "logs/moviefind.log",
			MaxSize:    10,
			MaxAge:     7,
			MaxBackups: 3,
		},
	}
}

// WithDefaults 用默认值补全空字段。
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if strings.TrimSpace(c.Level) == "" {
		c.Level = d.Level
	}
	if strings.TrimSpace(c.Format) == "" {
		c.Format = d.Format
	}
	if strings.TrimSpace(c.Output) == "" {
		c.Output = d.Output
	}
	if c.File.Filename == "" {
		c.File.Filename = d.File.Filename
	}
	if c.File.MaxSize == 0 {
		c.File.MaxSize = d.File.MaxSize
	}
	if c.File.MaxAge == 0 {
		c.File.MaxAge = d.File.MaxAge
	}
	if c.File.MaxBackups == 0 {
		c.File.MaxBackups = d.File.MaxBackups
	}
	return c
}

// Validate 校验日志配置。
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(strings.ToLower(c.Level)); err != nil {
		return fmt.Errorf("log.level 非法：%q", c.Level)
	}
	if c.Format != "json" && c.Format != "console" {
		return errors.New("log.format 必须是 json 或 console")
	}
	switch c.Output {
	case "stderr":
	case "file", "both":
		if strings.TrimSpace(c.File.Filename) == "" {
			return errors.New("log.output=file/both 时 log.file.filename 不能为空")
		}
		if c.File.MaxSize <= 0 {
			return errors.New("log.file.max_size_mb 必须大于 0")
		}
		if c.File.MaxAge <= 0 {
			return errors.New("log.file.max_age_days 必须大于 0")
		}
		if c.File.MaxBackups < 0 {
			return errors.New("log.file.max_backups 不能为负数")
		}
	default:
		return errors.New("log.output 必须是 stderr、file 或 both")
	}
	return nil
}

// New 按配置构造 zap logger。
func New(cfg Config) (*zap.Logger, error) {
	return newLogger(cfg, os.Stderr)
}

// Nop 返回丢弃所有输出的 logger。
func Nop() *zap.Logger { return zap.NewNop() }

func newLogger(cfg Config, stderr io.Writer) (*zap.Logger, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, err
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      zapcore.OmitKey,
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
	var enc zapcore.Encoder
	if cfg.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	var ws []zapcore.WriteSyncer
	if cfg.Output == "stderr" || cfg.Output == "both" {
		ws = append(ws, zapcore.AddSync(stderr))
	}
	if cfg.Output == "file" || cfg.Output == "both" {
		if err := os.MkdirAll(filepath.Dir(cfg.File.Filename), 0o755); err != nil {
			return nil, fmt.Errorf("创建日志目录失败：%w", err)
		}
		ws = append(ws, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File.Filename,
			MaxSize:    cfg.File.MaxSize,
			MaxAge:     cfg.File.MaxAge,
			MaxBackups: cfg.File.MaxBackups,
			Compress:   cfg.File.Compress,
			LocalTime:  true,
		}))
	}

	core := zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(ws...), level)
	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
