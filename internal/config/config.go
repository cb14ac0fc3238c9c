package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	// IngestModeBestEffort 根记录之外的写入失败只记录日志，不影响整体结果
	IngestModeBestEffort = "best-effort"
	// IngestModeAtomic 整个写入计划在一个事务中执行，任意失败全部回滚
	IngestModeAtomic = "atomic"
)

// AppConfig 应用配置（启动时构建一次，之后只读）
type AppConfig struct {
	Server    ServerConfig    `json:"Server"`
	Security  SecurityConfig  `json:"Security"`
	Database  DatabaseConfig  `json:"Database"`
	Ingest    IngestConfig    `json:"Ingest"`
	Log       LogConfig       `json:"Log"`
	Retention RetentionConfig `json:"Retention"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr      string `json:"Addr"`      // 监听地址
	BodyLimit string `json:"BodyLimit"` // 请求体大小限制（如 4M）
}

// SecurityConfig 服务端密钥配置
type SecurityConfig struct {
	ApiKey  string `json:"ApiKey"`  // 全局 API 密钥（x-api-key）
	ReadKey string `json:"ReadKey"` // 批量读取密钥（x-read-key）
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type                   string `json:"Type"` // postgres / sqlite
	DSN                    string `json:"DSN"`
	MaxOpenConns           int    `json:"MaxOpenConns"`
	MaxIdleConns           int    `json:"MaxIdleConns"`
	ConnMaxLifetimeSeconds int    `json:"ConnMaxLifetimeSeconds"`
	ConnectRetries         int    `json:"ConnectRetries"` // 启动时连接重试次数
}

// IngestConfig 快照写入配置
type IngestConfig struct {
	Mode             string `json:"Mode"`             // best-effort / atomic
	Parallelism      int    `json:"Parallelism"`      // 同一层级内的最大并发写入数
	StatusTTLMinutes int    `json:"StatusTTLMinutes"` // 最近写入状态的缓存时间
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `json:"Level"`
	File       string `json:"File"`
	MaxSize    int    `json:"MaxSize"`
	MaxBackups int    `json:"MaxBackups"`
	MaxAge     int    `json:"MaxAge"`
	Compress   bool   `json:"Compress"`
}

// RetentionConfig 历史数据保留配置（Days 为 0 表示不清理）
type RetentionConfig struct {
	Days int    `json:"Days"`
	Cron string `json:"Cron"`
}

// Load 从配置文件和环境变量加载配置，path 为空时只读取环境变量
func Load(fs afero.Fs, path string) (*AppConfig, error) {
	v := viper.New()
	v.SetFs(fs)
	setDefaults(v)

	v.SetEnvPrefix("MONITORING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 兼容旧的环境变量名
	_ = v.BindEnv("Security.ApiKey", "MONITORING_API_KEY")
	_ = v.BindEnv("Security.ReadKey", "MONITORING_READ_KEY")
	_ = v.BindEnv("Database.DSN", "MONITORING_DATABASE_DSN")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Addr", ":8000")
	v.SetDefault("Server.BodyLimit", "4M")
	v.SetDefault("Database.Type", "postgres")
	v.SetDefault("Database.MaxOpenConns", 20)
	v.SetDefault("Database.MaxIdleConns", 5)
	v.SetDefault("Database.ConnMaxLifetimeSeconds", 1800)
	v.SetDefault("Database.ConnectRetries", 5)
	v.SetDefault("Ingest.Mode", IngestModeBestEffort)
	v.SetDefault("Ingest.Parallelism", 4)
	v.SetDefault("Ingest.StatusTTLMinutes", 60)
	v.SetDefault("Log.Level", "info")
	v.SetDefault("Log.MaxSize", 100)
	v.SetDefault("Log.MaxBackups", 7)
	v.SetDefault("Log.MaxAge", 30)
	v.SetDefault("Retention.Days", 0)
	v.SetDefault("Retention.Cron", "0 0 3 * * *")
}

// Validate 校验必填项
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Security.ApiKey == "" {
		errs = append(errs, errors.New("Security.ApiKey 不能为空"))
	}
	if c.Security.ReadKey == "" {
		errs = append(errs, errors.New("Security.ReadKey 不能为空"))
	}
	switch c.Database.Type {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("不支持的数据库类型: %s", c.Database.Type))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("Database.DSN 不能为空"))
	}
	switch c.Ingest.Mode {
	case IngestModeBestEffort, IngestModeAtomic:
	default:
		errs = append(errs, fmt.Errorf("不支持的写入模式: %s", c.Ingest.Mode))
	}
	if c.Ingest.Parallelism < 1 {
		errs = append(errs, errors.New("Ingest.Parallelism 必须大于 0"))
	}
	if c.Retention.Days < 0 {
		errs = append(errs, errors.New("Retention.Days 不能为负数"))
	}
	return errors.Join(errs...)
}
