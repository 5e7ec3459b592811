// Package config 提供 TOML 配置加载、环境变量覆盖与 schema 校验
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config 基础配置结构
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 服务版本
	Version string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// Kafka 配置
	Kafka KafkaConfig `mapstructure:"kafka"`
	// 日志配置
	Logger LoggerConfig `mapstructure:"logger"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
	// 风控配置
	Risk RiskConfig `mapstructure:"risk"`
	// 手续费配置
	Fees FeesConfig `mapstructure:"fees"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	// 监听地址
	Host string `mapstructure:"host"`
	// 监听端口
	Port int `mapstructure:"port"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	// Broker 地址列表
	Brokers []string `mapstructure:"brokers"`
	// Consumer Group ID
	GroupID string `mapstructure:"group_id"`
	// 行情快照 topic
	SnapshotTopic string `mapstructure:"snapshot_topic"`
	// 消费者超时（秒）
	SessionTimeout int `mapstructure:"session_timeout"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	// 日志级别
	Level string `mapstructure:"level"`
	// 输出格式
	Format string `mapstructure:"format"`
	// 输出目标
	Output string `mapstructure:"output"`
	// 文件路径
	FilePath string `mapstructure:"file_path"`
	// 最大文件大小（MB）
	MaxSize int `mapstructure:"max_size"`
	// 最大备份文件数
	MaxBackups int `mapstructure:"max_backups"`
	// 最大保留天数
	MaxAge int `mapstructure:"max_age"`
	// 是否压缩
	Compress bool `mapstructure:"compress"`
	// 是否输出调用者信息
	WithCaller bool `mapstructure:"with_caller"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `mapstructure:"enabled"`
	// Prometheus 监听端口
	Port int `mapstructure:"port"`
	// 指标路径
	Path string `mapstructure:"path"`
}

// RiskConfig 风控限额配置，十进制数值以字符串表示，避免浮点解析误差
type RiskConfig struct {
	// 单品种最大持仓数量
	MaxPositionSize string `mapstructure:"max_position_size"`
	// 全账户最大名义敞口
	MaxTotalExposure string `mapstructure:"max_total_exposure"`
	// 最大回撤比例（0.05 = 5%）
	MaxDrawdownPct string `mapstructure:"max_drawdown_pct"`
	// 单笔最大亏损
	MaxLossPerTrade string `mapstructure:"max_loss_per_trade"`
	// 每分钟最大下单数
	MaxOrdersPerMinute int `mapstructure:"max_orders_per_minute"`
	// 最低余额阈值
	MinBalanceThreshold string `mapstructure:"min_balance_threshold"`
	// 初始余额（回撤基准）
	InitialBalance string `mapstructure:"initial_balance"`
}

// FeesConfig 手续费率配置
type FeesConfig struct {
	// Maker 费率
	MakerRate string `mapstructure:"maker_rate"`
	// Taker 费率
	TakerRate string `mapstructure:"taker_rate"`
}

// Load 从 TOML 文件加载配置，支持环境变量覆盖
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 设置配置文件
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 设置环境变量前缀
	v.SetEnvPrefix("APP")
	// 自动绑定环境变量（使用 _ 替代 .）
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 验证配置
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults 从 TOML 文件加载配置，文件不存在时退回默认值
func LoadWithDefaults(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	// 读取配置文件（如果不存在则忽略）
	_ = v.ReadInConfig()

	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.Risk.MaxOrdersPerMinute <= 0 {
		return fmt.Errorf("risk.max_orders_per_minute must be positive")
	}
	for key, value := range map[string]string{
		"risk.max_position_size":     c.Risk.MaxPositionSize,
		"risk.max_total_exposure":    c.Risk.MaxTotalExposure,
		"risk.max_drawdown_pct":      c.Risk.MaxDrawdownPct,
		"risk.max_loss_per_trade":    c.Risk.MaxLossPerTrade,
		"risk.min_balance_threshold": c.Risk.MinBalanceThreshold,
		"risk.initial_balance":       c.Risk.InitialBalance,
		"fees.maker_rate":            c.Fees.MakerRate,
		"fees.taker_rate":            c.Fees.TakerRate,
	} {
		if value == "" {
			return fmt.Errorf("%s is required", key)
		}
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)

	v.SetDefault("kafka.group_id", "riskgateway")
	v.SetDefault("kafka.snapshot_topic", "marketdata.orderbook.snapshot")
	v.SetDefault("kafka.session_timeout", 10)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/app.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("risk.max_position_size", "1.0")
	v.SetDefault("risk.max_total_exposure", "100000")
	v.SetDefault("risk.max_drawdown_pct", "0.05")
	v.SetDefault("risk.max_loss_per_trade", "500")
	v.SetDefault("risk.max_orders_per_minute", 60)
	v.SetDefault("risk.min_balance_threshold", "1000")
	v.SetDefault("risk.initial_balance", "100000")

	v.SetDefault("fees.maker_rate", "0.001")
	v.SetDefault("fees.taker_rate", "0.001")
}

// GetEnv 获取环境变量，支持默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
