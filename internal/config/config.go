package config

import (
	"fmt"
	"strings"

	"github.com/blues/launchpad/internal/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Log          LogConfig          `mapstructure:"log"`
	Platform     PlatformConfig     `mapstructure:"platform"`
	Confidential ConfidentialConfig `mapstructure:"confidential"`
	Issuer       IssuerConfig       `mapstructure:"issuer"`
	Task         TaskConfig         `mapstructure:"task"`
	Events       EventsConfig       `mapstructure:"events"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // 数据库类型: postgres, sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"` // sqlite 文件路径
}

// PlatformConfig 平台级配置
type PlatformConfig struct {
	Owner          string `mapstructure:"owner"`
	FeeBasisPoints uint32 `mapstructure:"fee_basis_points"` // 平台手续费(万分比)，仅记录，不扣除
	Reregistration string `mapstructure:"reregistration"`   // 重复登记策略: idempotent, reject, ignore
}

// OwnerAddress 平台管理员地址
func (p PlatformConfig) OwnerAddress() common.Address {
	return common.HexToAddress(p.Owner)
}

type ConfidentialConfig struct {
	Key string `mapstructure:"key"` // 密文封装私钥(hex)，为空时随机生成
}

// IssuerConfig 发放配置
type IssuerConfig struct {
	Mode           string `mapstructure:"mode"` // 发放方式: log, chain
	RpcUrl         string `mapstructure:"rpc_url"`
	ChainId        int64  `mapstructure:"chain_id"`
	PrivateKey     string `mapstructure:"private_key"`
	Contract       string `mapstructure:"contract"`
	AbiPath        string `mapstructure:"abi_path"`        // 可选，默认使用内置 mint ABI
	ConfirmTimeout int    `mapstructure:"confirm_timeout"` // 秒
}

type TaskConfig struct {
	FinalizeInterval int `mapstructure:"finalize_interval"` // 秒，0 表示关闭自动结束
	FinalizeBatch    int `mapstructure:"finalize_batch"`    // 每轮最多结束的发售数
	RetryInterval    int `mapstructure:"retry_interval"`    // 秒
	RetryBatch       int `mapstructure:"retry_batch"`
}

type EventsConfig struct {
	Workers int `mapstructure:"workers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, stderr, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

// GetLevel 实现 logger.LogConfig 接口
func (l LogConfig) GetLevel() string {
	return l.Level
}

// GetOutput 实现 logger.LogConfig 接口
func (l LogConfig) GetOutput() string {
	return l.Output
}

// GetFile 实现 logger.LogConfig 接口
func (l LogConfig) GetFile() string {
	return l.File
}

// Validate 校验配置
func (c *Config) Validate() error {
	if !common.IsHexAddress(c.Platform.Owner) {
		return fmt.Errorf("platform.owner %q is not a valid address", c.Platform.Owner)
	}
	if c.Platform.FeeBasisPoints > 10000 {
		return fmt.Errorf("platform.fee_basis_points %d exceeds 10000", c.Platform.FeeBasisPoints)
	}
	switch c.Platform.Reregistration {
	case "idempotent", "reject", "ignore":
	default:
		return fmt.Errorf("unknown platform.reregistration %q", c.Platform.Reregistration)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	switch c.Issuer.Mode {
	case "log":
	case "chain":
		if c.Issuer.RpcUrl == "" || !common.IsHexAddress(c.Issuer.Contract) {
			return fmt.Errorf("issuer.mode chain requires rpc_url and contract")
		}
	default:
		return fmt.Errorf("unknown issuer.mode %q", c.Issuer.Mode)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "launchpad")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "launchpad.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("platform.fee_basis_points", 0)
	v.SetDefault("platform.reregistration", "idempotent")
	v.SetDefault("issuer.mode", "log")
	v.SetDefault("issuer.confirm_timeout", 120)
	v.SetDefault("task.finalize_interval", 60)
	v.SetDefault("task.finalize_batch", 100)
	v.SetDefault("task.retry_interval", 300)
	v.SetDefault("task.retry_batch", 50)
	v.SetDefault("events.workers", 4)
}

// Load 加载配置文件与 LAUNCHPAD_* 环境变量
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/launchpad")
	setDefaults(v)

	v.SetEnvPrefix("launchpad")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		logger.Warn("Could not read config file: %v", err)
	}
	return decode(v)
}

// LoadFile 从指定文件加载配置
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
