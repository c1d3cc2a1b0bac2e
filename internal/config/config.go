package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	xerrors "aptos-playground/internal/errors"
	"aptos-playground/internal/journal"
	"aptos-playground/internal/move"
)

const (
	// EnvConfigPath 指定运行配置文件路径。
	EnvConfigPath = "INJOY_CONFIG"
	// DefaultConfigPath 在未设置环境变量时使用，文件可以不存在。
	DefaultConfigPath = "configs/injoy.json"
	// DefaultProfilePath 与官方 CLI 的默认位置一致。
	DefaultProfilePath = ".aptos/config.yaml"
	// DefaultProfileName 是 CLI 初始化时创建的 profile。
	DefaultProfileName = "default"
)

// Config 描述一次注册运行需要的全部参数。
type Config struct {
	Profile      ProfileConfig      `json:"profile"`
	Network      NetworkConfig      `json:"network"`
	Transaction  TransactionConfig  `json:"transaction"`
	Confirmation ConfirmationConfig `json:"confirmation"`
	Coin         CoinConfig         `json:"coin"`
	Log          LogConfig          `json:"log"`
	Journal      journal.Config     `json:"journal"`
}

// ProfileConfig 指向 CLI profile 文件。
type ProfileConfig struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// NetworkConfig 控制节点访问方式。
type NetworkConfig struct {
	// Definitions 指向可选的 networks.yaml，用于按网络名补全节点地址。
	Definitions        string `json:"definitions"`
	HTTPTimeoutSeconds int    `json:"http_timeout_seconds"`
}

// TransactionConfig 描述交易信封参数。
type TransactionConfig struct {
	MaxGasAmount      uint64 `json:"max_gas_amount"`
	ExpirationSeconds int    `json:"expiration_seconds"`
	// GasUnitPrice 为 0 时使用节点估算值。
	GasUnitPrice uint64 `json:"gas_unit_price"`
	FundAmount   uint64 `json:"fund_amount"`
	// SyncSequenceNumber 控制构建交易前是否从链上同步序列号，默认开启。
	SyncSequenceNumber *bool `json:"sync_sequence_number"`
}

// ConfirmationConfig 描述等待交易确认的策略。
type ConfirmationConfig struct {
	PollIntervalMillis int `json:"poll_interval_ms"`
	TimeoutSeconds     int `json:"timeout_seconds"`
}

// CoinConfig 描述待注册的代币类型。
type CoinConfig struct {
	// Owner 为空时使用 profile 中的账户地址。
	Owner  string `json:"owner"`
	Module string `json:"module"`
	Struct string `json:"struct"`
}

// LogConfig 控制日志输出。
type LogConfig struct {
	Level   string   `json:"level"`
	Format  string   `json:"format"`
	Outputs []string `json:"outputs"`
}

// Default 返回填充了默认值的配置。
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults("")
	return cfg
}

// LoadFromEnv 读取 INJOY_CONFIG 指定的文件。未设置时尝试默认路径，默认文件不存在则使用默认值。
func LoadFromEnv() (*Config, string, error) {
	if path := strings.TrimSpace(os.Getenv(EnvConfigPath)); path != "" {
		cfg, err := Load(path)
		return cfg, path, err
	}
	if _, err := os.Stat(DefaultConfigPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), "", nil
		}
		return nil, "", xerrors.Wrap(xerrors.CodeConfig, err, "读取配置文件失败", xerrors.WithOperation("load config"))
	}
	cfg, err := Load(DefaultConfigPath)
	return cfg, DefaultConfigPath, err
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	const op = "load config"
	if path == "" {
		return nil, xerrors.New(xerrors.CodeConfig, "配置文件路径为空", xerrors.WithOperation(op))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfig, err, "打开配置文件失败", xerrors.WithOperation(op))
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfig, err, "读取配置文件失败", xerrors.WithOperation(op))
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfig, err, "解析配置失败", xerrors.WithOperation(op))
	}

	cfg.applyDefaults(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。相对路径以配置文件所在目录为基准。
func (c *Config) applyDefaults(baseDir string) {
	if c.Profile.Path == "" {
		c.Profile.Path = DefaultProfilePath
	} else {
		c.Profile.Path = resolve(baseDir, c.Profile.Path)
	}
	if c.Profile.Name == "" {
		c.Profile.Name = DefaultProfileName
	}

	if c.Network.Definitions != "" {
		c.Network.Definitions = resolve(baseDir, c.Network.Definitions)
	}
	if c.Network.HTTPTimeoutSeconds <= 0 {
		c.Network.HTTPTimeoutSeconds = 15
	}

	if c.Transaction.MaxGasAmount == 0 {
		c.Transaction.MaxGasAmount = 10_000
	}
	if c.Transaction.ExpirationSeconds <= 0 {
		c.Transaction.ExpirationSeconds = 300
	}
	if c.Transaction.FundAmount == 0 {
		c.Transaction.FundAmount = 100_000_000
	}
	if c.Transaction.SyncSequenceNumber == nil {
		sync := true
		c.Transaction.SyncSequenceNumber = &sync
	}

	if c.Confirmation.PollIntervalMillis <= 0 {
		c.Confirmation.PollIntervalMillis = 500
	}
	if c.Confirmation.TimeoutSeconds <= 0 {
		c.Confirmation.TimeoutSeconds = 60
	}

	if c.Coin.Module == "" {
		c.Coin.Module = "injoy_coin"
	}
	if c.Coin.Struct == "" {
		c.Coin.Struct = "InJoyCoin"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Journal.Driver == "" {
		c.Journal.Driver = journal.DriverNone
	}
	if c.Journal.Driver == journal.DriverFile {
		if c.Journal.File.Path == "" {
			c.Journal.File.Path = filepath.Join(baseDir, journal.DefaultFilePath)
		} else {
			c.Journal.File.Path = resolve(baseDir, c.Journal.File.Path)
		}
	}
}

func resolve(baseDir, path string) string {
	if baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Validate 检查无法通过默认值修正的字段。
func (c *Config) Validate() error {
	invalid := func(field, reason string) error {
		return xerrors.New(xerrors.CodeConfig, fmt.Sprintf("%s %s", field, reason),
			xerrors.WithOperation("validate config"), xerrors.WithMetadata("field", field))
	}
	if _, err := move.NewIdentifier(c.Coin.Module); err != nil {
		return invalid("coin.module", "不是合法的 Move 标识符")
	}
	if _, err := move.NewIdentifier(c.Coin.Struct); err != nil {
		return invalid("coin.struct", "不是合法的 Move 标识符")
	}
	if c.Coin.Owner != "" {
		if _, err := move.ParseAddress(c.Coin.Owner); err != nil {
			return invalid("coin.owner", "不是合法的账户地址")
		}
	}
	switch c.Journal.Driver {
	case journal.DriverNone, journal.DriverFile, journal.DriverMySQL, journal.DriverRedis, journal.DriverRabbitMQ:
	default:
		return invalid("journal.driver", fmt.Sprintf("不支持 %q", c.Journal.Driver))
	}
	return nil
}

// SyncSequenceNumber 返回是否在构建交易前同步链上序列号。
func (c *Config) SyncSequenceNumber() bool {
	return c.Transaction.SyncSequenceNumber == nil || *c.Transaction.SyncSequenceNumber
}

// ExpirationWindow 返回交易有效期。
func (c *Config) ExpirationWindow() time.Duration {
	return time.Duration(c.Transaction.ExpirationSeconds) * time.Second
}

// PollInterval 返回轮询间隔。
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Confirmation.PollIntervalMillis) * time.Millisecond
}

// WaitTimeout 返回等待确认的超时时间。
func (c *Config) WaitTimeout() time.Duration {
	return time.Duration(c.Confirmation.TimeoutSeconds) * time.Second
}

// HTTPTimeout 返回单次请求的超时时间。
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Network.HTTPTimeoutSeconds) * time.Second
}

// CoinType 组合出 0x{owner}::{module}::{struct}。owner 为空时使用 fallback。
func (c *Config) CoinType(fallback move.AccountAddress) (move.TypeTag, error) {
	owner := fallback
	if c.Coin.Owner != "" {
		addr, err := move.ParseAddress(c.Coin.Owner)
		if err != nil {
			return move.TypeTag{}, xerrors.Wrap(xerrors.CodeConfig, err, "coin.owner 不是合法的账户地址", xerrors.WithOperation("resolve coin type"))
		}
		owner = addr
	}
	module, err := move.NewIdentifier(c.Coin.Module)
	if err != nil {
		return move.TypeTag{}, xerrors.Wrap(xerrors.CodeConfig, err, "coin.module 不合法", xerrors.WithOperation("resolve coin type"))
	}
	name, err := move.NewIdentifier(c.Coin.Struct)
	if err != nil {
		return move.TypeTag{}, xerrors.Wrap(xerrors.CodeConfig, err, "coin.struct 不合法", xerrors.WithOperation("resolve coin type"))
	}
	return move.NewStructTypeTag(move.StructTag{Address: owner, Module: module, Name: name}), nil
}
