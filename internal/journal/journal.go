// Package journal records the outcome of each registration run. The journal
// sits outside the transaction lifecycle: a failed write never changes what
// happened on chain.
package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	xerrors "aptos-playground/internal/errors"
)

// Entry 描述一次注册运行的结果。
type Entry struct {
	RunID          string    `json:"run_id"`
	Network        string    `json:"network"`
	Sender         string    `json:"sender"`
	CoinType       string    `json:"coin_type"`
	TxnHash        string    `json:"txn_hash,omitempty"`
	SequenceNumber uint64    `json:"sequence_number"`
	ChainID        uint8     `json:"chain_id"`
	GasUnitPrice   uint64    `json:"gas_unit_price"`
	MaxGasAmount   uint64    `json:"max_gas_amount"`
	Status         string    `json:"status"`
	VMStatus       string    `json:"vm_status,omitempty"`
	LedgerVersion  uint64    `json:"ledger_version,omitempty"`
	ErrorCode      string    `json:"error_code,omitempty"`
	Error          string    `json:"error,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Sink 抽象结果日志的写入端。
type Sink interface {
	Record(ctx context.Context, entry Entry) error
	Close() error
}

// NewRunID 生成运行标识。
func NewRunID() string {
	return uuid.NewString()
}

// Driver names accepted by Open.
const (
	DriverNone     = "none"
	DriverFile     = "file"
	DriverMySQL    = "mysql"
	DriverRedis    = "redis"
	DriverRabbitMQ = "rabbitmq"
)

// Config 汇总各驱动的连接参数。
type Config struct {
	Driver   string         `json:"driver"`
	File     FileConfig     `json:"file"`
	MySQL    MySQLConfig    `json:"mysql"`
	Redis    RedisConfig    `json:"redis"`
	RabbitMQ RabbitMQConfig `json:"rabbitmq"`
}

// Open 根据配置创建结果日志。
func Open(ctx context.Context, cfg Config) (Sink, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	var (
		sink Sink
		err  error
	)
	switch driver {
	case "", DriverNone:
		return Nop{}, nil
	case DriverFile:
		sink, err = NewFileSink(cfg.File)
	case DriverMySQL:
		sink, err = NewMySQLSink(ctx, cfg.MySQL)
	case DriverRedis:
		sink, err = NewRedisSink(ctx, cfg.Redis)
	case DriverRabbitMQ:
		sink, err = NewRabbitMQSink(cfg.RabbitMQ)
	default:
		return nil, xerrors.New(xerrors.CodeConfig, fmt.Sprintf("不支持的结果日志驱动: %s", cfg.Driver), xerrors.WithOperation("open journal"))
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeJournal, err, fmt.Sprintf("初始化 %s 结果日志失败", driver), xerrors.WithOperation("open journal"))
	}
	return sink, nil
}

// Nop 丢弃所有记录。
type Nop struct{}

// Record implements Sink.
func (Nop) Record(context.Context, Entry) error { return nil }

// Close implements Sink.
func (Nop) Close() error { return nil }
