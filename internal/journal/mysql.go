package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLConfig 描述 MySQL 连接参数。
type MySQLConfig struct {
	DSN                 string `json:"dsn"`
	MaxOpenConns        int    `json:"max_open_conns"`
	MaxIdleConns        int    `json:"max_idle_conns"`
	ConnMaxLifetimeSecs int    `json:"conn_max_lifetime_secs"`
}

const createRegistrationsSQL = `CREATE TABLE IF NOT EXISTS injoy_registrations (
        run_id CHAR(36) NOT NULL PRIMARY KEY,
        network VARCHAR(64) NOT NULL,
        sender CHAR(66) NOT NULL,
        coin_type VARCHAR(255) NOT NULL,
        txn_hash CHAR(66) NOT NULL DEFAULT '',
        sequence_number BIGINT UNSIGNED NOT NULL,
        chain_id TINYINT UNSIGNED NOT NULL,
        gas_unit_price BIGINT UNSIGNED NOT NULL,
        max_gas_amount BIGINT UNSIGNED NOT NULL,
        status VARCHAR(32) NOT NULL,
        vm_status TEXT NOT NULL,
        ledger_version BIGINT UNSIGNED NOT NULL,
        error_code VARCHAR(64) NOT NULL,
        error_message TEXT NOT NULL,
        started_at BIGINT NOT NULL,
        finished_at BIGINT NOT NULL,
        INDEX idx_sender (sender)
)`

const insertRegistrationSQL = `INSERT INTO injoy_registrations (
        run_id, network, sender, coin_type, txn_hash, sequence_number, chain_id, gas_unit_price,
        max_gas_amount, status, vm_status, ledger_version, error_code, error_message, started_at, finished_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// MySQLSink 将结果写入 injoy_registrations 表。
type MySQLSink struct {
	db *sql.DB
}

// NewMySQLSink 建立连接并确保表结构存在。
func NewMySQLSink(ctx context.Context, cfg MySQLConfig) (*MySQLSink, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sink, err := newMySQLSink(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return sink, nil
}

func newMySQLSink(ctx context.Context, db *sql.DB) (*MySQLSink, error) {
	if _, err := db.ExecContext(ctx, createRegistrationsSQL); err != nil {
		return nil, fmt.Errorf("创建 injoy_registrations 表失败: %w", err)
	}
	return &MySQLSink{db: db}, nil
}

func openDatabase(ctx context.Context, cfg MySQLConfig) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("MySQL DSN 不能为空")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("连接 MySQL 失败: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(4)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(2)
	}
	if cfg.ConnMaxLifetimeSecs > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeSecs) * time.Second)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("无法连接到 MySQL: %w", err)
	}
	return db, nil
}

// Record 插入一条记录。
func (m *MySQLSink) Record(ctx context.Context, entry Entry) error {
	_, err := m.db.ExecContext(ctx, insertRegistrationSQL,
		entry.RunID,
		entry.Network,
		entry.Sender,
		entry.CoinType,
		entry.TxnHash,
		entry.SequenceNumber,
		entry.ChainID,
		entry.GasUnitPrice,
		entry.MaxGasAmount,
		entry.Status,
		entry.VMStatus,
		entry.LedgerVersion,
		entry.ErrorCode,
		entry.Error,
		entry.StartedAt.UnixMilli(),
		entry.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("写入 injoy_registrations 失败: %w", err)
	}
	return nil
}

// Close 关闭数据库连接。
func (m *MySQLSink) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}
