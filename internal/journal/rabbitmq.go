package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConfig 描述 RabbitMQ 投递参数。
type RabbitMQConfig struct {
	URL     string `json:"url"`
	Queue   string `json:"queue"`
	Durable bool   `json:"durable"`
}

// RabbitMQSink 将结果以 JSON 消息发布到队列。
type RabbitMQSink struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	queue   string
	durable bool
}

// NewRabbitMQSink 建立连接并声明队列。
func NewRabbitMQSink(cfg RabbitMQConfig) (*RabbitMQSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("RabbitMQ URL 不能为空")
	}
	queue := cfg.Queue
	if queue == "" {
		queue = "injoy.registrations"
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("连接 RabbitMQ 失败: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建 RabbitMQ channel 失败: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, cfg.Durable, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("声明 RabbitMQ 队列失败: %w", err)
	}
	return &RabbitMQSink{conn: conn, ch: ch, queue: queue, durable: cfg.Durable}, nil
}

// Record 发布一条记录。
func (q *RabbitMQSink) Record(ctx context.Context, entry Entry) error {
	if q == nil || q.ch == nil {
		return errors.New("RabbitMQ 结果日志未初始化")
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("序列化记录失败: %w", err)
	}
	deliveryMode := amqp.Transient
	if q.durable {
		deliveryMode = amqp.Persistent
	}
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: deliveryMode,
		MessageId:    entry.RunID,
		Timestamp:    entry.FinishedAt,
		Type:         "injoy.registration",
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("RabbitMQ 发布记录失败: %w", err)
	}
	return nil
}

// Close 关闭 RabbitMQ 连接。
func (q *RabbitMQSink) Close() error {
	if q == nil {
		return nil
	}
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
