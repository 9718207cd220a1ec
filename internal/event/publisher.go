package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// 事件类型
const (
	TypeProductCreated = "product.created"
	TypeProductUpdated = "product.updated"
	TypePageCompleted  = "page.completed"
)

// Event 同步事件
type Event struct {
	Type       string                 `json:"type"`
	RunID      string                 `json:"run_id"`
	SKU        string                 `json:"sku,omitempty"`
	ProductID  int64                  `json:"product_id,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Publisher 事件发布
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// ==================== Kafka ====================

// KafkaPublisher 以 SKU 为 key 写入同一分区，保证单商品事件有序
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher 创建 Kafka 发布者
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	key := evt.SKU
	if key == "" {
		key = evt.RunID
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// ==================== Nop ====================

type nopPublisher struct{}

// Nop 未配置 Kafka 时使用
func Nop() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, Event) error { return nil }
func (nopPublisher) Close() error                         { return nil }

// ==================== 内存 (测试 / 调试) ====================

// Memory 记录所有事件
type Memory struct {
	Events []Event
}

func (m *Memory) Publish(_ context.Context, evt Event) error {
	m.Events = append(m.Events, evt)
	return nil
}

func (m *Memory) Close() error { return nil }

// PublishQuietly 发布失败只记日志
func PublishQuietly(ctx context.Context, p Publisher, evt Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, evt); err != nil {
		log.Printf("[Event] 发布 %s 失败: %v", evt.Type, err)
	}
}
