// Package messaging 实现基于 Kafka 的领域事件发布
package messaging

import (
	"context"

	"github.com/wyfcoding/clientonboarding/internal/onboarding/domain"
	"github.com/wyfcoding/clientonboarding/pkg/mq"
)

// KafkaEventPublisher 基于 Kafka 的事件发布器，消息按申请 ID 分区
type KafkaEventPublisher struct {
	producer *mq.KafkaProducer
}

// NewKafkaEventPublisher 创建事件发布器
func NewKafkaEventPublisher(producer *mq.KafkaProducer) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer}
}

// PublishRequestCreated 发布申请创建事件
func (p *KafkaEventPublisher) PublishRequestCreated(ctx context.Context, event *domain.RequestCreatedEvent) error {
	return p.producer.SendMessage(ctx, domain.TopicRequestCreated, event.RequestID, event)
}

// PublishRequestRouted 发布申请分派事件
func (p *KafkaEventPublisher) PublishRequestRouted(ctx context.Context, event *domain.RequestRoutedEvent) error {
	return p.producer.SendMessage(ctx, domain.TopicRequestRouted, event.RequestID, event)
}

// PublishRequestStatusChanged 发布状态变更事件
func (p *KafkaEventPublisher) PublishRequestStatusChanged(ctx context.Context, event *domain.RequestStatusChangedEvent) error {
	return p.producer.SendMessage(ctx, domain.TopicRequestStatusChanged, event.RequestID, event)
}
