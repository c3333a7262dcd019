package domain

import (
	"context"
	"time"
)

// 事件主题
const (
	TopicRequestCreated       = "onboarding.request.created"
	TopicRequestRouted        = "onboarding.request.routed"
	TopicRequestStatusChanged = "onboarding.request.status_changed"
)

// RequestCreatedEvent 申请创建事件
type RequestCreatedEvent struct {
	RequestID       string    `json:"requestId"`
	ReferenceNumber string    `json:"referenceNumber"`
	TradingName     string    `json:"tradingName"`
	CreatedAt       time.Time `json:"createdAt"`
}

// RequestRoutedEvent 申请分派事件
type RequestRoutedEvent struct {
	RequestID    string    `json:"requestId"`
	AssignedTeam string    `json:"assignedTeam"`
	RoutedAt     time.Time `json:"routedAt"`
}

// RequestStatusChangedEvent 申请状态变更事件
type RequestStatusChangedEvent struct {
	RequestID string        `json:"requestId"`
	OldStatus RequestStatus `json:"oldStatus"`
	NewStatus RequestStatus `json:"newStatus"`
	ChangedBy string        `json:"changedBy"`
	ChangedAt time.Time     `json:"changedAt"`
}

// EventPublisher 领域事件发布接口，实现方负责序列化与投递
type EventPublisher interface {
	PublishRequestCreated(ctx context.Context, event *RequestCreatedEvent) error
	PublishRequestRouted(ctx context.Context, event *RequestRoutedEvent) error
	PublishRequestStatusChanged(ctx context.Context, event *RequestStatusChangedEvent) error
}
