// Package application 实现入驻申请的用例编排：创建、查询、更新、状态流转与自动分派
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/clientonboarding/internal/onboarding/domain"
	"github.com/wyfcoding/clientonboarding/pkg/logger"
	"github.com/wyfcoding/clientonboarding/pkg/metrics"
	"github.com/wyfcoding/clientonboarding/pkg/utils"
)

var (
	// ErrRequestNotFound 申请不存在
	ErrRequestNotFound = errors.New("onboarding request not found")
	// ErrInvalidStatus 非法状态值
	ErrInvalidStatus = errors.New("invalid request status")
)

// TxRunner 事务执行器，fn 内的仓储调用共享同一事务
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OnboardingService 入驻申请应用服务
type OnboardingService struct {
	tx          TxRunner
	requests    domain.RequestRepository
	history     domain.StatusHistoryRepository
	assignments domain.TeamAssignmentRepository
	events      domain.EventPublisher
	collector   metrics.MetricsCollector

	// 自动分派队列，入队失败（队列满）时丢弃并记日志
	routingQueue chan string
}

// NewOnboardingService 构造应用服务，queueSize 为自动分派队列长度
func NewOnboardingService(
	tx TxRunner,
	requests domain.RequestRepository,
	history domain.StatusHistoryRepository,
	assignments domain.TeamAssignmentRepository,
	events domain.EventPublisher,
	collector metrics.MetricsCollector,
	queueSize int,
) *OnboardingService {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &OnboardingService{
		tx:           tx,
		requests:     requests,
		history:      history,
		assignments:  assignments,
		events:       events,
		collector:    collector,
		routingQueue: make(chan string, queueSize),
	}
}

// CreateRequest 创建入驻申请：生成 ID 与参考编号、落库、发布事件并入队等待自动分派
func (s *OnboardingService) CreateRequest(ctx context.Context, cmd CreateRequestCommand) (*RequestDTO, error) {
	now := time.Now()
	request := domain.NewOnboardingRequest(
		uuid.New().String(),
		domain.NewReferenceNumber(now),
		cmd.TradingName,
		cmd.ContactName,
		cmd.ContactEmail,
		now,
	)
	request.ContactPhone = cmd.ContactPhone
	request.CompanyAddress = cmd.CompanyAddress
	request.Industry = cmd.Industry
	request.CompanySize = cmd.CompanySize
	request.RequestType = cmd.RequestType
	request.Region = cmd.Region
	request.Notes = cmd.Notes

	if err := s.requests.Save(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to save onboarding request: %w", err)
	}

	if s.collector != nil {
		s.collector.RecordRequestCreated()
	}

	// 事件发布尽力而为，失败不影响主流程
	if s.events != nil {
		event := &domain.RequestCreatedEvent{
			RequestID:       request.ID,
			ReferenceNumber: request.ReferenceNumber,
			TradingName:     request.TradingName,
			CreatedAt:       request.CreatedAt,
		}
		if err := s.events.PublishRequestCreated(ctx, event); err != nil {
			logger.Warn(ctx, "Failed to publish request created event", "request_id", request.ID, "error", err)
		}
	}

	s.enqueueRouting(ctx, request.ID)

	return toRequestDTO(request), nil
}

// ListRequests 按过滤条件分页查询申请
func (s *OnboardingService) ListRequests(ctx context.Context, query ListRequestsQuery) (*ListRequestsResult, error) {
	filter := domain.RequestFilter{
		Status:       domain.RequestStatus(query.Status),
		AssignedTeam: query.AssignedTeam,
		Search:       query.Search,
	}

	// 先纠正分页参数，再查询
	page := utils.NewPagination(query.Page, query.Limit, 0)

	items, total, err := s.requests.List(ctx, filter, page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list onboarding requests: %w", err)
	}

	dtos := make([]*RequestDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, toRequestDTO(item))
	}

	return &ListRequestsResult{
		Items:      dtos,
		Pagination: utils.NewPagination(query.Page, query.Limit, total),
	}, nil
}

// GetRequest 查询申请详情，含状态流转记录与团队分派记录
func (s *OnboardingService) GetRequest(ctx context.Context, id string) (*RequestDetailDTO, error) {
	request, err := s.requests.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get onboarding request: %w", err)
	}
	if request == nil {
		return nil, ErrRequestNotFound
	}

	histories, err := s.history.ListByRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}

	assignments, err := s.assignments.ListByRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list team assignments: %w", err)
	}

	detail := &RequestDetailDTO{
		RequestDTO:      *toRequestDTO(request),
		StatusHistory:   make([]*StatusHistoryDTO, 0, len(histories)),
		TeamAssignments: make([]*TeamAssignmentDTO, 0, len(assignments)),
	}
	for _, h := range histories {
		detail.StatusHistory = append(detail.StatusHistory, toStatusHistoryDTO(h))
	}
	for _, a := range assignments {
		detail.TeamAssignments = append(detail.TeamAssignments, toTeamAssignmentDTO(a))
	}

	return detail, nil
}

// UpdateRequest 更新申请资料字段，不触碰状态、完成度与参考编号
func (s *OnboardingService) UpdateRequest(ctx context.Context, id string, cmd UpdateRequestCommand) (*RequestDTO, error) {
	request, err := s.requests.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get onboarding request: %w", err)
	}
	if request == nil {
		return nil, ErrRequestNotFound
	}

	if cmd.TradingName != nil {
		request.TradingName = *cmd.TradingName
	}
	if cmd.ContactName != nil {
		request.ContactName = *cmd.ContactName
	}
	if cmd.ContactEmail != nil {
		request.ContactEmail = *cmd.ContactEmail
	}
	if cmd.ContactPhone != nil {
		request.ContactPhone = *cmd.ContactPhone
	}
	if cmd.CompanyAddress != nil {
		request.CompanyAddress = *cmd.CompanyAddress
	}
	if cmd.Industry != nil {
		request.Industry = *cmd.Industry
	}
	if cmd.CompanySize != nil {
		request.CompanySize = *cmd.CompanySize
	}
	if cmd.RequestType != nil {
		request.RequestType = *cmd.RequestType
	}
	if cmd.Region != nil {
		request.Region = *cmd.Region
	}
	if cmd.Notes != nil {
		request.Notes = *cmd.Notes
	}
	request.UpdatedAt = time.Now()

	if err := s.requests.Update(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to update onboarding request: %w", err)
	}

	return toRequestDTO(request), nil
}

// UpdateStatus 流转申请状态并记录审计，两者在同一事务内完成。
// changedBy 为空时记为 system。并发更新为后写覆盖。
func (s *OnboardingService) UpdateStatus(ctx context.Context, id string, newStatus domain.RequestStatus, changedBy, notes string) (*RequestDTO, error) {
	if !domain.IsValidStatus(newStatus) {
		return nil, ErrInvalidStatus
	}

	request, err := s.requests.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get onboarding request: %w", err)
	}
	if request == nil {
		return nil, ErrRequestNotFound
	}

	now := time.Now()
	oldStatus := request.Transition(newStatus, now)
	history := domain.NewStatusHistory(uuid.New().String(), request.ID, oldStatus, newStatus, changedBy, notes, now)

	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.requests.Update(txCtx, request); err != nil {
			return fmt.Errorf("failed to update onboarding request: %w", err)
		}
		if err := s.history.Append(txCtx, history); err != nil {
			return fmt.Errorf("failed to append status history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.collector != nil {
		s.collector.RecordStatusTransition()
	}

	if s.events != nil {
		event := &domain.RequestStatusChangedEvent{
			RequestID: request.ID,
			OldStatus: oldStatus,
			NewStatus: newStatus,
			ChangedBy: history.ChangedBy,
			ChangedAt: now,
		}
		if err := s.events.PublishRequestStatusChanged(ctx, event); err != nil {
			logger.Warn(ctx, "Failed to publish status changed event", "request_id", request.ID, "error", err)
		}
	}

	return toRequestDTO(request), nil
}

// Stats 统计申请总数、状态分布与团队分布
func (s *OnboardingService) Stats(ctx context.Context) (*StatsDTO, error) {
	stats, err := s.requests.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate request stats: %w", err)
	}

	dto := &StatsDTO{
		Total:    stats.Total,
		ByStatus: make(map[string]int64, len(stats.ByStatus)),
		ByTeam:   make(map[string]int64, len(stats.ByTeam)),
	}
	for status, count := range stats.ByStatus {
		dto.ByStatus[string(status)] = count
	}
	for team, count := range stats.ByTeam {
		dto.ByTeam[team] = count
	}

	return dto, nil
}

// enqueueRouting 将申请放入自动分派队列，不阻塞调用方
func (s *OnboardingService) enqueueRouting(ctx context.Context, requestID string) {
	select {
	case s.routingQueue <- requestID:
		if s.collector != nil {
			s.collector.UpdateRoutingQueueDepth(len(s.routingQueue))
		}
	default:
		logger.Warn(ctx, "Routing queue full, request will stay unrouted", "request_id", requestID)
		if s.collector != nil {
			s.collector.RecordRoutingFailure()
		}
	}
}

// routeRequest 自动分派：决定团队、流转 New→Under Review、写审计与分派记录，同一事务内完成。
// 已分派或不存在的申请跳过。失败只记日志，申请保持原状态。
func (s *OnboardingService) routeRequest(ctx context.Context, requestID string) error {
	request, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return fmt.Errorf("failed to get onboarding request: %w", err)
	}
	if request == nil {
		logger.Warn(ctx, "Routing skipped, request not found", "request_id", requestID)
		return nil
	}
	if request.IsAssigned() {
		logger.Info(ctx, "Routing skipped, request already assigned",
			"request_id", requestID, "assigned_team", request.AssignedTeam)
		return nil
	}

	team := domain.RouteTeam(request)
	now := time.Now()

	request.AssignedTeam = team
	oldStatus := request.Transition(domain.StatusUnderReview, now)

	history := domain.NewStatusHistory(
		uuid.New().String(), request.ID, oldStatus, domain.StatusUnderReview,
		domain.SystemActor, fmt.Sprintf("Automatically routed to %s team", team), now,
	)
	assignment := domain.NewTeamAssignment(uuid.New().String(), request.ID, team, now)

	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.requests.Update(txCtx, request); err != nil {
			return fmt.Errorf("failed to update onboarding request: %w", err)
		}
		if err := s.history.Append(txCtx, history); err != nil {
			return fmt.Errorf("failed to append status history: %w", err)
		}
		if err := s.assignments.Save(txCtx, assignment); err != nil {
			return fmt.Errorf("failed to save team assignment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.collector != nil {
		s.collector.RecordRequestRouted()
		s.collector.RecordStatusTransition()
	}

	if s.events != nil {
		event := &domain.RequestRoutedEvent{
			RequestID:    request.ID,
			AssignedTeam: team,
			RoutedAt:     now,
		}
		if err := s.events.PublishRequestRouted(ctx, event); err != nil {
			logger.Warn(ctx, "Failed to publish request routed event", "request_id", request.ID, "error", err)
		}
	}

	logger.Info(ctx, "Request routed", "request_id", request.ID, "assigned_team", team)
	return nil
}
