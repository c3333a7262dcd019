package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/clientonboarding/internal/onboarding/domain"
	pkgdb "github.com/wyfcoding/clientonboarding/pkg/db"
	"gorm.io/gorm"
)

// conn 返回 context 中的事务句柄，没有事务时回退到普通连接
func conn(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx := pkgdb.TxFromContext(ctx); tx != nil {
		return tx
	}
	return fallback.WithContext(ctx)
}

// requestRepository 申请仓储实现
type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository 创建申请仓储
func NewRequestRepository(db *gorm.DB) domain.RequestRepository {
	return &requestRepository{db: db}
}

// Save 持久化新申请
func (r *requestRepository) Save(ctx context.Context, request *domain.OnboardingRequest) error {
	return conn(ctx, r.db).Create(toRequestModel(request)).Error
}

// Update 按 request_id 更新申请
func (r *requestRepository) Update(ctx context.Context, request *domain.OnboardingRequest) error {
	result := conn(ctx, r.db).Model(&RequestModel{}).
		Where("request_id = ?", request.ID).
		Updates(map[string]any{
			"trading_name":          request.TradingName,
			"contact_name":          request.ContactName,
			"contact_email":         request.ContactEmail,
			"contact_phone":         request.ContactPhone,
			"company_address":       request.CompanyAddress,
			"industry":              string(request.Industry),
			"company_size":          string(request.CompanySize),
			"request_type":          string(request.RequestType),
			"region":                string(request.Region),
			"status":                string(request.Status),
			"completion_percentage": request.CompletionPercentage,
			"assigned_team":         request.AssignedTeam,
			"notes":                 request.Notes,
			"updated_at":            request.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("onboarding request %s not persisted", request.ID)
	}
	return nil
}

// Get 按 ID 查询申请，不存在时返回 (nil, nil)
func (r *requestRepository) Get(ctx context.Context, id string) (*domain.OnboardingRequest, error) {
	var model RequestModel
	err := conn(ctx, r.db).Where("request_id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toRequestEntity(&model), nil
}

// List 按过滤条件分页查询，按创建时间倒序
func (r *requestRepository) List(ctx context.Context, filter domain.RequestFilter, limit, offset int) ([]*domain.OnboardingRequest, int64, error) {
	query := conn(ctx, r.db).Model(&RequestModel{})

	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.AssignedTeam != "" {
		query = query.Where("assigned_team = ?", filter.AssignedTeam)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(
			"LOWER(trading_name) LIKE LOWER(?) OR LOWER(contact_name) LIKE LOWER(?) OR LOWER(contact_email) LIKE LOWER(?) OR LOWER(reference_number) LIKE LOWER(?)",
			pattern, pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []*RequestModel
	// 相同创建时刻按主键定序，保证翻页不重不漏
	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	requests := make([]*domain.OnboardingRequest, 0, len(models))
	for _, model := range models {
		requests = append(requests, toRequestEntity(model))
	}
	return requests, total, nil
}

// statusCount GROUP BY 查询结果行
type statusCount struct {
	Key   string `gorm:"column:group_key"`
	Count int64  `gorm:"column:count"`
}

// Stats 统计总数、状态分布与团队分布，未分派申请归入 Unassigned 桶
func (r *requestRepository) Stats(ctx context.Context) (*domain.RequestStats, error) {
	db := conn(ctx, r.db)

	var total int64
	if err := db.Model(&RequestModel{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var byStatus []statusCount
	err := db.Model(&RequestModel{}).
		Select("status AS group_key, COUNT(*) AS count").
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		return nil, err
	}

	var byTeam []statusCount
	err = db.Model(&RequestModel{}).
		Select("assigned_team AS group_key, COUNT(*) AS count").
		Where("assigned_team <> ''").
		Group("assigned_team").
		Scan(&byTeam).Error
	if err != nil {
		return nil, err
	}

	var unassigned int64
	err = db.Model(&RequestModel{}).
		Where("assigned_team = ''").
		Count(&unassigned).Error
	if err != nil {
		return nil, err
	}

	stats := &domain.RequestStats{
		Total:    total,
		ByStatus: make(map[domain.RequestStatus]int64, len(byStatus)),
		ByTeam:   make(map[string]int64, len(byTeam)+1),
	}
	for _, row := range byStatus {
		stats.ByStatus[domain.RequestStatus(row.Key)] = row.Count
	}
	for _, row := range byTeam {
		stats.ByTeam[row.Key] = row.Count
	}
	if unassigned > 0 {
		stats.ByTeam[domain.TeamUnassignedKey] = unassigned
	}
	return stats, nil
}

// statusHistoryRepository 状态流转记录仓储实现
type statusHistoryRepository struct {
	db *gorm.DB
}

// NewStatusHistoryRepository 创建状态流转记录仓储
func NewStatusHistoryRepository(db *gorm.DB) domain.StatusHistoryRepository {
	return &statusHistoryRepository{db: db}
}

// Append 追加一条流转记录
func (r *statusHistoryRepository) Append(ctx context.Context, history *domain.StatusHistory) error {
	return conn(ctx, r.db).Create(toHistoryModel(history)).Error
}

// ListByRequest 按申请 ID 查询流转记录，按变更时间倒序
func (r *statusHistoryRepository) ListByRequest(ctx context.Context, requestID string) ([]*domain.StatusHistory, error) {
	var models []*StatusHistoryModel
	err := conn(ctx, r.db).
		Where("request_id = ?", requestID).
		Order("changed_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	histories := make([]*domain.StatusHistory, 0, len(models))
	for _, model := range models {
		histories = append(histories, toHistoryEntity(model))
	}
	return histories, nil
}

// teamAssignmentRepository 团队分派记录仓储实现
type teamAssignmentRepository struct {
	db *gorm.DB
}

// NewTeamAssignmentRepository 创建团队分派记录仓储
func NewTeamAssignmentRepository(db *gorm.DB) domain.TeamAssignmentRepository {
	return &teamAssignmentRepository{db: db}
}

// Save 持久化分派记录
func (r *teamAssignmentRepository) Save(ctx context.Context, assignment *domain.TeamAssignment) error {
	return conn(ctx, r.db).Create(toAssignmentModel(assignment)).Error
}

// ListByRequest 按申请 ID 查询分派记录，按分派时间倒序
func (r *teamAssignmentRepository) ListByRequest(ctx context.Context, requestID string) ([]*domain.TeamAssignment, error) {
	var models []*TeamAssignmentModel
	err := conn(ctx, r.db).
		Where("request_id = ?", requestID).
		Order("assigned_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	assignments := make([]*domain.TeamAssignment, 0, len(models))
	for _, model := range models {
		assignments = append(assignments, toAssignmentEntity(model))
	}
	return assignments, nil
}
