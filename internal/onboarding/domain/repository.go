package domain

import (
	"context"
	"strings"
)

// RequestFilter 申请查询过滤条件
type RequestFilter struct {
	// 精确匹配状态，空值不过滤
	Status RequestStatus
	// 精确匹配负责团队，空值不过滤
	AssignedTeam string
	// 大小写不敏感的子串搜索，匹配商号、联系人、邮箱或参考编号
	Search string
}

// Matches 判断申请是否命中过滤条件
func (f RequestFilter) Matches(r *OnboardingRequest) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.AssignedTeam != "" && r.AssignedTeam != f.AssignedTeam {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.TradingName), needle) &&
			!strings.Contains(strings.ToLower(r.ContactName), needle) &&
			!strings.Contains(strings.ToLower(r.ContactEmail), needle) &&
			!strings.Contains(strings.ToLower(r.ReferenceNumber), needle) {
			return false
		}
	}
	return true
}

// RequestStats 申请统计快照
type RequestStats struct {
	Total    int64
	ByStatus map[RequestStatus]int64
	ByTeam   map[string]int64
}

// RequestRepository 申请仓储接口
type RequestRepository interface {
	// Save 持久化新申请
	Save(ctx context.Context, request *OnboardingRequest) error
	// Update 更新已有申请
	Update(ctx context.Context, request *OnboardingRequest) error
	// Get 按 ID 查询申请，不存在时返回 (nil, nil)
	Get(ctx context.Context, id string) (*OnboardingRequest, error)
	// List 按过滤条件分页查询，按创建时间倒序，返回当页数据与总命中数
	List(ctx context.Context, filter RequestFilter, limit, offset int) ([]*OnboardingRequest, int64, error)
	// Stats 统计申请总数、按状态与按团队的分布
	Stats(ctx context.Context) (*RequestStats, error)
}

// StatusHistoryRepository 状态流转记录仓储接口
type StatusHistoryRepository interface {
	// Append 追加一条流转记录
	Append(ctx context.Context, history *StatusHistory) error
	// ListByRequest 按申请 ID 查询流转记录，按变更时间倒序
	ListByRequest(ctx context.Context, requestID string) ([]*StatusHistory, error)
}

// TeamAssignmentRepository 团队分派记录仓储接口
type TeamAssignmentRepository interface {
	// Save 持久化分派记录
	Save(ctx context.Context, assignment *TeamAssignment) error
	// ListByRequest 按申请 ID 查询分派记录，按分派时间倒序
	ListByRequest(ctx context.Context, requestID string) ([]*TeamAssignment, error)
}
