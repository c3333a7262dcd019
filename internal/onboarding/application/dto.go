package application

import (
	"time"

	"github.com/wyfcoding/clientonboarding/internal/onboarding/domain"
	"github.com/wyfcoding/clientonboarding/pkg/utils"
)

// CreateRequestCommand 创建申请命令
type CreateRequestCommand struct {
	TradingName    string
	ContactName    string
	ContactEmail   string
	ContactPhone   string
	CompanyAddress string
	Industry       domain.Industry
	CompanySize    domain.CompanySize
	RequestType    domain.RequestType
	Region         domain.Region
	Notes          string
}

// UpdateRequestCommand 更新申请命令，nil 字段保持原值。
// 状态、完成度与参考编号不在可更新范围内。
type UpdateRequestCommand struct {
	TradingName    *string
	ContactName    *string
	ContactEmail   *string
	ContactPhone   *string
	CompanyAddress *string
	Industry       *domain.Industry
	CompanySize    *domain.CompanySize
	RequestType    *domain.RequestType
	Region         *domain.Region
	Notes          *string
}

// ListRequestsQuery 查询申请列表
type ListRequestsQuery struct {
	Status       string
	AssignedTeam string
	Search       string
	Page         int
	Limit        int
}

// RequestDTO 申请视图
type RequestDTO struct {
	ID                   string `json:"id"`
	ReferenceNumber      string `json:"referenceNumber"`
	TradingName          string `json:"tradingName"`
	ContactName          string `json:"contactName"`
	ContactEmail         string `json:"contactEmail"`
	ContactPhone         string `json:"contactPhone,omitempty"`
	CompanyAddress       string `json:"companyAddress,omitempty"`
	Industry             string `json:"industry,omitempty"`
	CompanySize          string `json:"companySize,omitempty"`
	RequestType          string `json:"requestType,omitempty"`
	Region               string `json:"region,omitempty"`
	Status               string `json:"status"`
	CompletionPercentage int    `json:"completionPercentage"`
	AssignedTeam         string `json:"assignedTeam,omitempty"`
	Notes                string `json:"notes,omitempty"`
	CreatedAt            string `json:"createdAt"`
	UpdatedAt            string `json:"updatedAt"`
}

// StatusHistoryDTO 状态流转记录视图
type StatusHistoryDTO struct {
	ID        string `json:"id"`
	RequestID string `json:"requestId"`
	OldStatus string `json:"oldStatus"`
	NewStatus string `json:"newStatus"`
	ChangedBy string `json:"changedBy"`
	ChangedAt string `json:"changedAt"`
	Notes     string `json:"notes,omitempty"`
}

// TeamAssignmentDTO 团队分派记录视图
type TeamAssignmentDTO struct {
	ID             string `json:"id"`
	RequestID      string `json:"requestId"`
	TeamName       string `json:"teamName"`
	AssignedUserID string `json:"assignedUserId,omitempty"`
	AssignedAt     string `json:"assignedAt"`
	Status         string `json:"status"`
}

// RequestDetailDTO 申请详情视图，含流转记录与分派记录
type RequestDetailDTO struct {
	RequestDTO
	StatusHistory   []*StatusHistoryDTO  `json:"statusHistory"`
	TeamAssignments []*TeamAssignmentDTO `json:"teamAssignments"`
}

// ListRequestsResult 列表查询结果
type ListRequestsResult struct {
	Items      []*RequestDTO     `json:"items"`
	Pagination *utils.Pagination `json:"pagination"`
}

// StatsDTO 统计视图
type StatsDTO struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"byStatus"`
	ByTeam   map[string]int64 `json:"byTeam"`
}

// toRequestDTO 实体转视图
func toRequestDTO(r *domain.OnboardingRequest) *RequestDTO {
	return &RequestDTO{
		ID:                   r.ID,
		ReferenceNumber:      r.ReferenceNumber,
		TradingName:          r.TradingName,
		ContactName:          r.ContactName,
		ContactEmail:         r.ContactEmail,
		ContactPhone:         r.ContactPhone,
		CompanyAddress:       r.CompanyAddress,
		Industry:             string(r.Industry),
		CompanySize:          string(r.CompanySize),
		RequestType:          string(r.RequestType),
		Region:               string(r.Region),
		Status:               string(r.Status),
		CompletionPercentage: r.CompletionPercentage,
		AssignedTeam:         r.AssignedTeam,
		Notes:                r.Notes,
		CreatedAt:            r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            r.UpdatedAt.Format(time.RFC3339),
	}
}

// toStatusHistoryDTO 流转记录转视图
func toStatusHistoryDTO(h *domain.StatusHistory) *StatusHistoryDTO {
	return &StatusHistoryDTO{
		ID:        h.ID,
		RequestID: h.RequestID,
		OldStatus: string(h.OldStatus),
		NewStatus: string(h.NewStatus),
		ChangedBy: h.ChangedBy,
		ChangedAt: h.ChangedAt.Format(time.RFC3339),
		Notes:     h.Notes,
	}
}

// toTeamAssignmentDTO 分派记录转视图
func toTeamAssignmentDTO(a *domain.TeamAssignment) *TeamAssignmentDTO {
	return &TeamAssignmentDTO{
		ID:             a.ID,
		RequestID:      a.RequestID,
		TeamName:       a.TeamName,
		AssignedUserID: a.AssignedUserID,
		AssignedAt:     a.AssignedAt.Format(time.RFC3339),
		Status:         a.Status,
	}
}
