// Package domain 定义入驻申请领域模型：实体、状态机、分派策略与仓储接口
package domain

import (
	"time"
)

// RequestStatus 申请状态
type RequestStatus string

const (
	// StatusNew 新建
	StatusNew RequestStatus = "New"
	// StatusUnderReview 审核中
	StatusUnderReview RequestStatus = "Under Review"
	// StatusInProgress 处理中
	StatusInProgress RequestStatus = "In Progress"
	// StatusCompleted 已完成
	StatusCompleted RequestStatus = "Completed"
	// StatusOnHold 挂起
	StatusOnHold RequestStatus = "On Hold"
)

// Industry 行业
type Industry string

const (
	IndustryManufacturing Industry = "Manufacturing"
	IndustryRetail        Industry = "Retail"
	IndustryLogistics     Industry = "Logistics"
	IndustryOther         Industry = "Other"
)

// CompanySize 企业规模
type CompanySize string

const (
	CompanySizeSmall      CompanySize = "Small"
	CompanySizeMedium     CompanySize = "Medium"
	CompanySizeLarge      CompanySize = "Large"
	CompanySizeEnterprise CompanySize = "Enterprise"
)

// RequestType 申请类型
type RequestType string

const (
	RequestTypeNewInstallation RequestType = "New Installation"
	RequestTypeUpgrade         RequestType = "Upgrade"
	RequestTypeMigration       RequestType = "Migration"
)

// Region 区域
type Region string

const (
	RegionNorth         Region = "North"
	RegionSouth         Region = "South"
	RegionEast          Region = "East"
	RegionWest          Region = "West"
	RegionInternational Region = "International"
)

// completionPercentages 状态对应的完成度
var completionPercentages = map[RequestStatus]int{
	StatusNew:         0,
	StatusUnderReview: 25,
	StatusInProgress:  50,
	StatusCompleted:   100,
	StatusOnHold:      25,
}

// PercentageFor 返回状态对应的完成度，未知状态返回 0
func PercentageFor(status RequestStatus) int {
	return completionPercentages[status]
}

// IsValidStatus 检查状态是否合法
func IsValidStatus(status RequestStatus) bool {
	_, ok := completionPercentages[status]
	return ok
}

// OnboardingRequest 入驻申请实体
type OnboardingRequest struct {
	ID                   string
	ReferenceNumber      string
	TradingName          string
	ContactName          string
	ContactEmail         string
	ContactPhone         string
	CompanyAddress       string
	Industry             Industry
	CompanySize          CompanySize
	RequestType          RequestType
	Region               Region
	Status               RequestStatus
	CompletionPercentage int
	AssignedTeam         string
	Notes                string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NewOnboardingRequest 创建入驻申请，初始状态为 New、完成度 0
func NewOnboardingRequest(id, referenceNumber, tradingName, contactName, contactEmail string, now time.Time) *OnboardingRequest {
	return &OnboardingRequest{
		ID:                   id,
		ReferenceNumber:      referenceNumber,
		TradingName:          tradingName,
		ContactName:          contactName,
		ContactEmail:         contactEmail,
		Status:               StatusNew,
		CompletionPercentage: PercentageFor(StatusNew),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// Transition 切换状态并同步完成度，返回切换前的状态。
// 不做状态合法性校验，任意状态间均可切换（包括从 Completed 回退）。
func (r *OnboardingRequest) Transition(newStatus RequestStatus, now time.Time) RequestStatus {
	oldStatus := r.Status
	r.Status = newStatus
	r.CompletionPercentage = PercentageFor(newStatus)
	r.UpdatedAt = now
	return oldStatus
}

// IsAssigned 是否已分派团队
func (r *OnboardingRequest) IsAssigned() bool {
	return r.AssignedTeam != ""
}
