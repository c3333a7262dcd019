// Package mysql 提供入驻申请的 GORM 持久化实现
package mysql

import (
	"time"

	"github.com/wyfcoding/clientonboarding/internal/onboarding/domain"
	"gorm.io/gorm"
)

// RequestModel 入驻申请表
type RequestModel struct {
	ID                   uint      `gorm:"primaryKey"`
	RequestID            string    `gorm:"type:varchar(36);uniqueIndex;not null"`
	ReferenceNumber      string    `gorm:"type:varchar(32);uniqueIndex;not null"`
	TradingName          string    `gorm:"type:varchar(255);not null"`
	ContactName          string    `gorm:"type:varchar(255);not null"`
	ContactEmail         string    `gorm:"type:varchar(255);not null"`
	ContactPhone         string    `gorm:"type:varchar(64)"`
	CompanyAddress       string    `gorm:"type:varchar(512)"`
	Industry             string    `gorm:"type:varchar(32)"`
	CompanySize          string    `gorm:"type:varchar(16)"`
	RequestType          string    `gorm:"type:varchar(32)"`
	Region               string    `gorm:"type:varchar(16)"`
	Status               string    `gorm:"type:varchar(20);index;not null"`
	CompletionPercentage int       `gorm:"not null;default:0"`
	AssignedTeam         string    `gorm:"type:varchar(32);index"`
	Notes                string    `gorm:"type:text"`
	CreatedAt            time.Time `gorm:"index"`
	UpdatedAt            time.Time
}

// TableName 表名
func (RequestModel) TableName() string {
	return "onboarding_requests"
}

// StatusHistoryModel 状态流转记录表
type StatusHistoryModel struct {
	ID        uint      `gorm:"primaryKey"`
	HistoryID string    `gorm:"type:varchar(36);uniqueIndex;not null"`
	RequestID string    `gorm:"type:varchar(36);index;not null"`
	OldStatus string    `gorm:"type:varchar(20)"`
	NewStatus string    `gorm:"type:varchar(20);not null"`
	ChangedBy string    `gorm:"type:varchar(255);not null"`
	ChangedAt time.Time `gorm:"index"`
	Notes     string    `gorm:"type:text"`
}

// TableName 表名
func (StatusHistoryModel) TableName() string {
	return "status_history"
}

// TeamAssignmentModel 团队分派记录表
type TeamAssignmentModel struct {
	ID             uint   `gorm:"primaryKey"`
	AssignmentID   string `gorm:"type:varchar(36);uniqueIndex;not null"`
	RequestID      string `gorm:"type:varchar(36);index;not null"`
	TeamName       string `gorm:"type:varchar(32);not null"`
	AssignedUserID string `gorm:"type:varchar(36)"`
	AssignedAt     time.Time
	Status         string `gorm:"type:varchar(16);not null"`
}

// TableName 表名
func (TeamAssignmentModel) TableName() string {
	return "team_assignments"
}

// Migrate 自动建表
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&RequestModel{},
		&StatusHistoryModel{},
		&TeamAssignmentModel{},
	)
}

// --- 实体与模型转换 ---

func toRequestModel(r *domain.OnboardingRequest) *RequestModel {
	return &RequestModel{
		RequestID:            r.ID,
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
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

func toRequestEntity(m *RequestModel) *domain.OnboardingRequest {
	return &domain.OnboardingRequest{
		ID:                   m.RequestID,
		ReferenceNumber:      m.ReferenceNumber,
		TradingName:          m.TradingName,
		ContactName:          m.ContactName,
		ContactEmail:         m.ContactEmail,
		ContactPhone:         m.ContactPhone,
		CompanyAddress:       m.CompanyAddress,
		Industry:             domain.Industry(m.Industry),
		CompanySize:          domain.CompanySize(m.CompanySize),
		RequestType:          domain.RequestType(m.RequestType),
		Region:               domain.Region(m.Region),
		Status:               domain.RequestStatus(m.Status),
		CompletionPercentage: m.CompletionPercentage,
		AssignedTeam:         m.AssignedTeam,
		Notes:                m.Notes,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func toHistoryModel(h *domain.StatusHistory) *StatusHistoryModel {
	return &StatusHistoryModel{
		HistoryID: h.ID,
		RequestID: h.RequestID,
		OldStatus: string(h.OldStatus),
		NewStatus: string(h.NewStatus),
		ChangedBy: h.ChangedBy,
		ChangedAt: h.ChangedAt,
		Notes:     h.Notes,
	}
}

func toHistoryEntity(m *StatusHistoryModel) *domain.StatusHistory {
	return &domain.StatusHistory{
		ID:        m.HistoryID,
		RequestID: m.RequestID,
		OldStatus: domain.RequestStatus(m.OldStatus),
		NewStatus: domain.RequestStatus(m.NewStatus),
		ChangedBy: m.ChangedBy,
		ChangedAt: m.ChangedAt,
		Notes:     m.Notes,
	}
}

func toAssignmentModel(a *domain.TeamAssignment) *TeamAssignmentModel {
	return &TeamAssignmentModel{
		AssignmentID:   a.ID,
		RequestID:      a.RequestID,
		TeamName:       a.TeamName,
		AssignedUserID: a.AssignedUserID,
		AssignedAt:     a.AssignedAt,
		Status:         a.Status,
	}
}

func toAssignmentEntity(m *TeamAssignmentModel) *domain.TeamAssignment {
	return &domain.TeamAssignment{
		ID:             m.AssignmentID,
		RequestID:      m.RequestID,
		TeamName:       m.TeamName,
		AssignedUserID: m.AssignedUserID,
		AssignedAt:     m.AssignedAt,
		Status:         m.Status,
	}
}
