package domain

import "time"

// SystemActor 未提供操作人时的默认值
const SystemActor = "system"

// AssignmentStatusPending 团队分派记录的初始状态
const AssignmentStatusPending = "Pending"

// StatusHistory 状态流转记录，只追加，不修改、不删除
type StatusHistory struct {
	ID        string
	RequestID string
	OldStatus RequestStatus
	NewStatus RequestStatus
	ChangedBy string
	ChangedAt time.Time
	Notes     string
}

// NewStatusHistory 创建状态流转记录，changedBy 为空时记为 system
func NewStatusHistory(id, requestID string, oldStatus, newStatus RequestStatus, changedBy, notes string, now time.Time) *StatusHistory {
	if changedBy == "" {
		changedBy = SystemActor
	}
	return &StatusHistory{
		ID:        id,
		RequestID: requestID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		ChangedBy: changedBy,
		ChangedAt: now,
		Notes:     notes,
	}
}

// TeamAssignment 团队分派记录
type TeamAssignment struct {
	ID             string
	RequestID      string
	TeamName       string
	AssignedUserID string
	AssignedAt     time.Time
	Status         string
}

// NewTeamAssignment 创建团队分派记录，初始状态 Pending
func NewTeamAssignment(id, requestID, teamName string, now time.Time) *TeamAssignment {
	return &TeamAssignment{
		ID:         id,
		RequestID:  requestID,
		TeamName:   teamName,
		AssignedAt: now,
		Status:     AssignmentStatusPending,
	}
}
