package model

import "time"

// 选课变更类型
const (
	ChangeEnrolled  = "ENROLLED"
	ChangeWithdrawn = "WITHDRAWN"
)

// PlanRevisionLog 计划修订记录，对应 plan_revision_logs（纯审计日志）
type PlanRevisionLog struct {
	RevisionLogID  string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"revision_log_id"`
	PlanID         string    `gorm:"type:uuid;not null"                             json:"plan_id"`
	StudentID      string    `gorm:"type:uuid;not null"                             json:"student_id"`
	CourseID       string    `gorm:"type:uuid;not null"                             json:"course_id"`
	ChangeType     string    `gorm:"type:varchar(20);not null"                      json:"change_type"` // ENROLLED | WITHDRAWN
	RemovedLessons int       `gorm:"not null;default:0"                             json:"removed_lessons"`
	RemovedSeconds int       `gorm:"not null;default:0"                             json:"removed_seconds"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

func (PlanRevisionLog) TableName() string { return "plan_revision_logs" }
