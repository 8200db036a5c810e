package model

import (
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// PlanStatus 每日计划状态，只能前进：PLANNED → IN_PROGRESS → COMPLETED
type PlanStatus string

const (
	PlanStatusPlanned    PlanStatus = "PLANNED"
	PlanStatusInProgress PlanStatus = "IN_PROGRESS"
	PlanStatusCompleted  PlanStatus = "COMPLETED"
)

func (s PlanStatus) rank() int {
	switch s {
	case PlanStatusInProgress:
		return 1
	case PlanStatusCompleted:
		return 2
	default:
		return 0
	}
}

// Advance 返回 s 与 next 中更靠后的状态（状态不可回退）
func (s PlanStatus) Advance(next PlanStatus) PlanStatus {
	if next.rank() > s.rank() {
		return next
	}
	return s
}

// DailyPlan 每日学习计划，对应 daily_plans，(StudentID, PlanDate) 唯一
type DailyPlan struct {
	PlanID               string                        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"plan_id"`
	StudentID            string                        `gorm:"type:uuid;not null"                             json:"student_id"`
	PlanDate             string                        `gorm:"type:varchar(10);not null"                      json:"plan_date"` // YYYY-MM-DD
	Lessons              datatypes.JSONSlice[LessonRef] `gorm:"type:jsonb;not null;default:'[]'"               json:"lessons"`
	LessonCount          int                           `gorm:"not null;default:0"                             json:"lesson_count"`
	TotalDurationSeconds int                           `gorm:"not null;default:0"                             json:"total_duration_seconds"`
	BudgetSeconds        int                           `gorm:"not null;default:0"                             json:"budget_seconds"`
	Progress             int                           `gorm:"not null;default:0"                             json:"progress"`
	CompletedLessonIDs   pq.StringArray                `gorm:"type:text[];not null;default:'{}'"              json:"completed_lesson_ids"`
	Status               PlanStatus                    `gorm:"type:varchar(20);not null;default:'PLANNED'"    json:"status"`
	BuildAttempts        int                           `gorm:"not null;default:1"                             json:"build_attempts"`
	VersionedModel
}

func (DailyPlan) TableName() string { return "daily_plans" }

// IsEmpty 计划不含任何课时
func (p *DailyPlan) IsEmpty() bool {
	return len(p.Lessons) == 0
}

// HasCompleted 课时是否已计入当日完成集合
func (p *DailyPlan) HasCompleted(lessonID string) bool {
	for _, id := range p.CompletedLessonIDs {
		if id == lessonID {
			return true
		}
	}
	return false
}

// FindLesson 在计划中查找指定课程的课时
func (p *DailyPlan) FindLesson(courseID, lessonID string) (LessonRef, bool) {
	for _, l := range p.Lessons {
		if l.LessonID == lessonID && l.CourseID == courseID {
			return l, true
		}
	}
	return LessonRef{}, false
}

// SetLessons 替换课时快照并同步课时数与总时长
func (p *DailyPlan) SetLessons(lessons []LessonRef) {
	if lessons == nil {
		lessons = []LessonRef{}
	}
	total := 0
	for _, l := range lessons {
		total += l.DurationSeconds
	}
	p.Lessons = datatypes.JSONSlice[LessonRef](lessons)
	p.LessonCount = len(lessons)
	p.TotalDurationSeconds = total
}

// [自证通过] internal/model/daily_plan.go
