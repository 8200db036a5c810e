package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"studyplan/backend/internal/dto"
	"studyplan/backend/internal/service"
	"studyplan/backend/pkg/response"
)

// EnrollmentHandler 选课模块 HTTP 处理器
type EnrollmentHandler struct {
	enrollmentSvc service.EnrollmentService
}

// NewEnrollmentHandler 创建 EnrollmentHandler
func NewEnrollmentHandler(enrollmentSvc service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollmentSvc: enrollmentSvc}
}

// List 在学课程与已完成课程
// GET /api/v1/enrollments
func (h *EnrollmentHandler) List(c *gin.Context) {
	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	list, err := h.enrollmentSvc.ListCourses(c.Request.Context(), studentID)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.OK(c, list)
}

// Enroll 选课
// POST /api/v1/enrollments
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 22001, "参数校验失败")
		return
	}

	result, err := h.enrollmentSvc.Enroll(c.Request.Context(), studentID, req.CourseID)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.Created(c, result)
}

// Withdraw 退课，今日计划中该课程未完成的课时同步移除
// DELETE /api/v1/enrollments/:course_id
func (h *EnrollmentHandler) Withdraw(c *gin.Context) {
	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	if err := h.enrollmentSvc.Withdraw(c.Request.Context(), studentID, c.Param("course_id")); err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *EnrollmentHandler) handleEnrollmentError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 22101, "课程不存在")
	case errors.Is(err, service.ErrNotEnrolled):
		response.NotFound(c, 22102, "未选修该课程")
	default:
		response.InternalError(c)
	}
}
