package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"studyplan/backend/internal/dto"
	"studyplan/backend/internal/service"
	"studyplan/backend/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportHistory 导出历史计划
// GET /api/v1/export/plans?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *ExportHandler) ExportHistory(c *gin.Context) {
	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	var req dto.PlanRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 23001, "from/to 须为 YYYY-MM-DD 格式")
		return
	}

	buf, filename, err := h.exportSvc.ExportHistory(c.Request.Context(), studentID, req.From, req.To)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	attachment(c, filename)
	c.Data(http.StatusOK, contentTypeXLSX, buf.Bytes())
}

// ExportCalendar 导出单日计划为日历文件
// GET /api/v1/export/plans/:date/calendar
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportPlanCalendar(c.Request.Context(), studentID, c.Param("date"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	attachment(c, filename)
	c.Data(http.StatusOK, contentTypeICS, buf.Bytes())
}

// attachment 设置下载响应头
func attachment(c *gin.Context, filename string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoPlans):
		response.NotFound(c, 23101, "该时间段内暂无学习计划")
	case errors.Is(err, service.ErrPlanNotFound):
		response.NotFound(c, 23102, "当日计划不存在")
	case errors.Is(err, service.ErrInvalidPlanDate), errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 23103, "日期参数无效")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
