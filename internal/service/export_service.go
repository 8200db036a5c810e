package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"studyplan/backend/config"
	"studyplan/backend/internal/model"
	"studyplan/backend/pkg/calendar"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoPlans      = errors.New("该时间段内暂无学习计划")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 历史计划导出为 Excel (.xlsx)，每天一行
//   - 单日计划导出为 iCalendar (.ics)，课时从 scheduler.study_start 起依次排开
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	ExportHistory(ctx context.Context, studentID, from, to string) (*bytes.Buffer, string, error)
	ExportPlanCalendar(ctx context.Context, studentID, planDate string) (*bytes.Buffer, string, error)
}

type exportService struct {
	plans  PlanService
	cal    *calendar.Calendar
	cfg    *config.SchedulerConfig
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.SchedulerConfig, plans PlanService, cal *calendar.Calendar, logger *zap.Logger) ExportService {
	return &exportService{plans: plans, cal: cal, cfg: cfg, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportHistory 历史计划导出为 Excel
// ═══════════════════════════════════════════════════════════
//
// 表头: | 日期 | 状态 | 课时数 | 已完成 | 计划时长(分钟) | 预算(分钟) | 完成率 |

func (s *exportService) ExportHistory(ctx context.Context, studentID, from, to string) (*bytes.Buffer, string, error) {
	plans, err := s.plans.ListHistory(ctx, studentID, from, to)
	if err != nil {
		return nil, "", err
	}
	if len(plans) == 0 {
		return nil, "", ErrExportNoPlans
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "学习计划"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 14)
	f.SetColWidth(sheetName, "B", "B", 14)
	f.SetColWidth(sheetName, "C", "G", 14)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("学习计划 %s ~ %s", from, to))
	f.MergeCell(sheetName, "A1", "G1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	headers := []string{"日期", "状态", "课时数", "已完成", "计划时长(分钟)", "预算(分钟)", "完成率"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", "G2", headerStyle)

	statusNames := map[model.PlanStatus]string{
		model.PlanStatusPlanned:    "未开始",
		model.PlanStatusInProgress: "进行中",
		model.PlanStatusCompleted:  "已完成",
	}

	row := 3
	for _, p := range plans {
		rate := "-"
		if p.LessonCount > 0 {
			rate = fmt.Sprintf("%.0f%%", float64(p.Progress)*100/float64(p.LessonCount))
		}
		f.SetCellValue(sheetName, cell("A", row), p.PlanDate)
		f.SetCellValue(sheetName, cell("B", row), statusNames[p.Status])
		f.SetCellValue(sheetName, cell("C", row), p.LessonCount)
		f.SetCellValue(sheetName, cell("D", row), p.Progress)
		f.SetCellValue(sheetName, cell("E", row), p.TotalDurationSeconds/60)
		f.SetCellValue(sheetName, cell("F", row), p.BudgetSeconds/60)
		f.SetCellValue(sheetName, cell("G", row), rate)
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("学习计划_%s_%s.xlsx", from, to)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportPlanCalendar 单日计划导出为 iCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportPlanCalendar(ctx context.Context, studentID, planDate string) (*bytes.Buffer, string, error) {
	plan, err := s.plans.GetPlan(ctx, studentID, planDate)
	if err != nil {
		return nil, "", err
	}

	start, err := s.studyStart(planDate)
	if err != nil {
		s.logger.Error("计算学习开始时间失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	c := ics.NewCalendar()
	c.SetMethod(ics.MethodPublish)
	c.SetProductId("-//study-plan//daily plan//CN")
	c.SetXWRCalName(fmt.Sprintf("学习计划 %s", planDate))

	stamp := time.Now().UTC()
	at := start
	for _, l := range plan.Lessons {
		end := at.Add(time.Duration(l.DurationSeconds) * time.Second)

		event := c.AddEvent(fmt.Sprintf("%s-%s@study-plan", plan.PlanID, l.LessonID))
		event.SetDtStampTime(stamp)
		event.SetStartAt(at)
		event.SetEndAt(end)
		summary := fmt.Sprintf("第 %d 课", l.Ordinal)
		if plan.HasCompleted(l.LessonID) {
			summary = "[已完成] " + summary
		}
		event.SetSummary(summary)
		event.SetDescription(fmt.Sprintf("course_id=%s lesson_id=%s", l.CourseID, l.LessonID))
		at = end
	}

	buf := bytes.NewBufferString(c.Serialize())
	filename := fmt.Sprintf("学习计划_%s.ics", planDate)
	return buf, filename, nil
}

// studyStart 计划日当天的学习开始时间（日历时区）
func (s *exportService) studyStart(planDate string) (time.Time, error) {
	day, err := s.cal.StartOfDay(planDate)
	if err != nil {
		return time.Time{}, err
	}
	clock, err := time.Parse("15:04", s.cfg.StudyStart)
	if err != nil {
		return time.Time{}, fmt.Errorf("无效的学习开始时间 %q: %w", s.cfg.StudyStart, err)
	}
	return day.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute), nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
