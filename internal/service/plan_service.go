package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"studyplan/backend/config"
	"studyplan/backend/internal/model"
	"studyplan/backend/internal/repository"
	"studyplan/backend/pkg/calendar"
	pkgerrors "studyplan/backend/pkg/errors"
	"studyplan/backend/pkg/lock"
	"studyplan/backend/pkg/logger"
)

// ── 每日计划模块业务错误 ──

var (
	ErrPlanNotFound     = errors.New("当日计划不存在")
	ErrInvalidPlanDate  = errors.New("计划日期格式应为 YYYY-MM-DD")
	ErrInvalidDateRange = errors.New("开始日期不能晚于结束日期")
	ErrInvalidBudget    = errors.New("每日学习预算不能为负数")
)

// maxBuildAttempts 空计划最多构建次数（首次 + 一次重试）
const maxBuildAttempts = 2

// PlanService 每日计划业务接口
type PlanService interface {
	// GetOrBuildTodayPlan 获取今日计划，不存在时构建并持久化
	// budgetMinutes < 0 表示使用配置的默认预算
	GetOrBuildTodayPlan(ctx context.Context, studentID string, budgetMinutes int) (*model.DailyPlan, error)
	// GetOrBuildPlan 同上，指定日期（运维预构建）
	GetOrBuildPlan(ctx context.Context, studentID, planDate string, budgetMinutes int) (*model.DailyPlan, error)
	GetPlan(ctx context.Context, studentID, planDate string) (*model.DailyPlan, error)
	ListHistory(ctx context.Context, studentID, from, to string) ([]model.DailyPlan, error)
}

// ── 计划查找结果：Absent | Empty | Populated ──

type planState int

const (
	planAbsent planState = iota
	planEmpty
	planPopulated
)

type planLookup struct {
	state planState
	plan  *model.DailyPlan // planAbsent 时为 nil
}

type planService struct {
	repo    *repository.Repository
	builder *PlanBuilder
	locker  lock.Locker
	cal     *calendar.Calendar
	cfg     *config.SchedulerConfig
	logger  *zap.Logger
}

// NewPlanService 创建 PlanService 实例
func NewPlanService(
	cfg *config.SchedulerConfig,
	repo *repository.Repository,
	builder *PlanBuilder,
	locker lock.Locker,
	cal *calendar.Calendar,
	logger *zap.Logger,
) PlanService {
	return &planService{
		repo:    repo,
		builder: builder,
		locker:  locker,
		cal:     cal,
		cfg:     cfg,
		logger:  logger,
	}
}

func planLockKey(studentID, planDate string) string {
	return studentID + ":" + planDate
}

func (s *planService) GetOrBuildTodayPlan(ctx context.Context, studentID string, budgetMinutes int) (*model.DailyPlan, error) {
	return s.GetOrBuildPlan(ctx, studentID, s.cal.Today(), budgetMinutes)
}

func (s *planService) GetOrBuildPlan(ctx context.Context, studentID, planDate string, budgetMinutes int) (*model.DailyPlan, error) {
	if calendar.ValidateDate(planDate) != nil {
		return nil, ErrInvalidPlanDate
	}
	budgetSeconds, err := s.budgetSeconds(budgetMinutes)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, planLockKey(studentID, planDate))
	if err != nil {
		return nil, fmt.Errorf("获取计划锁失败: %w", err)
	}
	defer unlock()

	log := logger.ForPlan(s.logger, studentID, planDate)

	found, err := s.lookup(ctx, studentID, planDate)
	if err != nil {
		log.Error("查询每日计划失败", zap.Error(err))
		return nil, err
	}

	switch found.state {
	case planPopulated:
		return found.plan, nil
	case planEmpty:
		return s.retryEmpty(ctx, found.plan, log)
	default:
		return s.create(ctx, studentID, planDate, budgetSeconds, log)
	}
}

func (s *planService) GetPlan(ctx context.Context, studentID, planDate string) (*model.DailyPlan, error) {
	if calendar.ValidateDate(planDate) != nil {
		return nil, ErrInvalidPlanDate
	}
	found, err := s.lookup(ctx, studentID, planDate)
	if err != nil {
		s.logger.Error("查询每日计划失败", zap.Error(err))
		return nil, err
	}
	if found.state == planAbsent {
		return nil, ErrPlanNotFound
	}
	return found.plan, nil
}

func (s *planService) ListHistory(ctx context.Context, studentID, from, to string) ([]model.DailyPlan, error) {
	if calendar.ValidateDate(from) != nil || calendar.ValidateDate(to) != nil {
		return nil, ErrInvalidPlanDate
	}
	if from > to {
		return nil, ErrInvalidDateRange
	}
	plans, err := s.repo.DailyPlan.ListByRange(ctx, studentID, from, to)
	if err != nil {
		s.logger.Error("查询历史计划失败", zap.Error(err))
		return nil, err
	}
	return plans, nil
}

// ── 内部方法 ──

func (s *planService) budgetSeconds(budgetMinutes int) (int, error) {
	if budgetMinutes < 0 {
		budgetMinutes = s.cfg.DefaultBudgetMinutes
	}
	if budgetMinutes < 0 {
		return 0, ErrInvalidBudget
	}
	if s.cfg.MaxBudgetMinutes > 0 && budgetMinutes > s.cfg.MaxBudgetMinutes {
		budgetMinutes = s.cfg.MaxBudgetMinutes
	}
	return budgetMinutes * 60, nil
}

func (s *planService) lookup(ctx context.Context, studentID, planDate string) (planLookup, error) {
	plan, err := s.repo.DailyPlan.GetByStudentDate(ctx, studentID, planDate)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return planLookup{state: planAbsent}, nil
		}
		return planLookup{}, err
	}
	if plan.IsEmpty() {
		return planLookup{state: planEmpty, plan: plan}, nil
	}
	return planLookup{state: planPopulated, plan: plan}, nil
}

// create 首次构建并以“不存在才创建”写入；并发竞争失败时返回胜出方的计划
func (s *planService) create(ctx context.Context, studentID, planDate string, budgetSeconds int, log *zap.Logger) (*model.DailyPlan, error) {
	enrollments, err := s.repo.Enrollment.ListActive(ctx, studentID)
	if err != nil {
		log.Error("查询有效选课失败", zap.Error(err))
		return nil, err
	}

	result, err := s.build(ctx, studentID, enrollments, budgetSeconds)
	if err != nil {
		return nil, err
	}

	plan := &model.DailyPlan{
		StudentID:     studentID,
		PlanDate:      planDate,
		BudgetSeconds: budgetSeconds,
		Status:        model.PlanStatusPlanned,
		BuildAttempts: 1,
	}
	plan.Version = 1
	plan.SetLessons(result.Lessons)

	created, err := s.repo.DailyPlan.CreateIfAbsent(ctx, plan)
	if err != nil {
		log.Error("保存每日计划失败", zap.Error(err))
		return nil, err
	}
	if !created {
		log.Info("每日计划已由并发请求创建，返回已有计划")
		return s.repo.DailyPlan.GetByStudentDate(ctx, studentID, planDate)
	}

	log.Info("每日计划已生成",
		zap.Int("lesson_count", plan.LessonCount),
		zap.Int("total_duration_seconds", plan.TotalDurationSeconds),
		zap.Int("budget_seconds", budgetSeconds),
		zap.Strings("degraded_courses", result.DegradedCourses),
	)
	return plan, nil
}

// retryEmpty 空计划至多重试一次，只考虑计划创建前已选的课程（避免变成当日补课）
func (s *planService) retryEmpty(ctx context.Context, plan *model.DailyPlan, log *zap.Logger) (*model.DailyPlan, error) {
	if plan.BuildAttempts >= maxBuildAttempts {
		return plan, nil
	}

	enrollments, err := s.repo.Enrollment.ListActive(ctx, plan.StudentID)
	if err != nil {
		log.Error("查询有效选课失败", zap.Error(err))
		return nil, err
	}
	eligible := make([]model.Enrollment, 0, len(enrollments))
	for _, e := range enrollments {
		if e.EnrolledAt.Before(plan.CreatedAt) {
			eligible = append(eligible, e)
		}
	}

	plan.BuildAttempts++
	if len(eligible) > 0 {
		result, err := s.build(ctx, plan.StudentID, eligible, plan.BudgetSeconds)
		if err != nil {
			return nil, err
		}
		plan.SetLessons(result.Lessons)
	}

	if err := s.repo.DailyPlan.Update(ctx, plan); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return s.repo.DailyPlan.GetByStudentDate(ctx, plan.StudentID, plan.PlanDate)
		}
		log.Error("更新空计划失败", zap.Error(err))
		return nil, err
	}

	log.Info("空计划已重试构建",
		zap.Int("build_attempts", plan.BuildAttempts),
		zap.Int("lesson_count", plan.LessonCount),
	)
	return plan, nil
}

func (s *planService) build(ctx context.Context, studentID string, enrollments []model.Enrollment, budgetSeconds int) (*BuildResult, error) {
	if len(enrollments) == 0 {
		return &BuildResult{Lessons: []model.LessonRef{}}, nil
	}

	courseIDs := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		courseIDs = append(courseIDs, e.CourseID)
	}

	rows, err := s.repo.Progress.ListByCourses(ctx, studentID, courseIDs)
	if err != nil {
		s.logger.Error("查询课程进度失败", zap.Error(err))
		return nil, err
	}
	cursors := make(map[string]int, len(rows))
	for _, p := range rows {
		cursors[p.CourseID] = p.LastCompletedOrdinal
	}

	return s.builder.Build(ctx, BuildRequest{
		StudentID:     studentID,
		CourseIDs:     courseIDs,
		Cursors:       cursors,
		BudgetSeconds: budgetSeconds,
	})
}

// [自证通过] internal/service/plan_service.go
