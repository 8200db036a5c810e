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
	"studyplan/backend/pkg/lock"
	"studyplan/backend/pkg/logger"
)

var ErrInvalidChangeType = errors.New("无效的选课变更类型")

// RevisionService 选课变更后修订今日计划
type RevisionService interface {
	// OnEnrollmentChanged change 取 model.ChangeEnrolled / model.ChangeWithdrawn
	OnEnrollmentChanged(ctx context.Context, studentID, courseID, change string) error
}

type revisionService struct {
	repo   *repository.Repository
	locker lock.Locker
	cal    *calendar.Calendar
	cfg    *config.SchedulerConfig
	logger *zap.Logger
}

// NewRevisionService 创建 RevisionService 实例
func NewRevisionService(
	cfg *config.SchedulerConfig,
	repo *repository.Repository,
	locker lock.Locker,
	cal *calendar.Calendar,
	logger *zap.Logger,
) RevisionService {
	return &revisionService{repo: repo, locker: locker, cal: cal, cfg: cfg, logger: logger}
}

func (s *revisionService) OnEnrollmentChanged(ctx context.Context, studentID, courseID, change string) error {
	planDate := s.cal.Today()
	log := logger.ForPlan(s.logger, studentID, planDate).With(
		zap.String("course_id", courseID),
		zap.String("change", change),
	)

	switch change {
	case model.ChangeEnrolled:
		// 已生成的今日计划不追加新课程，次日构建起生效
		log.Info("新选课程自次日计划起生效")
		return nil
	case model.ChangeWithdrawn:
	default:
		return ErrInvalidChangeType
	}

	unlock, err := s.locker.Lock(ctx, planLockKey(studentID, planDate))
	if err != nil {
		return fmt.Errorf("获取计划锁失败: %w", err)
	}
	defer unlock()

	err = withConflictRetry(ctx, s.cfg.MaxConflictRetries, log, func() error {
		return s.removeWithdrawnLessons(ctx, studentID, courseID, planDate, log)
	})
	if err != nil {
		log.Error("退课修订今日计划失败", zap.Error(err))
		return err
	}
	return nil
}

// removeWithdrawnLessons 移除退课课程中尚未完成的课时，已完成课时保留
func (s *revisionService) removeWithdrawnLessons(ctx context.Context, studentID, courseID, planDate string, log *zap.Logger) error {
	plan, err := s.repo.DailyPlan.GetByStudentDate(ctx, studentID, planDate)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	kept := make([]model.LessonRef, 0, len(plan.Lessons))
	removedSeconds := 0
	for _, l := range plan.Lessons {
		if l.CourseID == courseID && !plan.HasCompleted(l.LessonID) {
			removedSeconds += l.DurationSeconds
			continue
		}
		kept = append(kept, l)
	}
	removed := len(plan.Lessons) - len(kept)
	if removed == 0 {
		return nil
	}

	plan.SetLessons(kept)
	// 剩余课时已全部完成时推进到 COMPLETED；空计划保持原状态
	if plan.Progress > 0 && plan.Progress >= plan.LessonCount {
		plan.Status = plan.Status.Advance(model.PlanStatusCompleted)
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.DailyPlan.Update(ctx, plan); err != nil {
			return err
		}
		return tx.RevisionLog.Create(ctx, &model.PlanRevisionLog{
			PlanID:         plan.PlanID,
			StudentID:      studentID,
			CourseID:       courseID,
			ChangeType:     model.ChangeWithdrawn,
			RemovedLessons: removed,
			RemovedSeconds: removedSeconds,
		})
	})
	if err != nil {
		return err
	}

	log.Info("退课已修订今日计划",
		zap.Int("removed_lessons", removed),
		zap.Int("removed_seconds", removedSeconds),
		zap.Int("total_duration_seconds", plan.TotalDurationSeconds),
	)
	return nil
}
