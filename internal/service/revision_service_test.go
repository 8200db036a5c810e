package service

import (
	"context"
	"errors"
	"testing"

	"studyplan/backend/internal/model"
	pkgerrors "studyplan/backend/pkg/errors"
)

// seedWithdrawalScenario A 两课、X 三课，各 300 秒，预算 25 分钟 → A1,X1,A2,X2,X3
func seedWithdrawalScenario(t *testing.T, env *testEnv) *model.DailyPlan {
	t.Helper()
	env.lessons.seed("course-a", 300, 300)
	env.lessons.seed("course-x", 300, 300, 300)
	env.enroll(testStudent, "course-a", 0)
	env.enroll(testStudent, "course-x", 0)

	plan, err := env.plan.GetOrBuildTodayPlan(context.Background(), testStudent, 25)
	if err != nil {
		t.Fatalf("构建计划失败: %v", err)
	}
	if plan.LessonCount != 5 || plan.TotalDurationSeconds != 1500 {
		t.Fatalf("期望 5 课时 1500 秒，实际: %d / %d", plan.LessonCount, plan.TotalDurationSeconds)
	}
	return plan
}

func TestRevisionService_WithdrawalMidDay(t *testing.T) {
	env := newTestEnv()
	seedWithdrawalScenario(t, env)
	ctx := context.Background()

	if _, err := env.progress.CompleteLesson(ctx, testStudent, "course-x", "course-x-l1"); err != nil {
		t.Fatalf("完成课时失败: %v", err)
	}
	if err := env.enrollment.Withdraw(ctx, testStudent, "course-x"); err != nil {
		t.Fatalf("退课失败: %v", err)
	}

	plan := env.plans.stored(testStudent, testDate)
	if got := lessonIDs(plan.Lessons); !equalIDs(got, "course-a-l1", "course-a-l2", "course-x-l1") {
		t.Errorf("期望移除 X2,X3 并保留已完成的 X1，实际: %v", got)
	}
	if plan.TotalDurationSeconds != 900 || plan.LessonCount != 3 {
		t.Errorf("期望总时长 900 课时数 3，实际: %d / %d", plan.TotalDurationSeconds, plan.LessonCount)
	}
	if !plan.HasCompleted("course-x-l1") || plan.Progress != 1 {
		t.Errorf("已完成课时应保留在完成集合中: %v", plan.CompletedLessonIDs)
	}
	if plan.Status != model.PlanStatusInProgress {
		t.Errorf("期望状态保持 IN_PROGRESS，实际: %s", plan.Status)
	}

	if len(env.revisions.logs) != 1 {
		t.Fatalf("期望 1 条修订日志，实际: %d", len(env.revisions.logs))
	}
	log := env.revisions.logs[0]
	if log.RemovedLessons != 2 || log.RemovedSeconds != 600 || log.ChangeType != model.ChangeWithdrawn {
		t.Errorf("修订日志内容异常: %+v", log)
	}
}

func TestRevisionService_EnrolledLeavesPlanUntouched(t *testing.T) {
	env := newTestEnv()
	before := seedWithdrawalScenario(t, env)

	if err := env.revision.OnEnrollmentChanged(context.Background(), testStudent, "course-new", model.ChangeEnrolled); err != nil {
		t.Fatalf("处理选课事件失败: %v", err)
	}

	after := env.plans.stored(testStudent, testDate)
	if after.Version != before.Version || !equalIDs(lessonIDs(after.Lessons), lessonIDs(before.Lessons)...) {
		t.Error("选课事件不应修改今日计划")
	}
}

func TestRevisionService_WithdrawEmptiesPlannedPlan(t *testing.T) {
	env := newTestEnv()
	env.lessons.seed("course-x", 300)
	env.enroll(testStudent, "course-x", 0)
	ctx := context.Background()
	_, _ = env.plan.GetOrBuildTodayPlan(ctx, testStudent, 60)

	if err := env.enrollment.Withdraw(ctx, testStudent, "course-x"); err != nil {
		t.Fatalf("退课失败: %v", err)
	}

	plan := env.plans.stored(testStudent, testDate)
	if len(plan.Lessons) != 0 || plan.TotalDurationSeconds != 0 {
		t.Errorf("期望计划被清空，实际: %v", lessonIDs(plan.Lessons))
	}
	if plan.Status != model.PlanStatusPlanned {
		t.Errorf("清空的未开始计划应保持 PLANNED，实际: %s", plan.Status)
	}
}

func TestRevisionService_WithdrawCompletesRemainingPlan(t *testing.T) {
	env := newTestEnv()
	env.lessons.seed("course-a", 300, 300)
	env.lessons.seed("course-x", 300)
	env.enroll(testStudent, "course-a", 0)
	env.enroll(testStudent, "course-x", 0)
	ctx := context.Background()
	// 预算 10 分钟 → A1, X1
	_, _ = env.plan.GetOrBuildTodayPlan(ctx, testStudent, 10)

	if _, err := env.progress.CompleteLesson(ctx, testStudent, "course-a", "course-a-l1"); err != nil {
		t.Fatalf("完成课时失败: %v", err)
	}
	if err := env.enrollment.Withdraw(ctx, testStudent, "course-x"); err != nil {
		t.Fatalf("退课失败: %v", err)
	}

	plan := env.plans.stored(testStudent, testDate)
	if plan.Status != model.PlanStatusCompleted {
		t.Errorf("剩余课时均已完成，期望 COMPLETED，实际: %s", plan.Status)
	}
}

func TestRevisionService_ConflictRetried(t *testing.T) {
	env := newTestEnv()
	seedWithdrawalScenario(t, env)
	env.plans.updateConflicts = 2

	err := env.revision.OnEnrollmentChanged(context.Background(), testStudent, "course-x", model.ChangeWithdrawn)
	if err != nil {
		t.Fatalf("冲突重试后应成功: %v", err)
	}
	if plan := env.plans.stored(testStudent, testDate); plan.LessonCount != 2 {
		t.Errorf("期望移除 X 的 3 个课时，实际剩余: %d", plan.LessonCount)
	}
}

func TestRevisionService_ConflictRetriesExhausted(t *testing.T) {
	env := newTestEnv()
	seedWithdrawalScenario(t, env)
	env.plans.updateConflicts = 100

	err := env.revision.OnEnrollmentChanged(context.Background(), testStudent, "course-x", model.ChangeWithdrawn)
	if !errors.Is(err, pkgerrors.ErrConcurrentModification) {
		t.Errorf("期望 ErrConcurrentModification，实际: %v", err)
	}
}

func TestRevisionService_NoPlanOrInvalidChange(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if err := env.revision.OnEnrollmentChanged(ctx, testStudent, "course-x", model.ChangeWithdrawn); err != nil {
		t.Errorf("无今日计划时退课应直接成功，实际: %v", err)
	}
	if err := env.revision.OnEnrollmentChanged(ctx, testStudent, "course-x", "PAUSED"); !errors.Is(err, ErrInvalidChangeType) {
		t.Errorf("期望 ErrInvalidChangeType，实际: %v", err)
	}
}
