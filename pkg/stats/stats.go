// Package stats 学习统计回调（积分 / 完课统计）。
// 调用方只做通知，失败不影响进度写入。
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"studyplan/backend/config"
)

// LessonCompletedEvent 完成课时事件（用于积分结算）
type LessonCompletedEvent struct {
	StudentID       string    `json:"student_id"`
	CourseID        string    `json:"course_id"`
	LessonID        string    `json:"lesson_id"`
	PlanDate        string    `json:"plan_date"`
	DurationSeconds int       `json:"duration_seconds"`
	CompletedAt     time.Time `json:"completed_at"`
}

// CourseFinishedEvent 完成课程事件
type CourseFinishedEvent struct {
	StudentID  string    `json:"student_id"`
	CourseID   string    `json:"course_id"`
	FinishedAt time.Time `json:"finished_at"`
}

// Sink 统计事件接收方
type Sink interface {
	LessonCompleted(ctx context.Context, evt LessonCompletedEvent) error
	CourseFinished(ctx context.Context, evt CourseFinishedEvent) error
}

// NewSink 按配置创建统计回调；未启用时返回只记日志的实现
func NewSink(cfg *config.StatsConfig, logger *zap.Logger) Sink {
	if !cfg.Enabled {
		return NewLogSink(logger)
	}
	return NewHTTPSink(cfg, logger)
}

// ── HTTP 实现 ──

// HTTPSink 通过 REST 微服务上报统计事件
type HTTPSink struct {
	client *resty.Client
	logger *zap.Logger
}

// NewHTTPSink 创建 REST 统计回调
func NewHTTPSink(cfg *config.StatsConfig, logger *zap.Logger) *HTTPSink {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(100 * time.Millisecond).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("X-API-Key", cfg.APIKey)
	}
	return &HTTPSink{client: client, logger: logger}
}

func (s *HTTPSink) LessonCompleted(ctx context.Context, evt LessonCompletedEvent) error {
	return s.post(ctx, "/v1/events/lesson-completed", evt)
}

func (s *HTTPSink) CourseFinished(ctx context.Context, evt CourseFinishedEvent) error {
	return s.post(ctx, "/v1/events/course-finished", evt)
}

func (s *HTTPSink) post(ctx context.Context, path string, body interface{}) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		return fmt.Errorf("统计服务请求失败: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("统计服务返回异常状态 %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// ── 日志实现 ──

// LogSink 未接入统计服务时仅记录事件
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink 创建日志统计回调
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) LessonCompleted(_ context.Context, evt LessonCompletedEvent) error {
	s.logger.Debug("课时完成",
		zap.String("student_id", evt.StudentID),
		zap.String("course_id", evt.CourseID),
		zap.String("lesson_id", evt.LessonID),
	)
	return nil
}

func (s *LogSink) CourseFinished(_ context.Context, evt CourseFinishedEvent) error {
	s.logger.Info("课程完成",
		zap.String("student_id", evt.StudentID),
		zap.String("course_id", evt.CourseID),
	)
	return nil
}
