package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	pkgerrors "studyplan/backend/pkg/errors"
)

// withConflictRetry 执行 fn，遇到乐观锁冲突 / 序列化失败时最多重试 maxRetries 次
// 重试耗尽后返回 ErrConcurrentModification
func withConflictRetry(ctx context.Context, maxRetries int, logger *zap.Logger, fn func() error) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = fn(); err == nil || !pkgerrors.IsRetryable(err) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.Warn("并发修改冲突，重试", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return fmt.Errorf("%w: %w", pkgerrors.ErrConcurrentModification, err)
}
