package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "studyplan/backend/pkg/errors"
	"studyplan/backend/pkg/lock"
	"studyplan/backend/pkg/response"
)

// handleCommonError 处理各模块共有的并发类错误，已处理时返回 true
func handleCommonError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, pkgerrors.ErrConcurrentModification):
		response.Conflict(c, 10006, "数据已被并发修改，请稍后重试")
	case errors.Is(err, lock.ErrLockTimeout):
		response.ServiceUnavailable(c, 10007, "计划正在更新，请稍后重试")
	case errors.Is(err, context.DeadlineExceeded):
		response.Error(c, http.StatusGatewayTimeout, 10008, "请求超时")
	default:
		return false
	}
	return true
}
