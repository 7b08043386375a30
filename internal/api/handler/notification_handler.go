package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/dto"
	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/service"
	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/pkg/response"
)

// NotificationHandler 通知模块 Handler
type NotificationHandler struct {
	svc service.NotificationService
}

// NewNotificationHandler 创建 NotificationHandler 实例
func NewNotificationHandler(svc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List 我的通知列表（自动下班告警、任务状态变化等）
// GET /api/v1/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.NotificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 19100, err.Error())
		return
	}

	list, total, err := h.svc.List(c.Request.Context(), userID, &req)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}
