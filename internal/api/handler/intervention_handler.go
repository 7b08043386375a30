package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/dto"
	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/service"
	pkgerrors "github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/pkg/errors"
	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/pkg/response"
)

// InterventionHandler 干预任务模块 Handler
type InterventionHandler struct {
	svc service.InterventionService
}

// NewInterventionHandler 创建 InterventionHandler 实例
func NewInterventionHandler(svc service.InterventionService) *InterventionHandler {
	return &InterventionHandler{svc: svc}
}

// Create 创建干预任务
// POST /api/v1/interventions
func (h *InterventionHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateInterventionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 16000, err.Error())
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), &req, userID)
	if err != nil {
		handleInterventionError(c, err)
		return
	}
	response.Created(c, resp)
}

// Get 获取干预任务详情
// GET /api/v1/interventions/:id
func (h *InterventionHandler) Get(c *gin.Context) {
	resp, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleInterventionError(c, err)
		return
	}
	response.OK(c, resp)
}

// List 干预任务列表
// GET /api/v1/interventions
func (h *InterventionHandler) List(c *gin.Context) {
	var req dto.InterventionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 16000, err.Error())
		return
	}

	list, total, err := h.svc.List(c.Request.Context(), &req)
	if err != nil {
		handleInterventionError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Start 开始任务（scheduled → in_progress，确认或创建班次）
// POST /api/v1/interventions/:id/start
func (h *InterventionHandler) Start(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.svc.Start(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleInterventionError(c, err)
		return
	}
	response.OK(c, resp)
}

// CheckIn GPS 到场签到
// POST /api/v1/interventions/:id/check-in
func (h *InterventionHandler) CheckIn(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.GpsCheckpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 16000, err.Error())
		return
	}

	resp, err := h.svc.CheckIn(c.Request.Context(), c.Param("id"), userID, &req)
	if err != nil {
		handleInterventionError(c, err)
		return
	}
	response.OK(c, resp)
}

// CheckOut GPS 离场签退
// POST /api/v1/interventions/:id/check-out
func (h *InterventionHandler) CheckOut(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.GpsCheckpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 16000, err.Error())
		return
	}

	resp, err := h.svc.CheckOut(c.Request.Context(), c.Param("id"), userID, &req)
	if err != nil {
		handleInterventionError(c, err)
		return
	}
	response.OK(c, resp)
}

// Complete 完成任务
// POST /api/v1/interventions/:id/complete
func (h *InterventionHandler) Complete(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.svc.Complete(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleInterventionError(c, err)
		return
	}
	response.OK(c, resp)
}

// Cancel 取消任务（进行中任务需主管权限，Service 层校验）
// POST /api/v1/interventions/:id/cancel
func (h *InterventionHandler) Cancel(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	// 请求体可为空（reason 可选）
	var req dto.CancelInterventionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 16000, err.Error())
			return
		}
	}

	resp, err := h.svc.Cancel(c.Request.Context(), c.Param("id"), &req, userID, role)
	if err != nil {
		handleInterventionError(c, err)
		return
	}
	response.OK(c, resp)
}

// Reschedule 改期（旧记录归档 + 新记录创建，原子提交）
// POST /api/v1/interventions/:id/reschedule
func (h *InterventionHandler) Reschedule(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.RescheduleInterventionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 16000, err.Error())
		return
	}

	resp, err := h.svc.Reschedule(c.Request.Context(), c.Param("id"), &req, userID)
	if err != nil {
		handleInterventionError(c, err)
		return
	}
	response.OK(c, resp)
}

// Append 终态后追加照片 / 备注 / 评分
// PATCH /api/v1/interventions/:id/append
func (h *InterventionHandler) Append(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.AppendInterventionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 16000, err.Error())
		return
	}

	resp, err := h.svc.Append(c.Request.Context(), c.Param("id"), &req, userID)
	if err != nil {
		handleInterventionError(c, err)
		return
	}
	response.OK(c, resp)
}

// handleInterventionError 干预任务模块错误映射
func handleInterventionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInterventionNotFound):
		response.NotFound(c, 16001, err.Error())
	case errors.Is(err, service.ErrInterventionCodeExists):
		response.Conflict(c, 16002, err.Error())
	case errors.Is(err, service.ErrSiteNotFound):
		response.NotFound(c, 16003, err.Error())
	case errors.Is(err, service.ErrContractNotFound):
		response.NotFound(c, 16004, err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		response.Conflict(c, 16005, err.Error())
	case errors.Is(err, service.ErrDuplicateCheckpoint):
		response.Conflict(c, 16006, err.Error())
	case errors.Is(err, service.ErrGpsOutOfRange):
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, 16007, "定位超出站点围栏", err.Error())
	case errors.Is(err, service.ErrConcurrentActiveJob):
		response.Conflict(c, 16008, err.Error())
	case errors.Is(err, service.ErrPermissionDenied):
		response.Forbidden(c, 16009, err.Error())
	case errors.Is(err, service.ErrInvalidShiftState):
		response.Conflict(c, 17003, err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 16010, err.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/intervention_handler.go
