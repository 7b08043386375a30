package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/dto"
	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/service"
	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/pkg/response"
)

// CalendarHandler 排班日历模块 Handler
type CalendarHandler struct {
	svc service.CalendarService
}

// NewCalendarHandler 创建 CalendarHandler 实例
func NewCalendarHandler(svc service.CalendarService) *CalendarHandler {
	return &CalendarHandler{svc: svc}
}

// GetCalendar 日历视图
// GET /api/v1/calendar?start=2024-06-01&end=2024-06-30&view=month
func (h *CalendarHandler) GetCalendar(c *gin.Context) {
	var req dto.CalendarRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 18000, err.Error())
		return
	}

	resp, err := h.svc.GetCalendar(c.Request.Context(), &req)
	if err != nil {
		response.BadRequest(c, 18001, err.Error())
		return
	}
	response.OK(c, resp)
}

// ExportICS iCalendar 订阅导出
// GET /api/v1/calendar/ics?start=2024-06-01&end=2024-06-30
func (h *CalendarHandler) ExportICS(c *gin.Context) {
	var req dto.CalendarRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 18000, err.Error())
		return
	}

	out, err := h.svc.ExportICS(c.Request.Context(), &req)
	if err != nil {
		response.BadRequest(c, 18001, err.Error())
		return
	}

	c.Header("Content-Disposition", `attachment; filename="planning.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(out))
}

