package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/service"
	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/pkg/response"
)

// ExportHandler 导出模块 Handler
type ExportHandler struct {
	svc service.ExportService
}

// NewExportHandler 创建 ExportHandler 实例
func NewExportHandler(svc service.ExportService) *ExportHandler {
	return &ExportHandler{svc: svc}
}

// ExportAttendance 导出考勤明细 Excel
// GET /api/v1/exports/attendance?agent_id=xxx&from=2024-06-01&to=2024-06-30
func (h *ExportHandler) ExportAttendance(c *gin.Context) {
	agentID := c.Query("agent_id")
	if agentID == "" {
		response.BadRequest(c, 19000, "缺少 agent_id 参数")
		return
	}

	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		response.BadRequest(c, 19000, "from 日期格式应为 YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		response.BadRequest(c, 19000, "to 日期格式应为 YYYY-MM-DD")
		return
	}
	if to.Before(from) {
		response.BadRequest(c, 19000, "to 不能早于 from")
		return
	}

	buf, filename, err := h.svc.ExportAttendance(c.Request.Context(), agentID, from, to)
	if err != nil {
		handleExportError(c, err)
		return
	}

	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(filename)))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}

// handleExportError 导出模块错误映射
func handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoShifts):
		response.NotFound(c, 19001, err.Error())
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}

