package dto

// ── 日历模块 DTO ──

// CalendarRequest 日历查询参数
// View 决定分桶粒度：month/week 按天，day 按小时
type CalendarRequest struct {
	Start   string `form:"start"    binding:"required,datetime=2006-01-02"`
	End     string `form:"end"      binding:"required,datetime=2006-01-02"`
	View    string `form:"view"     binding:"omitempty,oneof=month week day"`
	SiteID  string `form:"site_id"  binding:"omitempty,uuid"`
	AgentID string `form:"agent_id" binding:"omitempty,uuid"`
}

// CalendarCellResponse 一个日历单元格（某天或某小时）
type CalendarCellResponse struct {
	Date          string                 `json:"date"`           // "2024-06-01"
	Hour          *int                   `json:"hour,omitempty"` // 仅 day 视图
	Interventions []InterventionResponse `json:"interventions"`
}

// CalendarResponse 日历响应：按时间升序的单元格序列
type CalendarResponse struct {
	View  string                 `json:"view"`
	Start string                 `json:"start"`
	End   string                 `json:"end"`
	Cells []CalendarCellResponse `json:"cells"`
}
