package dto

// ── 考勤模块 DTO ──

// ClockInRequest 上班打卡请求（坐标可选，设备无定位时允许缺省）
type ClockInRequest struct {
	Latitude  *float64 `json:"latitude"  binding:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
}

// PauseShiftRequest 开始休息请求
type PauseShiftRequest struct {
	Reason    string `json:"reason"     binding:"omitempty,max=200"`
	BreakType string `json:"break_type" binding:"omitempty,oneof=paid unpaid"`
}

// DailySummaryRequest 当日汇总查询参数
type DailySummaryRequest struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"` // 缺省为今天（UTC）
}

// ── 响应 ──

// ShiftBreakResponse 休息段响应
type ShiftBreakResponse struct {
	ID        string  `json:"id"`
	BreakType string  `json:"break_type"`
	Reason    string  `json:"reason,omitempty"`
	StartedAt string  `json:"started_at"`
	EndedAt   *string `json:"ended_at,omitempty"`
	Minutes   int     `json:"minutes"`
}

// ShiftResponse 班次响应
type ShiftResponse struct {
	ID             string               `json:"id"`
	AgentID        string               `json:"agent_id"`
	Status         string               `json:"status"`
	ClockInAt      string               `json:"clock_in_at"`
	ClockOutAt     *string              `json:"clock_out_at,omitempty"`
	LastHeartbeat  string               `json:"last_heartbeat"`
	BreakMinutes   int                  `json:"break_minutes"`
	ForcedClockOut bool                 `json:"forced_clock_out"`
	Breaks         []ShiftBreakResponse `json:"breaks,omitempty"`
}

// DailySummaryResponse 当日考勤汇总（派生数据，不落库）
type DailySummaryResponse struct {
	AgentID        string `json:"agent_id"`
	Date           string `json:"date"`
	WorkedMinutes  int    `json:"worked_minutes"` // 含休息的总在班分钟数
	BreakMinutes   int    `json:"break_minutes"`
	NetWorkMinutes int    `json:"net_work_minutes"`
	CurrentStatus  string `json:"current_status"` // on_shift | on_break | off
	ShiftCount     int    `json:"shift_count"`
}
