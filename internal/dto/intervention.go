package dto

// ── 干预任务模块 DTO ──

// CreateInterventionRequest 创建干预任务请求（由排班方调用）
type CreateInterventionRequest struct {
	Code           string   `json:"code"            binding:"required,max=30"`
	SiteID         string   `json:"site_id"         binding:"required,uuid"`
	ContractID     string   `json:"contract_id"     binding:"required,uuid"`
	AgentIDs       []string `json:"agent_ids"       binding:"omitempty,dive,uuid"`
	SupervisorID   *string  `json:"supervisor_id"   binding:"omitempty,uuid"`
	ScheduledDate  string   `json:"scheduled_date"  binding:"required,datetime=2006-01-02"`
	ScheduledStart string   `json:"scheduled_start" binding:"required,datetime=15:04"`
	ScheduledEnd   string   `json:"scheduled_end"   binding:"required,datetime=15:04"`
}

// GpsCheckpointRequest GPS 检查点请求（签到 / 签退共用）
type GpsCheckpointRequest struct {
	Latitude  float64 `json:"latitude"  binding:"required,min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"required,min=-180,max=180"`
	Accuracy  float64 `json:"accuracy"  binding:"omitempty,min=0"` // 设备上报的误差半径（米）
}

// CancelInterventionRequest 取消干预任务请求
type CancelInterventionRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// RescheduleInterventionRequest 改期请求
type RescheduleInterventionRequest struct {
	NewDate  string `json:"new_date"  binding:"required,datetime=2006-01-02"`
	NewStart string `json:"new_start" binding:"required,datetime=15:04"`
	NewEnd   string `json:"new_end"   binding:"required,datetime=15:04"`
	Reason   string `json:"reason"    binding:"omitempty,max=500"`
}

// AppendInterventionRequest 终态后追加内容请求（照片 / 备注 / 评分）
type AppendInterventionRequest struct {
	Photos       []string `json:"photos"        binding:"omitempty,dive,max=255"`
	Notes        *string  `json:"notes"         binding:"omitempty,max=2000"`
	QualityScore *int     `json:"quality_score" binding:"omitempty,min=0,max=100"`
	ClientRating *int     `json:"client_rating" binding:"omitempty,min=1,max=5"`
}

// InterventionListRequest 干预任务列表查询参数
type InterventionListRequest struct {
	SiteID  string `form:"site_id"  binding:"omitempty,uuid"`
	AgentID string `form:"agent_id" binding:"omitempty,uuid"`
	Status  string `form:"status"   binding:"omitempty,oneof=scheduled in_progress completed cancelled rescheduled"`
	From    string `form:"from"     binding:"omitempty,datetime=2006-01-02"`
	To      string `form:"to"       binding:"omitempty,datetime=2006-01-02"`
	PaginationRequest
}

// ── 响应 ──

// GpsCheckpointResponse GPS 检查点响应
type GpsCheckpointResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	At        string  `json:"at"`
}

// InterventionResponse 干预任务响应
type InterventionResponse struct {
	ID                string                 `json:"id"`
	Code              string                 `json:"code"`
	SiteID            string                 `json:"site_id"`
	Site              *SiteBrief             `json:"site,omitempty"`
	ContractID        string                 `json:"contract_id"`
	AgentIDs          []string               `json:"agent_ids"`
	SupervisorID      *string                `json:"supervisor_id,omitempty"`
	ScheduledDate     string                 `json:"scheduled_date"`
	ScheduledStart    string                 `json:"scheduled_start"`
	ScheduledEnd      string                 `json:"scheduled_end"`
	Status            string                 `json:"status"`
	ActualStartTime   *string                `json:"actual_start_time,omitempty"`
	ActualEndTime     *string                `json:"actual_end_time,omitempty"`
	CheckIn           *GpsCheckpointResponse `json:"check_in,omitempty"`
	CheckOut          *GpsCheckpointResponse `json:"check_out,omitempty"`
	Photos            []string               `json:"photos,omitempty"`
	Notes             *string                `json:"notes,omitempty"`
	QualityScore      *int                   `json:"quality_score,omitempty"`
	ClientRating      *int                   `json:"client_rating,omitempty"`
	CancelReason      *string                `json:"cancel_reason,omitempty"`
	RescheduledFromID *string                `json:"rescheduled_from_id,omitempty"`
	CreatedAt         string                 `json:"created_at"`
	UpdatedAt         string                 `json:"updated_at"`
}

// RescheduleResponse 改期响应：旧记录转为 rescheduled，新记录携带回溯引用
type RescheduleResponse struct {
	Original *InterventionResponse `json:"original"`
	New      *InterventionResponse `json:"new"`
}
