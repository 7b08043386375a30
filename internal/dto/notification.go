package dto

import "encoding/json"

// NotificationListRequest 通知列表查询参数
type NotificationListRequest struct {
	PaginationRequest
}

// NotificationResponse 告警通知响应
type NotificationResponse struct {
	ID        string          `json:"id"`
	AgentID   string          `json:"agent_id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	IsRead    bool            `json:"is_read"`
	CreatedAt string          `json:"created_at"`
}
