package model

import "time"

// 通知事件类型
const (
	NotificationAutoClockOut = "auto_clock_out"
	NotificationStatusChange = "status_change"
)

// Notification 告警通知表 — 对应 notifications
// 仅负责落库供主管查询；实际投递由外部系统消费 Redis 事件完成
type Notification struct {
	NotificationID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	RecipientID    string    `gorm:"type:uuid;not null"                             json:"recipient_id"`
	AgentID        string    `gorm:"type:uuid;not null"                             json:"agent_id"`
	Kind           string    `gorm:"type:varchar(50);not null"                      json:"kind"`
	Payload        string    `gorm:"type:jsonb"                                     json:"payload,omitempty"`
	IsRead         bool      `gorm:"not null;default:false"                         json:"is_read"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }
