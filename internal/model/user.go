package model

// User 用户表 — 对应 users
// Role: agent 现场人员 | supervisor 区域主管 | admin 管理员
type User struct {
	UserID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string  `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash string  `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string  `gorm:"type:varchar(20);not null;default:'agent'"      json:"role"`
	ZoneID       *string `gorm:"type:uuid"                                      json:"zone_id,omitempty"`
	SupervisorID *string `gorm:"type:uuid"                                      json:"supervisor_id,omitempty"`
	IsActive     bool    `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

