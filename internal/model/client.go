package model

// Client 客户表 — 对应 clients（清洁服务的甲方公司）
type Client struct {
	ClientID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"client_id"`
	Name     string `gorm:"type:varchar(150);not null"                     json:"name"`
	Contact  string `gorm:"type:varchar(150)"                              json:"contact,omitempty"`
	IsActive bool   `gorm:"not null;default:true"                          json:"is_active"`
	SoftDeleteModel
}

// TableName 指定表名
func (Client) TableName() string { return "clients" }
