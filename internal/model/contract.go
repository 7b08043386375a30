package model

import "time"

// Contract 合同表 — 对应 contracts（客户与站点的服务约定期）
type Contract struct {
	ContractID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"contract_id"`
	ClientID   string     `gorm:"type:uuid;not null"                             json:"client_id"`
	SiteID     string     `gorm:"type:uuid;not null"                             json:"site_id"`
	Reference  string     `gorm:"type:varchar(50);not null"                      json:"reference"`
	StartsOn   time.Time  `gorm:"type:date;not null"                             json:"starts_on"`
	EndsOn     *time.Time `gorm:"type:date"                                      json:"ends_on,omitempty"`
	IsActive   bool       `gorm:"not null;default:true"                          json:"is_active"`
	SoftDeleteModel

	// 关联
	Client *Client `gorm:"foreignKey:ClientID;references:ClientID" json:"client,omitempty"`
	Site   *Site   `gorm:"foreignKey:SiteID;references:SiteID"     json:"site,omitempty"`
}

// TableName 指定表名
func (Contract) TableName() string { return "contracts" }
