package model

// Site 站点表 — 对应 sites
// 站点登记的经纬度与围栏半径供 GPS 校验使用；
// RadiusMeters 为空时使用部署级默认半径（engine.default_site_radius_m）
type Site struct {
	SiteID       string   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"site_id"`
	ClientID     string   `gorm:"type:uuid;not null"                             json:"client_id"`
	Name         string   `gorm:"type:varchar(150);not null"                     json:"name"`
	Address      string   `gorm:"type:varchar(255)"                              json:"address,omitempty"`
	Latitude     float64  `gorm:"not null"                                       json:"latitude"`
	Longitude    float64  `gorm:"not null"                                       json:"longitude"`
	RadiusMeters *float64 `json:"radius_meters,omitempty"`
	IsActive     bool     `gorm:"not null;default:true"                          json:"is_active"`
	SoftDeleteModel

	// 关联
	Client *Client `gorm:"foreignKey:ClientID;references:ClientID" json:"client,omitempty"`
}

// TableName 指定表名
func (Site) TableName() string { return "sites" }

