package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/model"
)

// NotificationRepository 告警通知数据访问接口
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, offset, limit int) ([]model.Notification, int64, error)
}

type notificationRepo struct {
	db *gorm.DB
}

func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepo) ListByRecipient(ctx context.Context, recipientID string, offset, limit int) ([]model.Notification, int64, error) {
	var ns []model.Notification
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("recipient_id = ?", recipientID)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&ns).Error
	return ns, total, err
}
