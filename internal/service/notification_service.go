package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/dto"
	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/repository"
)

// NotificationService 站内通知查询接口
// 写入由 Notifier 完成，这里只负责主管端的列表读取
type NotificationService interface {
	List(ctx context.Context, recipientID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error)
}

type notificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

func (s *notificationService) List(ctx context.Context, recipientID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error) {
	ns, total, err := s.repo.Notification.ListByRecipient(ctx, recipientID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询通知列表失败", zap.String("recipient_id", recipientID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.NotificationResponse, 0, len(ns))
	for i := range ns {
		n := &ns[i]
		result = append(result, dto.NotificationResponse{
			ID:        n.NotificationID,
			AgentID:   n.AgentID,
			Kind:      n.Kind,
			Payload:   json.RawMessage(n.Payload),
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return result, total, nil
}
