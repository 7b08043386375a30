package handler

import (
	"time"

	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/service"
	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/pkg/redis"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Intervention *InterventionHandler
	Shift        *ShiftHandler
	Calendar     *CalendarHandler
	Export       *ExportHandler
	Notification *NotificationHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, rdb *redis.Client, accessTTL time.Duration) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth, rdb, accessTTL),
		Intervention: NewInterventionHandler(svc.Intervention),
		Shift:        NewShiftHandler(svc.Shift),
		Calendar:     NewCalendarHandler(svc.Calendar),
		Export:       NewExportHandler(svc.Export),
		Notification: NewNotificationHandler(svc.Notification),
	}
}

