package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/model"
	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/repository"
	pkgredis "github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/pkg/redis"
)

// Notifier 告警通知出口
// fire-and-forget：发送失败不得影响主流程，实现方只记日志
type Notifier interface {
	Notify(ctx context.Context, recipientID, agentID, kind string, payload map[string]interface{})
}

// ── Redis + 落库实现 ──

type redisNotifier struct {
	rdb     *pkgredis.Client
	repo    *repository.Repository
	channel string
	logger  *zap.Logger
}

// NewRedisNotifier 创建告警通知器：事件发布到 Redis 频道并落库留痕
func NewRedisNotifier(rdb *pkgredis.Client, repo *repository.Repository, channel string, logger *zap.Logger) Notifier {
	return &redisNotifier{rdb: rdb, repo: repo, channel: channel, logger: logger}
}

func (n *redisNotifier) Notify(ctx context.Context, recipientID, agentID, kind string, payload map[string]interface{}) {
	// 落库留痕，供站内通知列表查询
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("{}")
	}
	record := &model.Notification{
		RecipientID: recipientID,
		AgentID:     agentID,
		Kind:        kind,
		Payload:     string(raw),
	}
	if err := n.repo.Notification.Create(ctx, record); err != nil {
		n.logger.Error("通知落库失败",
			zap.String("recipient_id", recipientID),
			zap.String("kind", kind),
			zap.Error(err))
	}

	// 发布到 Redis 频道，由外部通知系统（短信/邮件/推送）消费
	if n.rdb == nil {
		return
	}
	ev := pkgredis.Event{
		AgentID: agentID,
		Kind:    kind,
		Payload: payload,
		At:      time.Now().UTC(),
	}
	if err := n.rdb.PublishEvent(ctx, n.channel, ev); err != nil {
		n.logger.Warn("通知事件发布失败",
			zap.String("channel", n.channel),
			zap.String("kind", kind),
			zap.Error(err))
	}
}

// ── 空实现（测试与 Redis 降级运行用）──

type nopNotifier struct{}

// NewNopNotifier 创建不做任何事的通知器
func NewNopNotifier() Notifier { return nopNotifier{} }

func (nopNotifier) Notify(context.Context, string, string, string, map[string]interface{}) {}
