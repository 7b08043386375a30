package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/model"
	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/repository"
)

// ── 测试辅助 ──

func setupTestIdleMonitor(start time.Time, threshold time.Duration) (*IdleMonitor, ShiftService, *repository.Repository, *fakeClock, *recordingNotifier) {
	repo, _, _ := newMockRepository()
	clock := newFakeClock(start)
	logger := zap.NewNop()
	notifier := &recordingNotifier{}

	shiftSvc := NewShiftService(repo, clock, logger)
	monitor := NewIdleMonitor(repo, shiftSvc, clock, notifier, threshold, 5*time.Minute, logger)
	return monitor, shiftSvc, repo, clock, notifier
}

// ── Sweep 测试 ──

func TestIdleMonitor_ForceCloseStaleShift(t *testing.T) {
	// 9:00 上班，心跳到 11:00 后停更；阈值 2 小时；13:05 巡检
	monitor, shiftSvc, repo, clock, _ := setupTestIdleMonitor(utc(2024, 6, 1, 9, 0), 2*time.Hour)
	ctx := context.Background()

	opened, _ := shiftSvc.ClockIn(ctx, "agent-001", nil)

	for _, hm := range [][2]int{{9, 30}, {10, 0}, {10, 30}, {11, 0}} {
		clock.Set(utc(2024, 6, 1, hm[0], hm[1]))
		if _, err := shiftSvc.Heartbeat(ctx, "agent-001"); err != nil {
			t.Fatalf("Heartbeat 应成功: %v", err)
		}
	}

	clock.Set(utc(2024, 6, 1, 13, 5))
	closed, failed := monitor.Sweep(ctx)
	if closed != 1 || failed != 0 {
		t.Fatalf("期望 closed=1 failed=0，实际 closed=%d failed=%d", closed, failed)
	}

	shift, err := repo.Shift.GetByID(ctx, opened.ID)
	if err != nil {
		t.Fatalf("查询班次失败: %v", err)
	}
	if shift.Status != model.ShiftCompleted {
		t.Errorf("期望状态=completed，实际=%s", shift.Status)
	}
	// 下班时刻取最后心跳（11:00）而非巡检时刻（13:05）
	if shift.ClockOutAt == nil || !shift.ClockOutAt.Equal(utc(2024, 6, 1, 11, 0)) {
		t.Errorf("期望 clock_out=11:00，实际=%v", shift.ClockOutAt)
	}
	if !shift.ForcedClockOut {
		t.Error("forced_clock_out 标记应已置位")
	}
}

func TestIdleMonitor_FreshHeartbeatUntouched(t *testing.T) {
	monitor, shiftSvc, repo, clock, _ := setupTestIdleMonitor(utc(2024, 6, 1, 9, 0), 2*time.Hour)
	ctx := context.Background()

	opened, _ := shiftSvc.ClockIn(ctx, "agent-001", nil)

	clock.Set(utc(2024, 6, 1, 10, 0))
	shiftSvc.Heartbeat(ctx, "agent-001")

	// 10:00 心跳，11:30 巡检：静默 1.5 小时 < 阈值
	clock.Set(utc(2024, 6, 1, 11, 30))
	closed, _ := monitor.Sweep(ctx)
	if closed != 0 {
		t.Fatalf("阈值内的班次不应关闭，closed=%d", closed)
	}

	shift, _ := repo.Shift.GetByID(ctx, opened.ID)
	if shift.Status != model.ShiftActive {
		t.Errorf("期望状态=active，实际=%s", shift.Status)
	}
}

func TestIdleMonitor_PausedShiftAlsoSwept(t *testing.T) {
	monitor, shiftSvc, repo, clock, _ := setupTestIdleMonitor(utc(2024, 6, 1, 9, 0), 2*time.Hour)
	ctx := context.Background()

	opened, _ := shiftSvc.ClockIn(ctx, "agent-001", nil)
	clock.Set(utc(2024, 6, 1, 10, 0))
	shiftSvc.Heartbeat(ctx, "agent-001")
	shiftSvc.Pause(ctx, "agent-001", nil)

	clock.Set(utc(2024, 6, 1, 14, 0))
	closed, _ := monitor.Sweep(ctx)
	if closed != 1 {
		t.Fatalf("paused 停更班次也应关闭，closed=%d", closed)
	}

	shift, _ := repo.Shift.GetByID(ctx, opened.ID)
	if shift.Status != model.ShiftCompleted {
		t.Errorf("期望状态=completed，实际=%s", shift.Status)
	}
	// 未结束的休息段同步关闭
	if len(shift.Breaks) != 1 || shift.Breaks[0].EndedAt == nil {
		t.Error("开放休息段应已关闭")
	}
}

func TestIdleMonitor_FlagSetExactlyOnce(t *testing.T) {
	monitor, shiftSvc, _, clock, _ := setupTestIdleMonitor(utc(2024, 6, 1, 9, 0), 2*time.Hour)
	ctx := context.Background()

	shiftSvc.ClockIn(ctx, "agent-001", nil)

	clock.Set(utc(2024, 6, 1, 13, 0))
	closed, _ := monitor.Sweep(ctx)
	if closed != 1 {
		t.Fatalf("首轮应关闭 1 条，实际=%d", closed)
	}

	// 第二轮不再有候选：completed 班次不可重复处理
	closed, failed := monitor.Sweep(ctx)
	if closed != 0 || failed != 0 {
		t.Errorf("第二轮不应有动作，closed=%d failed=%d", closed, failed)
	}
}

func TestIdleMonitor_NotifiesSupervisor(t *testing.T) {
	monitor, shiftSvc, repo, clock, notifier := setupTestIdleMonitor(utc(2024, 6, 1, 9, 0), 2*time.Hour)
	ctx := context.Background()

	supervisorID := "supervisor-001"
	repo.User.(*mockUserRepo).users["agent-001"] = &model.User{
		UserID:       "agent-001",
		Name:         "Karim",
		Role:         "agent",
		SupervisorID: &supervisorID,
		IsActive:     true,
	}

	shiftSvc.ClockIn(ctx, "agent-001", nil)
	clock.Set(utc(2024, 6, 1, 13, 0))
	monitor.Sweep(ctx)

	if len(notifier.calls) != 1 {
		t.Fatalf("期望 1 次通知，实际=%d", len(notifier.calls))
	}
	call := notifier.calls[0]
	if call.RecipientID != supervisorID {
		t.Errorf("通知应发给主管 %s，实际=%s", supervisorID, call.RecipientID)
	}
	if call.Kind != model.NotificationAutoClockOut {
		t.Errorf("期望事件类型=auto_clock_out，实际=%s", call.Kind)
	}
}

// ── 部分失败隔离测试 ──

// failingForceClose 包装 ShiftService，对指定班次的 ForceClose 注入失败
type failingForceClose struct {
	ShiftService
	failID string
}

func (f *failingForceClose) ForceClose(ctx context.Context, shiftID string, at time.Time) (*model.Shift, error) {
	if shiftID == f.failID {
		return nil, errors.New("注入的存储故障")
	}
	return f.ShiftService.ForceClose(ctx, shiftID, at)
}

func TestIdleMonitor_PartialFailureIsolation(t *testing.T) {
	repo, _, _ := newMockRepository()
	clock := newFakeClock(utc(2024, 6, 1, 9, 0))
	logger := zap.NewNop()
	shiftSvc := NewShiftService(repo, clock, logger)
	ctx := context.Background()

	first, _ := shiftSvc.ClockIn(ctx, "agent-001", nil)
	second, _ := shiftSvc.ClockIn(ctx, "agent-002", nil)

	monitor := NewIdleMonitor(repo,
		&failingForceClose{ShiftService: shiftSvc, failID: first.ID},
		clock, NewNopNotifier(), 2*time.Hour, 5*time.Minute, logger)

	// 单条失败只记日志并继续处理后续候选
	clock.Set(utc(2024, 6, 1, 13, 0))
	closed, failed := monitor.Sweep(ctx)
	if closed != 1 || failed != 1 {
		t.Fatalf("期望 closed=1 failed=1，实际 closed=%d failed=%d", closed, failed)
	}

	sh, _ := repo.Shift.GetByID(ctx, second.ID)
	if sh.Status != model.ShiftCompleted {
		t.Errorf("未受故障影响的班次应已关闭，实际=%s", sh.Status)
	}
}
