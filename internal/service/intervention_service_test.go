package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/dto"
	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/model"
	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/repository"
)

// ── 测试辅助 ──

const (
	testSiteID     = "11111111-1111-1111-1111-111111111111"
	testContractID = "22222222-2222-2222-2222-222222222222"
	testAgentID    = "33333333-3333-3333-3333-333333333333"
)

func setupTestInterventionService(start time.Time) (InterventionService, ShiftService, *repository.Repository, *fakeClock) {
	repo, _, _ := newMockRepository()
	clock := newFakeClock(start)
	logger := zap.NewNop()

	radius := 50.0
	repo.Site.(*mockSiteRepo).sites[testSiteID] = &model.Site{
		SiteID:       testSiteID,
		ClientID:     "client-001",
		Name:         "Tour Ville-Marie",
		Latitude:     45.0,
		Longitude:    -73.0,
		RadiusMeters: &radius,
		IsActive:     true,
	}
	repo.Contract.(*mockContractRepo).contracts[testContractID] = &model.Contract{
		ContractID: testContractID,
		ClientID:   "client-001",
	}

	shiftSvc := NewShiftService(repo, clock, logger)
	svc := NewInterventionService(repo, shiftSvc, clock, NewNopNotifier(), 0, 100, logger)
	return svc, shiftSvc, repo, clock
}

// seedIntervention 直接写入一条 scheduled 任务
func seedIntervention(repo *repository.Repository, code string, date time.Time, start, end string) *model.Intervention {
	iv := &model.Intervention{
		Code:           code,
		SiteID:         testSiteID,
		ContractID:     testContractID,
		AgentIDs:       model.StringArray{testAgentID},
		ScheduledDate:  date,
		ScheduledStart: start,
		ScheduledEnd:   end,
		Status:         model.InterventionScheduled,
		Photos:         model.StringArray{},
	}
	repo.Intervention.Create(context.Background(), iv)
	return iv
}

// ── Create 测试 ──

func TestInterventionService_Create_Success(t *testing.T) {
	svc, _, _, _ := setupTestInterventionService(utc(2024, 5, 30, 8, 0))

	req := &dto.CreateInterventionRequest{
		Code:           "INT-001",
		SiteID:         testSiteID,
		ContractID:     testContractID,
		AgentIDs:       []string{testAgentID},
		ScheduledDate:  "2024-06-01",
		ScheduledStart: "08:00",
		ScheduledEnd:   "10:00",
	}

	result, err := svc.Create(context.Background(), req, "planner-001")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if result.Status != model.InterventionScheduled {
		t.Errorf("期望状态=scheduled，实际=%s", result.Status)
	}
	if result.Code != "INT-001" {
		t.Errorf("期望编号=INT-001，实际=%s", result.Code)
	}
}

func TestInterventionService_Create_DuplicateCode(t *testing.T) {
	svc, _, repo, _ := setupTestInterventionService(utc(2024, 5, 30, 8, 0))
	seedIntervention(repo, "INT-001", utc(2024, 6, 1, 0, 0), "08:00", "10:00")

	req := &dto.CreateInterventionRequest{
		Code:           "INT-001",
		SiteID:         testSiteID,
		ContractID:     testContractID,
		ScheduledDate:  "2024-06-02",
		ScheduledStart: "08:00",
		ScheduledEnd:   "10:00",
	}
	if _, err := svc.Create(context.Background(), req, "planner-001"); !errors.Is(err, ErrInterventionCodeExists) {
		t.Errorf("期望 ErrInterventionCodeExists，实际=%v", err)
	}
}

// ── 完整场景：INT-001 ──

func TestInterventionService_FullLifecycle(t *testing.T) {
	// INT-001：2024-06-01 08:00–10:00，站点围栏 50 米 @ (45.0, -73.0)
	svc, shiftSvc, repo, clock := setupTestInterventionService(utc(2024, 6, 1, 7, 58))
	ctx := context.Background()
	iv := seedIntervention(repo, "INT-001", utc(2024, 6, 1, 0, 0), "08:00", "10:00")

	// 07:58 人员上班打卡（班次创建，active）
	if _, err := shiftSvc.ClockIn(ctx, testAgentID, nil); err != nil {
		t.Fatalf("ClockIn 应成功: %v", err)
	}

	// 08:00 开始任务 → in_progress
	clock.Set(utc(2024, 6, 1, 8, 0))
	result, err := svc.Start(ctx, iv.InterventionID, testAgentID)
	if err != nil {
		t.Fatalf("Start 应成功: %v", err)
	}
	if result.Status != model.InterventionInProgress {
		t.Errorf("期望状态=in_progress，实际=%s", result.Status)
	}
	if result.ActualStartTime == nil {
		t.Error("ActualStartTime 应已设置")
	}

	// GPS 签到 (45.00001, -73.00001, accuracy 5) → 接受
	clock.Set(utc(2024, 6, 1, 8, 2))
	result, err = svc.CheckIn(ctx, iv.InterventionID, testAgentID, &dto.GpsCheckpointRequest{
		Latitude: 45.00001, Longitude: -73.00001, Accuracy: 5,
	})
	if err != nil {
		t.Fatalf("CheckIn 应成功: %v", err)
	}
	if result.CheckIn == nil {
		t.Fatal("签到检查点应已记录")
	}

	// GPS 签退（同坐标）→ 接受
	clock.Set(utc(2024, 6, 1, 9, 55))
	result, err = svc.CheckOut(ctx, iv.InterventionID, testAgentID, &dto.GpsCheckpointRequest{
		Latitude: 45.00001, Longitude: -73.00001, Accuracy: 5,
	})
	if err != nil {
		t.Fatalf("CheckOut 应成功: %v", err)
	}
	if result.CheckOut == nil {
		t.Fatal("签退检查点应已记录")
	}

	// 完成 → completed，ActualEndTime 设置
	clock.Set(utc(2024, 6, 1, 10, 0))
	result, err = svc.Complete(ctx, iv.InterventionID, testAgentID)
	if err != nil {
		t.Fatalf("Complete 应成功: %v", err)
	}
	if result.Status != model.InterventionCompleted {
		t.Errorf("期望状态=completed，实际=%s", result.Status)
	}
	if result.ActualEndTime == nil {
		t.Error("ActualEndTime 应已设置")
	}

	// 重复完成 → InvalidTransition
	if _, err := svc.Complete(ctx, iv.InterventionID, testAgentID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("期望 ErrInvalidTransition，实际=%v", err)
	}
}

// ── Start 守卫测试 ──

func TestInterventionService_Start_TooEarly(t *testing.T) {
	svc, _, repo, _ := setupTestInterventionService(utc(2024, 6, 1, 7, 0))
	iv := seedIntervention(repo, "INT-002", utc(2024, 6, 1, 0, 0), "08:00", "10:00")

	// 7:00 早于排期开始且提前窗口为 0
	if _, err := svc.Start(context.Background(), iv.InterventionID, testAgentID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("期望 ErrInvalidTransition，实际=%v", err)
	}
}

func TestInterventionService_Start_EarlyWindowAllows(t *testing.T) {
	repo, _, _ := newMockRepository()
	clock := newFakeClock(utc(2024, 6, 1, 7, 45))
	logger := zap.NewNop()
	repo.Site.(*mockSiteRepo).sites[testSiteID] = &model.Site{
		SiteID: testSiteID, ClientID: "client-001", Latitude: 45.0, Longitude: -73.0,
	}
	shiftSvc := NewShiftService(repo, clock, logger)
	// 允许提前 30 分钟开始
	svc := NewInterventionService(repo, shiftSvc, clock, NewNopNotifier(), 30*time.Minute, 100, logger)

	iv := seedIntervention(repo, "INT-003", utc(2024, 6, 1, 0, 0), "08:00", "10:00")
	if _, err := svc.Start(context.Background(), iv.InterventionID, testAgentID); err != nil {
		t.Errorf("提前窗口内 Start 应成功: %v", err)
	}
}

func TestInterventionService_Start_ConcurrentActiveJob(t *testing.T) {
	svc, _, repo, _ := setupTestInterventionService(utc(2024, 6, 1, 8, 0))
	ctx := context.Background()

	first := seedIntervention(repo, "INT-004", utc(2024, 6, 1, 0, 0), "08:00", "10:00")
	second := seedIntervention(repo, "INT-005", utc(2024, 6, 1, 0, 0), "08:00", "12:00")

	if _, err := svc.Start(ctx, first.InterventionID, testAgentID); err != nil {
		t.Fatalf("首个 Start 应成功: %v", err)
	}

	// "一人一活跃任务"
	if _, err := svc.Start(ctx, second.InterventionID, testAgentID); !errors.Is(err, ErrConcurrentActiveJob) {
		t.Errorf("期望 ErrConcurrentActiveJob，实际=%v", err)
	}
}

func TestInterventionService_Start_CreatesShift(t *testing.T) {
	svc, shiftSvc, repo, _ := setupTestInterventionService(utc(2024, 6, 1, 8, 0))
	ctx := context.Background()
	iv := seedIntervention(repo, "INT-006", utc(2024, 6, 1, 0, 0), "08:00", "10:00")

	// 未打卡直接开始任务：班次自动创建
	if _, err := svc.Start(ctx, iv.InterventionID, testAgentID); err != nil {
		t.Fatalf("Start 应成功: %v", err)
	}
	status, err := shiftSvc.GetStatus(ctx, testAgentID)
	if err != nil {
		t.Fatalf("应存在开放班次: %v", err)
	}
	if status.Status != model.ShiftActive {
		t.Errorf("期望班次=active，实际=%s", status.Status)
	}
}

func TestInterventionService_Start_PausedShiftRejected(t *testing.T) {
	svc, shiftSvc, repo, _ := setupTestInterventionService(utc(2024, 6, 1, 8, 0))
	ctx := context.Background()
	iv := seedIntervention(repo, "INT-007", utc(2024, 6, 1, 0, 0), "08:00", "10:00")

	shiftSvc.ClockIn(ctx, testAgentID, nil)
	shiftSvc.Pause(ctx, testAgentID, nil)

	if _, err := svc.Start(ctx, iv.InterventionID, testAgentID); !errors.Is(err, ErrInvalidShiftState) {
		t.Errorf("休息中开始任务应拒绝，实际=%v", err)
	}
}

func TestInterventionService_Start_UnassignedAgent(t *testing.T) {
	svc, _, repo, _ := setupTestInterventionService(utc(2024, 6, 1, 8, 0))
	iv := seedIntervention(repo, "INT-008", utc(2024, 6, 1, 0, 0), "08:00", "10:00")

	if _, err := svc.Start(context.Background(), iv.InterventionID, "intrus-001"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("未指派人员应拒绝，实际=%v", err)
	}
}

// ── 检查点守卫测试 ──

func TestInterventionService_CheckIn_OutOfRange(t *testing.T) {
	svc, _, repo, clock := setupTestInterventionService(utc(2024, 6, 1, 8, 0))
	ctx := context.Background()
	iv := seedIntervention(repo, "INT-009", utc(2024, 6, 1, 0, 0), "08:00", "10:00")

	svc.Start(ctx, iv.InterventionID, testAgentID)
	clock.Set(utc(2024, 6, 1, 8, 5))

	// 约 1.1 公里外
	_, err := svc.CheckIn(ctx, iv.InterventionID, testAgentID, &dto.GpsCheckpointRequest{
		Latitude: 45.01, Longitude: -73.0, Accuracy: 5,
	})
	if !errors.Is(err, ErrGpsOutOfRange) {
		t.Errorf("期望 ErrGpsOutOfRange，实际=%v", err)
	}
}

func TestInterventionService_CheckIn_Duplicate(t *testing.T) {
	svc, _, repo, _ := setupTestInterventionService(utc(2024, 6, 1, 8, 0))
	ctx := context.Background()
	iv := seedIntervention(repo, "INT-010", utc(2024, 6, 1, 0, 0), "08:00", "10:00")

	svc.Start(ctx, iv.InterventionID, testAgentID)
	checkpoint := &dto.GpsCheckpointRequest{Latitude: 45.0, Longitude: -73.0, Accuracy: 5}

	if _, err := svc.CheckIn(ctx, iv.InterventionID, testAgentID, checkpoint); err != nil {
		t.Fatalf("首次 CheckIn 应成功: %v", err)
	}
	if _, err := svc.CheckIn(ctx, iv.InterventionID, testAgentID, checkpoint); !errors.Is(err, ErrDuplicateCheckpoint) {
		t.Errorf("期望 ErrDuplicateCheckpoint，实际=%v", err)
	}
}

func TestInterventionService_CheckOut_BeforeCheckIn(t *testing.T) {
	svc, _, repo, _ := setupTestInterventionService(utc(2024, 6, 1, 8, 0))
	ctx := context.Background()
	iv := seedIntervention(repo, "INT-011", utc(2024, 6, 1, 0, 0), "08:00", "10:00")

	svc.Start(ctx, iv.InterventionID, testAgentID)

	// 签退必须在签到之后
	_, err := svc.CheckOut(ctx, iv.InterventionID, testAgentID, &dto.GpsCheckpointRequest{
		Latitude: 45.0, Longitude: -73.0,
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("期望 ErrInvalidTransition，实际=%v", err)
	}
}

func TestInterventionService_Complete_WithoutCheckpoints(t *testing.T) {
	svc, _, repo, _ := setupTestInterventionService(utc(2024, 6, 1, 8, 0))
	ctx := context.Background()
	iv := seedIntervention(repo, "INT-012", utc(2024, 6, 1, 0, 0), "08:00", "10:00")

	svc.Start(ctx, iv.InterventionID, testAgentID)

	// 签到/签退为推荐非强制（容忍设备故障）
	result, err := svc.Complete(ctx, iv.InterventionID, testAgentID)
	if err != nil {
		t.Fatalf("无检查点 Complete 应成功: %v", err)
	}
	if result.Status != model.InterventionCompleted {
		t.Errorf("期望状态=completed，实际=%s", result.Status)
	}
}

// ── Cancel 测试 ──

func TestInterventionService_Cancel_Scheduled(t *testing.T) {
	svc, _, repo, _ := setupTestInterventionService(utc(2024, 6, 1, 7, 0))
	iv := seedIntervention(repo, "INT-013", utc(2024, 6, 1, 0, 0), "08:00", "10:00")

	result, err := svc.Cancel(context.Background(), iv.InterventionID,
		&dto.CancelInterventionRequest{Reason: "客户改约"}, testAgentID, "agent")
	if err != nil {
		t.Fatalf("排期中任务人员可取消: %v", err)
	}
	if result.Status != model.InterventionCancelled {
		t.Errorf("期望状态=cancelled，实际=%s", result.Status)
	}
	if result.CancelReason == nil || *result.CancelReason != "客户改约" {
		t.Error("取消原因应已记录")
	}
}

func TestInterventionService_Cancel_InProgress_RequiresSupervisor(t *testing.T) {
	svc, _, repo, _ := setupTestInterventionService(utc(2024, 6, 1, 8, 0))
	ctx := context.Background()
	iv := seedIntervention(repo, "INT-014", utc(2024, 6, 1, 0, 0), "08:00", "10:00")

	svc.Start(ctx, iv.InterventionID, testAgentID)

	// 现场人员无权取消进行中任务
	if _, err := svc.Cancel(ctx, iv.InterventionID, nil, testAgentID, "agent"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("期望 ErrPermissionDenied，实际=%v", err)
	}

	// 主管可以
	result, err := svc.Cancel(ctx, iv.InterventionID, nil, "supervisor-001", "supervisor")
	if err != nil {
		t.Fatalf("主管取消应成功: %v", err)
	}
	if result.Status != model.InterventionCancelled {
		t.Errorf("期望状态=cancelled，实际=%s", result.Status)
	}
}

func TestInterventionService_Cancel_Terminal_Fails(t *testing.T) {
	svc, _, repo, _ := setupTestInterventionService(utc(2024, 6, 1, 8, 0))
	ctx := context.Background()
	iv := seedIntervention(repo, "INT-015", utc(2024, 6, 1, 0, 0), "08:00", "10:00")

	svc.Start(ctx, iv.InterventionID, testAgentID)
	svc.Complete(ctx, iv.InterventionID, testAgentID)

	if _, err := svc.Cancel(ctx, iv.InterventionID, nil, "supervisor-001", "supervisor"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("期望 ErrInvalidTransition，实际=%v", err)
	}
}

// ── Reschedule 测试 ──

func TestInterventionService_Reschedule_RoundTrip(t *testing.T) {
	svc, _, repo, _ := setupTestInterventionService(utc(2024, 5, 30, 8, 0))
	iv := seedIntervention(repo, "INT-016", utc(2024, 6, 1, 0, 0), "08:00", "10:00")

	result, err := svc.Reschedule(context.Background(), iv.InterventionID,
		&dto.RescheduleInterventionRequest{
			NewDate: "2024-06-03", NewStart: "09:00", NewEnd: "11:00", Reason: "天气原因",
		}, "planner-001")
	if err != nil {
		t.Fatalf("Reschedule 应成功: %v", err)
	}

	// 旧记录转 rescheduled 留作审计轨迹
	if result.Original.Status != model.InterventionRescheduled {
		t.Errorf("期望原记录状态=rescheduled，实际=%s", result.Original.Status)
	}
	// 新记录 scheduled 且携带回溯引用
	if result.New.Status != model.InterventionScheduled {
		t.Errorf("期望新记录状态=scheduled，实际=%s", result.New.Status)
	}
	if result.New.RescheduledFromID == nil || *result.New.RescheduledFromID != iv.InterventionID {
		t.Error("新记录应引用原记录")
	}
	if result.New.ScheduledDate != "2024-06-03" || result.New.ScheduledStart != "09:00" {
		t.Errorf("新排期不符: %s %s", result.New.ScheduledDate, result.New.ScheduledStart)
	}

	// 原记录不可再改期
	if _, err := svc.Reschedule(context.Background(), iv.InterventionID,
		&dto.RescheduleInterventionRequest{NewDate: "2024-06-05", NewStart: "08:00", NewEnd: "10:00"},
		"planner-001"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("期望 ErrInvalidTransition，实际=%v", err)
	}
}

func TestInterventionService_Reschedule_PastDate_Fails(t *testing.T) {
	svc, _, repo, _ := setupTestInterventionService(utc(2024, 6, 10, 8, 0))
	iv := seedIntervention(repo, "INT-017", utc(2024, 6, 12, 0, 0), "08:00", "10:00")

	// 新排期必须在"现在"之后
	_, err := svc.Reschedule(context.Background(), iv.InterventionID,
		&dto.RescheduleInterventionRequest{NewDate: "2024-06-09", NewStart: "08:00", NewEnd: "10:00"},
		"planner-001")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("期望 ErrInvalidTransition，实际=%v", err)
	}
}

// ── Append 测试 ──

func TestInterventionService_Append_AfterComplete(t *testing.T) {
	svc, _, repo, _ := setupTestInterventionService(utc(2024, 6, 1, 8, 0))
	ctx := context.Background()
	iv := seedIntervention(repo, "INT-018", utc(2024, 6, 1, 0, 0), "08:00", "10:00")

	svc.Start(ctx, iv.InterventionID, testAgentID)
	svc.Complete(ctx, iv.InterventionID, testAgentID)

	rating := 5
	notes := "玻璃幕墙已全部清洁"
	result, err := svc.Append(ctx, iv.InterventionID, &dto.AppendInterventionRequest{
		Photos:       []string{"photos/int-018-1.jpg"},
		Notes:        &notes,
		ClientRating: &rating,
	}, testAgentID)
	if err != nil {
		t.Fatalf("终态后追加应成功: %v", err)
	}
	if len(result.Photos) != 1 {
		t.Errorf("期望 1 张照片，实际=%d", len(result.Photos))
	}
	if result.ClientRating == nil || *result.ClientRating != 5 {
		t.Error("客户评分应已记录")
	}
	if result.Status != model.InterventionCompleted {
		t.Errorf("追加不应改变状态，实际=%s", result.Status)
	}
}

func TestInterventionService_Append_OnScheduled_Fails(t *testing.T) {
	svc, _, repo, _ := setupTestInterventionService(utc(2024, 6, 1, 7, 0))
	iv := seedIntervention(repo, "INT-019", utc(2024, 6, 1, 0, 0), "08:00", "10:00")

	if _, err := svc.Append(context.Background(), iv.InterventionID,
		&dto.AppendInterventionRequest{Photos: []string{"x.jpg"}}, testAgentID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("期望 ErrInvalidTransition，实际=%v", err)
	}
}
