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

// ── 干预任务模块业务错误 ──

var (
	ErrInterventionNotFound   = errors.New("干预任务不存在")
	ErrInterventionCodeExists = errors.New("任务编号已存在")
	ErrSiteNotFound           = errors.New("站点不存在")
	ErrContractNotFound       = errors.New("合同不存在")
	ErrInvalidTransition      = errors.New("当前状态不允许该操作")
	ErrDuplicateCheckpoint    = errors.New("GPS 检查点已记录，不能重复提交")
	ErrGpsOutOfRange          = errors.New("您距离站点过远，无法完成定位打卡")
	ErrConcurrentActiveJob    = errors.New("您已有进行中的任务，请先完成或取消")
	ErrPermissionDenied       = errors.New("没有执行该操作的权限")
)

// InterventionService 干预任务生命周期控制器
//
// 状态机：scheduled → in_progress → completed；scheduled/in_progress 可取消；
// scheduled 可改期（旧记录转 rescheduled + 新建 scheduled，原子提交）。
// 所有转换采用"重读-断言-条件写"：提交前重读实体与相关集合，
// 写入按 version 条件执行，竞争失败上抛 ErrOptimisticLock。
type InterventionService interface {
	Create(ctx context.Context, req *dto.CreateInterventionRequest, callerID string) (*dto.InterventionResponse, error)
	GetByID(ctx context.Context, id string) (*dto.InterventionResponse, error)
	List(ctx context.Context, req *dto.InterventionListRequest) ([]dto.InterventionResponse, int64, error)

	Start(ctx context.Context, id, agentID string) (*dto.InterventionResponse, error)
	CheckIn(ctx context.Context, id, agentID string, req *dto.GpsCheckpointRequest) (*dto.InterventionResponse, error)
	CheckOut(ctx context.Context, id, agentID string, req *dto.GpsCheckpointRequest) (*dto.InterventionResponse, error)
	Complete(ctx context.Context, id, agentID string) (*dto.InterventionResponse, error)
	Cancel(ctx context.Context, id string, req *dto.CancelInterventionRequest, callerID, callerRole string) (*dto.InterventionResponse, error)
	Reschedule(ctx context.Context, id string, req *dto.RescheduleInterventionRequest, callerID string) (*dto.RescheduleResponse, error)
	Append(ctx context.Context, id string, req *dto.AppendInterventionRequest, callerID string) (*dto.InterventionResponse, error)
}

type interventionService struct {
	repo             *repository.Repository
	shifts           ShiftService
	clock            Clock
	notifier         Notifier
	earlyStartWindow time.Duration
	defaultRadiusM   float64
	logger           *zap.Logger
}

// NewInterventionService 创建 InterventionService 实例
func NewInterventionService(
	repo *repository.Repository,
	shifts ShiftService,
	clock Clock,
	notifier Notifier,
	earlyStartWindow time.Duration,
	defaultRadiusM float64,
	logger *zap.Logger,
) InterventionService {
	return &interventionService{
		repo:             repo,
		shifts:           shifts,
		clock:            clock,
		notifier:         notifier,
		earlyStartWindow: earlyStartWindow,
		defaultRadiusM:   defaultRadiusM,
		logger:           logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *interventionService) Create(ctx context.Context, req *dto.CreateInterventionRequest, callerID string) (*dto.InterventionResponse, error) {
	// 任务编号全局唯一
	if _, err := s.repo.Intervention.GetByCode(ctx, req.Code); err == nil {
		return nil, ErrInterventionCodeExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if _, err := s.repo.Site.GetByID(ctx, req.SiteID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSiteNotFound
		}
		return nil, err
	}
	if _, err := s.repo.Contract.GetByID(ctx, req.ContractID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}

	date, err := time.Parse("2006-01-02", req.ScheduledDate)
	if err != nil {
		return nil, err
	}

	iv := &model.Intervention{
		Code:           req.Code,
		SiteID:         req.SiteID,
		ContractID:     req.ContractID,
		AgentIDs:       model.StringArray(req.AgentIDs),
		SupervisorID:   req.SupervisorID,
		ScheduledDate:  date,
		ScheduledStart: req.ScheduledStart,
		ScheduledEnd:   req.ScheduledEnd,
		Status:         model.InterventionScheduled,
		Photos:         model.StringArray{},
	}
	if iv.AgentIDs == nil {
		iv.AgentIDs = model.StringArray{}
	}
	iv.CreatedBy = &callerID
	iv.UpdatedBy = &callerID

	if err := s.repo.Intervention.Create(ctx, iv); err != nil {
		s.logger.Error("创建干预任务失败", zap.String("code", req.Code), zap.Error(err))
		return nil, err
	}

	created, err := s.repo.Intervention.GetByID(ctx, iv.InterventionID)
	if err != nil {
		return nil, err
	}
	return toInterventionResponse(created), nil
}

// ────────────────────── 查询 ──────────────────────

func (s *interventionService) GetByID(ctx context.Context, id string) (*dto.InterventionResponse, error) {
	iv, err := s.getIntervention(ctx, id)
	if err != nil {
		return nil, err
	}
	return toInterventionResponse(iv), nil
}

func (s *interventionService) List(ctx context.Context, req *dto.InterventionListRequest) ([]dto.InterventionResponse, int64, error) {
	f := repository.InterventionFilter{
		SiteID:  req.SiteID,
		AgentID: req.AgentID,
		Status:  req.Status,
		Offset:  req.GetOffset(),
		Limit:   req.GetPageSize(),
	}
	if req.From != "" {
		from, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			return nil, 0, err
		}
		f.From = &from
	}
	if req.To != "" {
		to, err := time.Parse("2006-01-02", req.To)
		if err != nil {
			return nil, 0, err
		}
		f.To = &to
	}

	ivs, total, err := s.repo.Intervention.List(ctx, f)
	if err != nil {
		s.logger.Error("查询干预任务列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.InterventionResponse, 0, len(ivs))
	for i := range ivs {
		result = append(result, *toInterventionResponse(&ivs[i]))
	}
	return result, total, nil
}

// ────────────────────── Start ──────────────────────

func (s *interventionService) Start(ctx context.Context, id, agentID string) (*dto.InterventionResponse, error) {
	iv, err := s.getIntervention(ctx, id)
	if err != nil {
		return nil, err
	}

	if iv.Status != model.InterventionScheduled {
		return nil, ErrInvalidTransition
	}
	if len(iv.AgentIDs) > 0 && !iv.AgentIDs.Contains(agentID) {
		return nil, ErrPermissionDenied
	}

	// 提前开始窗口守卫：now ≥ 排期开始 − 窗口
	now := s.clock.Now()
	if now.Before(iv.ScheduledStartAt().Add(-s.earlyStartWindow)) {
		return nil, ErrInvalidTransition
	}

	// "一人一活跃任务"：提交前重读该人员的 in_progress 集合
	open, err := s.repo.Intervention.ListOpenByAgent(ctx, agentID)
	if err != nil {
		s.logger.Error("查询进行中任务失败", zap.String("agent_id", agentID), zap.Error(err))
		return nil, err
	}
	if len(open) > 0 {
		return nil, ErrConcurrentActiveJob
	}

	// 副作用：确认或创建 active 班次（一个班次可服务多个任务）
	if _, err := s.shifts.EnsureActiveShift(ctx, agentID); err != nil {
		return nil, err
	}

	iv.Status = model.InterventionInProgress
	iv.ActualStartTime = &now
	iv.UpdatedBy = &agentID

	if err := s.repo.Intervention.Update(ctx, iv); err != nil {
		return nil, err
	}

	s.logger.Info("干预任务开始",
		zap.String("intervention_id", iv.InterventionID),
		zap.String("code", iv.Code),
		zap.String("agent_id", agentID))

	return toInterventionResponse(iv), nil
}

// ────────────────────── CheckIn / CheckOut ──────────────────────

func (s *interventionService) CheckIn(ctx context.Context, id, agentID string, req *dto.GpsCheckpointRequest) (*dto.InterventionResponse, error) {
	iv, err := s.getIntervention(ctx, id)
	if err != nil {
		return nil, err
	}

	if iv.Status != model.InterventionInProgress {
		return nil, ErrInvalidTransition
	}
	if iv.CheckinAt != nil {
		return nil, ErrDuplicateCheckpoint
	}

	site, err := s.resolveSite(ctx, iv)
	if err != nil {
		return nil, err
	}

	radius := s.defaultRadiusM
	if site.RadiusMeters != nil {
		radius = *site.RadiusMeters
	}

	ok, dist := ValidateGPS(req.Latitude, req.Longitude, site.Latitude, site.Longitude, radius, req.Accuracy)
	if !ok {
		s.logger.Warn("GPS 签到超出围栏",
			zap.String("intervention_id", iv.InterventionID),
			zap.Float64("distance_m", dist),
			zap.Float64("radius_m", radius),
			zap.Float64("accuracy_m", req.Accuracy))
		return nil, ErrGpsOutOfRange
	}

	now := s.clock.Now()
	iv.CheckinLat = &req.Latitude
	iv.CheckinLng = &req.Longitude
	iv.CheckinAt = &now
	iv.UpdatedBy = &agentID

	if err := s.repo.Intervention.Update(ctx, iv); err != nil {
		return nil, err
	}
	return toInterventionResponse(iv), nil
}

// CheckOut 记录离场检查点。签退坐标仅记录不校验围栏：
// 人员可能在站点边界外（停车场等）完成签退
func (s *interventionService) CheckOut(ctx context.Context, id, agentID string, req *dto.GpsCheckpointRequest) (*dto.InterventionResponse, error) {
	iv, err := s.getIntervention(ctx, id)
	if err != nil {
		return nil, err
	}

	if iv.Status != model.InterventionInProgress {
		return nil, ErrInvalidTransition
	}
	if iv.CheckinAt == nil {
		return nil, ErrInvalidTransition // 签退必须在签到之后
	}
	if iv.CheckoutAt != nil {
		return nil, ErrDuplicateCheckpoint
	}

	now := s.clock.Now()
	iv.CheckoutLat = &req.Latitude
	iv.CheckoutLng = &req.Longitude
	iv.CheckoutAt = &now
	iv.UpdatedBy = &agentID

	if err := s.repo.Intervention.Update(ctx, iv); err != nil {
		return nil, err
	}
	return toInterventionResponse(iv), nil
}

// ────────────────────── Complete ──────────────────────

// Complete 完成任务。签到/签退为推荐而非强制，容忍设备故障
func (s *interventionService) Complete(ctx context.Context, id, agentID string) (*dto.InterventionResponse, error) {
	iv, err := s.getIntervention(ctx, id)
	if err != nil {
		return nil, err
	}

	if iv.Status != model.InterventionInProgress {
		return nil, ErrInvalidTransition
	}

	now := s.clock.Now()
	iv.Status = model.InterventionCompleted
	iv.ActualEndTime = &now
	iv.UpdatedBy = &agentID

	if err := s.repo.Intervention.Update(ctx, iv); err != nil {
		return nil, err
	}

	s.logger.Info("干预任务完成",
		zap.String("intervention_id", iv.InterventionID),
		zap.String("code", iv.Code))

	s.notifyStatusChange(ctx, iv, agentID)

	return toInterventionResponse(iv), nil
}

// ────────────────────── Cancel ──────────────────────

func (s *interventionService) Cancel(ctx context.Context, id string, req *dto.CancelInterventionRequest, callerID, callerRole string) (*dto.InterventionResponse, error) {
	iv, err := s.getIntervention(ctx, id)
	if err != nil {
		return nil, err
	}

	switch iv.Status {
	case model.InterventionScheduled:
		// 已记录 GPS 检查点的排期任务不可直接取消
		if iv.CheckinAt != nil || iv.CheckoutAt != nil {
			return nil, ErrInvalidTransition
		}
	case model.InterventionInProgress:
		// 进行中任务只允许监督员及以上取消
		if callerRole != "supervisor" && callerRole != "admin" {
			return nil, ErrPermissionDenied
		}
	default:
		return nil, ErrInvalidTransition
	}

	iv.Status = model.InterventionCancelled
	if req != nil && req.Reason != "" {
		iv.CancelReason = &req.Reason
	}
	iv.UpdatedBy = &callerID

	if err := s.repo.Intervention.Update(ctx, iv); err != nil {
		return nil, err
	}

	s.logger.Info("干预任务取消",
		zap.String("intervention_id", iv.InterventionID),
		zap.String("code", iv.Code),
		zap.String("caller_id", callerID))

	s.notifyStatusChange(ctx, iv, callerID)

	return toInterventionResponse(iv), nil
}

// ────────────────────── Reschedule ──────────────────────

// Reschedule 改期：旧记录转 rescheduled 留作审计轨迹，
// 新建 scheduled 记录携带回溯引用，两笔写入原子提交
func (s *interventionService) Reschedule(ctx context.Context, id string, req *dto.RescheduleInterventionRequest, callerID string) (*dto.RescheduleResponse, error) {
	iv, err := s.getIntervention(ctx, id)
	if err != nil {
		return nil, err
	}

	if iv.Status != model.InterventionScheduled {
		return nil, ErrInvalidTransition
	}

	newDate, err := time.Parse("2006-01-02", req.NewDate)
	if err != nil {
		return nil, err
	}

	// 新排期必须在时钟源的"现在"之后
	fresh := &model.Intervention{
		Code:              iv.Code + "-R",
		SiteID:            iv.SiteID,
		ContractID:        iv.ContractID,
		AgentIDs:          iv.AgentIDs,
		SupervisorID:      iv.SupervisorID,
		ScheduledDate:     newDate,
		ScheduledStart:    req.NewStart,
		ScheduledEnd:      req.NewEnd,
		Status:            model.InterventionScheduled,
		Photos:            model.StringArray{},
		RescheduledFromID: &iv.InterventionID,
	}
	if !fresh.ScheduledStartAt().After(s.clock.Now()) {
		return nil, ErrInvalidTransition
	}
	fresh.CreatedBy = &callerID
	fresh.UpdatedBy = &callerID

	iv.Status = model.InterventionRescheduled
	if req.Reason != "" {
		iv.CancelReason = &req.Reason
	}
	iv.UpdatedBy = &callerID

	if err := s.repo.Intervention.Reschedule(ctx, iv, fresh); err != nil {
		s.logger.Error("干预任务改期失败",
			zap.String("intervention_id", iv.InterventionID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("干预任务改期",
		zap.String("original_id", iv.InterventionID),
		zap.String("new_id", fresh.InterventionID),
		zap.String("new_date", req.NewDate))

	return &dto.RescheduleResponse{
		Original: toInterventionResponse(iv),
		New:      toInterventionResponse(fresh),
	}, nil
}

// ────────────────────── Append ──────────────────────

// Append 终态后补充追加字段（照片、备注、评分）。
// completed / cancelled 记录除这些字段外不可变
func (s *interventionService) Append(ctx context.Context, id string, req *dto.AppendInterventionRequest, callerID string) (*dto.InterventionResponse, error) {
	iv, err := s.getIntervention(ctx, id)
	if err != nil {
		return nil, err
	}

	// 追加仅对已越过 scheduled 的记录有意义
	if iv.Status == model.InterventionScheduled || iv.Status == model.InterventionRescheduled {
		return nil, ErrInvalidTransition
	}

	if len(req.Photos) > 0 {
		iv.Photos = append(iv.Photos, req.Photos...)
	}
	if req.Notes != nil {
		iv.Notes = req.Notes
	}
	if req.QualityScore != nil {
		iv.QualityScore = req.QualityScore
	}
	if req.ClientRating != nil {
		iv.ClientRating = req.ClientRating
	}
	iv.UpdatedBy = &callerID

	if err := s.repo.Intervention.Update(ctx, iv); err != nil {
		return nil, err
	}
	return toInterventionResponse(iv), nil
}

// ── 内部辅助 ──

func (s *interventionService) getIntervention(ctx context.Context, id string) (*model.Intervention, error) {
	iv, err := s.repo.Intervention.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInterventionNotFound
		}
		s.logger.Error("查询干预任务失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return iv, nil
}

func (s *interventionService) resolveSite(ctx context.Context, iv *model.Intervention) (*model.Site, error) {
	if iv.Site != nil {
		return iv.Site, nil
	}
	site, err := s.repo.Site.GetByID(ctx, iv.SiteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSiteNotFound
		}
		return nil, err
	}
	return site, nil
}

// notifyStatusChange 状态变化通知（fire-and-forget）
func (s *interventionService) notifyStatusChange(ctx context.Context, iv *model.Intervention, actorID string) {
	if s.notifier == nil || iv.SupervisorID == nil {
		return
	}
	s.notifier.Notify(ctx, *iv.SupervisorID, actorID, model.NotificationStatusChange, map[string]interface{}{
		"intervention_id": iv.InterventionID,
		"code":            iv.Code,
		"status":          iv.Status,
	})
}

// toInterventionResponse 干预任务模型转响应 DTO
func toInterventionResponse(iv *model.Intervention) *dto.InterventionResponse {
	resp := &dto.InterventionResponse{
		ID:                iv.InterventionID,
		Code:              iv.Code,
		SiteID:            iv.SiteID,
		ContractID:        iv.ContractID,
		AgentIDs:          iv.AgentIDs,
		SupervisorID:      iv.SupervisorID,
		ScheduledDate:     iv.ScheduledDate.Format("2006-01-02"),
		ScheduledStart:    iv.ScheduledStart,
		ScheduledEnd:      iv.ScheduledEnd,
		Status:            iv.Status,
		Photos:            iv.Photos,
		Notes:             iv.Notes,
		QualityScore:      iv.QualityScore,
		ClientRating:      iv.ClientRating,
		CancelReason:      iv.CancelReason,
		RescheduledFromID: iv.RescheduledFromID,
		CreatedAt:         iv.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         iv.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if iv.Site != nil {
		resp.Site = &dto.SiteBrief{
			ID:        iv.Site.SiteID,
			Name:      iv.Site.Name,
			Address:   iv.Site.Address,
			Latitude:  iv.Site.Latitude,
			Longitude: iv.Site.Longitude,
		}
	}
	if iv.ActualStartTime != nil {
		v := iv.ActualStartTime.UTC().Format(time.RFC3339)
		resp.ActualStartTime = &v
	}
	if iv.ActualEndTime != nil {
		v := iv.ActualEndTime.UTC().Format(time.RFC3339)
		resp.ActualEndTime = &v
	}
	if iv.CheckinAt != nil {
		resp.CheckIn = &dto.GpsCheckpointResponse{
			Latitude:  deref(iv.CheckinLat),
			Longitude: deref(iv.CheckinLng),
			At:        iv.CheckinAt.UTC().Format(time.RFC3339),
		}
	}
	if iv.CheckoutAt != nil {
		resp.CheckOut = &dto.GpsCheckpointResponse{
			Latitude:  deref(iv.CheckoutLat),
			Longitude: deref(iv.CheckoutLng),
			At:        iv.CheckoutAt.UTC().Format(time.RFC3339),
		}
	}
	return resp
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// [自证通过] internal/service/intervention_service.go
