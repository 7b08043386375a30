package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/model"
	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/repository"
	pkgerrors "github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/pkg/errors"
)

// ── 固定时钟 ──

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ── 记录型通知器 ──

type notifyCall struct {
	RecipientID string
	AgentID     string
	Kind        string
	Payload     map[string]interface{}
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *recordingNotifier) Notify(_ context.Context, recipientID, agentID, kind string, payload map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{recipientID, agentID, kind, payload})
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email && u.IsActive {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	stored, ok := m.users[user.UserID]
	if !ok || stored.Version != user.Version {
		return pkgerrors.ErrOptimisticLock
	}
	cp := *user
	cp.Version++
	m.users[user.UserID] = &cp
	user.Version++
	return nil
}

// ── Mock SiteRepository ──

type mockSiteRepo struct {
	sites map[string]*model.Site
}

func newMockSiteRepo() *mockSiteRepo {
	return &mockSiteRepo{sites: make(map[string]*model.Site)}
}

func (m *mockSiteRepo) GetByID(_ context.Context, id string) (*model.Site, error) {
	if s, ok := m.sites[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSiteRepo) List(_ context.Context, clientID string) ([]model.Site, error) {
	var result []model.Site
	for _, s := range m.sites {
		if clientID == "" || s.ClientID == clientID {
			result = append(result, *s)
		}
	}
	return result, nil
}

// ── Mock ContractRepository ──

type mockContractRepo struct {
	contracts map[string]*model.Contract
}

func newMockContractRepo() *mockContractRepo {
	return &mockContractRepo{contracts: make(map[string]*model.Contract)}
}

func (m *mockContractRepo) GetByID(_ context.Context, id string) (*model.Contract, error) {
	if c, ok := m.contracts[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock InterventionRepository ──

type mockInterventionRepo struct {
	seq   int
	items map[string]*model.Intervention
}

func newMockInterventionRepo() *mockInterventionRepo {
	return &mockInterventionRepo{items: make(map[string]*model.Intervention)}
}

func (m *mockInterventionRepo) Create(_ context.Context, iv *model.Intervention) error {
	if iv.InterventionID == "" {
		m.seq++
		iv.InterventionID = fmt.Sprintf("iv-%03d", m.seq)
	}
	if iv.Version == 0 {
		iv.Version = 1
	}
	cp := *iv
	m.items[iv.InterventionID] = &cp
	return nil
}

func (m *mockInterventionRepo) GetByID(_ context.Context, id string) (*model.Intervention, error) {
	if iv, ok := m.items[id]; ok {
		cp := *iv
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInterventionRepo) GetByCode(_ context.Context, code string) (*model.Intervention, error) {
	for _, iv := range m.items {
		if iv.Code == code {
			cp := *iv
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInterventionRepo) List(_ context.Context, f repository.InterventionFilter) ([]model.Intervention, int64, error) {
	var result []model.Intervention
	for _, iv := range m.items {
		if f.SiteID != "" && iv.SiteID != f.SiteID {
			continue
		}
		if f.AgentID != "" && !iv.AgentIDs.Contains(f.AgentID) {
			continue
		}
		if f.Status != "" && iv.Status != f.Status {
			continue
		}
		if f.From != nil && iv.ScheduledDate.Before(*f.From) {
			continue
		}
		if f.To != nil && !iv.ScheduledDate.Before(*f.To) {
			continue
		}
		result = append(result, *iv)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Code < result[j].Code
	})
	return result, int64(len(result)), nil
}

func (m *mockInterventionRepo) ListOpenByAgent(_ context.Context, agentID string) ([]model.Intervention, error) {
	var result []model.Intervention
	for _, iv := range m.items {
		if iv.Status == model.InterventionInProgress && iv.AgentIDs.Contains(agentID) {
			result = append(result, *iv)
		}
	}
	return result, nil
}

func (m *mockInterventionRepo) ListBetween(_ context.Context, from, to time.Time, siteID, agentID string) ([]model.Intervention, error) {
	var result []model.Intervention
	for _, iv := range m.items {
		if iv.ScheduledDate.Before(from) || !iv.ScheduledDate.Before(to) {
			continue
		}
		if siteID != "" && iv.SiteID != siteID {
			continue
		}
		if agentID != "" && !iv.AgentIDs.Contains(agentID) {
			continue
		}
		result = append(result, *iv)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Code < result[j].Code
	})
	return result, nil
}

func (m *mockInterventionRepo) Update(_ context.Context, iv *model.Intervention) error {
	stored, ok := m.items[iv.InterventionID]
	if !ok || stored.Version != iv.Version {
		return pkgerrors.ErrOptimisticLock
	}
	cp := *iv
	cp.Version++
	m.items[iv.InterventionID] = &cp
	iv.Version++
	return nil
}

func (m *mockInterventionRepo) Reschedule(ctx context.Context, old, fresh *model.Intervention) error {
	if err := m.Update(ctx, old); err != nil {
		return err
	}
	return m.Create(ctx, fresh)
}

// ── Mock ShiftRepository ──

type mockShiftRepo struct {
	seq      int
	breakSeq int
	shifts   map[string]*model.Shift
	breaks   map[string]*model.ShiftBreak
}

func newMockShiftRepo() *mockShiftRepo {
	return &mockShiftRepo{
		shifts: make(map[string]*model.Shift),
		breaks: make(map[string]*model.ShiftBreak),
	}
}

func (m *mockShiftRepo) Create(_ context.Context, shift *model.Shift) error {
	if shift.ShiftID == "" {
		m.seq++
		shift.ShiftID = fmt.Sprintf("shift-%03d", m.seq)
	}
	if shift.Version == 0 {
		shift.Version = 1
	}
	cp := *shift
	cp.Breaks = nil
	m.shifts[shift.ShiftID] = &cp
	return nil
}

// withBreaks 返回附带休息段的班次副本（模拟 Preload）
func (m *mockShiftRepo) withBreaks(sh *model.Shift) *model.Shift {
	cp := *sh
	cp.Breaks = nil
	var ids []string
	for id, b := range m.breaks {
		if b.ShiftID == sh.ShiftID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		cp.Breaks = append(cp.Breaks, *m.breaks[id])
	}
	return &cp
}

func (m *mockShiftRepo) GetByID(_ context.Context, id string) (*model.Shift, error) {
	if sh, ok := m.shifts[id]; ok {
		return m.withBreaks(sh), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockShiftRepo) GetOpenByAgent(_ context.Context, agentID string) (*model.Shift, error) {
	for _, sh := range m.shifts {
		if sh.AgentID == agentID && (sh.Status == model.ShiftActive || sh.Status == model.ShiftPaused) {
			return m.withBreaks(sh), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockShiftRepo) ListByAgentBetween(_ context.Context, agentID string, from, to time.Time) ([]model.Shift, error) {
	var result []model.Shift
	for _, sh := range m.shifts {
		if sh.AgentID != agentID {
			continue
		}
		if sh.ClockInAt.Before(from) || !sh.ClockInAt.Before(to) {
			continue
		}
		result = append(result, *m.withBreaks(sh))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ClockInAt.Before(result[j].ClockInAt)
	})
	return result, nil
}

func (m *mockShiftRepo) ListStale(_ context.Context, cutoff time.Time) ([]model.Shift, error) {
	var result []model.Shift
	for _, sh := range m.shifts {
		if (sh.Status == model.ShiftActive || sh.Status == model.ShiftPaused) && sh.LastHeartbeat.Before(cutoff) {
			result = append(result, *m.withBreaks(sh))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastHeartbeat.Before(result[j].LastHeartbeat)
	})
	return result, nil
}

func (m *mockShiftRepo) Update(_ context.Context, shift *model.Shift) error {
	stored, ok := m.shifts[shift.ShiftID]
	if !ok || stored.Version != shift.Version {
		return pkgerrors.ErrOptimisticLock
	}
	cp := *shift
	cp.Breaks = nil
	cp.Version++
	m.shifts[shift.ShiftID] = &cp
	shift.Version++
	return nil
}

func (m *mockShiftRepo) CreateBreak(_ context.Context, brk *model.ShiftBreak) error {
	if brk.BreakID == "" {
		m.breakSeq++
		brk.BreakID = fmt.Sprintf("brk-%03d", m.breakSeq)
	}
	cp := *brk
	m.breaks[brk.BreakID] = &cp
	return nil
}

func (m *mockShiftRepo) UpdateBreak(_ context.Context, brk *model.ShiftBreak) error {
	if _, ok := m.breaks[brk.BreakID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *brk
	m.breaks[brk.BreakID] = &cp
	return nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	seq     int
	records []model.Notification
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	if n.NotificationID == "" {
		m.seq++
		n.NotificationID = fmt.Sprintf("ntf-%03d", m.seq)
	}
	m.records = append(m.records, *n)
	return nil
}

func (m *mockNotificationRepo) ListByRecipient(_ context.Context, recipientID string, offset, limit int) ([]model.Notification, int64, error) {
	var result []model.Notification
	for _, n := range m.records {
		if n.RecipientID == recipientID {
			result = append(result, n)
		}
	}
	total := int64(len(result))
	if offset > len(result) {
		offset = len(result)
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, total, nil
}

// ── 组装 ──

func newMockRepository() (*repository.Repository, *mockInterventionRepo, *mockShiftRepo) {
	ivRepo := newMockInterventionRepo()
	shiftRepo := newMockShiftRepo()
	repo := &repository.Repository{
		User:         newMockUserRepo(),
		Site:         newMockSiteRepo(),
		Contract:     newMockContractRepo(),
		Intervention: ivRepo,
		Shift:        shiftRepo,
		Notification: newMockNotificationRepo(),
	}
	return repo, ivRepo, shiftRepo
}
