package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/model"
)

// SiteRepository 站点数据访问接口（站点目录协作方的本地投影）
type SiteRepository interface {
	GetByID(ctx context.Context, id string) (*model.Site, error)
	List(ctx context.Context, clientID string) ([]model.Site, error)
}

// ContractRepository 合同数据访问接口
type ContractRepository interface {
	GetByID(ctx context.Context, id string) (*model.Contract, error)
}

// ── Site Repository 实现 ──

type siteRepo struct {
	db *gorm.DB
}

func NewSiteRepo(db *gorm.DB) SiteRepository {
	return &siteRepo{db: db}
}

func (r *siteRepo) GetByID(ctx context.Context, id string) (*model.Site, error) {
	var site model.Site
	err := r.db.WithContext(ctx).
		Preload("Client").
		Where("site_id = ?", id).
		First(&site).Error
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *siteRepo) List(ctx context.Context, clientID string) ([]model.Site, error) {
	var sites []model.Site
	q := r.db.WithContext(ctx).Where("is_active = true")
	if clientID != "" {
		q = q.Where("client_id = ?", clientID)
	}
	err := q.Order("name ASC").Find(&sites).Error
	return sites, err
}

// ── Contract Repository 实现 ──

type contractRepo struct {
	db *gorm.DB
}

func NewContractRepo(db *gorm.DB) ContractRepository {
	return &contractRepo{db: db}
}

func (r *contractRepo) GetByID(ctx context.Context, id string) (*model.Contract, error) {
	var contract model.Contract
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Site").
		Where("contract_id = ?", id).
		First(&contract).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}
