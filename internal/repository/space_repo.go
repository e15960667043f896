package repository

import (
	"context"
	"time"

	"spacebooking/internal/domain"

	"gorm.io/gorm"
)

type SpaceRepository struct {
	db *gorm.DB
}

func NewSpaceRepository(db *gorm.DB) *SpaceRepository {
	return &SpaceRepository{db: db}
}

type spaceModel struct {
	ID               int64     `gorm:"column:id;primaryKey"`
	TenantID         int64     `gorm:"column:tenant_id;not null;index"`
	Name             string    `gorm:"column:name;size:200;not null"`
	Capacity         int       `gorm:"column:capacity"`
	MinStartTime     *string   `gorm:"column:min_start_time;size:5"`
	MinEndTime       *string   `gorm:"column:min_end_time;size:5"`
	RequiresApproval bool      `gorm:"column:requires_approval;not null;default:false"`
	ApproverID       *int64    `gorm:"column:approver_id;index"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (spaceModel) TableName() string { return "spaces" }

func toDomainSpace(m spaceModel) *domain.Space {
	return &domain.Space{
		ID:               m.ID,
		TenantID:         m.TenantID,
		Name:             m.Name,
		Capacity:         m.Capacity,
		MinStartTime:     m.MinStartTime,
		MinEndTime:       m.MinEndTime,
		RequiresApproval: m.RequiresApproval,
		ApproverID:       m.ApproverID,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func toSpaceModel(s *domain.Space) spaceModel {
	return spaceModel{
		ID:               s.ID,
		TenantID:         s.TenantID,
		Name:             s.Name,
		Capacity:         s.Capacity,
		MinStartTime:     s.MinStartTime,
		MinEndTime:       s.MinEndTime,
		RequiresApproval: s.RequiresApproval,
		ApproverID:       s.ApproverID,
	}
}

func (r *SpaceRepository) Create(ctx context.Context, s *domain.Space) error {
	m := toSpaceModel(s)
	if err := conn(ctx, r.db).Create(&m).Error; err != nil {
		return err
	}
	s.ID = m.ID
	s.CreatedAt = m.CreatedAt
	s.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *SpaceRepository) GetByID(ctx context.Context, tenantID, id int64) (*domain.Space, error) {
	var m spaceModel
	if err := conn(ctx, r.db).Where("id = ? AND tenant_id = ?", id, tenantID).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return toDomainSpace(m), nil
}

func (r *SpaceRepository) GetByName(ctx context.Context, tenantID int64, name string) (*domain.Space, error) {
	var m spaceModel
	if err := conn(ctx, r.db).Where("tenant_id = ? AND name = ?", tenantID, name).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return toDomainSpace(m), nil
}
