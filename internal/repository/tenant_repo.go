package repository

import (
	"context"
	"time"

	"spacebooking/internal/domain"

	"gorm.io/gorm"
)

type TenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

type tenantModel struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Slug      string    `gorm:"column:slug;size:100;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (tenantModel) TableName() string { return "tenants" }

// EnsureBySlug returns the tenant with slug, creating it when missing.
func (r *TenantRepository) EnsureBySlug(ctx context.Context, slug, name string) (*domain.Tenant, error) {
	var m tenantModel
	err := conn(ctx, r.db).Where("slug = ?", slug).First(&m).Error
	if err == nil {
		return toDomainTenant(m), nil
	}
	if notFound(err) != ErrNotFound {
		return nil, err
	}

	m = tenantModel{Name: name, Slug: slug}
	if err := conn(ctx, r.db).Create(&m).Error; err != nil {
		if isUniqueConstraintError(err) {
			return r.EnsureBySlug(ctx, slug, name)
		}
		return nil, err
	}
	return toDomainTenant(m), nil
}

func toDomainTenant(m tenantModel) *domain.Tenant {
	return &domain.Tenant{ID: m.ID, Name: m.Name, Slug: m.Slug, CreatedAt: m.CreatedAt}
}
