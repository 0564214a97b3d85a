package repository

import (
	"context"
	"errors"

	"tenant-inbox/internal/domain/user"
	inbox_errors "tenant-inbox/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDirectoryRepository reads users, properties and tenancies owned by
// other subsystems. It never writes.
type GormDirectoryRepository struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) DirectoryRepository {
	return &GormDirectoryRepository{db: db}
}

func (r *GormDirectoryRepository) GetUserByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	var u user.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user.User{}, inbox_errors.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *GormDirectoryRepository) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]user.User, error) {
	out := make(map[uuid.UUID]user.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []user.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *GormDirectoryRepository) GetPropertiesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]user.Property, error) {
	out := make(map[uuid.UUID]user.Property, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var props []user.Property
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&props).Error; err != nil {
		return nil, err
	}
	for _, p := range props {
		out[p.ID] = p
	}
	return out, nil
}

// GetActiveTenancy returns the tenant's most recent active tenancy with its
// property.
func (r *GormDirectoryRepository) GetActiveTenancy(ctx context.Context, tenantID uuid.UUID) (user.Tenancy, error) {
	var t user.Tenancy
	err := r.db.WithContext(ctx).
		Preload("Property").
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("start_date DESC").
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user.Tenancy{}, inbox_errors.ErrNotFound
		}
		return user.Tenancy{}, err
	}
	return t, nil
}
