package services

import (
	"context"
	"errors"
	"fmt"

	"tenant-inbox/internal/domain/user"
	"tenant-inbox/internal/repository"
	inbox_errors "tenant-inbox/pkg/errors"
	"tenant-inbox/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IdentityResolver maps a caller id to its role and display name.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, callerID uuid.UUID) (user.Identity, error)
}

// TenancyLookup finds the property a tenant currently leases.
type TenancyLookup interface {
	ActiveTenancy(ctx context.Context, tenantID uuid.UUID) (user.ActiveTenancy, bool, error)
}

// IdentityCache is satisfied by the Redis identity cache.
type IdentityCache interface {
	Get(ctx context.Context, id uuid.UUID) (user.Identity, bool, error)
	Set(ctx context.Context, identity user.Identity) error
}

type DirectoryService struct {
	repo  repository.DirectoryRepository
	cache IdentityCache
	log   *logger.Logger
}

func NewDirectoryService(repo repository.DirectoryRepository, cache IdentityCache, log *logger.Logger) *DirectoryService {
	if log == nil {
		log = logger.NewNop()
	}
	return &DirectoryService{repo: repo, cache: cache, log: log}
}

// ResolveIdentity reads the role stored on the users row. There is no
// fallback: a missing user is ErrNotFound and a user without a usable role
// is ErrForbidden.
func (s *DirectoryService) ResolveIdentity(ctx context.Context, callerID uuid.UUID) (user.Identity, error) {
	if callerID == uuid.Nil {
		return user.Identity{}, inbox_errors.ErrUnauthorized
	}
	if s.cache != nil {
		identity, ok, err := s.cache.Get(ctx, callerID)
		if err != nil {
			s.log.WarnCtx(ctx, "identity cache read failed", zap.Error(err))
		} else if ok {
			return identity, nil
		}
	}

	u, err := s.repo.GetUserByID(ctx, callerID)
	if err != nil {
		return user.Identity{}, err
	}
	if !u.Role.Valid() {
		return user.Identity{}, fmt.Errorf("%w: user has no messaging role", inbox_errors.ErrForbidden)
	}
	identity := user.Identity{ID: u.ID, Role: u.Role, DisplayName: u.DisplayName()}

	if s.cache != nil {
		if err := s.cache.Set(ctx, identity); err != nil {
			s.log.WarnCtx(ctx, "identity cache write failed", zap.Error(err))
		}
	}
	return identity, nil
}

func (s *DirectoryService) ActiveTenancy(ctx context.Context, tenantID uuid.UUID) (user.ActiveTenancy, bool, error) {
	t, err := s.repo.GetActiveTenancy(ctx, tenantID)
	if err != nil {
		if errors.Is(err, inbox_errors.ErrNotFound) {
			return user.ActiveTenancy{}, false, nil
		}
		return user.ActiveTenancy{}, false, err
	}
	return user.ActiveTenancy{
		PropertyID: t.PropertyID,
		AgentID:    t.Property.AgentID,
		OwnerID:    t.Property.OwnerID,
	}, true, nil
}
