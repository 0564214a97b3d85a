package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tenant-inbox/internal/domain"
	"tenant-inbox/internal/domain/user"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Cache key patterns:
// - identity:{user_id} - resolved role and display name

type IdentityCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewIdentityCache(client *goredis.Client, ttl time.Duration) *IdentityCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &IdentityCache{client: client, ttl: ttl}
}

type cachedIdentity struct {
	Role        domain.Role `json:"role"`
	DisplayName string      `json:"display_name"`
}

func identityKey(id uuid.UUID) string {
	return fmt.Sprintf("identity:%s", id.String())
}

// Get returns false on a cache miss.
func (c *IdentityCache) Get(ctx context.Context, id uuid.UUID) (user.Identity, bool, error) {
	data, err := c.client.Get(ctx, identityKey(id)).Result()
	if err == goredis.Nil {
		return user.Identity{}, false, nil
	}
	if err != nil {
		return user.Identity{}, false, err
	}
	var cached cachedIdentity
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		return user.Identity{}, false, err
	}
	return user.Identity{ID: id, Role: cached.Role, DisplayName: cached.DisplayName}, true, nil
}

func (c *IdentityCache) Set(ctx context.Context, identity user.Identity) error {
	data, err := json.Marshal(cachedIdentity{Role: identity.Role, DisplayName: identity.DisplayName})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, identityKey(identity.ID), data, c.ttl).Err()
}
