// util/cache_service.go

package util

import (
	"context"

	"github.com/iamramakanthreddyk/mylab-platform-sub000/db"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/model"
)

// CacheService fronts the Redis organization-directory cache. Directory
// records change rarely; a short TTL keeps list enrichment cheap.
type CacheService struct{}

func NewCacheService() *CacheService {
	return &CacheService{}
}

func (c *CacheService) GetOrganization(ctx context.Context, organizationID string) (*model.Organization, error) {
	return db.GetCachedOrganization(ctx, organizationID)
}

func (c *CacheService) SetOrganization(ctx context.Context, organization model.Organization) error {
	return db.CacheOrganization(ctx, &organization)
}

func (c *CacheService) DeleteOrganization(ctx context.Context, organizationID string) error {
	return db.DeleteCachedOrganization(ctx, organizationID)
}
