// test/mock/daos.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iamramakanthreddyk/mylab-platform-sub000/dao"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/model"
)

// MockOwnershipDAO is a mock implementation of dao.IOwnershipDAO
type MockOwnershipDAO struct {
	mock.Mock
}

func (m *MockOwnershipDAO) CheckOwnership(ctx context.Context, objectType model.ObjectType, objectID, workspaceID string) (bool, error) {
	args := m.Called(ctx, objectType, objectID, workspaceID)
	return args.Bool(0), args.Error(1)
}

// MockOrgDAO is a mock implementation of dao.IOrgDAO
type MockOrgDAO struct {
	mock.Mock
}

func (m *MockOrgDAO) GetOrganization(ctx context.Context, orgID string) (*model.Organization, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Organization), args.Error(1)
}

func (m *MockOrgDAO) GetUserOrganization(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

// MockGrantDAO is a mock implementation of dao.IGrantDAO
type MockGrantDAO struct {
	mock.Mock
}

func (m *MockGrantDAO) InsertGrant(ctx context.Context, grant *model.AccessGrant) (string, error) {
	args := m.Called(ctx, grant)
	return args.String(0), args.Error(1)
}

func (m *MockGrantDAO) FindActiveGrant(ctx context.Context, objectType model.ObjectType, objectID, orgID string, offlineOnly bool) (*model.AccessGrant, error) {
	args := m.Called(ctx, objectType, objectID, orgID, offlineOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessGrant), args.Error(1)
}

func (m *MockGrantDAO) ListGrantsByObject(ctx context.Context, objectType model.ObjectType, objectID string) ([]*model.AccessGrant, error) {
	args := m.Called(ctx, objectType, objectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.AccessGrant), args.Error(1)
}

func (m *MockGrantDAO) GetGrantByID(ctx context.Context, grantID string) (*model.AccessGrant, error) {
	args := m.Called(ctx, grantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessGrant), args.Error(1)
}

func (m *MockGrantDAO) RevokeGrantsForObject(ctx context.Context, objectType model.ObjectType, objectID, orgID, revokedBy, reason string) ([]dao.RevokedGrant, error) {
	args := m.Called(ctx, objectType, objectID, orgID, revokedBy, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dao.RevokedGrant), args.Error(1)
}

func (m *MockGrantDAO) RevokeGrantByID(ctx context.Context, grantID, revokedBy, reason string) (*dao.RevokedGrant, error) {
	args := m.Called(ctx, grantID, revokedBy, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dao.RevokedGrant), args.Error(1)
}

// MockTokenDAO is a mock implementation of dao.ITokenDAO
type MockTokenDAO struct {
	mock.Mock
}

func (m *MockTokenDAO) InsertToken(ctx context.Context, token *model.DownloadToken) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *MockTokenDAO) FindByHash(ctx context.Context, tokenHash string) (*model.DownloadToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DownloadToken), args.Error(1)
}

func (m *MockTokenDAO) MarkUsedByHash(ctx context.Context, tokenHash string) (bool, error) {
	args := m.Called(ctx, tokenHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokenDAO) ListByObject(ctx context.Context, objectID string) ([]*model.DownloadToken, error) {
	args := m.Called(ctx, objectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.DownloadToken), args.Error(1)
}

func (m *MockTokenDAO) ListExpired(ctx context.Context, before time.Time) ([]string, error) {
	args := m.Called(ctx, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTokenDAO) DeleteToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *MockTokenDAO) CountByStatus(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}
