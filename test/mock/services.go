// test/mock/services.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/iamramakanthreddyk/mylab-platform-sub000/model"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/service"
)

// MockAccessService is a mock implementation of service.IAccessService
type MockAccessService struct {
	mock.Mock
}

func (m *MockAccessService) CheckAccess(ctx context.Context, objectType model.ObjectType, objectID, workspaceID string) (*model.CheckAccessResult, error) {
	args := m.Called(ctx, objectType, objectID, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CheckAccessResult), args.Error(1)
}

func (m *MockAccessService) GrantAccess(ctx context.Context, req service.GrantRequest, grantedBy string) (string, error) {
	args := m.Called(ctx, req, grantedBy)
	return args.String(0), args.Error(1)
}

func (m *MockAccessService) ListAccessGrants(ctx context.Context, objectType model.ObjectType, objectID, workspaceID string) ([]*model.AccessGrant, error) {
	args := m.Called(ctx, objectType, objectID, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.AccessGrant), args.Error(1)
}

func (m *MockAccessService) GetGrant(ctx context.Context, grantID string) (*model.AccessGrant, error) {
	args := m.Called(ctx, grantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessGrant), args.Error(1)
}

func (m *MockAccessService) RevokeAccessWithAudit(ctx context.Context, objectType model.ObjectType, objectID, grantedToOrgID, revokedBy, reason string) error {
	args := m.Called(ctx, objectType, objectID, grantedToOrgID, revokedBy, reason)
	return args.Error(0)
}

func (m *MockAccessService) RevokeGrantWithAudit(ctx context.Context, grantID, workspaceID, revokedBy, reason string, isAdmin bool) error {
	args := m.Called(ctx, grantID, workspaceID, revokedBy, reason, isAdmin)
	return args.Error(0)
}

// MockTokenService is a mock implementation of service.ITokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) GenerateDownloadToken(ctx context.Context, req service.TokenRequest) (*service.IssuedToken, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IssuedToken), args.Error(1)
}

func (m *MockTokenService) ValidateDownloadToken(ctx context.Context, plaintext, organizationID string) (*model.TokenValidation, error) {
	args := m.Called(ctx, plaintext, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenValidation), args.Error(1)
}

func (m *MockTokenService) ConsumeDownloadToken(ctx context.Context, plaintext string) error {
	args := m.Called(ctx, plaintext)
	return args.Error(0)
}

func (m *MockTokenService) ListTokens(ctx context.Context, objectID string) ([]*model.DownloadToken, error) {
	args := m.Called(ctx, objectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.DownloadToken), args.Error(1)
}

func (m *MockTokenService) TriggerManualCleanup(ctx context.Context) (*service.CleanupReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CleanupReport), args.Error(1)
}

func (m *MockTokenService) GetTokenStats(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *MockTokenService) StartJanitor(ctx context.Context) {
	m.Called(ctx)
}

// MockAbuseService is a mock implementation of service.IAbuseService
type MockAbuseService struct {
	mock.Mock
}

func (m *MockAbuseService) ObserveRequest(ctx context.Context, actorID, objectID string, resultCount int, responseBytes int64) []service.Anomaly {
	args := m.Called(ctx, actorID, objectID, resultCount, responseBytes)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]service.Anomaly)
}

func (m *MockAbuseService) CheckDailyQuota(ctx context.Context, actorID string, incomingBytes int64) *service.QuotaDecision {
	args := m.Called(ctx, actorID, incomingBytes)
	return args.Get(0).(*service.QuotaDecision)
}

func (m *MockAbuseService) RecordDownload(ctx context.Context, actorID, orgID string, objectType, objectID string, sizeBytes int64) {
	m.Called(ctx, actorID, orgID, objectType, objectID, sizeBytes)
}
