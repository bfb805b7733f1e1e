// test/mock/audit.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iamramakanthreddyk/mylab-platform-sub000/audit"
)

// MockAuditService is a mock implementation of audit.Service
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) LogEntry(ctx context.Context, entry audit.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditService) QueryEntries(ctx context.Context, filter audit.QueryFilter) ([]audit.AuditEntry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.AuditEntry), args.Error(1)
}

func (m *MockAuditService) SumDownloadBytes(ctx context.Context, actorID string, since time.Time) (int64, error) {
	args := m.Called(ctx, actorID, since)
	return args.Get(0).(int64), args.Error(1)
}
