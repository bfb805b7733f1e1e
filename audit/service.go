// audit/service.go
package audit

import (
	"context"
	"time"
)

type Service interface {
	LogEntry(ctx context.Context, entry AuditEntry) error
	QueryEntries(ctx context.Context, filter QueryFilter) ([]AuditEntry, error)
	SumDownloadBytes(ctx context.Context, actorID string, since time.Time) (int64, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) LogEntry(ctx context.Context, entry AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	return s.repo.LogEntry(ctx, entry)
}

func (s *service) QueryEntries(ctx context.Context, filter QueryFilter) ([]AuditEntry, error) {
	return s.repo.QueryEntries(ctx, filter)
}

func (s *service) SumDownloadBytes(ctx context.Context, actorID string, since time.Time) (int64, error) {
	return s.repo.SumDownloadBytes(ctx, actorID, since)
}
