// audit/service_test.go
package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingRepository struct {
	entries []AuditEntry
}

func (r *capturingRepository) LogEntry(ctx context.Context, entry AuditEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *capturingRepository) QueryEntries(ctx context.Context, filter QueryFilter) ([]AuditEntry, error) {
	return r.entries, nil
}

func (r *capturingRepository) SumDownloadBytes(ctx context.Context, actorID string, since time.Time) (int64, error) {
	return 0, nil
}

func TestServiceStampsMissingTimestamp(t *testing.T) {
	repo := &capturingRepository{}
	svc := NewService(repo)

	require.NoError(t, svc.LogEntry(context.Background(), AuditEntry{
		Action:   ActionTokenIssued,
		ObjectID: "doc-1",
		ActorID:  "user-1",
	}))
	require.Len(t, repo.entries, 1)
	assert.WithinDuration(t, time.Now().UTC(), repo.entries[0].Timestamp, time.Minute)
}

func TestServicePreservesExplicitTimestamp(t *testing.T) {
	repo := &capturingRepository{}
	svc := NewService(repo)

	stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, svc.LogEntry(context.Background(), AuditEntry{
		Action:    ActionAccessGranted,
		Timestamp: stamp,
	}))
	require.Len(t, repo.entries, 1)
	assert.True(t, repo.entries[0].Timestamp.Equal(stamp))
}
