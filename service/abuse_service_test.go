// service/abuse_service_test.go
package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	testify_mock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iamramakanthreddyk/mylab-platform-sub000/service"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/test/mock"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/util"
)

func newAbuseService(auditSvc *mock.MockAuditService) *service.AbuseService {
	return service.NewAbuseService(auditSvc, util.NewNotificationService(), util.NewEventBus())
}

func anomalyKinds(anomalies []service.Anomaly) []string {
	kinds := make([]string, 0, len(anomalies))
	for _, a := range anomalies {
		kinds = append(kinds, a.Kind)
	}
	return kinds
}

func TestAbuseService_ObserveRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("RapidFireFlagsHighRequestRate", func(t *testing.T) {
		auditSvc := new(mock.MockAuditService)
		auditSvc.On("LogEntry", testify_mock.Anything, testify_mock.Anything).Return(nil)
		svc := newAbuseService(auditSvc)

		var last []service.Anomaly
		for i := 0; i < 50; i++ {
			last = svc.ObserveRequest(ctx, "user-1", "obj-1", 1, 100)
		}
		assert.Contains(t, anomalyKinds(last), service.AnomalyRapidFire)
	})

	t.Run("RapidFireSilencedAboveCeiling", func(t *testing.T) {
		auditSvc := new(mock.MockAuditService)
		auditSvc.On("LogEntry", testify_mock.Anything, testify_mock.Anything).Return(nil)
		svc := newAbuseService(auditSvc)

		var last []service.Anomaly
		for i := 0; i < 301; i++ {
			last = svc.ObserveRequest(ctx, "user-1", "obj-1", 1, 100)
		}
		assert.NotContains(t, anomalyKinds(last), service.AnomalyRapidFire)
	})

	t.Run("LargeResultSetIsMediumSeverity", func(t *testing.T) {
		auditSvc := new(mock.MockAuditService)
		auditSvc.On("LogEntry", testify_mock.Anything, testify_mock.Anything).Return(nil)
		svc := newAbuseService(auditSvc)

		anomalies := svc.ObserveRequest(ctx, "user-2", "obj-1", 1500, 100)
		require.Len(t, anomalies, 1)
		assert.Equal(t, service.AnomalyLargeResultSet, anomalies[0].Kind)
		assert.Equal(t, service.SeverityMedium, anomalies[0].Severity)
	})

	t.Run("OversizedResponseNeedsHistory", func(t *testing.T) {
		auditSvc := new(mock.MockAuditService)
		auditSvc.On("LogEntry", testify_mock.Anything, testify_mock.Anything).Return(nil)
		svc := newAbuseService(auditSvc)

		// Too little history: a big response on a fresh profile is not flagged.
		anomalies := svc.ObserveRequest(ctx, "user-3", "obj-1", 1, 1_000_000)
		assert.NotContains(t, anomalyKinds(anomalies), service.AnomalyOversizedResponse)

		for i := 0; i < 10; i++ {
			svc.ObserveRequest(ctx, "user-4", "obj-1", 1, 100)
		}
		anomalies = svc.ObserveRequest(ctx, "user-4", "obj-1", 1, 5000)
		require.Len(t, anomalies, 1)
		assert.Equal(t, service.AnomalyOversizedResponse, anomalies[0].Kind)
		assert.Equal(t, service.SeverityCritical, anomalies[0].Severity)
	})

	t.Run("UnseenObjectBurst", func(t *testing.T) {
		auditSvc := new(mock.MockAuditService)
		auditSvc.On("LogEntry", testify_mock.Anything, testify_mock.Anything).Return(nil)
		svc := newAbuseService(auditSvc)

		var last []service.Anomaly
		for i := 0; i < 20; i++ {
			last = svc.ObserveRequest(ctx, "user-5", fmt.Sprintf("obj-%d", i), 1, 100)
		}
		assert.Contains(t, anomalyKinds(last), service.AnomalyUnseenObjectBurst)

		// Revisiting a known object raises nothing.
		anomalies := svc.ObserveRequest(ctx, "user-5", "obj-0", 1, 100)
		assert.NotContains(t, anomalyKinds(anomalies), service.AnomalyUnseenObjectBurst)
	})

	t.Run("AnomaliesAreAudited", func(t *testing.T) {
		auditSvc := new(mock.MockAuditService)
		auditSvc.On("LogEntry", testify_mock.Anything, testify_mock.Anything).Return(nil)
		svc := newAbuseService(auditSvc)

		svc.ObserveRequest(ctx, "user-6", "obj-1", 1500, 100)
		auditSvc.AssertNumberOfCalls(t, "LogEntry", 1)
	})

	t.Run("AnomalyEventsReachSubscribers", func(t *testing.T) {
		auditSvc := new(mock.MockAuditService)
		auditSvc.On("LogEntry", testify_mock.Anything, testify_mock.Anything).Return(nil)
		bus := util.NewEventBus()
		svc := service.NewAbuseService(auditSvc, util.NewNotificationService(), bus)

		got := make(chan service.Anomaly, 8)
		bus.Subscribe(util.EventAnomalyDetected, func(_ context.Context, event util.Event) error {
			got <- event.Payload.(service.Anomaly)
			return nil
		})

		svc.ObserveRequest(ctx, "user-7", "obj-1", 1500, 100)

		select {
		case anomaly := <-got:
			assert.Equal(t, service.AnomalyLargeResultSet, anomaly.Kind)
			assert.Equal(t, "user-7", anomaly.ActorID)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for anomaly.detected event")
		}
	})
}

func TestAbuseService_CheckDailyQuota(t *testing.T) {
	ctx := context.Background()
	quota := viper.GetInt64("quota.dailyDownloadBytes")
	require.Positive(t, quota)

	t.Run("UnderQuotaAllowed", func(t *testing.T) {
		auditSvc := new(mock.MockAuditService)
		auditSvc.On("SumDownloadBytes", testify_mock.Anything, "user-1", testify_mock.Anything).
			Return(int64(1024), nil)

		decision := newAbuseService(auditSvc).CheckDailyQuota(ctx, "user-1", 2048)
		assert.True(t, decision.Allowed)
		assert.Equal(t, int64(1024), decision.UsedBytes)
		assert.Equal(t, quota-1024, decision.RemainingBytes)
		assert.False(t, decision.FailedOpen)
	})

	t.Run("ExhaustedQuotaDenied", func(t *testing.T) {
		auditSvc := new(mock.MockAuditService)
		auditSvc.On("SumDownloadBytes", testify_mock.Anything, "user-1", testify_mock.Anything).
			Return(quota, nil)

		decision := newAbuseService(auditSvc).CheckDailyQuota(ctx, "user-1", 1)
		assert.False(t, decision.Allowed)
		assert.Equal(t, int64(0), decision.RemainingBytes)
	})

	t.Run("LookupFailureFailsOpen", func(t *testing.T) {
		auditSvc := new(mock.MockAuditService)
		auditSvc.On("SumDownloadBytes", testify_mock.Anything, "user-1", testify_mock.Anything).
			Return(int64(0), assert.AnError)

		decision := newAbuseService(auditSvc).CheckDailyQuota(ctx, "user-1", 1)
		assert.True(t, decision.Allowed)
		assert.True(t, decision.FailedOpen)
	})
}

func TestAbuseService_RecordDownload_WritesCompletionEntry(t *testing.T) {
	auditSvc := new(mock.MockAuditService)
	auditSvc.On("LogEntry", testify_mock.Anything, testify_mock.Anything).Return(nil)

	newAbuseService(auditSvc).RecordDownload(context.Background(), "user-1", "org-2", "document", "doc-1", 4096)
	auditSvc.AssertNumberOfCalls(t, "LogEntry", 1)
}
