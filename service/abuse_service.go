// service/abuse_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iamramakanthreddyk/mylab-platform-sub000/audit"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/config"
	logger "github.com/iamramakanthreddyk/mylab-platform-sub000/logging"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/model"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/util"
	helper_util "github.com/iamramakanthreddyk/mylab-platform-sub000/util/helper"
)

// Anomaly severities.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Anomaly kinds.
const (
	AnomalyOversizedResponse = "oversized_response"
	AnomalyLargeResultSet    = "large_result_set"
	AnomalyRapidFire         = "rapid_fire"
	AnomalyUnseenObjectBurst = "unseen_object_burst"
)

// Anomaly is a severity-tagged abuse signal. Detection never blocks;
// whether to act on a signal is the caller's policy decision.
type Anomaly struct {
	Kind        string `json:"kind"`
	Severity    string `json:"severity"`
	ActorID     string `json:"actor_id"`
	Description string `json:"description"`
}

// QuotaDecision reports the daily download-byte quota check. On lookup
// failure the decision is Allowed with FailedOpen set: availability is
// prioritized over strict enforcement.
type QuotaDecision struct {
	Allowed        bool  `json:"allowed"`
	UsedBytes      int64 `json:"used_bytes"`
	RemainingBytes int64 `json:"remaining_bytes"`
	FailedOpen     bool  `json:"failed_open,omitempty"`
}

type IAbuseService interface {
	ObserveRequest(ctx context.Context, actorID, objectID string, resultCount int, responseBytes int64) []Anomaly
	CheckDailyQuota(ctx context.Context, actorID string, incomingBytes int64) *QuotaDecision
	RecordDownload(ctx context.Context, actorID, orgID string, objectType, objectID string, sizeBytes int64)
}

// actorProfile is the per-actor rolling state the heuristics read. It is
// process-local; in a multi-instance deployment each instance sees only its
// own slice of traffic.
type actorProfile struct {
	requestTimes  []time.Time
	totalBytes    int64
	responseCount int64
	seenObjects   map[string]bool
	unseenTimes   []time.Time
}

type AbuseService struct {
	auditService    audit.Service
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus

	mu       sync.Mutex
	profiles map[string]*actorProfile
}

func NewAbuseService(auditService audit.Service, notificationSvc *util.NotificationService, eventBus *util.EventBus) *AbuseService {
	service := &AbuseService{
		auditService:    auditService,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
		profiles:        make(map[string]*actorProfile),
	}

	eventBus.Subscribe(util.EventAnomalyDetected, service.handleAnomalyDetected)
	eventBus.Subscribe(util.EventTokenIssued, service.handleTokenIssued)

	return service
}

// handleAnomalyDetected escalates high-severity signals to operators.
func (s *AbuseService) handleAnomalyDetected(ctx context.Context, event util.Event) error {
	anomaly, ok := event.Payload.(Anomaly)
	if !ok {
		return fmt.Errorf("unexpected payload for %s event: %T", event.Type, event.Payload)
	}
	if anomaly.Severity != SeverityHigh && anomaly.Severity != SeverityCritical {
		return nil
	}
	return s.notificationSvc.NotifyAnomaly(ctx, anomaly.ActorID, anomaly.Severity, anomaly.Description)
}

// handleTokenIssued records the issuance as a first touch, so redeeming
// the token later does not count toward the unseen-object burst signal.
func (s *AbuseService) handleTokenIssued(ctx context.Context, event util.Event) error {
	token, ok := event.Payload.(model.DownloadToken)
	if !ok {
		return fmt.Errorf("unexpected payload for %s event: %T", event.Type, event.Payload)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[token.UserID]
	if !ok {
		profile = &actorProfile{seenObjects: make(map[string]bool)}
		s.profiles[token.UserID] = profile
	}
	profile.seenObjects[token.ObjectID] = true
	return nil
}

const (
	rapidFireWindow    = 5 * time.Minute
	rapidFireThreshold = 50
	rapidFireCeiling   = 300
	largeResultLimit   = 1000
	oversizeFactor     = 5
	oversizeMinSample  = 10
	unseenBurstWindow  = 5 * time.Minute
	unseenBurstLimit   = 20
)

// ObserveRequest feeds one request into the per-actor heuristics and
// returns any anomalies it raised. Signals are logged and audited, never
// used to reject the request.
func (s *AbuseService) ObserveRequest(ctx context.Context, actorID, objectID string, resultCount int, responseBytes int64) []Anomaly {
	now := time.Now()

	s.mu.Lock()
	profile, ok := s.profiles[actorID]
	if !ok {
		profile = &actorProfile{seenObjects: make(map[string]bool)}
		s.profiles[actorID] = profile
	}

	var anomalies []Anomaly

	// Oversized response: 5x the actor's historical average, once there is
	// enough history to make an average meaningful.
	if profile.responseCount >= oversizeMinSample && responseBytes > 0 {
		avg := profile.totalBytes / profile.responseCount
		if avg > 0 && responseBytes >= avg*oversizeFactor {
			severity := SeverityHigh
			if responseBytes >= avg*oversizeFactor*2 {
				severity = SeverityCritical
			}
			anomalies = append(anomalies, Anomaly{
				Kind:        AnomalyOversizedResponse,
				Severity:    severity,
				ActorID:     actorID,
				Description: fmt.Sprintf("response of %d bytes against historical average %d", responseBytes, avg),
			})
		}
	}
	profile.totalBytes += responseBytes
	profile.responseCount++

	// Single response returning an unusually large record count.
	if resultCount > largeResultLimit {
		anomalies = append(anomalies, Anomaly{
			Kind:        AnomalyLargeResultSet,
			Severity:    SeverityMedium,
			ActorID:     actorID,
			Description: fmt.Sprintf("single request returned %d records", resultCount),
		})
	}

	// Rapid-fire: many requests inside a short window.
	profile.requestTimes = pruneTimes(profile.requestTimes, now.Add(-rapidFireWindow))
	profile.requestTimes = append(profile.requestTimes, now)
	if n := len(profile.requestTimes); n >= rapidFireThreshold && n <= rapidFireCeiling {
		severity := SeverityMedium
		if n >= rapidFireThreshold*2 {
			severity = SeverityHigh
		}
		anomalies = append(anomalies, Anomaly{
			Kind:        AnomalyRapidFire,
			Severity:    severity,
			ActorID:     actorID,
			Description: fmt.Sprintf("%d requests within %s", n, rapidFireWindow),
		})
	}

	// Burst of access to previously-unseen object ids.
	if objectID != "" && !profile.seenObjects[objectID] {
		profile.seenObjects[objectID] = true
		profile.unseenTimes = pruneTimes(profile.unseenTimes, now.Add(-unseenBurstWindow))
		profile.unseenTimes = append(profile.unseenTimes, now)
		if len(profile.unseenTimes) >= unseenBurstLimit {
			anomalies = append(anomalies, Anomaly{
				Kind:        AnomalyUnseenObjectBurst,
				Severity:    SeverityHigh,
				ActorID:     actorID,
				Description: fmt.Sprintf("%d previously-unseen objects accessed within %s", len(profile.unseenTimes), unseenBurstWindow),
			})
		}
	}
	s.mu.Unlock()

	for _, anomaly := range anomalies {
		s.reportAnomaly(ctx, anomaly, objectID)
	}
	return anomalies
}

func pruneTimes(times []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(times) && times[idx].Before(cutoff) {
		idx++
	}
	return times[idx:]
}

func (s *AbuseService) reportAnomaly(ctx context.Context, anomaly Anomaly, objectID string) {
	logger.Warn("Access anomaly detected",
		zap.String("kind", anomaly.Kind),
		zap.String("severity", anomaly.Severity),
		zap.String("actorID", anomaly.ActorID),
		zap.String("description", anomaly.Description))

	details, _ := json.Marshal(anomaly)
	if err := s.auditService.LogEntry(ctx, audit.AuditEntry{
		Action:   audit.ActionAnomalyDetected,
		ObjectID: objectID,
		ActorID:  anomaly.ActorID,
		Details:  details,
	}); err != nil {
		logger.Error("Failed to audit anomaly", zap.Error(err))
	}

	s.eventBus.Publish(ctx, util.EventAnomalyDetected, anomaly)
}

// CheckDailyQuota enforces the per-actor download-byte quota by summing
// audit-logged download sizes since local midnight. Lookup failure fails
// open with a logged warning.
func (s *AbuseService) CheckDailyQuota(ctx context.Context, actorID string, incomingBytes int64) *QuotaDecision {
	quota := config.GetInt64("quota.dailyDownloadBytes")
	if quota <= 0 {
		return &QuotaDecision{Allowed: true, RemainingBytes: -1}
	}

	used, err := s.auditService.SumDownloadBytes(ctx, actorID, helper_util.LocalMidnight(time.Now()))
	if err != nil {
		logger.Warn("Quota lookup failed; failing open",
			zap.Error(err),
			zap.String("actorID", actorID))
		return &QuotaDecision{Allowed: true, FailedOpen: true, RemainingBytes: -1}
	}

	remaining := quota - used
	if remaining < 0 {
		remaining = 0
	}
	return &QuotaDecision{
		Allowed:        used+incomingBytes <= quota,
		UsedBytes:      used,
		RemainingBytes: remaining,
	}
}

// RecordDownload appends the download_completed audit entry the quota sums.
func (s *AbuseService) RecordDownload(ctx context.Context, actorID, orgID string, objectType, objectID string, sizeBytes int64) {
	details, _ := json.Marshal(map[string]interface{}{"size_bytes": sizeBytes})
	if err := s.auditService.LogEntry(ctx, audit.AuditEntry{
		Action:     audit.ActionDownloadCompleted,
		ObjectType: objectType,
		ObjectID:   objectID,
		ActorID:    actorID,
		ActorOrgID: orgID,
		Details:    details,
	}); err != nil {
		logger.Error("Failed to audit completed download",
			zap.Error(err),
			zap.String("actorID", actorID),
			zap.Int64("sizeBytes", sizeBytes))
	}
}
