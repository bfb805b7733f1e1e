// service/token_service.go
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iamramakanthreddyk/mylab-platform-sub000/audit"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/config"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/dao"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/db"
	access_errors "github.com/iamramakanthreddyk/mylab-platform-sub000/errors"
	logger "github.com/iamramakanthreddyk/mylab-platform-sub000/logging"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/model"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/util"
)

// TokenRequest carries everything needed to issue a download token.
// GrantID is nil only for owner-issued tokens.
type TokenRequest struct {
	ObjectType     model.ObjectType
	ObjectID       string
	OrganizationID string
	UserID         string
	GrantID        *string
	TTLMinutes     int
	OneTimeUse     bool
}

// IssuedToken returns the plaintext exactly once; it is never retrievable
// again.
type IssuedToken struct {
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
	ExpiresIn  int       `json:"expires_in"`
	OneTimeUse bool      `json:"one_time_use"`
}

// CleanupReport summarizes one janitor sweep. Per-row failures are
// collected, never thrown; one bad row must not abort the batch.
type CleanupReport struct {
	Scanned int      `json:"scanned"`
	Deleted int      `json:"deleted"`
	Errors  []string `json:"errors"`
}

type ITokenService interface {
	GenerateDownloadToken(ctx context.Context, req TokenRequest) (*IssuedToken, error)
	ValidateDownloadToken(ctx context.Context, plaintext, organizationID string) (*model.TokenValidation, error)
	ConsumeDownloadToken(ctx context.Context, plaintext string) error
	ListTokens(ctx context.Context, objectID string) ([]*model.DownloadToken, error)
	TriggerManualCleanup(ctx context.Context) (*CleanupReport, error)
	GetTokenStats(ctx context.Context) (map[string]int64, error)
	StartJanitor(ctx context.Context)
}

type TokenService struct {
	tokenDAO       dao.ITokenDAO
	grantDAO       dao.IGrantDAO
	auditService   audit.Service
	validationUtil *util.ValidationUtil
	eventBus       *util.EventBus
}

func NewTokenService(
	tokenDAO dao.ITokenDAO,
	grantDAO dao.IGrantDAO,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	eventBus *util.EventBus,
) *TokenService {
	return &TokenService{
		tokenDAO:       tokenDAO,
		grantDAO:       grantDAO,
		auditService:   auditService,
		validationUtil: validationUtil,
		eventBus:       eventBus,
	}
}

// hashToken is the one-way mapping from plaintext to the stored hash.
func hashToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// GenerateDownloadToken issues an opaque token whose lifetime never exceeds
// the parent grant's remaining lifetime.
func (s *TokenService) GenerateDownloadToken(ctx context.Context, req TokenRequest) (*IssuedToken, error) {
	if req.TTLMinutes <= 0 {
		req.TTLMinutes = config.GetInt("token.defaultTTLMinutes")
	}
	if err := s.validationUtil.ValidateTokenRequest(req.ObjectType, req.ObjectID, req.TTLMinutes); err != nil {
		return nil, access_errors.ErrInvalidGrantData
	}

	if maxTTL := config.GetInt("token.maxTTLMinutes"); maxTTL > 0 && req.TTLMinutes > maxTTL {
		req.TTLMinutes = maxTTL
	}

	now := time.Now()
	expiresAt := now.Add(time.Duration(req.TTLMinutes) * time.Minute)

	if req.GrantID != nil {
		grant, err := s.grantDAO.GetGrantByID(ctx, *req.GrantID)
		if err != nil {
			return nil, err
		}
		if !grant.IsActive(now) || grant.IsExpiredWithBuffer(now, expiryBuffer()) {
			return nil, access_errors.ErrGrantNotFound
		}
		// Clamp to the grant's remaining lifetime.
		if grant.ExpiresAt != nil && expiresAt.After(*grant.ExpiresAt) {
			expiresAt = *grant.ExpiresAt
		}
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	plaintext := base64.RawURLEncoding.EncodeToString(raw)

	token := model.DownloadToken{
		TokenHash:      hashToken(plaintext),
		ObjectType:     req.ObjectType,
		ObjectID:       req.ObjectID,
		OrganizationID: req.OrganizationID,
		UserID:         req.UserID,
		GrantID:        req.GrantID,
		ExpiresAt:      expiresAt,
		OneTimeUse:     req.OneTimeUse,
	}
	tokenID, err := s.tokenDAO.InsertToken(ctx, &token)
	if err != nil {
		return nil, err
	}

	details, _ := json.Marshal(map[string]interface{}{
		"token_id":     tokenID,
		"expires_at":   expiresAt,
		"one_time_use": req.OneTimeUse,
	})
	grantID := ""
	if req.GrantID != nil {
		grantID = *req.GrantID
	}
	if err := s.auditService.LogEntry(ctx, audit.AuditEntry{
		Action:     audit.ActionTokenIssued,
		ObjectType: string(req.ObjectType),
		ObjectID:   req.ObjectID,
		ActorID:    req.UserID,
		ActorOrgID: req.OrganizationID,
		GrantID:    grantID,
		Details:    details,
	}); err != nil {
		logger.Error("Failed to audit token issuance", zap.Error(err), zap.String("tokenID", tokenID))
	}

	s.eventBus.Publish(ctx, util.EventTokenIssued, token)

	logger.Info("Download token issued",
		zap.String("tokenID", tokenID),
		zap.String("objectID", req.ObjectID),
		zap.Time("expiresAt", expiresAt),
		zap.Bool("oneTimeUse", req.OneTimeUse))

	return &IssuedToken{
		Token:      plaintext,
		ExpiresAt:  expiresAt,
		ExpiresIn:  int(time.Until(expiresAt).Seconds()),
		OneTimeUse: req.OneTimeUse,
	}, nil
}

// ValidateDownloadToken checks, in order: existence, organization match,
// revocation, expiry, one-time-use consumption. The reason stays internal;
// the HTTP boundary returns a generic denial.
func (s *TokenService) ValidateDownloadToken(ctx context.Context, plaintext, organizationID string) (*model.TokenValidation, error) {
	token, err := s.tokenDAO.FindByHash(ctx, hashToken(plaintext))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	switch {
	case token == nil:
		return &model.TokenValidation{Reason: model.TokenReasonNotFound}, nil
	case token.OrganizationID != organizationID:
		return &model.TokenValidation{Reason: model.TokenReasonOrgMismatch}, nil
	case token.RevokedAt != nil:
		return &model.TokenValidation{Reason: model.TokenReasonRevoked}, nil
	case !token.ExpiresAt.After(now):
		return &model.TokenValidation{Reason: model.TokenReasonExpired}, nil
	case token.OneTimeUse && token.UsedAt != nil:
		return &model.TokenValidation{Reason: model.TokenReasonAlreadyUsed}, nil
	}

	return &model.TokenValidation{
		Valid:      true,
		Reason:     model.TokenReasonOK,
		ObjectType: token.ObjectType,
		ObjectID:   token.ObjectID,
		OneTimeUse: token.OneTimeUse,
	}, nil
}

// ConsumeDownloadToken stamps used_at with a conditional update. Zero rows
// affected means another request consumed the token first; the caller gets
// ErrTokenAlreadyUsed and must not serve the bytes. The database row is the
// arbiter, so two concurrent redeems of a one-time token resolve to exactly
// one winner without any locking here.
func (s *TokenService) ConsumeDownloadToken(ctx context.Context, plaintext string) error {
	marked, err := s.tokenDAO.MarkUsedByHash(ctx, hashToken(plaintext))
	if err != nil {
		return err
	}
	if !marked {
		return access_errors.ErrTokenAlreadyUsed
	}
	return nil
}

func (s *TokenService) ListTokens(ctx context.Context, objectID string) ([]*model.DownloadToken, error) {
	return s.tokenDAO.ListByObject(ctx, objectID)
}

const tokenCleanupLock = "token-cleanup"

// TriggerManualCleanup purges tokens past expiry by the configured grace
// margin. The sweep is single-flight across instances via an advisory
// lock. Deletes run with bounded concurrency; row failures are collected
// into the report and never abort the sweep.
func (s *TokenService) TriggerManualCleanup(ctx context.Context) (*CleanupReport, error) {
	locked, err := db.LockResource(ctx, tokenCleanupLock, 5*time.Minute)
	if err != nil {
		return nil, err
	}
	if !locked {
		logger.Info("Token cleanup skipped: another instance holds the sweep lock")
		return &CleanupReport{Errors: []string{}}, nil
	}
	defer func() {
		if err := db.UnlockResource(ctx, tokenCleanupLock); err != nil {
			logger.Warn("Failed to release cleanup lock", zap.Error(err))
		}
	}()

	grace := time.Duration(config.GetInt("token.cleanupGraceHours")) * time.Hour
	cutoff := time.Now().Add(-grace)

	ids, err := s.tokenDAO.ListExpired(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	report := &CleanupReport{Scanned: len(ids), Errors: []string{}}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(8)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			err := s.tokenDAO.DeleteToken(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("token %s: %v", id, err))
				return nil
			}
			report.Deleted++
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("Token cleanup completed",
		zap.Int("scanned", report.Scanned),
		zap.Int("deleted", report.Deleted),
		zap.Int("errors", len(report.Errors)))
	return report, nil
}

func (s *TokenService) GetTokenStats(ctx context.Context) (map[string]int64, error) {
	return s.tokenDAO.CountByStatus(ctx)
}

// StartJanitor runs periodic cleanup until the context is cancelled.
func (s *TokenService) StartJanitor(ctx context.Context) {
	interval := config.GetDuration("token.cleanupInterval")
	if interval <= 0 {
		interval = time.Hour
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.TriggerManualCleanup(ctx); err != nil {
					logger.Error("Scheduled token cleanup failed", zap.Error(err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
