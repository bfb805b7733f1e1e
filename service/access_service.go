// service/access_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iamramakanthreddyk/mylab-platform-sub000/audit"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/config"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/dao"
	access_errors "github.com/iamramakanthreddyk/mylab-platform-sub000/errors"
	logger "github.com/iamramakanthreddyk/mylab-platform-sub000/logging"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/model"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/util"
)

// GrantRequest is the owner-side input for minting a grant.
type GrantRequest struct {
	ObjectType     model.ObjectType
	ObjectID       string
	GrantedToOrgID string
	Role           model.Role
	CanReshare     bool
	AccessMode     model.AccessMode
	ExpiresAt      *time.Time
}

type IAccessService interface {
	CheckAccess(ctx context.Context, objectType model.ObjectType, objectID, workspaceID string) (*model.CheckAccessResult, error)
	GrantAccess(ctx context.Context, req GrantRequest, grantedBy string) (string, error)
	ListAccessGrants(ctx context.Context, objectType model.ObjectType, objectID, workspaceID string) ([]*model.AccessGrant, error)
	GetGrant(ctx context.Context, grantID string) (*model.AccessGrant, error)
	RevokeAccessWithAudit(ctx context.Context, objectType model.ObjectType, objectID, grantedToOrgID, revokedBy, reason string) error
	RevokeGrantWithAudit(ctx context.Context, grantID, workspaceID, revokedBy, reason string, isAdmin bool) error
}

// AccessService owns the ownership-then-grant precedence rule and the
// transactional revocation flow.
type AccessService struct {
	ownershipDAO    dao.IOwnershipDAO
	grantDAO        dao.IGrantDAO
	orgDAO          dao.IOrgDAO
	auditService    audit.Service
	validationUtil  *util.ValidationUtil
	cacheService    *util.CacheService
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

func NewAccessService(
	ownershipDAO dao.IOwnershipDAO,
	grantDAO dao.IGrantDAO,
	orgDAO dao.IOrgDAO,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	cacheService *util.CacheService,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
) *AccessService {
	service := &AccessService{
		ownershipDAO:    ownershipDAO,
		grantDAO:        grantDAO,
		orgDAO:          orgDAO,
		auditService:    auditService,
		validationUtil:  validationUtil,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	eventBus.Subscribe(util.EventGrantCreated, service.handleGrantCreated)
	eventBus.Subscribe(util.EventGrantRevoked, service.handleGrantRevoked)

	return service
}

func (s *AccessService) handleGrantCreated(ctx context.Context, event util.Event) error {
	grant, ok := event.Payload.(model.AccessGrant)
	if !ok {
		return fmt.Errorf("unexpected payload for %s event: %T", event.Type, event.Payload)
	}
	return s.notificationSvc.NotifyGrantChange(ctx, "created", grant)
}

func (s *AccessService) handleGrantRevoked(ctx context.Context, event util.Event) error {
	grant, ok := event.Payload.(model.AccessGrant)
	if !ok {
		return fmt.Errorf("unexpected payload for %s event: %T", event.Type, event.Payload)
	}
	return s.notificationSvc.NotifyGrantChange(ctx, "revoked", grant)
}

func expiryBuffer() time.Duration {
	return time.Duration(config.GetInt("grant.expiryBufferSeconds")) * time.Second
}

// CheckAccess resolves what a workspace may do with an object. Ownership
// beats any grant row: owners always get role owner with reshare, and no
// grant id. Otherwise the newest active grant wins; platform organizations
// match any grant, external ones only offline-mode grants.
func (s *AccessService) CheckAccess(ctx context.Context, objectType model.ObjectType, objectID, workspaceID string) (*model.CheckAccessResult, error) {
	owns, err := s.ownershipDAO.CheckOwnership(ctx, objectType, objectID, workspaceID)
	if err != nil {
		return nil, err
	}
	if owns {
		return &model.CheckAccessResult{
			IsOwner:    true,
			HasAccess:  true,
			Role:       model.RoleOwner,
			CanReshare: true,
		}, nil
	}

	org, err := s.lookupOrganization(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	offlineOnly := org == nil || !org.IsPlatform

	grant, err := s.grantDAO.FindActiveGrant(ctx, objectType, objectID, workspaceID, offlineOnly)
	if err != nil {
		return nil, err
	}
	if grant == nil || grant.IsExpiredWithBuffer(time.Now(), expiryBuffer()) {
		return &model.CheckAccessResult{}, nil
	}

	return &model.CheckAccessResult{
		HasAccess:  true,
		Role:       grant.GrantedRole,
		CanReshare: grant.CanReshare,
		GrantID:    grant.ID,
	}, nil
}

// GrantAccess mints a grant after re-deriving the granter's organization
// and requiring ownership. Re-sharing by a reshare-enabled grantee is a
// documented future capability; today only owners mint grants.
func (s *AccessService) GrantAccess(ctx context.Context, req GrantRequest, grantedBy string) (string, error) {
	granterOrgID, err := s.orgDAO.GetUserOrganization(ctx, grantedBy)
	if err != nil {
		return "", err
	}

	owns, err := s.ownershipDAO.CheckOwnership(ctx, req.ObjectType, req.ObjectID, granterOrgID)
	if err != nil {
		return "", err
	}
	if !owns {
		logger.Warn("Grant attempt by non-owner",
			zap.String("userID", grantedBy),
			zap.String("objectID", req.ObjectID))
		return "", access_errors.ErrNotOwner
	}

	if req.AccessMode == "" {
		// Derive the mode from the grantee's directory record: external
		// organizations can only hold offline grants.
		granteeOrg, err := s.lookupOrganization(ctx, req.GrantedToOrgID)
		if err != nil {
			return "", err
		}
		if granteeOrg != nil && granteeOrg.IsPlatform {
			req.AccessMode = model.AccessModePlatform
		} else {
			req.AccessMode = model.AccessModeOffline
		}
	}

	grant := model.AccessGrant{
		ObjectType:     req.ObjectType,
		ObjectID:       req.ObjectID,
		GrantedToOrgID: req.GrantedToOrgID,
		GrantedRole:    req.Role,
		CanReshare:     req.CanReshare,
		AccessMode:     req.AccessMode,
		ExpiresAt:      req.ExpiresAt,
		GrantedBy:      grantedBy,
	}
	if err := s.validationUtil.ValidateGrant(grant); err != nil {
		logger.Warn("Invalid grant request", zap.Error(err))
		return "", access_errors.ErrInvalidGrantData
	}

	grantID, err := s.grantDAO.InsertGrant(ctx, &grant)
	if err != nil {
		return "", err
	}

	details, _ := json.Marshal(map[string]interface{}{
		"role":        grant.GrantedRole,
		"can_reshare": grant.CanReshare,
		"access_mode": grant.AccessMode,
		"expires_at":  grant.ExpiresAt,
	})
	s.writeAudit(ctx, audit.AuditEntry{
		Action:     audit.ActionAccessGranted,
		ObjectType: string(grant.ObjectType),
		ObjectID:   grant.ObjectID,
		ActorID:    grantedBy,
		ActorOrgID: granterOrgID,
		GrantID:    grantID,
		Details:    details,
	})

	s.eventBus.Publish(ctx, util.EventGrantCreated, grant)

	return grantID, nil
}

// ListAccessGrants is the owner-only administrative view of every grant on
// an object, newest first, with grantee display names.
func (s *AccessService) ListAccessGrants(ctx context.Context, objectType model.ObjectType, objectID, workspaceID string) ([]*model.AccessGrant, error) {
	owns, err := s.ownershipDAO.CheckOwnership(ctx, objectType, objectID, workspaceID)
	if err != nil {
		return nil, err
	}
	if !owns {
		return nil, access_errors.ErrNotOwner
	}
	return s.grantDAO.ListGrantsByObject(ctx, objectType, objectID)
}

func (s *AccessService) GetGrant(ctx context.Context, grantID string) (*model.AccessGrant, error) {
	return s.grantDAO.GetGrantByID(ctx, grantID)
}

// RevokeAccessWithAudit revokes every active grant matching the triple and
// all their live tokens in one transaction, then appends exactly one audit
// entry per revoked grant. Revoking nothing is a successful no-op.
func (s *AccessService) RevokeAccessWithAudit(ctx context.Context, objectType model.ObjectType, objectID, grantedToOrgID, revokedBy, reason string) error {
	revoked, err := s.grantDAO.RevokeGrantsForObject(ctx, objectType, objectID, grantedToOrgID, revokedBy, reason)
	if err != nil {
		return err
	}
	if len(revoked) == 0 {
		logger.Info("Revocation no-op: no active grant matched",
			zap.String("objectID", objectID),
			zap.String("grantedToOrgID", grantedToOrgID))
		return nil
	}

	for _, r := range revoked {
		s.auditRevocation(ctx, r, string(objectType), objectID, revokedBy, grantedToOrgID, reason)
		s.eventBus.Publish(ctx, util.EventGrantRevoked, model.AccessGrant{
			ID:               r.GrantID,
			ObjectType:       objectType,
			ObjectID:         objectID,
			GrantedToOrgID:   grantedToOrgID,
			RevocationReason: reason,
		})
	}
	return nil
}

// RevokeGrantWithAudit revokes a single grant by id, gated to the owning
// workspace or a platform admin.
func (s *AccessService) RevokeGrantWithAudit(ctx context.Context, grantID, workspaceID, revokedBy, reason string, isAdmin bool) error {
	grant, err := s.grantDAO.GetGrantByID(ctx, grantID)
	if err != nil {
		return err
	}

	if !isAdmin {
		owns, err := s.ownershipDAO.CheckOwnership(ctx, grant.ObjectType, grant.ObjectID, workspaceID)
		if err != nil {
			return err
		}
		if !owns {
			return access_errors.ErrNotOwner
		}
	}

	revoked, err := s.grantDAO.RevokeGrantByID(ctx, grantID, revokedBy, reason)
	if err != nil {
		return err
	}
	if revoked == nil {
		// Already revoked or expired; idempotent success.
		return nil
	}

	s.auditRevocation(ctx, *revoked, string(grant.ObjectType), grant.ObjectID, revokedBy, grant.GrantedToOrgID, reason)

	grant.RevocationReason = reason
	s.eventBus.Publish(ctx, util.EventGrantRevoked, *grant)
	return nil
}

func (s *AccessService) auditRevocation(ctx context.Context, r dao.RevokedGrant, objectType, objectID, revokedBy, grantedToOrgID, reason string) {
	details, _ := json.Marshal(map[string]interface{}{
		"reason":            reason,
		"granted_to_org_id": grantedToOrgID,
		"revoked_token_ids": r.RevokedTokenIDs,
	})
	s.writeAudit(ctx, audit.AuditEntry{
		Action:     audit.ActionAccessRevoked,
		ObjectType: objectType,
		ObjectID:   objectID,
		ActorID:    revokedBy,
		GrantID:    r.GrantID,
		Details:    details,
	})
}

// writeAudit appends to the external sink with one retry. A failed append
// never rolls back the store write that preceded it: a revocation without
// its audit row is safer than a live grant.
func (s *AccessService) writeAudit(ctx context.Context, entry audit.AuditEntry) {
	if err := s.auditService.LogEntry(ctx, entry); err != nil {
		logger.Error("Audit write failed, retrying once",
			zap.Error(err),
			zap.String("action", entry.Action))
		if err := s.auditService.LogEntry(ctx, entry); err != nil {
			logger.Error("Audit write failed permanently",
				zap.Error(err),
				zap.String("action", entry.Action),
				zap.String("objectID", entry.ObjectID))
		}
	}
}

// lookupOrganization consults the Redis cache before the directory. A
// missing record means the organization is external to the platform.
func (s *AccessService) lookupOrganization(ctx context.Context, orgID string) (*model.Organization, error) {
	if cached, err := s.cacheService.GetOrganization(ctx, orgID); err == nil && cached != nil {
		return cached, nil
	}

	org, err := s.orgDAO.GetOrganization(ctx, orgID)
	if err == access_errors.ErrObjectNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.cacheService.SetOrganization(ctx, *org); err != nil {
		logger.Debug("Failed to cache organization", zap.Error(err), zap.String("organizationID", orgID))
	}
	return org, nil
}
