// controller/access_controller.go
package controller

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/iamramakanthreddyk/mylab-platform-sub000/config"
	access_errors "github.com/iamramakanthreddyk/mylab-platform-sub000/errors"
	logger "github.com/iamramakanthreddyk/mylab-platform-sub000/logging"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/middleware"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/model"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/service"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/util"
	helper_util "github.com/iamramakanthreddyk/mylab-platform-sub000/util/helper"
)

type AccessController struct {
	accessService service.IAccessService
	tokenService  service.ITokenService
	abuseService  service.IAbuseService
}

func NewAccessController(accessService service.IAccessService, tokenService service.ITokenService, abuseService service.IAbuseService) *AccessController {
	return &AccessController{
		accessService: accessService,
		tokenService:  tokenService,
		abuseService:  abuseService,
	}
}

// RegisterRoutes registers the API routes. The download-file endpoint is
// registered separately on the public group: offline organizations redeem
// tokens without a login session.
func (ac *AccessController) RegisterRoutes(r *gin.RouterGroup, downloadLimiter middleware.RateLimiter) {
	access := r.Group("/access")
	{
		access.GET("/documents/:id/download",
			middleware.RateLimit(downloadLimiter, middleware.DownloadPolicy()),
			middleware.AccessGuard(ac.accessService),
			middleware.RequireRole(model.RoleViewer),
			ac.RequestDownloadToken)
		access.POST("/grants", ac.CreateGrant)
		access.GET("/objects/:type/:id/grants", ac.ListGrants)
		access.GET("/grants/:grantId", ac.GetGrant)
		access.POST("/grants/:grantId/revoke", ac.RevokeGrant)
	}
}

// RegisterPublicRoutes registers the token-redemption endpoint, which
// authenticates with the token itself rather than a session.
func (ac *AccessController) RegisterPublicRoutes(r *gin.RouterGroup, downloadLimiter middleware.RateLimiter) {
	r.GET("/access/documents/:id/download-file",
		middleware.RateLimit(downloadLimiter, middleware.DownloadPolicy()),
		ac.DownloadFile)
}

type grantRequest struct {
	ObjectType     string     `json:"object_type" binding:"required"`
	ObjectID       string     `json:"object_id" binding:"required"`
	GrantedToOrgID string     `json:"granted_to_org_id" binding:"required"`
	Role           string     `json:"role" binding:"required"`
	CanReshare     bool       `json:"can_reshare"`
	AccessMode     string     `json:"access_mode"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

// CreateGrant endpoint: only owners mint grants.
func (ac *AccessController) CreateGrant(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid grant data", err)
		return
	}

	objectType, err := model.ParseObjectType(req.ObjectType)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid object type", err)
		return
	}

	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	grantID, err := ac.accessService.GrantAccess(c, service.GrantRequest{
		ObjectType:     objectType,
		ObjectID:       req.ObjectID,
		GrantedToOrgID: req.GrantedToOrgID,
		Role:           model.Role(req.Role),
		CanReshare:     req.CanReshare,
		AccessMode:     model.AccessMode(req.AccessMode),
		ExpiresAt:      req.ExpiresAt,
	}, userID)
	if err != nil {
		switch {
		case errors.Is(err, access_errors.ErrNotOwner):
			util.RespondWithError(c, http.StatusForbidden, "Forbidden", err)
		case errors.Is(err, access_errors.ErrInvalidGrantData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid grant data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create grant", err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "grant_id": grantID})
}

// ListGrants endpoint: the owner's administrative view of an object.
func (ac *AccessController) ListGrants(c *gin.Context) {
	objectType, err := model.ParseObjectType(c.Param("type"))
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid object type", err)
		return
	}

	workspaceID, err := util.GetWorkspaceIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	grants, err := ac.accessService.ListAccessGrants(c, objectType, c.Param("id"), workspaceID)
	if err != nil {
		if errors.Is(err, access_errors.ErrNotOwner) {
			util.RespondWithError(c, http.StatusForbidden, "Forbidden", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to list grants", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"grants": grants})
}

// GetGrant endpoint: grant detail with derived status.
func (ac *AccessController) GetGrant(c *gin.Context) {
	grant, err := ac.accessService.GetGrant(c, c.Param("grantId"))
	if err != nil {
		if errors.Is(err, access_errors.ErrGrantNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Grant not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve grant", err)
		}
		return
	}

	// Visible to the owning workspace, the grantee organization, or an
	// admin; everyone else gets the generic denial.
	workspaceID, _ := util.GetWorkspaceIDFromContext(c)
	orgID, _ := util.GetOrgIDFromContext(c)
	if !util.IsAdminFromContext(c) && grant.GrantedToOrgID != orgID {
		result, err := ac.accessService.CheckAccess(c, grant.ObjectType, grant.ObjectID, workspaceID)
		if err != nil || !result.IsOwner {
			util.RespondWithError(c, http.StatusForbidden, "Forbidden", access_errors.ErrNotOwner)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"grant":  grant,
		"status": grant.Status(time.Now()),
	})
}

type revokeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RevokeGrant endpoint: owner-or-admin; idempotent.
func (ac *AccessController) RevokeGrant(c *gin.Context) {
	var req revokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Revocation reason is required", err)
		return
	}

	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}
	workspaceID, _ := util.GetWorkspaceIDFromContext(c)

	err = ac.accessService.RevokeGrantWithAudit(c, c.Param("grantId"), workspaceID, userID, req.Reason, util.IsAdminFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, access_errors.ErrGrantNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Grant not found", err)
		case errors.Is(err, access_errors.ErrNotOwner):
			util.RespondWithError(c, http.StatusForbidden, "Forbidden", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to revoke grant", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RequestDownloadToken endpoint: issues a short-lived token. Sits behind
// AccessGuard, which has already resolved ownership or an active grant and
// annotated the context.
func (ac *AccessController) RequestDownloadToken(c *gin.Context) {
	objectType, err := model.ParseObjectType(c.DefaultQuery("type", string(model.ObjectTypeDocument)))
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid object type", err)
		return
	}
	objectID := c.Param("id")

	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}
	orgID, _ := util.GetOrgIDFromContext(c)

	var grantID *string
	if v, ok := c.Get(util.CtxGrantID); ok {
		if id, ok := v.(string); ok && id != "" {
			grantID = &id
		}
	}

	oneTimeUse := c.DefaultQuery("oneTimeUse", "true") != "false"
	issued, err := ac.tokenService.GenerateDownloadToken(c, service.TokenRequest{
		ObjectType:     objectType,
		ObjectID:       objectID,
		OrganizationID: orgID,
		UserID:         userID,
		GrantID:        grantID,
		TTLMinutes:     config.GetInt("token.defaultTTLMinutes"),
		OneTimeUse:     oneTimeUse,
	})
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to issue download token", err)
		return
	}

	ac.abuseService.ObserveRequest(c, userID, objectID, 1, 0)

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"token":       issued.Token,
		"expiresIn":   issued.ExpiresIn,
		"oneTimeUse":  issued.OneTimeUse,
		"downloadUrl": fmt.Sprintf("/api/v1/access/documents/%s/download-file?token=%s&org=%s", objectID, issued.Token, orgID),
	})
}

// DownloadFile endpoint: validates and consumes the token, then streams
// the bytes. Every failure collapses to a generic 403.
func (ac *AccessController) DownloadFile(c *gin.Context) {
	plaintext := c.Query("token")
	orgID := c.Query("org")
	if plaintext == "" || orgID == "" {
		util.RespondWithError(c, http.StatusBadRequest, "Missing token or org parameter", access_errors.ErrTokenInvalid)
		return
	}

	validation, err := ac.tokenService.ValidateDownloadToken(c, plaintext, orgID)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to validate token", err)
		return
	}
	if !validation.Valid {
		// Precise reason for the logs only.
		logger.Warn("Download token rejected",
			zap.String("reason", validation.Reason),
			zap.String("org", orgID),
			zap.String("ip", c.ClientIP()))
		util.RespondWithError(c, http.StatusForbidden, "Forbidden", access_errors.ErrTokenInvalid)
		return
	}

	filePath := filepath.Join(config.GetString("storage.fileRoot"), string(validation.ObjectType), validation.ObjectID)
	info, err := os.Stat(filePath)
	if err != nil {
		util.RespondWithError(c, http.StatusNotFound, "File not found", err)
		return
	}

	quota := ac.abuseService.CheckDailyQuota(c, orgID, info.Size())
	if !quota.Allowed {
		util.RespondWithError(c, http.StatusForbidden, "Forbidden", access_errors.ErrTokenInvalid)
		return
	}

	// Consume before serving. The conditional update is the critical
	// section: when two requests race on the same one-time token, only
	// the one that flips used_at gets the bytes.
	if validation.OneTimeUse {
		if err := ac.tokenService.ConsumeDownloadToken(c, plaintext); err != nil {
			if errors.Is(err, access_errors.ErrTokenAlreadyUsed) {
				logger.Warn("Download token already consumed",
					zap.String("org", orgID),
					zap.String("ip", c.ClientIP()))
				util.RespondWithError(c, http.StatusForbidden, "Forbidden", access_errors.ErrTokenInvalid)
			} else {
				util.RespondWithError(c, http.StatusInternalServerError, "Failed to consume token", err)
			}
			return
		}
	}

	c.FileAttachment(filePath, validation.ObjectID)
	ac.abuseService.RecordDownload(c, orgID, orgID, string(validation.ObjectType), validation.ObjectID, info.Size())
	ac.abuseService.ObserveRequest(c, orgID, validation.ObjectID, 1, info.Size())
}

// parseAuditWindow is shared with the admin controller.
func parseAuditWindow(c *gin.Context) (time.Time, time.Time, error) {
	from := time.Now().AddDate(0, 0, -30)
	to := time.Now()

	if raw := c.Query("startDate"); raw != "" {
		parsed, err := helper_util.ParseTime(raw)
		if err != nil {
			return from, to, err
		}
		from = parsed
	}
	if raw := c.Query("endDate"); raw != "" {
		parsed, err := helper_util.ParseTime(raw)
		if err != nil {
			return from, to, err
		}
		to = parsed
	}
	return from, to, nil
}
