// controller/admin_controller.go
package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/iamramakanthreddyk/mylab-platform-sub000/audit"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/middleware"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/service"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/util"
	helper_util "github.com/iamramakanthreddyk/mylab-platform-sub000/util/helper"
)

// AdminController exposes the audit trail and janitor controls. Every
// route is gated behind the admin flag of the session.
type AdminController struct {
	tokenService service.ITokenService
	auditService audit.Service
}

func NewAdminController(tokenService service.ITokenService, auditService audit.Service) *AdminController {
	return &AdminController{
		tokenService: tokenService,
		auditService: auditService,
	}
}

func (ad *AdminController) RegisterRoutes(r *gin.RouterGroup) {
	access := r.Group("/access", middleware.AdminOnly())
	{
		access.GET("/audit", ad.QueryAudit)
		access.GET("/tokens/:objectId", ad.ListTokens)
		access.POST("/admin/cleanup", ad.TriggerCleanup)
		access.GET("/admin/stats", ad.TokenStats)
	}
}

// QueryAudit endpoint: paginated revocation and access history. Only here
// may the specific denial reasons surface.
func (ad *AdminController) QueryAudit(c *gin.Context) {
	from, to, err := parseAuditWindow(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid date range", err)
		return
	}
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	entries, err := ad.auditService.QueryEntries(c, audit.QueryFilter{
		From:    from,
		To:      to,
		Action:  c.Query("action"),
		ActorID: c.Query("actorId"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to query audit log", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"limit":   limit,
		"offset":  offset,
	})
}

// ListTokens endpoint: token inventory for one object with derived status.
func (ad *AdminController) ListTokens(c *gin.Context) {
	tokens, err := ad.tokenService.ListTokens(c, c.Param("objectId"))
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list tokens", err)
		return
	}

	now := time.Now()
	out := make([]gin.H, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, gin.H{
			"token":  token,
			"status": token.Status(now),
		})
	}

	c.JSON(http.StatusOK, gin.H{"tokens": out})
}

// TriggerCleanup endpoint: manual janitor sweep.
func (ad *AdminController) TriggerCleanup(c *gin.Context) {
	report, err := ad.tokenService.TriggerManualCleanup(c)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to run token cleanup", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// TokenStats endpoint: read-only counts by status.
func (ad *AdminController) TokenStats(c *gin.Context) {
	stats, err := ad.tokenService.GetTokenStats(c)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to load token stats", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
