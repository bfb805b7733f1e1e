// util/http_util.go
package util

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	access_errors "github.com/iamramakanthreddyk/mylab-platform-sub000/errors"
	logger "github.com/iamramakanthreddyk/mylab-platform-sub000/logging"
)

// Context keys populated by the auth and access-guard middleware.
const (
	CtxUserID      = "userID"
	CtxOrgID       = "organizationID"
	CtxWorkspaceID = "workspaceID"
	CtxIsAdmin     = "isAdmin"
	CtxAccessRole  = "accessRole"
	CtxGrantID     = "grantID"
	CtxIsOwner     = "isOwner"
)

// RespondWithError logs the real cause and returns the outward message.
// Denials stay generic so the reason never leaks to the end user.
func RespondWithError(c *gin.Context, code int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(code, gin.H{"error": message})
}

func GetUserIDFromContext(c *gin.Context) (string, error) {
	userID, exists := c.Get(CtxUserID)
	if !exists {
		return "", access_errors.ErrUnauthorized
	}
	return userID.(string), nil
}

func GetOrgIDFromContext(c *gin.Context) (string, error) {
	orgID, exists := c.Get(CtxOrgID)
	if !exists {
		return "", access_errors.ErrUnauthorized
	}
	return orgID.(string), nil
}

// GetWorkspaceIDFromContext returns the caller's workspace, falling back to
// the organization when no explicit workspace was set.
func GetWorkspaceIDFromContext(c *gin.Context) (string, error) {
	if workspaceID, exists := c.Get(CtxWorkspaceID); exists {
		return workspaceID.(string), nil
	}
	return GetOrgIDFromContext(c)
}

func IsAdminFromContext(c *gin.Context) bool {
	isAdmin, exists := c.Get(CtxIsAdmin)
	return exists && isAdmin.(bool)
}
