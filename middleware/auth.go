// middleware/auth.go
package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/iamramakanthreddyk/mylab-platform-sub000/config"
	logger "github.com/iamramakanthreddyk/mylab-platform-sub000/logging"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/util"
)

// SessionClaims is the identity the platform's session service puts in its
// bearer tokens. The core never authenticates; it consumes this identity.
type SessionClaims struct {
	jwt.RegisteredClaims
	OrganizationID string `json:"org_id"`
	WorkspaceID    string `json:"workspace_id"`
	IsAdmin        bool   `json:"is_admin"`
}

// AuthMiddleware parses the bearer token and installs the actor identity in
// the request context. Requests without a valid session are rejected before
// any access check runs.
func AuthMiddleware() gin.HandlerFunc {
	secret := []byte(config.GetString("auth.jwt.secret"))

	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")

		claims := &SessionClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			logger.Warn("Invalid session token", zap.Error(err), zap.String("ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		workspaceID := claims.WorkspaceID
		if workspaceID == "" {
			workspaceID = claims.OrganizationID
		}

		c.Set(util.CtxUserID, claims.Subject)
		c.Set(util.CtxOrgID, claims.OrganizationID)
		c.Set(util.CtxWorkspaceID, workspaceID)
		c.Set(util.CtxIsAdmin, claims.IsAdmin)

		c.Next()
	}
}

// AdminOnly gates the admin surface. Requires AuthMiddleware upstream.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !util.IsAdminFromContext(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			c.Abort()
			return
		}
		c.Next()
	}
}
