// router/router.go

package router

import (
	"github.com/gin-gonic/gin"

	"github.com/iamramakanthreddyk/mylab-platform-sub000/controller"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/middleware"
)

func SetupRouter(
	controllers *controller.Controllers,
	generalLimiter middleware.RateLimiter,
	downloadLimiter middleware.RateLimiter,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.RateLimit(generalLimiter, middleware.GeneralAPIPolicy()))

	// Token redemption authenticates with the token itself; offline
	// organizations have no login session.
	public := router.Group("/api/v1")
	controllers.Access.RegisterPublicRoutes(public, downloadLimiter)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware())

	controllers.Access.RegisterRoutes(api, downloadLimiter)
	controllers.Admin.RegisterRoutes(api)

	return router
}
