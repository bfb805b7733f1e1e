// controller/admin_controller_test.go
package controller_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	testify_mock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iamramakanthreddyk/mylab-platform-sub000/audit"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/controller"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/model"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/service"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/test/mock"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/util"
)

type adminFixture struct {
	tokenService *mock.MockTokenService
	auditService *mock.MockAuditService
	router       *gin.Engine
}

func newAdminFixture(isAdmin bool) *adminFixture {
	f := &adminFixture{
		tokenService: new(mock.MockTokenService),
		auditService: new(mock.MockAuditService),
	}

	f.router = gin.New()
	f.router.Use(func(c *gin.Context) {
		c.Set(util.CtxUserID, "admin-1")
		c.Set(util.CtxIsAdmin, isAdmin)
	})

	adminController := controller.NewAdminController(f.tokenService, f.auditService)
	api := f.router.Group("/api/v1")
	adminController.RegisterRoutes(api)
	return f
}

func TestAdminController_RequiresAdmin(t *testing.T) {
	f := newAdminFixture(false)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/access/admin/stats", nil)
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	f.tokenService.AssertNotCalled(t, "GetTokenStats", testify_mock.Anything)
}

func TestAdminController_QueryAudit(t *testing.T) {
	t.Run("FiltersForwarded", func(t *testing.T) {
		f := newAdminFixture(true)

		var captured audit.QueryFilter
		f.auditService.On("QueryEntries", testify_mock.Anything, testify_mock.Anything).
			Run(func(args testify_mock.Arguments) {
				captured = args.Get(1).(audit.QueryFilter)
			}).
			Return([]audit.AuditEntry{
				{Action: audit.ActionAccessRevoked, ObjectID: "doc-1", ActorID: "user-1"},
			}, nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/access/audit?action=access_revoked&actorId=user-1&limit=10&offset=5", nil)
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), audit.ActionAccessRevoked)
		assert.Equal(t, "access_revoked", captured.Action)
		assert.Equal(t, "user-1", captured.ActorID)
		assert.Equal(t, 10, captured.Limit)
		assert.Equal(t, 5, captured.Offset)
	})

	t.Run("BadDateRejected", func(t *testing.T) {
		f := newAdminFixture(true)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/access/audit?startDate=not-a-date", nil)
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAdminController_ListTokens(t *testing.T) {
	f := newAdminFixture(true)

	used := time.Now().Add(-time.Minute)
	f.tokenService.On("ListTokens", testify_mock.Anything, "doc-1").
		Return([]*model.DownloadToken{
			{ID: "token-1", ObjectID: "doc-1", ExpiresAt: time.Now().Add(time.Hour), OneTimeUse: true, UsedAt: &used},
			{ID: "token-2", ObjectID: "doc-1", ExpiresAt: time.Now().Add(time.Hour)},
		}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/access/tokens/doc-1", nil)
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"used"`)
	assert.Contains(t, w.Body.String(), `"status":"active"`)
}

func TestAdminController_TriggerCleanup(t *testing.T) {
	f := newAdminFixture(true)

	f.tokenService.On("TriggerManualCleanup", testify_mock.Anything).
		Return(&service.CleanupReport{Scanned: 5, Deleted: 5, Errors: []string{}}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/access/admin/cleanup", nil)
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted":5`)
}

func TestAdminController_TokenStats(t *testing.T) {
	f := newAdminFixture(true)

	f.tokenService.On("GetTokenStats", testify_mock.Anything).
		Return(map[string]int64{"active": 2, "used": 7, "expired": 1, "revoked": 0}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/access/admin/stats", nil)
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	require.Contains(t, w.Body.String(), `"used":7`)
}
