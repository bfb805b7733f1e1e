// service/services.go
package service

import (
	"database/sql"

	"github.com/iamramakanthreddyk/mylab-platform-sub000/audit"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/dao"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/util"
)

type Services struct {
	Access IAccessService
	Token  ITokenService
	Abuse  IAbuseService
}

func InitializeServices(
	sqlDB *sql.DB,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	cacheService *util.CacheService,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
) (*Services, error) {
	ownershipDAO := dao.NewOwnershipDAO(sqlDB)
	orgDAO := dao.NewOrgDAO(sqlDB)
	grantDAO := dao.NewGrantDAO(sqlDB)
	tokenDAO := dao.NewTokenDAO(sqlDB)

	services := &Services{
		Access: NewAccessService(ownershipDAO, grantDAO, orgDAO, auditService, validationUtil, cacheService, notificationSvc, eventBus),
		Token:  NewTokenService(tokenDAO, grantDAO, auditService, validationUtil, eventBus),
		Abuse:  NewAbuseService(auditService, notificationSvc, eventBus),
	}

	return services, nil
}
