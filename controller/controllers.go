// controller/controllers.go
package controller

import (
	"github.com/iamramakanthreddyk/mylab-platform-sub000/audit"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/service"
)

type Controllers struct {
	Access *AccessController
	Admin  *AdminController
}

func InitializeControllers(services *service.Services, auditService audit.Service) *Controllers {
	return &Controllers{
		Access: NewAccessController(services.Access, services.Token, services.Abuse),
		Admin:  NewAdminController(services.Token, auditService),
	}
}
