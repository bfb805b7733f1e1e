// util/notification_service.go

package util

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/iamramakanthreddyk/mylab-platform-sub000/logging"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/model"
)

type NotificationService struct {
	// You might want to add dependencies here, such as a message queue client
}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotifyGrantChange surfaces grant lifecycle changes to interested parties.
func (n *NotificationService) NotifyGrantChange(ctx context.Context, changeType string, grant model.AccessGrant) error {
	switch changeType {
	case "created":
		logger.Info("NOTIFICATION: Access grant created",
			zap.String("grantID", grant.ID),
			zap.String("grantedToOrgID", grant.GrantedToOrgID),
			zap.String("role", string(grant.GrantedRole)))
	case "revoked":
		logger.Info("NOTIFICATION: Access grant revoked",
			zap.String("grantID", grant.ID),
			zap.String("reason", grant.RevocationReason))
	default:
		return fmt.Errorf("unknown change type: %s", changeType)
	}

	// Here you would implement the actual notification logic
	// This could involve sending messages to a queue, calling an external API, etc.

	return nil
}

// NotifyAnomaly alerts operators about high-severity abuse signals. The
// detector itself never blocks; acting on the alert is a policy decision.
func (n *NotificationService) NotifyAnomaly(ctx context.Context, actorID, severity, description string) error {
	logger.Warn("NOTIFICATION: Anomalous access pattern",
		zap.String("actorID", actorID),
		zap.String("severity", severity),
		zap.String("description", description))

	return nil
}
