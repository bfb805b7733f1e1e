// util/validation_util.go

package util

import (
	"fmt"
	"time"

	"github.com/iamramakanthreddyk/mylab-platform-sub000/model"
)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

func (v *ValidationUtil) ValidateGrant(grant model.AccessGrant) error {
	if !grant.ObjectType.Valid() {
		return fmt.Errorf("unknown object type: %s", grant.ObjectType)
	}
	if grant.ObjectID == "" {
		return fmt.Errorf("object ID cannot be empty")
	}
	if grant.GrantedToOrgID == "" {
		return fmt.Errorf("grantee organization ID cannot be empty")
	}
	if !grant.GrantedRole.Valid() {
		return fmt.Errorf("unknown role: %s", grant.GrantedRole)
	}
	if grant.GrantedRole == model.RoleOwner {
		return fmt.Errorf("ownership cannot be granted; it is derived from the owning workspace")
	}
	if grant.AccessMode != model.AccessModePlatform && grant.AccessMode != model.AccessModeOffline {
		return fmt.Errorf("access mode must be either 'platform' or 'offline'")
	}
	if grant.ExpiresAt != nil && !grant.ExpiresAt.After(time.Now()) {
		return fmt.Errorf("grant expiry must be in the future")
	}
	// Add more validation rules as needed
	return nil
}

func (v *ValidationUtil) ValidateTokenRequest(objectType model.ObjectType, objectID string, ttlMinutes int) error {
	if !objectType.Valid() {
		return fmt.Errorf("unknown object type: %s", objectType)
	}
	if objectID == "" {
		return fmt.Errorf("object ID cannot be empty")
	}
	if ttlMinutes <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	return nil
}
