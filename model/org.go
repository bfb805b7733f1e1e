// model/org.go
package model

import "time"

// Organization is the slice of the workspace directory this subsystem
// needs: a display name and whether the org is internal to the platform.
// External orgs have no login session and can only hold offline grants.
type Organization struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	IsPlatform bool      `json:"is_platform"`
	CreatedAt  time.Time `json:"created_at"`
}
