// audit/model.go
package audit

import (
	"encoding/json"
	"time"
)

// Actions recorded by the access subsystem. Entries are write-once; nothing
// in this subsystem ever updates or deletes them.
const (
	ActionAccessGranted     = "access_granted"
	ActionAccessRevoked     = "access_revoked"
	ActionTokenIssued       = "token_issued"
	ActionDownloadCompleted = "download_completed"
	ActionAnomalyDetected   = "anomaly_detected"
)

type AuditEntry struct {
	Timestamp  time.Time       `json:"timestamp"`
	Action     string          `json:"action"`
	ObjectType string          `json:"object_type"`
	ObjectID   string          `json:"object_id"`
	ActorID    string          `json:"actor_id"`
	ActorOrgID string          `json:"actor_org_id"`
	GrantID    string          `json:"grant_id,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
}

// Query filters for the admin audit endpoint.
type QueryFilter struct {
	From    time.Time
	To      time.Time
	Action  string
	ActorID string
	Limit   int
	Offset  int
}
