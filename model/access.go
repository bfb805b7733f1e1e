// model/access.go
package model

import (
	"time"

	access_errors "github.com/iamramakanthreddyk/mylab-platform-sub000/errors"
)

// ObjectType enumerates the protected object kinds the access layer guards.
type ObjectType string

const (
	ObjectTypeProject       ObjectType = "project"
	ObjectTypeSample        ObjectType = "sample"
	ObjectTypeDerivedSample ObjectType = "derived_sample"
	ObjectTypeBatch         ObjectType = "batch"
	ObjectTypeAnalysis      ObjectType = "analysis"
	ObjectTypeDocument      ObjectType = "document"
	ObjectTypeResult        ObjectType = "result"
)

var objectTypes = map[ObjectType]bool{
	ObjectTypeProject:       true,
	ObjectTypeSample:        true,
	ObjectTypeDerivedSample: true,
	ObjectTypeBatch:         true,
	ObjectTypeAnalysis:      true,
	ObjectTypeDocument:      true,
	ObjectTypeResult:        true,
}

// ParseObjectType validates a raw string against the closed enum.
func ParseObjectType(s string) (ObjectType, error) {
	ot := ObjectType(s)
	if !objectTypes[ot] {
		return "", access_errors.ErrInvalidObjectType
	}
	return ot, nil
}

func (t ObjectType) Valid() bool {
	return objectTypes[t]
}

// Role is the ordered capability level a grant confers. Higher ranks imply
// all capabilities of lower ones.
type Role string

const (
	RoleViewer    Role = "viewer"
	RoleProcessor Role = "processor"
	RoleAnalyzer  Role = "analyzer"
	RoleClient    Role = "client"
	RoleOwner     Role = "owner"
)

// roleRanks is the single canonical rank table. Unknown roles rank -1 so
// malformed input degrades to denial instead of a crash.
var roleRanks = map[Role]int{
	RoleViewer:    0,
	RoleProcessor: 1,
	RoleAnalyzer:  2,
	RoleClient:    3,
	RoleOwner:     4,
}

func (r Role) Rank() int {
	rank, ok := roleRanks[r]
	if !ok {
		return -1
	}
	return rank
}

func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// AtLeast reports whether r carries every capability of min.
func (r Role) AtLeast(min Role) bool {
	return r.Rank() >= 0 && r.Rank() >= min.Rank()
}

// AccessMode distinguishes platform-internal grantees from external
// organizations using offline delivery without a login session.
type AccessMode string

const (
	AccessModePlatform AccessMode = "platform"
	AccessModeOffline  AccessMode = "offline"
)

// Grant lifecycle states derived from the row, never stored.
const (
	GrantStatusActive  = "active"
	GrantStatusRevoked = "revoked"
	GrantStatusExpired = "expired"
)

// AccessGrant authorizes one organization to access one object at one role.
// Rows are append-only: revocation stamps the revoked_* columns exactly
// once, and a re-grant creates a new row.
type AccessGrant struct {
	ID               string     `json:"id"`
	ObjectType       ObjectType `json:"object_type"`
	ObjectID         string     `json:"object_id"`
	GrantedToOrgID   string     `json:"granted_to_org_id"`
	GrantedToOrgName string     `json:"granted_to_org_name,omitempty"`
	GrantedRole      Role       `json:"granted_role"`
	CanReshare       bool       `json:"can_reshare"`
	AccessMode       AccessMode `json:"access_mode"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	GrantedBy        string     `json:"granted_by"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	RevokedBy        string     `json:"revoked_by,omitempty"`
	RevocationReason string     `json:"revocation_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// IsActive reports whether the grant still authorizes access at now.
func (g *AccessGrant) IsActive(now time.Time) bool {
	if g.RevokedAt != nil {
		return false
	}
	if g.ExpiresAt != nil && !g.ExpiresAt.After(now) {
		return false
	}
	return true
}

// IsExpiredWithBuffer treats a grant within buffer of its expiry as already
// expired, so tokens are never issued moments before the grant lapses.
func (g *AccessGrant) IsExpiredWithBuffer(now time.Time, buffer time.Duration) bool {
	if g.ExpiresAt == nil {
		return false
	}
	return !g.ExpiresAt.After(now.Add(buffer))
}

// Status derives the lifecycle state reported by the grant detail endpoint.
func (g *AccessGrant) Status(now time.Time) string {
	if g.RevokedAt != nil {
		return GrantStatusRevoked
	}
	if g.ExpiresAt != nil && !g.ExpiresAt.After(now) {
		return GrantStatusExpired
	}
	return GrantStatusActive
}

// Token lifecycle states derived from the row.
const (
	TokenStatusActive  = "active"
	TokenStatusUsed    = "used"
	TokenStatusExpired = "expired"
	TokenStatusRevoked = "revoked"
)

// DownloadToken is the stored side of an opaque download credential. Only
// the one-way hash of the plaintext is persisted.
type DownloadToken struct {
	ID             string     `json:"id"`
	TokenHash      string     `json:"-"`
	ObjectType     ObjectType `json:"object_type"`
	ObjectID       string     `json:"object_id"`
	OrganizationID string     `json:"organization_id"`
	UserID         string     `json:"user_id"`
	GrantID        *string    `json:"grant_id,omitempty"` // nil for owner-issued tokens
	ExpiresAt      time.Time  `json:"expires_at"`
	OneTimeUse     bool       `json:"one_time_use"`
	UsedAt         *time.Time `json:"used_at,omitempty"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Redeemable reports whether the token can still be exchanged for bytes.
func (t *DownloadToken) Redeemable(now time.Time) bool {
	if t.RevokedAt != nil || t.UsedAt != nil {
		return false
	}
	return t.ExpiresAt.After(now)
}

func (t *DownloadToken) Status(now time.Time) string {
	switch {
	case t.RevokedAt != nil:
		return TokenStatusRevoked
	case t.UsedAt != nil:
		return TokenStatusUsed
	case !t.ExpiresAt.After(now):
		return TokenStatusExpired
	default:
		return TokenStatusActive
	}
}

// CheckAccessResult is the outcome of the ownership-then-grant precedence
// check. Ownership always wins: an owner never surfaces a grant id.
type CheckAccessResult struct {
	IsOwner    bool   `json:"is_owner"`
	HasAccess  bool   `json:"has_access"`
	Role       Role   `json:"role,omitempty"`
	CanReshare bool   `json:"can_reshare"`
	GrantID    string `json:"grant_id,omitempty"`
}

// Token validation outcomes. Reasons are for internal logging; the HTTP
// boundary collapses every failure to a generic denial.
const (
	TokenReasonOK          = "ok"
	TokenReasonNotFound    = "not_found"
	TokenReasonOrgMismatch = "org_mismatch"
	TokenReasonRevoked     = "revoked"
	TokenReasonExpired     = "expired"
	TokenReasonAlreadyUsed = "already_used"
)

type TokenValidation struct {
	Valid      bool       `json:"valid"`
	Reason     string     `json:"reason,omitempty"`
	ObjectType ObjectType `json:"object_type,omitempty"`
	ObjectID   string     `json:"object_id,omitempty"`
	OneTimeUse bool       `json:"one_time_use,omitempty"`
}
