// dao/grant_dao.go
package dao

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iamramakanthreddyk/mylab-platform-sub000/db"
	access_errors "github.com/iamramakanthreddyk/mylab-platform-sub000/errors"
	logger "github.com/iamramakanthreddyk/mylab-platform-sub000/logging"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/model"
)

type IGrantDAO interface {
	InsertGrant(ctx context.Context, grant *model.AccessGrant) (string, error)
	FindActiveGrant(ctx context.Context, objectType model.ObjectType, objectID, orgID string, offlineOnly bool) (*model.AccessGrant, error)
	ListGrantsByObject(ctx context.Context, objectType model.ObjectType, objectID string) ([]*model.AccessGrant, error)
	GetGrantByID(ctx context.Context, grantID string) (*model.AccessGrant, error)
	RevokeGrantsForObject(ctx context.Context, objectType model.ObjectType, objectID, orgID, revokedBy, reason string) ([]RevokedGrant, error)
	RevokeGrantByID(ctx context.Context, grantID, revokedBy, reason string) (*RevokedGrant, error)
}

// RevokedGrant reports one grant revoked by a cascade, with every token id
// invalidated alongside it. One audit entry is written per element.
type RevokedGrant struct {
	GrantID         string
	RevokedTokenIDs []string
}

type GrantDAO struct {
	DB *sql.DB
}

func NewGrantDAO(sqlDB *sql.DB) *GrantDAO {
	return &GrantDAO{DB: sqlDB}
}

const grantColumns = `g.id, g.object_type, g.object_id, g.granted_to_org_id, g.granted_role,
	g.can_reshare, g.access_mode, g.expires_at, g.granted_by,
	g.revoked_at, g.revoked_by, g.revocation_reason, g.created_at`

func scanGrant(row interface{ Scan(...any) error }, withOrgName bool) (*model.AccessGrant, error) {
	var (
		g       model.AccessGrant
		expires sql.NullTime
		revoked sql.NullTime
		revBy   sql.NullString
		reason  sql.NullString
		orgName sql.NullString
	)
	dest := []any{
		&g.ID, &g.ObjectType, &g.ObjectID, &g.GrantedToOrgID, &g.GrantedRole,
		&g.CanReshare, &g.AccessMode, &expires, &g.GrantedBy,
		&revoked, &revBy, &reason, &g.CreatedAt,
	}
	if withOrgName {
		dest = append(dest, &orgName)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if expires.Valid {
		t := expires.Time
		g.ExpiresAt = &t
	}
	if revoked.Valid {
		t := revoked.Time
		g.RevokedAt = &t
	}
	g.RevokedBy = revBy.String
	g.RevocationReason = reason.String
	g.GrantedToOrgName = orgName.String
	return &g, nil
}

// InsertGrant creates one grant row. Re-grants after revocation are new
// rows; revoked rows are never reactivated.
func (dao *GrantDAO) InsertGrant(ctx context.Context, grant *model.AccessGrant) (string, error) {
	start := time.Now()
	if grant.ID == "" {
		grant.ID = uuid.New().String()
	}

	ctx, cancel := db.QueryContext(ctx)
	defer cancel()

	_, err := dao.DB.ExecContext(ctx,
		`insert into access_grants
			(id, object_type, object_id, granted_to_org_id, granted_role, can_reshare, access_mode, expires_at, granted_by, created_at)
		 values ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())`,
		grant.ID, grant.ObjectType, grant.ObjectID, grant.GrantedToOrgID,
		grant.GrantedRole, grant.CanReshare, grant.AccessMode, grant.ExpiresAt, grant.GrantedBy,
	)
	if err != nil {
		logger.Error("Failed to insert access grant",
			zap.Error(err),
			zap.String("objectID", grant.ObjectID),
			zap.Duration("duration", time.Since(start)))
		return "", access_errors.ErrDatabaseOperation
	}

	logger.Info("Access grant created",
		zap.String("grantID", grant.ID),
		zap.String("objectType", string(grant.ObjectType)),
		zap.String("objectID", grant.ObjectID),
		zap.String("grantedToOrgID", grant.GrantedToOrgID),
		zap.String("role", string(grant.GrantedRole)))
	return grant.ID, nil
}

// FindActiveGrant returns the most recently created active grant for the
// organization on the object, or nil when none matches. offlineOnly
// restricts the match to offline-mode grants (external organizations).
func (dao *GrantDAO) FindActiveGrant(ctx context.Context, objectType model.ObjectType, objectID, orgID string, offlineOnly bool) (*model.AccessGrant, error) {
	ctx, cancel := db.QueryContext(ctx)
	defer cancel()

	query := `select ` + grantColumns + `
		from access_grants g
		where g.object_type = $1 and g.object_id = $2 and g.granted_to_org_id = $3
		  and g.revoked_at is null
		  and (g.expires_at is null or g.expires_at > now())`
	if offlineOnly {
		query += ` and g.access_mode = 'offline'`
	}
	query += ` order by g.created_at desc limit 1`

	grant, err := scanGrant(dao.DB.QueryRowContext(ctx, query, objectType, objectID, orgID), false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return grant, nil
}

// ListGrantsByObject returns every grant row for the object, newest first,
// enriched with the grantee organization's display name.
func (dao *GrantDAO) ListGrantsByObject(ctx context.Context, objectType model.ObjectType, objectID string) ([]*model.AccessGrant, error) {
	ctx, cancel := db.QueryContext(ctx)
	defer cancel()

	rows, err := dao.DB.QueryContext(ctx,
		`select `+grantColumns+`, coalesce(o.name, '')
		 from access_grants g
		 left join organizations o on o.id = g.granted_to_org_id
		 where g.object_type = $1 and g.object_id = $2
		 order by g.created_at desc`,
		objectType, objectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []*model.AccessGrant
	for rows.Next() {
		grant, err := scanGrant(rows, true)
		if err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}
	return grants, rows.Err()
}

func (dao *GrantDAO) GetGrantByID(ctx context.Context, grantID string) (*model.AccessGrant, error) {
	ctx, cancel := db.QueryContext(ctx)
	defer cancel()

	grant, err := scanGrant(dao.DB.QueryRowContext(ctx,
		`select `+grantColumns+`, coalesce(o.name, '')
		 from access_grants g
		 left join organizations o on o.id = g.granted_to_org_id
		 where g.id = $1`,
		grantID,
	), true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, access_errors.ErrGrantNotFound
	}
	if err != nil {
		return nil, err
	}
	return grant, nil
}

// RevokeGrantsForObject revokes every active grant matching the
// (objectType, objectID, orgID) triple and cascades revocation to their
// live tokens, all inside one transaction. Zero matches is a successful
// no-op: revocation is idempotent.
func (dao *GrantDAO) RevokeGrantsForObject(ctx context.Context, objectType model.ObjectType, objectID, orgID, revokedBy, reason string) ([]RevokedGrant, error) {
	ctx, cancel := db.QueryContext(ctx)
	defer cancel()

	tx, err := dao.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, access_errors.ErrDatabaseOperation
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`update access_grants
		 set revoked_at = now(), revoked_by = $4, revocation_reason = $5
		 where object_type = $1 and object_id = $2 and granted_to_org_id = $3
		   and revoked_at is null
		   and (expires_at is null or expires_at > now())
		 returning id`,
		objectType, objectID, orgID, revokedBy, reason,
	)
	if err != nil {
		return nil, access_errors.ErrDatabaseOperation
	}

	var grantIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, access_errors.ErrDatabaseOperation
		}
		grantIDs = append(grantIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, access_errors.ErrDatabaseOperation
	}

	revoked := make([]RevokedGrant, 0, len(grantIDs))
	for _, grantID := range grantIDs {
		tokenIDs, err := cascadeRevokeTokens(ctx, tx, grantID)
		if err != nil {
			return nil, access_errors.ErrDatabaseOperation
		}
		revoked = append(revoked, RevokedGrant{GrantID: grantID, RevokedTokenIDs: tokenIDs})
	}

	if err := tx.Commit(); err != nil {
		return nil, access_errors.ErrDatabaseOperation
	}

	for _, r := range revoked {
		logger.Info("Access grant revoked",
			zap.String("grantID", r.GrantID),
			zap.String("revokedBy", revokedBy),
			zap.Int("tokensRevoked", len(r.RevokedTokenIDs)))
	}
	return revoked, nil
}

// RevokeGrantByID revokes one grant and cascades to its tokens. Returns nil
// without error when the grant is already revoked or expired.
func (dao *GrantDAO) RevokeGrantByID(ctx context.Context, grantID, revokedBy, reason string) (*RevokedGrant, error) {
	ctx, cancel := db.QueryContext(ctx)
	defer cancel()

	tx, err := dao.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, access_errors.ErrDatabaseOperation
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`update access_grants
		 set revoked_at = now(), revoked_by = $2, revocation_reason = $3
		 where id = $1
		   and revoked_at is null
		   and (expires_at is null or expires_at > now())`,
		grantID, revokedBy, reason,
	)
	if err != nil {
		return nil, access_errors.ErrDatabaseOperation
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, access_errors.ErrDatabaseOperation
	}
	if affected == 0 {
		// Nothing to revoke; idempotent success.
		if err := tx.Commit(); err != nil {
			return nil, access_errors.ErrDatabaseOperation
		}
		return nil, nil
	}

	tokenIDs, err := cascadeRevokeTokens(ctx, tx, grantID)
	if err != nil {
		return nil, access_errors.ErrDatabaseOperation
	}

	if err := tx.Commit(); err != nil {
		return nil, access_errors.ErrDatabaseOperation
	}

	logger.Info("Access grant revoked",
		zap.String("grantID", grantID),
		zap.String("revokedBy", revokedBy),
		zap.Int("tokensRevoked", len(tokenIDs)))
	return &RevokedGrant{GrantID: grantID, RevokedTokenIDs: tokenIDs}, nil
}

// cascadeRevokeTokens stamps revoked_at on every live token of a grant
// within the caller's transaction. Already used or expired tokens are left
// untouched so their terminal state stays truthful.
func cascadeRevokeTokens(ctx context.Context, tx *sql.Tx, grantID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`update download_tokens
		 set revoked_at = now()
		 where grant_id = $1
		   and used_at is null
		   and revoked_at is null
		   and expires_at > now()
		 returning id`,
		grantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokenIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		tokenIDs = append(tokenIDs, id)
	}
	return tokenIDs, rows.Err()
}
