// dao/org_dao.go
package dao

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iamramakanthreddyk/mylab-platform-sub000/db"
	access_errors "github.com/iamramakanthreddyk/mylab-platform-sub000/errors"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/model"
)

type IOrgDAO interface {
	GetOrganization(ctx context.Context, orgID string) (*model.Organization, error)
	GetUserOrganization(ctx context.Context, userID string) (string, error)
}

// OrgDAO reads the organization/workspace directory. The directory is owned
// by the platform's workspace service; this subsystem only consumes its
// identity and is-platform facts.
type OrgDAO struct {
	DB *sql.DB
}

func NewOrgDAO(sqlDB *sql.DB) *OrgDAO {
	return &OrgDAO{DB: sqlDB}
}

func (dao *OrgDAO) GetOrganization(ctx context.Context, orgID string) (*model.Organization, error) {
	ctx, cancel := db.QueryContext(ctx)
	defer cancel()

	var org model.Organization
	err := dao.DB.QueryRowContext(ctx,
		`select id, name, is_platform, created_at from organizations where id = $1 and deleted_at is null`,
		orgID,
	).Scan(&org.ID, &org.Name, &org.IsPlatform, &org.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, access_errors.ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// GetUserOrganization re-derives the organization a user belongs to. Grant
// minting never trusts a caller-supplied org id.
func (dao *OrgDAO) GetUserOrganization(ctx context.Context, userID string) (string, error) {
	ctx, cancel := db.QueryContext(ctx)
	defer cancel()

	var orgID string
	err := dao.DB.QueryRowContext(ctx,
		`select organization_id from users where id = $1 and deleted_at is null`,
		userID,
	).Scan(&orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", access_errors.ErrUnauthorized
	}
	if err != nil {
		return "", err
	}
	return orgID, nil
}
