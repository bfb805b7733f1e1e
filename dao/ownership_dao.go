// dao/ownership_dao.go
package dao

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/iamramakanthreddyk/mylab-platform-sub000/db"
	logger "github.com/iamramakanthreddyk/mylab-platform-sub000/logging"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/model"
)

type IOwnershipDAO interface {
	CheckOwnership(ctx context.Context, objectType model.ObjectType, objectID, workspaceID string) (bool, error)
}

// OwnershipDAO answers "does this workspace own the object" by probing the
// entity tables of the CRUD layer. Read-only: ownership is derived from the
// owning object's workspace reference, never stored as a grant row.
type OwnershipDAO struct {
	DB *sql.DB
}

func NewOwnershipDAO(sqlDB *sql.DB) *OwnershipDAO {
	return &OwnershipDAO{DB: sqlDB}
}

// ownershipTables maps each object type to the table its existence
// predicate probes. Every table carries workspace_id and soft deletion.
var ownershipTables = map[model.ObjectType]string{
	model.ObjectTypeProject:       "projects",
	model.ObjectTypeSample:        "samples",
	model.ObjectTypeDerivedSample: "derived_samples",
	model.ObjectTypeBatch:         "batches",
	model.ObjectTypeAnalysis:      "analyses",
	model.ObjectTypeDocument:      "documents",
	model.ObjectTypeResult:        "results",
}

// CheckOwnership dispatches to the per-type existence predicate. An unknown
// object type is a programmer error, not a user error: panic rather than
// degrade to a deniable result.
func (dao *OwnershipDAO) CheckOwnership(ctx context.Context, objectType model.ObjectType, objectID, workspaceID string) (bool, error) {
	table, ok := ownershipTables[objectType]
	if !ok {
		panic(fmt.Sprintf("ownership check for unknown object type %q", objectType))
	}

	ctx, cancel := db.QueryContext(ctx)
	defer cancel()

	query := fmt.Sprintf(
		`select exists(select 1 from %s where id = $1 and workspace_id = $2 and deleted_at is null)`,
		table,
	)

	var owns bool
	if err := dao.DB.QueryRowContext(ctx, query, objectID, workspaceID).Scan(&owns); err != nil {
		logger.Error("Ownership check failed",
			zap.Error(err),
			zap.String("objectType", string(objectType)),
			zap.String("objectID", objectID))
		return false, err
	}

	return owns, nil
}
