// dao/grant_dao_test.go
package dao

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	access_errors "github.com/iamramakanthreddyk/mylab-platform-sub000/errors"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/model"
)

var grantRowColumns = []string{
	"id", "object_type", "object_id", "granted_to_org_id", "granted_role",
	"can_reshare", "access_mode", "expires_at", "granted_by",
	"revoked_at", "revoked_by", "revocation_reason", "created_at",
}

func activeGrantRow(id string) *sqlmock.Rows {
	return sqlmock.NewRows(grantRowColumns).AddRow(
		id, "sample", "sample-1", "org-2", "analyzer",
		false, "platform", nil, "user-1",
		nil, nil, nil, time.Now(),
	)
}

func TestGrantDAO_FindActiveGrant(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	grantDAO := NewGrantDAO(sqlDB)

	t.Run("MatchFound", func(t *testing.T) {
		mock.ExpectQuery("select (.+) from access_grants g").
			WithArgs(model.ObjectTypeSample, "sample-1", "org-2").
			WillReturnRows(activeGrantRow("grant-1"))

		grant, err := grantDAO.FindActiveGrant(context.Background(), model.ObjectTypeSample, "sample-1", "org-2", false)
		require.NoError(t, err)
		require.NotNil(t, grant)
		assert.Equal(t, "grant-1", grant.ID)
		assert.Equal(t, model.RoleAnalyzer, grant.GrantedRole)
		assert.True(t, grant.IsActive(time.Now()))
	})

	t.Run("NoMatchReturnsNilWithoutError", func(t *testing.T) {
		mock.ExpectQuery("select (.+) from access_grants g").
			WithArgs(model.ObjectTypeSample, "sample-1", "org-9").
			WillReturnRows(sqlmock.NewRows(grantRowColumns))

		grant, err := grantDAO.FindActiveGrant(context.Background(), model.ObjectTypeSample, "sample-1", "org-9", false)
		require.NoError(t, err)
		assert.Nil(t, grant)
	})

	t.Run("OfflineOnlyRestrictsAccessMode", func(t *testing.T) {
		mock.ExpectQuery(`select (.+) from access_grants g(.+)access_mode = 'offline'`).
			WithArgs(model.ObjectTypeSample, "sample-1", "org-external").
			WillReturnRows(sqlmock.NewRows(grantRowColumns))

		grant, err := grantDAO.FindActiveGrant(context.Background(), model.ObjectTypeSample, "sample-1", "org-external", true)
		require.NoError(t, err)
		assert.Nil(t, grant)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantDAO_GetGrantByID_NotFound(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	grantDAO := NewGrantDAO(sqlDB)

	mock.ExpectQuery("select (.+) from access_grants g").
		WithArgs("missing-grant").
		WillReturnRows(sqlmock.NewRows(append(grantRowColumns, "name")))

	grant, err := grantDAO.GetGrantByID(context.Background(), "missing-grant")
	assert.ErrorIs(t, err, access_errors.ErrGrantNotFound)
	assert.Nil(t, grant)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantDAO_RevokeGrantsForObject_CascadesInOneTransaction(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	grantDAO := NewGrantDAO(sqlDB)

	mock.ExpectBegin()
	mock.ExpectQuery("update access_grants").
		WithArgs(model.ObjectTypeDocument, "doc-1", "org-2", "user-1", "contract ended").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("grant-1").AddRow("grant-2"))
	mock.ExpectQuery("update download_tokens").
		WithArgs("grant-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("token-1").AddRow("token-2"))
	mock.ExpectQuery("update download_tokens").
		WithArgs("grant-2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	revoked, err := grantDAO.RevokeGrantsForObject(context.Background(), model.ObjectTypeDocument, "doc-1", "org-2", "user-1", "contract ended")
	require.NoError(t, err)
	require.Len(t, revoked, 2)
	assert.Equal(t, "grant-1", revoked[0].GrantID)
	assert.Equal(t, []string{"token-1", "token-2"}, revoked[0].RevokedTokenIDs)
	assert.Equal(t, "grant-2", revoked[1].GrantID)
	assert.Empty(t, revoked[1].RevokedTokenIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantDAO_RevokeGrantsForObject_NoMatchIsIdempotent(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	grantDAO := NewGrantDAO(sqlDB)

	mock.ExpectBegin()
	mock.ExpectQuery("update access_grants").
		WithArgs(model.ObjectTypeDocument, "doc-1", "org-9", "user-1", "cleanup").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	revoked, err := grantDAO.RevokeGrantsForObject(context.Background(), model.ObjectTypeDocument, "doc-1", "org-9", "user-1", "cleanup")
	require.NoError(t, err)
	assert.Empty(t, revoked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantDAO_RevokeGrantByID(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	grantDAO := NewGrantDAO(sqlDB)

	t.Run("RevokesGrantAndTokens", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("update access_grants").
			WithArgs("grant-1", "user-1", "shared by mistake").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("update download_tokens").
			WithArgs("grant-1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("token-1"))
		mock.ExpectCommit()

		revoked, err := grantDAO.RevokeGrantByID(context.Background(), "grant-1", "user-1", "shared by mistake")
		require.NoError(t, err)
		require.NotNil(t, revoked)
		assert.Equal(t, "grant-1", revoked.GrantID)
		assert.Equal(t, []string{"token-1"}, revoked.RevokedTokenIDs)
	})

	t.Run("AlreadyRevokedIsIdempotentNoOp", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("update access_grants").
			WithArgs("grant-1", "user-1", "again").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		revoked, err := grantDAO.RevokeGrantByID(context.Background(), "grant-1", "user-1", "again")
		require.NoError(t, err)
		assert.Nil(t, revoked)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantDAO_InsertGrant_AssignsID(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	grantDAO := NewGrantDAO(sqlDB)

	mock.ExpectExec("insert into access_grants").
		WithArgs(sqlmock.AnyArg(), model.ObjectTypeSample, "sample-1", "org-2",
			model.RoleProcessor, false, model.AccessModePlatform, nil, "user-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	grant := &model.AccessGrant{
		ObjectType:     model.ObjectTypeSample,
		ObjectID:       "sample-1",
		GrantedToOrgID: "org-2",
		GrantedRole:    model.RoleProcessor,
		AccessMode:     model.AccessModePlatform,
		GrantedBy:      "user-1",
	}
	grantID, err := grantDAO.InsertGrant(context.Background(), grant)
	require.NoError(t, err)
	assert.NotEmpty(t, grantID)
	assert.Equal(t, grant.ID, grantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
