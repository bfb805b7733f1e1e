// dao/token_dao.go
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

type ITokenDAO interface {
	InsertToken(ctx context.Context, token *model.DownloadToken) (string, error)
	FindByHash(ctx context.Context, tokenHash string) (*model.DownloadToken, error)
	MarkUsedByHash(ctx context.Context, tokenHash string) (bool, error)
	ListByObject(ctx context.Context, objectID string) ([]*model.DownloadToken, error)
	ListExpired(ctx context.Context, before time.Time) ([]string, error)
	DeleteToken(ctx context.Context, tokenID string) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type TokenDAO struct {
	DB *sql.DB
}

func NewTokenDAO(sqlDB *sql.DB) *TokenDAO {
	return &TokenDAO{DB: sqlDB}
}

const tokenColumns = `id, token_hash, object_type, object_id, organization_id, user_id,
	grant_id, expires_at, one_time_use, used_at, revoked_at, created_at`

func scanToken(row interface{ Scan(...any) error }) (*model.DownloadToken, error) {
	var (
		t       model.DownloadToken
		grantID sql.NullString
		usedAt  sql.NullTime
		revoked sql.NullTime
	)
	err := row.Scan(
		&t.ID, &t.TokenHash, &t.ObjectType, &t.ObjectID, &t.OrganizationID, &t.UserID,
		&grantID, &t.ExpiresAt, &t.OneTimeUse, &usedAt, &revoked, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if grantID.Valid {
		s := grantID.String
		t.GrantID = &s
	}
	if usedAt.Valid {
		ts := usedAt.Time
		t.UsedAt = &ts
	}
	if revoked.Valid {
		ts := revoked.Time
		t.RevokedAt = &ts
	}
	return &t, nil
}

// InsertToken persists hash and metadata. The plaintext never reaches this
// layer.
func (dao *TokenDAO) InsertToken(ctx context.Context, token *model.DownloadToken) (string, error) {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}

	ctx, cancel := db.QueryContext(ctx)
	defer cancel()

	_, err := dao.DB.ExecContext(ctx,
		`insert into download_tokens
			(id, token_hash, object_type, object_id, organization_id, user_id, grant_id, expires_at, one_time_use, created_at)
		 values ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())`,
		token.ID, token.TokenHash, token.ObjectType, token.ObjectID,
		token.OrganizationID, token.UserID, token.GrantID, token.ExpiresAt, token.OneTimeUse,
	)
	if err != nil {
		logger.Error("Failed to insert download token",
			zap.Error(err),
			zap.String("objectID", token.ObjectID))
		return "", access_errors.ErrDatabaseOperation
	}

	return token.ID, nil
}

func (dao *TokenDAO) FindByHash(ctx context.Context, tokenHash string) (*model.DownloadToken, error) {
	ctx, cancel := db.QueryContext(ctx)
	defer cancel()

	token, err := scanToken(dao.DB.QueryRowContext(ctx,
		`select `+tokenColumns+` from download_tokens where token_hash = $1`,
		tokenHash,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

// MarkUsedByHash stamps used_at with a conditional update. Zero rows
// affected means another request already consumed the token (or it was
// never issued); callers treat that as "already used", never as success.
func (dao *TokenDAO) MarkUsedByHash(ctx context.Context, tokenHash string) (bool, error) {
	ctx, cancel := db.QueryContext(ctx)
	defer cancel()

	res, err := dao.DB.ExecContext(ctx,
		`update download_tokens set used_at = now() where token_hash = $1 and used_at is null`,
		tokenHash,
	)
	if err != nil {
		return false, access_errors.ErrDatabaseOperation
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, access_errors.ErrDatabaseOperation
	}
	return affected > 0, nil
}

func (dao *TokenDAO) ListByObject(ctx context.Context, objectID string) ([]*model.DownloadToken, error) {
	ctx, cancel := db.QueryContext(ctx)
	defer cancel()

	rows, err := dao.DB.QueryContext(ctx,
		`select `+tokenColumns+` from download_tokens where object_id = $1 order by created_at desc`,
		objectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []*model.DownloadToken
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// ListExpired returns ids of tokens past their expiry by the janitor's
// grace margin.
func (dao *TokenDAO) ListExpired(ctx context.Context, before time.Time) ([]string, error) {
	ctx, cancel := db.QueryContext(ctx)
	defer cancel()

	rows, err := dao.DB.QueryContext(ctx,
		`select id from download_tokens where expires_at < $1`,
		before,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (dao *TokenDAO) DeleteToken(ctx context.Context, tokenID string) error {
	ctx, cancel := db.QueryContext(ctx)
	defer cancel()

	_, err := dao.DB.ExecContext(ctx, `delete from download_tokens where id = $1`, tokenID)
	return err
}

// CountByStatus derives per-status counts for operational visibility.
// Read-only, no side effects.
func (dao *TokenDAO) CountByStatus(ctx context.Context) (map[string]int64, error) {
	ctx, cancel := db.QueryContext(ctx)
	defer cancel()

	rows, err := dao.DB.QueryContext(ctx,
		`select case
			when revoked_at is not null then 'revoked'
			when used_at is not null then 'used'
			when expires_at <= now() then 'expired'
			else 'active'
		 end as status, count(*)
		 from download_tokens
		 group by 1`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int64{
		model.TokenStatusActive:  0,
		model.TokenStatusUsed:    0,
		model.TokenStatusExpired: 0,
		model.TokenStatusRevoked: 0,
	}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
