// db/db.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/iamramakanthreddyk/mylab-platform-sub000/config"
	logger "github.com/iamramakanthreddyk/mylab-platform-sub000/logging"
)

var Postgres *sql.DB

func InitPostgres() error {
	var err error
	dsn := config.GetString("postgres.dsn")
	Postgres, err = sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open Postgres connection: %w", err)
	}

	// Tuned pool defaults; adjust under load tests
	Postgres.SetMaxOpenConns(50)
	Postgres.SetMaxIdleConns(25)
	Postgres.SetConnMaxLifetime(15 * time.Minute)
	Postgres.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Postgres.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := ensureSchema(ctx); err != nil {
		return err
	}

	logger.Info("Successfully connected to Postgres")
	return nil
}

func ClosePostgres() {
	if Postgres != nil {
		if err := Postgres.Close(); err != nil {
			logger.Error("Error closing Postgres connection", zap.Error(err))
		}
	}
}

// QueryContext derives a bounded-timeout context for a single store call.
// No store operation may block indefinitely.
func QueryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := config.GetDuration("postgres.queryTimeout")
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// ensureSchema creates the two tables this subsystem owns. The entity
// tables read by the ownership predicates belong to the CRUD layer and
// are never created here.
func ensureSchema(ctx context.Context) error {
	statements := []string{
		`create table if not exists access_grants (
			id uuid primary key,
			object_type text not null,
			object_id text not null,
			granted_to_org_id text not null,
			granted_role text not null,
			can_reshare boolean not null default false,
			access_mode text not null default 'platform',
			expires_at timestamptz,
			granted_by text not null,
			revoked_at timestamptz,
			revoked_by text,
			revocation_reason text,
			created_at timestamptz not null default now()
		)`,
		`create index if not exists idx_access_grants_object
			on access_grants(object_type, object_id, granted_to_org_id)`,
		`create table if not exists download_tokens (
			id uuid primary key,
			token_hash text not null unique,
			object_type text not null,
			object_id text not null,
			organization_id text not null,
			user_id text not null,
			grant_id uuid references access_grants(id),
			expires_at timestamptz not null,
			one_time_use boolean not null default false,
			used_at timestamptz,
			revoked_at timestamptz,
			created_at timestamptz not null default now()
		)`,
		`create index if not exists idx_download_tokens_grant
			on download_tokens(grant_id)`,
		`create index if not exists idx_download_tokens_expiry
			on download_tokens(expires_at)`,
	}

	for _, stmt := range statements {
		if _, err := Postgres.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
