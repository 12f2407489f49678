package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"llouest/internal/logger"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
  id             UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  email          TEXT        NOT NULL UNIQUE,
  password_hash  TEXT        NOT NULL,
  name           TEXT        NOT NULL,
  phone          TEXT        NOT NULL DEFAULT '',
  address        TEXT        NOT NULL DEFAULT '',
  role           TEXT        NOT NULL DEFAULT 'client' CHECK (role IN ('client', 'admin')),
  preferences    JSONB       NOT NULL DEFAULT '{}'::jsonb,
  location       JSONB,
  email_verified BOOLEAN     NOT NULL DEFAULT false,
  last_login_at  TIMESTAMPTZ,
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_users_role",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_users_role ON users (role);`,
	},
	{
		Name: "create_table_code_challenges",
		SQL: `CREATE TABLE IF NOT EXISTS code_challenges (
  id           UUID        PRIMARY KEY,
  purpose      TEXT        NOT NULL,
  email        TEXT        NOT NULL,
  code_hash    TEXT        NOT NULL,
  payload      JSONB       NOT NULL DEFAULT '{}'::jsonb,
  expires_at   TIMESTAMPTZ NOT NULL,
  attempts     INT         NOT NULL DEFAULT 0,
  resend_count INT         NOT NULL DEFAULT 0,
  window_start TIMESTAMPTZ NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (purpose, email)
);`,
	},
	{
		Name: "create_index_code_challenges_expires_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_code_challenges_expires_at ON code_challenges (expires_at);`,
	},
	{
		Name: "create_table_reservations",
		SQL: `CREATE TABLE IF NOT EXISTS reservations (
  id           UUID        PRIMARY KEY,
  user_id      UUID        REFERENCES users (id) ON DELETE SET NULL,
  service_id   TEXT        NOT NULL,
  service_name TEXT        NOT NULL DEFAULT '',
  category     TEXT        NOT NULL DEFAULT '',
  first_name   TEXT        NOT NULL,
  last_name    TEXT        NOT NULL DEFAULT '',
  email        TEXT        NOT NULL,
  phone        TEXT        NOT NULL DEFAULT '',
  date         TIMESTAMPTZ NOT NULL,
  frequency    TEXT        NOT NULL DEFAULT 'once',
  address      TEXT        NOT NULL DEFAULT '',
  options      JSONB       NOT NULL DEFAULT '[]'::jsonb,
  message      TEXT        NOT NULL DEFAULT '',
  consentement BOOLEAN     NOT NULL,
  status       TEXT        NOT NULL DEFAULT 'pending',
  reply        TEXT        NOT NULL DEFAULT '',
  replied_at   TIMESTAMPTZ,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_reservations_user_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_reservations_user_id ON reservations (user_id);`,
	},
	{
		Name: "create_index_reservations_status_date",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_reservations_status_date ON reservations (status, date);`,
	},
	{
		Name: "create_table_reviews",
		SQL: `CREATE TABLE IF NOT EXISTS reviews (
  id         UUID        PRIMARY KEY,
  user_id    UUID        NOT NULL REFERENCES users (id) ON DELETE CASCADE,
  service_id TEXT        NOT NULL,
  rating     SMALLINT    NOT NULL CHECK (rating BETWEEN 1 AND 5),
  comment    TEXT        NOT NULL DEFAULT '',
  images     JSONB       NOT NULL DEFAULT '[]'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (user_id, service_id)
);`,
	},
	{
		Name: "create_index_reviews_service_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_reviews_service_id ON reviews (service_id, created_at);`,
	},
	{
		Name: "create_table_contact_messages",
		SQL: `CREATE TABLE IF NOT EXISTS contact_messages (
  id         UUID        PRIMARY KEY,
  name       TEXT        NOT NULL,
  email      TEXT        NOT NULL,
  phone      TEXT        NOT NULL DEFAULT '',
  subject    TEXT        NOT NULL DEFAULT '',
  message    TEXT        NOT NULL,
  status     TEXT        NOT NULL DEFAULT 'new',
  reply      TEXT        NOT NULL DEFAULT '',
  replied_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_notifications",
		SQL: `CREATE TABLE IF NOT EXISTS notifications (
  id         UUID        PRIMARY KEY,
  user_id    UUID        NOT NULL REFERENCES users (id) ON DELETE CASCADE,
  type       TEXT        NOT NULL,
  title      TEXT        NOT NULL,
  body       TEXT        NOT NULL DEFAULT '',
  data       JSONB       NOT NULL DEFAULT '{}'::jsonb,
  read       BOOLEAN     NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_notifications_user_read",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_notifications_user_read ON notifications (user_id, read, created_at);`,
	},
	{
		Name: "create_table_files",
		SQL: `CREATE TABLE IF NOT EXISTS files (
  id           UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  owner_id     UUID        NOT NULL REFERENCES users (id) ON DELETE CASCADE,
  filename     TEXT        NOT NULL,
  storage_path TEXT        NOT NULL UNIQUE,
  size         BIGINT      NOT NULL CHECK (size >= 0),
  content_type TEXT        NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_files_owner_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_files_owner_id ON files (owner_id, created_at);`,
	},
	{
		Name: "create_sequence_invoice_number",
		SQL:  `CREATE SEQUENCE IF NOT EXISTS invoice_number_seq START 1;`,
	},
	{
		Name: "create_table_invoices",
		SQL: `CREATE TABLE IF NOT EXISTS invoices (
  id             UUID        PRIMARY KEY,
  number         TEXT        NOT NULL UNIQUE,
  user_id        UUID        NOT NULL REFERENCES users (id) ON DELETE CASCADE,
  reservation_id UUID        REFERENCES reservations (id) ON DELETE SET NULL,
  lines          JSONB       NOT NULL,
  subtotal_cents BIGINT      NOT NULL CHECK (subtotal_cents >= 0),
  vat_rate_bp    INT         NOT NULL,
  vat_cents      BIGINT      NOT NULL,
  total_cents    BIGINT      NOT NULL,
  notes          TEXT        NOT NULL DEFAULT '',
  issued_at      TIMESTAMPTZ NOT NULL,
  due_at         TIMESTAMPTZ NOT NULL,
  storage_path   TEXT        NOT NULL UNIQUE,
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_invoices_user_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_invoices_user_id ON invoices (user_id, issued_at);`,
	},
}

const createLedger = `CREATE TABLE IF NOT EXISTS schema_migrations (
  name       TEXT        PRIMARY KEY,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// EnsureMigrated applies every step not yet recorded in schema_migrations.
// Each step runs in its own transaction together with its ledger row.
func EnsureMigrated(ctx context.Context, db *sqlx.DB, dbHost string) error {
	start := time.Now()
	log := logger.Get().With().
		Str("component", "database").
		Str("db_host", dbHost).
		Logger()

	log.Info().Str("event", "db_migration_check").Str("status", "starting").Msg("")

	if _, err := db.ExecContext(ctx, createLedger); err != nil {
		log.Error().Err(err).
			Str("event", "db_migration_failed").
			Str("status", "error").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("failed to create migration ledger")
		return fmt.Errorf("failed to create migration ledger: %w", err)
	}

	var done []string
	if err := db.SelectContext(ctx, &done, `SELECT name FROM schema_migrations`); err != nil {
		return fmt.Errorf("failed to read migration ledger: %w", err)
	}
	applied := make(map[string]bool, len(done))
	for _, name := range done {
		applied[name] = true
	}

	pending := 0
	for _, step := range steps {
		if applied[step.Name] {
			continue
		}
		pending++
		stepStart := time.Now()
		if err := apply(ctx, db, step); err != nil {
			log.Error().Err(err).
				Str("event", "db_migration_failed").
				Str("status", "error").
				Str("migration_step", step.Name).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
				Msg("")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info().
			Str("event", "db_migration_step").
			Str("status", "success").
			Str("migration_step", step.Name).
			Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
			Msg("")
	}

	if pending == 0 {
		log.Info().
			Str("event", "db_migration_skip").
			Str("status", "success").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("schema up to date, skipping migration")
		return nil
	}

	log.Info().
		Str("event", "db_migration_success").
		Str("status", "success").
		Int("steps", pending).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("")
	return nil
}

func apply(ctx context.Context, db *sqlx.DB, step migrationStep) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, step.Name); err != nil {
		return err
	}
	return tx.Commit()
}
