package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

const (
	createLedger = `CREATE TABLE IF NOT EXISTS document_schema_migrations (
  name       TEXT        PRIMARY KEY,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`
	selectApplied = `SELECT name FROM document_schema_migrations`
	recordApplied = `INSERT INTO document_schema_migrations (name) VALUES ($1)`
)

// steps run in order, each at most once. Append only; never edit a released step.
// The users table belongs to the surrounding RTO application and must already exist.
var steps = []migrationStep{
	{
		Name: "0001_create_extension_pgcrypto",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	},
	{
		Name: "0002_create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id               UUID         PRIMARY KEY DEFAULT gen_random_uuid(),
  user_id          UUID         NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  entity_type      VARCHAR(50)  NOT NULL CHECK (entity_type IN ('VEHICLE', 'DL_APPLICATION', 'USER')),
  entity_id        UUID         NOT NULL,
  document_type    VARCHAR(50)  NOT NULL,
  file_path        TEXT         NOT NULL UNIQUE,
  file_name        VARCHAR(255) NOT NULL,
  mime_type        VARCHAR(100) NOT NULL,
  size             BIGINT       NOT NULL CHECK (size >= 0),
  status           VARCHAR(20)  NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING', 'VERIFIED', 'REJECTED')),
  verified_by      UUID         REFERENCES users(id) ON DELETE SET NULL,
  verified_at      TIMESTAMPTZ,
  created_at       TIMESTAMPTZ  NOT NULL DEFAULT now(),
  updated_at       TIMESTAMPTZ  NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "0003_add_documents_rejection_reason",
		SQL:  `ALTER TABLE documents ADD COLUMN IF NOT EXISTS rejection_reason TEXT;`,
	},
	{
		Name: "0004_index_documents_user_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_user_id ON documents (user_id);`,
	},
	{
		Name: "0005_index_documents_entity",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_entity ON documents (entity_type, entity_id);`,
	},
	{
		Name: "0006_index_documents_status",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_status ON documents (status);`,
	},
	{
		Name: "0007_check_documents_document_type",
		SQL: `ALTER TABLE documents
  DROP CONSTRAINT IF EXISTS documents_document_type_check,
  ADD CONSTRAINT documents_document_type_check CHECK (document_type IN
    ('AADHAAR', 'PAN', 'ADDRESS_PROOF', 'PHOTO', 'SIGNATURE', 'INSURANCE', 'OTHER'));`,
	},
}

// EnsureMigrated applies every step not yet recorded in document_schema_migrations.
// Each step and its ledger row commit in one transaction, so a failed step is retried on the next start.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()
	logJSON(loc, map[string]any{"event": "db_migration_check", "status": "starting", "db_host": dbHost})

	fail := func(step string, err error) error {
		entry := map[string]any{
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": err.Error(),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		}
		if step != "" {
			entry["migration_step"] = step
		}
		logJSON(loc, entry)
		return err
	}

	if _, err := db.ExecContext(ctx, createLedger); err != nil {
		return fail("", fmt.Errorf("create migration ledger: %w", err))
	}
	applied, err := appliedSteps(ctx, db)
	if err != nil {
		return fail("", fmt.Errorf("read migration ledger: %w", err))
	}

	ran := 0
	for _, step := range steps {
		if applied[step.Name] {
			continue
		}
		stepStart := time.Now()
		if err := apply(ctx, db, step); err != nil {
			return fail(step.Name, fmt.Errorf("migration step %s failed: %w", step.Name, err))
		}
		ran++
		logJSON(loc, map[string]any{
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	event := "db_migration_success"
	if ran == 0 {
		event = "db_migration_skip"
	}
	logJSON(loc, map[string]any{
		"event":       event,
		"status":      "success",
		"steps_run":   ran,
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

func appliedSteps(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, selectApplied)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

func apply(ctx context.Context, db *sql.DB, step migrationStep) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, recordApplied, step.Name); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func logJSON(loc *time.Location, data map[string]any) {
	if loc == nil {
		loc = time.UTC
	}
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	data["component"] = "database"
	if data["status"] == "error" {
		data["level"] = "error"
	} else {
		data["level"] = "info"
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.Println(string(b))
}
