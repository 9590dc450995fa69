package database

import (
	"fmt"

	"github.com/jackc/pgx/v5"

	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
	"dyad.dev/pkg/utils/log"
)

// schemaVersion defines the current schema version. Increment this value
// when adding a new migration.
const schemaVersion = 1

// getMigration returns the migration SQL for a schema version.
func getMigration(version int) string {
	switch version {
	case 1:
		return migrateV1
	}
	panic(fmt.Sprintf("migration version not implemented: %v", version))
}

// migrateV1 is the baseline schema.
//
// Public keys are stored exactly as clients present them; the relay never
// normalises them. Payloads are opaque ciphertext.
const migrateV1 = `
	CREATE TABLE pairs (
		id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT pairs_pk PRIMARY KEY (id)
	);

	CREATE TABLE users (
		public_key TEXT NOT NULL,
		pair_id TEXT NOT NULL REFERENCES pairs (id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		push_endpoint TEXT,
		push_p256dh TEXT,
		push_auth TEXT,
		CONSTRAINT users_pk PRIMARY KEY (public_key)
	);
	CREATE INDEX users_pair ON users (pair_id);

	CREATE TABLE relay_tokens (
		token TEXT NOT NULL,
		initiator_key TEXT NOT NULL REFERENCES users (public_key) ON DELETE CASCADE,
		pair_id TEXT NOT NULL REFERENCES pairs (id),
		expires_at TIMESTAMPTZ NOT NULL,
		consumed BOOLEAN NOT NULL DEFAULT false,
		CONSTRAINT relay_tokens_pk PRIMARY KEY (token)
	);
	CREATE INDEX relay_tokens_expires ON relay_tokens (expires_at);

	CREATE TABLE entries (
		id TEXT NOT NULL,
		author_key TEXT NOT NULL REFERENCES users (public_key),
		pair_id TEXT NOT NULL REFERENCES pairs (id),
		day_id TEXT NOT NULL,
		payload BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		fetched_at TIMESTAMPTZ,
		acked_at TIMESTAMPTZ,
		CONSTRAINT entries_pk PRIMARY KEY (id)
	);
	CREATE INDEX entries_author_day ON entries (author_key, day_id);
	CREATE INDEX entries_pair_author_day ON entries (pair_id, author_key, day_id);
	CREATE INDEX entries_created ON entries (created_at) WHERE acked_at IS NULL;
`

// SchemaVersion reports the newest migration recorded in the database, or
// zero for a database that has never been migrated.
func (d *D) SchemaVersion(c context.T) (v int, err error) {
	err = d.pool.QueryRow(
		c, `SELECT coalesce(max(version), 0) FROM schema_version`,
	).Scan(&v)
	chk.E(err)
	return
}

// RunMigrations brings the schema up to schemaVersion, applying each pending
// migration in its own transaction together with the version bump.
func (d *D) RunMigrations(c context.T) (err error) {
	if _, err = d.pool.Exec(
		c,
		`CREATE TABLE IF NOT EXISTS schema_version (
			version INT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	); chk.E(err) {
		return
	}
	var current int
	if err = d.pool.QueryRow(
		c, `SELECT coalesce(max(version), 0) FROM schema_version`,
	).Scan(&current); chk.E(err) {
		return
	}
	if current >= schemaVersion {
		log.T.F("schema is current at version %d", current)
		return
	}
	for v := current + 1; v <= schemaVersion; v++ {
		log.I.F("applying schema migration %d", v)
		var tx pgx.Tx
		if tx, err = d.pool.Begin(c); chk.E(err) {
			return
		}
		if _, err = tx.Exec(c, getMigration(v)); chk.E(err) {
			_ = tx.Rollback(c)
			return
		}
		if _, err = tx.Exec(
			c, `INSERT INTO schema_version (version) VALUES ($1)`, v,
		); chk.E(err) {
			_ = tx.Rollback(c)
			return
		}
		if err = tx.Commit(c); chk.E(err) {
			return
		}
	}
	return
}
