package database

import (
	"time"

	"github.com/jackc/pgx/v5"

	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
)

// upsertUser enrolls a public key into a pair, replacing any previous
// membership. The push subscription is forfeited on re-pair: the triple
// belonged to the old pairing context and must be re-registered.
const upsertUser = `
	INSERT INTO users (public_key, pair_id) VALUES ($1, $2)
	ON CONFLICT (public_key) DO UPDATE SET
		pair_id = EXCLUDED.pair_id,
		push_endpoint = NULL,
		push_p256dh = NULL,
		push_auth = NULL
`

// InitiatePair creates the pair row, enrolls the initiator and mints the
// relay token in one transaction, so a failure at any step leaves no trace.
func (d *D) InitiatePair(
	c context.T, pairId, initiatorKey, token string, expiresAt time.Time,
) (err error) {
	var tx pgx.Tx
	if tx, err = d.pool.Begin(c); chk.E(err) {
		return
	}
	defer func() { _ = tx.Rollback(c) }()
	if _, err = tx.Exec(
		c, `INSERT INTO pairs (id) VALUES ($1)`, pairId,
	); chk.E(err) {
		return
	}
	if _, err = tx.Exec(c, upsertUser, initiatorKey, pairId); chk.E(err) {
		return
	}
	if _, err = tx.Exec(
		c,
		`INSERT INTO relay_tokens (token, initiator_key, pair_id, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		token, initiatorKey, pairId, expiresAt,
	); chk.E(err) {
		return
	}
	err = tx.Commit(c)
	chk.E(err)
	return
}
