package database

import (
	"errors"

	"github.com/jackc/pgx/v5"

	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
)

// JoinPair spends the relay token and enrolls the follower into its pair.
//
// # Expected Behaviour
//
// The compare-and-set on the unconsumed token row is the sole defence
// against two followers redeeming the same token concurrently: exactly one
// transaction flips consumed false to true and sees the row back, the other
// updates nothing and fails with ErrTokenConsumed. The follower upsert
// shares the re-pair semantics of initiate.
func (d *D) JoinPair(c context.T, followerKey, token string) (
	pairId, initiatorKey string, err error,
) {
	var tx pgx.Tx
	if tx, err = d.pool.Begin(c); chk.E(err) {
		return
	}
	defer func() { _ = tx.Rollback(c) }()
	if err = tx.QueryRow(
		c,
		`UPDATE relay_tokens SET consumed = true
		 WHERE token = $1 AND NOT consumed
		 RETURNING pair_id, initiator_key`,
		token,
	).Scan(&pairId, &initiatorKey); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrTokenConsumed
			return
		}
		chk.E(err)
		return
	}
	if _, err = tx.Exec(c, upsertUser, followerKey, pairId); chk.E(err) {
		return
	}
	err = tx.Commit(c)
	chk.E(err)
	return
}
