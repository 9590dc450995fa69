package database

import (
	"errors"

	"github.com/jackc/pgx/v5"

	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
)

const selectUser = `
	SELECT public_key, pair_id, created_at, push_endpoint, push_p256dh,
	       push_auth
	FROM users
`

func scanUser(row pgx.Row) (u *store.User, err error) {
	u = &store.User{}
	var endpoint, p256dh, auth *string
	if err = row.Scan(
		&u.PublicKey, &u.PairId, &u.CreatedAt, &endpoint, &p256dh, &auth,
	); err != nil {
		u = nil
		return
	}
	if endpoint != nil && p256dh != nil && auth != nil {
		u.Subscription = &store.Subscription{
			Endpoint: *endpoint,
			P256dh:   *p256dh,
			Auth:     *auth,
		}
	}
	return
}

// GetUser resolves a public key to its user row, exactly as presented; key
// strings are never normalised.
func (d *D) GetUser(c context.T, publicKey string) (
	u *store.User, err error,
) {
	if u, err = scanUser(
		d.pool.QueryRow(c, selectUser+`WHERE public_key = $1`, publicKey),
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrUserNotFound
			return
		}
		chk.E(err)
	}
	return
}

// GetPartner returns the other user enrolled in u's pair, or nil while u is
// alone in it. The two-users-per-pair invariant makes the row unique.
func (d *D) GetPartner(c context.T, u *store.User) (
	partner *store.User, err error,
) {
	if partner, err = scanUser(
		d.pool.QueryRow(
			c, selectUser+`WHERE pair_id = $1 AND public_key <> $2`,
			u.PairId, u.PublicKey,
		),
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
			return
		}
		chk.E(err)
	}
	return
}

// SetSubscription stores the push subscription triple on the user row.
func (d *D) SetSubscription(
	c context.T, publicKey string, sub *store.Subscription,
) (err error) {
	tag, err := d.pool.Exec(
		c,
		`UPDATE users SET push_endpoint = $2, push_p256dh = $3, push_auth = $4
		 WHERE public_key = $1`,
		publicKey, sub.Endpoint, sub.P256dh, sub.Auth,
	)
	if chk.E(err) {
		return
	}
	if tag.RowsAffected() == 0 {
		err = store.ErrUserNotFound
	}
	return
}

// ClearSubscription nulls the push subscription triple. Clearing a missing
// user is a no-op: the pruning path races with account deletion.
func (d *D) ClearSubscription(c context.T, publicKey string) (err error) {
	_, err = d.pool.Exec(
		c,
		`UPDATE users
		 SET push_endpoint = NULL, push_p256dh = NULL, push_auth = NULL
		 WHERE public_key = $1`,
		publicKey,
	)
	chk.E(err)
	return
}

// DeleteUser erases the user's entries and then the user row in one
// transaction. Tokens minted by the user cascade away with the row. Entries
// authored by the partner are untouched; they expire by ack or sweep.
func (d *D) DeleteUser(c context.T, publicKey string) (err error) {
	var tx pgx.Tx
	if tx, err = d.pool.Begin(c); chk.E(err) {
		return
	}
	defer func() { _ = tx.Rollback(c) }()
	if _, err = tx.Exec(
		c, `DELETE FROM entries WHERE author_key = $1`, publicKey,
	); chk.E(err) {
		return
	}
	if _, err = tx.Exec(
		c, `DELETE FROM users WHERE public_key = $1`, publicKey,
	); chk.E(err) {
		return
	}
	err = tx.Commit(c)
	chk.E(err)
	return
}
