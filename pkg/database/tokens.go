package database

import (
	"errors"

	"github.com/jackc/pgx/v5"

	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
)

// GetToken loads a relay token row. This is the advisory read join uses for
// fast-fail preconditions; consumption itself goes through JoinPair.
func (d *D) GetToken(c context.T, token string) (t *store.Token, err error) {
	t = &store.Token{}
	if err = d.pool.QueryRow(
		c,
		`SELECT token, initiator_key, pair_id, expires_at, consumed
		 FROM relay_tokens WHERE token = $1`,
		token,
	).Scan(
		&t.Token, &t.InitiatorKey, &t.PairId, &t.ExpiresAt, &t.Consumed,
	); err != nil {
		t = nil
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrTokenNotFound
			return
		}
		chk.E(err)
	}
	return
}
