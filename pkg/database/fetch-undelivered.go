package database

import (
	"time"

	"github.com/jackc/pgx/v5"

	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
)

// FetchUndelivered returns the unacknowledged entries authored by authorKey
// within pairId from the given day identifier onward, in day order, and
// stamps fetched_at on rows being seen for the first time. Read and stamp
// share a transaction so a row cannot be stamped without being returned.
func (d *D) FetchUndelivered(c context.T, pairId, authorKey, since string) (
	entries []*store.Entry, err error,
) {
	var tx pgx.Tx
	if tx, err = d.pool.Begin(c); chk.E(err) {
		return
	}
	defer func() { _ = tx.Rollback(c) }()
	rows, _ := tx.Query(
		c,
		`SELECT id, author_key, pair_id, day_id, payload, created_at,
		        fetched_at, acked_at
		 FROM entries
		 WHERE pair_id = $1 AND author_key = $2 AND day_id >= $3
		   AND acked_at IS NULL
		 ORDER BY day_id, created_at`,
		pairId, authorKey, since,
	)
	var e store.Entry
	var unseen []string
	if _, err = pgx.ForEachRow(
		rows, []any{
			&e.Id, &e.AuthorKey, &e.PairId, &e.DayId, &e.Payload,
			&e.CreatedAt, &e.FetchedAt, &e.AckedAt,
		}, func() error {
			row := e
			if row.FetchedAt == nil {
				unseen = append(unseen, row.Id)
			}
			entries = append(entries, &row)
			return nil
		},
	); chk.E(err) {
		entries = nil
		return
	}
	if len(unseen) > 0 {
		now := time.Now()
		if _, err = tx.Exec(
			c,
			`UPDATE entries SET fetched_at = $2
			 WHERE id = ANY($1) AND fetched_at IS NULL`,
			unseen, now,
		); chk.E(err) {
			entries = nil
			return
		}
		for _, row := range entries {
			if row.FetchedAt == nil {
				at := now
				row.FetchedAt = &at
			}
		}
	}
	if err = tx.Commit(c); chk.E(err) {
		entries = nil
	}
	return
}
