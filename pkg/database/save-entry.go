package database

import (
	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
)

// CountEntries reports how many entries the author has stored under a day
// identifier. The upload path reads this against the daily ceiling; the
// count-then-insert pair is deliberately not serialised, see SaveEntry.
func (d *D) CountEntries(c context.T, authorKey, dayId string) (
	n int64, err error,
) {
	err = d.pool.QueryRow(
		c,
		`SELECT count(*) FROM entries WHERE author_key = $1 AND day_id = $2`,
		authorKey, dayId,
	).Scan(&n)
	chk.E(err)
	return
}

// SaveEntry inserts one entry row. Two racing uploads can both pass the
// count check and both land; the daily ceiling is a courtesy cap, not a
// security boundary, so the window is tolerated.
func (d *D) SaveEntry(c context.T, e *store.Entry) (err error) {
	_, err = d.pool.Exec(
		c,
		`INSERT INTO entries (id, author_key, pair_id, day_id, payload)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.Id, e.AuthorKey, e.PairId, e.DayId, e.Payload,
	)
	chk.E(err)
	return
}
