package database

import (
	"time"

	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
)

// sweepBatchSize bounds one round of deletion so the sweeper never holds a
// long transaction against live traffic.
const sweepBatchSize = 1000

func (d *D) sweepBatch(c context.T, sql string, cutoff time.Time) (
	total int64, err error,
) {
	for {
		tag, e := d.pool.Exec(c, sql, cutoff, sweepBatchSize)
		if e != nil {
			err = e
			chk.E(err)
			return
		}
		n := tag.RowsAffected()
		total += n
		if n < sweepBatchSize {
			return
		}
	}
}

// Sweep removes relay tokens whose expiry is longer than tokenRetention ago
// and entries older than entryRetention that were never acknowledged.
// Deletion goes in bounded batches keyed through a subselect so each round
// is a single statement.
func (d *D) Sweep(
	c context.T, tokenRetention, entryRetention time.Duration,
) (tokens, entries int64, err error) {
	now := time.Now()
	if tokens, err = d.sweepBatch(
		c,
		`DELETE FROM relay_tokens WHERE token = ANY(ARRAY(
			SELECT token FROM relay_tokens WHERE expires_at <= $1 LIMIT $2))`,
		now.Add(-tokenRetention),
	); err != nil {
		return
	}
	entries, err = d.sweepBatch(
		c,
		`DELETE FROM entries WHERE id = ANY(ARRAY(
			SELECT id FROM entries
			WHERE created_at <= $1 AND acked_at IS NULL LIMIT $2))`,
		now.Add(-entryRetention),
	)
	return
}
