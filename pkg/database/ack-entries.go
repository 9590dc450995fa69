package database

import (
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
)

// AckEntries deletes acknowledged entries and reports how many went away.
//
// # Expected Behaviour
//
// The predicate restricts deletion to rows of the caller's pair authored by
// the caller's partner, which enforces two properties at once: a user cannot
// delete entries they authored themselves, and identifiers belonging to
// other pairs fall out of the match silently rather than erroring, so the
// caller only learns the count of rows they were entitled to remove.
func (d *D) AckEntries(
	c context.T, pairId, authorKey string, entryIds []string,
) (deleted int64, err error) {
	tag, err := d.pool.Exec(
		c,
		`DELETE FROM entries
		 WHERE id = ANY($1) AND pair_id = $2 AND author_key = $3`,
		entryIds, pairId, authorKey,
	)
	if chk.E(err) {
		return
	}
	deleted = tag.RowsAffected()
	return
}
