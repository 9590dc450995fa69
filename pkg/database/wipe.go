package database

import (
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
)

// Wipe removes every row from every relay table, in dependency order. It
// exists for test databases; nothing in the serving path calls it.
func (d *D) Wipe(c context.T) (err error) {
	_, err = d.pool.Exec(
		c,
		`DELETE FROM entries;
		 DELETE FROM relay_tokens;
		 DELETE FROM users;
		 DELETE FROM pairs;`,
	)
	chk.E(err)
	return
}
