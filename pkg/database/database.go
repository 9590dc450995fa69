// Package database is the postgres implementation of the store interface:
// pairs, users, relay tokens and entries, with the two pairing transactions
// and the token compare-and-set implemented as single round trips.
package database

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"

	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
	"dyad.dev/pkg/utils/log"
)

const (
	// TokenRetention is how long a relay token row is kept past its expiry
	// for audit before the sweeper removes it.
	TokenRetention = 24 * time.Hour
	// EntryRetention is how long an unacknowledged entry is kept before the
	// sweeper declares it orphaned and removes it.
	EntryRetention = 30 * 24 * time.Hour
)

// D is the relay's durable store, a thin layer over a pgx connection pool.
type D struct {
	ctx    context.T
	cancel context.F
	pool   *pgxpool.Pool
}

// New connects to the database at url, brings the schema up to date, and if
// sweepFrequency is nonzero starts the background sweeper. The pool logs
// through the application logger at the given level.
func New(
	ctx context.T, cancel context.F, url, logLevel string,
	sweepFrequency time.Duration,
) (d *D, err error) {
	d = &D{
		ctx:    ctx,
		cancel: cancel,
	}
	var pc *pgxpool.Config
	if pc, err = pgxpool.ParseConfig(url); chk.E(err) {
		return
	}
	pc.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   &dbLogger{},
		LogLevel: traceLevel(logLevel),
	}
	if d.pool, err = pgxpool.NewWithConfig(ctx, pc); chk.E(err) {
		return
	}
	if err = d.Ping(ctx); chk.E(err) {
		return
	}
	if err = d.RunMigrations(ctx); chk.E(err) {
		return
	}
	if sweepFrequency > 0 {
		go d.sweeper(sweepFrequency)
	}
	return
}

// Ping verifies the pool can reach the database.
func (d *D) Ping(c context.T) (err error) {
	return d.pool.Ping(c)
}

// Close stops the sweeper and releases the connection pool.
func (d *D) Close() (err error) {
	if d.cancel != nil {
		d.cancel()
	}
	if d.pool != nil {
		d.pool.Close()
	}
	return
}

func (d *D) sweeper(frequency time.Duration) {
	ticker := time.NewTicker(frequency)
	defer ticker.Stop()
	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			tokens, entries, err := d.Sweep(
				d.ctx, TokenRetention, EntryRetention,
			)
			if chk.E(err) {
				continue
			}
			if tokens > 0 || entries > 0 {
				log.D.F(
					"swept %d expired tokens, %d orphaned entries", tokens,
					entries,
				)
			}
		}
	}
}
