// Package store is an interface and ancillary types for the durable state of
// the relay: pairs, users, relay tokens and entries.
//
// It is composed so that the top-level interface can be partially implemented
// if need be, and so services can declare the narrow slice they use.
package store

import (
	"io"
	"time"

	"dyad.dev/pkg/utils/context"
)

// I is the persistence gateway used by the relay services. All multi-statement
// operations are transactional behind this interface.
type I interface {
	io.Closer
	Pairer
	Userer
	Tokener
	Entrier
	Maintainer
}

// Pairer carries the two pairing transactions.
type Pairer interface {
	// InitiatePair creates a pair, enrolls (or re-enrolls) the initiator into
	// it and mints the relay token, in one transaction. Re-enrolling replaces
	// the user's previous pair membership and clears any push subscription.
	InitiatePair(
		c context.T, pairId, initiatorKey, token string, expiresAt time.Time,
	) (err error)
	// JoinPair consumes the token and enrolls the follower into the token's
	// pair, in one transaction. Consumption is a compare-and-set on the
	// unconsumed token row; losing the race returns ErrTokenConsumed and
	// nothing is written.
	JoinPair(c context.T, followerKey, token string) (
		pairId, initiatorKey string, err error,
	)
}

// Userer reads and mutates user rows.
type Userer interface {
	// GetUser resolves a user by public key, or ErrUserNotFound.
	GetUser(c context.T, publicKey string) (u *User, err error)
	// GetPartner returns the other user of u's pair, or nil when u is alone
	// in it.
	GetPartner(c context.T, u *User) (partner *User, err error)
	// SetSubscription stores the push subscription triple on the user row.
	SetSubscription(c context.T, publicKey string, sub *Subscription) (err error)
	// ClearSubscription nulls the push subscription triple on the user row.
	ClearSubscription(c context.T, publicKey string) (err error)
	// DeleteUser removes the user's entries and then the user row, in one
	// transaction.
	DeleteUser(c context.T, publicKey string) (err error)
}

// Tokener reads relay token rows.
type Tokener interface {
	// GetToken resolves a relay token, or ErrTokenNotFound.
	GetToken(c context.T, token string) (t *Token, err error)
}

// Entrier carries the entry store-and-forward lifecycle.
type Entrier interface {
	// CountEntries reports how many entries the author has stored under the
	// given day identifier.
	CountEntries(c context.T, authorKey, dayId string) (n int64, err error)
	// SaveEntry inserts a new entry row.
	SaveEntry(c context.T, e *Entry) (err error)
	// FetchUndelivered returns the unacknowledged entries authored by
	// authorKey within pairId from the given day identifier onward, ordered
	// by day, and stamps first-fetch times on rows not fetched before.
	FetchUndelivered(c context.T, pairId, authorKey, since string) (
		entries []*Entry, err error,
	)
	// AckEntries deletes the listed entries, restricted to rows of the given
	// pair authored by authorKey, and reports how many went away.
	AckEntries(c context.T, pairId, authorKey string, entryIds []string) (
		deleted int64, err error,
	)
}

// Maintainer covers liveness and background housekeeping.
type Maintainer interface {
	// Ping verifies the store is reachable.
	Ping(c context.T) (err error)
	// Sweep removes relay tokens that expired longer than tokenRetention ago
	// and entries older than entryRetention that were never acknowledged.
	Sweep(c context.T, tokenRetention, entryRetention time.Duration) (
		tokens, entries int64, err error,
	)
}
