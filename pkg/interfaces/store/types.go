package store

import (
	"errors"
	"time"
)

const (
	// TokenTTL is how long a freshly minted relay token stays redeemable.
	TokenTTL = 10 * time.Minute
	// MaxEntriesPerDay caps how many entries one user may store under a
	// single dayId.
	MaxEntriesPerDay = 2
)

var (
	// ErrUserNotFound reports a public key with no user row.
	ErrUserNotFound = errors.New("user not found")
	// ErrTokenNotFound reports a relay token with no row.
	ErrTokenNotFound = errors.New("relay token not found")
	// ErrTokenConsumed reports a relay token whose single use is spent.
	ErrTokenConsumed = errors.New("relay token already consumed")
)

// User is one enrolled device key. The public key is the only account
// identifier there is; it is stored exactly as the client presents it.
type User struct {
	PublicKey    string
	PairId       string
	CreatedAt    time.Time
	Subscription *Subscription
}

// Subscription is the web push subscription triple a user registers to be
// poked when their partner stores an entry. All three fields come from the
// client's push service and are opaque here.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// Token is a single-use onboarding credential minted by initiate and spent by
// join. Spent tokens remain as audit rows until swept.
type Token struct {
	Token        string
	InitiatorKey string
	PairId       string
	ExpiresAt    time.Time
	Consumed     bool
}

// Expired reports whether the token is past its lifetime at the given moment.
// A token expiring exactly now is already dead.
func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// Entry is one opaque ciphertext blob in flight from its author to the
// author's partner. FetchedAt and AckedAt are nil until the partner first
// reads, respectively acknowledges, the entry.
type Entry struct {
	Id        string
	AuthorKey string
	PairId    string
	DayId     string
	Payload   []byte
	CreatedAt time.Time
	FetchedAt *time.Time
	AckedAt   *time.Time
}
