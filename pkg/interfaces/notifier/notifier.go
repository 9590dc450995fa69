// Package notifier abstracts the "tell the partner something arrived" side
// channel so the entry service never couples to a push transport.
package notifier

import (
	"dyad.dev/pkg/utils/context"
)

// I delivers a wake-up poke to a user's registered push subscription.
// Delivery is best-effort: implementations log failures and never report them
// to the caller, because the entry the poke announces is already stored.
type I interface {
	Notify(c context.T, recipientKey, pairId string)
}

// None is the no-op notifier used when no push transport is configured.
type None struct{}

// Notify discards the poke.
func (None) Notify(c context.T, recipientKey, pairId string) {}
