package database

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"lukechampine.com/frand"

	"dyad.dev/pkg/encoders/ident"
	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/utils/context"
)

// newTestDB connects to the database named by DYAD_TEST_DATABASE_URL and
// starts the test from empty tables. Without the variable the test is
// skipped, so the suite stays runnable on machines with no postgres.
func newTestDB(t *testing.T) (d *D) {
	t.Helper()
	url := os.Getenv("DYAD_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("DYAD_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.Cancel(context.Bg())
	var err error
	if d, err = New(ctx, cancel, url, "error", 0); err != nil {
		t.Fatal(err)
	}
	if err = d.Wipe(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(
		func() {
			cancel()
			_ = d.Close()
		},
	)
	return
}

func testKey() string {
	return "pk-" + ident.New()
}

// initiate sets up a pair for key and returns its identifiers.
func initiate(t *testing.T, d *D, key string) (pairId, token string) {
	t.Helper()
	pairId = ident.New()
	token = ident.NewToken()
	if err := d.InitiatePair(
		context.Bg(), pairId, key, token, time.Now().Add(10*time.Minute),
	); err != nil {
		t.Fatal(err)
	}
	return
}

func TestPairLifecycle(t *testing.T) {
	d := newTestDB(t)
	c := context.Bg()
	a, b := testKey(), testKey()
	pairId, token := initiate(t, d, a)

	tok, err := d.GetToken(c, token)
	if err != nil {
		t.Fatal(err)
	}
	if tok.Consumed || tok.InitiatorKey != a || tok.PairId != pairId {
		t.Fatalf("unexpected token row %+v", tok)
	}

	gotPair, gotInitiator, err := d.JoinPair(c, b, token)
	if err != nil {
		t.Fatal(err)
	}
	if gotPair != pairId || gotInitiator != a {
		t.Fatalf("join resolved (%q, %q)", gotPair, gotInitiator)
	}

	// Both sides see each other as partner.
	ua, err := d.GetUser(c, a)
	if err != nil {
		t.Fatal(err)
	}
	partner, err := d.GetPartner(c, ua)
	if err != nil {
		t.Fatal(err)
	}
	if partner == nil || partner.PublicKey != b {
		t.Fatalf("partner of initiator is %+v", partner)
	}

	// The token is burned.
	if tok, err = d.GetToken(c, token); err != nil {
		t.Fatal(err)
	}
	if !tok.Consumed {
		t.Fatal("token not marked consumed after join")
	}
	if _, _, err = d.JoinPair(c, testKey(), token); !errors.Is(
		err, store.ErrTokenConsumed,
	) {
		t.Fatalf("second join: got %v, expected token consumed", err)
	}
}

func TestJoinRace(t *testing.T) {
	d := newTestDB(t)
	a := testKey()
	_, token := initiate(t, d, a)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, results[i] = d.JoinPair(context.Bg(), testKey(), token)
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, store.ErrTokenConsumed):
			lost++
		default:
			t.Fatal(err)
		}
	}
	if won != 1 || lost != 1 {
		t.Fatalf("got %d winners and %d losers, expected 1 and 1", won, lost)
	}
}

func TestRePairClearsSubscription(t *testing.T) {
	d := newTestDB(t)
	c := context.Bg()
	a := testKey()
	initiate(t, d, a)
	if err := d.SetSubscription(
		c, a, &store.Subscription{
			Endpoint: "https://push.example/abc",
			P256dh:   "p256dh-key",
			Auth:     "auth-secret",
		},
	); err != nil {
		t.Fatal(err)
	}
	u, err := d.GetUser(c, a)
	if err != nil {
		t.Fatal(err)
	}
	if u.Subscription == nil {
		t.Fatal("subscription not stored")
	}

	// Re-initiating moves the user to a new pair and forfeits the triple.
	newPair, _ := initiate(t, d, a)
	if u, err = d.GetUser(c, a); err != nil {
		t.Fatal(err)
	}
	if u.PairId != newPair {
		t.Fatalf("user still in pair %q", u.PairId)
	}
	if u.Subscription != nil {
		t.Fatal("subscription survived re-pair")
	}
}

func pairUp(t *testing.T, d *D) (pairId, a, b string) {
	t.Helper()
	a, b = testKey(), testKey()
	pairId, token := initiate(t, d, a)
	if _, _, err := d.JoinPair(context.Bg(), b, token); err != nil {
		t.Fatal(err)
	}
	return
}

func TestEntryLifecycle(t *testing.T) {
	d := newTestDB(t)
	c := context.Bg()
	pairId, a, b := pairUp(t, d)

	payload := frand.Bytes(512)
	e := &store.Entry{
		Id:        ident.New(),
		AuthorKey: a,
		PairId:    pairId,
		DayId:     "2026-02-15",
		Payload:   payload,
	}
	if err := d.SaveEntry(c, e); err != nil {
		t.Fatal(err)
	}
	n, err := d.CountEntries(c, a, "2026-02-15")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("count is %d, expected 1", n)
	}

	// The partner fetches: first fetch stamps fetched_at.
	got, err := d.FetchUndelivered(c, pairId, a, "2026-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("fetched %d entries, expected 1", len(got))
	}
	if got[0].Id != e.Id || string(got[0].Payload) != string(payload) {
		t.Fatal("fetched entry does not match stored entry")
	}
	if got[0].FetchedAt == nil {
		t.Fatal("first fetch did not stamp fetched_at")
	}

	// A second fetch still returns it, already stamped.
	if got, err = d.FetchUndelivered(c, pairId, a, "2026-01-01"); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].FetchedAt == nil {
		t.Fatal("second fetch lost the entry or its stamp")
	}

	// A since beyond the entry's day excludes it.
	if got, err = d.FetchUndelivered(c, pairId, a, "2026-02-16"); err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("fetched %d entries past since, expected 0", len(got))
	}

	// Self-ack deletes nothing: the author predicate excludes own entries.
	deleted, err := d.AckEntries(c, pairId, b, []string{e.Id})
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 0 {
		t.Fatalf("self-ack deleted %d rows", deleted)
	}

	// Partner ack deletes exactly the row; unknown ids are ignored.
	if deleted, err = d.AckEntries(
		c, pairId, a, []string{e.Id, ident.New()},
	); err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Fatalf("ack deleted %d rows, expected 1", deleted)
	}
	if got, err = d.FetchUndelivered(c, pairId, a, "2026-01-01"); err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatal("entry still present after ack")
	}
}

func TestFetchOrdersByDay(t *testing.T) {
	d := newTestDB(t)
	c := context.Bg()
	pairId, a, _ := pairUp(t, d)
	days := []string{"2026-02-03", "2026-02-01", "2026-02-02"}
	for _, day := range days {
		if err := d.SaveEntry(
			c, &store.Entry{
				Id:        ident.New(),
				AuthorKey: a,
				PairId:    pairId,
				DayId:     day,
				Payload:   frand.Bytes(16),
			},
		); err != nil {
			t.Fatal(err)
		}
	}
	got, err := d.FetchUndelivered(c, pairId, a, "1970-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("fetched %d entries, expected 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].DayId > got[i].DayId {
			t.Fatalf(
				"entries out of day order: %q before %q", got[i-1].DayId,
				got[i].DayId,
			)
		}
	}
}

func TestDeleteUser(t *testing.T) {
	d := newTestDB(t)
	c := context.Bg()
	pairId, a, b := pairUp(t, d)
	if err := d.SaveEntry(
		c, &store.Entry{
			Id:        ident.New(),
			AuthorKey: a,
			PairId:    pairId,
			DayId:     "2026-02-15",
			Payload:   frand.Bytes(16),
		},
	); err != nil {
		t.Fatal(err)
	}
	if err := d.DeleteUser(c, a); err != nil {
		t.Fatal(err)
	}
	if _, err := d.GetUser(c, a); !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("got %v, expected user not found", err)
	}
	// The survivor remains, now alone in the pair.
	ub, err := d.GetUser(c, b)
	if err != nil {
		t.Fatal(err)
	}
	partner, err := d.GetPartner(c, ub)
	if err != nil {
		t.Fatal(err)
	}
	if partner != nil {
		t.Fatalf("survivor still sees partner %+v", partner)
	}
}

func TestSweep(t *testing.T) {
	d := newTestDB(t)
	c := context.Bg()
	a := testKey()
	pairId := ident.New()
	expiredToken := ident.NewToken()
	// A token that expired an hour ago.
	if err := d.InitiatePair(
		c, pairId, a, expiredToken, time.Now().Add(-time.Hour),
	); err != nil {
		t.Fatal(err)
	}
	if err := d.SaveEntry(
		c, &store.Entry{
			Id:        ident.New(),
			AuthorKey: a,
			PairId:    pairId,
			DayId:     "2026-02-15",
			Payload:   frand.Bytes(16),
		},
	); err != nil {
		t.Fatal(err)
	}

	// With full retention nothing is old enough to go.
	tokens, entries, err := d.Sweep(c, TokenRetention, EntryRetention)
	if err != nil {
		t.Fatal(err)
	}
	if tokens != 0 || entries != 0 {
		t.Fatalf("swept (%d, %d) with full retention", tokens, entries)
	}

	// With zero retention the expired token and the fresh entry both go.
	if tokens, entries, err = d.Sweep(c, 0, 0); err != nil {
		t.Fatal(err)
	}
	if tokens != 1 || entries != 1 {
		t.Fatalf("swept (%d, %d), expected (1, 1)", tokens, entries)
	}
	if _, err = d.GetToken(c, expiredToken); !errors.Is(
		err, store.ErrTokenNotFound,
	) {
		t.Fatalf("got %v, expected token not found", err)
	}
}
