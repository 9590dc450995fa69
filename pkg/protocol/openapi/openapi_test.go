package openapi

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"dyad.dev/pkg/app/config"
	"dyad.dev/pkg/interfaces/notifier"
	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/protocol/handoff"
	"dyad.dev/pkg/protocol/httpauth"
	"dyad.dev/pkg/utils/context"
	"dyad.dev/pkg/version"
)

// memoryStore is an in-process store.I honouring the same contracts as the
// SQL gateway: join consumes its token exactly once, enrolment replaces any
// previous pair membership and forfeits the push subscription, and deleting
// a user takes their entries with them.
type memoryStore struct {
	mu      sync.Mutex
	users   map[string]*store.User
	tokens  map[string]*store.Token
	entries []*store.Entry
	pingErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:  make(map[string]*store.User),
		tokens: make(map[string]*store.Token),
	}
}

func (m *memoryStore) Close() (err error) { return }

func (m *memoryStore) enroll(publicKey, pairId string) {
	u := m.users[publicKey]
	if u == nil {
		u = &store.User{PublicKey: publicKey, CreatedAt: time.Now()}
		m.users[publicKey] = u
	}
	u.PairId = pairId
	u.Subscription = nil
}

func (m *memoryStore) InitiatePair(
	c context.T, pairId, initiatorKey, token string, expiresAt time.Time,
) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enroll(initiatorKey, pairId)
	m.tokens[token] = &store.Token{
		Token:        token,
		InitiatorKey: initiatorKey,
		PairId:       pairId,
		ExpiresAt:    expiresAt,
	}
	return
}

func (m *memoryStore) JoinPair(c context.T, followerKey, token string) (
	pairId, initiatorKey string, err error,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tokens[token]
	if t == nil || t.Consumed {
		err = store.ErrTokenConsumed
		return
	}
	t.Consumed = true
	m.enroll(followerKey, t.PairId)
	return t.PairId, t.InitiatorKey, nil
}

func (m *memoryStore) GetUser(c context.T, publicKey string) (
	u *store.User, err error,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u = m.users[publicKey]; u == nil {
		err = store.ErrUserNotFound
	}
	return
}

func (m *memoryStore) GetPartner(c context.T, u *store.User) (
	partner *store.User, err error,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.users {
		if other.PairId == u.PairId && other.PublicKey != u.PublicKey {
			partner = other
			return
		}
	}
	return
}

func (m *memoryStore) SetSubscription(
	c context.T, publicKey string, sub *store.Subscription,
) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[publicKey]
	if u == nil {
		return store.ErrUserNotFound
	}
	u.Subscription = sub
	return
}

func (m *memoryStore) ClearSubscription(c context.T, publicKey string) (
	err error,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u := m.users[publicKey]; u != nil {
		u.Subscription = nil
	}
	return
}

func (m *memoryStore) DeleteUser(c context.T, publicKey string) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.AuthorKey != publicKey {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	delete(m.users, publicKey)
	return
}

func (m *memoryStore) GetToken(c context.T, token string) (
	t *store.Token, err error,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t = m.tokens[token]; t == nil {
		err = store.ErrTokenNotFound
	}
	return
}

func (m *memoryStore) CountEntries(c context.T, authorKey, dayId string) (
	n int64, err error,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.AuthorKey == authorKey && e.DayId == dayId {
			n++
		}
	}
	return
}

func (m *memoryStore) SaveEntry(c context.T, e *store.Entry) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := *e
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now()
	}
	m.entries = append(m.entries, &saved)
	return
}

func (m *memoryStore) FetchUndelivered(
	c context.T, pairId, authorKey, since string,
) (entries []*store.Entry, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, e := range m.entries {
		if e.PairId != pairId || e.AuthorKey != authorKey ||
			e.DayId < since {
			continue
		}
		if e.FetchedAt == nil {
			at := now
			e.FetchedAt = &at
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DayId < entries[j].DayId
	})
	return
}

func (m *memoryStore) AckEntries(
	c context.T, pairId, authorKey string, entryIds []string,
) (deleted int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[string]bool, len(entryIds))
	for _, id := range entryIds {
		wanted[id] = true
	}
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.PairId == pairId && e.AuthorKey == authorKey && wanted[e.Id] {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return
}

func (m *memoryStore) Ping(c context.T) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingErr
}

func (m *memoryStore) setPingErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
}

func (m *memoryStore) Sweep(
	c context.T, tokenRetention, entryRetention time.Duration,
) (tokens, entries int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for token, t := range m.tokens {
		if now.Sub(t.ExpiresAt) > tokenRetention {
			delete(m.tokens, token)
			tokens++
		}
	}
	kept := m.entries[:0]
	for _, e := range m.entries {
		if now.Sub(e.CreatedAt) > entryRetention {
			entries++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return
}

var _ store.I = &memoryStore{}

// pokeRecorder collects Notify calls on a channel so tests can wait for the
// detached goroutine the upload handler spawns.
type pokeRecorder struct {
	pokes chan string
}

func newPokeRecorder() *pokeRecorder {
	return &pokeRecorder{pokes: make(chan string, 8)}
}

func (p *pokeRecorder) Notify(c context.T, recipientKey, pairId string) {
	p.pokes <- recipientKey
}

// testRelay satisfies server.I over the in-memory store.
type testRelay struct {
	ctx      context.T
	cfg      *config.C
	storage  store.I
	verifier *httpauth.V
	notes    notifier.I
	handoff  *handoff.H
}

func (s *testRelay) UserAuth(
	c context.T, r *http.Request, body []byte,
) (u *store.User, err error) {
	return s.verifier.Request(c, r, body)
}

func (s *testRelay) Context() context.T   { return s.ctx }
func (s *testRelay) Config() *config.C    { return s.cfg }
func (s *testRelay) Storage() store.I     { return s.storage }
func (s *testRelay) Notifier() notifier.I { return s.notes }
func (s *testRelay) Handoff() *handoff.H  { return s.handoff }
func (s *testRelay) Shutdown()            {}

// testAPI carries the routed handler plus the doubles behind it.
type testAPI struct {
	router http.Handler
	store  *memoryStore
	pokes  *pokeRecorder
}

func newTestAPI(t *testing.T) (a *testAPI) {
	t.Helper()
	ctx, cancel := context.Cancel(context.Bg())
	t.Cleanup(cancel)
	st := newMemoryStore()
	pokes := newPokeRecorder()
	verifier := httpauth.New(st)
	relay := &testRelay{
		ctx:      ctx,
		cfg:      &config.C{AppName: "dyad"},
		storage:  st,
		verifier: verifier,
		notes:    pokes,
		handoff:  handoff.New(verifier),
	}
	router := chi.NewRouter()
	// The handlers recover the raw request from their context, the same way
	// the production mux arranges it.
	router.Use(
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(
				func(w http.ResponseWriter, r *http.Request) {
					r = r.WithContext(
						context.Value(r.Context(), "http-request", r),
					)
					next.ServeHTTP(w, r)
				},
			)
		},
	)
	api := humachi.New(router, huma.DefaultConfig("dyad", version.V))
	huma.AutoRegister(api, &Operations{I: relay, path: "/api"})
	return &testAPI{router: router, store: st, pokes: pokes}
}

// request signs (when sk is non-nil) and dispatches one request.
func (a *testAPI) request(
	t *testing.T, method, target string, body []byte, sk ed25519.PrivateKey,
) (w *httptest.ResponseRecorder) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	r := httptest.NewRequest(method, target, reader)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if sk != nil {
		httpauth.SetHeaders(r, sk, body, time.Now())
	}
	w = httptest.NewRecorder()
	a.router.ServeHTTP(w, r)
	return
}

func decode(t *testing.T, w *httptest.ResponseRecorder) (m map[string]any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return
}

func jsonBody(t *testing.T, v any) (b []byte) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return
}

func newKeyPair(t *testing.T) (publicKey string, sk ed25519.PrivateKey) {
	t.Helper()
	pk, sk, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return httpauth.EncodePublicKey(pk), sk
}

// pairing is a fully joined pair ready for entry traffic.
type pairing struct {
	pairId          string
	initiatorKey    string
	initiatorSecret ed25519.PrivateKey
	followerKey     string
	followerSecret  ed25519.PrivateKey
}

// pairUp drives initiate and join to completion.
func (a *testAPI) pairUp(t *testing.T) (p pairing) {
	t.Helper()
	p.initiatorKey, p.initiatorSecret = newKeyPair(t)
	p.followerKey, p.followerSecret = newKeyPair(t)
	w := a.request(
		t, http.MethodPost, "/api/pairs/initiate",
		jsonBody(t, map[string]any{"publicKey": p.initiatorKey}), nil,
	)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode(t, w)
	p.pairId, _ = created["pairId"].(string)
	require.NotEmpty(t, p.pairId)
	token, _ := created["relayToken"].(string)
	require.NotEmpty(t, token)
	w = a.request(
		t, http.MethodPost, "/api/pairs/join",
		jsonBody(
			t, map[string]any{
				"publicKey": p.followerKey, "relayToken": token,
			},
		), nil,
	)
	require.Equal(t, http.StatusOK, w.Code)
	return
}
