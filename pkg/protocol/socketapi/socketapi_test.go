package socketapi

import (
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dyad.dev/pkg/app/config"
	"dyad.dev/pkg/interfaces/notifier"
	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/protocol/handoff"
	"dyad.dev/pkg/protocol/httpauth"
	"dyad.dev/pkg/protocol/ws"
	"dyad.dev/pkg/utils/context"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/require"
)

type userTable struct {
	users map[string]*store.User
}

func (f *userTable) GetUser(c context.T, publicKey string) (
	u *store.User, err error,
) {
	u, ok := f.users[publicKey]
	if !ok {
		err = store.ErrUserNotFound
	}
	return
}

func (f *userTable) GetPartner(c context.T, u *store.User) (
	partner *store.User, err error,
) {
	return
}

func (f *userTable) SetSubscription(
	c context.T, publicKey string, sub *store.Subscription,
) (err error) {
	return
}

func (f *userTable) ClearSubscription(c context.T, publicKey string) (
	err error,
) {
	return
}

func (f *userTable) DeleteUser(c context.T, publicKey string) (err error) {
	return
}

// testServer satisfies server.I with just enough for the socket layer.
type testServer struct {
	ctx context.T
	h   *handoff.H
}

func (s *testServer) UserAuth(
	c context.T, r *http.Request, body []byte,
) (u *store.User, err error) {
	return
}

func (s *testServer) Context() context.T   { return s.ctx }
func (s *testServer) Config() *config.C    { return nil }
func (s *testServer) Storage() store.I     { return nil }
func (s *testServer) Notifier() notifier.I { return notifier.None{} }
func (s *testServer) Handoff() *handoff.H  { return s.h }
func (s *testServer) Shutdown()            {}

func newTestSocket(t *testing.T) (
	u string, ht *handoff.H, skA, skB ed25519.PrivateKey,
) {
	t.Helper()
	pkA, skA, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	pkB, skB, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	keyA := httpauth.EncodePublicKey(pkA)
	keyB := httpauth.EncodePublicKey(pkB)
	users := &userTable{
		users: map[string]*store.User{
			keyA: {PublicKey: keyA, PairId: "pair-ws-test"},
			keyB: {PublicKey: keyB, PairId: "pair-ws-test"},
		},
	}
	ht = handoff.New(httpauth.New(users))
	ctx, cancel := context.Cancel(context.Bg())
	t.Cleanup(cancel)
	srv := &testServer{ctx: ctx, h: ht}
	hs := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				a := &A{I: srv}
				a.Serve(w, r, srv)
			},
		),
	)
	t.Cleanup(hs.Close)
	u = "ws" + strings.TrimPrefix(hs.URL, "http")
	return
}

func TestLiveHandoffOverWebsocket(t *testing.T) {
	u, ht, skA, skB := newTestSocket(t)
	ctx, cancel := context.Timeout(context.Bg(), 10*time.Second)
	defer cancel()
	watcher, err := ws.DialWatch(ctx, u, skA)
	require.NoError(t, err)
	defer watcher.Close()
	// The join path pushes the notification through the directory.
	ht.Paired("pair-ws-test", "partner-key")
	f, err := watcher.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, handoff.TypePaired, f.Type)
	require.Equal(t, "partner-key", f.PartnerPublicKey)
	collector, err := ws.DialCollect(ctx, u, skB)
	require.NoError(t, err)
	defer collector.Close()
	require.NoError(t, watcher.SendBundle(ctx, "b64-history"))
	f, err = collector.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, handoff.TypeBundle, f.Type)
	require.Equal(t, "b64-history", f.Payload)
}

func TestParkedBundleOverWebsocket(t *testing.T) {
	u, _, skA, skB := newTestSocket(t)
	ctx, cancel := context.Timeout(context.Bg(), 10*time.Second)
	defer cancel()
	watcher, err := ws.DialWatch(ctx, u, skA)
	require.NoError(t, err)
	require.NoError(t, watcher.SendBundle(ctx, "parked-history"))
	// The directory closes the watcher once the bundle is accepted, so
	// seeing the close guarantees the bundle is parked.
	_, err = watcher.Next(ctx)
	require.Error(t, err)
	collector, err := ws.DialCollect(ctx, u, skB)
	require.NoError(t, err)
	defer collector.Close()
	f, err := collector.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, handoff.TypeBundle, f.Type)
	require.Equal(t, "parked-history", f.Payload)
}

func TestChannelRejectsUnknownKey(t *testing.T) {
	u, _, _, _ := newTestSocket(t)
	ctx, cancel := context.Timeout(context.Bg(), 10*time.Second)
	defer cancel()
	_, stranger, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	_, err = ws.DialWatch(ctx, u, stranger)
	require.Error(t, err)
}

func TestBundleRequiresWatchRole(t *testing.T) {
	u, _, _, _ := newTestSocket(t)
	ctx, cancel := context.Timeout(context.Bg(), 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, u, nil)
	require.NoError(t, err)
	defer conn.CloseNow()
	require.NoError(
		t, wsjson.Write(
			ctx, conn, &handoff.Frame{
				Type: handoff.TypeBundle, Payload: "x",
			},
		),
	)
	f := &handoff.Frame{}
	if err = wsjson.Read(ctx, conn, f); err == nil {
		require.Equal(t, handoff.TypeError, f.Type)
		err = wsjson.Read(ctx, conn, f)
	}
	require.Error(t, err)
}

func TestSecondAuthFrameCloses(t *testing.T) {
	u, _, skA, _ := newTestSocket(t)
	ctx, cancel := context.Timeout(context.Bg(), 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, u, nil)
	require.NoError(t, err)
	defer conn.CloseNow()
	publicKey, timestamp, signature := httpauth.SignChannel(
		skA, httpauth.WatchPrefix, time.Now(),
	)
	auth := &handoff.Frame{
		Type:      handoff.TypeAuth,
		PublicKey: publicKey,
		Timestamp: timestamp,
		Signature: signature,
	}
	require.NoError(t, wsjson.Write(ctx, conn, auth))
	f := &handoff.Frame{}
	require.NoError(t, wsjson.Read(ctx, conn, f))
	require.Equal(t, handoff.TypeReady, f.Type)
	require.NoError(t, wsjson.Write(ctx, conn, auth))
	if err = wsjson.Read(ctx, conn, f); err == nil {
		require.Equal(t, handoff.TypeError, f.Type)
		err = wsjson.Read(ctx, conn, f)
	}
	require.Error(t, err)
}
