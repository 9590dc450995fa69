package openapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"dyad.dev/pkg/utils/context"
)

func subscription(endpoint string) map[string]any {
	return map[string]any{
		"endpoint": endpoint,
		"p256dh":   "BNcRdreALRFXTkOOUHK1EtK2wtaz5Ry4YfYCA_0QTpQtUbVlUls0VJXg7A8u-Ts1XbjhazAkj7I99e8QcYP7DkM",
		"auth":     "tBHItJI5svbpez7KI4CCXg",
	}
}

func TestSubscribeLifecycle(t *testing.T) {
	a := newTestAPI(t)
	p := a.pairUp(t)

	w := a.request(
		t, http.MethodPost, "/api/push/subscribe",
		jsonBody(t, subscription("https://push.example.net/send/one")),
		p.initiatorSecret,
	)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "subscribed", decode(t, w)["status"])
	u, err := a.store.GetUser(context.Bg(), p.initiatorKey)
	require.NoError(t, err)
	require.NotNil(t, u.Subscription)
	require.Equal(
		t, "https://push.example.net/send/one", u.Subscription.Endpoint,
	)

	// Re-subscribing replaces the triple.
	w = a.request(
		t, http.MethodPost, "/api/push/subscribe",
		jsonBody(t, subscription("https://push.example.net/send/two")),
		p.initiatorSecret,
	)
	require.Equal(t, http.StatusOK, w.Code)
	u, err = a.store.GetUser(context.Bg(), p.initiatorKey)
	require.NoError(t, err)
	require.Equal(
		t, "https://push.example.net/send/two", u.Subscription.Endpoint,
	)

	w = a.request(
		t, http.MethodDelete, "/api/push/subscribe", nil, p.initiatorSecret,
	)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "unsubscribed", decode(t, w)["status"])
	u, err = a.store.GetUser(context.Bg(), p.initiatorKey)
	require.NoError(t, err)
	require.Nil(t, u.Subscription)

	// Unsubscribing twice is harmless.
	w = a.request(
		t, http.MethodDelete, "/api/push/subscribe", nil, p.initiatorSecret,
	)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "unsubscribed", decode(t, w)["status"])
}

func TestSubscribeRequiresFullTriple(t *testing.T) {
	a := newTestAPI(t)
	p := a.pairUp(t)
	for _, missing := range []string{"endpoint", "p256dh", "auth"} {
		t.Run(
			"missing "+missing, func(t *testing.T) {
				sub := subscription("https://push.example.net/send/x")
				delete(sub, missing)
				w := a.request(
					t, http.MethodPost, "/api/push/subscribe",
					jsonBody(t, sub), p.initiatorSecret,
				)
				require.Equal(t, http.StatusBadRequest, w.Code)
				require.Equal(
					t, "endpoint, p256dh and auth are required",
					decode(t, w)["error"],
				)
			},
		)
	}
	t.Run(
		"broken JSON", func(t *testing.T) {
			w := a.request(
				t, http.MethodPost, "/api/push/subscribe", []byte(`{nope`),
				p.initiatorSecret,
			)
			require.Equal(t, http.StatusBadRequest, w.Code)
			require.Equal(t, "malformed JSON body", decode(t, w)["error"])
		},
	)
}

func TestRePairForfeitsSubscription(t *testing.T) {
	a := newTestAPI(t)
	p := a.pairUp(t)
	w := a.request(
		t, http.MethodPost, "/api/push/subscribe",
		jsonBody(t, subscription("https://push.example.net/send/x")),
		p.initiatorSecret,
	)
	require.Equal(t, http.StatusOK, w.Code)

	// Starting a new pair abandons the old membership and its subscription.
	w = a.request(
		t, http.MethodPost, "/api/pairs/initiate",
		jsonBody(t, map[string]any{"publicKey": p.initiatorKey}), nil,
	)
	require.Equal(t, http.StatusCreated, w.Code)
	newPairId, _ := decode(t, w)["pairId"].(string)
	require.NotEqual(t, p.pairId, newPairId)

	u, err := a.store.GetUser(context.Bg(), p.initiatorKey)
	require.NoError(t, err)
	require.Equal(t, newPairId, u.PairId)
	require.Nil(t, u.Subscription)

	// The abandoned partner is alone again.
	w = a.request(
		t, http.MethodGet, "/api/pairs/status", nil, p.followerSecret,
	)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, false, decode(t, w)["paired"])
}
