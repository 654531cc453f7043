package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smallbiznis/mensalidade/internal/clock"
	"github.com/smallbiznis/mensalidade/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Params{
		Cfg: config.Config{WhatsApp: config.WhatsAppConfig{
			AccessToken:   "token",
			PhoneNumberID: "12345",
			APIBase:       srv.URL,
		}},
		Log:     zap.NewNop(),
		Tracker: NewStatusTracker(clock.NewFakeClock(time.Now())),
	})
}

func TestSendPostsTextMessage(t *testing.T) {
	var got textMessage
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	})

	require.NoError(t, client.Send(context.Background(), "(11) 98765-4321", "Olá Ana"))
	assert.Equal(t, "whatsapp", got.MessagingProduct)
	assert.Equal(t, "5511987654321", got.To)
	assert.Equal(t, "text", got.Type)
	assert.Equal(t, "Olá Ana", got.Text.Body)
	assert.Equal(t, StateConnected, client.tracker.Current().State)
}

func TestSendReportsAPIErrors(t *testing.T) {
	status := http.StatusBadRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"message":"bad recipient"}}`))
	})
	client.tracker.Update(StateConnected, "")

	err := client.Send(context.Background(), "11987654321", "hi")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "bad recipient")
	assert.Equal(t, StateConnected, client.tracker.Current().State)

	status = http.StatusUnauthorized
	err = client.Send(context.Background(), "11987654321", "hi")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, StateDisconnected, client.tracker.Current().State)
}

func TestSendRejectsBadInput(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	assert.ErrorIs(t, client.Send(context.Background(), "1234", "hi"), ErrInvalidPhone)
	assert.False(t, called)

	client.cfg.AccessToken = ""
	assert.ErrorIs(t, client.Send(context.Background(), "11987654321", "hi"), ErrNotConfigured)
	assert.ErrorIs(t, client.Ping(context.Background()), ErrNotConfigured)
	assert.Equal(t, StateDisconnected, client.tracker.Current().State)
}

func TestPing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/12345", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"12345"}`))
	})
	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, StateConnected, client.tracker.Current().State)
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"11987654321", "5511987654321", true},
		{"(11) 3456-7890", "551134567890", true},
		{"+55 11 98765-4321", "5511987654321", true},
		{"011987654321", "5511987654321", true},
		{"12345", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := NormalizePhone(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidPhone, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
