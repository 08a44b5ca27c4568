package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/app/message"
	"chatrelay/internal/app/presence"
	"chatrelay/internal/app/profile"
	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/auth/jwt"
	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/testutil"
)

const readTimeout = 2 * time.Second

var (
	alice = testutil.Identity("u-alice", "alice")
	bob   = testutil.Identity("u-bob", "bob")
)

type harness struct {
	relay  *Relay
	store  *testutil.MemStore
	server *httptest.Server
}

func newHarness(t *testing.T, profiles profile.Store, messages message.Store) *harness {
	t.Helper()

	mem := testutil.NewMemStore()
	if profiles == nil {
		profiles = mem
	}
	if messages == nil {
		messages = mem
	}

	relay := NewRelay(
		jwt.NewVerifier(testutil.Secret),
		profile.NewResolver(profiles, time.Second),
		message.NewGateway(messages, time.Second, 100),
	)
	go relay.Run()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := relay.NewSession()
		if err := s.Authenticate(jwt.ExtractToken(r)); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.Abort()
			return
		}
		_ = s.Serve(r.Context(), conn)
	}))

	t.Cleanup(func() {
		relay.Shutdown()
		server.Close()
	})

	return &harness{relay: relay, store: mem, server: server}
}

func (h *harness) dial(t *testing.T, identity user.Identity) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws?token=" + testutil.Token(t, identity)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func expectUsers(t *testing.T, conn *websocket.Conn, want ...string) {
	t.Helper()

	env := readEnvelope(t, conn)
	require.Equal(t, EventUsers, env.Event)

	var entries []presence.Entry
	require.NoError(t, json.Unmarshal(env.Data, &entries))

	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.Username)
	}
	assert.Equal(t, want, got)
}

func expectMessage(t *testing.T, conn *websocket.Conn) message.Message {
	t.Helper()

	env := readEnvelope(t, conn)
	require.Equal(t, EventMessage, env.Event)

	var m message.Message
	require.NoError(t, json.Unmarshal(env.Data, &m))
	return m
}

func expectError(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()

	env := readEnvelope(t, conn)
	require.Equal(t, EventError, env.Event)

	var p ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, code, p.Code)
	assert.NotEmpty(t, p.Message)
}

func send(t *testing.T, conn *websocket.Conn, event Event, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Envelope{Event: event, Data: raw}))
}

func TestRelayScenario(t *testing.T) {
	h := newHarness(t, nil, nil)

	a := h.dial(t, alice)
	expectUsers(t, a, "alice")

	b := h.dial(t, bob)
	expectUsers(t, b, "alice", "bob")
	expectUsers(t, a, "alice", "bob")

	send(t, a, EventMessage, TextPayload{Content: "hi"})
	for _, conn := range []*websocket.Conn{a, b} {
		m := expectMessage(t, conn)
		assert.Equal(t, "hi", m.Content)
		assert.Equal(t, "alice", m.Username)
		assert.Equal(t, alice.ID, m.UserID)
		assert.NotEmpty(t, m.ID)
	}
	require.Len(t, h.store.Messages(), 1)

	send(t, b, EventTyping, TypingPayload{User: "mallory"})
	env := readEnvelope(t, a)
	require.Equal(t, EventTyping, env.Event)
	var typist string
	require.NoError(t, json.Unmarshal(env.Data, &typist))
	assert.Equal(t, "bob", typist)

	// bob's next frame is his own message, so the typing event never reached him.
	send(t, b, EventMessage, TextPayload{Content: "yo"})
	assert.Equal(t, "yo", expectMessage(t, b).Content)
	assert.Equal(t, "yo", expectMessage(t, a).Content)

	require.NoError(t, a.Close())
	expectUsers(t, b, "bob")
	assert.Len(t, h.relay.Presence(), 1)
}

func TestConnectWithoutCredentialIsRejected(t *testing.T) {
	h := newHarness(t, nil, nil)

	b := h.dial(t, bob)
	expectUsers(t, b, "bob")

	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// bob's next frame is his own message, not a users change.
	send(t, b, EventMessage, TextPayload{Content: "still alone"})
	assert.Equal(t, "still alone", expectMessage(t, b).Content)
	assert.Len(t, h.relay.Presence(), 1)
}

func TestInvalidFramesKeepSessionOpen(t *testing.T) {
	h := newHarness(t, nil, nil)

	a := h.dial(t, alice)
	expectUsers(t, a, "alice")

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("{not json")))
	expectError(t, a, errs.ErrInvalidJSONFormat)

	send(t, a, "shout", map[string]string{"content": "x"})
	expectError(t, a, errs.ErrUnsupportedEvent)

	send(t, a, EventMessage, TextPayload{Content: "   "})
	expectError(t, a, errs.ErrMessageContentEmpty)

	send(t, a, EventMessage, TextPayload{Content: strings.Repeat("a", message.MaxContentBytes+1)})
	expectError(t, a, errs.ErrMessageContentTooLong)

	assert.Empty(t, h.store.Messages())

	send(t, a, EventMessage, TextPayload{Content: "ok"})
	assert.Equal(t, "ok", expectMessage(t, a).Content)
}

func TestPersistenceFailureGoesToSenderOnly(t *testing.T) {
	messages := new(testutil.MockMessageStore)
	messages.On("InsertMessage", mock.Anything, mock.Anything).Return(message.Message{}, errors.New("insert failed"))

	h := newHarness(t, nil, messages)

	a := h.dial(t, alice)
	expectUsers(t, a, "alice")
	b := h.dial(t, bob)
	expectUsers(t, b, "alice", "bob")
	expectUsers(t, a, "alice", "bob")

	send(t, a, EventMessage, TextPayload{Content: "lost?"})
	expectError(t, a, errs.ErrPersistence)

	// The next frame bob sees is alice's typing, so nothing was broadcast for the failure.
	send(t, a, EventTyping, TypingPayload{})
	env := readEnvelope(t, b)
	assert.Equal(t, EventTyping, env.Event)
}

func TestProfileFailureClosesWithoutJoining(t *testing.T) {
	profiles := new(testutil.MockProfileStore)
	profiles.On("GetProfile", mock.Anything, alice.ID).Return(user.Profile{}, errors.New("store down"))

	h := newHarness(t, profiles, nil)

	a := h.dial(t, alice)
	expectError(t, a, errs.ErrProfileResolution)

	require.NoError(t, a.SetReadDeadline(time.Now().Add(readTimeout)))
	_, _, err := a.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater))

	assert.Empty(t, h.relay.Presence())
}

func TestMessageUsesFreshProfile(t *testing.T) {
	h := newHarness(t, nil, nil)

	a := h.dial(t, alice)
	expectUsers(t, a, "alice")

	_, err := h.store.UpsertProfile(context.Background(), user.Profile{ID: alice.ID, Username: "Alice W"})
	require.NoError(t, err)

	send(t, a, EventMessage, TextPayload{Content: "renamed"})
	assert.Equal(t, "Alice W", expectMessage(t, a).Username)
}

func TestLastConnectOwnsPresence(t *testing.T) {
	h := newHarness(t, nil, nil)

	first := h.dial(t, alice)
	expectUsers(t, first, "alice")

	second := h.dial(t, alice)
	expectUsers(t, second, "alice")
	expectUsers(t, first, "alice")

	require.NoError(t, first.Close())

	b := h.dial(t, bob)
	expectUsers(t, b, "alice", "bob")
	expectUsers(t, second, "alice", "bob")

	require.NoError(t, second.Close())
	expectUsers(t, b, "bob")
}

func TestClosingNewerSessionKeepsPresence(t *testing.T) {
	h := newHarness(t, nil, nil)

	older := h.dial(t, alice)
	expectUsers(t, older, "alice")

	b := h.dial(t, bob)
	expectUsers(t, b, "alice", "bob")
	expectUsers(t, older, "alice", "bob")

	newer := h.dial(t, alice)
	expectUsers(t, newer, "alice", "bob")
	expectUsers(t, b, "alice", "bob")
	expectUsers(t, older, "alice", "bob")

	require.NoError(t, newer.Close())
	expectUsers(t, b, "alice", "bob")
	expectUsers(t, older, "alice", "bob")
	assert.Equal(t, []string{"alice", "bob"}, presenceNames(h.relay.Presence()))

	require.NoError(t, older.Close())
	expectUsers(t, b, "bob")
}

func TestEscapedContentAtLimitIsRelayed(t *testing.T) {
	h := newHarness(t, nil, nil)

	a := h.dial(t, alice)
	expectUsers(t, a, "alice")

	tests := []struct {
		name    string
		content string
	}{
		// '<' is written as \u003c, six bytes per content byte.
		{"html escaped", strings.Repeat("<", message.MaxContentBytes)},
		{"quotes", strings.Repeat(`"`, message.MaxContentBytes)},
		{"newlines and backslashes", strings.Repeat("\\\n", message.MaxContentBytes/2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Nil(t, message.ValidateContent(tt.content))

			send(t, a, EventMessage, TextPayload{Content: tt.content})

			m := expectMessage(t, a)
			assert.Equal(t, tt.content, m.Content)
		})
	}
}

func presenceNames(entries []presence.Entry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Username)
	}
	return names
}

func TestShutdownClosesSessions(t *testing.T) {
	h := newHarness(t, nil, nil)

	a := h.dial(t, alice)
	expectUsers(t, a, "alice")

	h.relay.Shutdown()
	h.relay.Shutdown()

	require.NoError(t, a.SetReadDeadline(time.Now().Add(readTimeout)))
	_, _, err := a.ReadMessage()
	assert.Error(t, err)

	for i := 0; i < 50; i++ {
		require.ErrorIs(t, h.relay.Broadcast(EventUsers, nil), ErrRelayStopped)
		require.ErrorIs(t, h.relay.BroadcastExcept(nil, EventTyping, "alice"), ErrRelayStopped)
	}
}

func TestAuthenticate(t *testing.T) {
	relay := NewRelay(jwt.NewVerifier(testutil.Secret), nil, nil)

	t.Run("valid token", func(t *testing.T) {
		s := relay.NewSession()
		require.Equal(t, StateConnecting, s.State())

		require.NoError(t, s.Authenticate(testutil.Token(t, alice)))
		assert.Equal(t, StateAuthenticated, s.State())
		assert.Equal(t, alice.ID, s.Identity().ID)
		assert.NotEmpty(t, s.ID())

		assert.ErrorIs(t, s.Authenticate(testutil.Token(t, alice)), ErrInvalidTransition)
	})

	t.Run("bad token closes", func(t *testing.T) {
		s := relay.NewSession()

		err := s.Authenticate("garbage")
		assert.True(t, errs.HasCode(err, errs.ErrUnauthorized))
		assert.Equal(t, StateClosed, s.State())
	})

	t.Run("abort", func(t *testing.T) {
		s := relay.NewSession()
		require.NoError(t, s.Authenticate(testutil.Token(t, alice)))

		s.Abort()
		s.Abort()
		assert.Equal(t, StateClosed, s.State())
		assert.False(t, s.queue([]byte("x")))
	})
}
