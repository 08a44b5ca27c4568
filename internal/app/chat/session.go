package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatrelay/internal/app/message"
	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client. Escaping can grow
	// each content byte to six on the wire, so the limit tracks message.MaxContentBytes.
	maxFrameSize = 6*message.MaxContentBytes + 1024

	// depth of the outbound queue of each session.
	sendQueueSize = 256
)

// Session is one client connection moving through the session state machine.
type Session struct {
	id    string
	relay *Relay
	state stateMachine

	// identity is fixed by Authenticate. profile is the one resolved by Serve.
	identity user.Identity
	profile  user.Profile

	conn      *websocket.Conn
	closeConn sync.Once

	// mu guards send against a send after close.
	mu     sync.Mutex
	send   chan []byte
	closed bool

	logger zerolog.Logger
}

func newSession(r *Relay) *Session {
	id := uuid.NewString()

	return &Session{
		id:     id,
		relay:  r,
		send:   make(chan []byte, sendQueueSize),
		logger: logx.ForComponent("session").With().Str("session_id", id).Logger(),
	}
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// State returns the session's current state.
func (s *Session) State() State { return s.state.current() }

// Identity returns the verified identity. It is zero before authentication succeeds.
func (s *Session) Identity() user.Identity { return s.identity }

// Authenticate verifies token and moves the session to Authenticated. On failure the
// session is Closed and the verifier's error (errs.ErrUnauthorized) is returned.
func (s *Session) Authenticate(token string) error {
	if err := s.state.transition(StateAuthenticating); err != nil {
		return err
	}

	identity, err := s.relay.verifier.Verify(token)
	if err != nil {
		_ = s.state.transition(StateClosed)
		return err
	}

	s.identity = identity
	s.logger = s.logger.With().Str("user_id", identity.ID).Logger()

	return s.state.transition(StateAuthenticated)
}

// Abort closes a session that will never be served, e.g. after a failed upgrade.
func (s *Session) Abort() {
	if err := s.state.transition(StateClosed); err != nil {
		s.logger.Debug().Err(err).Msg("Abort on a session that is already closed")
	}
	s.closeSend()
}

// Serve runs an authenticated session over conn until the connection drops or the relay
// stops. It resolves the profile, joins the relay and pumps frames. If the profile cannot
// be resolved the client gets an error event and the connection is closed without the
// session ever joining.
func (s *Session) Serve(ctx context.Context, conn *websocket.Conn) error {
	s.conn = conn

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopClosing := context.AfterFunc(ctx, s.close)
	defer stopClosing()

	if s.State() != StateAuthenticated {
		s.close()
		return ErrInvalidTransition
	}

	p, err := s.relay.profiles.Resolve(ctx, s.identity)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Profile resolution failed. Closing connection.")
		s.rejectConnection(err)
		_ = s.state.transition(StateClosed)
		s.closeSend()
		return err
	}
	s.profile = p

	if err := s.state.transition(StateActive); err != nil {
		s.close()
		return err
	}

	go s.writePump()

	if !s.relay.join(s) {
		_ = s.state.transition(StateClosed)
		s.closeSend()
		return ErrRelayStopped
	}

	s.logger.Info().Str("username", p.Username).Msg("Session active.")

	s.readPump(ctx)

	s.relay.leave(s)
	_ = s.state.transition(StateClosed)
	s.logger.Info().Msg("Session closed.")

	return nil
}

// readPump handles frames from the connection until it fails or closes.
func (s *Session) readPump(ctx context.Context) {
	s.conn.SetReadLimit(maxFrameSize)

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			return
		}

		s.handleFrame(ctx, raw)
	}
}

// handleFrame dispatches one inbound envelope. Errors go back to this session only.
func (s *Session) handleFrame(ctx context.Context, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.logger.Warn().Err(err).Int("frame_bytes", len(raw)).Msg("Client sent invalid JSON")
		s.sendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	switch env.Event {
	case EventMessage:
		s.handleMessage(ctx, env.Data)

	case EventTyping:
		s.handleTyping()

	default:
		s.logger.Warn().Str("event", string(env.Event)).Msg("Client sent unsupported event")
		s.sendError(errs.NewError(errs.ErrUnsupportedEvent, env.Event))
	}
}

// handleMessage persists a message and broadcasts the stored record to everyone.
func (s *Session) handleMessage(ctx context.Context, data json.RawMessage) {
	var payload TextPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.logger.Warn().Err(err).Msg("Client sent invalid message payload")
		s.sendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	if err := message.ValidateContent(payload.Content); err != nil {
		s.sendError(err)
		return
	}

	stored, err := s.relay.messages.Persist(ctx, s.currentProfile(ctx), payload.Content)
	if err != nil {
		s.sendError(err)
		return
	}

	if err := s.relay.Broadcast(EventMessage, stored); err != nil {
		s.logger.Warn().Err(err).Str("message_id", stored.ID).Msg("Stored message not broadcast")
	}
}

// handleTyping tells the other sessions that this user is typing. The name sent is the
// server-side username, whatever the client put in the payload.
func (s *Session) handleTyping() {
	if err := s.relay.BroadcastExcept(s, EventTyping, s.profile.Username); err != nil {
		s.logger.Debug().Err(err).Msg("Typing indicator not broadcast")
	}
}

// currentProfile re-reads the profile so edits made mid-session show up on new messages.
// The connect-time profile is used if the store cannot answer.
func (s *Session) currentProfile(ctx context.Context) user.Profile {
	p, err := s.relay.profiles.Resolve(ctx, s.identity)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Fresh profile unavailable, using connect-time profile")
		return s.profile
	}
	return p
}

// writePump writes queued frames and heartbeats to the connection.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			if !s.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !s.writePing() {
				return
			}
		}
	}
}

// writeQueuedFrame reports whether the write loop should continue.
func (s *Session) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			s.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		s.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

func (s *Session) writePing() bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		s.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// queue adds a frame to the outbound queue without blocking. It reports false when the
// queue is full or closed.
func (s *Session) queue(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// closeSend closes the outbound queue, which makes the write pump send a close frame and
// exit. It is idempotent.
func (s *Session) closeSend() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

// close tears down the underlying connection once.
func (s *Session) close() {
	s.closeConn.Do(func() {
		if s.conn == nil {
			return
		}
		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Connection close error")
		}
	})
}

// sendError queues an error event for this session.
func (s *Session) sendError(err error) {
	customErr := errs.From(err)

	frame, encErr := encodeFrame(EventError, ErrorPayload{Code: customErr.Code, Message: customErr.Message})
	if encErr != nil {
		s.logger.Error().Err(encErr).Msg("Failed to encode error event")
		return
	}

	if !s.queue(frame) {
		s.logger.Warn().Int("code", customErr.Code).Msg("Failed to queue error event")
	}
}

// rejectConnection writes an error event and a close frame directly, for use before the
// write pump has started.
func (s *Session) rejectConnection(err error) {
	customErr := errs.From(err)

	frame, encErr := encodeFrame(EventError, ErrorPayload{Code: customErr.Code, Message: customErr.Message})
	if encErr == nil {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			s.logger.Debug().Err(err).Msg("Failed to write rejection event")
		}
	}

	closeMessage := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, customErr.Message)
	if err := s.conn.WriteMessage(websocket.CloseMessage, closeMessage); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to write close frame")
	}

	s.close()
}
