/*
Package chat relays chat traffic between connected WebSocket sessions.

The Relay is the central hub. A single goroutine (Run) owns the presence registry and the
set of active sessions, and serializes every join, leave and broadcast, so a presence
change and the snapshot sent for it can never interleave with another relay event.
Each Session runs its own read and write pumps and talks to the hub through channels.
*/
package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"chatrelay/internal/app/message"
	"chatrelay/internal/app/presence"
	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/auth/jwt"
	"chatrelay/internal/pkg/logx"
)

const broadcastChannelBuffer = 1024

// ErrRelayStopped is returned when a session tries to join a relay that has shut down.
var ErrRelayStopped = errors.New("chat: relay stopped")

// ProfileResolver is implemented by *profile.Resolver.
type ProfileResolver interface {
	Resolve(ctx context.Context, identity user.Identity) (user.Profile, error)
}

// MessagePersister is implemented by *message.Gateway.
type MessagePersister interface {
	Persist(ctx context.Context, author user.Profile, content string) (message.Message, error)
}

// outboundFrame is an encoded envelope waiting to be fanned out. A non-nil except is
// skipped.
type outboundFrame struct {
	frame  []byte
	except *Session
}

// Relay tracks connected sessions and fans frames out to them.
type Relay struct {
	verifier jwt.IdentityVerifier
	profiles ProfileResolver
	messages MessagePersister

	// registry is written only by the Run goroutine.
	registry *presence.Registry

	// sessions and connected are touched only by the Run goroutine. connected holds the
	// live sessions of each identity in connect order; the last one owns the presence entry.
	sessions  map[*Session]struct{}
	connected map[string][]*Session

	register   chan *Session
	unregister chan *Session
	broadcast  chan outboundFrame

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}

	logger zerolog.Logger
}

// NewRelay returns a Relay. Call Run to start it.
func NewRelay(verifier jwt.IdentityVerifier, profiles ProfileResolver, messages MessagePersister) *Relay {
	return &Relay{
		verifier:   verifier,
		profiles:   profiles,
		messages:   messages,
		registry:   presence.NewRegistry(),
		sessions:   make(map[*Session]struct{}),
		connected:  make(map[string][]*Session),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		broadcast:  make(chan outboundFrame, broadcastChannelBuffer),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logx.ForComponent("relay"),
	}
}

// Run processes relay events until Shutdown is called.
func (r *Relay) Run() {
	defer func() {
		for s := range r.sessions {
			s.closeSend()
		}
		r.logger.Info().Int("sessions", len(r.sessions)).Msg("Relay loop finished.")
		close(r.done)
	}()

	r.logger.Info().Msg("Relay loop started.")

	for {
		select {
		case s := <-r.register:
			r.handleRegister(s)

		case s := <-r.unregister:
			r.handleUnregister(s)

		case out := <-r.broadcast:
			r.fanOut(out)

		case <-r.stop:
			r.logger.Info().Msg("Relay forced stop initiated.")
			return
		}
	}
}

// Shutdown stops the Run loop, closes every session's outbound queue and waits for the
// loop to exit. It is safe to call more than once.
func (r *Relay) Shutdown() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

// Presence returns the current presence snapshot.
func (r *Relay) Presence() []presence.Entry {
	return r.registry.Snapshot()
}

// NewSession returns a session in the Connecting state bound to this relay.
func (r *Relay) NewSession() *Session {
	return newSession(r)
}

func (r *Relay) handleRegister(s *Session) {
	r.sessions[s] = struct{}{}

	if previous := r.connected[s.identity.ID]; len(previous) > 0 {
		r.logger.Info().
			Str("user_id", s.identity.ID).
			Str("previous_session", previous[len(previous)-1].id).
			Str("session_id", s.id).
			Msg("Identity reconnected. Newest session owns the presence entry.")
	}
	r.connected[s.identity.ID] = append(r.connected[s.identity.ID], s)
	r.registry.Upsert(s.identity, s.profile)

	r.logger.Info().
		Str("user_id", s.identity.ID).
		Str("session_id", s.id).
		Int("online_users", r.registry.Len()).
		Int("sessions", len(r.sessions)).
		Msg("Session joined.")

	r.broadcastPresence()
}

func (r *Relay) handleUnregister(s *Session) {
	if _, ok := r.sessions[s]; !ok {
		r.logger.Warn().Str("session_id", s.id).Msg("Unregister for unknown or already removed session.")
		return
	}

	delete(r.sessions, s)
	s.closeSend()

	live := r.connected[s.identity.ID]
	wasOwner := live[len(live)-1] == s
	live = lo.Without(live, s)

	if len(live) > 0 {
		r.connected[s.identity.ID] = live
		if !wasOwner {
			r.logger.Info().
				Str("user_id", s.identity.ID).
				Str("stale_session", s.id).
				Msg("Older session left. Presence entry kept for the newer session.")
			return
		}

		// the newest surviving session takes the entry over
		owner := live[len(live)-1]
		r.registry.Upsert(owner.identity, owner.profile)
		r.logger.Info().
			Str("user_id", s.identity.ID).
			Str("session_id", s.id).
			Str("owner_session", owner.id).
			Msg("Owning session left. Presence handed to a surviving session.")
		r.broadcastPresence()
		return
	}

	delete(r.connected, s.identity.ID)
	r.registry.Remove(s.identity.ID)

	r.logger.Info().
		Str("user_id", s.identity.ID).
		Str("session_id", s.id).
		Int("online_users", r.registry.Len()).
		Msg("Session left.")

	r.broadcastPresence()
}

// broadcastPresence sends the snapshot to every session, including the one that just joined.
func (r *Relay) broadcastPresence() {
	frame, err := encodeFrame(EventUsers, r.registry.Snapshot())
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to encode presence snapshot.")
		return
	}

	r.fanOut(outboundFrame{frame: frame})
}

// fanOut queues a frame on every session except out.except. A full queue drops the frame
// for that session only.
func (r *Relay) fanOut(out outboundFrame) {
	for s := range r.sessions {
		if s == out.except {
			continue
		}

		if !s.queue(out.frame) {
			r.logger.Warn().
				Str("session_id", s.id).
				Str("user_id", s.identity.ID).
				Msg("Session send queue full or closed, dropping frame.")
		}
	}
}

// join hands s to the Run loop. It reports false once the relay has stopped.
func (r *Relay) join(s *Session) bool {
	select {
	case r.register <- s:
		return true
	case <-r.done:
		return false
	}
}

func (r *Relay) leave(s *Session) {
	select {
	case r.unregister <- s:
	case <-r.done:
	}
}

// Broadcast sends event with data to every active session.
func (r *Relay) Broadcast(event Event, data any) error {
	return r.enqueue(event, data, nil)
}

// BroadcastExcept sends event with data to every active session but except.
func (r *Relay) BroadcastExcept(except *Session, event Event, data any) error {
	return r.enqueue(event, data, except)
}

func (r *Relay) enqueue(event Event, data any, except *Session) error {
	frame, err := encodeFrame(event, data)
	if err != nil {
		return err
	}

	// done must win over a free slot in the buffered channel.
	select {
	case <-r.done:
		return ErrRelayStopped
	default:
	}

	select {
	case r.broadcast <- outboundFrame{frame: frame, except: except}:
		return nil
	case <-r.done:
		return ErrRelayStopped
	}
}
