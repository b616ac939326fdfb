// Package session orchestrates one user's participation in exactly one chat
// room: join, history seeding, live receive, send, typing and presence
// forwarding, and deterministic teardown.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"maternity-chat/internal/models"
	"maternity-chat/internal/notify"
	"maternity-chat/internal/presence"
	"maternity-chat/internal/room"
	"maternity-chat/internal/stream"
	"maternity-chat/internal/typing"
)

var (
	// ErrEmptyParticipant rejects sessions constructed with a blank id.
	ErrEmptyParticipant = errors.New("session: participant id is empty")
	// ErrNotJoined rejects sends outside the Joining/Joined states.
	ErrNotJoined = errors.New("session: room not joined")
)

// State is the session lifecycle phase.
type State int32

const (
	Disconnected State = iota
	Joining
	Joined
	Leaving
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Joining:
		return "joining"
	case Joined:
		return "joined"
	case Leaving:
		return "leaving"
	default:
		return "unknown"
	}
}

// Transport is the realtime channel capability injected into a session. One
// physical connection may serve many session lifecycles, but Subscribe binds
// it to at most one room at a time.
type Transport interface {
	Emit(event string, payload any) error
	Subscribe() (<-chan models.Envelope, func(), error)
}

// Config carries everything a session needs. Presence is shared across
// sessions on the same connection, not owned by any of them.
type Config struct {
	SelfID   string
	SelfName string
	SelfRole string
	PeerID   string

	Transport Transport
	Presence  *presence.Tracker
	Notifier  *notify.Bridge

	// View supplies the current view state for notification decisions.
	// Defaults to a visible, bottom-scrolled view.
	View func() notify.ViewState

	TypingTTL      time.Duration
	TypingThrottle time.Duration
	// OnTypingChange fires with the typing peer's name, or "" on expiry.
	OnTypingChange func(string)
}

// Session is the aggregate root for one room membership.
type Session struct {
	selfID   string
	selfName string
	selfRole string
	peerID   string
	roomID   room.ID

	transport Transport
	presence  *presence.Tracker
	notifier  *notify.Bridge
	view      func() notify.ViewState

	stream   *stream.Stream
	typing   *typing.Indicator
	throttle *typing.Throttler

	state     atomic.Int32
	done      chan struct{}
	unsub     func()
	closeOnce sync.Once
}

// Open derives the room id, binds the transport, declares presence and emits
// the join request. The returned session is Joining until the history
// snapshot arrives.
func Open(cfg Config) (*Session, error) {
	if cfg.SelfID == "" || cfg.PeerID == "" {
		return nil, ErrEmptyParticipant
	}
	if cfg.Transport == nil {
		return nil, errors.New("session: transport is required")
	}
	if cfg.Presence == nil {
		cfg.Presence = presence.NewTracker()
	}
	if cfg.View == nil {
		cfg.View = func() notify.ViewState { return notify.ViewState{DocumentVisible: true} }
	}

	events, unsub, err := cfg.Transport.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("bind transport: %w", err)
	}

	s := &Session{
		selfID:    cfg.SelfID,
		selfName:  cfg.SelfName,
		selfRole:  cfg.SelfRole,
		peerID:    cfg.PeerID,
		roomID:    room.Derive(cfg.SelfID, cfg.PeerID),
		transport: cfg.Transport,
		presence:  cfg.Presence,
		notifier:  cfg.Notifier,
		view:      cfg.View,
		stream:    stream.New(),
		typing:    typing.NewIndicator(cfg.SelfName, cfg.TypingTTL, cfg.OnTypingChange),
		throttle:  typing.NewThrottler(cfg.TypingThrottle),
		done:      make(chan struct{}),
		unsub:     unsub,
	}
	s.state.Store(int32(Joining))

	if err := s.transport.Emit(models.EventUserOnline, models.PresencePayload{UserID: s.selfID, Role: s.selfRole}); err != nil {
		unsub()
		return nil, fmt.Errorf("declare presence: %w", err)
	}
	if err := s.transport.Emit(models.EventJoinRoom, models.JoinRoomPayload{RoomID: s.roomID.String(), DisplayName: s.selfName}); err != nil {
		unsub()
		return nil, fmt.Errorf("join room: %w", err)
	}

	go s.loop(events)
	return s, nil
}

func (s *Session) loop(events <-chan models.Envelope) {
	for {
		select {
		case <-s.done:
			return
		case env, ok := <-events:
			if !ok {
				// Transport gone. Hold last-known state; recovery is a fresh
				// session with a full history resync.
				return
			}
			s.dispatch(env)
		}
	}
}

func (s *Session) dispatch(env models.Envelope) {
	switch env.Event {
	case models.EventChatHistory:
		var records []models.RawMessage
		if err := json.Unmarshal(env.Data, &records); err != nil {
			log.Printf("session %s: bad history payload: %v", s.roomID, err)
			return
		}
		s.stream.SeedHistory(records)
		s.state.CompareAndSwap(int32(Joining), int32(Joined))

	case models.EventReceiveMessage:
		var rec models.RawMessage
		if err := json.Unmarshal(env.Data, &rec); err != nil {
			log.Printf("session %s: bad message payload: %v", s.roomID, err)
			return
		}
		msg := stream.FromRaw(rec, stream.OriginLive)
		s.stream.Append(msg)
		if s.notifier != nil {
			s.notifier.Observe(msg, s.view())
		}

	case models.EventTyping:
		var p models.TypingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		s.typing.Notify(p.DisplayName)

	case models.EventOnlineUsers:
		var p models.OnlineUsersPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		s.presence.ReplaceAll(p.UserIDs)

	case models.EventUserOnline:
		var p models.PresencePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		s.presence.SetOnline(p.UserID)

	case models.EventUserOffline:
		var p models.PresencePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		s.presence.SetOffline(p.UserID)
	}
}

// Send emits a message to the room. The sender's own copy is not appended
// locally; it reaches the stream through the server broadcast, so the
// rendered transcript always matches the server's canonical order.
func (s *Session) Send(body string) error {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	switch s.State() {
	case Joined, Joining:
	default:
		return ErrNotJoined
	}

	doctorID, motherID := s.selfID, s.peerID
	motherName := ""
	if s.selfRole == "mother" {
		doctorID, motherID = s.peerID, s.selfID
		motherName = s.selfName
	}
	payload := models.SendMessagePayload{
		RoomID: s.roomID.String(),
		Message: models.RawMessage{
			SenderID:   s.selfID,
			Sender:     s.selfRole,
			MotherName: motherName,
			Message:    body,
			CreatedAt:  time.Now(),
		},
		SenderID:   s.selfID,
		SenderRole: s.selfRole,
		DoctorID:   doctorID,
		MotherID:   motherID,
	}
	if err := s.transport.Emit(models.EventSendMessage, payload); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Typing emits an outbound typing signal, throttled to one per interval.
func (s *Session) Typing() error {
	switch s.State() {
	case Joined, Joining:
	default:
		return ErrNotJoined
	}
	if !s.throttle.Allow() {
		return nil
	}
	return s.transport.Emit(models.EventTyping, models.TypingPayload{
		RoomID:      s.roomID.String(),
		DisplayName: s.selfName,
	})
}

// Stream exposes the room's message log.
func (s *Session) Stream() *stream.Stream { return s.stream }

// TypingPeer returns the display name of the peer currently typing, if any.
func (s *Session) TypingPeer() string { return s.typing.Active() }

// PeerOnline reports the peer's presence as currently known.
func (s *Session) PeerOnline() bool { return s.presence.IsOnline(s.peerID) }

// Room returns the canonical room id.
func (s *Session) Room() room.ID { return s.roomID }

// Peer returns the peer participant id.
func (s *Session) Peer() string { return s.peerID }

// State returns the current lifecycle phase.
func (s *Session) State() State { return State(s.state.Load()) }

// Close leaves the room, withdraws presence, detaches the room subscription
// and cancels the typing expiry timer. Idempotent; a new session may bind the
// same transport afterwards.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.state.Store(int32(Leaving))
		if err := s.transport.Emit(models.EventLeaveRoom, models.LeaveRoomPayload{RoomID: s.roomID.String()}); err != nil {
			log.Printf("session %s: leave room: %v", s.roomID, err)
		}
		if err := s.transport.Emit(models.EventUserOffline, models.PresencePayload{UserID: s.selfID}); err != nil {
			log.Printf("session %s: withdraw presence: %v", s.roomID, err)
		}
		s.unsub()
		s.typing.Stop()
		close(s.done)
		s.state.Store(int32(Disconnected))
	})
	return nil
}
