// Package hub is the event gateway: it owns connection sessions,
// dispatches inbound events to the presence, chat and video handlers,
// and runs the disconnect cleanup protocol.
package hub

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/gurshaan17/2d-metaverse/backend/model"
	"github.com/gurshaan17/2d-metaverse/backend/registry"
	"github.com/rs/zerolog"
)

const (
	defaultSpawnRange = 1000

	defaultEmitTimeout = time.Second
)

type (
	// Broadcaster is the transport fan-out surface the gateway drives.
	Broadcaster interface {
		Join(group, connID string, wire model.Wire)
		Leave(group, connID string)
		Drop(connID string)
		Broadcast(ctx context.Context, group, except string, ev model.Event) bool
	}

	// Session binds one live connection to its at-most-one presence
	// and at-most-one video room membership. Sessions are owned by the
	// gateway and only ever touched from their own connection's
	// dispatch path.
	Session struct {
		ConnID string
		Wire   model.Wire

		presenceRoom string
		videoRoom    string
	}

	Hub struct {
		logger   zerolog.Logger
		sw       Broadcaster
		presence *registry.Rooms[model.Player]
		video    *registry.Rooms[string]

		spawnRange float64
		randMx     sync.Mutex
		rand       *rand.Rand
	}

	Config struct {
		Logger *zerolog.Logger
		Switch Broadcaster

		// SpawnRange bounds the random spawn point handed to joiners
		// that do not supply coordinates: x,y ~ U[0, SpawnRange).
		SpawnRange float64

		// Rand allows tests to inject a seeded source. Optional.
		Rand *rand.Rand
	}
)

func New(cfg Config) *Hub {
	h := &Hub{
		logger:     cfg.Logger.With().Str("component", "hub").Logger(),
		sw:         cfg.Switch,
		presence:   registry.New[model.Player](),
		video:      registry.New[string](),
		spawnRange: cfg.SpawnRange,
		rand:       cfg.Rand,
	}
	if h.spawnRange <= 0 {
		h.spawnRange = defaultSpawnRange
	}
	if h.rand == nil {
		h.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return h
}

// Connect creates the session for a freshly upgraded connection. Both
// memberships start unset.
func (h *Hub) Connect(connID string, wire model.Wire) *Session {
	h.logger.Debug().Str("connID", connID).Msg("client connected")
	return &Session{
		ConnID: connID,
		Wire:   wire,
	}
}

// Dispatch routes one inbound event to its handler. Unknown event
// names and undecodable payloads are dropped: peers on slightly
// different protocol versions must not be able to crash the hub or
// earn an error reply.
func (h *Hub) Dispatch(ctx context.Context, sess *Session, ev model.Event) {
	switch ev.Name {
	case model.EventChatConnect:
		h.chatConnect(ctx, sess, ev)
	case model.EventSendMessage:
		h.sendMessage(ctx, sess, ev)
	case model.EventPlayerJoin:
		h.playerJoin(ctx, sess, ev)
	case model.EventPlayerMove:
		h.playerMove(ctx, sess, ev)
	case model.EventJoinRoom:
		h.videoJoin(ctx, sess, ev)
	case model.EventOffer, model.EventAnswer, model.EventCandidate:
		h.relaySignal(ctx, sess, ev)
	default:
		h.logger.Debug().
			Str("connID", sess.ConnID).
			Str("event", ev.Name).
			Msg("unknown event dropped")
	}
}

// Disconnect runs the cleanup protocol exactly once per connection:
// presence first (notify-left, remove, refreshed roster), then video
// (remove, notify-disconnected), then the remaining group memberships.
// The two room cleanups touch disjoint keyspaces, so their relative
// order only matters for log readability.
func (h *Hub) Disconnect(ctx context.Context, sess *Session) {
	if sess.presenceRoom != "" {
		h.leavePresence(ctx, sess)
	}
	if sess.videoRoom != "" {
		h.leaveVideo(ctx, sess)
	}
	h.sw.Drop(sess.ConnID)
	h.logger.Debug().Str("connID", sess.ConnID).Msg("client disconnected")
}

func (h *Hub) spawnCoord() float64 {
	h.randMx.Lock()
	defer h.randMx.Unlock()
	return h.rand.Float64() * h.spawnRange
}

// emit sends an event to the session's own connection.
func (h *Hub) emit(ctx context.Context, sess *Session, ev model.Event) {
	t := time.NewTimer(defaultEmitTimeout)
	defer t.Stop()
	select {
	case sess.Wire.TX <- ev:
	case <-t.C:
		h.logger.Error().
			Str("connID", sess.ConnID).
			Str("event", ev.Name).
			Msg("own endpoint is dead")
	case <-ctx.Done():
	}
}

// broadcast marshals payload and fans it out to the group, skipping
// the sender.
func (h *Hub) broadcast(ctx context.Context, group, except, name string, payload any) {
	ev, err := model.NewEvent(name, payload)
	if err != nil {
		h.logger.Error().Err(err).
			Str("event", name).
			Msg("failed to marshal outbound event")
		return
	}
	h.sw.Broadcast(ctx, group, except, ev)
}
