package hub

import (
	"context"
	"encoding/json"

	"github.com/gurshaan17/2d-metaverse/backend/model"
)

// chatConnect declares chat interest in a space: the connection joins
// the space's broadcast group and the other members get the current
// roster, derived from presence state for the same identifier.
func (h *Hub) chatConnect(ctx context.Context, sess *Session, ev model.Event) {
	var req model.ChatConnect
	if err := json.Unmarshal(ev.Data, &req); err != nil || req.SpaceID == "" {
		h.logger.Debug().Str("connID", sess.ConnID).Msg("malformed chatConnect dropped")
		return
	}

	h.sw.Join(req.SpaceID, sess.ConnID, sess.Wire)
	h.broadcast(ctx, req.SpaceID, sess.ConnID, model.EventChatMembers, h.presence.Snapshot(req.SpaceID))

	h.logger.Debug().
		Str("connID", sess.ConnID).
		Str("spaceID", req.SpaceID).
		Str("name", req.Name).
		Msg("chat connected")
}

// sendMessage relays a chat message verbatim to the rest of the room's
// broadcast group. The hub does not persist, validate or rate-limit
// content.
func (h *Hub) sendMessage(ctx context.Context, sess *Session, ev model.Event) {
	var msg model.ChatMessage
	if err := json.Unmarshal(ev.Data, &msg); err != nil || msg.RoomID == "" {
		h.logger.Debug().Str("connID", sess.ConnID).Msg("malformed sendMessage dropped")
		return
	}

	h.sw.Broadcast(ctx, msg.RoomID, sess.ConnID, model.Event{
		Name: model.EventReceiveMessage,
		Data: ev.Data,
	})
}

// playerJoin moves the connection into a presence room. A connection
// holds at most one presence membership: joining while already joined
// runs the full leave sequence against the former room first. The
// joiner gets a complete roster snapshot, everyone else gets just the
// new avatar.
func (h *Hub) playerJoin(ctx context.Context, sess *Session, ev model.Event) {
	var req model.PlayerJoin
	if err := json.Unmarshal(ev.Data, &req); err != nil || req.Room == "" {
		h.logger.Debug().Str("connID", sess.ConnID).Msg("malformed player-join dropped")
		return
	}

	if sess.presenceRoom != "" {
		h.leavePresence(ctx, sess)
	}

	player := model.Player{
		ID:        sess.ConnID,
		X:         req.X,
		Y:         req.Y,
		Direction: model.DirectionFront,
		Name:      req.Name,
		Room:      req.Room,
	}
	if player.X == 0 {
		player.X = h.spawnCoord()
	}
	if player.Y == 0 {
		player.Y = h.spawnCoord()
	}
	if player.Name == "" {
		player.Name = "Player " + shortID(sess.ConnID)
	}

	sess.presenceRoom = req.Room
	h.sw.Join(req.Room, sess.ConnID, sess.Wire)
	h.presence.Put(req.Room, sess.ConnID, player)

	sync, err := model.NewEvent(model.EventPlayersSync, h.presence.Snapshot(req.Room))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal players-sync")
		return
	}
	h.emit(ctx, sess, sync)
	h.broadcast(ctx, req.Room, sess.ConnID, model.EventPlayerJoined, player)

	h.logger.Debug().
		Str("connID", sess.ConnID).
		Str("room", req.Room).
		Str("name", player.Name).
		Msg("player joined room")
}

// playerMove overwrites the sender's avatar position and fans the
// updated avatar out to the rest of the room. Updates naming a room or
// participant that no longer exists are dropped: movement frames
// racing a leave are expected.
func (h *Hub) playerMove(ctx context.Context, sess *Session, ev model.Event) {
	var req model.PlayerMove
	if err := json.Unmarshal(ev.Data, &req); err != nil || req.Room == "" {
		h.logger.Debug().Str("connID", sess.ConnID).Msg("malformed player-move dropped")
		return
	}

	player, ok := h.presence.Update(req.Room, sess.ConnID, func(p *model.Player) {
		p.X = req.X
		p.Y = req.Y
		p.Direction = req.Direction
	})
	if !ok {
		return
	}
	h.broadcast(ctx, req.Room, sess.ConnID, model.EventPlayerMoved, player)
}

// leavePresence runs the presence-room leave sequence. Ordering is
// load-bearing for clients: the "left" notification carries the
// departing id while the avatar still exists, and the refreshed roster
// follows the removal.
func (h *Hub) leavePresence(ctx context.Context, sess *Session) {
	room := sess.presenceRoom

	h.broadcast(ctx, room, sess.ConnID, model.EventPlayerLeft, sess.ConnID)
	h.presence.Remove(room, sess.ConnID)
	h.broadcast(ctx, room, sess.ConnID, model.EventChatMembers, h.presence.Snapshot(room))
	h.sw.Leave(room, sess.ConnID)
	sess.presenceRoom = ""

	h.logger.Debug().
		Str("connID", sess.ConnID).
		Str("room", room).
		Msg("player left room")
}

func shortID(id string) string {
	if len(id) > 4 {
		return id[:4]
	}
	return id
}
