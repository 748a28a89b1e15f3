package hub

import (
	"context"
	"encoding/json"

	"github.com/gurshaan17/2d-metaverse/backend/model"
)

// videoJoin adds the connection to a video room and announces it to
// the existing members; each of them reacts by initiating an offer
// toward the newcomer. Video membership is at-most-one per connection,
// so a second join releases the previous room first.
func (h *Hub) videoJoin(ctx context.Context, sess *Session, ev model.Event) {
	var req model.VideoJoin
	if err := json.Unmarshal(ev.Data, &req); err != nil || req.RoomID == "" {
		h.logger.Debug().Str("connID", sess.ConnID).Msg("malformed joinRoom dropped")
		return
	}

	if sess.videoRoom != "" {
		h.leaveVideo(ctx, sess)
	}

	sess.videoRoom = req.RoomID
	h.sw.Join(req.RoomID, sess.ConnID, sess.Wire)
	h.video.Put(req.RoomID, sess.ConnID, req.UserName)

	h.broadcast(ctx, req.RoomID, sess.ConnID, model.EventNewUser, model.PeerInfo{
		UserID:   sess.ConnID,
		UserName: req.UserName,
	})

	h.logger.Debug().
		Str("connID", sess.ConnID).
		Str("roomID", req.RoomID).
		Str("userName", req.UserName).
		Msg("user joined video room")
}

// relaySignal forwards offer/answer/candidate payloads to the rest of
// the room. The payload is opaque and passes through untouched; the
// client-claimed userId is discarded and rewritten with the sender's
// transport-level connection identity.
func (h *Hub) relaySignal(ctx context.Context, sess *Session, ev model.Event) {
	var sig model.SignalIn
	if err := json.Unmarshal(ev.Data, &sig); err != nil || sig.RoomID == "" {
		h.logger.Debug().
			Str("connID", sess.ConnID).
			Str("event", ev.Name).
			Msg("malformed signal dropped")
		return
	}

	out := model.SignalOut{
		UserID:   sess.ConnID,
		UserName: sig.UserName,
	}
	switch ev.Name {
	case model.EventOffer:
		out.Offer = sig.SDP
	case model.EventAnswer:
		out.Answer = sig.SDP
	case model.EventCandidate:
		out.Candidate = sig.Candidate
	}
	if out.Offer == nil && out.Answer == nil && out.Candidate == nil {
		h.logger.Debug().
			Str("connID", sess.ConnID).
			Str("event", ev.Name).
			Msg("signal without payload dropped")
		return
	}

	h.broadcast(ctx, sig.RoomID, sess.ConnID, ev.Name, out)
}

// leaveVideo removes the video membership and tells the remaining
// members to tear down their peer connection to the departed id.
func (h *Hub) leaveVideo(ctx context.Context, sess *Session) {
	room := sess.videoRoom

	h.video.Remove(room, sess.ConnID)
	h.broadcast(ctx, room, sess.ConnID, model.EventUserDisconnected, sess.ConnID)
	h.sw.Leave(room, sess.ConnID)
	sess.videoRoom = ""

	h.logger.Debug().
		Str("connID", sess.ConnID).
		Str("roomID", room).
		Msg("user left video room")
}
