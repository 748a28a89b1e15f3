package model

import "encoding/json"

// Inbound event names.
const (
	EventChatConnect = "chatConnect"
	EventSendMessage = "sendMessage"
	EventPlayerJoin  = "player-join"
	EventPlayerMove  = "player-move"
	EventJoinRoom    = "joinRoom"
	EventOffer       = "offer"
	EventAnswer      = "answer"
	EventCandidate   = "candidate"
)

// Outbound event names. Offer/answer/candidate are relayed back out
// under their inbound names.
const (
	EventChatMembers      = "chatMembers"
	EventReceiveMessage   = "receiveMessage"
	EventPlayersSync      = "players-sync"
	EventPlayerJoined     = "player-joined"
	EventPlayerMoved      = "player-moved"
	EventPlayerLeft       = "player-left"
	EventNewUser          = "newUser"
	EventUserDisconnected = "userDisconnected"
)

// DirectionFront is the facing assigned to every newly spawned player.
const DirectionFront = "front"

// Event is the wire envelope used in both directions. Data stays raw
// until a handler picks a concrete payload type from the event name.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// NewEvent marshals payload into an outbound envelope.
func NewEvent(name string, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: name, Data: b}, nil
}

// Player is one presence-room avatar. Field names follow the client
// protocol and must not change.
type Player struct {
	ID        string  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Direction string  `json:"direction"`
	Name      string  `json:"name"`
	Room      string  `json:"room"`
}

type ChatConnect struct {
	Name    string `json:"name"`
	Profile string `json:"profile"`
	SpaceID string `json:"spaceId"`
}

type ChatMessage struct {
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	RoomID    string `json:"roomId"`
	Profile   string `json:"profile"`
}

// PlayerJoin carries a join request. X and Y are optional; zero means
// "give me a spawn point", matching the javascript client's
// `data.x || random` semantics.
type PlayerJoin struct {
	Room string  `json:"room"`
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type PlayerMove struct {
	Room      string  `json:"room"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Direction string  `json:"direction"`
}

type VideoJoin struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
}

// PeerInfo announces a video-room participant.
type PeerInfo struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// SignalIn is the inbound shape of offer/answer/candidate events. SDP
// and Candidate are opaque to the hub and never parsed. UserID is
// whatever the client claims and is discarded by the relay.
type SignalIn struct {
	SDP       json.RawMessage `json:"sdp"`
	Candidate json.RawMessage `json:"candidate"`
	RoomID    string          `json:"roomId"`
	UserID    string          `json:"userId"`
	UserName  string          `json:"userName"`
}

// SignalOut is the relayed shape. Exactly one of Offer/Answer/Candidate
// is set, and UserID always carries the sender's real connection id.
type SignalOut struct {
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	UserID    string          `json:"userId"`
	UserName  string          `json:"userName"`
}

// Wire is the channel pair bridging one websocket connection and the
// hub: RX carries decoded inbound events, TX outbound ones.
type Wire struct {
	RX chan Event
	TX chan Event
}

func NewWire() Wire {
	return Wire{
		RX: make(chan Event),
		TX: make(chan Event),
	}
}
