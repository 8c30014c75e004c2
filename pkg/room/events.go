package room

import (
	"matatu-server/pkg/deck"
	"matatu-server/pkg/matatu"
	"time"
)

// ActionKind is a client-initiated action. The set is closed; anything
// else is rejected at the boundary before it reaches the engine.
type ActionKind string

// action kinds
const (
	ActionPlayCard    ActionKind = "playCard"
	ActionDrawCard    ActionKind = "drawCard"
	ActionDeclareLast ActionKind = "declareLastCard"
	ActionChat        ActionKind = "chat"
	ActionLeave       ActionKind = "leave"
)

// EventKind is a server-initiated event
type EventKind string

// event kinds
const (
	EventPlayerJoined      EventKind = "playerJoined"
	EventPlayerLeft        EventKind = "playerLeft"
	EventGameStarting      EventKind = "gameStarting"
	EventGameStarted       EventKind = "gameStarted"
	EventGameState         EventKind = "gameState"
	EventCardPlayed        EventKind = "cardPlayed"
	EventCardDrawn         EventKind = "cardDrawn"
	EventTurnChanged       EventKind = "turnChanged"
	EventLastCardDeclared  EventKind = "lastCardDeclared"
	EventGameOver          EventKind = "gameOver"
	EventChatMessage       EventKind = "chatMessage"
	EventSpectatorUpdate   EventKind = "spectatorUpdate"
	EventPlayerDisconnect  EventKind = "playerDisconnected"
	EventPlayerReconnect   EventKind = "playerReconnected"
	EventMatchFound        EventKind = "matchFound"
	EventQueueUpdate       EventKind = "queueUpdate"
	EventAchievementNotice EventKind = "achievementNotice"
	EventError             EventKind = "error"
	EventOK                EventKind = "ok"
)

// PayloadIn is the typed client message. Fields beyond Action are only
// meaningful for the action kinds that declare them.
type PayloadIn struct {
	Action       ActionKind `json:"action"`
	CardIndex    *int       `json:"cardIndex,omitempty"`
	DeclaredSuit deck.Suit  `json:"declaredSuit,omitempty"`
	Message      string     `json:"message,omitempty"`

	// Context is passed back on any response to this message
	Context string `json:"context"`
}

// Event is the envelope for every server-to-client message
type Event struct {
	Kind    EventKind   `json:"kind"`
	Data    interface{} `json:"data,omitempty"`
	Context string      `json:"context,omitempty"`
}

// OK returns a generic success event
func OK(ctx string) *Event {
	return &Event{
		Kind:    EventOK,
		Context: ctx,
	}
}

func newErrorEvent(ctx string, err error) *Event {
	return &Event{
		Kind:    EventError,
		Data:    asRoomError(err),
		Context: ctx,
	}
}

// playerJoinedData announces a new seat
type playerJoinedData struct {
	PlayerID int64  `json:"playerId"`
	Username string `json:"username"`
	Players  int    `json:"players"`
	Capacity int    `json:"capacity"`
}

// playerLeftData announces a vacated seat
type playerLeftData struct {
	PlayerID int64  `json:"playerId"`
	Username string `json:"username"`
	Reason   string `json:"reason"`
	Players  int    `json:"players"`
}

// cardPlayedData carries an accepted play
type cardPlayedData struct {
	PlayerID int64              `json:"playerId"`
	Username string             `json:"username"`
	Result   *matatu.PlayResult `json:"result"`
}

// cardDrawnData announces a draw without revealing the card
type cardDrawnData struct {
	PlayerID int64  `json:"playerId"`
	Username string `json:"username"`
	Passed   bool   `json:"passed"`
	NextTurn int64  `json:"nextTurn"`
}

// turnChangedData announces whose turn it is
type turnChangedData struct {
	PlayerID  int64 `json:"playerId"`
	Direction int   `json:"direction"`
}

// gameStartingData carries the auto-start countdown
type gameStartingData struct {
	StartsAt time.Time `json:"startsAt"`
}

// spectatorUpdateData carries the spectator headcount
type spectatorUpdateData struct {
	Spectators int `json:"spectators"`
}
