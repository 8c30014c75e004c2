package room

import (
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"matatu-server/pkg/account"
)

// Client is one live connection, bound to an authenticated player
type Client struct {
	// Conn is the underlying websocket connection
	Conn *websocket.Conn

	// Close is a channel for closing the client with a reason
	Close chan string

	// CloseError contains the reason why the connection was closed
	CloseError error

	send chan interface{}

	player    *account.Player
	session   *Session
	spectator bool
}

// NewClient returns a new client object
func NewClient(conn *websocket.Conn, player *account.Player) *Client {
	return &Client{
		Conn:   conn,
		Close:  make(chan string),
		send:   make(chan interface{}, 256),
		player: player,
	}
}

// Player returns the authenticated player behind this connection
func (c *Client) Player() *account.Player {
	return c.player
}

// Session returns the session this client is attached to, or nil
func (c *Client) Session() *Session {
	return c.session
}

// IsSpectator returns true if the client watches without a seat
func (c *Client) IsSpectator() bool {
	return c.spectator
}

// Send queues a message for the client. It never blocks; a client that
// cannot keep up loses messages rather than stalling the room.
func (c *Client) Send(msg interface{}) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// SendChan returns a read-only channel the write loop drains
func (c *Client) SendChan() <-chan interface{} {
	return c.send
}

// String returns a traceable identifier for the player and session
func (c *Client) String() string {
	session := "-"
	if c.session != nil {
		session = c.session.ID
	}

	return fmt.Sprintf("%s:%s", c.player.Username, session)
}

// ReceivedMessage is called when the server receives a message from this client
func (c *Client) ReceivedMessage(msg *PayloadIn) {
	if c.session == nil {
		logrus.WithField("msg", msg).Warn("received message, but client is not in a session")
		c.Send(newErrorEvent(msg.Context, NewError(ErrorNotFound, "you are not in a room")))
		return
	}

	c.session.ReceivedMessage(c, msg)
}
