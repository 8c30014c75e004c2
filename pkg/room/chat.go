package room

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const chatLogLimit = 50
const chatMessageLimit = 200

// ChatMessage is a single chat line
type ChatMessage struct {
	ID       string `json:"id"`
	PlayerID int64  `json:"playerId,omitempty"`
	Username string `json:"username"`
	Message  string `json:"message"`
	// Type is "player" or "system"
	Type string    `json:"type"`
	Time time.Time `json:"time"`
}

// chatLog is a bounded ring of the most recent messages.
// Not safe for concurrent use; the session run loop owns it.
type chatLog struct {
	messages []*ChatMessage
}

// add appends a message, dropping the oldest past the limit
func (c *chatLog) add(msg *ChatMessage) {
	m := append(c.messages, msg)
	if count := len(m); count > chatLogLimit {
		m = m[count-chatLogLimit:]
	}

	c.messages = m
}

// recent returns up to n of the newest messages, oldest first
func (c *chatLog) recent(n int) []*ChatMessage {
	if len(c.messages) <= n {
		msgs := make([]*ChatMessage, len(c.messages))
		copy(msgs, c.messages)
		return msgs
	}

	msgs := make([]*ChatMessage, n)
	copy(msgs, c.messages[len(c.messages)-n:])
	return msgs
}

func newPlayerChatMessage(playerID int64, username, message string) (*ChatMessage, bool) {
	message = sanitizeChat(message)
	if message == "" {
		return nil, false
	}

	return &ChatMessage{
		ID:       uuid.New().String(),
		PlayerID: playerID,
		Username: username,
		Message:  message,
		Type:     "player",
		Time:     time.Now(),
	}, true
}

func newSystemChatMessage(message string) *ChatMessage {
	return &ChatMessage{
		ID:       uuid.New().String(),
		Username: "system",
		Message:  message,
		Type:     "system",
		Time:     time.Now(),
	}
}

func sanitizeChat(message string) string {
	message = strings.NewReplacer("<", "", ">", "").Replace(message)
	message = strings.TrimSpace(message)
	if len(message) > chatMessageLimit {
		// back up to a rune boundary so the cut never splits a character
		cut := chatMessageLimit
		for cut > 0 && !utf8.RuneStart(message[cut]) {
			cut--
		}

		message = message[:cut]
	}

	return message
}
