package room

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Lobby owns the live sessions. Its lock only guards the lookup maps;
// anything touching a single room's state goes through that room's own
// run loop, so lobby-wide reads never contend with game play.
type Lobby struct {
	cfg  Config
	deps Deps

	lock     sync.RWMutex
	sessions map[string]*Session
	byCode   map[string]*Session
}

// NewLobby returns an empty lobby
func NewLobby(cfg Config, deps Deps) *Lobby {
	return &Lobby{
		cfg:      cfg,
		deps:     deps,
		sessions: make(map[string]*Session),
		byCode:   make(map[string]*Session),
	}
}

// CreateSession creates and registers a new waiting session
func (l *Lobby) CreateSession(opts CreateOptions) (*Session, error) {
	session, err := NewSession(opts, l.cfg, l.deps, l.remove)
	if err != nil {
		return nil, err
	}

	l.lock.Lock()
	l.sessions[session.ID] = session
	l.byCode[session.JoinCode] = session
	l.lock.Unlock()

	logrus.WithFields(logrus.Fields{
		"sessionId": session.ID,
		"name":      session.Name,
		"stake":     session.Stake,
	}).Info("session created")

	return session, nil
}

func (l *Lobby) remove(sessionID string) {
	l.lock.Lock()
	if session, found := l.sessions[sessionID]; found {
		delete(l.byCode, session.JoinCode)
		delete(l.sessions, sessionID)
	}
	l.lock.Unlock()

	logrus.WithField("sessionId", sessionID).Info("session disposed")
}

// Session returns the session with the given ID
func (l *Lobby) Session(id string) (*Session, bool) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	session, found := l.sessions[id]
	return session, found
}

// SessionByCode returns the session with the given join code
func (l *Lobby) SessionByCode(code string) (*Session, bool) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	session, found := l.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return session, found
}

// List returns the public sessions, newest first
func (l *Lobby) List() []Info {
	l.lock.RLock()
	sessions := make([]*Session, 0, len(l.sessions))
	for _, session := range l.sessions {
		if !session.Private {
			sessions = append(sessions, session)
		}
	}
	l.lock.RUnlock()

	infos := make([]Info, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, session.Info())
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Created.After(infos[j].Created)
	})

	return infos
}

// JoinSession refreshes the player's balance and seats them in the room.
// The balance read is I/O, so it happens here, before the room's run loop
// is ever involved.
func (l *Lobby) JoinSession(ctx context.Context, client *Client, sessionID string) error {
	session, found := l.Session(sessionID)
	if !found {
		return NewError(ErrorNotFound, "room %s does not exist", sessionID)
	}

	if err := l.refreshBalance(ctx, client); err != nil {
		return err
	}

	return session.Join(client)
}

// WatchSession attaches the client to the room as a spectator
func (l *Lobby) WatchSession(client *Client, sessionID string) error {
	session, found := l.Session(sessionID)
	if !found {
		return NewError(ErrorNotFound, "room %s does not exist", sessionID)
	}

	return session.Watch(client)
}

func (l *Lobby) refreshBalance(ctx context.Context, client *Client) error {
	player, err := l.deps.Accounts.Player(ctx, client.Player().ID)
	if err != nil {
		return err
	}

	client.Player().Balance = player.Balance
	return nil
}
