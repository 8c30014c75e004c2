package room

import "sync"

// Registry tracks every live connection by player, independent of rooms.
// It backs presence checks and lets out-of-room systems, like the
// achievement pipeline, push events to a specific player wherever they
// are connected.
type Registry struct {
	lock    sync.RWMutex
	clients map[int64]map[*Client]bool
}

// NewRegistry returns an empty connection registry
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[int64]map[*Client]bool),
	}
}

// Register adds a connection for its player
func (r *Registry) Register(client *Client) {
	playerID := client.Player().ID

	r.lock.Lock()
	defer r.lock.Unlock()

	if r.clients[playerID] == nil {
		r.clients[playerID] = make(map[*Client]bool)
	}

	r.clients[playerID][client] = true
}

// Unregister removes a connection. Returns true if it was the player's
// last one.
func (r *Registry) Unregister(client *Client) bool {
	playerID := client.Player().ID

	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.clients[playerID], client)
	if len(r.clients[playerID]) == 0 {
		delete(r.clients, playerID)
		return true
	}

	return false
}

// Online returns true if the player has at least one live connection
func (r *Registry) Online(playerID int64) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return len(r.clients[playerID]) > 0
}

// Push queues the event on every one of the player's connections and
// returns how many received it
func (r *Registry) Push(playerID int64, event *Event) int {
	r.lock.RLock()
	clients := make([]*Client, 0, len(r.clients[playerID]))
	for client := range r.clients[playerID] {
		clients = append(clients, client)
	}
	r.lock.RUnlock()

	sent := 0
	for _, client := range clients {
		if client.Send(event) {
			sent++
		}
	}

	return sent
}
