package matchmaker

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"matatu-server/pkg/account"
)

// BucketAny opts a player into matches with any skill tier at the stake
const BucketAny = "any"

// sweepInterval is how often expired tickets are reaped
const sweepInterval = time.Second

// ErrAlreadyQueued is returned when a player enqueues twice
var ErrAlreadyQueued = errors.New("matchmaker: player is already queued")

// Ticket is one player waiting for a match
type Ticket struct {
	Player   *account.Player
	Stake    int
	Bucket   string
	Enqueued time.Time
}

// Match is a formed pairing, ready to be seated
type Match struct {
	Players []*account.Player
	Stake   int
}

// MatchHandler receives formed matches. It runs on its own goroutine and
// may block on I/O, such as creating the room.
type MatchHandler func(match Match)

// ExpiryHandler receives tickets that timed out unmatched
type ExpiryHandler func(ticket Ticket)

// Matchmaker pairs queued players by stake and skill bucket. Pairing is
// atomic under the queue lock, so a ticket is claimed by exactly one
// match no matter how many enqueues race.
type Matchmaker struct {
	timeout  time.Duration
	onMatch  MatchHandler
	onExpire ExpiryHandler

	lock     sync.Mutex
	queues   map[int][]*Ticket
	byPlayer map[int64]*Ticket

	done     chan bool
	doneOnce sync.Once
}

// New returns a matchmaker and starts its expiry sweeper
func New(timeout time.Duration, onMatch MatchHandler, onExpire ExpiryHandler) *Matchmaker {
	m := &Matchmaker{
		timeout:  timeout,
		onMatch:  onMatch,
		onExpire: onExpire,
		queues:   make(map[int][]*Ticket),
		byPlayer: make(map[int64]*Ticket),
		done:     make(chan bool),
	}

	go m.sweepLoop()
	return m
}

// Stop terminates the expiry sweeper
func (m *Matchmaker) Stop() {
	m.doneOnce.Do(func() {
		close(m.done)
	})
}

// Enqueue adds the player to the queue for the given stake and bucket.
// If a compatible opponent is already waiting, both tickets are claimed
// and the match handler is invoked.
func (m *Matchmaker) Enqueue(player *account.Player, stake int, bucket string) error {
	if bucket == "" {
		bucket = BucketAny
	}

	ticket := &Ticket{
		Player:   player,
		Stake:    stake,
		Bucket:   bucket,
		Enqueued: time.Now(),
	}

	m.lock.Lock()
	if _, queued := m.byPlayer[player.ID]; queued {
		m.lock.Unlock()
		return ErrAlreadyQueued
	}

	partner := m.claimPartner(stake, bucket)
	if partner == nil {
		m.queues[stake] = append(m.queues[stake], ticket)
		m.byPlayer[player.ID] = ticket
		m.lock.Unlock()

		logrus.WithFields(logrus.Fields{
			"playerId": player.ID,
			"stake":    stake,
			"bucket":   bucket,
		}).Debug("player queued")
		return nil
	}
	m.lock.Unlock()

	logrus.WithFields(logrus.Fields{
		"playerId": player.ID,
		"opponent": partner.Player.ID,
		"stake":    stake,
	}).Info("match formed")

	go m.onMatch(Match{
		Players: []*account.Player{partner.Player, player},
		Stake:   stake,
	})

	return nil
}

// claimPartner removes and returns the longest-waiting compatible ticket
// NOTE: caller must hold the lock
func (m *Matchmaker) claimPartner(stake int, bucket string) *Ticket {
	queue := m.queues[stake]
	for i, ticket := range queue {
		if !bucketsCompatible(ticket.Bucket, bucket) {
			continue
		}

		m.queues[stake] = append(queue[:i], queue[i+1:]...)
		delete(m.byPlayer, ticket.Player.ID)
		return ticket
	}

	return nil
}

func bucketsCompatible(a, b string) bool {
	return a == b || a == BucketAny || b == BucketAny
}

// Withdraw removes the player's ticket. Returns false if the player was
// not queued, which includes having just been matched.
func (m *Matchmaker) Withdraw(playerID int64) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	ticket, queued := m.byPlayer[playerID]
	if !queued {
		return false
	}

	m.removeTicket(ticket)
	return true
}

// NOTE: caller must hold the lock
func (m *Matchmaker) removeTicket(ticket *Ticket) {
	queue := m.queues[ticket.Stake]
	for i, t := range queue {
		if t == ticket {
			m.queues[ticket.Stake] = append(queue[:i], queue[i+1:]...)
			break
		}
	}

	delete(m.byPlayer, ticket.Player.ID)
}

// Queued returns how many players are waiting at the given stake
func (m *Matchmaker) Queued(stake int) int {
	m.lock.Lock()
	defer m.lock.Unlock()

	return len(m.queues[stake])
}

// IsQueued returns true if the player has an outstanding ticket
func (m *Matchmaker) IsQueued(playerID int64) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	_, queued := m.byPlayer[playerID]
	return queued
}

func (m *Matchmaker) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep(time.Now())
		case <-m.done:
			return
		}
	}
}

func (m *Matchmaker) sweep(now time.Time) {
	m.lock.Lock()
	var expired []*Ticket
	for _, ticket := range m.byPlayer {
		if now.Sub(ticket.Enqueued) >= m.timeout {
			expired = append(expired, ticket)
		}
	}

	for _, ticket := range expired {
		m.removeTicket(ticket)
	}
	m.lock.Unlock()

	for _, ticket := range expired {
		logrus.WithFields(logrus.Fields{
			"playerId": ticket.Player.ID,
			"stake":    ticket.Stake,
		}).Info("matchmaking ticket expired")

		if m.onExpire != nil {
			go m.onExpire(*ticket)
		}
	}
}
