package matchmaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"matatu-server/pkg/account"
)

func testPlayer(id int64) *account.Player {
	return &account.Player{ID: id, Balance: 1000}
}

func newTestMatchmaker(t *testing.T) (*Matchmaker, chan Match, chan Ticket) {
	t.Helper()

	matches := make(chan Match, 4)
	expired := make(chan Ticket, 4)

	m := New(time.Minute, func(match Match) {
		matches <- match
	}, func(ticket Ticket) {
		expired <- ticket
	})

	t.Cleanup(m.Stop)
	return m, matches, expired
}

func receiveMatch(t *testing.T, matches chan Match) Match {
	t.Helper()

	select {
	case match := <-matches:
		return match
	case <-time.After(time.Second):
		t.Fatal("no match formed")
		return Match{}
	}
}

func TestMatchmaker_pairsAtSameStake(t *testing.T) {
	m, matches, _ := newTestMatchmaker(t)

	assert.NoError(t, m.Enqueue(testPlayer(1), 100, "novice"))
	assert.Equal(t, 1, m.Queued(100))

	assert.NoError(t, m.Enqueue(testPlayer(2), 100, "novice"))

	match := receiveMatch(t, matches)
	assert.Equal(t, 100, match.Stake)
	assert.Equal(t, 2, len(match.Players))
	assert.Equal(t, int64(1), match.Players[0].ID)
	assert.Equal(t, int64(2), match.Players[1].ID)

	assert.Equal(t, 0, m.Queued(100))
	assert.False(t, m.IsQueued(1))
	assert.False(t, m.IsQueued(2))
}

func TestMatchmaker_oddPlayerStaysQueued(t *testing.T) {
	m, matches, _ := newTestMatchmaker(t)

	assert.NoError(t, m.Enqueue(testPlayer(1), 100, "novice"))
	assert.NoError(t, m.Enqueue(testPlayer(2), 100, "novice"))
	assert.NoError(t, m.Enqueue(testPlayer(3), 100, "novice"))

	receiveMatch(t, matches)

	// exactly one pair formed; the third player keeps waiting
	assert.Equal(t, 1, m.Queued(100))
	assert.True(t, m.IsQueued(3))

	select {
	case <-matches:
		t.Fatal("unexpected second match")
	case <-time.After(time.Millisecond * 50):
	}
}

func TestMatchmaker_stakesDoNotMix(t *testing.T) {
	m, matches, _ := newTestMatchmaker(t)

	assert.NoError(t, m.Enqueue(testPlayer(1), 100, "novice"))
	assert.NoError(t, m.Enqueue(testPlayer(2), 200, "novice"))

	select {
	case <-matches:
		t.Fatal("players at different stakes must not match")
	case <-time.After(time.Millisecond * 50):
	}

	assert.Equal(t, 1, m.Queued(100))
	assert.Equal(t, 1, m.Queued(200))
}

func TestMatchmaker_buckets(t *testing.T) {
	m, matches, _ := newTestMatchmaker(t)

	assert.NoError(t, m.Enqueue(testPlayer(1), 100, "novice"))
	assert.NoError(t, m.Enqueue(testPlayer(2), 100, "expert"))

	select {
	case <-matches:
		t.Fatal("different buckets must not match")
	case <-time.After(time.Millisecond * 50):
	}

	// "any" takes whoever has waited longest
	assert.NoError(t, m.Enqueue(testPlayer(3), 100, BucketAny))

	match := receiveMatch(t, matches)
	assert.Equal(t, int64(1), match.Players[0].ID)
	assert.Equal(t, int64(3), match.Players[1].ID)
	assert.Equal(t, 1, m.Queued(100))
}

func TestMatchmaker_emptyBucketDefaultsToAny(t *testing.T) {
	m, matches, _ := newTestMatchmaker(t)

	assert.NoError(t, m.Enqueue(testPlayer(1), 100, "expert"))
	assert.NoError(t, m.Enqueue(testPlayer(2), 100, ""))

	match := receiveMatch(t, matches)
	assert.Equal(t, 2, len(match.Players))
}

func TestMatchmaker_duplicateEnqueue(t *testing.T) {
	m, _, _ := newTestMatchmaker(t)

	assert.NoError(t, m.Enqueue(testPlayer(1), 100, "novice"))
	assert.Equal(t, ErrAlreadyQueued, m.Enqueue(testPlayer(1), 200, "novice"))
}

func TestMatchmaker_withdraw(t *testing.T) {
	m, matches, _ := newTestMatchmaker(t)

	assert.NoError(t, m.Enqueue(testPlayer(1), 100, "novice"))
	assert.True(t, m.Withdraw(1))
	assert.False(t, m.Withdraw(1))
	assert.Equal(t, 0, m.Queued(100))

	// a withdrawn player cannot be claimed
	assert.NoError(t, m.Enqueue(testPlayer(2), 100, "novice"))
	select {
	case <-matches:
		t.Fatal("unexpected match")
	case <-time.After(time.Millisecond * 50):
	}
}

func TestMatchmaker_sweepExpiresTickets(t *testing.T) {
	m, _, expired := newTestMatchmaker(t)

	assert.NoError(t, m.Enqueue(testPlayer(1), 100, "novice"))

	// not old enough yet
	m.sweep(time.Now())
	assert.True(t, m.IsQueued(1))

	m.sweep(time.Now().Add(time.Minute * 2))
	assert.False(t, m.IsQueued(1))
	assert.Equal(t, 0, m.Queued(100))

	select {
	case ticket := <-expired:
		assert.Equal(t, int64(1), ticket.Player.ID)
		assert.Equal(t, 100, ticket.Stake)
	case <-time.After(time.Second):
		t.Fatal("expiry handler never ran")
	}
}
