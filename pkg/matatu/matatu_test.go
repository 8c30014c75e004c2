package matatu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"matatu-server/pkg/deck"
)

// setupGame builds an active game with fixed hands and a fixed discard
// top. The draw pile keeps its full unshuffled deck, which is fine for
// behavior tests.
func setupGame(t *testing.T, ids []int64, hands []string, discard string) *Game {
	t.Helper()

	g, err := NewGame(ids, DefaultOptions())
	assert.NoError(t, err)

	for i, p := range g.participants {
		p.hand = deck.CardsFromString(hands[i])
	}

	g.deck.Discard(deck.CardFromString(discard))
	g.state = StateActive
	g.started = time.Now()
	g.turnIndex = 0
	g.direction = 1

	return g
}

func drainDrawPile(g *Game) {
	for g.deck.CanDraw(1) {
		_, _ = g.deck.Draw()
	}
}

func TestNewGame(t *testing.T) {
	g, err := NewGame([]int64{1, 2, 3}, DefaultOptions())
	assert.NoError(t, err)
	assert.Equal(t, StateWaiting, g.State())

	assert.NoError(t, g.AddPlayer(4))
	assert.Equal(t, ErrDuplicatePlayer, g.AddPlayer(4))
	assert.Equal(t, PlayerCountError(5), g.AddPlayer(5))

	_, err = NewGame([]int64{1, 2, 3, 4, 5}, DefaultOptions())
	assert.Equal(t, PlayerCountError(5), err)
}

func TestGame_StartAndDeal(t *testing.T) {
	g, _ := NewGame([]int64{1}, DefaultOptions())
	assert.Equal(t, PlayerCountError(1), g.Start())

	assert.NoError(t, g.AddPlayer(2))
	g.SetSeed(1)
	assert.NoError(t, g.Start())
	assert.Equal(t, StateStarting, g.State())
	assert.Equal(t, ErrSeatingClosed, g.AddPlayer(3))
	assert.Equal(t, ErrSeatingClosed, g.Start())

	assert.NoError(t, g.DealInitialHands())
	assert.Equal(t, StateActive, g.State())
	assert.Equal(t, int64(1), g.CurrentTurn())
	assert.Equal(t, 1, g.Direction())

	for _, p := range g.Participants() {
		assert.Equal(t, 5, len(p.Hand()))
	}

	// the starting discard must be a plain card
	top, ok := g.deck.TopDiscard()
	assert.True(t, ok)
	assert.False(t, top.Special)
}

func TestGame_Reopen(t *testing.T) {
	g, _ := NewGame([]int64{1, 2}, DefaultOptions())
	assert.Equal(t, ErrGameNotActive, g.Reopen())

	assert.NoError(t, g.Start())
	assert.NoError(t, g.Reopen())
	assert.Equal(t, StateWaiting, g.State())

	assert.NoError(t, g.AddPlayer(3))
	assert.NoError(t, g.Start())
}

func TestGame_PlayCard_validation(t *testing.T) {
	g := setupGame(t, []int64{1, 2}, []string{"9h,9c", "5s,6s"}, "7c")

	_, err := g.PlayCard(2, 0, "")
	assert.Equal(t, ErrNotYourTurn, err)

	_, err = g.PlayCard(3, 0, "")
	assert.Equal(t, ErrPlayerNotInGame, err)

	_, err = g.PlayCard(1, 5, "")
	assert.Equal(t, ErrInvalidCardIndex, err)

	// 9 of hearts matches neither the suit nor the rank of the 7 of clubs
	_, err = g.PlayCard(1, 0, "")
	assert.Equal(t, ErrIllegalMove, err)

	// a declared suit on a plain card is malformed
	_, err = g.PlayCard(1, 1, deck.Hearts)
	assert.Equal(t, ErrDeclaredSuitForbidden, err)

	// rejected plays must not mutate anything
	assert.Equal(t, 2, len(g.Participants()[0].Hand()))
	assert.Equal(t, int64(1), g.CurrentTurn())

	result, err := g.PlayCard(1, 1, "")
	assert.NoError(t, err)
	assert.Equal(t, deck.CardFromString("9c"), result.Card)
	assert.Equal(t, int64(2), result.NextTurn)
	assert.Equal(t, int64(2), g.CurrentTurn())

	top, _ := g.deck.TopDiscard()
	assert.Equal(t, deck.CardFromString("9c"), top)
}

func TestGame_PlayCard_skip(t *testing.T) {
	g := setupGame(t, []int64{1, 2, 3}, []string{"11c,4d", "5s", "6s"}, "7c")

	result, err := g.PlayCard(1, 0, "")
	assert.NoError(t, err)
	assert.True(t, result.SkippedTurn)
	assert.Equal(t, int64(3), g.CurrentTurn())
}

func TestGame_PlayCard_reverse(t *testing.T) {
	// three-handed, a reverse flips the direction
	g := setupGame(t, []int64{1, 2, 3}, []string{"14c,4d", "5s", "6s"}, "7c")

	result, err := g.PlayCard(1, 0, "")
	assert.NoError(t, err)
	assert.True(t, result.Reversed)
	assert.False(t, result.SkippedTurn)
	assert.Equal(t, -1, g.Direction())
	assert.Equal(t, int64(3), g.CurrentTurn())
}

func TestGame_PlayCard_reverseHeadsUp(t *testing.T) {
	// heads-up, a reverse acts as a skip and the player goes again
	g := setupGame(t, []int64{1, 2}, []string{"14c,4d", "5s"}, "7c")

	result, err := g.PlayCard(1, 0, "")
	assert.NoError(t, err)
	assert.True(t, result.Reversed)
	assert.True(t, result.SkippedTurn)
	assert.Equal(t, int64(1), g.CurrentTurn())
}

func TestGame_PlayCard_forcedDraw(t *testing.T) {
	g := setupGame(t, []int64{1, 2, 3}, []string{"2c,4d", "5s", "6s"}, "7c")

	result, err := g.PlayCard(1, 0, "")
	assert.NoError(t, err)
	assert.NotNil(t, result.ForcedDraw)
	assert.Equal(t, int64(2), result.ForcedDraw.PlayerID)
	assert.Equal(t, 2, result.ForcedDraw.Cards)

	// the victim served the penalty and forfeited their turn
	p2, _ := g.Participant(2)
	assert.Equal(t, 3, len(p2.Hand()))
	assert.Equal(t, 2, p2.Stats.CardsDrawn)
	assert.Equal(t, int64(3), g.CurrentTurn())
}

func TestGame_PlayCard_wild(t *testing.T) {
	g := setupGame(t, []int64{1, 2}, []string{"8d,4d", "9d,9h"}, "7d")

	// a wild needs a declared suit
	_, err := g.PlayCard(1, 0, "")
	assert.Equal(t, ErrDeclaredSuitRequired, err)

	_, err = g.PlayCard(1, 0, "rainbows")
	assert.Equal(t, ErrDeclaredSuitRequired, err)

	result, err := g.PlayCard(1, 0, deck.Hearts)
	assert.NoError(t, err)
	assert.Equal(t, deck.Hearts, result.DeclaredSuit)
	assert.Equal(t, deck.Hearts, g.DeclaredSuit())

	// the declaration replaces the wild's printed suit
	_, err = g.PlayCard(2, 0, "")
	assert.Equal(t, ErrIllegalMove, err)

	_, err = g.PlayCard(2, 1, "")
	assert.NoError(t, err)

	// a plain card on top clears the declaration
	assert.Equal(t, deck.Suit(""), g.DeclaredSuit())
}

func TestGame_lastCardPenalty(t *testing.T) {
	g := setupGame(t, []int64{1, 2}, []string{"7d,4d", "7s,5s"}, "7c")

	_, err := g.PlayCard(1, 0, "")
	assert.NoError(t, err)

	p1, _ := g.Participant(1)
	assert.True(t, p1.PendingDeclaration())

	// the opponent acted before any declaration: two-card penalty
	result, err := g.PlayCard(2, 0, "")
	assert.NoError(t, err)
	assert.Equal(t, []Penalty{{PlayerID: 1, Cards: 2}}, result.Penalties)
	assert.False(t, p1.PendingDeclaration())
	assert.Equal(t, 3, len(p1.Hand()))
}

func TestGame_DeclareLastCard(t *testing.T) {
	g := setupGame(t, []int64{1, 2}, []string{"7d,4d", "7s,5s"}, "7c")

	assert.Equal(t, ErrNothingToDeclare, g.DeclareLastCard(1))

	_, err := g.PlayCard(1, 0, "")
	assert.NoError(t, err)

	// declaring is legal out of turn
	assert.NoError(t, g.DeclareLastCard(1))

	p1, _ := g.Participant(1)
	assert.Equal(t, 1, p1.Stats.Declarations)

	// declared in time: no penalty when the opponent acts
	result, err := g.PlayCard(2, 0, "")
	assert.NoError(t, err)
	assert.Empty(t, result.Penalties)
	assert.Equal(t, 1, len(p1.Hand()))

	assert.Equal(t, ErrPlayerNotInGame, g.DeclareLastCard(9))
}

func TestGame_win(t *testing.T) {
	g := setupGame(t, []int64{1, 2}, []string{"7d", "7s,5s"}, "7c")

	result, err := g.PlayCard(1, 0, "")
	assert.NoError(t, err)
	assert.True(t, result.GameOver)
	assert.Equal(t, StateCompleted, g.State())

	winnerID, won := g.Winner()
	assert.True(t, won)
	assert.Equal(t, int64(1), winnerID)

	_, err = g.PlayCard(2, 0, "")
	assert.Equal(t, ErrGameOver, err)
	_, err = g.DrawCard(2)
	assert.Equal(t, ErrGameOver, err)
	assert.Equal(t, ErrGameOver, g.DeclareLastCard(2))
}

func TestGame_DrawCard(t *testing.T) {
	g := setupGame(t, []int64{1, 2}, []string{"9h", "5s"}, "7c")

	_, err := g.DrawCard(2)
	assert.Equal(t, ErrNotYourTurn, err)

	result, err := g.DrawCard(1)
	assert.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, int64(2), result.NextTurn)

	p1, _ := g.Participant(1)
	assert.Equal(t, 2, len(p1.Hand()))
	assert.Equal(t, 1, p1.Stats.CardsDrawn)
	assert.Equal(t, int64(2), g.CurrentTurn())
}

func TestGame_DrawCard_pass(t *testing.T) {
	// no card anywhere to draw, but a legal move still exists: forfeit turn
	g := setupGame(t, []int64{1, 2}, []string{"9h", "7s"}, "7c")
	drainDrawPile(g)

	result, err := g.DrawCard(1)
	assert.NoError(t, err)
	assert.True(t, result.Passed)
	assert.False(t, result.GameOver)
	assert.Equal(t, int64(2), g.CurrentTurn())
}

func TestGame_DrawCard_reshufflesDiscards(t *testing.T) {
	g := setupGame(t, []int64{1, 2}, []string{"9h", "5s"}, "7c")
	drainDrawPile(g)
	g.deck.DiscardUnderTop(deck.CardFromString("3d"))
	g.deck.DiscardUnderTop(deck.CardFromString("4d"))

	result, err := g.DrawCard(1)
	assert.NoError(t, err)
	assert.False(t, result.Passed)

	// the in-play top card stayed put
	top, _ := g.deck.TopDiscard()
	assert.Equal(t, deck.CardFromString("7c"), top)
}

func TestGame_stalemate(t *testing.T) {
	g := setupGame(t, []int64{1, 2}, []string{"9h", "5s,6s"}, "7c")
	drainDrawPile(g)

	result, err := g.DrawCard(1)
	assert.NoError(t, err)
	assert.True(t, result.GameOver)
	assert.True(t, result.Stalemate)
	assert.Equal(t, StateCompleted, g.State())

	// lowest remaining hand value wins
	winnerID, won := g.Winner()
	assert.True(t, won)
	assert.Equal(t, int64(1), winnerID)

	stalemate, tied := g.Stalemate()
	assert.True(t, stalemate)
	assert.Empty(t, tied)
}

func TestGame_stalemateTie(t *testing.T) {
	g := setupGame(t, []int64{1, 2}, []string{"9h", "4s,5d"}, "7c")
	drainDrawPile(g)

	result, err := g.DrawCard(1)
	assert.NoError(t, err)
	assert.True(t, result.Stalemate)

	_, won := g.Winner()
	assert.False(t, won)

	stalemate, tied := g.Stalemate()
	assert.True(t, stalemate)
	assert.Equal(t, []int64{1, 2}, tied)
}

func TestGame_RemovePlayer(t *testing.T) {
	g := setupGame(t, []int64{1, 2, 3}, []string{"9h,9c", "5s", "6s"}, "7c")

	discards := g.deck.DiscardCount()
	assert.NoError(t, g.RemovePlayer(1))

	// the leaver's cards slip back under the discard top
	assert.Equal(t, discards+2, g.deck.DiscardCount())
	top, _ := g.deck.TopDiscard()
	assert.Equal(t, deck.CardFromString("7c"), top)

	assert.Equal(t, int64(2), g.CurrentTurn())
	assert.Equal(t, ErrPlayerNotInGame, g.RemovePlayer(1))
}

func TestGame_ForceEnd(t *testing.T) {
	g := setupGame(t, []int64{1, 2}, []string{"9h", "5s"}, "7c")

	assert.Equal(t, ErrPlayerNotInGame, g.ForceEnd(9))
	assert.NoError(t, g.ForceEnd(2))
	assert.Equal(t, StateCompleted, g.State())

	winnerID, won := g.Winner()
	assert.True(t, won)
	assert.Equal(t, int64(2), winnerID)

	assert.Equal(t, ErrGameOver, g.ForceEnd(1))
}

func TestGame_ViewFor(t *testing.T) {
	g := setupGame(t, []int64{1, 2}, []string{"9h,9c", "5s"}, "7c")

	view := g.ViewFor(1)
	assert.Equal(t, 2, len(view.Hand))
	assert.Equal(t, int64(1), view.CurrentTurn)
	assert.Equal(t, deck.CardFromString("7c"), *view.DiscardTop)
	assert.Equal(t, 2, len(view.Players))

	// spectators see counts, never cards
	spectator := g.ViewFor(0)
	assert.Empty(t, spectator.Hand)
	assert.Equal(t, 2, spectator.Players[0].Cards)
}

func TestGame_HandValues(t *testing.T) {
	g := setupGame(t, []int64{1, 2}, []string{"8h,14c", "5s,13d"}, "7c")

	values := g.HandValues()
	assert.Equal(t, 65, values[1])
	assert.Equal(t, 15, values[2])

	remaining := g.CardsRemaining()
	assert.Equal(t, 2, remaining[1])
	assert.Equal(t, 2, remaining[2])
}
