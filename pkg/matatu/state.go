package matatu

import (
	"matatu-server/pkg/deck"
)

// PlayerSummary is what everyone may know about a seated player
type PlayerSummary struct {
	PlayerID           int64 `json:"playerId"`
	Cards              int   `json:"cards"`
	PendingDeclaration bool  `json:"pendingDeclaration"`
	Stats              Stats `json:"stats"`
}

// View is a snapshot of the game fit for one recipient. Spectators get a
// view with no hand.
type View struct {
	State         State           `json:"state"`
	DiscardTop    *deck.Card      `json:"discardTop,omitempty"`
	DeclaredSuit  deck.Suit       `json:"declaredSuit,omitempty"`
	CurrentTurn   int64           `json:"currentTurn"`
	Direction     int             `json:"direction"`
	DrawPileCount int             `json:"drawPileCount"`
	DiscardCount  int             `json:"discardCount"`
	Hand          []deck.Card     `json:"hand,omitempty"`
	Players       []PlayerSummary `json:"players"`
}

// ViewFor builds the game snapshot for the given player.
// Pass 0 for a spectator view with no hand.
func (g *Game) ViewFor(playerID int64) *View {
	view := &View{
		State:         g.state,
		DeclaredSuit:  g.declaredSuit,
		CurrentTurn:   g.CurrentTurn(),
		Direction:     g.direction,
		DrawPileCount: g.deck.CardsLeft(),
		DiscardCount:  g.deck.DiscardCount(),
		Players:       make([]PlayerSummary, 0, len(g.participants)),
	}

	if top, ok := g.deck.TopDiscard(); ok {
		view.DiscardTop = &top
	}

	for _, p := range g.participants {
		view.Players = append(view.Players, PlayerSummary{
			PlayerID:           p.PlayerID,
			Cards:              len(p.hand),
			PendingDeclaration: p.pendingDeclaration,
			Stats:              p.Stats,
		})
	}

	if p, found := g.idToParticipant[playerID]; found {
		view.Hand = p.Hand()
	}

	return view
}
