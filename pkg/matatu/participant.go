package matatu

import (
	"matatu-server/pkg/deck"
)

// Stats tracks a player's in-game activity
type Stats struct {
	CardsPlayed  int `json:"cardsPlayed"`
	CardsDrawn   int `json:"cardsDrawn"`
	Declarations int `json:"declarations"`
}

// Participant is a seated player
type Participant struct {
	PlayerID int64
	Stats    Stats

	hand []deck.Card

	// pendingDeclaration is set the moment the hand drops to one card.
	// It clears on a declaration, or with a penalty when another player's
	// action resolves first.
	pendingDeclaration bool
}

func newParticipant(playerID int64) *Participant {
	return &Participant{
		PlayerID: playerID,
	}
}

// Hand returns a copy of the participant's hand
func (p *Participant) Hand() []deck.Card {
	hand := make([]deck.Card, len(p.hand))
	copy(hand, p.hand)
	return hand
}

// HandValue returns the total point value of the participant's hand
func (p *Participant) HandValue() int {
	total := 0
	for _, card := range p.hand {
		total += card.Value
	}

	return total
}

// PendingDeclaration returns true if the player is down to their last card
// and has not yet declared
func (p *Participant) PendingDeclaration() bool {
	return p.pendingDeclaration
}

func (p *Participant) removeCard(index int) (deck.Card, bool) {
	if index < 0 || index >= len(p.hand) {
		return deck.Card{}, false
	}

	card := p.hand[index]
	p.hand = append(p.hand[:index], p.hand[index+1:]...)
	return card, true
}

func (p *Participant) addCard(card deck.Card) {
	p.hand = append(p.hand, card)
}
