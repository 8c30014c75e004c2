package deck

import (
	"errors"
	"matatu-server/internal/rng"
	"math/rand"
	"sort"
)

// ErrEndOfDeck is an error when Draw() is attempted and there are no more cards
var ErrEndOfDeck = errors.New("end of deck reached")

// ErrNoCardsAvailable is an error when a reshuffle is attempted and the
// discard pile has nothing to give back
var ErrNoCardsAvailable = errors.New("no cards available to reshuffle")

// Deck owns the draw and discard piles for one game.
// The union of both piles and every dealt hand is always the exact card
// multiset the config built.
type Deck struct {
	draw    []Card
	discard []Card
	seed    int64
	rng     *rand.Rand
}

// New returns a new deck of cards built from the config.
// Important! this deck is unshuffled. You must call the Shuffle() method to shuffle the cards
func New(cfg Config) *Deck {
	d := &Deck{
		seed: -1,
	}

	d.buildDeck(cfg)
	return d
}

// SetSeed will set the seed
// This should only be used by tests. Setting the seed is normally handled when you call Shuffle()
func (d *Deck) SetSeed(seed int64) {
	d.seed = seed
	d.rng = rand.New(rand.NewSource(seed))
}

func (d *Deck) buildDeck(cfg Config) {
	ranks := make([]int, 0, len(cfg.Rules))
	for rank := range cfg.Rules {
		ranks = append(ranks, rank)
	}
	sort.Ints(ranks)

	cards := make([]Card, 0, len(cfg.Suits)*len(cfg.Rules))
	for _, suit := range cfg.Suits {
		for _, rank := range ranks {
			rule := cfg.Rules[rank]
			cards = append(cards, Card{
				Rank:    rank,
				Suit:    suit,
				Value:   rule.Value,
				Special: rule.Special,
			})
		}
	}

	d.draw = cards
	d.discard = nil
}

// Shuffle will shuffle the draw pile using Fisher–Yates.
// Pass 0 to seed from a crypto-random source, or a fixed seed for tests.
func (d *Deck) Shuffle(seed int64) {
	if seed < 0 {
		panic("seed cannot be < 0")
	}

	if seed == 0 {
		seed = rng.Seed()
	}

	d.SetSeed(seed)
	d.shuffle(d.draw)
}

func (d *Deck) shuffle(cards []Card) {
	for j := len(cards) - 1; j > 0; j-- {
		i := d.rng.Intn(j + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// GetSeed returns the seed used to shuffle the deck
func (d *Deck) GetSeed() int64 {
	return d.seed
}

// Draw will draw the next card off the tail of the draw pile.
// If there are no more cards, an ErrEndOfDeck is returned along with a zero card.
func (d *Deck) Draw() (Card, error) {
	if len(d.draw) == 0 {
		return Card{}, ErrEndOfDeck
	}

	card := d.draw[len(d.draw)-1]
	d.draw = d.draw[:len(d.draw)-1]

	return card, nil
}

// Discard places a card on top of the discard pile
func (d *Deck) Discard(card Card) {
	d.discard = append(d.discard, card)
}

// DiscardUnderTop slips a card beneath the current discard top, keeping
// the top card in play. Used when a leaving player's hand returns to the
// game.
func (d *Deck) DiscardUnderTop(card Card) {
	if len(d.discard) == 0 {
		d.discard = []Card{card}
		return
	}

	top := d.discard[len(d.discard)-1]
	d.discard = append(d.discard[:len(d.discard)-1], card, top)
}

// TopDiscard returns the card on top of the discard pile
func (d *Deck) TopDiscard() (Card, bool) {
	if len(d.discard) == 0 {
		return Card{}, false
	}

	return d.discard[len(d.discard)-1], true
}

// ReshuffleDiscards moves everything except the top discard back into the
// draw pile and shuffles it. Returns ErrNoCardsAvailable if the discard
// pile has one card or fewer to give back.
func (d *Deck) ReshuffleDiscards() error {
	if len(d.discard) <= 1 {
		return ErrNoCardsAvailable
	}

	top := d.discard[len(d.discard)-1]
	d.draw = append(d.draw, d.discard[:len(d.discard)-1]...)
	d.discard = []Card{top}

	if d.rng == nil {
		d.SetSeed(rng.Seed())
	}

	d.shuffle(d.draw)
	return nil
}

// CanDraw returns true if there are {want} cards left in the draw pile
func (d *Deck) CanDraw(want int) bool {
	return len(d.draw) >= want
}

// CardsLeft returns the number of cards left in the draw pile
func (d *Deck) CardsLeft() int {
	return len(d.draw)
}

// DiscardCount returns the number of cards in the discard pile
func (d *Deck) DiscardCount() int {
	return len(d.discard)
}

// Cards returns a copy of every card currently in either pile.
// Useful for asserting the full-deck invariant.
func (d *Deck) Cards() []Card {
	cards := make([]Card, 0, len(d.draw)+len(d.discard))
	cards = append(cards, d.draw...)
	cards = append(cards, d.discard...)
	return cards
}
