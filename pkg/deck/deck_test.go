package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	d := New(DefaultConfig())

	assert.Equal(t, 52, d.CardsLeft())
	assert.Equal(t, 0, d.DiscardCount())

	cards := d.Cards()
	assert.Equal(t, Card{Rank: 2, Suit: Clubs, Value: 2, Special: true}, cards[0])
	assert.Equal(t, Card{Rank: 14, Suit: Spades, Value: 15, Special: true}, cards[51])
}

func TestNew_rankRangeFromRules(t *testing.T) {
	d := New(Config{
		Suits: []Suit{Clubs, Hearts},
		Rules: map[int]Rule{
			1:  {Value: 1},
			15: {Value: 20, Special: true},
		},
	})

	assert.Equal(t, 4, d.CardsLeft())

	cards := d.Cards()
	assert.Equal(t, Card{Rank: 1, Suit: Clubs, Value: 1}, cards[0])
	assert.Equal(t, Card{Rank: 15, Suit: Clubs, Value: 20, Special: true}, cards[1])
	assert.Equal(t, Card{Rank: 15, Suit: Hearts, Value: 20, Special: true}, cards[3])
}

func TestDeck_Shuffle(t *testing.T) {
	d1 := New(DefaultConfig())
	d2 := New(DefaultConfig())

	d1.Shuffle(42)
	d2.Shuffle(42)
	assert.Equal(t, d1.Cards(), d2.Cards())
	assert.Equal(t, int64(42), d1.GetSeed())

	d3 := New(DefaultConfig())
	d3.Shuffle(0)
	assert.Greater(t, d3.GetSeed(), int64(0))

	assert.PanicsWithValue(t, "seed cannot be < 0", func() {
		New(DefaultConfig()).Shuffle(-1)
	})
}

func TestDeck_Draw(t *testing.T) {
	d := New(DefaultConfig())

	assert.True(t, d.CanDraw(52))
	assert.False(t, d.CanDraw(53))

	// unshuffled, the tail is the ace of spades
	card, err := d.Draw()
	assert.NoError(t, err)
	assert.Equal(t, "A♠", card.String())
	assert.Equal(t, 51, d.CardsLeft())

	for i := 0; i < 51; i++ {
		_, err := d.Draw()
		assert.NoError(t, err)
	}

	_, err = d.Draw()
	assert.Equal(t, ErrEndOfDeck, err)
}

func TestDeck_Discard(t *testing.T) {
	d := New(DefaultConfig())

	_, ok := d.TopDiscard()
	assert.False(t, ok)

	d.Discard(CardFromString("5h"))
	d.Discard(CardFromString("9c"))

	top, ok := d.TopDiscard()
	assert.True(t, ok)
	assert.Equal(t, CardFromString("9c"), top)
	assert.Equal(t, 2, d.DiscardCount())
}

func TestDeck_DiscardUnderTop(t *testing.T) {
	d := New(DefaultConfig())

	d.DiscardUnderTop(CardFromString("2c"))
	top, _ := d.TopDiscard()
	assert.Equal(t, CardFromString("2c"), top)

	d.Discard(CardFromString("9c"))
	d.DiscardUnderTop(CardFromString("5h"))
	d.DiscardUnderTop(CardFromString("7d"))

	top, _ = d.TopDiscard()
	assert.Equal(t, CardFromString("9c"), top)
	assert.Equal(t, 4, d.DiscardCount())
}

func TestDeck_ReshuffleDiscards(t *testing.T) {
	d := New(DefaultConfig())
	d.Shuffle(1)

	assert.Equal(t, ErrNoCardsAvailable, d.ReshuffleDiscards())

	d.Discard(CardFromString("9c"))
	assert.Equal(t, ErrNoCardsAvailable, d.ReshuffleDiscards())

	// empty the draw pile into the discards
	for d.CardsLeft() > 0 {
		card, err := d.Draw()
		assert.NoError(t, err)
		d.Discard(card)
	}

	top, _ := d.TopDiscard()
	assert.NoError(t, d.ReshuffleDiscards())

	assert.Equal(t, 52, d.CardsLeft())
	assert.Equal(t, 1, d.DiscardCount())

	// the in-play top card never leaves the discard pile
	newTop, _ := d.TopDiscard()
	assert.Equal(t, top, newTop)
}

// the union of the piles must always be the exact 52-card multiset
func TestDeck_multisetInvariant(t *testing.T) {
	d := New(DefaultConfig())
	d.Shuffle(7)

	for i := 0; i < 20; i++ {
		card, err := d.Draw()
		assert.NoError(t, err)
		d.Discard(card)
	}

	counts := make(map[string]int)
	for _, card := range d.Cards() {
		counts[card.String()]++
	}

	assert.Equal(t, 52, len(counts))
	for card, count := range counts {
		assert.Equal(t, 1, count, "card %s", card)
	}
}
