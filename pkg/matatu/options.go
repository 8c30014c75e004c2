package matatu

import (
	"matatu-server/pkg/deck"
)

// EffectKind identifies what a special card does when played
type EffectKind int

// effect kinds
const (
	EffectNone EffectKind = iota
	EffectSkip
	EffectReverse
	EffectDraw
	EffectWild
)

// Effect is one entry in the special-card table
type Effect struct {
	Kind EffectKind
	// Draw is how many cards the next player must draw (EffectDraw only)
	Draw int
}

// Options configures a game of Matatu
type Options struct {
	HandSize int
	// Stake is the escrowed amount per player; settlement happens outside the engine
	Stake int
	Deck  deck.Config
	// Effects maps a rank to its effect. Effects never stack: a drawn
	// penalty is served and the turn moves on.
	Effects map[int]Effect
}

// DefaultOptions returns the standard Matatu rules: eights are wild, jacks
// skip, aces reverse, twos force a two-card draw
func DefaultOptions() Options {
	return Options{
		HandSize: 5,
		Stake:    100,
		Deck:     deck.DefaultConfig(),
		Effects: map[int]Effect{
			2:         {Kind: EffectDraw, Draw: 2},
			8:         {Kind: EffectWild},
			deck.Jack: {Kind: EffectSkip},
			deck.Ace:  {Kind: EffectReverse},
		},
	}
}
