package deck

// Rule assigns a point value and specialness to a rank
type Rule struct {
	Value   int
	Special bool
}

// Config describes how a deck is built. Every suit gets one card per rank
// in the rule table.
type Config struct {
	Suits []Suit
	Rules map[int]Rule
}

// DefaultConfig returns the standard 52-card Matatu deck.
// Pip cards count face value, court cards count ten, aces fifteen, and
// eights fifty. Eights, jacks, aces and twos carry effects; which effect
// belongs to which rank is the game's business, the deck only knows they
// are special.
func DefaultConfig() Config {
	rules := make(map[int]Rule)
	for rank := 2; rank <= 14; rank++ {
		rule := Rule{Value: rank}
		switch {
		case rank == 2:
			rule.Special = true
		case rank == 8:
			rule = Rule{Value: 50, Special: true}
		case rank == Jack:
			rule = Rule{Value: 10, Special: true}
		case rank == Queen, rank == King:
			rule.Value = 10
		case rank == Ace:
			rule = Rule{Value: 15, Special: true}
		}

		rules[rank] = rule
	}

	return Config{
		Suits: []Suit{Clubs, Diamonds, Hearts, Spades},
		Rules: rules,
	}
}
