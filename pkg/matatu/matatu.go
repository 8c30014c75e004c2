package matatu

import (
	"time"

	"matatu-server/pkg/deck"
)

// playersLimit is the most players a single game can seat
const playersLimit = 4

// State is the engine's lifecycle state
type State int

// engine states
const (
	StateWaiting State = iota
	StateStarting
	StateActive
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	}

	return "unknown"
}

// MarshalJSON encodes the state by name
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Game is an authoritative game of Matatu.
// It is not safe for concurrent use; the owning session serializes access.
type Game struct {
	options         Options
	deck            *deck.Deck
	participants    []*Participant
	idToParticipant map[int64]*Participant

	state     State
	turnIndex int
	direction int

	// declaredSuit is set while the discard top is a wild with a declaration
	declaredSuit deck.Suit

	winnerID  int64
	stalemate bool
	tiedIDs   []int64

	seed    int64
	started time.Time
	ended   time.Time
}

// Penalty records a last-card declaration missed by a player
type Penalty struct {
	PlayerID int64 `json:"playerId"`
	Cards    int   `json:"cards"`
}

// PlayResult describes an accepted play
type PlayResult struct {
	Card         deck.Card  `json:"card"`
	DeclaredSuit deck.Suit  `json:"declaredSuit,omitempty"`
	Reversed     bool       `json:"reversed"`
	SkippedTurn  bool       `json:"skippedTurn"`
	ForcedDraw   *Penalty   `json:"forcedDraw,omitempty"`
	Penalties    []Penalty  `json:"penalties,omitempty"`
	NextTurn     int64      `json:"nextTurn"`
	GameOver     bool       `json:"gameOver"`
}

// DrawResult describes an accepted draw
type DrawResult struct {
	// Passed is true when there was no card anywhere to draw and the turn
	// was forfeited instead
	Passed    bool      `json:"passed"`
	Penalties []Penalty `json:"penalties,omitempty"`
	NextTurn  int64     `json:"nextTurn"`
	GameOver  bool      `json:"gameOver"`
	Stalemate bool      `json:"stalemate"`

	card deck.Card
}

// Card returns the drawn card. Only valid when Passed is false.
func (r *DrawResult) Card() deck.Card {
	return r.card
}

// NewGame returns a new game in the waiting state
func NewGame(playerIDs []int64, options Options) (*Game, error) {
	if len(playerIDs) > playersLimit {
		return nil, PlayerCountError(len(playerIDs))
	}

	if options.HandSize <= 0 {
		options.HandSize = DefaultOptions().HandSize
	}

	if options.Effects == nil {
		options.Effects = DefaultOptions().Effects
	}

	if options.Deck.Rules == nil {
		options.Deck = deck.DefaultConfig()
	}

	g := &Game{
		options:         options,
		deck:            deck.New(options.Deck),
		idToParticipant: make(map[int64]*Participant),
		direction:       1,
	}

	for _, id := range playerIDs {
		if err := g.AddPlayer(id); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// SetSeed fixes the shuffle seed. Tests only; call before Start().
func (g *Game) SetSeed(seed int64) {
	g.seed = seed
}

// State returns the engine state
func (g *Game) State() State {
	return g.state
}

// Options returns the game options
func (g *Game) Options() Options {
	return g.options
}

// AddPlayer seats a player. Only legal while waiting.
func (g *Game) AddPlayer(playerID int64) error {
	if g.state != StateWaiting {
		return ErrSeatingClosed
	}

	if _, found := g.idToParticipant[playerID]; found {
		return ErrDuplicatePlayer
	}

	if len(g.participants) >= playersLimit {
		return PlayerCountError(len(g.participants) + 1)
	}

	p := newParticipant(playerID)
	g.participants = append(g.participants, p)
	g.idToParticipant[playerID] = p
	return nil
}

// RemovePlayer unseats a player. During an active game their cards are
// slipped back under the discard top so the deck multiset stays whole.
// The caller decides whether the game can continue with whoever is left.
func (g *Game) RemovePlayer(playerID int64) error {
	if g.state == StateCompleted {
		return ErrGameOver
	}

	p, found := g.idToParticipant[playerID]
	if !found {
		return ErrPlayerNotInGame
	}

	index := 0
	for i, participant := range g.participants {
		if participant == p {
			index = i
			break
		}
	}

	if g.state == StateActive {
		for _, card := range p.hand {
			g.deck.DiscardUnderTop(card)
		}
	}

	g.participants = append(g.participants[:index], g.participants[index+1:]...)
	delete(g.idToParticipant, playerID)

	if len(g.participants) > 0 {
		if index < g.turnIndex || (index == g.turnIndex && g.direction < 0) {
			g.turnIndex--
		}

		g.turnIndex = mod(g.turnIndex, len(g.participants))
	} else {
		g.turnIndex = 0
	}

	return nil
}

// Start closes seating and shuffles the deck
func (g *Game) Start() error {
	if g.state != StateWaiting {
		return ErrSeatingClosed
	}

	if len(g.participants) < 2 {
		return PlayerCountError(len(g.participants))
	}

	g.deck.Shuffle(g.seed)
	g.state = StateStarting
	return nil
}

// Reopen returns a starting game to the waiting state, before any cards
// were dealt. Used when stake escrow fails and seating must resume.
func (g *Game) Reopen() error {
	if g.state != StateStarting {
		return ErrGameNotActive
	}

	g.state = StateWaiting
	return nil
}

// DealInitialHands deals handSize cards to every player in seating order,
// one player at a time, then flips the starting discard. Special cards are
// flipped through until a plain card tops the pile.
func (g *Game) DealInitialHands() error {
	if g.state != StateStarting {
		return ErrGameNotActive
	}

	for _, p := range g.participants {
		for i := 0; i < g.options.HandSize; i++ {
			card, err := g.deck.Draw()
			if err != nil {
				return err
			}

			p.addCard(card)
		}
	}

	for {
		card, err := g.deck.Draw()
		if err != nil {
			return err
		}

		g.deck.Discard(card)
		if g.effectFor(card).Kind == EffectNone {
			break
		}
	}

	g.state = StateActive
	g.turnIndex = 0
	g.direction = 1
	g.started = time.Now()
	return nil
}

// CurrentTurn returns the player whose turn it is
func (g *Game) CurrentTurn() int64 {
	if len(g.participants) == 0 {
		return 0
	}

	return g.participants[g.turnIndex].PlayerID
}

// Direction returns +1 or -1
func (g *Game) Direction() int {
	return g.direction
}

// DeclaredSuit returns the suit declared on the current wild top, if any
func (g *Game) DeclaredSuit() deck.Suit {
	return g.declaredSuit
}

// Winner returns the winning player and true once the game is complete.
// A stalemate split reports no winner.
func (g *Game) Winner() (int64, bool) {
	if g.state != StateCompleted {
		return 0, false
	}

	return g.winnerID, g.winnerID != 0
}

// Stalemate reports whether the game ended in a pile-exhausted stalemate,
// and the players that tied for the lowest hand value (empty when a single
// player won the tiebreak)
func (g *Game) Stalemate() (bool, []int64) {
	return g.stalemate, g.tiedIDs
}

// Participants returns the seated players in turn order
func (g *Game) Participants() []*Participant {
	participants := make([]*Participant, len(g.participants))
	copy(participants, g.participants)
	return participants
}

// Participant returns a seated player
func (g *Game) Participant(playerID int64) (*Participant, bool) {
	p, found := g.idToParticipant[playerID]
	return p, found
}

// Elapsed returns how long the game has been (or was) active
func (g *Game) Elapsed() time.Duration {
	if g.started.IsZero() {
		return 0
	}

	if g.ended.IsZero() {
		return time.Since(g.started)
	}

	return g.ended.Sub(g.started)
}

// PlayCard plays the card at cardIndex from the player's hand onto the
// discard pile. declaredSuit is required when the card is a wild and
// forbidden otherwise. Validation happens before any state mutates.
func (g *Game) PlayCard(playerID int64, cardIndex int, declaredSuit deck.Suit) (*PlayResult, error) {
	p, err := g.currentTurnParticipant(playerID)
	if err != nil {
		return nil, err
	}

	if cardIndex < 0 || cardIndex >= len(p.hand) {
		return nil, ErrInvalidCardIndex
	}

	card := p.hand[cardIndex]
	effect := g.effectFor(card)

	if effect.Kind == EffectWild {
		if !validSuit(declaredSuit) {
			return nil, ErrDeclaredSuitRequired
		}
	} else if declaredSuit != "" {
		return nil, ErrDeclaredSuitForbidden
	}

	if !g.isLegal(card) {
		return nil, ErrIllegalMove
	}

	// accepted: resolve missed declarations first, then mutate
	penalties := g.resolveDeclarationPenalties(playerID)

	card, _ = p.removeCard(cardIndex)
	g.deck.Discard(card)
	p.Stats.CardsPlayed++

	if effect.Kind == EffectWild {
		g.declaredSuit = declaredSuit
	} else {
		g.declaredSuit = ""
	}

	p.pendingDeclaration = len(p.hand) == 1

	result := &PlayResult{
		Card:         card,
		DeclaredSuit: g.declaredSuit,
		Penalties:    penalties,
	}

	if len(p.hand) == 0 {
		// zero cards ends the game immediately, effects notwithstanding
		g.complete(playerID)
		result.GameOver = true
		return result, nil
	}

	g.applyCardEffect(effect, result)
	result.NextTurn = g.CurrentTurn()
	return result, nil
}

// applyCardEffect advances the turn according to the effects table.
// Effects never stack: a forced draw is served immediately and the victim
// forfeits their turn.
func (g *Game) applyCardEffect(effect Effect, result *PlayResult) {
	switch effect.Kind {
	case EffectSkip:
		result.SkippedTurn = true
		g.advance(2)
	case EffectReverse:
		g.direction *= -1
		result.Reversed = true
		if len(g.participants) == 2 {
			// heads-up, a reverse is a skip
			result.SkippedTurn = true
			g.advance(2)
		} else {
			g.advance(1)
		}
	case EffectDraw:
		g.advance(1)
		victim := g.participants[g.turnIndex]
		drawn := 0
		for i := 0; i < effect.Draw; i++ {
			card, err := g.drawWithRefill()
			if err != nil {
				break
			}

			victim.addCard(card)
			drawn++
		}

		victim.Stats.CardsDrawn += drawn
		victim.pendingDeclaration = len(victim.hand) == 1
		result.ForcedDraw = &Penalty{PlayerID: victim.PlayerID, Cards: drawn}

		// the victim forfeits their turn
		g.advance(1)
	default:
		g.advance(1)
	}
}

// DrawCard draws a single card for the current-turn player, refilling the
// draw pile from the discards when needed. When no card exists anywhere the
// turn is forfeited, or the game resolves by stalemate if nobody holds a
// legal move.
func (g *Game) DrawCard(playerID int64) (*DrawResult, error) {
	p, err := g.currentTurnParticipant(playerID)
	if err != nil {
		return nil, err
	}

	penalties := g.resolveDeclarationPenalties(playerID)

	card, drawErr := g.drawWithRefill()
	if drawErr != nil {
		if !g.anyLegalMove() {
			g.resolveStalemate()
			return &DrawResult{
				Penalties: penalties,
				GameOver:  true,
				Stalemate: true,
			}, nil
		}

		g.advance(1)
		return &DrawResult{
			Passed:    true,
			Penalties: penalties,
			NextTurn:  g.CurrentTurn(),
		}, nil
	}

	p.addCard(card)
	p.Stats.CardsDrawn++
	p.pendingDeclaration = len(p.hand) == 1

	g.advance(1)
	return &DrawResult{
		Penalties: penalties,
		NextTurn:  g.CurrentTurn(),
		card:      card,
	}, nil
}

// DeclareLastCard clears the player's pending last-card declaration.
// Unlike plays and draws this is legal out of turn; the deadline is the
// next player's accepted action, not the clock.
func (g *Game) DeclareLastCard(playerID int64) error {
	if g.state == StateCompleted {
		return ErrGameOver
	}

	if g.state != StateActive {
		return ErrGameNotActive
	}

	p, found := g.idToParticipant[playerID]
	if !found {
		return ErrPlayerNotInGame
	}

	if len(p.hand) != 1 {
		return ErrNothingToDeclare
	}

	p.pendingDeclaration = false
	p.Stats.Declarations++
	return nil
}

// ForceEnd completes the game out of band with the given winner, e.g. when
// everyone else left mid-game
func (g *Game) ForceEnd(winnerID int64) error {
	if g.state == StateCompleted {
		return ErrGameOver
	}

	if _, found := g.idToParticipant[winnerID]; !found {
		return ErrPlayerNotInGame
	}

	g.complete(winnerID)
	return nil
}

// CardsRemaining returns the number of cards each player still holds
func (g *Game) CardsRemaining() map[int64]int {
	remaining := make(map[int64]int, len(g.participants))
	for _, p := range g.participants {
		remaining[p.PlayerID] = len(p.hand)
	}

	return remaining
}

// HandValues returns the total card value each player still holds
func (g *Game) HandValues() map[int64]int {
	values := make(map[int64]int, len(g.participants))
	for _, p := range g.participants {
		values[p.PlayerID] = p.HandValue()
	}

	return values
}

func (g *Game) currentTurnParticipant(playerID int64) (*Participant, error) {
	switch g.state {
	case StateCompleted:
		return nil, ErrGameOver
	case StateActive:
	default:
		return nil, ErrGameNotActive
	}

	p, found := g.idToParticipant[playerID]
	if !found {
		return nil, ErrPlayerNotInGame
	}

	if g.CurrentTurn() != playerID {
		return nil, ErrNotYourTurn
	}

	return p, nil
}

// resolveDeclarationPenalties applies the two-card penalty to every player
// who sat on an undeclared last card while someone else's action resolved
func (g *Game) resolveDeclarationPenalties(actorID int64) []Penalty {
	var penalties []Penalty
	for _, p := range g.participants {
		if p.PlayerID == actorID || !p.pendingDeclaration {
			continue
		}

		drawn := 0
		for i := 0; i < 2; i++ {
			card, err := g.drawWithRefill()
			if err != nil {
				break
			}

			p.addCard(card)
			drawn++
		}

		p.Stats.CardsDrawn += drawn
		p.pendingDeclaration = false
		penalties = append(penalties, Penalty{PlayerID: p.PlayerID, Cards: drawn})
	}

	return penalties
}

func (g *Game) drawWithRefill() (deck.Card, error) {
	card, err := g.deck.Draw()
	if err == nil {
		return card, nil
	}

	if err := g.deck.ReshuffleDiscards(); err != nil {
		return deck.Card{}, err
	}

	return g.deck.Draw()
}

func (g *Game) effectFor(card deck.Card) Effect {
	if !card.Special {
		return Effect{}
	}

	return g.options.Effects[card.Rank]
}

// isLegal returns true if the card matches the discard top by suit or rank.
// A declared suit on a wild top replaces the wild's nominal suit.
func (g *Game) isLegal(card deck.Card) bool {
	top, ok := g.deck.TopDiscard()
	if !ok {
		return true
	}

	suit := top.Suit
	if g.effectFor(top).Kind == EffectWild && g.declaredSuit != "" {
		suit = g.declaredSuit
	}

	return card.Suit == suit || card.Rank == top.Rank
}

func (g *Game) anyLegalMove() bool {
	for _, p := range g.participants {
		for _, card := range p.hand {
			if g.isLegal(card) {
				return true
			}
		}
	}

	return false
}

// resolveStalemate ends the game with the lowest remaining hand value
// winning; an exact tie splits the pot
func (g *Game) resolveStalemate() {
	g.stalemate = true

	lowest := -1
	var tied []int64
	for _, p := range g.participants {
		value := p.HandValue()
		switch {
		case lowest == -1 || value < lowest:
			lowest = value
			tied = []int64{p.PlayerID}
		case value == lowest:
			tied = append(tied, p.PlayerID)
		}
	}

	if len(tied) == 1 {
		g.complete(tied[0])
		return
	}

	g.tiedIDs = tied
	g.complete(0)
}

func (g *Game) complete(winnerID int64) {
	g.state = StateCompleted
	g.winnerID = winnerID
	g.ended = time.Now()
}

func (g *Game) advance(n int) {
	if len(g.participants) == 0 {
		return
	}

	g.turnIndex = mod(g.turnIndex+g.direction*n, len(g.participants))
}

func mod(a, n int) int {
	return ((a % n) + n) % n
}

func validSuit(s deck.Suit) bool {
	switch s {
	case deck.Hearts, deck.Clubs, deck.Diamonds, deck.Spades:
		return true
	}

	return false
}
