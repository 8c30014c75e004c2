package room

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"matatu-server/pkg/account"
	"matatu-server/pkg/history"
	"matatu-server/pkg/matatu"
	"matatu-server/pkg/notify"
)

// Config carries the room-level timing and settlement knobs
type Config struct {
	StartDelay      time.Duration
	DisconnectGrace time.Duration
	Retention       time.Duration
	MaxStakeLoss    int
	Capacity        int
}

// Deps are the external collaborators a session talks to
type Deps struct {
	Accounts account.Service
	Results  history.Store
	Notifier notify.Notifier
}

// seat is one player's place at the table, surviving disconnects
type seat struct {
	player     *account.Player
	connected  bool
	graceTimer *time.Timer
}

// Session is one forming or in-progress game room. All state-mutating work
// runs on the session's own run loop; public methods only queue closures,
// so actions apply in arrival order no matter which connection they came
// in on. Network and persistence I/O never runs on the loop.
type Session struct {
	ID       string
	Name     string
	Private  bool
	JoinCode string
	Stake    int
	Created  time.Time

	game  *matatu.Game
	seats map[int64]*seat
	chat  *chatLog

	// escrowed tracks successfully debited stakes until settlement
	escrowed map[int64]int
	result   *history.GameResult

	clients map[*Client]bool
	lock    sync.RWMutex

	cfg       Config
	deps      Deps
	onDispose func(sessionID string)

	exec      chan func()
	closeCh   chan bool
	closeOnce sync.Once

	startTimer   *time.Timer
	disposeTimer *time.Timer
}

// CreateOptions configures a new session
type CreateOptions struct {
	Name    string
	Private bool
	Stake   int
	Rules   matatu.Options
}

// NewSession returns a new waiting session and starts its run loop
func NewSession(opts CreateOptions, cfg Config, deps Deps, onDispose func(string)) (*Session, error) {
	if cfg.Capacity <= 0 || cfg.Capacity > 4 {
		cfg.Capacity = 4
	}

	rules := opts.Rules
	if opts.Stake > 0 {
		rules.Stake = opts.Stake
	}

	game, err := matatu.NewGame(nil, rules)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	s := &Session{
		ID:        id,
		Name:      opts.Name,
		Private:   opts.Private,
		JoinCode:  joinCodeFromID(id),
		Stake:     game.Options().Stake,
		Created:   time.Now(),
		game:      game,
		seats:     make(map[int64]*seat),
		chat:      &chatLog{},
		escrowed:  make(map[int64]int),
		clients:   make(map[*Client]bool),
		cfg:       cfg,
		deps:      deps,
		onDispose: onDispose,
		exec:      make(chan func(), 256),
		closeCh:   make(chan bool),
	}

	go s.runLoop()
	return s, nil
}

func joinCodeFromID(id string) string {
	// last uuid group, uppercased, mirrors the join codes players share
	return strings.ToUpper(id[len(id)-12:])[:8]
}

func (s *Session) runLoop() {
	log := logrus.WithFields(logrus.Fields{
		"sessionId": s.ID,
		"name":      s.Name,
	})

	log.Debug("creating session run loop")
	for {
		select {
		case fn := <-s.exec:
			fn()
		case <-s.closeCh:
			log.Debug("terminating session run loop")
			return
		}
	}
}

// do queues fn on the run loop. Returns false once the session is closed.
func (s *Session) do(fn func()) bool {
	select {
	case s.exec <- fn:
		return true
	case <-s.closeCh:
		return false
	}
}

// call runs fn on the run loop and waits for its error
func (s *Session) call(fn func() error) error {
	errCh := make(chan error, 1)
	if !s.do(func() { errCh <- fn() }) {
		return NewError(ErrorNotFound, "room no longer exists")
	}

	return <-errCh
}

func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		close(s.closeCh)
	})
}

// Status returns the lifecycle state of the underlying game
func (s *Session) Status() matatu.State {
	var state matatu.State
	_ = s.call(func() error {
		state = s.game.State()
		return nil
	})

	return state
}

// Info is the public listing entry for a session
type Info struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Status     matatu.State `json:"status"`
	Players    int          `json:"players"`
	Capacity   int          `json:"capacity"`
	Stake      int          `json:"stake"`
	Private    bool         `json:"private"`
	Spectators int          `json:"spectators"`
	Created    time.Time    `json:"created"`
}

// Info returns the public info for this session
func (s *Session) Info() Info {
	info := Info{
		ID:      s.ID,
		Name:    s.Name,
		Stake:   s.Stake,
		Private: s.Private,
		Created: s.Created,
	}

	_ = s.call(func() error {
		info.Status = s.game.State()
		info.Players = len(s.seats)
		info.Capacity = s.cfg.Capacity
		info.Spectators = s.spectatorCount()
		return nil
	})

	return info
}

// Join seats the client's player. Fails with a room-state error when the
// room is full or the game already started, and with an insufficient-stake
// error when the player cannot cover the stake. A player who already holds
// a seat reconnects to it instead, keeping hand and turn position.
func (s *Session) Join(client *Client) error {
	return s.call(func() error { return s.join(client) })
}

// NOTE: must only be called from the run loop
func (s *Session) join(client *Client) error {
	player := client.Player()

	if st, found := s.seats[player.ID]; found {
		s.reconnect(client, st)
		return nil
	}

	if s.game.State() != matatu.StateWaiting {
		return NewError(ErrorRoomState, "game is already in progress")
	}

	if len(s.seats) >= s.cfg.Capacity {
		return NewError(ErrorRoomState, "room is full")
	}

	if player.Balance < s.Stake {
		return NewError(ErrorInsufficientStake, "you need %d points to play here", s.Stake)
	}

	if err := s.game.AddPlayer(player.ID); err != nil {
		return asRoomError(err)
	}

	s.seats[player.ID] = &seat{player: player, connected: true}
	s.addClient(client, false)

	s.broadcast(&Event{Kind: EventPlayerJoined, Data: playerJoinedData{
		PlayerID: player.ID,
		Username: player.Username,
		Players:  len(s.seats),
		Capacity: s.cfg.Capacity,
	}})

	client.Send(&Event{Kind: EventGameState, Data: s.game.ViewFor(player.ID)})
	client.Send(&Event{Kind: EventChatMessage, Data: s.chat.recent(20)})

	if len(s.seats) >= 2 && s.startTimer == nil {
		s.scheduleStart()
	}

	return nil
}

// Watch attaches the client as a spectator
func (s *Session) Watch(client *Client) error {
	return s.call(func() error {
		s.addClient(client, true)
		client.Send(&Event{Kind: EventGameState, Data: s.game.ViewFor(0)})
		client.Send(&Event{Kind: EventChatMessage, Data: s.chat.recent(20)})
		s.broadcast(&Event{Kind: EventSpectatorUpdate, Data: spectatorUpdateData{Spectators: s.spectatorCount()}})
		return nil
	})
}

// NOTE: must only be called from the run loop
func (s *Session) reconnect(client *Client, st *seat) {
	if st.graceTimer != nil {
		st.graceTimer.Stop()
		st.graceTimer = nil
	}

	st.connected = true
	s.addClient(client, false)

	client.Send(&Event{Kind: EventGameState, Data: s.game.ViewFor(st.player.ID)})
	client.Send(&Event{Kind: EventChatMessage, Data: s.chat.recent(20)})

	s.broadcast(&Event{Kind: EventPlayerReconnect, Data: playerJoinedData{
		PlayerID: st.player.ID,
		Username: st.player.Username,
		Players:  len(s.seats),
		Capacity: s.cfg.Capacity,
	}})
}

func (s *Session) addClient(client *Client, spectator bool) {
	s.lock.Lock()
	client.session = s
	client.spectator = spectator
	s.clients[client] = true
	s.lock.Unlock()
}

// Clients returns a snapshot of the connected clients
func (s *Session) Clients() []*Client {
	s.lock.RLock()
	defer s.lock.RUnlock()

	clients := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}

	return clients
}

func (s *Session) spectatorCount() int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	n := 0
	for client := range s.clients {
		if client.spectator {
			n++
		}
	}

	return n
}

// ClientDisconnected handles a dropped connection. A seated player keeps
// their seat for the grace window; reconnecting within it resumes the
// exact in-memory state.
func (s *Session) ClientDisconnected(client *Client) {
	s.do(func() {
		s.lock.Lock()
		delete(s.clients, client)
		s.lock.Unlock()

		if client.spectator {
			s.broadcast(&Event{Kind: EventSpectatorUpdate, Data: spectatorUpdateData{Spectators: s.spectatorCount()}})
			return
		}

		playerID := client.Player().ID
		st, found := s.seats[playerID]
		if !found || s.playerStillConnected(playerID) {
			return
		}

		st.connected = false

		switch s.game.State() {
		case matatu.StateCompleted:
			return
		case matatu.StateWaiting:
			// no game to protect, vacate the seat right away
			s.leave(playerID, "disconnected")
			return
		}

		s.broadcast(&Event{Kind: EventPlayerDisconnect, Data: playerLeftData{
			PlayerID: playerID,
			Username: st.player.Username,
			Reason:   "disconnected",
			Players:  len(s.seats),
		}})

		st.graceTimer = time.AfterFunc(s.cfg.DisconnectGrace, func() {
			s.do(func() {
				st := s.seats[playerID]
				if st == nil || st.connected {
					return
				}

				s.leave(playerID, "disconnected")
			})
		})
	})
}

func (s *Session) playerStillConnected(playerID int64) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	for client := range s.clients {
		if !client.spectator && client.Player().ID == playerID {
			return true
		}
	}

	return false
}

// Leave removes a player from the session
func (s *Session) Leave(playerID int64, reason string) error {
	return s.call(func() error {
		if _, found := s.seats[playerID]; !found {
			return NewError(ErrorNotFound, "player is not in this room")
		}

		s.leave(playerID, reason)
		return nil
	})
}

// NOTE: must only be called from the run loop
func (s *Session) leave(playerID int64, reason string) {
	st, found := s.seats[playerID]
	if !found {
		return
	}

	if st.graceTimer != nil {
		st.graceTimer.Stop()
		st.graceTimer = nil
	}

	delete(s.seats, playerID)

	if s.game.State() != matatu.StateCompleted {
		if err := s.game.RemovePlayer(playerID); err != nil {
			logrus.WithError(err).WithField("sessionId", s.ID).Error("could not remove player from game")
		}
	}

	s.lock.Lock()
	for client := range s.clients {
		if !client.spectator && client.Player().ID == playerID {
			delete(s.clients, client)
			client.session = nil
		}
	}
	s.lock.Unlock()

	s.broadcast(&Event{Kind: EventPlayerLeft, Data: playerLeftData{
		PlayerID: playerID,
		Username: st.player.Username,
		Reason:   reason,
		Players:  len(s.seats),
	}})

	switch s.game.State() {
	case matatu.StateWaiting:
		if len(s.seats) < 2 && s.startTimer != nil {
			s.startTimer.Stop()
			s.startTimer = nil
		}

		if len(s.seats) == 0 {
			s.dispose()
		}
	case matatu.StateStarting:
		// stake escrow is in flight; activate or abortStart reconciles
		// against the remaining seats when the debits land
	case matatu.StateActive:
		if len(s.seats) < 2 {
			s.endGame("insufficientPlayers")
		} else {
			s.broadcastViews()
			s.broadcastTurn()
		}
	}
}

// NOTE: must only be called from the run loop
func (s *Session) scheduleStart() {
	startsAt := time.Now().Add(s.cfg.StartDelay)
	s.broadcast(&Event{Kind: EventGameStarting, Data: gameStartingData{StartsAt: startsAt}})

	s.startTimer = time.AfterFunc(s.cfg.StartDelay, func() {
		s.do(s.autoStart)
	})
}

// autoStart closes seating and escrows everyone's stake. The debits are
// network calls, so they run off the loop and re-enter with the outcome.
// NOTE: must only be called from the run loop
func (s *Session) autoStart() {
	s.startTimer = nil

	if s.game.State() != matatu.StateWaiting || len(s.seats) < 2 {
		return
	}

	if err := s.game.Start(); err != nil {
		logrus.WithError(err).WithField("sessionId", s.ID).Error("could not start game")
		return
	}

	playerIDs := make([]int64, 0, len(s.seats))
	for id := range s.seats {
		playerIDs = append(playerIDs, id)
	}

	go s.escrowStakes(playerIDs)
}

// escrowStakes debits every player's stake. If any debit fails the
// successful ones are refunded and the session drops back to waiting with
// the failed player unseated. Runs off the run loop.
func (s *Session) escrowStakes(playerIDs []int64) {
	ctx := context.Background()
	debited := make([]int64, 0, len(playerIDs))

	var failed int64
	for _, id := range playerIDs {
		if err := s.deps.Accounts.Debit(ctx, id, s.Stake); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"sessionId": s.ID,
				"playerId":  id,
			}).Warn("stake debit failed")
			failed = id
			break
		}

		debited = append(debited, id)
	}

	if failed != 0 {
		for _, id := range debited {
			if err := s.deps.Accounts.Credit(ctx, id, s.Stake); err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{
					"sessionId": s.ID,
					"playerId":  id,
				}).Error("could not refund stake after aborted start")
			}
		}

		s.do(func() { s.abortStart(failed) })
		return
	}

	s.do(func() { s.activate(playerIDs) })
}

// NOTE: must only be called from the run loop
func (s *Session) abortStart(failedID int64) {
	if err := s.game.Reopen(); err != nil {
		logrus.WithError(err).WithField("sessionId", s.ID).Error("could not reopen game")
		return
	}

	s.addSystemChat("Game could not start: a player could not cover the stake.")
	s.leave(failedID, "insufficientStake")

	if len(s.seats) == 0 {
		s.dispose()
		return
	}

	if len(s.seats) >= 2 && s.startTimer == nil {
		s.scheduleStart()
	}
}

func (s *Session) refundStake(playerID int64) {
	if err := s.deps.Accounts.Credit(context.Background(), playerID, s.Stake); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"sessionId": s.ID,
			"playerId":  playerID,
		}).Error("could not refund stake")
	}
}

// NOTE: must only be called from the run loop
func (s *Session) activate(playerIDs []int64) {
	// players may have left while the debits were in flight; their stakes
	// come straight back and they are not dealt in
	seated := make([]int64, 0, len(playerIDs))
	for _, id := range playerIDs {
		if _, found := s.seats[id]; !found {
			go s.refundStake(id)
			continue
		}

		seated = append(seated, id)
	}

	if len(seated) < 2 {
		s.abortActivate(seated)
		return
	}

	for _, id := range seated {
		s.escrowed[id] = s.Stake
	}

	if err := s.game.DealInitialHands(); err != nil {
		logrus.WithError(err).WithField("sessionId", s.ID).Error("could not deal initial hands")
		return
	}

	s.addSystemChat("Game started! Good luck everyone!")
	s.broadcast(&Event{Kind: EventGameStarted, Data: map[string]interface{}{
		"stake": s.Stake,
	}})
	s.broadcastViews()
	s.broadcastTurn()
}

// abortActivate unwinds an escrow that landed after too many players left.
// Everyone debited is refunded and seating reopens.
// NOTE: must only be called from the run loop
func (s *Session) abortActivate(debited []int64) {
	for _, id := range debited {
		go s.refundStake(id)
	}

	if err := s.game.Reopen(); err != nil {
		logrus.WithError(err).WithField("sessionId", s.ID).Error("could not reopen game")
		return
	}

	s.addSystemChat("Game could not start: not enough players remain.")

	if len(s.seats) == 0 {
		s.dispose()
	}
}

// ReceivedMessage is called when a client sends a message to the server.
// Turn legality is checked here, at serialization time, so races between
// near-simultaneous submissions resolve deterministically in arrival order.
func (s *Session) ReceivedMessage(c *Client, msg *PayloadIn) {
	s.do(func() {
		if c.spectator && msg.Action != ActionChat {
			c.Send(newErrorEvent(msg.Context, NewError(ErrorValidation, "spectators can only chat")))
			return
		}

		switch msg.Action {
		case ActionPlayCard:
			s.handlePlayCard(c, msg)
		case ActionDrawCard:
			s.handleDrawCard(c, msg)
		case ActionDeclareLast:
			s.handleDeclareLast(c, msg)
		case ActionChat:
			s.handleChat(c, msg)
		case ActionLeave:
			s.leave(c.Player().ID, "left")
			c.Send(OK(msg.Context))
		default:
			c.Send(newErrorEvent(msg.Context, NewError(ErrorValidation, "unknown action: %s", msg.Action)))
		}
	})
}

// NOTE: must only be called from the run loop
func (s *Session) handlePlayCard(c *Client, msg *PayloadIn) {
	if msg.CardIndex == nil {
		c.Send(newErrorEvent(msg.Context, NewError(ErrorValidation, "cardIndex is required")))
		return
	}

	player := c.Player()
	result, err := s.game.PlayCard(player.ID, *msg.CardIndex, msg.DeclaredSuit)
	if err != nil {
		c.Send(newErrorEvent(msg.Context, err))
		return
	}

	c.Send(OK(msg.Context))
	s.broadcast(&Event{Kind: EventCardPlayed, Data: cardPlayedData{
		PlayerID: player.ID,
		Username: player.Username,
		Result:   result,
	}})

	if remaining, found := s.game.CardsRemaining()[player.ID]; found && remaining == 1 {
		s.addSystemChat(fmt.Sprintf("%s is down to one card!", player.Username))
	}

	s.broadcastViews()

	if result.GameOver {
		s.endGame("win")
		return
	}

	s.broadcastTurn()
}

// NOTE: must only be called from the run loop
func (s *Session) handleDrawCard(c *Client, msg *PayloadIn) {
	player := c.Player()
	result, err := s.game.DrawCard(player.ID)
	if err != nil {
		c.Send(newErrorEvent(msg.Context, err))
		return
	}

	c.Send(OK(msg.Context))

	if result.GameOver {
		s.broadcastViews()
		s.endGame("stalemate")
		return
	}

	s.broadcast(&Event{Kind: EventCardDrawn, Data: cardDrawnData{
		PlayerID: player.ID,
		Username: player.Username,
		Passed:   result.Passed,
		NextTurn: result.NextTurn,
	}})

	s.broadcastViews()
	s.broadcastTurn()
}

// NOTE: must only be called from the run loop
func (s *Session) handleDeclareLast(c *Client, msg *PayloadIn) {
	player := c.Player()
	if err := s.game.DeclareLastCard(player.ID); err != nil {
		c.Send(newErrorEvent(msg.Context, err))
		return
	}

	c.Send(OK(msg.Context))
	s.addSystemChat(fmt.Sprintf("%s called MATATU!", player.Username))
	s.broadcast(&Event{Kind: EventLastCardDeclared, Data: playerJoinedData{
		PlayerID: player.ID,
		Username: player.Username,
	}})
	s.broadcastViews()
}

// NOTE: must only be called from the run loop
func (s *Session) handleChat(c *Client, msg *PayloadIn) {
	player := c.Player()
	chatMsg, ok := newPlayerChatMessage(player.ID, player.Username, msg.Message)
	if !ok {
		c.Send(newErrorEvent(msg.Context, NewError(ErrorValidation, "empty chat message")))
		return
	}

	s.chat.add(chatMsg)
	s.broadcast(&Event{Kind: EventChatMessage, Data: chatMsg})
}

// NOTE: must only be called from the run loop
func (s *Session) addSystemChat(message string) {
	msg := newSystemChatMessage(message)
	s.chat.add(msg)
	s.broadcast(&Event{Kind: EventChatMessage, Data: msg})
}

// broadcast queues the event on every connected client. Sends never
// block; the actual network writes happen on each client's write loop.
func (s *Session) broadcast(event *Event) {
	for _, client := range s.Clients() {
		client.Send(event)
	}
}

// broadcastViews sends each recipient their own redacted snapshot
// NOTE: must only be called from the run loop
func (s *Session) broadcastViews() {
	for _, client := range s.Clients() {
		playerID := int64(0)
		if !client.spectator {
			playerID = client.Player().ID
		}

		client.Send(&Event{Kind: EventGameState, Data: s.game.ViewFor(playerID)})
	}
}

// NOTE: must only be called from the run loop
func (s *Session) broadcastTurn() {
	if s.game.State() != matatu.StateActive {
		return
	}

	s.broadcast(&Event{Kind: EventTurnChanged, Data: turnChangedData{
		PlayerID:  s.game.CurrentTurn(),
		Direction: s.game.Direction(),
	}})
}

// NOTE: must only be called from the run loop
func (s *Session) endGame(reason string) {
	if s.result != nil {
		return
	}

	if s.game.State() != matatu.StateCompleted {
		winnerID := int64(0)
		for id := range s.seats {
			winnerID = id
			break
		}

		if err := s.game.ForceEnd(winnerID); err != nil {
			logrus.WithError(err).WithField("sessionId", s.ID).Error("could not force-end game")
			return
		}
	}

	result := s.buildResult(reason)
	s.result = result

	winnerName := ""
	if winnerID, won := s.game.Winner(); won {
		if st, found := s.seats[winnerID]; found {
			winnerName = st.player.Username
		}
	}

	s.broadcast(&Event{Kind: EventGameOver, Data: map[string]interface{}{
		"winnerId":       result.WinnerID,
		"winner":         winnerName,
		"reason":         reason,
		"stakeDeltas":    result.StakeDeltas,
		"cardsRemaining": result.CardsRemaining,
		"durationMs":     int64(result.Duration / time.Millisecond),
	}})

	if winnerName != "" {
		s.addSystemChat(fmt.Sprintf("%s won the game!", winnerName))
	} else {
		s.addSystemChat("The game ended in a draw.")
	}

	go s.settle(result)

	s.disposeTimer = time.AfterFunc(s.cfg.Retention, func() {
		s.do(s.dispose)
	})
}

// settle credits the deltas, persists the result, and notifies the
// achievement pipeline. Everything here is best-effort: failures are
// logged and flagged but never reverse the decided outcome. Runs off the
// run loop.
func (s *Session) settle(result *history.GameResult) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("sessionId", s.ID).WithField("panic", r).
				Error("settlement fault; result flagged for reconciliation")
			result.Flagged = true
			s.persistResult(result)
		}
	}()

	ctx := context.Background()
	for playerID, delta := range result.StakeDeltas {
		refund := s.Stake + delta
		if refund <= 0 {
			continue
		}

		if err := s.deps.Accounts.Credit(ctx, playerID, refund); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"sessionId": s.ID,
				"playerId":  playerID,
			}).Error("settlement credit failed")
			result.Flagged = true
		}
	}

	s.persistResult(result)

	for playerID, delta := range result.StakeDeltas {
		s.deps.Notifier.GameCompleted(ctx, notify.Outcome{
			PlayerID:   playerID,
			SessionID:  s.ID,
			Won:        playerID == result.WinnerID,
			StakeDelta: delta,
			DurationMS: int64(result.Duration / time.Millisecond),
		})
	}
}

func (s *Session) persistResult(result *history.GameResult) {
	if err := s.deps.Results.SaveResult(context.Background(), result); err != nil {
		logrus.WithError(err).WithField("sessionId", s.ID).Error("could not persist game result")
	}
}

// dispose tears the room down after the retention window
// NOTE: must only be called from the run loop
func (s *Session) dispose() {
	for _, client := range s.Clients() {
		select {
		case client.Close <- "room closed":
		default:
		}
	}

	if s.onDispose != nil {
		s.onDispose(s.ID)
	}

	s.shutdown()
}
