package room

import (
	"time"

	"github.com/google/uuid"

	"matatu-server/pkg/history"
	"matatu-server/pkg/matatu"
)

// buildResult computes the settlement and assembles the one immutable
// record of this game. Losers forfeit a share of their stake proportional
// to the value of the cards left in their hand, capped at the configured
// maximum loss; the forfeited pot goes to the winner, split evenly among
// tied players in a stalemate. Players who left mid-game forfeit their
// whole escrow up to the cap.
// NOTE: must only be called from the run loop
func (s *Session) buildResult(reason string) *history.GameResult {
	winnerID, _ := s.game.Winner()
	_, tied := s.game.Stalemate()
	handValues := s.game.HandValues()
	cardsRemaining := s.game.CardsRemaining()

	winners := make(map[int64]bool)
	if winnerID != 0 {
		winners[winnerID] = true
	}
	for _, id := range tied {
		winners[id] = true
	}

	seated := make(map[int64]bool, len(s.seats))
	for id := range s.seats {
		seated[id] = true
	}

	deltas := computeStakeDeltas(s.Stake, s.cfg.MaxStakeLoss, winners, seated, handValues, s.escrowed)

	stats := make(map[int64]matatu.Stats, len(s.seats))
	for _, p := range s.game.Participants() {
		stats[p.PlayerID] = p.Stats
	}

	return &history.GameResult{
		ID:             uuid.New().String(),
		SessionID:      s.ID,
		WinnerID:       winnerID,
		Reason:         reason,
		StakeDeltas:    deltas,
		CardsRemaining: cardsRemaining,
		HandValues:     handValues,
		Stats:          stats,
		Duration:       s.game.Elapsed(),
		Created:        time.Now(),
	}
}

// computeStakeDeltas is the settlement itself, over escrowed stakes only.
// Every delta is relative to the stake already debited: a winner's delta is
// their share of the pot, a loser's delta is minus their forfeit, and the
// remainder of a loser's stake flows back at credit time.
func computeStakeDeltas(stake, maxLoss int, winners, seated map[int64]bool, handValues, escrowed map[int64]int) map[int64]int {
	totalValue := 0
	for id := range seated {
		if !winners[id] {
			totalValue += handValues[id]
		}
	}

	deltas := make(map[int64]int, len(escrowed))
	pot := 0
	for id, escrow := range escrowed {
		if winners[id] {
			deltas[id] = 0
			continue
		}

		var forfeit int
		if !seated[id] {
			// left mid-game
			forfeit = escrow
		} else if totalValue > 0 {
			forfeit = stake * handValues[id] / totalValue
		}

		if forfeit > maxLoss {
			forfeit = maxLoss
		}
		if forfeit > escrow {
			forfeit = escrow
		}

		deltas[id] = -forfeit
		pot += forfeit
	}

	if len(winners) > 0 {
		share := pot / len(winners)
		remainder := pot % len(winners)
		for id := range winners {
			deltas[id] = share
			if remainder > 0 {
				deltas[id]++
				remainder--
			}
		}
	}

	return deltas
}
