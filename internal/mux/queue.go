package mux

import (
	"errors"
	"net/http"

	"matatu-server/pkg/account"
	"matatu-server/pkg/matchmaker"
)

type queueStatusResponse struct {
	Queued  bool `json:"queued"`
	Waiting int  `json:"waiting,omitempty"`
	// EstimatedWaitSeconds is a rough guess, not a promise
	EstimatedWaitSeconds int `json:"estimatedWaitSeconds,omitempty"`
}

func (m *Mux) getQueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		player := r.Context().Value(ctxPlayerKey).(*account.Player)
		writeJSON(w, http.StatusOK, queueStatusResponse{
			Queued: m.matcher.IsQueued(player.ID),
		})
	}
}

type postQueuePayload struct {
	Stake  int    `json:"stake"`
	Bucket string `json:"bucket"`
}

func (m *Mux) postQueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var pp postQueuePayload
		if !decodeRequest(w, r, &pp) {
			return
		}

		if pp.Stake <= 0 {
			writeJSONError(w, http.StatusBadRequest, errors.New("stake must be greater than zero"))
			return
		}

		player := r.Context().Value(ctxPlayerKey).(*account.Player)
		if player.Balance < pp.Stake {
			writeJSONError(w, http.StatusBadRequest, errors.New("balance cannot cover the stake"))
			return
		}

		if pp.Bucket == "" {
			pp.Bucket = player.SkillTier
		}

		if err := m.matcher.Enqueue(player, pp.Stake, pp.Bucket); err != nil {
			if err == matchmaker.ErrAlreadyQueued {
				writeJSONError(w, http.StatusConflict, err)
			} else {
				writeJSONError(w, http.StatusInternalServerError, err)
			}
			return
		}

		waiting := m.matcher.Queued(pp.Stake)
		estimate := 30
		if waiting > 1 {
			estimate = 10
		}

		writeJSON(w, http.StatusCreated, queueStatusResponse{
			Queued:               true,
			Waiting:              waiting,
			EstimatedWaitSeconds: estimate,
		})
	}
}

func (m *Mux) deleteQueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		player := r.Context().Value(ctxPlayerKey).(*account.Player)
		if !m.matcher.Withdraw(player.ID) {
			writeJSONError(w, http.StatusNotFound, errors.New("player is not queued"))
			return
		}

		writeJSON(w, http.StatusOK, queueStatusResponse{Queued: false})
	}
}
