package mux

import (
	"errors"
	"net/http"
	"regexp"

	gmux "github.com/gorilla/mux"

	"matatu-server/pkg/room"
)

func (m *Mux) getSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.lobby.List())
	}
}

type postSessionPayload struct {
	Name    string `json:"name"`
	Private bool   `json:"private"`
	Stake   int    `json:"stake"`
}

type postSessionResponse struct {
	room.Info
	JoinCode string `json:"joinCode"`
}

func (m *Mux) postSession() http.HandlerFunc {
	var wordChar = regexp.MustCompile(`\w`)
	return func(w http.ResponseWriter, r *http.Request) {
		var pp postSessionPayload
		if !decodeRequest(w, r, &pp) {
			return
		}

		if !wordChar.MatchString(pp.Name) || len(pp.Name) < 3 || len(pp.Name) > 40 {
			writeJSONError(w, http.StatusBadRequest, errors.New("name must be 3-40 characters"))
			return
		}

		if pp.Stake < 0 {
			writeJSONError(w, http.StatusBadRequest, errors.New("stake cannot be negative"))
			return
		}

		session, err := m.lobby.CreateSession(room.CreateOptions{
			Name:    pp.Name,
			Private: pp.Private,
			Stake:   pp.Stake,
		})
		if err != nil {
			writeRoomError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, postSessionResponse{
			Info:     session.Info(),
			JoinCode: session.JoinCode,
		})
	}
}

func (m *Mux) getSessionCode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, found := m.lobby.SessionByCode(gmux.Vars(r)["code"])
		if !found {
			writeJSONError(w, http.StatusNotFound, nil)
			return
		}

		writeJSON(w, http.StatusOK, session.Info())
	}
}

func (m *Mux) getSessionUUID() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := r.Context().Value(ctxSessionKey).(*room.Session)
		writeJSON(w, http.StatusOK, session.Info())
	})
}
