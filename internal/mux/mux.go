package mux

import (
	"context"
	"matatu-server/internal/config"
	"matatu-server/internal/jwt"
	"matatu-server/pkg/account"
	"matatu-server/pkg/history"
	"matatu-server/pkg/matchmaker"
	"matatu-server/pkg/notify"
	"matatu-server/pkg/room"
	"net/http"
	"strconv"
	"strings"

	gmux "github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type ctxKey int

const (
	ctxPlayerKey ctxKey = iota
	ctxSessionKey
)

// Mux handles HTTP requests
type Mux struct {
	*gmux.Router
	version  string
	lobby    *room.Lobby
	registry *room.Registry
	matcher  *matchmaker.Matchmaker
	accounts account.Service

	// store for testing purposes
	authRouter *gmux.Router
}

// NewMux returns a new HTTP mux backed by the database services
func NewMux(version string) *Mux {
	return newMux(version, room.Deps{
		Accounts: account.Postgres{},
		Results:  history.Postgres{},
		Notifier: notify.Log{},
	})
}

func newMux(version string, deps room.Deps) *Mux {
	cfg := config.Instance()

	this := &Mux{
		Router:   gmux.NewRouter(),
		version:  version,
		registry: room.NewRegistry(),
		accounts: deps.Accounts,
	}

	this.lobby = room.NewLobby(room.Config{
		StartDelay:      cfg.StartDelay(),
		DisconnectGrace: cfg.DisconnectGrace(),
		Retention:       cfg.Retention(),
		MaxStakeLoss:    cfg.Game.MaxStakeLoss,
	}, deps)

	this.matcher = matchmaker.New(cfg.MatchTimeout(), this.matchFound, this.matchExpired)

	this.authRouter = this.Router.NewRoute().Subrouter()
	this.authRouter.Use(this.authMiddleware)

	// unauthorized endpoints
	{
		r := this.Router
		r.Methods(http.MethodGet).Path("/health").Handler(this.getHealth())
	}

	// requires bearer authorization
	{
		r := this.authRouter

		r.Methods(http.MethodGet).Path("/session").Handler(this.getSession())
		r.Methods(http.MethodPost).Path("/session").Handler(this.postSession())
		r.Methods(http.MethodGet).Path("/session/code/{code:[A-Za-z0-9]+}").Handler(this.getSessionCode())

		sr := r.PathPrefix("/session/{uuid:(?i)[a-f0-9]{8}(?:-[a-f0-9]{4}){3}-[a-f0-9]{12}}").Subrouter()
		sr.Use(this.sessionMiddleware)

		sr.Methods(http.MethodGet).Path("").Handler(this.getSessionUUID())
		sr.Methods(http.MethodGet).Path("/ws").Handler(this.getSessionUUIDWS())

		r.Methods(http.MethodGet).Path("/queue").Handler(this.getQueue())
		r.Methods(http.MethodPost).Path("/queue").Handler(this.postQueue())
		r.Methods(http.MethodDelete).Path("/queue").Handler(this.deleteQueue())
	}

	return this
}

// matchFound seats a formed match in a fresh private room and tells each
// player where to connect
func (m *Mux) matchFound(match matchmaker.Match) {
	session, err := m.lobby.CreateSession(room.CreateOptions{
		Name:    "Quick match",
		Private: true,
		Stake:   match.Stake,
	})
	if err != nil {
		logrus.WithError(err).Error("could not create session for match")
		return
	}

	for _, player := range match.Players {
		m.registry.Push(player.ID, &room.Event{
			Kind: room.EventMatchFound,
			Data: map[string]interface{}{
				"sessionId": session.ID,
				"stake":     match.Stake,
			},
		})
	}
}

func (m *Mux) matchExpired(ticket matchmaker.Ticket) {
	m.registry.Push(ticket.Player.ID, &room.Event{
		Kind: room.EventQueueUpdate,
		Data: map[string]interface{}{
			"status": "expired",
			"stake":  ticket.Stake,
		},
	})
}

func (m *Mux) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.FormValue("access_token")
		if token == "" {
			authHeader := strings.Split(r.Header.Get("Authorization"), " ")
			if len(authHeader) != 2 || strings.ToLower(authHeader[0]) != "bearer" {
				writeJSONError(w, http.StatusUnauthorized, nil)
				return
			}

			token = authHeader[1]
		}

		id, err := jwt.ValidPlayerID(token)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, nil)
			return
		}

		player, err := m.accounts.Player(r.Context(), id)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, nil)
			return
		}

		newCtx := context.WithValue(r.Context(), ctxPlayerKey, player)
		w.Header().Set("Matatu-PlayerID", strconv.FormatInt(player.ID, 10))
		next.ServeHTTP(w, r.WithContext(newCtx))
	})
}

// sessionMiddleware requires authMiddleware to execute first
func (m *Mux) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, found := m.lobby.Session(gmux.Vars(r)["uuid"])
		if !found {
			writeJSONError(w, http.StatusNotFound, nil)
			return
		}

		newCtx := context.WithValue(r.Context(), ctxSessionKey, session)
		next.ServeHTTP(w, r.WithContext(newCtx))
	})
}
