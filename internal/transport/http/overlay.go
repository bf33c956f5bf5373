// Package http serves the stream overlay: a JSON view of the live scoreboard,
// quiz stats and the all-time ranking, plus a websocket feed of board changes.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"sporcle-bot/internal/domain"
	"sporcle-bot/internal/logging"
)

// StatsSource answers per-quiz statistics.
type StatsSource interface {
	Stats(ctx context.Context, url string) (domain.QuizStats, error)
}

// Leaderboard ranks chatters across every recorded quiz.
type Leaderboard interface {
	TopGuessers(ctx context.Context, n int) ([]domain.ScoreboardEntry, error)
}

const defaultLeaderboardSize = 10

type Overlay struct {
	board       ScoreboardSource
	stats       StatsSource
	leaderboard Leaderboard
	log         *logging.Logger
}

// NewOverlay builds the overlay handlers. stats and leaderboard may be nil,
// in which case their routes answer 404.
func NewOverlay(board ScoreboardSource, stats StatsSource, leaderboard Leaderboard, log *logging.Logger) *Overlay {
	return &Overlay{board: board, stats: stats, leaderboard: leaderboard, log: log}
}

func (o *Overlay) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         60 * 15,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/scoreboard", o.Scoreboard)
	r.Get("/stats", o.Stats)
	r.Get("/leaderboard", o.Leaderboard)
	r.Get("/ws", NewWSHandler(o.board, o.log).ServeWS)
	return r
}

func (o *Overlay) Scoreboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, o.board.Snapshot())
}

// Stats answers ?url=<quiz>; without url it uses the quiz on the board.
func (o *Overlay) Stats(w http.ResponseWriter, r *http.Request) {
	if o.stats == nil {
		http.NotFound(w, r)
		return
	}
	url := r.URL.Query().Get("url")
	if url == "" {
		url = o.board.Snapshot().QuizID
	}
	if url == "" {
		writeError(w, http.StatusBadRequest, "no quiz selected")
		return
	}

	stats, err := o.stats.Stats(r.Context(), url)
	if errors.Is(err, domain.ErrResultNotFound) {
		writeError(w, http.StatusNotFound, "no recorded plays")
		return
	}
	if err != nil {
		o.log.Errorf("overlay stats: %v", err)
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Leaderboard answers ?n=<size>, default 10.
func (o *Overlay) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if o.leaderboard == nil {
		http.NotFound(w, r)
		return
	}
	n := defaultLeaderboardSize
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > 100 {
			writeError(w, http.StatusBadRequest, "n must be between 1 and 100")
			return
		}
		n = v
	}

	entries, err := o.leaderboard.TopGuessers(r.Context(), n)
	if err != nil {
		o.log.Errorf("overlay leaderboard: %v", err)
		writeError(w, http.StatusInternalServerError, "leaderboard unavailable")
		return
	}
	if entries == nil {
		entries = []domain.ScoreboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorPayload{Message: msg})
}
