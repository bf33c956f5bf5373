package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"sporcle-bot/internal/app"
	"sporcle-bot/internal/domain"
	"sporcle-bot/internal/infra/memory"
	"sporcle-bot/internal/logging"
)

func newOverlayServer(t *testing.T) (*app.Scoreboard, *memory.ResultStore, *httptest.Server) {
	t.Helper()
	board := app.NewScoreboard()
	results := memory.NewResultStore()
	overlay := NewOverlay(board, results, results, logging.Discard())
	server := httptest.NewServer(overlay.Router())
	t.Cleanup(server.Close)
	return board, results, server
}

func TestScoreboardEndpoint(t *testing.T) {
	board, _, server := newOverlayServer(t)
	board.Reset("https://q/1")
	board.Credit("alice", "Alice")

	resp, err := http.Get(server.URL + "/scoreboard")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}
	var sb domain.Scoreboard
	if err := json.NewDecoder(resp.Body).Decode(&sb); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sb.QuizID != "https://q/1" || len(sb.Entries) != 1 || sb.Entries[0].Correct != 1 {
		t.Fatalf("unexpected scoreboard %+v", sb)
	}
}

func TestStatsEndpoint(t *testing.T) {
	board, results, server := newOverlayServer(t)

	resp, err := http.Get(server.URL + "/stats")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without a quiz, got %d", resp.StatusCode)
	}

	board.Reset("https://q/1")
	resp, err = http.Get(server.URL + "/stats")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before any play, got %d", resp.StatusCode)
	}

	_ = results.Record(context.Background(), domain.QuizResult{URL: "https://q/1", Score: 4, MaxScore: 5})
	resp, err = http.Get(server.URL + "/stats")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var stats domain.QuizStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Plays != 1 || stats.BestScore != 4 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	_, results, server := newOverlayServer(t)
	_ = results.Record(context.Background(), domain.QuizResult{URL: "a", Contributors: []domain.ScoreboardEntry{
		{User: "bob", DisplayName: "Bob", Correct: 2},
		{User: "alice", DisplayName: "Alice", Correct: 3},
	}})

	resp, err := http.Get(server.URL + "/leaderboard?n=1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var entries []domain.ScoreboardEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].User != "alice" {
		t.Fatalf("unexpected leaderboard %+v", entries)
	}

	bad, err := http.Get(server.URL + "/leaderboard?n=zero")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", bad.StatusCode)
	}
}

func TestOptionalRoutesWithoutStore(t *testing.T) {
	overlay := NewOverlay(app.NewScoreboard(), nil, nil, logging.Discard())
	server := httptest.NewServer(overlay.Router())
	defer server.Close()

	for _, path := range []string{"/stats?url=x", "/leaderboard"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, resp.StatusCode)
		}
	}
}

func TestWebSocketStreamsScoreboard(t *testing.T) {
	board, _, server := newOverlayServer(t)
	board.Reset("quiz-1")

	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	typ, sb := readNext(t, conn)
	if typ != "scoreboard" || sb.QuizID != "quiz-1" {
		t.Fatalf("expected initial scoreboard, got %s %+v", typ, sb)
	}

	board.Credit("alice", "Alice")
	typ, sb = readNext(t, conn)
	if typ != "scoreboard" || len(sb.Entries) != 1 || sb.Entries[0].DisplayName != "Alice" {
		t.Fatalf("expected credited scoreboard, got %s %+v", typ, sb)
	}

	if err := conn.WriteJSON(map[string]any{"type": "refresh"}); err != nil {
		t.Fatalf("write refresh: %v", err)
	}
	typ, sb = readNext(t, conn)
	if typ != "scoreboard" || len(sb.Entries) != 1 {
		t.Fatalf("expected refreshed scoreboard, got %s %+v", typ, sb)
	}

	if err := conn.WriteJSON(map[string]any{"type": "answer"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if typ, _ = readNext(t, conn); typ != "error" {
		t.Fatalf("expected error for unsupported message, got %s", typ)
	}
}

func readNext(t *testing.T, conn *websocket.Conn) (string, domain.Scoreboard) {
	t.Helper()
	var msg struct {
		Type    string            `json:"type"`
		Payload domain.Scoreboard `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}
