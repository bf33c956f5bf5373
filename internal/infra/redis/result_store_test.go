package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"sporcle-bot/internal/domain"
)

func newStore(t *testing.T, ttl time.Duration) (*ResultStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewResultStore(client, ttl), mr
}

func sampleResult(id string, score int) domain.QuizResult {
	started := time.Date(2026, 10, 18, 20, 0, 0, 0, time.UTC)
	return domain.QuizResult{
		ID:        id,
		URL:       "https://www.sporcle.com/games/g/capitals",
		Score:     score,
		MaxScore:  10,
		Guesses:   14,
		Accepted:  score,
		StartedAt: started,
		EndedAt:   started.Add(4 * time.Minute),
		Contributors: []domain.ScoreboardEntry{
			{User: "alice", DisplayName: "Alice", Correct: score - 1},
			{User: "bob", DisplayName: "Bob", Correct: 1},
		},
	}
}

func TestResultStoreStats(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t, 0)
	url := "https://www.sporcle.com/games/g/capitals"

	if _, err := store.Stats(ctx, url); !errors.Is(err, domain.ErrResultNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	for i, score := range []int{6, 9, 4} {
		if err := store.Record(ctx, sampleResult(string(rune('a'+i)), score)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	stats, err := store.Stats(ctx, url)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Plays != 3 || stats.BestScore != 9 || stats.MaxScore != 10 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestResultStoreRoundTripsResult(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t, 0)
	want := sampleResult("r1", 7)
	want.ForcedOrder = true

	if err := store.Record(ctx, want); err != nil {
		t.Fatalf("record: %v", err)
	}
	got, err := store.Result(ctx, "r1")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if got.URL != want.URL || got.Score != 7 || !got.ForcedOrder || got.Guesses != 14 {
		t.Fatalf("unexpected result %+v", got)
	}
	if !got.EndedAt.Equal(want.EndedAt) || len(got.Contributors) != 2 || got.Contributors[0].DisplayName != "Alice" {
		t.Fatalf("unexpected details %+v", got)
	}
}

func TestResultStoreExpiresResultsButKeepsStats(t *testing.T) {
	ctx := context.Background()
	store, mr := newStore(t, time.Minute)

	if err := store.Record(ctx, sampleResult("r1", 5)); err != nil {
		t.Fatalf("record: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := store.Result(ctx, "r1"); !errors.Is(err, domain.ErrResultNotFound) {
		t.Fatalf("expected expired result, got %v", err)
	}
	if _, err := store.Stats(ctx, sampleResult("", 0).URL); err != nil {
		t.Fatalf("expected stats kept, got %v", err)
	}
}

func TestResultStoreTopGuessers(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t, 0)

	_ = store.Record(ctx, sampleResult("r1", 5))
	_ = store.Record(ctx, sampleResult("r2", 3))

	top, err := store.TopGuessers(ctx, 1)
	if err != nil {
		t.Fatalf("top guessers: %v", err)
	}
	if len(top) != 1 || top[0].User != "alice" || top[0].Correct != 6 {
		t.Fatalf("unexpected ranking %+v", top)
	}
	if none, _ := store.TopGuessers(ctx, 0); none != nil {
		t.Fatalf("expected nothing for n=0")
	}
}
