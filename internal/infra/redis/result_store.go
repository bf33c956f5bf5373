package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"sporcle-bot/internal/domain"
)

// ResultStore keeps finished quizzes in Redis:
//
//	HSET  sporcle:result:{id}           url score max ... (expires after ttl)
//	ZADD  sporcle:quiz:{url}:scores     {score} {id}
//	HSET  sporcle:quiz:{url}:stats      plays max
//	ZINCRBY sporcle:guessers            {correct} {user}
//
// Per-quiz aggregates and the guesser ranking never expire.
type ResultStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultStore(client *redis.Client, ttl time.Duration) *ResultStore {
	return &ResultStore{client: client, ttl: ttl}
}

func (s *ResultStore) Record(ctx context.Context, result domain.QuizResult) error {
	contributors, err := json.Marshal(result.Contributors)
	if err != nil {
		return fmt.Errorf("encode contributors: %w", err)
	}

	resultKey := s.resultKey(result.ID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, resultKey,
		"url", result.URL,
		"score", result.Score,
		"max", result.MaxScore,
		"forced", strconv.FormatBool(result.ForcedOrder),
		"guesses", result.Guesses,
		"accepted", result.Accepted,
		"started", result.StartedAt.UTC().Format(time.RFC3339Nano),
		"ended", result.EndedAt.UTC().Format(time.RFC3339Nano),
		"contributors", string(contributors),
	)
	if s.ttl > 0 {
		pipe.Expire(ctx, resultKey, s.ttl)
	}
	pipe.ZAdd(ctx, s.scoresKey(result.URL), redis.Z{Score: float64(result.Score), Member: result.ID})
	pipe.HIncrBy(ctx, s.statsKey(result.URL), "plays", 1)
	pipe.HSet(ctx, s.statsKey(result.URL), "max", result.MaxScore)
	for _, c := range result.Contributors {
		pipe.ZIncrBy(ctx, guessersKey, float64(c.Correct), c.User)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record result %s: %w", result.ID, err)
	}
	return nil
}

func (s *ResultStore) Stats(ctx context.Context, url string) (domain.QuizStats, error) {
	fields, err := s.client.HGetAll(ctx, s.statsKey(url)).Result()
	if err != nil {
		return domain.QuizStats{}, fmt.Errorf("stats %s: %w", url, err)
	}
	plays, _ := strconv.Atoi(fields["plays"])
	if plays == 0 {
		return domain.QuizStats{}, domain.ErrResultNotFound
	}
	maxScore, _ := strconv.Atoi(fields["max"])

	stats := domain.QuizStats{URL: url, Plays: plays, MaxScore: maxScore}
	best, err := s.client.ZRevRangeWithScores(ctx, s.scoresKey(url), 0, 0).Result()
	if err != nil {
		return domain.QuizStats{}, fmt.Errorf("best score %s: %w", url, err)
	}
	if len(best) > 0 {
		stats.BestScore = int(best[0].Score)
	}
	return stats, nil
}

// Result loads one recorded result; expired or unknown ids are ErrResultNotFound.
func (s *ResultStore) Result(ctx context.Context, id string) (domain.QuizResult, error) {
	fields, err := s.client.HGetAll(ctx, s.resultKey(id)).Result()
	if err != nil {
		return domain.QuizResult{}, fmt.Errorf("result %s: %w", id, err)
	}
	if len(fields) == 0 {
		return domain.QuizResult{}, domain.ErrResultNotFound
	}

	result := domain.QuizResult{ID: id, URL: fields["url"]}
	result.Score, _ = strconv.Atoi(fields["score"])
	result.MaxScore, _ = strconv.Atoi(fields["max"])
	result.ForcedOrder, _ = strconv.ParseBool(fields["forced"])
	result.Guesses, _ = strconv.Atoi(fields["guesses"])
	result.Accepted, _ = strconv.Atoi(fields["accepted"])
	result.StartedAt, _ = time.Parse(time.RFC3339Nano, fields["started"])
	result.EndedAt, _ = time.Parse(time.RFC3339Nano, fields["ended"])
	if raw := fields["contributors"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &result.Contributors); err != nil {
			return domain.QuizResult{}, fmt.Errorf("decode contributors of %s: %w", id, err)
		}
	}
	return result, nil
}

// TopGuessers returns the all-time guesser ranking, best first.
func (s *ResultStore) TopGuessers(ctx context.Context, n int) ([]domain.ScoreboardEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	ranked, err := s.client.ZRevRangeWithScores(ctx, guessersKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("top guessers: %w", err)
	}
	entries := make([]domain.ScoreboardEntry, 0, len(ranked))
	for _, z := range ranked {
		user, _ := z.Member.(string)
		entries = append(entries, domain.ScoreboardEntry{User: user, DisplayName: user, Correct: int(z.Score)})
	}
	return entries, nil
}

const guessersKey = "sporcle:guessers"

func (s *ResultStore) resultKey(id string) string {
	return "sporcle:result:" + id
}

func (s *ResultStore) scoresKey(url string) string {
	return "sporcle:quiz:" + url + ":scores"
}

func (s *ResultStore) statsKey(url string) string {
	return "sporcle:quiz:" + url + ":stats"
}
