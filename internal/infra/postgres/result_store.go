package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4/pgxpool"

	"sporcle-bot/internal/domain"
)

const (
	table          = "quiz_results"
	colID          = "id"
	colURL         = "url"
	colScore       = "score"
	colMaxScore    = "max_score"
	colForcedOrder = "forced_order"
	colGuesses     = "guesses"
	colAccepted    = "accepted"
	colStartedAt   = "started_at"
	colEndedAt     = "ended_at"
	colContribs    = "contributors"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ResultStore records finished quizzes in the quiz_results table.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) Record(ctx context.Context, result domain.QuizResult) error {
	sqlStr, args, err := insertResultQuery(result)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert result %s: %w", result.ID, err)
	}
	return nil
}

func (s *ResultStore) Stats(ctx context.Context, url string) (domain.QuizStats, error) {
	sqlStr, args, err := statsQuery(url).ToSql()
	if err != nil {
		return domain.QuizStats{}, err
	}

	stats := domain.QuizStats{URL: url}
	err = s.pool.QueryRow(ctx, sqlStr, args...).Scan(&stats.Plays, &stats.BestScore, &stats.MaxScore)
	if err != nil {
		return domain.QuizStats{}, fmt.Errorf("stats %s: %w", url, err)
	}
	if stats.Plays == 0 {
		return domain.QuizStats{}, domain.ErrResultNotFound
	}
	return stats, nil
}

// TopGuessers sums accepted answers per chatter across every recorded quiz.
func (s *ResultStore) TopGuessers(ctx context.Context, n int) ([]domain.ScoreboardEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	sqlStr, args, err := topGuessersQuery(n).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("top guessers: %w", err)
	}
	defer rows.Close()

	var entries []domain.ScoreboardEntry
	for rows.Next() {
		var e domain.ScoreboardEntry
		if err := rows.Scan(&e.User, &e.DisplayName, &e.Correct); err != nil {
			return nil, fmt.Errorf("scan guesser: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func insertResultQuery(result domain.QuizResult) (string, []interface{}, error) {
	contributors := result.Contributors
	if contributors == nil {
		contributors = []domain.ScoreboardEntry{}
	}
	raw, err := json.Marshal(contributors)
	if err != nil {
		return "", nil, fmt.Errorf("encode contributors: %w", err)
	}

	var startedAt interface{}
	if !result.StartedAt.IsZero() {
		startedAt = result.StartedAt
	}

	return psql.Insert(table).
		Columns(colID, colURL, colScore, colMaxScore, colForcedOrder, colGuesses, colAccepted, colStartedAt, colEndedAt, colContribs).
		Values(result.ID, result.URL, result.Score, result.MaxScore, result.ForcedOrder, result.Guesses, result.Accepted, startedAt, result.EndedAt, string(raw)).
		ToSql()
}

func statsQuery(url string) sq.SelectBuilder {
	return psql.Select(
		"COUNT(*)",
		fmt.Sprintf("COALESCE(MAX(%s), 0)", colScore),
		fmt.Sprintf("COALESCE(MAX(%s), 0)", colMaxScore),
	).
		From(table).
		Where(sq.Eq{colURL: url})
}

func topGuessersQuery(n int) sq.SelectBuilder {
	return psql.Select(
		"c->>'user' AS username",
		"MAX(c->>'displayName') AS display_name",
		"SUM((c->>'correct')::int) AS total",
	).
		From(fmt.Sprintf("%s, jsonb_array_elements(%s) AS c", table, colContribs)).
		GroupBy("username").
		OrderBy("total DESC", "username").
		Limit(uint64(n))
}
