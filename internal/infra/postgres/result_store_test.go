package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sporcle-bot/internal/domain"
)

func TestInsertResultQuery(t *testing.T) {
	ended := time.Date(2026, 10, 18, 21, 0, 0, 0, time.UTC)
	sqlStr, args, err := insertResultQuery(domain.QuizResult{
		ID:       "r1",
		URL:      "https://q/1",
		Score:    3,
		MaxScore: 5,
		EndedAt:  ended,
	})
	require.NoError(t, err)

	assert.Equal(t,
		"INSERT INTO quiz_results (id,url,score,max_score,forced_order,guesses,accepted,started_at,ended_at,contributors) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)",
		sqlStr)
	require.Len(t, args, 10)
	assert.Equal(t, "r1", args[0])
	assert.Nil(t, args[7], "unstarted quizzes store a NULL start")
	assert.Equal(t, ended, args[8])
	assert.Equal(t, "[]", args[9])
}

func TestInsertResultQueryEncodesContributors(t *testing.T) {
	_, args, err := insertResultQuery(domain.QuizResult{
		ID:           "r2",
		StartedAt:    time.Now(),
		Contributors: []domain.ScoreboardEntry{{User: "alice", DisplayName: "Alice", Correct: 2}},
	})
	require.NoError(t, err)
	assert.NotNil(t, args[7])
	assert.JSONEq(t, `[{"user":"alice","displayName":"Alice","correct":2}]`, args[9].(string))
}

func TestStatsQuery(t *testing.T) {
	sqlStr, args, err := statsQuery("https://q/1").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*), COALESCE(MAX(score), 0), COALESCE(MAX(max_score), 0) FROM quiz_results WHERE url = $1", sqlStr)
	assert.Equal(t, []interface{}{"https://q/1"}, args)
}

func TestTopGuessersQuery(t *testing.T) {
	sqlStr, _, err := topGuessersQuery(5).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sqlStr, "FROM quiz_results, jsonb_array_elements(contributors) AS c")
	assert.Contains(t, sqlStr, "GROUP BY username ORDER BY total DESC, username LIMIT 5")
}
