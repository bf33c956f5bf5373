package memory

import (
	"context"
	"sort"
	"sync"

	"sporcle-bot/internal/domain"
)

// ResultStore is an in-memory implementation of app.ResultRepository.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string][]domain.QuizResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		results: make(map[string][]domain.QuizResult),
	}
}

func (s *ResultStore) Record(_ context.Context, result domain.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.URL] = append(s.results[result.URL], result)
	return nil
}

func (s *ResultStore) Stats(_ context.Context, url string) (domain.QuizStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results, ok := s.results[url]
	if !ok || len(results) == 0 {
		return domain.QuizStats{}, domain.ErrResultNotFound
	}
	stats := domain.QuizStats{URL: url, Plays: len(results)}
	for _, r := range results {
		stats.BestScore = max(stats.BestScore, r.Score)
		stats.MaxScore = max(stats.MaxScore, r.MaxScore)
	}
	return stats, nil
}

// Results returns every recorded result for url, oldest first.
func (s *ResultStore) Results(url string) []domain.QuizResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.QuizResult(nil), s.results[url]...)
}

// TopGuessers sums accepted answers per chatter across every recorded quiz.
func (s *ResultStore) TopGuessers(_ context.Context, n int) ([]domain.ScoreboardEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	totals := make(map[string]*domain.ScoreboardEntry)
	for _, results := range s.results {
		for _, r := range results {
			for _, c := range r.Contributors {
				e, ok := totals[c.User]
				if !ok {
					e = &domain.ScoreboardEntry{User: c.User}
					totals[c.User] = e
				}
				e.DisplayName = c.DisplayName
				e.Correct += c.Correct
			}
		}
	}
	s.mu.RUnlock()

	entries := make([]domain.ScoreboardEntry, 0, len(totals))
	for _, e := range totals {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Correct != entries[j].Correct {
			return entries[i].Correct > entries[j].Correct
		}
		return entries[i].User < entries[j].User
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}
