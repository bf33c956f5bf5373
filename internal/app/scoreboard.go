package app

import (
	"sort"
	"sync"
	"time"

	"sporcle-bot/internal/domain"
)

// Scoreboard credits chatters whose guesses were accepted and fans snapshots
// out to subscribers such as the stream overlay.
type Scoreboard struct {
	now          func() time.Time
	mu           sync.RWMutex
	quizID       string
	contributors map[string]*domain.Contributor
	subscribers  map[chan domain.Scoreboard]struct{}
}

func NewScoreboard() *Scoreboard {
	return newScoreboardWithClock(time.Now)
}

// newScoreboardWithClock allows deterministic timestamps in tests.
func newScoreboardWithClock(now func() time.Time) *Scoreboard {
	return &Scoreboard{
		now:          now,
		contributors: make(map[string]*domain.Contributor),
		subscribers:  make(map[chan domain.Scoreboard]struct{}),
	}
}

// Reset starts an empty board for a new quiz.
func (b *Scoreboard) Reset(quizID string) domain.Scoreboard {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quizID = quizID
	b.contributors = make(map[string]*domain.Contributor)
	return b.broadcastLocked()
}

// Credit records one accepted answer for user.
func (b *Scoreboard) Credit(user, displayName string) domain.Scoreboard {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if c, ok := b.contributors[user]; ok {
		c.DisplayName = displayName
		c.Correct++
		c.LastUpdated = now
	} else {
		b.contributors[user] = &domain.Contributor{
			User:        user,
			DisplayName: displayName,
			Correct:     1,
			LastUpdated: now,
		}
	}
	return b.broadcastLocked()
}

func (b *Scoreboard) Snapshot() domain.Scoreboard {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshotLocked()
}

// Subscribe returns a channel that receives every board change, starting with
// the current snapshot. The caller must invoke cancel to avoid leaks.
func (b *Scoreboard) Subscribe() (<-chan domain.Scoreboard, func()) {
	ch := make(chan domain.Scoreboard, 8)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	initial := b.snapshotLocked()
	b.mu.Unlock()

	ch <- initial

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *Scoreboard) broadcastLocked() domain.Scoreboard {
	sb := b.snapshotLocked()
	for ch := range b.subscribers {
		select {
		case ch <- sb:
		default:
			// slow subscriber: drop its oldest snapshot
			select {
			case <-ch:
			default:
			}
			ch <- sb
		}
	}
	return sb
}

// snapshotLocked orders by correct answers, then who got there first, then name.
func (b *Scoreboard) snapshotLocked() domain.Scoreboard {
	entries := make([]domain.ScoreboardEntry, 0, len(b.contributors))
	for _, c := range b.contributors {
		entries = append(entries, domain.ScoreboardEntry{
			User:        c.User,
			DisplayName: c.DisplayName,
			Correct:     c.Correct,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Correct != entries[j].Correct {
			return entries[i].Correct > entries[j].Correct
		}
		ci := b.contributors[entries[i].User]
		cj := b.contributors[entries[j].User]
		if !ci.LastUpdated.Equal(cj.LastUpdated) {
			return ci.LastUpdated.Before(cj.LastUpdated)
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})

	return domain.Scoreboard{
		QuizID:    b.quizID,
		Entries:   entries,
		UpdatedAt: b.now(),
	}
}
