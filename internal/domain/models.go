package domain

import "time"

// QuizState is the lifecycle position of a quiz session.
type QuizState int

const (
	QuizUnstarted QuizState = iota
	QuizPlaying
	QuizPaused
	QuizFinished
)

func (s QuizState) String() string {
	switch s {
	case QuizUnstarted:
		return "unstarted"
	case QuizPlaying:
		return "playing"
	case QuizPaused:
		return "paused"
	case QuizFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Outcome summarizes what happened to a single guess.
type Outcome struct {
	Correct         bool `json:"correct"`
	Ended           bool `json:"ended"`
	AlreadyAccepted bool `json:"alreadyAccepted"`
}

// EventType distinguishes channel messages from whispers.
type EventType string

const (
	EventMessage EventType = "PRIVMSG"
	EventWhisper EventType = "WHISPER"
)

// Tags carries the IRCv3 tags of a chat line that the bot cares about.
type Tags struct {
	Broadcaster bool
	DisplayName string
	Raw         map[string]string
}

// ChatEvent is a single user line parsed from the chat transport.
type ChatEvent struct {
	User    string
	Type    EventType
	Channel string
	Text    string
	Tags    Tags
}

// Contributor tracks how many answers a chatter got accepted during a quiz.
type Contributor struct {
	User        string
	DisplayName string
	Correct     int
	LastUpdated time.Time
}

// ScoreboardEntry is a snapshot-friendly view of a contributor.
type ScoreboardEntry struct {
	User        string `json:"user"`
	DisplayName string `json:"displayName"`
	Correct     int    `json:"correct"`
}

// Scoreboard captures the ordered contributors of the current quiz.
type Scoreboard struct {
	QuizID    string            `json:"quizId"`
	Entries   []ScoreboardEntry `json:"entries"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// QuizResult is the record kept for a finished quiz.
type QuizResult struct {
	ID           string            `json:"id"`
	URL          string            `json:"url"`
	Score        int               `json:"score"`
	MaxScore     int               `json:"maxScore"`
	ForcedOrder  bool              `json:"forcedOrder"`
	Guesses      int               `json:"guesses"`
	Accepted     int               `json:"accepted"`
	StartedAt    time.Time         `json:"startedAt"`
	EndedAt      time.Time         `json:"endedAt"`
	Contributors []ScoreboardEntry `json:"contributors"`
}

// QuizStats aggregates every recorded result of one quiz page.
type QuizStats struct {
	URL       string `json:"url"`
	Plays     int    `json:"plays"`
	BestScore int    `json:"bestScore"`
	MaxScore  int    `json:"maxScore"`
}
