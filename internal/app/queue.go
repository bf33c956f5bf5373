package app

import (
	"context"
	"sync"
	"time"

	"sporcle-bot/internal/logging"
)

// MessageSender delivers one chat message to a channel.
type MessageSender interface {
	SendMessage(channel, text string) error
}

const defaultColor = "#000000"

type outgoingMessage struct {
	text    string
	channel string
}

// OutgoingQueue spaces chat messages at least one cooldown apart. A send
// takes the single flood token; the token returns when the cooldown timer
// fires, and the timer callback then sends the next pending message.
type OutgoingQueue struct {
	sender   MessageSender
	log      *logging.Logger
	cooldown time.Duration
	settle   time.Duration

	mu       sync.Mutex
	inFlight bool
	pending  []outgoingMessage
	color    string
	timer    *time.Timer
	closed   bool
}

// NewOutgoingQueue builds a queue. settle is the pause between a colour change
// and the message it colours.
func NewOutgoingQueue(sender MessageSender, cooldown, settle time.Duration, log *logging.Logger) *OutgoingQueue {
	return &OutgoingQueue{
		sender:   sender,
		log:      log,
		cooldown: cooldown,
		settle:   settle,
		color:    defaultColor,
	}
}

// Enqueue sends the message now if the flood token is free and nothing is
// waiting, and reports whether it did. Otherwise the message joins the tail.
func (q *OutgoingQueue) Enqueue(text, channel string) bool {
	msg := outgoingMessage{text: text, channel: channel}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	if q.inFlight || len(q.pending) > 0 {
		q.pending = append(q.pending, msg)
		q.mu.Unlock()
		return false
	}
	q.inFlight = true
	q.mu.Unlock()

	q.send(msg)
	return true
}

func (q *OutgoingQueue) send(msg outgoingMessage) {
	if err := q.sender.SendMessage(msg.channel, msg.text); err != nil {
		q.log.Errorf("send to %s: %v", msg.channel, err)
	} else {
		q.log.Debugf("> PRIVMSG %s :%s", msg.channel, msg.text)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.timer = time.AfterFunc(q.cooldown, q.release)
}

// release returns the flood token and sends the head of the queue, if any.
func (q *OutgoingQueue) release() {
	q.mu.Lock()
	q.inFlight = false
	next, ok := q.claimLocked()
	q.mu.Unlock()

	if ok {
		q.send(next)
	}
}

// claimLocked pops the head and takes the token in one step, so a concurrent
// Enqueue can never slip in front of it.
func (q *OutgoingQueue) claimLocked() (outgoingMessage, bool) {
	if q.closed || q.inFlight || len(q.pending) == 0 {
		return outgoingMessage{}, false
	}
	next := q.pending[0]
	q.pending = q.pending[1:]
	q.inFlight = true
	return next, true
}

// ChangeColor queues a colour change unless color is already current.
func (q *OutgoingQueue) ChangeColor(color, channel string) bool {
	q.mu.Lock()
	if color == q.color {
		q.mu.Unlock()
		return false
	}
	q.color = color
	q.mu.Unlock()

	q.Enqueue("/color "+color, channel)
	return true
}

// SendColored switches colour if needed, gives the change time to settle, then
// queues the message. An empty color sends in the current colour.
func (q *OutgoingQueue) SendColored(ctx context.Context, text, color, channel string) error {
	if color != "" && q.ChangeColor(color, channel) && q.settle > 0 {
		t := time.NewTimer(q.settle)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	q.Enqueue(text, channel)
	return nil
}

// Len returns how many messages are waiting for the flood token.
func (q *OutgoingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Color returns the colour the bot last switched to.
func (q *OutgoingQueue) Color() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.color
}

// Close stops the cooldown timer and drops pending messages.
func (q *OutgoingQueue) Close() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	if q.timer != nil {
		q.timer.Stop()
	}
	dropped := len(q.pending)
	q.pending = nil
	return dropped
}
