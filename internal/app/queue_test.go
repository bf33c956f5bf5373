package app_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"sporcle-bot/internal/app"
	"sporcle-bot/internal/logging"
)

func TestQueueSendsFirstAndHoldsSecond(t *testing.T) {
	chat := &fakeChat{}
	q := app.NewOutgoingQueue(chat, 30*time.Millisecond, 0, logging.Discard())
	defer q.Close()

	if !q.Enqueue("one", "#c") {
		t.Fatalf("expected first message sent immediately")
	}
	if q.Enqueue("two", "#c") {
		t.Fatalf("expected second message queued")
	}
	if got := chat.Messages(); len(got) != 1 || got[0] != "one" {
		t.Fatalf("expected only the first message sent, got %q", got)
	}
	if q.Len() != 1 {
		t.Fatalf("expected one pending message, got %d", q.Len())
	}

	waitFor(t, func() bool { return len(chat.Messages()) == 2 })
	if got := chat.Messages(); got[1] != "two" {
		t.Fatalf("expected second message after cooldown, got %q", got)
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue, got %d", q.Len())
	}
}

func TestQueuePreservesOrder(t *testing.T) {
	chat := &fakeChat{}
	q := app.NewOutgoingQueue(chat, 5*time.Millisecond, 0, logging.Discard())
	defer q.Close()

	want := []string{"a", "b", "c", "d", "e"}
	for _, m := range want {
		q.Enqueue(m, "#c")
	}
	waitFor(t, func() bool { return len(chat.Messages()) == len(want) })
	if got := strings.Join(chat.Messages(), ""); got != "abcde" {
		t.Fatalf("expected FIFO order, got %q", got)
	}
}

func TestQueueKeepsDrainingAfterSendError(t *testing.T) {
	chat := &fakeChat{failOn: "bad"}
	q := app.NewOutgoingQueue(chat, 5*time.Millisecond, 0, logging.Discard())
	defer q.Close()

	q.Enqueue("bad", "#c")
	q.Enqueue("good", "#c")
	waitFor(t, func() bool { return len(chat.Messages()) == 1 })
	if chat.Messages()[0] != "good" {
		t.Fatalf("expected the next message delivered, got %q", chat.Messages())
	}
}

func TestChangeColorOnlyOnChange(t *testing.T) {
	chat := &fakeChat{}
	q := app.NewOutgoingQueue(chat, time.Hour, 0, logging.Discard())
	defer q.Close()

	if q.Color() != "#000000" {
		t.Fatalf("expected default colour, got %s", q.Color())
	}
	if !q.ChangeColor("#FF0000", "#c") {
		t.Fatalf("expected colour change")
	}
	if q.ChangeColor("#FF0000", "#c") {
		t.Fatalf("expected repeated colour ignored")
	}
	if got := chat.Messages(); len(got) != 1 || got[0] != "/color #FF0000" {
		t.Fatalf("expected one colour command, got %q", got)
	}
	if q.Len() != 0 {
		t.Fatalf("expected nothing queued, got %d", q.Len())
	}
}

func TestSendColoredWaitsForSettle(t *testing.T) {
	chat := &fakeChat{}
	q := app.NewOutgoingQueue(chat, 5*time.Millisecond, 10*time.Millisecond, logging.Discard())
	defer q.Close()

	if err := q.SendColored(context.Background(), "hello", "#00FF00", "#c"); err != nil {
		t.Fatalf("send: %v", err)
	}
	waitFor(t, func() bool { return len(chat.Messages()) == 2 })
	got := chat.Messages()
	if got[0] != "/color #00FF00" || got[1] != "hello" {
		t.Fatalf("unexpected messages %q", got)
	}
}

func TestSendColoredHonoursCancel(t *testing.T) {
	chat := &fakeChat{}
	q := app.NewOutgoingQueue(chat, time.Millisecond, time.Hour, logging.Discard())
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.SendColored(ctx, "hello", "#00FF00", "#c"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestCloseDropsPending(t *testing.T) {
	chat := &fakeChat{}
	q := app.NewOutgoingQueue(chat, time.Hour, 0, logging.Discard())

	q.Enqueue("a", "#c")
	q.Enqueue("b", "#c")
	q.Enqueue("c", "#c")
	if dropped := q.Close(); dropped != 2 {
		t.Fatalf("expected 2 dropped, got %d", dropped)
	}
	if q.Enqueue("d", "#c") {
		t.Fatalf("closed queue must not send")
	}
}

// fakeChat records what the bot writes to the chat server.
type fakeChat struct {
	mu       sync.Mutex
	failOn   string
	lines    []string
	messages []string
	channels []string
}

func (f *fakeChat) SendLine(line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, line)
	return nil
}

func (f *fakeChat) SendMessage(channel, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && text == f.failOn {
		return errors.New("connection reset")
	}
	f.messages = append(f.messages, text)
	f.channels = append(f.channels, channel)
	return nil
}

func (f *fakeChat) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func (f *fakeChat) Messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
