package irc

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sporcle-bot/internal/domain"
	"sporcle-bot/internal/logging"
)

type fakeServer struct {
	ln    net.Listener
	conns chan net.Conn
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeServer{ln: ln, conns: make(chan net.Conn, 4)}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.conns <- conn
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *fakeServer) config() Config {
	addr := s.ln.Addr().(*net.TCPAddr)
	return Config{
		Host:        "127.0.0.1",
		Port:        addr.Port,
		Token:       "oauth:secret",
		Nick:        "sporclebot",
		Channel:     "#quizhost",
		ReadTimeout: 20 * time.Millisecond,
		MaxTimeouts: 3,
		RetryDelay:  10 * time.Millisecond,
	}
}

func (s *fakeServer) accept(t *testing.T) net.Conn {
	t.Helper()
	select {
	case conn := <-s.conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		t.Fatalf("no connection accepted")
		return nil
	}
}

func readLines(t *testing.T, r *bufio.Reader, n int) []string {
	t.Helper()
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		lines = append(lines, line)
	}
	return lines
}

func TestConnectSendsHandshake(t *testing.T) {
	srv := newFakeServer(t)
	client := NewClient(srv.config(), logging.Discard())
	defer client.Close()

	require.NoError(t, client.Connect(context.Background()))
	conn := srv.accept(t)

	lines := readLines(t, bufio.NewReader(conn), 7)
	assert.Equal(t, []string{
		"PASS oauth:secret\r\n",
		"NICK sporclebot\r\n",
		"USER sporclebot 127.0.0.1 bla :sporclebot\r\n",
		"CAP REQ :twitch.tv/membership\r\n",
		"CAP REQ :twitch.tv/commands\r\n",
		"CAP REQ :twitch.tv/tags\r\n",
		"JOIN #quizhost\r\n",
	}, lines)
}

func TestSendMessageBeforeConnect(t *testing.T) {
	client := NewClient(Config{}, logging.Discard())
	err := client.SendMessage("#quizhost", "hi")
	assert.True(t, errors.Is(err, domain.ErrNotConnected))
}

func TestSendMessageFormatsPrivmsg(t *testing.T) {
	srv := newFakeServer(t)
	client := NewClient(srv.config(), logging.Discard())
	defer client.Close()

	require.NoError(t, client.Connect(context.Background()))
	conn := srv.accept(t)
	r := bufio.NewReader(conn)
	readLines(t, r, 7)

	require.NoError(t, client.SendMessage("#quizhost", "line one\nline two"))
	assert.Equal(t, []string{"PRIVMSG #quizhost :line one line two\r\n"}, readLines(t, r, 1))
}

func TestRunDeliversLinesAcrossReads(t *testing.T) {
	srv := newFakeServer(t)
	cfg := srv.config()
	cfg.MaxTimeouts = 1000
	client := NewClient(cfg, logging.Discard())

	var mu sync.Mutex
	var got []string
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- client.Run(ctx, func(_ context.Context, line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		})
	}()

	conn := srv.accept(t)
	_, err := conn.Write([]byte("PING :tmi.twi"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, err = conn.Write([]byte("tch.tv\r\n:a!a@a.tmi.twitch.tv PRIVMSG #quizhost :hi\r\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "PING :tmi.twitch.tv", got[0])
	assert.Equal(t, ":a!a@a.tmi.twitch.tv PRIVMSG #quizhost :hi", got[1])
}

func TestRunReconnectsAfterTimeoutThreshold(t *testing.T) {
	srv := newFakeServer(t)
	client := NewClient(srv.config(), logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx, func(context.Context, string) {})

	srv.accept(t)
	second := srv.accept(t)
	lines := readLines(t, bufio.NewReader(second), 1)
	assert.Equal(t, "PASS oauth:secret\r\n", lines[0])
}

func TestRunReconnectsWhenServerCloses(t *testing.T) {
	srv := newFakeServer(t)
	cfg := srv.config()
	cfg.MaxTimeouts = 1000
	client := NewClient(cfg, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx, func(context.Context, string) {})

	first := srv.accept(t)
	require.NoError(t, first.Close())
	srv.accept(t)
}

func TestSplitLines(t *testing.T) {
	lines, rest := splitLines("a\r\nb\r\n\r\nc")
	assert.Equal(t, []string{"a", "b"}, lines)
	assert.Equal(t, "c", rest)

	lines, rest = splitLines("x\r\n")
	assert.Equal(t, []string{"x"}, lines)
	assert.Equal(t, "", rest)
}
