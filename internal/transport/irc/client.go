// Package irc is a minimal Twitch chat client: it performs the login
// handshake, reads lines with a deadline and reconnects when the server goes
// quiet or drops the connection.
package irc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"sporcle-bot/internal/chat"
	"sporcle-bot/internal/domain"
	"sporcle-bot/internal/logging"
)

type Config struct {
	Host        string
	Port        int
	Token       string
	Nick        string
	Channel     string
	ReadTimeout time.Duration
	// MaxTimeouts consecutive read timeouts force a reconnect.
	MaxTimeouts int
	// RetryDelay is the pause between failed connection attempts.
	RetryDelay time.Duration
}

// Handler receives every complete line, without the trailing CRLF.
type Handler func(ctx context.Context, line string)

type Client struct {
	cfg Config
	log *logging.Logger

	mu   sync.Mutex
	conn net.Conn
}

func NewClient(cfg Config, log *logging.Logger) *Client {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = time.Second
	}
	if cfg.MaxTimeouts <= 0 {
		cfg.MaxTimeouts = 360
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	return &Client{cfg: cfg, log: log}
}

// Connect dials the server and sends the login handshake.
func (c *Client) Connect(ctx context.Context) error {
	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	c.mu.Unlock()

	handshake := []string{
		"PASS " + c.cfg.Token,
		"NICK " + c.cfg.Nick,
		fmt.Sprintf("USER %s %s bla :%s", c.cfg.Nick, c.cfg.Host, c.cfg.Nick),
		"CAP REQ :twitch.tv/membership",
		"CAP REQ :twitch.tv/commands",
		"CAP REQ :twitch.tv/tags",
		"JOIN " + c.cfg.Channel,
	}
	for _, line := range handshake {
		if err := c.SendLine(line); err != nil {
			return fmt.Errorf("handshake: %w", err)
		}
	}
	c.log.Infof("connected to %s as %s, joined %s", addr, c.cfg.Nick, c.cfg.Channel)
	return nil
}

// SendLine writes one raw line. Writes from the read loop and the send
// queue's timer are serialized here.
func (c *Client) SendLine(line string) error {
	if !strings.HasSuffix(line, "\r\n") {
		line += "\r\n"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return domain.ErrNotConnected
	}
	if _, err := c.conn.Write([]byte(line)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// SendMessage writes a PRIVMSG to channel.
func (c *Client) SendMessage(channel, text string) error {
	return c.SendLine(chat.Privmsg(channel, text))
}

// Run reads lines until ctx is done, reconnecting as needed. It connects
// first if Connect was not called.
func (c *Client) Run(ctx context.Context, handle Handler) error {
	defer c.Close()

	for ctx.Err() == nil {
		conn := c.current()
		if conn == nil {
			if err := c.Connect(ctx); err != nil {
				c.log.Errorf("connect: %v", err)
				if !sleep(ctx, c.cfg.RetryDelay) {
					break
				}
				continue
			}
			conn = c.current()
		}

		err := c.readLoop(ctx, conn, handle)
		if ctx.Err() != nil {
			break
		}
		c.log.Warnf("connection lost: %v, reconnecting", err)
		c.drop(conn)
	}
	return nil
}

// readLoop returns when the connection should be replaced.
func (c *Client) readLoop(ctx context.Context, conn net.Conn, handle Handler) error {
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, 4096)
	var partial string
	timeouts := 0
	for {
		if err := conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
			return err
		}
		n, err := conn.Read(buf)
		if n > 0 {
			timeouts = 0
			partial += string(buf[:n])
			var lines []string
			lines, partial = splitLines(partial)
			for _, line := range lines {
				c.log.Debugf("< %s", line)
				handle(ctx, line)
			}
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isTimeout(err) {
			return err
		}
		timeouts++
		if timeouts >= c.cfg.MaxTimeouts {
			return fmt.Errorf("no data after %d read timeouts", timeouts)
		}
	}
}

// splitLines returns the complete CRLF-terminated lines in s and the
// unterminated remainder.
func splitLines(s string) ([]string, string) {
	parts := strings.Split(s, "\r\n")
	rest := parts[len(parts)-1]
	var lines []string
	for _, p := range parts[:len(parts)-1] {
		if p != "" {
			lines = append(lines, p)
		}
	}
	return lines, rest
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (c *Client) current() net.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) drop(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn.Close()
		c.conn = nil
	}
}

// Close closes the current connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
