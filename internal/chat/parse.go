// Package chat implements the Twitch IRC line grammar used by the bot:
// parsing user lines into events and formatting the lines the bot sends.
package chat

import (
	"regexp"
	"strings"

	"sporcle-bot/internal/domain"
)

var (
	lineRe   = regexp.MustCompile(`^@(.*?) :([a-z0-9_]+)![a-z0-9_]+@[a-z0-9_]+\.tmi\.twitch\.tv ([A-Z]+) ([#a-z0-9_]+) :(.*)$`)
	actionRe = regexp.MustCompile(`^\x01ACTION (.*)\x01$`)
	identRe  = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// Parse turns a raw line into a chat event. Lines that are not user
// messages or whispers report false.
func Parse(line string) (domain.ChatEvent, bool) {
	line = strings.TrimRight(line, "\r\n")
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return domain.ChatEvent{}, false
	}

	ev := domain.ChatEvent{
		User:    m[2],
		Type:    domain.EventType(m[3]),
		Channel: m[4],
		Text:    m[5],
	}
	if ev.Type != domain.EventMessage && ev.Type != domain.EventWhisper {
		return domain.ChatEvent{}, false
	}

	raw := parseTags(m[1])
	ev.Tags = domain.Tags{
		Broadcaster: strings.Contains(raw["badges"], "broadcaster"),
		DisplayName: DisplayName(raw["display-name"], ev.User),
		Raw:         raw,
	}

	if a := actionRe.FindStringSubmatch(ev.Text); a != nil {
		ev.Text = a[1]
	}
	return ev, true
}

func parseTags(s string) map[string]string {
	tags := make(map[string]string)
	for _, tag := range strings.Split(s, ";") {
		key, val, ok := strings.Cut(strings.TrimSpace(tag), "=")
		if !ok || key == "" {
			continue
		}
		tags[key] = val
	}
	return tags
}

// DisplayName appends the login to names that are not plain identifiers, so
// chat can tell who is behind a localized name.
func DisplayName(display, login string) string {
	if display == "" {
		return login
	}
	if !identRe.MatchString(display) {
		return display + " (" + login + ")"
	}
	return display
}

// Pong returns the keep-alive reply for a server PING line.
func Pong(line string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "PING ") {
		return "", false
	}
	return "PONG " + line[len("PING "):], true
}

// Privmsg formats a channel message. Line breaks in text are flattened so
// one message can never smuggle a second command.
func Privmsg(channel, text string) string {
	text = strings.NewReplacer("\r", " ", "\n", " ").Replace(text)
	return "PRIVMSG " + channel + " :" + text + "\r\n"
}

// Command splits text into its first whitespace-delimited token and the rest.
func Command(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}
