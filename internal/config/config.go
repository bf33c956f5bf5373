package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type IRC struct {
	Host         string   `yaml:"host" env:"SPORCLE_IRC_HOST"`
	Port         int      `yaml:"port" env:"SPORCLE_IRC_PORT"`
	Token        string   `yaml:"token" env:"SPORCLE_IRC_TOKEN"`
	Nick         string   `yaml:"nick" env:"SPORCLE_IRC_NICK"`
	Channel      string   `yaml:"channel" env:"SPORCLE_IRC_CHANNEL"`
	ReadTimeout  string   `yaml:"read_timeout" env:"SPORCLE_IRC_READ_TIMEOUT"`
	MaxTimeouts  int      `yaml:"max_timeouts" env:"SPORCLE_IRC_MAX_TIMEOUTS"`
	IgnoredUsers []string `yaml:"ignored_users" env:"SPORCLE_IRC_IGNORED_USERS" envSeparator:","`
}

type Browser struct {
	Profile   string `yaml:"profile" env:"SPORCLE_BROWSER_PROFILE"`
	StartPage string `yaml:"start_page" env:"SPORCLE_BROWSER_START_PAGE"`
	Headless  bool   `yaml:"headless" env:"SPORCLE_BROWSER_HEADLESS"`
}

type Quiz struct {
	StartDelay string `yaml:"start_delay" env:"SPORCLE_QUIZ_START_DELAY"`
}

type Chat struct {
	Cooldown      string `yaml:"cooldown" env:"SPORCLE_CHAT_COOLDOWN"`
	ColorSettle   string `yaml:"color_settle" env:"SPORCLE_CHAT_COLOR_SETTLE"`
	AnnounceColor string `yaml:"announce_color" env:"SPORCLE_CHAT_ANNOUNCE_COLOR"`
}

type Overlay struct {
	Addr string `yaml:"addr" env:"SPORCLE_OVERLAY_ADDR"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"SPORCLE_REDIS_ADDR"`
	Password string `yaml:"password" env:"SPORCLE_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"SPORCLE_REDIS_DB"`
	TTL      string `yaml:"ttl" env:"SPORCLE_REDIS_TTL"`
}

type Postgres struct {
	URL string `yaml:"url" env:"SPORCLE_POSTGRES_URL"`
}

type Stats struct {
	TTL string `yaml:"ttl" env:"SPORCLE_STATS_TTL"`
}

type Log struct {
	Dir   string `yaml:"dir" env:"SPORCLE_LOG_DIR"`
	Debug bool   `yaml:"debug" env:"SPORCLE_LOG_DEBUG"`
}

type Config struct {
	IRC      IRC      `yaml:"irc"`
	Browser  Browser  `yaml:"browser"`
	Quiz     Quiz     `yaml:"quiz"`
	Chat     Chat     `yaml:"chat"`
	Overlay  Overlay  `yaml:"overlay"`
	Redis    Redis    `yaml:"redis"`
	Postgres Postgres `yaml:"postgres"`
	Stats    Stats    `yaml:"stats"`
	Log      Log      `yaml:"log"`
}

// Default returns the settings used for anything the file leaves out.
func Default() Config {
	return Config{
		IRC: IRC{
			Host:         "irc.chat.twitch.tv",
			Port:         6667,
			ReadTimeout:  "1s",
			MaxTimeouts:  360,
			IgnoredUsers: []string{"nightbot"},
		},
		Browser: Browser{
			StartPage: "https://www.sporcle.com/",
		},
		Quiz: Quiz{StartDelay: "5s"},
		Chat: Chat{
			Cooldown:      "1s",
			ColorSettle:   "1s",
			AnnounceColor: "#FF4500",
		},
		Stats: Stats{TTL: "1m"},
		Log:   Log{Dir: "logs"},
	}
}

// Load reads YAML config from path on top of Default, then applies
// SPORCLE_* environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return cfg, err
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.IRC.Channel = Channel(cfg.IRC.Channel)
	return cfg, nil
}

// Validate checks the settings the chat bot cannot run without.
func (c Config) Validate() error {
	var missing []string
	if c.IRC.Token == "" {
		missing = append(missing, "irc.token")
	}
	if c.IRC.Nick == "" {
		missing = append(missing, "irc.nick")
	}
	if c.IRC.Channel == "" {
		missing = append(missing, "irc.channel")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing config: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Channel lowercases a channel name and adds the leading '#'.
func Channel(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || strings.HasPrefix(name, "#") {
		return name
	}
	return "#" + name
}

// Duration parses a Go duration string or a bare number of seconds, returning
// fallback if raw is empty, invalid or negative.
func Duration(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		if d < 0 {
			return fallback
		}
		return d
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs >= 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}
