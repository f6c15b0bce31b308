package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	BaseURL      string        `env:"BOUNTY_API_URL" env-default:"https://api.taskbounty.dev"`
	DataDir      string        `env:"BOUNTY_DATA_DIR"`
	PageSize     int           `env:"BOUNTY_PAGE_SIZE" env-default:"10"`
	HTTPTimeout  time.Duration `env:"BOUNTY_HTTP_TIMEOUT" env-default:"30s"`
	CallbackAddr string        `env:"BOUNTY_CALLBACK_ADDR" env-default:"127.0.0.1:8741"`
	RateLimits   RateLimits
}

// RateLimits mirrors the server's published per-minute write limits so the
// client throttles itself instead of collecting 429s.
type RateLimits struct {
	PostPerMinute    int `env:"BOUNTY_RL_POST_PER_MIN" env-default:"10"`
	CommentPerMinute int `env:"BOUNTY_RL_COMMENT_PER_MIN" env-default:"30"`
	VotePerMinute    int `env:"BOUNTY_RL_VOTE_PER_MIN" env-default:"120"`
}

func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, err
		}
		cfg.DataDir = filepath.Join(home, ".bountyctl")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	return cfg, nil
}

// CachePath is the sqlite file holding all page-cache namespaces.
func (c Config) CachePath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// SessionPath is the persisted session file.
func (c Config) SessionPath() string {
	return filepath.Join(c.DataDir, "session.json")
}
