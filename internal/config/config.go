package config

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// DatabaseFile is the SQLite file created inside StateDir.
const DatabaseFile = "refselect.db"

// Config holds all runtime configuration for refselect.
type Config struct {
	Port         int
	StateDir     string
	Lister       string        // default backend: git, gogit, github, gitea
	GitPath      string        // git executable for the "git" backend
	CacheTTL     time.Duration // 0 disables the ref listing cache
	GitHubToken  string
	GitHubAPIURL string
	GiteaURL     string
	GiteaToken   string
	LogLevel     string
	LogFile      string // empty logs to stderr
}

// Load reads configuration from viper, which merges flag values, env vars,
// an optional config file and defaults (set up by the cobra command in
// cmd/refselect).
func Load() Config {
	return Config{
		Port:         viper.GetInt("port"),
		StateDir:     viper.GetString("state_dir"),
		Lister:       viper.GetString("lister"),
		GitPath:      viper.GetString("git_path"),
		CacheTTL:     viper.GetDuration("cache_ttl"),
		GitHubToken:  viper.GetString("github_token"),
		GitHubAPIURL: viper.GetString("github_api_url"),
		GiteaURL:     viper.GetString("gitea_url"),
		GiteaToken:   viper.GetString("gitea_token"),
		LogLevel:     viper.GetString("log_level"),
		LogFile:      viper.GetString("log_file"),
	}
}

// DatabasePath returns the path of the SQLite database in StateDir.
func (c Config) DatabasePath() string {
	return filepath.Join(c.StateDir, DatabaseFile)
}
