package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joestump/refselect/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "refselect",
		Short:        "Select branches of a git repository by ref pattern",
		SilenceUsage: true,
		Version:      config.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return readConfigFile()
		},
	}

	f := rootCmd.PersistentFlags()
	f.String("config", "", "optional config file (yaml, toml or json)")
	f.String("state-dir", "", "directory for the SQLite ref cache and selection audit (empty disables both)")
	f.String("lister", "git", "default listing backend: git, gogit, github or gitea")
	f.String("git-path", "git", "git executable used by the git backend")
	f.Duration("cache-ttl", defaultCacheTTL, "how long a ref listing is served from the cache (0 disables)")
	f.String("github-token", "", "GitHub token enabling the github backend")
	f.String("github-api-url", "", "GitHub API base URL (default https://api.github.com)")
	f.String("gitea-url", "", "Gitea base URL enabling the gitea backend")
	f.String("gitea-token", "", "Gitea token enabling the gitea backend")
	f.String("log-level", "info", "log level: debug, info, warn or error")
	f.String("log-file", "", "write logs to a rotating file instead of stderr")

	// Viper keys use underscores (state_dir) so they match the env var
	// suffix after stripping the REFSELECT_ prefix.
	bindFlag := func(viperKey, flagName string) {
		_ = viper.BindPFlag(viperKey, f.Lookup(flagName))
	}
	bindFlag("config", "config")
	bindFlag("state_dir", "state-dir")
	bindFlag("lister", "lister")
	bindFlag("git_path", "git-path")
	bindFlag("cache_ttl", "cache-ttl")
	bindFlag("github_token", "github-token")
	bindFlag("github_api_url", "github-api-url")
	bindFlag("gitea_url", "gitea-url")
	bindFlag("gitea_token", "gitea-token")
	bindFlag("log_level", "log-level")
	bindFlag("log_file", "log-file")

	// AutomaticEnv with the prefix maps REFSELECT_STATE_DIR -> "state_dir".
	viper.SetEnvPrefix("REFSELECT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	rootCmd.AddCommand(
		newServeCmd(),
		newMCPCmd(),
		newSelectCmd(),
		newParseCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// readConfigFile loads the --config file, if any, underneath flags and env.
func readConfigFile() error {
	path := viper.GetString("config")
	if path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}
