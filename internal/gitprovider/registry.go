package gitprovider

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/joestump/refselect/internal/config"
)

// Registry maps lister names to RefLister implementations.
type Registry struct {
	listers        map[string]RefLister
	defaultBackend string
	giteaHost      string
}

// NewRegistry creates a Registry and registers every backend based on cfg.
// Backends whose required config is missing are registered in a disabled
// state so the system always starts successfully. When cache is non-nil and
// cfg.CacheTTL is positive, enabled listers are wrapped in a CachingLister.
func NewRegistry(cfg *config.Config, cache RefCache, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		listers:        make(map[string]RefLister),
		defaultBackend: cfg.Lister,
	}
	if r.defaultBackend == "" {
		r.defaultBackend = "git"
	}

	wrap := func(l RefLister) RefLister {
		if cache == nil || cfg.CacheTTL <= 0 {
			return l
		}
		return NewCachingLister(l, cache, cfg.CacheTTL, logger)
	}

	// git: requires a git executable.
	if cli, err := NewCLILister(cfg.GitPath); err == nil {
		r.Register("git", wrap(cli))
	} else {
		r.Register("git", NewDisabledLister("git", err.Error()))
	}

	// gogit: always available.
	r.Register("gogit", wrap(NewGoGitLister()))

	// GitHub: requires a token.
	if cfg.GitHubToken != "" {
		r.Register("github", wrap(NewGitHubLister(cfg.GitHubToken, cfg.GitHubAPIURL)))
	} else {
		r.Register("github", NewDisabledLister("github", "REFSELECT_GITHUB_TOKEN is not set"))
	}

	// Gitea: requires a URL and a token.
	if cfg.GiteaURL != "" && cfg.GiteaToken != "" {
		r.Register("gitea", wrap(NewGiteaLister(cfg.GiteaURL, cfg.GiteaToken)))
		if u, err := url.Parse(cfg.GiteaURL); err == nil {
			r.giteaHost = strings.ToLower(u.Hostname())
		}
	} else {
		var missing []string
		if cfg.GiteaURL == "" {
			missing = append(missing, "REFSELECT_GITEA_URL")
		}
		if cfg.GiteaToken == "" {
			missing = append(missing, "REFSELECT_GITEA_TOKEN")
		}
		r.Register("gitea", NewDisabledLister("gitea", fmt.Sprintf("%s not set", strings.Join(missing, " and "))))
	}

	return r
}

// Register adds or replaces a lister in the registry.
func (r *Registry) Register(name string, lister RefLister) {
	r.listers[name] = lister
}

// Names returns the registered lister names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.listers))
	for n := range r.listers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve selects the lister for a repo. An explicit name wins; otherwise
// the host is matched against enabled hosting APIs, and finally the
// default backend is used.
func (r *Registry) Resolve(repo RepoRef, preferred string) (RefLister, error) {
	if preferred != "" {
		return r.ResolveByName(preferred)
	}
	if name := r.inferLister(repo); name != "" {
		return r.ResolveByName(name)
	}
	return r.ResolveByName(r.defaultBackend)
}

// ResolveByName returns the lister registered under the given name.
func (r *Registry) ResolveByName(name string) (RefLister, error) {
	l, ok := r.listers[name]
	if !ok {
		return nil, fmt.Errorf("git lister %q is not registered", name)
	}
	return l, nil
}

// inferLister maps a clone URL to an enabled hosting API by host name.
func (r *Registry) inferLister(repo RepoRef) string {
	host := repo.Host()
	if host == "" {
		return ""
	}
	if host == "github.com" && r.enabled("github") {
		return "github"
	}
	if r.giteaHost != "" && host == r.giteaHost && r.enabled("gitea") {
		return "gitea"
	}
	return ""
}

func (r *Registry) enabled(name string) bool {
	l, ok := r.listers[name]
	return ok && Enabled(l)
}
