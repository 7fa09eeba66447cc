package gitprovider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/joestump/refselect/internal/gitref"
)

// GoGitLister lists remote references in-process with go-git, so no git
// binary is required.
type GoGitLister struct{}

// NewGoGitLister creates a GoGitLister.
func NewGoGitLister() *GoGitLister {
	return &GoGitLister{}
}

func (g *GoGitLister) Name() string { return "gogit" }

func (g *GoGitLister) ListRefs(ctx context.Context, repo RepoRef) ([]gitref.NamedReference, error) {
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{repo.CloneURL},
	})

	refs, err := remote.ListContext(ctx, &git.ListOptions{Auth: goGitAuth(repo)})
	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return []gitref.NamedReference{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gogit: list %s: %s", repo.RedactedURL(), redact(err.Error(), repo.Password))
	}
	return namedRefsFromGoGit(refs), nil
}

// goGitAuth returns basic auth for http(s) remotes with credentials. Other
// transports fall back to go-git's defaults (e.g. the SSH agent).
func goGitAuth(repo RepoRef) transport.AuthMethod {
	if repo.Username == "" && repo.Password == "" {
		return nil
	}
	u, err := url.Parse(repo.CloneURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil
	}
	username := repo.Username
	if username == "" {
		username = "git"
	}
	return &githttp.BasicAuth{Username: username, Password: repo.Password}
}

// namedRefsFromGoGit keeps hash references under refs/ and orders them by
// name, matching the order `git ls-remote` prints.
func namedRefsFromGoGit(refs []*plumbing.Reference) []gitref.NamedReference {
	out := make([]gitref.NamedReference, 0, len(refs))
	for _, r := range refs {
		if r == nil || r.Type() != plumbing.HashReference {
			continue
		}
		name := r.Name().String()
		if !strings.HasPrefix(name, "refs/") {
			continue
		}
		out = append(out, gitref.NamedReference{Name: name, ID: r.Hash().String()})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
