package gitprovider

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/joestump/refselect/internal/gitref"
	"github.com/joestump/refselect/internal/material"
)

// RefLister fetches the reference advertisement of a remote repository.
// Each implementation targets a specific transport or hosting API.
type RefLister interface {
	// Name returns the lister identifier (e.g., "git", "gogit", "github").
	Name() string

	// ListRefs returns every reference the remote advertises, in the
	// order the remote reported them.
	ListRefs(ctx context.Context, repo RepoRef) ([]gitref.NamedReference, error)
}

// RepoRef identifies a repository by owner, name, clone URL and the
// credentials used to reach it.
type RepoRef struct {
	Owner    string // org or user, derived from the clone URL
	Name     string // repository name without ".git"
	CloneURL string // as supplied by the caller
	Username string
	Password string
}

// ParseRepoRef builds a RepoRef from a clone URL. Owner and name are taken
// from the last two path segments; scp-style URLs ("git@host:owner/repo")
// are accepted. Credentials embedded in the URL are used when username or
// password are empty.
func ParseRepoRef(cloneURL, username, password string) (RepoRef, error) {
	if strings.TrimSpace(cloneURL) == "" {
		return RepoRef{}, fmt.Errorf("clone URL is empty")
	}
	ref := RepoRef{CloneURL: cloneURL, Username: username, Password: password}

	repoPath := ""
	if u, err := url.Parse(cloneURL); err == nil && u.Scheme != "" && u.Opaque == "" {
		repoPath = u.Path
		if u.User != nil {
			if ref.Username == "" {
				ref.Username = u.User.Username()
			}
			if p, ok := u.User.Password(); ok && ref.Password == "" {
				ref.Password = p
			}
		}
	} else if _, after, ok := strings.Cut(cloneURL, ":"); ok {
		repoPath = after
	} else {
		repoPath = cloneURL
	}

	repoPath = strings.TrimSuffix(strings.Trim(repoPath, "/"), ".git")
	ref.Name = path.Base(repoPath)
	if dir := path.Dir(repoPath); dir != "." && dir != "/" {
		ref.Owner = path.Base(dir)
	}
	if ref.Name == "." || ref.Name == "/" {
		ref.Name = ""
	}
	return ref, nil
}

// Host returns the lowercased host of the clone URL, or "" if it has none.
func (r RepoRef) Host() string {
	if u, err := url.Parse(r.CloneURL); err == nil && u.Host != "" {
		return strings.ToLower(u.Hostname())
	}
	// scp-style: [user@]host:path
	before, _, ok := strings.Cut(r.CloneURL, ":")
	if !ok {
		return ""
	}
	if _, host, ok := strings.Cut(before, "@"); ok {
		return strings.ToLower(host)
	}
	return strings.ToLower(before)
}

// RedactedURL returns the clone URL with any password removed, for logs,
// cache keys and error messages.
func (r RepoRef) RedactedURL() string {
	return material.RedactURL(r.CloneURL)
}

func (r RepoRef) requireOwnerAndName() error {
	if r.Owner == "" || r.Name == "" {
		return fmt.Errorf("cannot derive owner and repository name from %s", r.RedactedURL())
	}
	return nil
}
