package gitprovider

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"github.com/joestump/refselect/internal/gitref"
)

// CLILister lists remote references by running `git ls-remote` and parsing
// its output.
type CLILister struct {
	gitPath string
}

// NewCLILister resolves the git executable. An empty gitPath means "git"
// looked up on PATH.
func NewCLILister(gitPath string) (*CLILister, error) {
	if gitPath == "" {
		gitPath = "git"
	}
	p, err := exec.LookPath(gitPath)
	if err != nil {
		return nil, fmt.Errorf("no %q program on path: %w", gitPath, err)
	}
	return &CLILister{gitPath: p}, nil
}

func (c *CLILister) Name() string { return "git" }

func (c *CLILister) ListRefs(ctx context.Context, repo RepoRef) ([]gitref.NamedReference, error) {
	remote := authenticatedURL(repo)
	args := []string{"ls-remote", remote}

	cmd := exec.CommandContext(ctx, c.gitPath, args...)
	// Never prompt for credentials; a missing password must fail fast.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return nil, &GitExecError{
			Args:   []string{"ls-remote", repo.RedactedURL()},
			Err:    err,
			StdErr: redact(stderr.String(), repo.Password),
		}
	}
	return gitref.ParseText(stdout.String()), nil
}

// GitExecError describes a failed git invocation. Credentials are never
// included.
type GitExecError struct {
	Args   []string
	Err    error
	StdErr string
}

func (e *GitExecError) Error() string {
	b := new(strings.Builder)
	b.WriteString("git ")
	b.WriteString(strings.Join(e.Args, " "))
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if s := strings.TrimSpace(e.StdErr); s != "" {
		b.WriteString(": ")
		b.WriteString(s)
	}
	return b.String()
}

func (e *GitExecError) Unwrap() error { return e.Err }

// authenticatedURL injects the repo credentials into http(s) clone URLs.
// Other schemes are returned unchanged.
func authenticatedURL(repo RepoRef) string {
	if repo.Username == "" && repo.Password == "" {
		return repo.CloneURL
	}
	u, err := url.Parse(repo.CloneURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return repo.CloneURL
	}
	username := repo.Username
	if username == "" {
		// Hosts accepting tokens as passwords ignore the user name.
		username = "git"
	}
	if repo.Password != "" {
		u.User = url.UserPassword(username, repo.Password)
	} else {
		u.User = url.User(username)
	}
	return u.String()
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	s = strings.ReplaceAll(s, secret, "*****")
	return strings.ReplaceAll(s, url.QueryEscape(secret), "*****")
}
