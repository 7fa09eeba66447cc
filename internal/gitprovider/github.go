package gitprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/joestump/refselect/internal/gitref"
)

// githubPageSize is the maximum page size the GitHub REST API accepts.
const githubPageSize = 100

// GitHubLister implements RefLister using the GitHub REST API.
type GitHubLister struct {
	token   string
	client  *http.Client
	baseURL string // defaults to "https://api.github.com"
}

// NewGitHubLister creates a GitHubLister with the given personal access
// token. An empty baseURL selects the public API.
func NewGitHubLister(token, baseURL string) *GitHubLister {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &GitHubLister{
		token: token,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (g *GitHubLister) Name() string { return "github" }

func (g *GitHubLister) ListRefs(ctx context.Context, repo RepoRef) ([]gitref.NamedReference, error) {
	if err := repo.requireOwnerAndName(); err != nil {
		return nil, fmt.Errorf("github: list refs: %w", err)
	}

	token := g.token
	if repo.Password != "" {
		token = repo.Password
	}

	refs := []gitref.NamedReference{}
	for page := 1; ; page++ {
		refsURL := fmt.Sprintf("%s/repos/%s/%s/git/refs?per_page=%d&page=%d", g.baseURL, repo.Owner, repo.Name, githubPageSize, page)
		var batch []struct {
			Ref    string `json:"ref"`
			Object struct {
				SHA string `json:"sha"`
			} `json:"object"`
		}
		status, err := g.doJSON(ctx, http.MethodGet, refsURL, token, &batch)
		if status == http.StatusConflict {
			// GitHub answers 409 for a repository without commits.
			return refs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("github: list refs: %w", err)
		}
		for _, r := range batch {
			refs = append(refs, gitref.NamedReference{Name: r.Ref, ID: r.Object.SHA})
		}
		if len(batch) < githubPageSize {
			return refs, nil
		}
	}
}

// doJSON executes an HTTP request and unmarshals a JSON response into
// respBody. The HTTP status is returned even when err is non-nil.
func (g *GitHubLister) doJSON(ctx context.Context, method, url, token string, respBody any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "token "+token)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return resp.StatusCode, fmt.Errorf("authentication failed (401): %s", string(respData))
		case http.StatusNotFound:
			return resp.StatusCode, fmt.Errorf("not found (404): %s", string(respData))
		default:
			return resp.StatusCode, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respData))
		}
	}

	if respBody != nil && len(respData) > 0 {
		if err := json.Unmarshal(respData, respBody); err != nil {
			return resp.StatusCode, fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return resp.StatusCode, nil
}
