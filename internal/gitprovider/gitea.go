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

// GiteaLister implements RefLister for Gitea instances using the v1 REST API.
type GiteaLister struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewGiteaLister creates a GiteaLister for the given Gitea instance.
func NewGiteaLister(baseURL, token string) *GiteaLister {
	return &GiteaLister{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *GiteaLister) Name() string { return "gitea" }

func (g *GiteaLister) ListRefs(ctx context.Context, repo RepoRef) ([]gitref.NamedReference, error) {
	if err := repo.requireOwnerAndName(); err != nil {
		return nil, fmt.Errorf("gitea: list refs: %w", err)
	}

	token := g.token
	if repo.Password != "" {
		token = repo.Password
	}

	refsURL := fmt.Sprintf("%s/api/v1/repos/%s/%s/git/refs", g.baseURL, repo.Owner, repo.Name)
	resp, err := g.do(ctx, http.MethodGet, refsURL, token)
	if err != nil {
		return nil, fmt.Errorf("gitea: list refs: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gitea: list refs: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var rawRefs []struct {
		Ref    string `json:"ref"`
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rawRefs); err != nil {
		return nil, fmt.Errorf("gitea: list refs: decode response: %w", err)
	}

	refs := make([]gitref.NamedReference, 0, len(rawRefs))
	for _, r := range rawRefs {
		refs = append(refs, gitref.NamedReference{Name: r.Ref, ID: r.Object.SHA})
	}
	return refs, nil
}

// do executes an authorized request asking for JSON.
func (g *GiteaLister) do(ctx context.Context, method, url, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "token "+token)
	}
	req.Header.Set("Accept", "application/json")
	return g.client.Do(req)
}
