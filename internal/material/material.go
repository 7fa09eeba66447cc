// Package material describes the git material a config repository embeds
// for each selected branch.
package material

import (
	"net/url"

	"github.com/joestump/refselect/internal/branches"
)

const (
	// TypeGit is the material type reported to plugins.
	TypeGit = "git"

	// DefaultName is the material name given to every generated descriptor.
	DefaultName = "repo"
)

// GitMaterial is the repository descriptor embedded in a branch context.
type GitMaterial struct {
	Type         string `json:"type"`
	Name         string `json:"name"`
	Destination  string `json:"destination"`
	AutoUpdate   bool   `json:"auto_update"`
	ShallowClone bool   `json:"shallow_clone"`
	Username     string `json:"username,omitempty"`
	URL          string `json:"url"`
	Branch       string `json:"branch"`
}

// GitTemplate builds a GitMaterial per branch for one repository.
type GitTemplate struct {
	URL      string
	Username string
}

var _ branches.DescriptorBuilder = GitTemplate{}

// NewGitTemplate returns a template for rawURL. A password embedded in the
// URL's user info is removed so it never appears in a descriptor.
func NewGitTemplate(rawURL, username string) GitTemplate {
	return GitTemplate{URL: RedactURL(rawURL), Username: username}
}

// Build returns a fresh material pinned to branch.
func (t GitTemplate) Build(branch string) any {
	return t.Material(branch)
}

// Material is the typed form of Build.
func (t GitTemplate) Material(branch string) GitMaterial {
	return GitMaterial{
		Type:         TypeGit,
		Name:         DefaultName,
		Destination:  "",
		AutoUpdate:   true,
		ShallowClone: false,
		Username:     t.Username,
		URL:          t.URL,
		Branch:       branch,
	}
}

// RedactURL drops the password from rawURL's user info, keeping the
// username. Strings that do not parse as URLs, or carry no password (for
// example scp-style "git@host:repo"), are returned unchanged.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	if _, hasPassword := u.User.Password(); !hasPassword {
		return rawURL
	}
	u.User = url.User(u.User.Username())
	return u.String()
}
