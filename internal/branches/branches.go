// Package branches turns full reference names into branch contexts that
// config-repo materials can embed: a short branch name, an identifier-safe
// variant of it, and a repository descriptor pinned to that branch.
package branches

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/joestump/refselect/internal/gitref"
)

// shortRefRe captures everything after "refs/<category>/". The category
// itself may not contain a slash; the remainder may, but it never contains
// a line terminator.
var shortRefRe = regexp.MustCompile(`^refs/[^/]+/([^\n\r\x{85}\x{2028}\x{2029}]+)$`)

// ErrMalformedRef is matched (via errors.Is) by every *MalformedRefError.
var ErrMalformedRef = errors.New("malformed git ref")

// MalformedRefError reports a reference name without the
// refs/<category>/<name> shape. It aborts a whole selection.
type MalformedRefError struct {
	Ref string
}

func (e *MalformedRefError) Error() string {
	return fmt.Sprintf("cannot extract branch name from git ref: %s", e.Ref)
}

func (e *MalformedRefError) Is(target error) bool {
	return target == ErrMalformedRef
}

// DescriptorBuilder creates the repository descriptor for one branch.
type DescriptorBuilder interface {
	Build(branchName string) any
}

// DescriptorBuilderFunc adapts a plain function to DescriptorBuilder.
type DescriptorBuilderFunc func(branchName string) any

func (f DescriptorBuilderFunc) Build(branchName string) any {
	return f(branchName)
}

// BranchContext is one selected branch, ready to be serialized to a plugin.
type BranchContext struct {
	FullRefName         string `json:"full_ref_name"`
	BranchName          string `json:"branch_name"`
	SanitizedBranchName string `json:"sanitized_branch_name"`
	Repo                any    `json:"repo"`
}

// NewBranchContext builds a context, deriving the sanitized name from branch.
func NewBranchContext(fullRef, branch string, repo any) BranchContext {
	return BranchContext{
		FullRefName:         fullRef,
		BranchName:          branch,
		SanitizedBranchName: Sanitize(branch),
		Repo:                repo,
	}
}

// ShortName extracts the name following refs/<category>/, e.g.
// "refs/heads/team/feature-x" yields "team/feature-x". The boolean is false
// when ref does not have that shape. One trailing line terminator is
// ignored.
func ShortName(ref string) (string, bool) {
	m := shortRefRe.FindStringSubmatch(gitref.TrimLineTerminator(ref))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Sanitize replaces every character outside [A-Za-z0-9_-] with '_'. The
// result has the same number of runes as name.
func Sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, name)
}

// Select creates one BranchContext per reference name, in order. The names
// are expected to be pre-filtered by the caller. A single name without the
// refs/<category>/<name> shape fails the whole call with a
// *MalformedRefError and no contexts are returned.
func Select(refs []string, builder DescriptorBuilder) ([]BranchContext, error) {
	contexts := make([]BranchContext, 0, len(refs))
	for _, ref := range refs {
		branch, ok := ShortName(ref)
		if !ok {
			return nil, &MalformedRefError{Ref: ref}
		}
		var repo any
		if builder != nil {
			repo = builder.Build(branch)
		}
		contexts = append(contexts, NewBranchContext(ref, branch, repo))
	}
	return contexts, nil
}
