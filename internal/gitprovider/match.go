package gitprovider

import (
	"context"
	"regexp"
)

// BranchesMatching lists the remote's references and returns the full
// names in which pattern finds a match, in advertisement order. The match
// is an unanchored search; callers anchor with ^ and $ as needed.
func BranchesMatching(ctx context.Context, lister RefLister, repo RepoRef, pattern *regexp.Regexp) ([]string, error) {
	refs, err := lister.ListRefs(ctx, repo)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		if pattern.MatchString(r.Name) {
			names = append(names, r.Name)
		}
	}
	return names, nil
}
