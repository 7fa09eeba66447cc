package gitprovider

import (
	"context"
	"fmt"

	"github.com/joestump/refselect/internal/gitref"
)

// DisabledLister implements RefLister but returns an error on every call.
// It is registered when a backend's required configuration (a token, a
// git binary) is missing, so the service starts while still giving a clear
// error if that backend is asked for.
type DisabledLister struct {
	name   string
	reason string
}

// NewDisabledLister creates a lister that rejects all calls with a
// descriptive error including the lister name and reason.
func NewDisabledLister(name, reason string) *DisabledLister {
	return &DisabledLister{name: name, reason: reason}
}

func (d *DisabledLister) Name() string { return d.name }

// Enabled reports whether a lister can serve requests.
func Enabled(l RefLister) bool {
	_, disabled := l.(*DisabledLister)
	return !disabled
}

func (d *DisabledLister) ListRefs(_ context.Context, _ RepoRef) ([]gitref.NamedReference, error) {
	return nil, fmt.Errorf("git lister %q is disabled: %s", d.name, d.reason)
}
