package guard

import (
	"slices"
	"sync/atomic"
)

// DefaultPublicPaths are reachable without a credential when no allow-list is
// configured.
var DefaultPublicPaths = []string{"/"}

// AllowList is the set of destination paths that may be visited without a
// credential. Matching is exact on the path. It is safe for concurrent use and
// can be replaced wholesale while guards read it. The zero value is an empty
// list.
type AllowList struct {
	paths atomic.Pointer[map[string]struct{}]
}

func NewAllowList(paths ...string) *AllowList {
	a := &AllowList{}
	a.Replace(paths)
	return a
}

// DefaultAllowList returns an allow-list holding DefaultPublicPaths.
func DefaultAllowList() *AllowList {
	return NewAllowList(DefaultPublicPaths...)
}

func (a *AllowList) Contains(path string) bool {
	if path == "" {
		path = "/"
	}
	_, ok := a.set()[path]
	return ok
}

// Replace swaps in a new set of paths.
func (a *AllowList) Replace(paths []string) {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	a.paths.Store(&set)
}

// Paths returns the current paths in sorted order.
func (a *AllowList) Paths() []string {
	set := a.set()
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

func (a *AllowList) set() map[string]struct{} {
	if set := a.paths.Load(); set != nil {
		return *set
	}
	return nil
}
