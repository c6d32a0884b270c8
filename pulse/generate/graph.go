package generate

import (
	"sort"

	"github.com/teranos/scribe/errors"
)

// Entity is anything the engine can generate for
type Entity interface {
	ID() string
}

// Parent is a top-level entity owning child entities
type Parent interface {
	Entity
	Children() []Entity
}

// Prioritized entities contribute their own weight to dispatch order
type Prioritized interface {
	Priority() int
}

// Selection restricts which children are included in a run.
// A nil Selection includes every child.
type Selection map[string]struct{}

// SelectAll includes every child
func SelectAll() Selection { return nil }

// NewSelection includes only the named children. With no ids it selects no children.
func NewSelection(ids ...string) Selection {
	s := make(Selection, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Selection) includes(id string) bool {
	if s == nil {
		return true
	}
	_, ok := s[id]
	return ok
}

// Dependencies maps each item identity to the identities it must wait for
type Dependencies map[string]map[string]struct{}

// Of returns the sorted dependencies of id
func (d Dependencies) Of(id string) []string {
	deps := make([]string, 0, len(d[id]))
	for dep := range d[id] {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return deps
}

// BuildDependencies lays out the one-level graph for a run: every parent
// depends on nothing, every included child depends on its parent.
func BuildDependencies(parents []Parent, selection Selection) (Dependencies, error) {
	deps := make(Dependencies)
	seenChildren := make(map[string]struct{})

	for _, p := range parents {
		if p == nil {
			return nil, errors.NewInvalidRequestError("nil parent entity")
		}
		pid := p.ID()
		if pid == "" {
			return nil, errors.NewInvalidRequestError("parent entity has empty identity")
		}
		if _, dup := deps[pid]; dup {
			return nil, errors.NewInvalidRequestError("duplicate identity %q", pid)
		}
		deps[pid] = map[string]struct{}{}
	}

	for _, p := range parents {
		pid := p.ID()
		for _, c := range p.Children() {
			cid := c.ID()
			if cid == "" {
				return nil, errors.NewInvalidRequestError("child of %q has empty identity", pid)
			}
			if _, dup := deps[cid]; dup {
				return nil, errors.NewInvalidRequestError("duplicate identity %q", cid)
			}
			if _, dup := seenChildren[cid]; dup {
				return nil, errors.NewInvalidRequestError("duplicate identity %q", cid)
			}
			seenChildren[cid] = struct{}{}
			if selection.includes(cid) {
				deps[cid] = map[string]struct{}{pid: {}}
			}
		}
	}

	for id := range selection {
		if _, ok := seenChildren[id]; !ok {
			err := errors.NewInvalidRequestError("selection names unknown child %q", id)
			return nil, errors.WithHint(err, "selection identities must name children of the supplied parents")
		}
	}

	return deps, nil
}
