package aliasset

import (
	"cmp"
	"slices"
)

// Alias is one registered handle.
type Alias struct {
	// ID is the handle identity.
	ID uint64

	// Site is the stackdepot hash of the creating call, or 0.
	Site uint64
}

// Set is the registry of live handles of one group.
type Set struct {
	members map[uint64]uint64 // handle ID -> creation site
}

// New returns an empty Set.
func New() *Set {
	return &Set{members: make(map[uint64]uint64)}
}

// Add registers a handle. Re-adding an existing ID keeps the first site.
//
// Returns true if the ID was not already present.
func (s *Set) Add(id, site uint64) bool {
	if _, ok := s.members[id]; ok {
		return false
	}
	s.members[id] = site
	return true
}

// Remove unregisters a handle and reports whether it was present.
func (s *Set) Remove(id uint64) bool {
	if _, ok := s.members[id]; !ok {
		return false
	}
	delete(s.members, id)
	return true
}

// Contains reports whether id is registered.
func (s *Set) Contains(id uint64) bool {
	_, ok := s.members[id]
	return ok
}

// Len returns the number of registered handles.
func (s *Set) Len() int {
	return len(s.members)
}

// Empty reports whether no handles remain.
func (s *Set) Empty() bool {
	return len(s.members) == 0
}

// Aliases returns the registered handles ordered by ID.
//
// The result is a copy; callers may keep it after releasing the group lock.
func (s *Set) Aliases() []Alias {
	out := make([]Alias, 0, len(s.members))
	for id, site := range s.members {
		out = append(out, Alias{ID: id, Site: site})
	}
	slices.SortFunc(out, func(a, b Alias) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Clear drops every registration.
func (s *Set) Clear() {
	clear(s.members)
}
