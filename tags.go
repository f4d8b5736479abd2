package oof

import "sort"

// Tag is an opaque classification key. Two tags are the same tag only if
// they are the same *Tag value; names exist for rendering and registries,
// not for identity. Create tags once, at package scope:
//
//	var Retryable = oof.NewTag("retryable")
type Tag struct {
	name string
}

// NewTag creates a fresh classification key. The name is informational.
func NewTag(name string) *Tag {
	return &Tag{name: name}
}

// Name returns the informational name given to NewTag.
func (t *Tag) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// tagSet is an identity set of classification keys. Union-only growth plus
// explicit removal; no ordering semantics.
type tagSet map[*Tag]struct{}

func (s tagSet) add(t *Tag) tagSet {
	if t == nil {
		return s
	}
	if s == nil {
		s = make(tagSet, 1)
	}
	s[t] = struct{}{}
	return s
}

func (s tagSet) remove(t *Tag) {
	delete(s, t)
}

func (s tagSet) contains(t *Tag) bool {
	if t == nil {
		return false
	}
	_, ok := s[t]
	return ok
}

func (s tagSet) clone() tagSet {
	if len(s) == 0 {
		return nil
	}
	c := make(tagSet, len(s))
	for t := range s {
		c[t] = struct{}{}
	}
	return c
}

// list returns the tags sorted by name so iteration order is reproducible
// in renderings and tests. Identity still rules membership; the sort is
// cosmetic.
func (s tagSet) list() []*Tag {
	if len(s) == 0 {
		return nil
	}
	out := make([]*Tag, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
