package models

import "slices"

// Connections maps a company name to the ordered set of names it follows.
// Every edge is directed and stored independently.
type Connections map[string][]string

// Follows reports whether from follows to.
func (c Connections) Follows(from, to string) bool {
	return slices.Contains(c[from], to)
}

// Follow adds the from -> to edge if missing.
func (c Connections) Follow(from, to string) {
	if c.Follows(from, to) {
		return
	}
	c[from] = append(c[from], to)
}

// Unfollow drops the from -> to edge.
func (c Connections) Unfollow(from, to string) {
	list := c[from]
	idx := slices.Index(list, to)
	if idx < 0 {
		return
	}
	c[from] = slices.Delete(slices.Clone(list), idx, idx+1)
}

// Normalize replaces a nil map and nil edge lists with empty ones.
func (c *Connections) Normalize() {
	if *c == nil {
		*c = Connections{}
	}
	for k, v := range *c {
		if v == nil {
			(*c)[k] = []string{}
		}
	}
}
