// Package idgen mints step identifiers for a single editor session.
package idgen

import (
	"strconv"
	"strings"
)

// Prefix is prepended to every minted id.
const Prefix = "step_"

// Generator is a monotonic counter producing "step_1", "step_2", ...
//
// A Generator belongs to exactly one session and is not safe for concurrent use;
// the owning session serialises access.
type Generator struct {
	last int
}

// New returns a generator whose first id is "step_1".
func New() *Generator {
	return &Generator{}
}

// NewAfter returns a generator that never mints any of the given ids. Ids that do not
// follow the "step_N" shape are ignored since they can never collide with minted ones.
func NewAfter(existing []string) *Generator {
	g := New()
	g.Observe(existing...)

	return g
}

// Next mints a fresh id.
func (g *Generator) Next() string {
	g.last++

	return Prefix + strconv.Itoa(g.last)
}

// Observe advances the counter past any "step_N" id in ids.
func (g *Generator) Observe(ids ...string) {
	for _, id := range ids {
		n, ok := parse(id)
		if ok && n > g.last {
			g.last = n
		}
	}
}

// Last returns the number of the most recently minted or observed id.
func (g *Generator) Last() int {
	return g.last
}

func parse(id string) (int, bool) {
	digits, ok := strings.CutPrefix(id, Prefix)
	if !ok || digits == "" {
		return 0, false
	}

	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}

	return n, true
}
