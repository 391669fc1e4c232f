// Package idgen produces the opaque public identifiers used for threads
// and thread items.
package idgen

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Generator allocates monotonically increasing identifiers of the form
// "<prefix>_<n>". Counters are per-process; uniqueness across restarts is
// not a goal for in-memory deployments, and the persistent store keys rows
// by the generated string anyway.
type Generator struct {
	counter atomic.Uint64
}

// NewGenerator returns a Generator starting at zero.
func NewGenerator() *Generator {
	return &Generator{}
}

// Next returns the next identifier for the given prefix.
func (g *Generator) Next(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, g.counter.Add(1))
}

// ValidateIDFormat checks that id is "<expectedPrefix>_<suffix>" with a
// non-empty suffix of lowercase alphanumerics.
func ValidateIDFormat(id, expectedPrefix string) bool {
	rest, ok := strings.CutPrefix(id, expectedPrefix+"_")
	if !ok || rest == "" {
		return false
	}
	for _, char := range rest {
		if !((char >= 'a' && char <= 'z') || (char >= '0' && char <= '9')) {
			return false
		}
	}
	return true
}
