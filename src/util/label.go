// label.go provides a thread safe way of generating the fresh identifiers
// and labels the compilation pipeline hands out: normalization variables,
// closure-conversion temporaries and lifted function names, and control-flow
// labels.

package util

import (
	"fmt"

	"github.com/sasha-s/go-deadlock"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Namer hands out monotonically increasing, prefixed identifiers. Safe for
// concurrent use.
type Namer struct {
	mx     deadlock.Mutex
	prefix string
	n      int
}

// KeyedNamer hands out identifiers of the form "<prefix><name><n>", where n
// is a single counter shared across every name sharing the prefix -- this is
// how closure conversion's "$r_" and "$b_" generators behave: one counter
// per fresh-character class, not one counter per captured name.
type KeyedNamer struct {
	mx     deadlock.Mutex
	prefix string
	n      int
}

// Counter is a plain thread safe monotonic counter, used for virtual
// register numbers and stack-slot offsets.
type Counter struct {
	mx deadlock.Mutex
	n  int
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewNamer returns a Namer that produces identifiers "<prefix><n>" starting
// at n=0.
func NewNamer(prefix string) *Namer {
	return &Namer{prefix: prefix}
}

// Fresh returns the next identifier and advances the counter.
func (g *Namer) Fresh() string {
	g.mx.Lock()
	defer g.mx.Unlock()
	s := fmt.Sprintf("%s%d", g.prefix, g.n)
	g.n++
	return s
}

// NewKeyedNamer returns a KeyedNamer for the given prefix character class.
func NewKeyedNamer(prefix string) *KeyedNamer {
	return &KeyedNamer{prefix: prefix}
}

// Fresh returns the next identifier for name and advances the shared
// counter.
func (g *KeyedNamer) Fresh(name string) string {
	g.mx.Lock()
	defer g.mx.Unlock()
	s := fmt.Sprintf("%s%s%d", g.prefix, name, g.n)
	g.n++
	return s
}

// Next returns the current value and advances the counter by one.
func (c *Counter) Next() int {
	c.mx.Lock()
	defer c.mx.Unlock()
	n := c.n
	c.n++
	return n
}

// Reset sets the counter back to zero. Virtualization resets the stack-slot
// counter at the start of every Recdecl.
func (c *Counter) Reset() {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.n = 0
}

// Peek returns the current value without advancing the counter.
func (c *Counter) Peek() int {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.n
}
