package batchtesting

import "maps"

// TestCallCounter tallies calls made through test doubles, keyed by a name
// the double chooses (a method or circuit name).
type TestCallCounter struct {
	counts map[string]int
}

// IncMethodCall records one call to name and returns the running total.
func (c *TestCallCounter) IncMethodCall(name string) int {
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[name]++
	return c.counts[name]
}

func (c *TestCallCounter) Reset()                          { c.counts = nil }
func (c *TestCallCounter) MethodCallCount(name string) int { return c.counts[name] }

// Counts returns a copy of every tally.
func (c *TestCallCounter) Counts() map[string]int { return maps.Clone(c.counts) }
