package intercept

import (
	"context"
	"math"
	"sort"
)

// PriorityLast runs after every other capability filter.
const PriorityLast = math.MaxInt

// CapabilityFilter rewrites the capability map a host computed for userID.
type CapabilityFilter interface {
	FilterCapabilities(ctx context.Context, userID string, caps map[string]bool, requested []string) map[string]bool
}

// FilterFunc adapts a function to CapabilityFilter.
type FilterFunc func(ctx context.Context, userID string, caps map[string]bool, requested []string) map[string]bool

// FilterCapabilities implements CapabilityFilter.
func (fn FilterFunc) FilterCapabilities(ctx context.Context, userID string, caps map[string]bool, requested []string) map[string]bool {
	if fn == nil {
		return caps
	}
	return fn(ctx, userID, caps, requested)
}

type entry struct {
	priority int
	seq      int
	filter   CapabilityFilter
}

// FilterChain runs host capability filters in ascending priority, ties in
// registration order.
type FilterChain struct {
	entries []entry
	seq     int
}

// NewFilterChain builds an empty chain.
func NewFilterChain() *FilterChain {
	return &FilterChain{}
}

// Add registers a filter.
func (c *FilterChain) Add(priority int, filter CapabilityFilter) {
	if c == nil || filter == nil {
		return
	}
	c.seq++
	c.entries = append(c.entries, entry{priority: priority, seq: c.seq, filter: filter})
	sort.SliceStable(c.entries, func(i, j int) bool {
		if c.entries[i].priority != c.entries[j].priority {
			return c.entries[i].priority < c.entries[j].priority
		}
		return c.entries[i].seq < c.entries[j].seq
	})
}

// Len returns the number of registered filters.
func (c *FilterChain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Run passes caps through every filter. A filter returning nil leaves the
// map unchanged.
func (c *FilterChain) Run(ctx context.Context, userID string, caps map[string]bool, requested []string) map[string]bool {
	out := caps
	if c == nil {
		return out
	}
	for _, e := range c.entries {
		next := e.filter.FilterCapabilities(ctx, userID, out, requested)
		if next != nil {
			out = next
		}
	}
	return out
}
