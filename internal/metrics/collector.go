// Package metrics provides a small counter collector for triage runs. It
// renders Prometheus exposition text without pulling in client_golang,
// since the binary is a run-once batch and has no scrape endpoint to serve.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates named counters for one process lifetime.
type Collector struct {
	counters  sync.Map // name -> *Counter
	startTime time.Time
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name  string
	help  string
	value atomic.Int64
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.value.Add(1) }

// Add increments the counter by n.
func (c *Counter) Add(n int64) { c.value.Add(n) }

// Value returns the current counter value.
func (c *Counter) Value() int64 { return c.value.Load() }

// Counter returns or creates a counter with the given name.
func (c *Collector) Counter(name, help string) *Counter {
	if v, ok := c.counters.Load(name); ok {
		return v.(*Counter)
	}
	ctr := &Counter{name: name, help: help}
	actual, _ := c.counters.LoadOrStore(name, ctr)
	return actual.(*Counter)
}

// Render returns all counters in Prometheus text format, sorted by name so
// output is stable.
func (c *Collector) Render() string {
	var names []string
	byName := make(map[string]*Counter)
	c.counters.Range(func(key, value any) bool {
		ctr := value.(*Counter)
		names = append(names, ctr.name)
		byName[ctr.name] = ctr
		return true
	})
	sort.Strings(names)

	var sb strings.Builder
	fmt.Fprintf(&sb, "# HELP mailtriage_uptime_seconds Time since start in seconds\n")
	fmt.Fprintf(&sb, "# TYPE mailtriage_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "mailtriage_uptime_seconds %d\n", int64(time.Since(c.startTime).Seconds()))
	for _, name := range names {
		ctr := byName[name]
		fmt.Fprintf(&sb, "# HELP %s %s\n", ctr.name, ctr.help)
		fmt.Fprintf(&sb, "# TYPE %s counter\n", ctr.name)
		fmt.Fprintf(&sb, "%s %d\n", ctr.name, ctr.Value())
	}
	return sb.String()
}
