// Package profiling accumulates wall time per named section over one tick.
package profiling

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Stat is the time spent in one section during the current tick.
type Stat struct {
	Total time.Duration
	Calls int
}

var (
	mu     sync.Mutex
	totals = make(map[string]Stat)
)

// Track returns a stop function that records the elapsed time under name.
// Usage: defer profiling.Track("region.SaveChunk")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		s := totals[name]
		s.Total += d
		s.Calls++
		totals[name] = s
		mu.Unlock()
	}
}

// ResetFrame clears the totals. Called at the start of every tick.
func ResetFrame() {
	mu.Lock()
	clear(totals)
	mu.Unlock()
}

// Snapshot returns a copy of the current totals.
func Snapshot() map[string]Stat {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]Stat, len(totals))
	for k, v := range totals {
		out[k] = v
	}
	return out
}

type entry struct {
	name string
	Stat
}

func sorted() []entry {
	ss := Snapshot()
	list := make([]entry, 0, len(ss))
	for k, v := range ss {
		list = append(list, entry{k, v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Total != list[j].Total {
			return list[i].Total > list[j].Total
		}
		return list[i].name < list[j].name
	})
	return list
}

// TopN formats the n most expensive sections of the tick, for example
// "world.UpdateChunkLoading:4.2ms(3), region.SaveChunk:2.1ms(12)".
func TopN(n int) string {
	list := sorted()
	n = min(n, len(list))
	parts := make([]string, 0, n)
	for _, e := range list[:n] {
		parts = append(parts, fmt.Sprintf("%s:%.1fms(%d)", e.name, float64(e.Total.Microseconds())/1000, e.Calls))
	}
	return strings.Join(parts, ", ")
}

// Fields returns the n most expensive sections as log fields in milliseconds.
func Fields(n int) logrus.Fields {
	list := sorted()
	n = min(n, len(list))
	f := make(logrus.Fields, n)
	for _, e := range list[:n] {
		f[e.name] = float64(e.Total.Microseconds()) / 1000
	}
	return f
}
