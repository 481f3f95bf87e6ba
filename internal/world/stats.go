package world

import "go.uber.org/atomic"

// Stats is a snapshot of the chunk manager's counters.
type Stats struct {
	Resident       int64
	PendingBuckets int64
	Loaded         int64
	Generated      int64
	Unloaded       int64
	Saved          int64
	DecodeFailures int64
	MetaFlushes    int64
	MeshesBuilt    int64
}

// counters are updated on the tick goroutine and read from anywhere.
type counters struct {
	resident       atomic.Int64
	pendingBuckets atomic.Int64
	loaded         atomic.Int64
	generated      atomic.Int64
	unloaded       atomic.Int64
	saved          atomic.Int64
	decodeFailures atomic.Int64
	metaFlushes    atomic.Int64
	meshesBuilt    atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Resident:       c.resident.Load(),
		PendingBuckets: c.pendingBuckets.Load(),
		Loaded:         c.loaded.Load(),
		Generated:      c.generated.Load(),
		Unloaded:       c.unloaded.Load(),
		Saved:          c.saved.Load(),
		DecodeFailures: c.decodeFailures.Load(),
		MetaFlushes:    c.metaFlushes.Load(),
		MeshesBuilt:    c.meshesBuilt.Load(),
	}
}
