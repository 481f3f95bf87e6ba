package world

import (
	"errors"
	"time"

	"chunkvault/internal/voxel"
)

// FlushFunc persists one expired bucket.
type FlushFunc func(cc voxel.ChunkCoord, b *voxel.MetaBucket) error

// EditBuffer holds writes aimed at chunks that are not resident. Buckets are
// queued in the order they were first created; the queue is only a hint, the
// bucket's LastTouched decides whether it has expired.
type EditBuffer struct {
	buckets map[voxel.ChunkCoord]*voxel.MetaBucket
	queue   []voxel.ChunkCoord
	queued  map[voxel.ChunkCoord]struct{}
	edits   int
}

func NewEditBuffer() *EditBuffer {
	return &EditBuffer{
		buckets: make(map[voxel.ChunkCoord]*voxel.MetaBucket),
		queued:  make(map[voxel.ChunkCoord]struct{}),
	}
}

// Add buffers one write and refreshes the bucket's timestamp.
func (eb *EditBuffer) Add(cc voxel.ChunkCoord, pos voxel.LocalPos, b voxel.Block, now time.Time) {
	bucket, ok := eb.buckets[cc]
	if !ok {
		bucket = &voxel.MetaBucket{}
		eb.buckets[cc] = bucket
	}
	bucket.Add(pos, b, now)
	eb.edits++
	if _, ok := eb.queued[cc]; !ok {
		eb.queued[cc] = struct{}{}
		eb.queue = append(eb.queue, cc)
	}
}

// Take removes and returns the bucket for cc, or nil. A stale queue entry is
// left behind and skipped by Maintain.
func (eb *EditBuffer) Take(cc voxel.ChunkCoord) *voxel.MetaBucket {
	b, ok := eb.buckets[cc]
	if !ok {
		return nil
	}
	delete(eb.buckets, cc)
	eb.edits -= b.Len()
	return b
}

// Bucket returns the bucket for cc without removing it.
func (eb *EditBuffer) Bucket(cc voxel.ChunkCoord) *voxel.MetaBucket {
	return eb.buckets[cc]
}

// Len returns the number of buckets.
func (eb *EditBuffer) Len() int { return len(eb.buckets) }

// Edits returns the number of buffered writes across all buckets.
func (eb *EditBuffer) Edits() int { return eb.edits }

// Maintain inspects at most limit queued coordinates, oldest first; a limit of
// 0 or less inspects each queued coordinate once. Buckets
// untouched for at least maxAge are handed to flush and dropped, younger ones
// go to the back of the queue. A bucket whose flush fails is dropped as well;
// the error is returned.
func (eb *EditBuffer) Maintain(now time.Time, maxAge time.Duration, limit int, flush FlushFunc) (int, error) {
	var errs []error
	flushed := 0
	if limit <= 0 {
		limit = len(eb.queue)
	}
	for i := 0; i < limit && len(eb.queue) > 0; i++ {
		cc := eb.queue[0]
		eb.queue = eb.queue[1:]

		b, ok := eb.buckets[cc]
		if !ok {
			delete(eb.queued, cc)
			continue
		}
		if now.Sub(b.LastTouched) < maxAge {
			eb.queue = append(eb.queue, cc)
			continue
		}
		delete(eb.queued, cc)
		eb.Take(cc)
		if err := flush(cc, b); err != nil {
			errs = append(errs, err)
			continue
		}
		flushed++
	}
	return flushed, errors.Join(errs...)
}

// Drain flushes every bucket regardless of age, in queue order.
func (eb *EditBuffer) Drain(flush FlushFunc) (int, error) {
	var errs []error
	flushed := 0
	for _, cc := range eb.queue {
		b := eb.Take(cc)
		if b == nil {
			continue
		}
		if err := flush(cc, b); err != nil {
			errs = append(errs, err)
			continue
		}
		flushed++
	}
	eb.queue = eb.queue[:0]
	clear(eb.queued)
	return flushed, errors.Join(errs...)
}
