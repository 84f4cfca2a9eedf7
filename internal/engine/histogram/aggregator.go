package histogram

import (
	"log"

	"ChainHarvest/internal/model"
)

// TypeCount pairs an event type with its running count inside one address
// bucket. The tag is retained so downstream rendering never has to re-parse
// the canonical key.
type TypeCount struct {
	Tag   *model.StructTag
	Count uint64
}

// AddressBucket accumulates event counts for one emitting address: a running
// total plus a nested per-type breakdown keyed by the type's canonical form.
type AddressBucket struct {
	Total uint64
	Types map[string]*TypeCount
}

// Snapshot is the frozen aggregate state handed to ranking and statistics
// after the stream ends. Nothing mutates it afterwards.
type Snapshot struct {
	Buckets     map[model.Address]*AddressBucket
	Packages    map[model.PackageID]uint64
	TotalEvents uint64
	Checkpoints uint64
}

// Aggregator folds event batches into the two-level address/type histogram
// and the flat per-package counter. It is owned by a single consumer
// goroutine, so the maps carry no locks.
type Aggregator struct {
	buckets     map[model.Address]*AddressBucket
	packages    map[model.PackageID]uint64
	events      uint64
	checkpoints uint64
	frozen      *Snapshot
}

// New returns an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{
		buckets:  make(map[model.Address]*AddressBucket),
		packages: make(map[model.PackageID]uint64),
	}
}

// Ingest folds one checkpoint's batch into the aggregate state, in batch
// order. Every event increments exactly one address bucket, one nested type
// count and one package counter, which keeps the three totals conserved.
func (a *Aggregator) Ingest(batch *model.EventBatch) {
	a.checkpoints++
	for i := range batch.Events {
		ev := &batch.Events[i]

		bucket, ok := a.buckets[ev.EmittingAddress()]
		if !ok {
			bucket = &AddressBucket{Types: make(map[string]*TypeCount)}
			a.buckets[ev.EmittingAddress()] = bucket
		}
		bucket.Total++

		key := ev.Type.Canonical()
		tc, ok := bucket.Types[key]
		if !ok {
			tc = &TypeCount{Tag: ev.Type}
			bucket.Types[key] = tc
		}
		tc.Count++

		a.packages[ev.PackageID]++
		a.events++
	}
}

// EventCount reports the number of events folded so far.
func (a *Aggregator) EventCount() uint64 {
	return a.events
}

// Snapshot freezes the aggregate state and returns it. Ownership of the maps
// transfers to the snapshot; the caller must not Ingest afterwards. Calling
// Snapshot again returns the same frozen state.
func (a *Aggregator) Snapshot() *Snapshot {
	if a.frozen == nil {
		a.frozen = &Snapshot{
			Buckets:     a.buckets,
			Packages:    a.packages,
			TotalEvents: a.events,
			Checkpoints: a.checkpoints,
		}
	}
	return a.frozen
}

// Run drains the batch channel until the producer closes it, folding every
// batch and forwarding each one to the optional sinks. Sink failures are
// logged and skipped: partial archival never aborts aggregation. The
// returned snapshot covers every batch that was enqueued before closure.
func Run(batches <-chan model.EventBatch, sinks ...model.Sink) *Snapshot {
	agg := New()
	for batch := range batches {
		agg.Ingest(&batch)
		for _, sink := range sinks {
			if err := sink.Write(&batch); err != nil {
				log.Printf("sink write failed for checkpoint %d: %v",
					batch.Summary.SequenceNumber, err)
			}
		}
	}
	return agg.Snapshot()
}
