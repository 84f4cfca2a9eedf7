package rank

import (
	"math"
	"sort"

	"ChainHarvest/internal/engine/histogram"
	"ChainHarvest/internal/model"
)

// TypeCount is one event type's share of an address bucket.
type TypeCount struct {
	Tag   *model.StructTag
	Count uint64
}

// Entry is the ranked, suppressed snapshot of one address bucket. Entries
// and their nested type counts are already in final report order.
type Entry struct {
	Address model.Address
	Total   uint64
	Types   []TypeCount
}

// Cutoff converts the suppression percentage into the minimum bucket total.
// Rounding is round-half-away-from-zero (math.Round): with 900 events and
// 0.5%, 4.5 rounds up and buckets of 4 disappear.
func Cutoff(totalEvents uint64, suppressPct float64) uint64 {
	return uint64(math.Round(float64(totalEvents) * suppressPct / 100))
}

// Finalize turns the frozen snapshot into the ranked, suppressed entry list.
// Buckets sort by total descending, ties broken by canonical address so two
// runs over the same stream render byte-identically regardless of map
// iteration order. Buckets whose total falls below the cutoff are dropped;
// a total equal to the cutoff survives. The snapshot is never mutated, so
// calling Finalize again yields the same result.
func Finalize(snap *histogram.Snapshot, suppressPct float64) ([]Entry, uint64) {
	cutoff := Cutoff(snap.TotalEvents, suppressPct)

	entries := make([]Entry, 0, len(snap.Buckets))
	for addr, bucket := range snap.Buckets {
		if bucket.Total < cutoff {
			continue
		}
		types := make([]TypeCount, 0, len(bucket.Types))
		for _, tc := range bucket.Types {
			types = append(types, TypeCount{Tag: tc.Tag, Count: tc.Count})
		}
		sort.Slice(types, func(i, j int) bool {
			if types[i].Count != types[j].Count {
				return types[i].Count > types[j].Count
			}
			return types[i].Tag.Canonical() < types[j].Tag.Canonical()
		})
		entries = append(entries, Entry{Address: addr, Total: bucket.Total, Types: types})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Total != entries[j].Total {
			return entries[i].Total > entries[j].Total
		}
		return entries[i].Address.String() < entries[j].Address.String()
	})

	return entries, cutoff
}

// PackageCount is one package's event count in the final listing.
type PackageCount struct {
	Package model.PackageID
	Count   uint64
}

// Packages orders the per-package counters for rendering: count descending,
// ties broken by canonical package id.
func Packages(snap *histogram.Snapshot) []PackageCount {
	out := make([]PackageCount, 0, len(snap.Packages))
	for id, count := range snap.Packages {
		out = append(out, PackageCount{Package: id, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Package.String() < out[j].Package.String()
	})
	return out
}
