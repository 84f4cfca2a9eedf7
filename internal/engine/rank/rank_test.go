package rank

import (
	"reflect"
	"testing"

	"ChainHarvest/internal/engine/histogram"
	"ChainHarvest/internal/model"
)

func addr(t *testing.T, s string) model.Address {
	t.Helper()
	a, err := model.AddressFromHex(s)
	if err != nil {
		t.Fatalf("AddressFromHex(%q): %v", s, err)
	}
	return a
}

func pkg(t *testing.T, s string) model.PackageID {
	t.Helper()
	p, err := model.PackageIDFromHex(s)
	if err != nil {
		t.Fatalf("PackageIDFromHex(%q): %v", s, err)
	}
	return p
}

func bucket(t *testing.T, a model.Address, typeCounts map[string]uint64) *histogram.AddressBucket {
	t.Helper()
	b := &histogram.AddressBucket{Types: make(map[string]*histogram.TypeCount)}
	for name, count := range typeCounts {
		tag := &model.StructTag{Address: a, Module: "mod", Name: name}
		b.Types[tag.Canonical()] = &histogram.TypeCount{Tag: tag, Count: count}
		b.Total += count
	}
	return b
}

func TestCutoffRounding(t *testing.T) {
	tests := []struct {
		total    uint64
		suppress float64
		want     uint64
	}{
		{1000, 0.5, 5},
		{900, 0.5, 5}, // 4.5 rounds away from zero
		{899, 0.5, 4}, // 4.495 rounds down
		{1000, 0, 0},
		{0, 0.5, 0},
	}
	for _, tt := range tests {
		if got := Cutoff(tt.total, tt.suppress); got != tt.want {
			t.Errorf("Cutoff(%d, %v) = %d, want %d", tt.total, tt.suppress, got, tt.want)
		}
	}
}

func TestFinalizeSuppression(t *testing.T) {
	a := addr(t, "0xa")
	b := addr(t, "0xb")
	c := addr(t, "0xc")
	snap := &histogram.Snapshot{
		Buckets: map[model.Address]*histogram.AddressBucket{
			a: bucket(t, a, map[string]uint64{"A": 5}),
			b: bucket(t, b, map[string]uint64{"B": 4}),
			c: bucket(t, c, map[string]uint64{"C": 991}),
		},
		TotalEvents: 1000,
	}

	entries, cutoff := Finalize(snap, 0.5)
	if cutoff != 5 {
		t.Fatalf("cutoff = %d, want 5", cutoff)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (count 4 dropped, count 5 kept)", len(entries))
	}
	if entries[0].Address != c || entries[0].Total != 991 {
		t.Errorf("entries[0] = %v/%d, want 0xc/991", entries[0].Address, entries[0].Total)
	}
	if entries[1].Address != a || entries[1].Total != 5 {
		t.Errorf("entries[1] = %v/%d, want 0xa/5", entries[1].Address, entries[1].Total)
	}
}

func TestFinalizeZeroSuppressKeepsEverything(t *testing.T) {
	a := addr(t, "0xa")
	snap := &histogram.Snapshot{
		Buckets: map[model.Address]*histogram.AddressBucket{
			a: bucket(t, a, map[string]uint64{"A": 1}),
		},
		TotalEvents: 1,
	}
	entries, cutoff := Finalize(snap, 0)
	if cutoff != 0 {
		t.Errorf("cutoff = %d, want 0", cutoff)
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries, want 1", len(entries))
	}
}

func TestFinalizeDeterministicTieBreaks(t *testing.T) {
	// Equal totals everywhere: ordering must come from the canonical keys,
	// not map iteration order.
	a := addr(t, "0xa")
	b := addr(t, "0xb")
	snap := &histogram.Snapshot{
		Buckets: map[model.Address]*histogram.AddressBucket{
			b: bucket(t, b, map[string]uint64{"X": 2, "Y": 2}),
			a: bucket(t, a, map[string]uint64{"Z": 4}),
		},
		TotalEvents: 8,
	}

	entries, _ := Finalize(snap, 0)
	if entries[0].Address != a || entries[1].Address != b {
		t.Fatalf("tie not broken by address: got %v then %v", entries[0].Address, entries[1].Address)
	}
	inner := entries[1].Types
	if inner[0].Tag.Name != "X" || inner[1].Tag.Name != "Y" {
		t.Errorf("inner tie not broken by canonical type: got %s then %s", inner[0].Tag.Name, inner[1].Tag.Name)
	}

	for i := 0; i < 10; i++ {
		again, _ := Finalize(snap, 0)
		if !reflect.DeepEqual(entries, again) {
			t.Fatal("Finalize is not deterministic across calls")
		}
	}
}

func TestFinalizeEmptySnapshot(t *testing.T) {
	snap := &histogram.Snapshot{Buckets: map[model.Address]*histogram.AddressBucket{}}
	entries, cutoff := Finalize(snap, 0.5)
	if cutoff != 0 || len(entries) != 0 {
		t.Errorf("empty snapshot: entries=%d cutoff=%d, want 0/0", len(entries), cutoff)
	}
}

func TestPackagesOrdering(t *testing.T) {
	snap := &histogram.Snapshot{
		Packages: map[model.PackageID]uint64{
			pkg(t, "0x30"): 5,
			pkg(t, "0x10"): 7,
			pkg(t, "0x20"): 5,
		},
	}
	out := Packages(snap)
	if len(out) != 3 {
		t.Fatalf("got %d packages, want 3", len(out))
	}
	if out[0].Package != pkg(t, "0x10") {
		t.Errorf("highest count not first: %v", out[0])
	}
	if out[1].Package != pkg(t, "0x20") || out[2].Package != pkg(t, "0x30") {
		t.Errorf("tie not broken by package id: %v then %v", out[1].Package, out[2].Package)
	}
}
