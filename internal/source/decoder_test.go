package source

import (
	"testing"

	"ChainHarvest/internal/model"
)

func TestJSONDecoder(t *testing.T) {
	blob := []byte(`{
		"summary": {"sequence_number": 42, "epoch": 7, "timestamp_ms": 1700000000000},
		"events": [{
			"tx_digest": "abc",
			"event_seq": 0,
			"sender": "0x1",
			"package_id": "0x2",
			"transaction_module": "pool",
			"type": "0x2::pool::Swap<0x2::sui::SUI>"
		}]
	}`)

	summary, events, err := JSONDecoder{}.Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if summary.SequenceNumber != 42 || summary.Epoch != 7 {
		t.Errorf("summary = %+v", summary)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Type.Short() != "pool::Swap<sui::SUI>" {
		t.Errorf("event type = %q", events[0].Type.Short())
	}

	var zeroPkg model.PackageID
	if events[0].PackageID == zeroPkg {
		t.Error("package id not decoded")
	}
}

func TestJSONDecoderRejectsGarbage(t *testing.T) {
	for _, blob := range []string{
		"not json",
		`{"events": [{"type": "not-a-type"}]}`,
		`{"events": [{"type": "u64"}]}`, // primitive cannot be an event type
	} {
		if _, _, err := (JSONDecoder{}).Decode([]byte(blob)); err == nil {
			t.Errorf("Decode(%q) succeeded, want error", blob)
		}
	}
}

func TestCacheRoundTripAndResume(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	if _, ok := cache.Get(7); ok {
		t.Error("Get on empty cache reported a hit")
	}
	if err := cache.Put(7, []byte("blob")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	blob, ok := cache.Get(7)
	if !ok || string(blob) != "blob" {
		t.Errorf("Get = %q/%v, want blob/true", blob, ok)
	}

	state, err := cache.LoadResume()
	if err != nil || state != nil {
		t.Errorf("LoadResume on fresh cache = %+v/%v, want nil/nil", state, err)
	}
	if err := cache.SaveResume(ResumeState{NextCheckpoint: 8}); err != nil {
		t.Fatalf("SaveResume: %v", err)
	}
	state, err = cache.LoadResume()
	if err != nil {
		t.Fatalf("LoadResume: %v", err)
	}
	if state == nil || state.NextCheckpoint != 8 {
		t.Errorf("resume state = %+v, want next 8", state)
	}
}
