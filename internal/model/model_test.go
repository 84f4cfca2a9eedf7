package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestAddressFromHex(t *testing.T) {
	a := mustAddress(t, "0xa")
	want := "0x" + strings.Repeat("0", 62) + "0a"
	if a.String() != want {
		t.Errorf("short address padded to %q, want %q", a.String(), want)
	}

	full := "0x" + strings.Repeat("ab", 32)
	if got := mustAddress(t, full).String(); got != full {
		t.Errorf("full address rendered as %q, want %q", got, full)
	}

	for _, s := range []string{"", "0x", "xyz", "0x" + strings.Repeat("0", 66)} {
		if _, err := AddressFromHex(s); err == nil {
			t.Errorf("AddressFromHex(%q) succeeded, want error", s)
		}
	}
}

func TestEventJSONRoundTrip(t *testing.T) {
	addr := mustAddress(t, "0x2")
	pkg, err := PackageIDFromHex("0xdead")
	if err != nil {
		t.Fatalf("PackageIDFromHex: %v", err)
	}

	ev := Event{
		TxDigest:          "9zR7",
		EventSeq:          3,
		Sender:            mustAddress(t, "0xbeef"),
		PackageID:         pkg,
		TransactionModule: "pool",
		Type: &StructTag{
			Address: addr,
			Module:  "pool",
			Name:    "Swap",
			TypeParams: []TypeTag{
				&StructTag{Address: addr, Module: "sui", Name: "SUI"},
			},
		},
	}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Event
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.TxDigest != ev.TxDigest || decoded.EventSeq != ev.EventSeq {
		t.Errorf("event identity changed: %+v", decoded)
	}
	if decoded.Sender != ev.Sender || decoded.PackageID != ev.PackageID {
		t.Errorf("event addresses changed: %+v", decoded)
	}
	if decoded.Type.Canonical() != ev.Type.Canonical() {
		t.Errorf("type tag changed: %q want %q", decoded.Type.Canonical(), ev.Type.Canonical())
	}
}
