package model

import "testing"

func mustAddress(t *testing.T, s string) Address {
	t.Helper()
	a, err := AddressFromHex(s)
	if err != nil {
		t.Fatalf("AddressFromHex(%q): %v", s, err)
	}
	return a
}

func TestShortRendering(t *testing.T) {
	addr := mustAddress(t, "0x2")
	bar := &StructTag{Address: addr, Module: "mod", Name: "Bar"}

	tests := []struct {
		name string
		tag  TypeTag
		want string
	}{
		{"plain struct", bar, "mod::Bar"},
		{"generic struct", &StructTag{Address: addr, Module: "mod", Name: "Foo", TypeParams: []TypeTag{bar}}, "mod::Foo<mod::Bar>"},
		{"vector of struct", &VectorTag{Elem: bar}, "Vector<mod::Bar>"},
		{"vector as type param", &StructTag{Address: addr, Module: "mod", Name: "Foo", TypeParams: []TypeTag{&VectorTag{Elem: bar}}}, "mod::Foo<Vector<mod::Bar>>"},
		{"primitive", PrimitiveTag("u64"), "u64"},
		{"two params", &StructTag{Address: addr, Module: "mod", Name: "Pair", TypeParams: []TypeTag{PrimitiveTag("u64"), bar}}, "mod::Pair<u64, mod::Bar>"},
		{"nested vectors", &VectorTag{Elem: &VectorTag{Elem: PrimitiveTag("u8")}}, "Vector<Vector<u8>>"},
	}

	for _, tt := range tests {
		if got := tt.tag.Short(); got != tt.want {
			t.Errorf("%s: Short() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestCanonicalRoundTrip(t *testing.T) {
	addr := mustAddress(t, "0x2")
	other := mustAddress(t, "0xabcdef")
	bar := &StructTag{Address: addr, Module: "mod", Name: "Bar"}

	tags := []TypeTag{
		PrimitiveTag("bool"),
		PrimitiveTag("address"),
		bar,
		&VectorTag{Elem: PrimitiveTag("u128")},
		&VectorTag{Elem: bar},
		&StructTag{Address: other, Module: "pool", Name: "Swap", TypeParams: []TypeTag{
			&StructTag{Address: addr, Module: "coin", Name: "Coin", TypeParams: []TypeTag{bar}},
			PrimitiveTag("u64"),
		}},
	}

	for _, tag := range tags {
		canonical := tag.Canonical()
		parsed, err := ParseTypeTag(canonical)
		if err != nil {
			t.Fatalf("ParseTypeTag(%q): %v", canonical, err)
		}
		if parsed.Canonical() != canonical {
			t.Errorf("round trip changed %q to %q", canonical, parsed.Canonical())
		}
	}
}

func TestParseTypeTagAcceptsSpacedParams(t *testing.T) {
	addr := mustAddress(t, "0x2")
	tag, err := ParseTypeTag(addr.String() + "::mod::Pair<u64, vector<u8>>")
	if err != nil {
		t.Fatalf("ParseTypeTag: %v", err)
	}
	st, ok := tag.(*StructTag)
	if !ok {
		t.Fatalf("expected struct tag, got %T", tag)
	}
	if len(st.TypeParams) != 2 {
		t.Fatalf("expected 2 type params, got %d", len(st.TypeParams))
	}
	if st.Short() != "mod::Pair<u64, Vector<u8>>" {
		t.Errorf("Short() = %q", st.Short())
	}
}

func TestParseTypeTagRejectsMalformed(t *testing.T) {
	for _, s := range []string{
		"",
		"vector",
		"vector<u8",
		"0x2::mod",
		"0x2::mod::Name<",
		"0x2::mod::Name<u8,>",
		"0x2::mod::Name trailing",
		"zz::mod::Name",
	} {
		if _, err := ParseTypeTag(s); err == nil {
			t.Errorf("ParseTypeTag(%q) succeeded, want error", s)
		}
	}
}
