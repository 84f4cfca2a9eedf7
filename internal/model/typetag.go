package model

import (
	"fmt"
	"strings"
)

// TypeTag is the fully-qualified, possibly-generic type of an event. The
// variant set is closed: primitive, struct, or vector.
type TypeTag interface {
	// Canonical returns a deterministic fully-qualified rendering. It is
	// structural: two tags render identically iff they are the same logical
	// type, so the string doubles as map-key material and sort tie-break.
	Canonical() string

	// Short returns the compact human-readable rendering used in reports.
	Short() string
}

// PrimitiveTag is a builtin type such as u64, bool or address.
type PrimitiveTag string

func (p PrimitiveTag) Canonical() string { return string(p) }
func (p PrimitiveTag) Short() string     { return string(p) }

// StructTag identifies a declared struct type, including its declaring
// address, module, name and any type parameters.
type StructTag struct {
	Address    Address
	Module     string
	Name       string
	TypeParams []TypeTag
}

func (s *StructTag) Canonical() string {
	var b strings.Builder
	b.WriteString(s.Address.String())
	b.WriteString("::")
	b.WriteString(s.Module)
	b.WriteString("::")
	b.WriteString(s.Name)
	if len(s.TypeParams) > 0 {
		b.WriteByte('<')
		for i, p := range s.TypeParams {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(p.Canonical())
		}
		b.WriteByte('>')
	}
	return b.String()
}

// Short renders module::name, with recursively-shortened type parameters
// when present, e.g. pool::Swap<coin::Coin<0x2::sui::SUI>>.
func (s *StructTag) Short() string {
	base := s.Module + "::" + s.Name
	if len(s.TypeParams) == 0 {
		return base
	}
	params := make([]string, len(s.TypeParams))
	for i, p := range s.TypeParams {
		params[i] = p.Short()
	}
	return fmt.Sprintf("%s<%s>", base, strings.Join(params, ", "))
}

// VectorTag is a homogeneous vector of some element type.
type VectorTag struct {
	Elem TypeTag
}

func (v *VectorTag) Canonical() string {
	return "vector<" + v.Elem.Canonical() + ">"
}

func (v *VectorTag) Short() string {
	return "Vector<" + v.Elem.Short() + ">"
}

// ParseTypeTag parses a canonical type string back into a TypeTag. It is the
// inverse of Canonical and accepts an optional space after parameter commas.
func ParseTypeTag(s string) (TypeTag, error) {
	p := &tagParser{input: s}
	tag, err := p.parse()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.pos != len(s) {
		return nil, fmt.Errorf("trailing input at %d in type tag %q", p.pos, s)
	}
	return tag, nil
}

var primitives = map[string]bool{
	"bool": true, "u8": true, "u16": true, "u32": true,
	"u64": true, "u128": true, "u256": true,
	"address": true, "signer": true,
}

type tagParser struct {
	input string
	pos   int
}

func (p *tagParser) parse() (TypeTag, error) {
	p.skipSpaces()
	ident := p.readIdent()
	if ident == "" {
		return nil, fmt.Errorf("empty type at %d in %q", p.pos, p.input)
	}

	if ident == "vector" {
		if !p.consume('<') {
			return nil, fmt.Errorf("vector without element type in %q", p.input)
		}
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		if !p.consume('>') {
			return nil, fmt.Errorf("unterminated vector in %q", p.input)
		}
		return &VectorTag{Elem: elem}, nil
	}

	if primitives[ident] {
		return PrimitiveTag(ident), nil
	}

	addr, err := AddressFromHex(ident)
	if err != nil {
		return nil, fmt.Errorf("type tag %q: %w", p.input, err)
	}
	module, err := p.readQualifier()
	if err != nil {
		return nil, err
	}
	name, err := p.readQualifier()
	if err != nil {
		return nil, err
	}

	st := &StructTag{Address: addr, Module: module, Name: name}
	if p.consume('<') {
		for {
			param, err := p.parse()
			if err != nil {
				return nil, err
			}
			st.TypeParams = append(st.TypeParams, param)
			if p.consume(',') {
				continue
			}
			break
		}
		if !p.consume('>') {
			return nil, fmt.Errorf("unterminated type parameters in %q", p.input)
		}
	}
	return st, nil
}

func (p *tagParser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *tagParser) consume(c byte) bool {
	p.skipSpaces()
	if p.pos < len(p.input) && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *tagParser) readIdent() string {
	start := p.pos
	for p.pos < len(p.input) && isIdentChar(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *tagParser) readQualifier() (string, error) {
	if p.pos+1 >= len(p.input) || p.input[p.pos] != ':' || p.input[p.pos+1] != ':' {
		return "", fmt.Errorf("expected :: at %d in type tag %q", p.pos, p.input)
	}
	p.pos += 2
	ident := p.readIdent()
	if ident == "" {
		return "", fmt.Errorf("empty identifier at %d in type tag %q", p.pos, p.input)
	}
	return ident, nil
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '_'
}
