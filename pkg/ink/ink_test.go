package ink

import (
	"testing"
)

func TestCodeRoundTrip(t *testing.T) {
	for _, i := range All() {
		code, ok := CodeOf(i)
		if !ok {
			t.Fatalf("CodeOf(%s) reported no code", i)
		}
		got, ok := FromCode(code)
		if !ok {
			t.Fatalf("FromCode(%#08x) not found, want %s", code, i)
		}
		if got != i {
			t.Errorf("FromCode(CodeOf(%s)) = %s", i, got)
		}
	}
}

func TestAllExcludesInvalid(t *testing.T) {
	all := All()
	if len(all) != 17 {
		t.Fatalf("len(All()) = %d, want 17", len(all))
	}
	for _, i := range all {
		if i == Invalid {
			t.Fatal("All() contains Invalid")
		}
	}
}

func TestInvalidHasNoCode(t *testing.T) {
	if _, ok := CodeOf(Invalid); ok {
		t.Error("CodeOf(Invalid) reported a code")
	}
	if _, ok := CodeOf(Ink(200)); ok {
		t.Error("CodeOf(out of range) reported a code")
	}
}

func TestFromCodeUnknown(t *testing.T) {
	tests := []uint32{
		0x69696969,
		0x00000001,
		0xFF000000,
		0x4D383EFF, // CodeWrite with bytes reversed
		0xDEADBEEF,
	}
	for _, code := range tests {
		got, ok := FromCode(code)
		if ok {
			t.Errorf("FromCode(%#08x) = %s, want not found", code, got)
		}
		if got != Invalid {
			t.Errorf("FromCode(%#08x) returned %s on miss, want Invalid", code, got)
		}
	}
}

func TestFromCodeNeverInvalid(t *testing.T) {
	// Sweep a slice of the code space around the real codes.
	for _, i := range All() {
		base, _ := CodeOf(i)
		for d := uint32(0); d < 64; d++ {
			if got, ok := FromCode(base ^ d); ok && got == Invalid {
				t.Fatalf("FromCode(%#08x) returned Invalid with ok", base^d)
			}
		}
	}
}

func TestKnownCodes(t *testing.T) {
	tests := []struct {
		code uint32
		want Ink
	}{
		{0x00000000, Empty},
		{0xFF3E384D, Write},
		{0xFF5D472E, Read},
		{0xFF8E7866, Cross},
		{0xFF5698A1, Trace},
		{0xFF63FF92, Buffer},
		{0xFF63C6FF, And},
		{0xFFFFF263, Or},
		{0xFFFF74AE, Xor},
		{0xFF8A62FF, Not},
		{0xFF00A2FF, Nand},
		{0xFFFFD930, Nor},
		{0xFFFF00A6, Xnor},
		{0xFF9FFF63, LatchOn},
		{0xFF474D38, LatchOff},
		{0xFF4100FF, Clock},
		{0xFFFFFFFF, LED},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			got, ok := FromCode(tt.code)
			if !ok || got != tt.want {
				t.Errorf("FromCode(%#08x) = %s, %v; want %s, true", tt.code, got, ok, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	for _, i := range All() {
		got, ok := Parse(i.String())
		if !ok || got != i {
			t.Errorf("Parse(%q) = %s, %v", i.String(), got, ok)
		}
	}
	if got, ok := Parse("latchon"); !ok || got != LatchOn {
		t.Errorf("Parse(latchon) = %s, %v; want LatchOn", got, ok)
	}
	if _, ok := Parse("Invalid"); ok {
		t.Error("Parse(Invalid) should fail")
	}
	if _, ok := Parse("nope"); ok {
		t.Error("Parse(nope) should fail")
	}
}

func TestGlyphsDistinct(t *testing.T) {
	seen := make(map[rune]Ink)
	for _, i := range append([]Ink{Invalid}, All()...) {
		g := i.Glyph()
		if prev, dup := seen[g]; dup {
			t.Errorf("glyph %q shared by %s and %s", g, prev, i)
		}
		seen[g] = i
	}
	if Ink(99).Glyph() != Invalid.Glyph() {
		t.Error("out-of-range ink should render as Invalid")
	}
	if Ink(99).String() != "Ink(99)" {
		t.Errorf("Ink(99).String() = %q", Ink(99).String())
	}
}
