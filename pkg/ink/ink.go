// Package ink defines the closed set of cell types found in blueprint grids
// and the mapping between each type and its 32-bit code.
package ink

import (
	"strconv"
	"strings"
)

// Ink is the functional type of one grid cell.
type Ink uint8

// Invalid is a placeholder with no code of its own. It is only produced by
// grid decoding when a cell holds a code outside the table.
const (
	Invalid Ink = iota
	Empty
	Write
	Read
	Cross
	Trace
	Buffer
	And
	Or
	Xor
	Not
	Nand
	Nor
	Xnor
	LatchOn
	LatchOff
	Clock
	LED

	numInks = iota
)

// Codes as they appear in a decoded payload when each 4-byte cell is read
// big-endian. They double as ARGB colors in the editor.
const (
	CodeEmpty    uint32 = 0x00000000
	CodeWrite    uint32 = 0xFF3E384D
	CodeRead     uint32 = 0xFF5D472E
	CodeCross    uint32 = 0xFF8E7866
	CodeTrace    uint32 = 0xFF5698A1
	CodeBuffer   uint32 = 0xFF63FF92
	CodeAnd      uint32 = 0xFF63C6FF
	CodeOr       uint32 = 0xFFFFF263
	CodeXor      uint32 = 0xFFFF74AE
	CodeNot      uint32 = 0xFF8A62FF
	CodeNand     uint32 = 0xFF00A2FF
	CodeNor      uint32 = 0xFFFFD930
	CodeXnor     uint32 = 0xFFFF00A6
	CodeLatchOn  uint32 = 0xFF9FFF63
	CodeLatchOff uint32 = 0xFF474D38
	CodeClock    uint32 = 0xFF4100FF
	CodeLED      uint32 = 0xFFFFFFFF
)

type info struct {
	name  string
	code  uint32
	glyph rune
}

var infos = [numInks]info{
	Invalid:  {name: "Invalid", glyph: '?'},
	Empty:    {name: "Empty", code: CodeEmpty, glyph: '.'},
	Write:    {name: "Write", code: CodeWrite, glyph: 'w'},
	Read:     {name: "Read", code: CodeRead, glyph: 'r'},
	Cross:    {name: "Cross", code: CodeCross, glyph: '+'},
	Trace:    {name: "Trace", code: CodeTrace, glyph: 't'},
	Buffer:   {name: "Buffer", code: CodeBuffer, glyph: 'b'},
	And:      {name: "And", code: CodeAnd, glyph: '&'},
	Or:       {name: "Or", code: CodeOr, glyph: '|'},
	Xor:      {name: "Xor", code: CodeXor, glyph: '^'},
	Not:      {name: "Not", code: CodeNot, glyph: '!'},
	Nand:     {name: "Nand", code: CodeNand, glyph: 'N'},
	Nor:      {name: "Nor", code: CodeNor, glyph: 'O'},
	Xnor:     {name: "Xnor", code: CodeXnor, glyph: 'X'},
	LatchOn:  {name: "LatchOn", code: CodeLatchOn, glyph: 'L'},
	LatchOff: {name: "LatchOff", code: CodeLatchOff, glyph: 'l'},
	Clock:    {name: "Clock", code: CodeClock, glyph: 'c'},
	LED:      {name: "LED", code: CodeLED, glyph: '*'},
}

// String returns the ink's name.
func (i Ink) String() string {
	if int(i) >= numInks {
		return "Ink(" + strconv.Itoa(int(i)) + ")"
	}
	return infos[i].name
}

// Glyph returns the rune used when a grid is rendered as text.
func (i Ink) Glyph() rune {
	if int(i) >= numInks {
		return infos[Invalid].glyph
	}
	return infos[i].glyph
}

// Valid reports whether i is one of the coded inks (not Invalid and in range).
func (i Ink) Valid() bool {
	return i > Invalid && int(i) < numInks
}

// All returns every coded ink in declaration order.
func All() []Ink {
	out := make([]Ink, 0, numInks-1)
	for i := Empty; int(i) < numInks; i++ {
		out = append(out, i)
	}
	return out
}

// CodeOf returns the code for i. It reports false for Invalid and for values
// outside the enumeration.
func CodeOf(i Ink) (uint32, bool) {
	if !i.Valid() {
		return 0, false
	}
	return infos[i].code, true
}

// FromCode returns the ink with the given code. It never returns Invalid.
func FromCode(code uint32) (Ink, bool) {
	return table.lookup(code)
}

// Parse returns the ink with the given name, ignoring case.
func Parse(name string) (Ink, bool) {
	for i := Empty; int(i) < numInks; i++ {
		if strings.EqualFold(infos[i].name, name) {
			return i, true
		}
	}
	return Invalid, false
}
