package ink

import (
	"encoding/binary"
	"fmt"

	"github.com/dchest/siphash"
	"github.com/relab/bbhash"
)

// Fixed siphash keys so that table slots are stable across processes.
const (
	sipK0 uint64 = 0x626c75657072696e // "blueprin"
	sipK1 uint64 = 0x74696e6b636f6465 // "tinkcode"
)

// codeTable maps a code to its ink through a minimal perfect hash. The hash
// gives a slot for any key, so every hit is verified against the stored code.
type codeTable struct {
	mph   *bbhash.BBHash2
	codes []uint32
	inks  []Ink
}

var table = mustBuildTable()

func mustBuildTable() *codeTable {
	t, err := buildTable(All())
	if err != nil {
		panic(fmt.Sprintf("ink: build code table: %v", err))
	}
	return t
}

func buildTable(inks []Ink) (*codeTable, error) {
	keys := make([]uint64, len(inks))
	for n, i := range inks {
		keys[n] = hashCode(infos[i].code)
	}

	mph, err := bbhash.New(keys, bbhash.Gamma(2.0))
	if err != nil {
		return nil, fmt.Errorf("build MPHF: %w", err)
	}

	// BBHash returns 1-indexed values; slot 0 means "not found".
	t := &codeTable{
		mph:   mph,
		codes: make([]uint32, len(inks)),
		inks:  make([]Ink, len(inks)),
	}
	for n, i := range inks {
		pos := mph.Find(keys[n])
		if pos == 0 || pos > uint64(len(inks)) {
			return nil, fmt.Errorf("MPHF lookup failed for %s", i)
		}
		t.codes[pos-1] = infos[i].code
		t.inks[pos-1] = i
	}
	return t, nil
}

func (t *codeTable) lookup(code uint32) (Ink, bool) {
	pos := t.mph.Find(hashCode(code))
	if pos == 0 || pos > uint64(len(t.codes)) {
		return Invalid, false
	}
	pos--
	if t.codes[pos] != code {
		return Invalid, false
	}
	return t.inks[pos], true
}

func hashCode(code uint32) uint64 {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], code)
	return siphash.Hash(sipK0, sipK1, b[:])
}
