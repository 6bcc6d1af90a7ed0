package blueprint

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/eunmann/bpdecode/pkg/ink"
)

type testBlock struct {
	id      uint32
	payload []byte
}

// buildContainer encodes a header and blocks with the package Encoder.
func buildContainer(t *testing.T, h Header, blocks ...testBlock) []byte {
	t.Helper()

	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, CompressionDefault)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	defer enc.Close()

	if err := enc.WriteHeader(h); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	for _, b := range blocks {
		if err := enc.WriteBlock(b.id, b.payload); err != nil {
			t.Fatalf("WriteBlock: %v", err)
		}
	}
	return buf.Bytes()
}

// compress returns payload as a single zstd frame.
func compress(t *testing.T, payload []byte) []byte {
	t.Helper()

	enc, err := zstd.NewWriter(nil, zstd.WithZeroFrames(true))
	if err != nil {
		t.Fatalf("zstd.NewWriter: %v", err)
	}
	defer enc.Close()
	return enc.EncodeAll(payload, nil)
}

// rawBlock builds a block record by hand from already-compressed bytes.
func rawBlock(size, id, dataSize uint32, compressed ...[]byte) []byte {
	buf := make([]byte, blockFieldsSize)
	binary.BigEndian.PutUint32(buf[0:4], size)
	binary.BigEndian.PutUint32(buf[4:8], id)
	binary.BigEndian.PutUint32(buf[8:12], dataSize)
	for _, c := range compressed {
		buf = append(buf, c...)
	}
	return buf
}

// skippableFrame builds a zstd skippable frame holding data.
func skippableFrame(data []byte) []byte {
	buf := make([]byte, 8, 8+len(data))
	binary.LittleEndian.PutUint32(buf[0:4], 0x184D2A50)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(data)))
	return append(buf, data...)
}

// codes encodes inks as a big-endian payload.
func codes(t *testing.T, inks ...ink.Ink) []byte {
	t.Helper()

	buf := make([]byte, 0, len(inks)*cellSize)
	for _, i := range inks {
		code, ok := ink.CodeOf(i)
		if !ok {
			t.Fatalf("no code for %s", i)
		}
		buf = binary.BigEndian.AppendUint32(buf, code)
	}
	return buf
}

func newTestDecoder(t *testing.T, opts Options) *Decoder {
	t.Helper()

	d, err := NewDecoder(opts)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}
