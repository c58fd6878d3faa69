package persistence

import (
	"fmt"
	"math"

	"github.com/hupe1980/vexec/index"
)

// Encode frames idx as a segment: header followed by the optionally
// compressed MarshalBinary body.
func Encode(idx index.Index, c Compression) ([]byte, error) {
	dim := idx.Dimension()
	if dim <= 0 || dim > math.MaxUint32 {
		return nil, fmt.Errorf("persistence: dimension %d out of range", dim)
	}
	raw, err := idx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("persistence: marshal %s: %w", idx.Type(), err)
	}
	stored, applied, err := compress(raw, c)
	if err != nil {
		return nil, fmt.Errorf("persistence: compress %s: %w", c, err)
	}

	h := Header{
		Magic:       MagicNumber,
		Version:     Version,
		EngineType:  idx.Type(),
		Compression: applied,
		Dimension:   uint32(dim),
		Count:       uint64(idx.Count()),
		RawLen:      uint64(len(raw)),
		StoredLen:   uint64(len(stored)),
		Checksum:    CRC32C(stored),
	}
	out := make([]byte, 0, HeaderSize+len(stored))
	out = h.AppendTo(out)
	return append(out, stored...), nil
}

// Decode validates a segment and materializes its index through the factory.
// The engine type must be registered.
func Decode(data []byte) (index.Index, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	body := data[HeaderSize:]
	if uint64(len(body)) != h.StoredLen {
		return nil, fmt.Errorf("%w: body is %d bytes, header says %d", ErrInvalidLength, len(body), h.StoredLen)
	}
	if sum := CRC32C(body); sum != h.Checksum {
		return nil, fmt.Errorf("%w: got 0x%08x, want 0x%08x", ErrChecksum, sum, h.Checksum)
	}

	raw, err := decompress(body, h.Compression, int(h.RawLen))
	if err != nil {
		return nil, err
	}

	idx, err := index.New(h.EngineType, int(h.Dimension))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if err := idx.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("%w: unmarshal %s: %w", ErrCorrupt, h.EngineType, err)
	}
	if uint64(idx.Count()) != h.Count {
		return nil, fmt.Errorf("%w: index holds %d vectors, header says %d", ErrInvalidLength, idx.Count(), h.Count)
	}
	return idx, nil
}
