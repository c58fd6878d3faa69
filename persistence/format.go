package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/vexec/index"
)

const (
	// MagicNumber identifies segment files (ASCII: "VXS1").
	MagicNumber uint32 = 0x56585331
	// Version is the current segment format version.
	Version uint32 = 1
	// HeaderSize is the fixed size of the segment header in bytes.
	HeaderSize = 64
)

var (
	// ErrRead wraps every failure to fetch or decode a segment.
	ErrRead = errors.New("persistence: read failed")
	// ErrWrite wraps every failure to encode or store a segment.
	ErrWrite = errors.New("persistence: write failed")
	// ErrCorrupt marks structurally invalid segment data.
	ErrCorrupt = errors.New("persistence: corrupt segment")

	ErrInvalidMagic    = fmt.Errorf("%w: invalid magic number", ErrCorrupt)
	ErrInvalidVersion  = fmt.Errorf("%w: unsupported version", ErrCorrupt)
	ErrChecksum        = fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	ErrInvalidLength   = fmt.Errorf("%w: length mismatch", ErrCorrupt)
	ErrUnknownCompress = fmt.Errorf("%w: unknown compression", ErrCorrupt)
)

// Header is the 64-byte little-endian header at the start of every segment.
//
//	off size field
//	0   4    magic
//	4   4    version
//	8   1    engine type
//	9   1    compression
//	10  2    reserved
//	12  4    dimension
//	16  8    count
//	24  8    raw body length
//	32  8    stored body length
//	40  4    CRC32C of the stored body
//	44  20   reserved
type Header struct {
	Magic       uint32
	Version     uint32
	EngineType  index.EngineType
	Compression Compression
	Dimension   uint32
	Count       uint64
	RawLen      uint64
	StoredLen   uint64
	Checksum    uint32
}

// AppendTo appends the encoded header to dst.
func (h Header) AppendTo(dst []byte) []byte {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint32(buf[0:], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:], h.Version)
	buf[8] = byte(h.EngineType)
	buf[9] = byte(h.Compression)
	binary.LittleEndian.PutUint32(buf[12:], h.Dimension)
	binary.LittleEndian.PutUint64(buf[16:], h.Count)
	binary.LittleEndian.PutUint64(buf[24:], h.RawLen)
	binary.LittleEndian.PutUint64(buf[32:], h.StoredLen)
	binary.LittleEndian.PutUint32(buf[40:], h.Checksum)
	return append(dst, buf[:]...)
}

// ParseHeader decodes and validates the fixed header fields of data.
// The body is not inspected.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes, need %d", ErrInvalidLength, len(data), HeaderSize)
	}
	h := Header{
		Magic:       binary.LittleEndian.Uint32(data[0:]),
		Version:     binary.LittleEndian.Uint32(data[4:]),
		EngineType:  index.EngineType(data[8]),
		Compression: Compression(data[9]),
		Dimension:   binary.LittleEndian.Uint32(data[12:]),
		Count:       binary.LittleEndian.Uint64(data[16:]),
		RawLen:      binary.LittleEndian.Uint64(data[24:]),
		StoredLen:   binary.LittleEndian.Uint64(data[32:]),
		Checksum:    binary.LittleEndian.Uint32(data[40:]),
	}
	if h.Magic != MagicNumber {
		return Header{}, fmt.Errorf("%w: 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrInvalidVersion, h.Version)
	}
	if !h.Compression.valid() {
		return Header{}, fmt.Errorf("%w: %d", ErrUnknownCompress, h.Compression)
	}
	if h.Compression == CompressionNone && h.RawLen != h.StoredLen {
		return Header{}, fmt.Errorf("%w: raw %d != stored %d for uncompressed body", ErrInvalidLength, h.RawLen, h.StoredLen)
	}
	if h.RawLen > maxSliceLen {
		return Header{}, fmt.Errorf("%w: raw body length %d", ErrInvalidLength, h.RawLen)
	}
	return h, nil
}
