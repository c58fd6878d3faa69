package persistence

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unsafe"
)

// maxSliceLen bounds slice lengths decoded from untrusted bodies.
const maxSliceLen = 1 << 34

// BinaryIndexWriter writes index bodies in little-endian binary form.
// Index implementations use it from MarshalBinary.
type BinaryIndexWriter struct {
	w         io.Writer
	byteOrder binary.ByteOrder
	scratch   [8]byte
}

// NewBinaryIndexWriter creates a new binary writer.
func NewBinaryIndexWriter(w io.Writer) *BinaryIndexWriter {
	return &BinaryIndexWriter{
		w:         w,
		byteOrder: binary.LittleEndian,
	}
}

// WriteUint32 writes a single uint32.
func (bw *BinaryIndexWriter) WriteUint32(v uint32) error {
	bw.byteOrder.PutUint32(bw.scratch[:4], v)
	_, err := bw.w.Write(bw.scratch[:4])
	return err
}

// WriteUint64 writes a single uint64.
func (bw *BinaryIndexWriter) WriteUint64(v uint64) error {
	bw.byteOrder.PutUint64(bw.scratch[:8], v)
	_, err := bw.w.Write(bw.scratch[:8])
	return err
}

// WriteFloat32Slice writes a float32 slice as raw bytes.
// On little-endian hosts this is a zero-copy reinterpretation.
func (bw *BinaryIndexWriter) WriteFloat32Slice(vec []float32) error {
	if len(vec) == 0 {
		return nil
	}
	if !nativeLittleEndian {
		return binary.Write(bw.w, bw.byteOrder, vec)
	}
	if err := validateAlignment(unsafe.Pointer(&vec[0]), 4); err != nil {
		return err
	}
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), len(vec)*4)
	_, err := bw.w.Write(byteSlice)
	return err
}

// WriteInt64Slice writes an int64 slice as raw bytes.
func (bw *BinaryIndexWriter) WriteInt64Slice(slice []int64) error {
	if len(slice) == 0 {
		return nil
	}
	if !nativeLittleEndian {
		return binary.Write(bw.w, bw.byteOrder, slice)
	}
	if err := validateAlignment(unsafe.Pointer(&slice[0]), 8); err != nil {
		return err
	}
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&slice[0])), len(slice)*8)
	_, err := bw.w.Write(byteSlice)
	return err
}

// WriteUint32Slice writes a uint32 slice as raw bytes.
func (bw *BinaryIndexWriter) WriteUint32Slice(slice []uint32) error {
	if len(slice) == 0 {
		return nil
	}
	if !nativeLittleEndian {
		return binary.Write(bw.w, bw.byteOrder, slice)
	}
	if err := validateAlignment(unsafe.Pointer(&slice[0]), 4); err != nil {
		return err
	}
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&slice[0])), len(slice)*4)
	_, err := bw.w.Write(byteSlice)
	return err
}

// BinaryIndexReader reads index bodies written by BinaryIndexWriter.
type BinaryIndexReader struct {
	r         io.Reader
	byteOrder binary.ByteOrder
	scratch   [8]byte
}

// NewBinaryIndexReader creates a new binary reader.
func NewBinaryIndexReader(r io.Reader) *BinaryIndexReader {
	return &BinaryIndexReader{
		r:         r,
		byteOrder: binary.LittleEndian,
	}
}

// ReadUint32 reads a single uint32.
func (br *BinaryIndexReader) ReadUint32() (uint32, error) {
	if _, err := io.ReadFull(br.r, br.scratch[:4]); err != nil {
		return 0, err
	}
	return br.byteOrder.Uint32(br.scratch[:4]), nil
}

// ReadUint64 reads a single uint64.
func (br *BinaryIndexReader) ReadUint64() (uint64, error) {
	if _, err := io.ReadFull(br.r, br.scratch[:8]); err != nil {
		return 0, err
	}
	return br.byteOrder.Uint64(br.scratch[:8]), nil
}

// ReadLen reads a uint64 length prefix and checks it against limit.
func (br *BinaryIndexReader) ReadLen(limit uint64) (int, error) {
	v, err := br.ReadUint64()
	if err != nil {
		return 0, err
	}
	if limit == 0 || limit > maxSliceLen {
		limit = maxSliceLen
	}
	if v > limit || v > math.MaxInt {
		return 0, fmt.Errorf("%w: length %d exceeds limit %d", ErrCorrupt, v, limit)
	}
	return int(v), nil
}

// ReadFloat32Slice reads count float32 values.
func (br *BinaryIndexReader) ReadFloat32Slice(count int) ([]float32, error) {
	if count == 0 {
		return nil, nil
	}
	vec := make([]float32, count)
	if err := br.ReadFloat32SliceInto(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// ReadFloat32SliceInto reads len(vec) float32 values into vec.
func (br *BinaryIndexReader) ReadFloat32SliceInto(vec []float32) error {
	if len(vec) == 0 {
		return nil
	}
	if !nativeLittleEndian {
		return binary.Read(br.r, br.byteOrder, vec)
	}
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), len(vec)*4)
	_, err := io.ReadFull(br.r, byteSlice)
	return err
}

// ReadInt64Slice reads count int64 values.
func (br *BinaryIndexReader) ReadInt64Slice(count int) ([]int64, error) {
	if count == 0 {
		return nil, nil
	}
	slice := make([]int64, count)
	if !nativeLittleEndian {
		if err := binary.Read(br.r, br.byteOrder, slice); err != nil {
			return nil, err
		}
		return slice, nil
	}
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&slice[0])), count*8)
	if _, err := io.ReadFull(br.r, byteSlice); err != nil {
		return nil, err
	}
	return slice, nil
}

// ReadUint32Slice reads count uint32 values.
func (br *BinaryIndexReader) ReadUint32Slice(count int) ([]uint32, error) {
	if count == 0 {
		return nil, nil
	}
	slice := make([]uint32, count)
	if !nativeLittleEndian {
		if err := binary.Read(br.r, br.byteOrder, slice); err != nil {
			return nil, err
		}
		return slice, nil
	}
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&slice[0])), count*4)
	if _, err := io.ReadFull(br.r, byteSlice); err != nil {
		return nil, err
	}
	return slice, nil
}
