package index

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedEngineType is returned by the factory for unknown tags.
	ErrUnsupportedEngineType = errors.New("unsupported engine type")

	// ErrUnsupportedOperation is returned when an index lacks the capability.
	ErrUnsupportedOperation = errors.New("operation not supported by index type")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrNotTrained is returned when searching an IVF index that was never built.
	ErrNotTrained = errors.New("index is not trained")

	// ErrInvalidDevice is returned when a GPU build is given a negative device id.
	ErrInvalidDevice = errors.New("invalid device id")

	// ErrInvalidDimension is returned for non-positive dimensions.
	ErrInvalidDimension = errors.New("dimension must be positive")

	// ErrShortBuffer is returned when input or output slices are too small for n.
	ErrShortBuffer = errors.New("buffer too small")
)

// ErrDimensionMismatch is a named error type for dimension mismatch
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// CheckInput validates the shape of an Add or Build call.
func CheckInput(dim, n int, vectors []float32, ids []int64) error {
	if n < 0 {
		return fmt.Errorf("%w: negative count %d", ErrShortBuffer, n)
	}
	if len(vectors) < n*dim {
		return fmt.Errorf("%w: %d vectors of dim %d need %d floats, got %d", ErrShortBuffer, n, dim, n*dim, len(vectors))
	}
	if len(ids) < n {
		return fmt.Errorf("%w: %d vectors need %d ids, got %d", ErrShortBuffer, n, n, len(ids))
	}
	return nil
}

// CheckSearch validates the shape of a Search call.
func CheckSearch(dim, n int, queries []float32, k int, distances []float32, labels []int64) error {
	if k <= 0 {
		return ErrInvalidK
	}
	if n < 0 || len(queries) < n*dim {
		return fmt.Errorf("%w: %d queries of dim %d, got %d floats", ErrShortBuffer, n, dim, len(queries))
	}
	if len(distances) < n*k || len(labels) < n*k {
		return fmt.Errorf("%w: need %d result slots", ErrShortBuffer, n*k)
	}
	return nil
}
