package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/vexec/blobstore"
	"github.com/hupe1980/vexec/index"
	"github.com/hupe1980/vexec/internal/resource"
)

// Gateway persists index objects by location.
type Gateway interface {
	Read(ctx context.Context, location string) (index.Index, error)
	Write(ctx context.Context, location string, idx index.Index) error
}

// BlobGateway implements Gateway over a blobstore.BlobStore using the segment
// format.
type BlobGateway struct {
	store       blobstore.BlobStore
	compression Compression
	rc          *resource.Controller
}

var _ Gateway = (*BlobGateway)(nil)

// Option configures a BlobGateway.
type Option func(*BlobGateway)

// WithCompression sets the codec applied to written segment bodies.
func WithCompression(c Compression) Option {
	return func(g *BlobGateway) { g.compression = c }
}

// WithResourceController throttles read bandwidth through rc.
func WithResourceController(rc *resource.Controller) Option {
	return func(g *BlobGateway) { g.rc = rc }
}

// NewGateway returns a gateway writing uncompressed segments to store.
func NewGateway(store blobstore.BlobStore, opts ...Option) *BlobGateway {
	g := &BlobGateway{store: store}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewMemoryGateway returns a gateway over a fresh in-memory store.
func NewMemoryGateway(opts ...Option) *BlobGateway {
	return NewGateway(blobstore.NewMemoryStore(), opts...)
}

// Store returns the underlying blob store.
func (g *BlobGateway) Store() blobstore.BlobStore { return g.store }

// Write encodes idx and stores it atomically under location.
func (g *BlobGateway) Write(ctx context.Context, location string, idx index.Index) error {
	if idx == nil {
		return fmt.Errorf("%w: %s: nil index", ErrWrite, location)
	}
	data, err := Encode(idx, g.compression)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, location, err)
	}
	if err := g.store.Put(ctx, location, data); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, location, err)
	}
	return nil
}

// Read fetches and decodes the segment at location. A missing blob yields an
// error matching both ErrRead and blobstore.ErrNotFound.
func (g *BlobGateway) Read(ctx context.Context, location string) (index.Index, error) {
	data, err := g.fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	idx, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, location, err)
	}
	return idx, nil
}

// Stat returns the validated header of the segment at location.
func (g *BlobGateway) Stat(ctx context.Context, location string) (Header, int64, error) {
	blob, err := g.store.Open(ctx, location)
	if err != nil {
		return Header{}, 0, fmt.Errorf("%w: %s: %w", ErrRead, location, err)
	}
	defer func() { _ = blob.Close() }()

	buf := make([]byte, HeaderSize)
	n, err := blob.ReadAt(buf, 0)
	if n < HeaderSize {
		if err == nil {
			err = ErrInvalidLength
		}
		return Header{}, 0, fmt.Errorf("%w: %s: header: %w", ErrRead, location, err)
	}
	h, err := ParseHeader(buf)
	if err != nil {
		return Header{}, 0, fmt.Errorf("%w: %s: %w", ErrRead, location, err)
	}
	return h, blob.Size(), nil
}

// Exists reports whether a segment is stored at location.
func (g *BlobGateway) Exists(ctx context.Context, location string) (bool, error) {
	blob, err := g.store.Open(ctx, location)
	if errors.Is(err, blobstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_ = blob.Close()
	return true, nil
}

func (g *BlobGateway) fetch(ctx context.Context, location string) ([]byte, error) {
	blob, err := g.store.Open(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, location, err)
	}
	defer func() { _ = blob.Close() }()

	if err := g.rc.AcquireIO(ctx, int(blob.Size())); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, location, err)
	}
	data, err := blobstore.ReadAll(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, location, err)
	}
	return data, nil
}
