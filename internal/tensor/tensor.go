// Package tensor provides dense, row-major integer tensors used as the
// payload type for secure random generation.
package tensor

import (
	"errors"
	"fmt"
	"math"
)

// Element constrains the element widths a tensor can carry.
type Element interface {
	int32 | int64
}

// DType names an element type on the wire and in storage.
type DType string

const (
	Int32 DType = "int32"
	Int64 DType = "int64"
)

var (
	// ErrBadShape reports a shape with a negative dimension or an element
	// count that overflows int.
	ErrBadShape = errors.New("tensor: invalid shape")

	// ErrDType reports an unknown element type name.
	ErrDType = errors.New("tensor: unsupported dtype")
)

// ParseDType maps a wire name to its DType.
func ParseDType(s string) (DType, error) {
	switch DType(s) {
	case Int32, Int64:
		return DType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrDType, s)
	}
}

// Size returns the element width in bytes.
func (dt DType) Size() int {
	if dt == Int64 {
		return 8
	}
	return 4
}

// NumElements returns the product of the dimensions. A zero-rank shape
// holds one element (a scalar); any zero dimension yields zero.
func NumElements(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative dimension in %v", ErrBadShape, shape)
		}
		if d != 0 && n > math.MaxInt/d {
			return 0, fmt.Errorf("%w: element count overflows in %v", ErrBadShape, shape)
		}
		n *= d
	}
	return n, nil
}

// Dense is a dense tensor with row-major element order.
type Dense[T Element] struct {
	shape []int
	data  []T
}

// New allocates a zeroed tensor of the given shape.
func New[T Element](shape ...int) (*Dense[T], error) {
	n, err := NumElements(shape)
	if err != nil {
		return nil, err
	}
	return &Dense[T]{
		shape: append([]int(nil), shape...),
		data:  make([]T, n),
	}, nil
}

// Shape returns the dimensions. The returned slice must not be modified.
func (d *Dense[T]) Shape() []int { return d.shape }

// Len returns the total element count.
func (d *Dense[T]) Len() int { return len(d.data) }

// Data returns the backing slice in row-major order. Writes through it are
// visible to the tensor.
func (d *Dense[T]) Data() []T { return d.data }

// At returns the element at the given indices. It panics if the number of
// indices does not match the rank or an index is out of bounds, matching
// the access discipline of slice indexing.
func (d *Dense[T]) At(indices ...int) T {
	if len(indices) != len(d.shape) {
		panic(fmt.Sprintf("tensor: %d indices for rank-%d tensor", len(indices), len(d.shape)))
	}
	off := 0
	for i, idx := range indices {
		if idx < 0 || idx >= d.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range for dimension %d (size %d)", idx, i, d.shape[i]))
		}
		off = off*d.shape[i] + idx
	}
	return d.data[off]
}
