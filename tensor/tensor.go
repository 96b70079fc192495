package tensor

import (
	"fmt"
)

// DType identifies the element type of a tensor.
type DType int

const (
	Float32 DType = iota
	Int32
)

func (d DType) String() string {
	switch d {
	case Float32:
		return "Float32"
	case Int32:
		return "Int32"
	default:
		return "Unknown"
	}
}

// Tensor is a dense, CPU-resident n-dimensional array. Signals, features and
// labels are all carried as tensors keyed by their kind enumerators.
type Tensor struct {
	Shape    []int
	Strides  []int
	DType    DType
	Data     interface{}
	NumElems int
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, dtype=%s, elements=%d)", t.Shape, t.DType, t.NumElems)
}

func calculateStrides(shape []int) []int {
	if len(shape) == 0 {
		return []int{}
	}

	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

func calculateNumElements(shape []int) int {
	if len(shape) == 0 {
		return 0
	}

	elements := 1
	for _, dim := range shape {
		elements *= dim
	}
	return elements
}

func validateShape(shape []int) error {
	for i, dim := range shape {
		if dim < 0 {
			return fmt.Errorf("invalid shape: dimension %d has size %d", i, dim)
		}
	}
	return nil
}

// NewTensor creates a tensor with the given shape and data. The data slice
// must match the dtype and the number of elements implied by the shape.
func NewTensor(shape []int, dtype DType, data interface{}) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}

	numElems := calculateNumElements(shape)

	switch dtype {
	case Float32:
		d, ok := data.([]float32)
		if !ok {
			return nil, fmt.Errorf("data must be []float32 for dtype %s", dtype)
		}
		if len(d) != numElems {
			return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)", len(d), shape, numElems)
		}
	case Int32:
		d, ok := data.([]int32)
		if !ok {
			return nil, fmt.Errorf("data must be []int32 for dtype %s", dtype)
		}
		if len(d) != numElems {
			return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)", len(d), shape, numElems)
		}
	default:
		return nil, fmt.Errorf("unsupported dtype: %s", dtype)
	}

	return &Tensor{
		Shape:    append([]int(nil), shape...),
		Strides:  calculateStrides(shape),
		DType:    dtype,
		Data:     data,
		NumElems: numElems,
	}, nil
}

// Zeros creates a zero-filled tensor.
func Zeros(shape []int, dtype DType) (*Tensor, error) {
	numElems := calculateNumElements(shape)

	switch dtype {
	case Float32:
		return NewTensor(shape, dtype, make([]float32, numElems))
	case Int32:
		return NewTensor(shape, dtype, make([]int32, numElems))
	default:
		return nil, fmt.Errorf("unsupported dtype: %s", dtype)
	}
}

// FromFloat32 creates a Float32 tensor, panicking on malformed input. Intended
// for literals in tests and examples.
func FromFloat32(shape []int, data []float32) *Tensor {
	t, err := NewTensor(shape, Float32, data)
	if err != nil {
		panic(err)
	}
	return t
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	c := &Tensor{
		Shape:    append([]int(nil), t.Shape...),
		Strides:  append([]int(nil), t.Strides...),
		DType:    t.DType,
		NumElems: t.NumElems,
	}

	switch t.DType {
	case Float32:
		data := make([]float32, t.NumElems)
		copy(data, t.Data.([]float32))
		c.Data = data
	case Int32:
		data := make([]int32, t.NumElems)
		copy(data, t.Data.([]int32))
		c.Data = data
	}

	return c
}

// Float32s returns the raw Float32 backing slice. Panics on dtype mismatch.
func (t *Tensor) Float32s() []float32 {
	return t.Data.([]float32)
}

// Int32s returns the raw Int32 backing slice. Panics on dtype mismatch.
func (t *Tensor) Int32s() []int32 {
	return t.Data.([]int32)
}

// Float64s returns a float64 copy of the elements, converting Int32 data as
// needed. Used at the boundary with gonum routines.
func (t *Tensor) Float64s() []float64 {
	out := make([]float64, t.NumElems)
	switch t.DType {
	case Float32:
		for i, v := range t.Data.([]float32) {
			out[i] = float64(v)
		}
	case Int32:
		for i, v := range t.Data.([]int32) {
			out[i] = float64(v)
		}
	}
	return out
}

// SameShape reports whether two tensors have identical shapes.
func (t *Tensor) SameShape(o *Tensor) bool {
	if len(t.Shape) != len(o.Shape) {
		return false
	}
	for i, dim := range t.Shape {
		if dim != o.Shape[i] {
			return false
		}
	}
	return true
}

// Equal reports whether two tensors have the same shape, dtype and elements.
func (t *Tensor) Equal(o *Tensor) bool {
	if o == nil || t.DType != o.DType || !t.SameShape(o) {
		return false
	}

	switch t.DType {
	case Float32:
		a, b := t.Data.([]float32), o.Data.([]float32)
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	case Int32:
		a, b := t.Data.([]int32), o.Data.([]int32)
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}

	return true
}

// Stack concatenates tensors of identical shape and dtype along a new leading
// dimension. The data loader uses it to collate samples into batches.
func Stack(ts []*Tensor) (*Tensor, error) {
	if len(ts) == 0 {
		return nil, fmt.Errorf("cannot stack zero tensors")
	}

	first := ts[0]
	for i, t := range ts[1:] {
		if t.DType != first.DType {
			return nil, fmt.Errorf("dtype mismatch at index %d: %s vs %s", i+1, t.DType, first.DType)
		}
		if !t.SameShape(first) {
			return nil, fmt.Errorf("shape mismatch at index %d: %v vs %v", i+1, t.Shape, first.Shape)
		}
	}

	shape := append([]int{len(ts)}, first.Shape...)

	switch first.DType {
	case Float32:
		data := make([]float32, len(ts)*first.NumElems)
		for i, t := range ts {
			copy(data[i*first.NumElems:(i+1)*first.NumElems], t.Data.([]float32))
		}
		return NewTensor(shape, Float32, data)
	case Int32:
		data := make([]int32, len(ts)*first.NumElems)
		for i, t := range ts {
			copy(data[i*first.NumElems:(i+1)*first.NumElems], t.Data.([]int32))
		}
		return NewTensor(shape, Int32, data)
	default:
		return nil, fmt.Errorf("unsupported dtype: %s", first.DType)
	}
}
