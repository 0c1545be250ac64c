// Package dataset provides the labeled multi-dimensional dataset model used
// throughout tsg-xr. A Dataset is a named mapping from variable name to
// Array, where every axis an Array spans is described by an index coordinate
// of the same name, plus any number of secondary coordinates attached to
// those axes and dataset-level classification attributes.
//
// Datasets are built once per load and treated as immutable afterwards:
// transformations such as Select return a new Dataset value sharing the
// underlying arrays rather than mutating in place.
package dataset

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrShapeMismatch = errors.New("dataset: payload length disagrees with shape")
	ErrRankMismatch  = errors.New("dataset: dimension count disagrees with shape")
	ErrUnknownAxis   = errors.New("dataset: axis has no index coordinate")
	ErrAxisLength    = errors.New("dataset: array length disagrees with its axis")
	ErrUnknownVar    = errors.New("dataset: no such variable")
	ErrNotVector     = errors.New("dataset: coordinate must be one-dimensional")
)

// ClassEntry is one code/label pair of a categorical scalar encoding.
// The instrument reports categorical scalars as small integers; the class
// lookup tables attached to a dataset give those integers human meaning.
type ClassEntry struct {
	Code  int
	Label string
}

// Array is a labeled n-dimensional array: a row-major payload plus the names
// of the axes it spans. The payload is either numeric (float64, with NaN as
// the missing-value marker) or text (one-dimensional only); never both.
type Array struct {
	dims    []string
	shape   []int
	floats  []float64
	strings []string
}

// NewFloats creates a numeric array spanning the given axes.
//
// Parameters:
//   - dims: axis name per dimension, outermost first
//   - shape: length per dimension, matching dims
//   - values: row-major payload; its length must equal the shape product
//
// Returns:
//   - the array, or an error if the dimensions and payload disagree
func NewFloats(dims []string, shape []int, values []float64) (*Array, error) {
	if len(dims) != len(shape) {
		return nil, fmt.Errorf("%w: %d dims for %d axes", ErrRankMismatch, len(dims), len(shape))
	}
	n := 1
	for _, s := range shape {
		n *= s
	}
	if n != len(values) {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrShapeMismatch, len(values), shape)
	}
	return &Array{dims: append([]string(nil), dims...), shape: append([]int(nil), shape...), floats: values}, nil
}

// NewVector creates a one-dimensional numeric array on the given axis.
func NewVector(dim string, values []float64) *Array {
	return &Array{dims: []string{dim}, shape: []int{len(values)}, floats: values}
}

// NewStrings creates a one-dimensional text array on the given axis.
// Text payloads are restricted to vectors; the instrument produces no
// higher-dimensional text data.
func NewStrings(dim string, values []string) *Array {
	return &Array{dims: []string{dim}, shape: []int{len(values)}, strings: values}
}

// Dims returns the axis names of the array, outermost first.
func (a *Array) Dims() []string { return append([]string(nil), a.dims...) }

// Shape returns the length of each axis.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// Len returns the total number of elements.
func (a *Array) Len() int {
	n := 1
	for _, s := range a.shape {
		n *= s
	}
	return n
}

// IsText reports whether the array carries a text payload.
func (a *Array) IsText() bool { return a.strings != nil }

// Floats returns the numeric payload in row-major order, or nil for text
// arrays. The slice is shared with the array and must be treated as
// read-only.
func (a *Array) Floats() []float64 { return a.floats }

// Strings returns the text payload, or nil for numeric arrays. The slice is
// shared with the array and must be treated as read-only.
func (a *Array) Strings() []string { return a.strings }

// At returns the numeric element at the given index, one entry per axis.
func (a *Array) At(idx ...int) float64 {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("dataset: At called with %d indices on a rank-%d array", len(idx), len(a.shape)))
	}
	flat := 0
	for d, i := range idx {
		if i < 0 || i >= a.shape[d] {
			panic(fmt.Sprintf("dataset: index %d out of range on axis %q of length %d", i, a.dims[d], a.shape[d]))
		}
		flat = flat*a.shape[d] + i
	}
	return a.floats[flat]
}

// Dataset is the canonical composed structure: index and secondary
// coordinates, insertion-ordered data variables and classification
// attributes.
type Dataset struct {
	coordOrder []string
	coords     map[string]*Array
	varOrder   []string
	vars       map[string]*Array
	attrOrder  []string
	attrs      map[string][]ClassEntry
}

// New creates an empty dataset.
func New() *Dataset {
	return &Dataset{
		coords: make(map[string]*Array),
		vars:   make(map[string]*Array),
		attrs:  make(map[string][]ClassEntry),
	}
}

// SetCoord attaches a coordinate. A coordinate whose name equals its axis is
// an index coordinate and defines that axis; any other coordinate must be
// attached to an axis whose index coordinate already exists and has the same
// length.
func (d *Dataset) SetCoord(name string, a *Array) error {
	if len(a.dims) != 1 {
		return fmt.Errorf("%w: %q spans %v", ErrNotVector, name, a.dims)
	}
	axis := a.dims[0]
	if name != axis {
		idx, ok := d.coords[axis]
		if !ok {
			return fmt.Errorf("%w: coordinate %q on axis %q", ErrUnknownAxis, name, axis)
		}
		if idx.Len() != a.Len() {
			return fmt.Errorf("%w: coordinate %q has %d values on axis %q of length %d",
				ErrAxisLength, name, a.Len(), axis, idx.Len())
		}
	}
	if _, ok := d.coords[name]; !ok {
		d.coordOrder = append(d.coordOrder, name)
	}
	d.coords[name] = a
	return nil
}

// SetVar attaches a data variable. Every axis the array spans must have an
// index coordinate of matching length in the dataset.
func (d *Dataset) SetVar(name string, a *Array) error {
	for i, axis := range a.dims {
		idx, ok := d.coords[axis]
		if !ok {
			return fmt.Errorf("%w: variable %q spans axis %q", ErrUnknownAxis, name, axis)
		}
		if idx.Len() != a.shape[i] {
			return fmt.Errorf("%w: variable %q has %d entries on axis %q of length %d",
				ErrAxisLength, name, a.shape[i], axis, idx.Len())
		}
	}
	if _, ok := d.vars[name]; !ok {
		d.varOrder = append(d.varOrder, name)
	}
	d.vars[name] = a
	return nil
}

// SetAttr attaches a classification lookup under the given name.
func (d *Dataset) SetAttr(name string, entries []ClassEntry) {
	if _, ok := d.attrs[name]; !ok {
		d.attrOrder = append(d.attrOrder, name)
	}
	d.attrs[name] = entries
}

// Coord returns the named coordinate, or nil when absent.
func (d *Dataset) Coord(name string) *Array { return d.coords[name] }

// Var returns the named data variable, or nil when absent.
func (d *Dataset) Var(name string) *Array { return d.vars[name] }

// Attr returns the named classification lookup, or nil when absent.
func (d *Dataset) Attr(name string) []ClassEntry { return d.attrs[name] }

// CoordNames returns the coordinate names in insertion order.
func (d *Dataset) CoordNames() []string { return append([]string(nil), d.coordOrder...) }

// VarNames returns the data variable names in their current order.
func (d *Dataset) VarNames() []string { return append([]string(nil), d.varOrder...) }

// AttrNames returns the classification lookup names in insertion order.
func (d *Dataset) AttrNames() []string { return append([]string(nil), d.attrOrder...) }

// HasVar reports whether the named data variable exists.
func (d *Dataset) HasVar(name string) bool {
	_, ok := d.vars[name]
	return ok
}

// Select returns a new dataset holding the named data variables in the given
// order. Coordinates and attributes carry over unchanged; the underlying
// arrays are shared, not copied. Selecting is the only reordering primitive:
// it is a presentation transform and never alters values or alignment.
func (d *Dataset) Select(names ...string) (*Dataset, error) {
	out := New()
	out.coordOrder = append([]string(nil), d.coordOrder...)
	for k, v := range d.coords {
		out.coords[k] = v
	}
	out.attrOrder = append([]string(nil), d.attrOrder...)
	for k, v := range d.attrs {
		out.attrs[k] = v
	}
	for _, name := range names {
		a, ok := d.vars[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownVar, name)
		}
		if _, dup := out.vars[name]; dup {
			continue
		}
		out.varOrder = append(out.varOrder, name)
		out.vars[name] = a
	}
	return out, nil
}
