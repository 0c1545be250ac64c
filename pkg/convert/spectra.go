package convert

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/CSIRO-GeoscienceAnalytics/tsg-xr/pkg/dataset"
)

// Index coordinate choices for the primary spectral array.
const (
	IndexSample = "sample"
	IndexDepth  = "depth"
)

// Assembly is the output of the spectral assembler: the primary spectral
// array, the aligned profilometer array (nil when the dataset has no trace)
// and the coordinate set, depth-reindexed when requested.
type Assembly struct {
	Spectra *dataset.Array
	Lidar   *dataset.Array
	Coords  *Coords

	// DepthIndexed reports whether the spectral array lives on the
	// holedepth axis rather than the sample axis.
	DepthIndexed bool

	// order is the row gather applied in depth mode; Compose applies the
	// same gather to the sample-axis scalars so nothing drifts out of
	// alignment.
	order []int
}

// AssembleSpectra builds the primary spectral array and the aligned
// profilometer array.
//
// In the default sample mode the spectral array is (sample, wavelength) and
// the trace aligns 1:1 by sample. In depth mode samples with duplicate
// hole-depths are dropped (first occurrence wins), the remainder is sorted
// by depth ascending, and both arrays are filtered and reordered from the
// same computed index; holedepth becomes the index axis and every other
// sample-axis coordinate is gathered onto it.
//
// Returns:
//   - the assembly, or an error wrapping ErrConsistency when the trace and
//     spectral lengths disagree, or ErrSchema when the matrix shape or the
//     depth coordinate cannot support the request
func AssembleSpectra(spectra *mat.Dense, coords *Coords, trace []float64, indexCoord string) (*Assembly, error) {
	rows, cols := spectra.Dims()
	n := coords.NumSamples()
	if rows != n {
		return nil, fmt.Errorf("%w: spectral matrix has %d rows for %d samples", ErrSchema, rows, n)
	}
	if wl := coords.Array("wavelength"); wl.Len() != cols {
		return nil, fmt.Errorf("%w: spectral matrix has %d bands for %d wavelengths", ErrSchema, cols, wl.Len())
	}
	if trace != nil && len(trace) != rows {
		return nil, fmt.Errorf("%w: trace has %d values for %d spectra", ErrConsistency, len(trace), rows)
	}

	switch indexCoord {
	case "", IndexSample:
		arr, err := dataset.NewFloats([]string{"sample", "wavelength"}, []int{rows, cols}, matRows(spectra, nil))
		if err != nil {
			return nil, err
		}
		asm := &Assembly{Spectra: arr, Coords: coords}
		if trace != nil {
			asm.Lidar = dataset.NewVector("sample", trace)
		}
		return asm, nil
	case IndexDepth:
		return assembleByDepth(spectra, coords, trace)
	default:
		return nil, fmt.Errorf("%w: unknown index coordinate %q", ErrSchema, indexCoord)
	}
}

// assembleByDepth applies the depth reindex: one order is computed from the
// hole-depth coordinate and applied to the spectral matrix, the trace and
// every sample-axis coordinate together, so the arrays cannot drift apart.
// The sample axis disappears; its coordinates, the sample ids included,
// move onto the holedepth axis.
func assembleByDepth(spectra *mat.Dense, coords *Coords, trace []float64) (*Assembly, error) {
	depthCoord := coords.Array("holedepth")
	if depthCoord == nil || depthCoord.IsText() {
		return nil, fmt.Errorf("%w: depth indexing needs a numeric holedepth coordinate", ErrSchema)
	}
	depths := depthCoord.Floats()
	order := depthOrder(depths)
	_, cols := spectra.Dims()

	sorted := make([]float64, len(order))
	for i, idx := range order {
		sorted[i] = depths[idx]
	}
	arr, err := dataset.NewFloats([]string{"holedepth", "wavelength"}, []int{len(order), cols}, matRows(spectra, order))
	if err != nil {
		return nil, err
	}
	asm := &Assembly{Spectra: arr, DepthIndexed: true, order: order}
	asm.Coords = &Coords{arrays: make(map[string]*dataset.Array)}
	for _, name := range coords.Names() {
		c := coords.Array(name)
		switch {
		case name == "holedepth":
			asm.Coords.set(name, dataset.NewVector("holedepth", sorted))
		case c.Dims()[0] == "sample":
			gathered, err := reindexArray(c, order, "holedepth")
			if err != nil {
				return nil, err
			}
			asm.Coords.set(name, gathered)
		default:
			asm.Coords.set(name, c)
		}
	}

	if trace != nil {
		gathered := make([]float64, len(order))
		for i, idx := range order {
			gathered[i] = trace[idx]
		}
		asm.Lidar = dataset.NewVector("holedepth", gathered)
	}
	return asm, nil
}

// reindexArray gathers an array's leading-axis rows in the given order and
// moves the result onto the new axis.
func reindexArray(a *dataset.Array, order []int, dim string) (*dataset.Array, error) {
	shape := a.Shape()
	rowLen := 1
	for _, n := range shape[1:] {
		rowLen *= n
	}
	if a.IsText() {
		src := a.Strings()
		out := make([]string, 0, len(order)*rowLen)
		for _, idx := range order {
			out = append(out, src[idx*rowLen:(idx+1)*rowLen]...)
		}
		return dataset.NewStrings(dim, out), nil
	}
	src := a.Floats()
	out := make([]float64, 0, len(order)*rowLen)
	for _, idx := range order {
		out = append(out, src[idx*rowLen:(idx+1)*rowLen]...)
	}
	if len(shape) == 1 {
		return dataset.NewVector(dim, out), nil
	}
	newDims := append([]string{dim}, a.Dims()[1:]...)
	newShape := append([]int{len(order)}, shape[1:]...)
	return dataset.NewFloats(newDims, newShape, out)
}

// depthOrder computes the depth reindex: the row indices that survive
// duplicate removal (first occurrence of each depth wins), sorted by depth
// ascending. NaN depths count as duplicates of each other and sort last.
// Applying the reindex to an already filtered and sorted axis reproduces it
// unchanged.
func depthOrder(depths []float64) []int {
	seen := make(map[float64]bool, len(depths))
	seenNaN := false
	keep := make([]int, 0, len(depths))
	for i, d := range depths {
		if math.IsNaN(d) {
			if seenNaN {
				continue
			}
			seenNaN = true
		} else {
			if seen[d] {
				continue
			}
			seen[d] = true
		}
		keep = append(keep, i)
	}
	sort.SliceStable(keep, func(a, b int) bool {
		da, db := depths[keep[a]], depths[keep[b]]
		if math.IsNaN(db) {
			return !math.IsNaN(da)
		}
		if math.IsNaN(da) {
			return false
		}
		return da < db
	})
	return keep
}

// matRows copies matrix rows into a row-major slice. A nil order copies all
// rows in place; otherwise rows are gathered in the given order.
func matRows(m *mat.Dense, order []int) []float64 {
	rows, cols := m.Dims()
	if order == nil {
		order = make([]int, rows)
		for i := range order {
			order[i] = i
		}
	}
	out := make([]float64, 0, len(order)*cols)
	for _, idx := range order {
		out = append(out, m.RawRowView(idx)...)
	}
	return out
}
