// Package tsgfile reads hyperspectral core-logging dataset directories into
// the raw tabular and array structures consumed by the conversion pipeline.
// A dataset directory holds, per spectral subset, a text header describing
// the scan plus a binary spectral matrix, and optionally tray imagery and a
// profilometer trace:
//
//	<name>_tsg.tsg        NIR header (scalars, sample headers, classes)
//	<name>_tsg.bip        NIR spectral matrix, float32 row-major
//	<name>_tsg_tir.tsg    TIR header
//	<name>_tsg_tir.bip    TIR spectral matrix
//	<name>_tsg_cras.bip   tray imagery, JPEG-coded section blocks
//	<name>_tsg_hires.dat  profilometer trace (read separately)
package tsgfile

import (
	"gonum.org/v1/gonum/mat"
)

// Column is one named column of a scalar or sample-header table. Exactly one
// of Floats and Strings is non-nil: numeric columns carry float64 values
// with NaN for blanks, text columns carry strings.
type Column struct {
	Name    string
	Floats  []float64
	Strings []string
}

// IsText reports whether the column carries text values.
func (c *Column) IsText() bool { return c.Strings != nil }

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	if c.IsText() {
		return len(c.Strings)
	}
	return len(c.Floats)
}

// Table is an ordered collection of equal-length columns.
type Table struct {
	Columns []Column
}

// Rows returns the number of rows shared by all columns.
func (t *Table) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// Column returns the named column, or nil when absent.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// ClassEntry is one code/label pair of a categorical scalar encoding.
type ClassEntry struct {
	Code  int
	Label string
}

// ClassLookup is the enumerated encoding of one categorical scalar.
type ClassLookup struct {
	Name    string
	Entries []ClassEntry
}

// Spectra is one parsed spectral subset (NIR or TIR).
type Spectra struct {
	// Name is the subset name, "NIR" or "TIR".
	Name string

	// Scalars holds the per-sample scalar measurements.
	Scalars *Table

	// SampleHeaders holds the per-sample header records (sample, T, L, P,
	// D, X, H), all columns as text; typing is the converter's concern.
	SampleHeaders *Table

	// Wavelength is the band-center axis shared by every sample.
	Wavelength []float64

	// Spectra is the sample-by-wavelength reflectance matrix.
	Spectra *mat.Dense

	// Classes holds the categorical scalar encodings declared in the header.
	Classes []ClassLookup
}

// CrasSection is one imaged tray section of the cras imagery.
type CrasSection struct {
	// Lines is the number of pixel rows the section contributes.
	Lines int
}

// Cras is the decoded high-resolution tray imagery: sections stacked
// vertically into one RGB raster.
type Cras struct {
	Sections []CrasSection

	// Pixels holds the raster in row-major (line, column, channel) order
	// with three channels per pixel.
	Pixels []uint8

	Height int
	Width  int
}

// Package is one parsed dataset directory.
type Package struct {
	// Name is the dataset name, the file prefix with the "_tsg" marker
	// stripped.
	Name string

	NIR *Spectra
	TIR *Spectra

	// Cras is the tray imagery, nil when absent or not requested.
	Cras *Cras

	// ProfilometerPath locates the profilometer trace file, empty when the
	// dataset has none. The trace itself is decoded by the loader the
	// converter was given, not here.
	ProfilometerPath string
}
