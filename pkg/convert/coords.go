package convert

import (
	"fmt"
	"math"
	"strconv"

	"github.com/CSIRO-GeoscienceAnalytics/tsg-xr/internal/tsgfile"
	"github.com/CSIRO-GeoscienceAnalytics/tsg-xr/pkg/dataset"
)

// headerField declares how one sample-header column becomes a coordinate.
// Numeric fields parse to float64; a numeric field whose values do not all
// parse falls back to text rather than being coerced value by value, so a
// dataset cannot silently change schema between loads.
type headerField struct {
	column  string
	coord   string
	numeric bool
}

// headerSchema maps the instrument's single-letter header fields onto named
// sample-axis coordinates.
var headerSchema = []headerField{
	{column: "T", coord: "tray", numeric: false},
	{column: "L", coord: "section", numeric: true},
	{column: "P", coord: "section-part", numeric: true},
	{column: "D", coord: "holedepth", numeric: true},
	{column: "X", coord: "section-position", numeric: true},
	{column: "H", coord: "hole", numeric: false},
}

// Coords is the coordinate mapping derived from per-sample header records:
// the sample index axis, the wavelength axis, and one sample-axis coordinate
// per remaining header field. No deduplication happens here; resolving
// duplicate depths is deferred to the assembler when depth indexing is
// requested.
type Coords struct {
	names  []string
	arrays map[string]*dataset.Array
}

// Names returns the coordinate names in insertion order.
func (c *Coords) Names() []string { return append([]string(nil), c.names...) }

// Array returns the named coordinate, or nil when absent.
func (c *Coords) Array(name string) *dataset.Array { return c.arrays[name] }

// NumSamples returns the length of the sample axis.
func (c *Coords) NumSamples() int { return c.arrays["sample"].Len() }

func (c *Coords) set(name string, a *dataset.Array) {
	if _, ok := c.arrays[name]; !ok {
		c.names = append(c.names, name)
	}
	c.arrays[name] = a
}

// BuildCoords derives the coordinate mapping from per-sample header records
// and the wavelength axis.
//
// Parameters:
//   - headers: the sample-header table; the "sample" column becomes the
//     primary axis in insertion order, the remaining fields become
//     sample-axis coordinates typed by the declared schema
//   - wavelength: the shared band-center axis
//
// Returns:
//   - the coordinate mapping, or an error wrapping ErrSchema when the sample
//     ids are absent or non-numeric
func BuildCoords(headers *tsgfile.Table, wavelength []float64) (*Coords, error) {
	coords := &Coords{arrays: make(map[string]*dataset.Array)}

	sampleCol := headers.Column("sample")
	if sampleCol == nil {
		return nil, fmt.Errorf("%w: sample headers have no sample column", ErrSchema)
	}
	ids, ok := numericColumn(sampleCol)
	if !ok {
		return nil, fmt.Errorf("%w: sample ids are not numeric", ErrSchema)
	}
	coords.set("sample", dataset.NewVector("sample", ids))
	coords.set("wavelength", dataset.NewVector("wavelength", wavelength))

	for _, field := range headerSchema {
		col := headers.Column(field.column)
		if col == nil {
			continue
		}
		if col.Len() != len(ids) {
			return nil, fmt.Errorf("%w: header field %s has %d values for %d samples",
				ErrSchema, field.column, col.Len(), len(ids))
		}
		if field.numeric {
			if vals, ok := numericColumn(col); ok {
				coords.set(field.coord, dataset.NewVector("sample", vals))
				continue
			}
			// Declared-numeric field with non-convertible values: keep the
			// text as-is rather than coercing cell by cell.
		}
		coords.set(field.coord, dataset.NewStrings("sample", textColumn(col)))
	}
	return coords, nil
}

// numericColumn converts a column to float64 values. Conversion is
// all-or-nothing: a single non-parsing cell rejects the whole column. Empty
// cells parse to NaN.
func numericColumn(col *tsgfile.Column) ([]float64, bool) {
	if !col.IsText() {
		return col.Floats, true
	}
	vals := make([]float64, len(col.Strings))
	for i, cell := range col.Strings {
		if cell == "" {
			vals[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, false
		}
		vals[i] = v
	}
	return vals, true
}

// textColumn returns a column's values as strings.
func textColumn(col *tsgfile.Column) []string {
	if col.IsText() {
		return col.Strings
	}
	out := make([]string, len(col.Floats))
	for i, v := range col.Floats {
		out[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return out
}
