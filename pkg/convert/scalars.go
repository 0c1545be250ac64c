package convert

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/CSIRO-GeoscienceAnalytics/tsg-xr/internal/tsgfile"
	"github.com/CSIRO-GeoscienceAnalytics/tsg-xr/pkg/dataset"
)

// sentinel is the no-data marker the instrument writes into floating scalar
// columns: the minimum representable 32-bit float.
const sentinel = -math.MaxFloat32

// sentinelRelTol is the relative tolerance for recognizing the sentinel.
// float32 carries roughly seven significant digits, so values within 1e-5 of
// the sentinel cannot be genuine measurements.
const sentinelRelTol = 1e-5

// IsNoData reports whether a scalar value matches the instrument's no-data
// sentinel within float32 tolerance.
func IsNoData(v float64) bool {
	return math.Abs(v-sentinel) <= sentinelRelTol*math.MaxFloat32
}

// featureFamilies declares the repeated per-feature scalar families: each
// detected spectral absorption feature contributes one column to every
// family, suffixed with the feature's ordinal (Centre1, Centre2, ...). The
// families regroup into sample-by-feature arrays named with a trailing "s".
var featureFamilies = []string{"Centre", "Depth", "Width"}

// Variable pairs a name with an array, preserving order between pipeline
// stages.
type Variable struct {
	Name  string
	Array *dataset.Array
}

// Scalars is the output of the normalizer: cleaned flat scalar variables in
// table order, the regrouped feature-family arrays, and the feature axis the
// families share (nil when the input declares no features).
type Scalars struct {
	Vars     []Variable
	Families []Variable
	Feature  *dataset.Array
}

// NormalizeScalars cleans the per-sample scalar table and regroups the
// feature families.
//
// Every floating column has the no-data sentinel replaced with NaN. Columns
// belonging to a declared feature family are merged into one
// sample-by-feature array, with exact zeroes (feature not present) mapped to
// NaN, and removed from the flat variable set. Text columns pass through as
// strings.
//
// Returns:
//   - the cleaned scalars, or an error wrapping ErrSchema when the table
//     shape or the family columns disagree with the declared schema
func NormalizeScalars(scalars *tsgfile.Table, coords *Coords) (*Scalars, error) {
	n := coords.NumSamples()
	if scalars.Rows() != n {
		return nil, fmt.Errorf("%w: scalar table has %d rows for %d samples", ErrSchema, scalars.Rows(), n)
	}

	members, count, err := familyMembers(scalars)
	if err != nil {
		return nil, err
	}

	out := &Scalars{}
	for i := range scalars.Columns {
		col := &scalars.Columns[i]
		if _, ok := members[col.Name]; ok {
			continue
		}
		if col.IsText() {
			out.Vars = append(out.Vars, Variable{col.Name, dataset.NewStrings("sample", col.Strings)})
			continue
		}
		out.Vars = append(out.Vars, Variable{col.Name, dataset.NewVector("sample", cleanSentinel(col.Floats))})
	}

	if count == 0 {
		return out, nil
	}
	labels := make([]string, count)
	for i := range labels {
		labels[i] = strconv.Itoa(i + 1)
	}
	out.Feature = dataset.NewStrings("feature", labels)
	for _, prefix := range featureFamilies {
		arr, err := groupFamily(scalars, prefix, n, count)
		if err != nil {
			return nil, err
		}
		if arr != nil {
			out.Families = append(out.Families, Variable{prefix + "s", arr})
		}
	}
	return out, nil
}

// cleanSentinel copies a floating column with sentinel values replaced by
// NaN. Substitution is data-cleaning policy, never an error.
func cleanSentinel(vals []float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		if IsNoData(v) {
			out[i] = math.NaN()
		} else {
			out[i] = v
		}
	}
	return out
}

// familyMembers validates the feature-family columns against the declared
// schema and returns the member column names and the shared feature count.
// Suffixes must run contiguously from 1 and every family present must carry
// the same count; a family may be absent entirely.
func familyMembers(scalars *tsgfile.Table) (map[string]bool, int, error) {
	members := make(map[string]bool)
	count := -1
	for _, prefix := range featureFamilies {
		suffixes := make(map[int]string)
		max := 0
		for i := range scalars.Columns {
			name := scalars.Columns[i].Name
			k, ok := familySuffix(name, prefix)
			if !ok {
				continue
			}
			suffixes[k] = name
			if k > max {
				max = k
			}
		}
		if len(suffixes) == 0 {
			continue
		}
		for k := 1; k <= max; k++ {
			if _, ok := suffixes[k]; !ok {
				return nil, 0, fmt.Errorf("%w: family %s has %d columns but no %s%d", ErrSchema, prefix, len(suffixes), prefix, k)
			}
		}
		if count >= 0 && max != count {
			return nil, 0, fmt.Errorf("%w: family %s has %d features, earlier families have %d", ErrSchema, prefix, max, count)
		}
		count = max
		for _, name := range suffixes {
			members[name] = true
		}
	}
	if count < 0 {
		count = 0
	}
	return members, count, nil
}

// familySuffix reports whether name is prefix followed by a positive integer
// suffix, returning the suffix.
func familySuffix(name, prefix string) (int, bool) {
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	}
	rest := name[len(prefix):]
	if rest == "" {
		return 0, false
	}
	k, err := strconv.Atoi(rest)
	if err != nil || k <= 0 {
		return 0, false
	}
	return k, true
}

// groupFamily merges one family's columns into a sample-by-feature array
// with sentinel and zero values mapped to NaN. A zero in a feature column
// means "feature not detected", not a zero magnitude.
func groupFamily(scalars *tsgfile.Table, prefix string, samples, count int) (*dataset.Array, error) {
	grouped := mat.NewDense(samples, count, nil)
	present := false
	for j := 0; j < count; j++ {
		col := scalars.Column(prefix + strconv.Itoa(j+1))
		if col == nil {
			continue
		}
		present = true
		if col.IsText() {
			return nil, fmt.Errorf("%w: family column %s%d is not numeric", ErrSchema, prefix, j+1)
		}
		for i, v := range col.Floats {
			switch {
			case IsNoData(v), v == 0:
				grouped.Set(i, j, math.NaN())
			default:
				grouped.Set(i, j, v)
			}
		}
	}
	if !present {
		return nil, nil
	}
	return dataset.NewFloats([]string{"sample", "feature"}, []int{samples, count}, grouped.RawMatrix().Data)
}
