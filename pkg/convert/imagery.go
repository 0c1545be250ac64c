package convert

import (
	"fmt"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/CSIRO-GeoscienceAnalytics/tsg-xr/internal/tsgfile"
	"github.com/CSIRO-GeoscienceAnalytics/tsg-xr/pkg/dataset"
)

// spacingWindow is the number of leading depth rows used to estimate the
// pixel spacing. Spacing is taken as the median row-to-row depth step within
// this window; the policy follows the instrument's fairly regular line
// spacing and is isolated here so it can be revisited.
const spacingWindow = 200

// Imagery is the assembled high-resolution tray imagery and its coordinate
// axes.
type Imagery struct {
	// Image spans (depth, horizontal, channel).
	Image *dataset.Array

	Depth      *dataset.Array
	Horizontal *dataset.Array
	Channel    *dataset.Array
}

// AssembleImage builds the imagery array from the decoded raster and the
// coordinate mapping.
//
// Each section's pixel rows receive depths by linear interpolation across
// that section's [min, max] hole-depth span, where the spans come from
// grouping the sample headers by tray and section. Horizontal spacing equals
// the median vertical spacing and is centered at zero. Both pixel axes are
// then decimated by the stride factor, nearest-neighbor, no interpolation.
//
// Returns:
//   - the imagery, or an error wrapping ErrConsistency when the raster and
//     the sample headers disagree about the sections, or ErrSchema when the
//     coordinates cannot support depth assignment
func AssembleImage(cras *tsgfile.Cras, coords *Coords, stride int) (*Imagery, error) {
	if stride <= 0 {
		return nil, fmt.Errorf("%w: imagery stride must be positive, got %d", ErrSchema, stride)
	}
	spans, err := sectionSpans(coords)
	if err != nil {
		return nil, err
	}
	if len(spans) != len(cras.Sections) {
		return nil, fmt.Errorf("%w: raster has %d sections, sample headers describe %d",
			ErrConsistency, len(cras.Sections), len(spans))
	}

	depths := make([]float64, 0, cras.Height)
	for i, sec := range cras.Sections {
		depths = append(depths, linspace(spans[i].min, spans[i].max, sec.Lines)...)
	}
	if len(depths) != cras.Height {
		return nil, fmt.Errorf("%w: section line counts sum to %d for a raster of %d rows",
			ErrConsistency, len(depths), cras.Height)
	}

	spacing, err := pixelSpacing(depths)
	if err != nil {
		return nil, err
	}
	horizontal := make([]float64, cras.Width)
	for j := range horizontal {
		horizontal[j] = float64(j) * spacing
	}
	mean := floats.Sum(horizontal) / float64(len(horizontal))
	for j := range horizontal {
		horizontal[j] -= mean
	}

	return subsample(cras, depths, horizontal, stride)
}

// span is one section's depth extent.
type span struct {
	min, max float64
}

// sectionSpans groups the sample headers by tray and section, in first
// appearance order, and takes each group's hole-depth extremes.
func sectionSpans(coords *Coords) ([]span, error) {
	tray := coords.Array("tray")
	section := coords.Array("section")
	depth := coords.Array("holedepth")
	if tray == nil || section == nil || depth == nil {
		return nil, fmt.Errorf("%w: imagery needs tray, section and holedepth coordinates", ErrSchema)
	}
	if depth.IsText() {
		return nil, fmt.Errorf("%w: imagery needs a numeric holedepth coordinate", ErrSchema)
	}
	depths := depth.Floats()

	var spans []span
	index := make(map[string]int)
	for i := 0; i < coords.NumSamples(); i++ {
		key := coordLabel(tray, i) + "\x1f" + coordLabel(section, i)
		at, ok := index[key]
		if !ok {
			index[key] = len(spans)
			spans = append(spans, span{min: depths[i], max: depths[i]})
			continue
		}
		if depths[i] < spans[at].min {
			spans[at].min = depths[i]
		}
		if depths[i] > spans[at].max {
			spans[at].max = depths[i]
		}
	}
	return spans, nil
}

// coordLabel renders one coordinate value as a grouping key.
func coordLabel(a *dataset.Array, i int) string {
	if a.IsText() {
		return a.Strings()[i]
	}
	return strconv.FormatFloat(a.Floats()[i], 'g', -1, 64)
}

// linspace returns n values evenly spaced over [min, max]. A single-line
// section sits at its minimum depth.
func linspace(min, max float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{min}
	}
	return floats.Span(make([]float64, n), min, max)
}

// pixelSpacing estimates the vertical pixel spacing as the median
// row-to-row depth step over the leading spacingWindow rows.
func pixelSpacing(depths []float64) (float64, error) {
	window := len(depths)
	if window > spacingWindow {
		window = spacingWindow
	}
	if window < 2 {
		return 0, fmt.Errorf("%w: imagery needs at least two depth rows to derive pixel spacing", ErrSchema)
	}
	diffs := make([]float64, window-1)
	for i := range diffs {
		diffs[i] = depths[i+1] - depths[i]
	}
	sort.Float64s(diffs)
	return stat.Quantile(0.5, stat.Empirical, diffs, nil), nil
}

// subsample decimates the raster and both pixel axes by the stride factor,
// keeping every stride-th entry starting at zero, and attaches the RGB
// channel axis.
func subsample(cras *tsgfile.Cras, depths, horizontal []float64, stride int) (*Imagery, error) {
	outRows := (cras.Height + stride - 1) / stride
	outCols := (cras.Width + stride - 1) / stride

	values := make([]float64, 0, outRows*outCols*3)
	outDepths := make([]float64, 0, outRows)
	outHorizontal := make([]float64, 0, outCols)
	for y := 0; y < cras.Height; y += stride {
		outDepths = append(outDepths, depths[y])
		for x := 0; x < cras.Width; x += stride {
			base := (y*cras.Width + x) * 3
			values = append(values,
				float64(cras.Pixels[base]),
				float64(cras.Pixels[base+1]),
				float64(cras.Pixels[base+2]))
		}
	}
	for x := 0; x < cras.Width; x += stride {
		outHorizontal = append(outHorizontal, horizontal[x])
	}

	img, err := dataset.NewFloats([]string{"depth", "horizontal", "channel"}, []int{outRows, outCols, 3}, values)
	if err != nil {
		return nil, err
	}
	return &Imagery{
		Image:      img,
		Depth:      dataset.NewVector("depth", outDepths),
		Horizontal: dataset.NewVector("horizontal", outHorizontal),
		Channel:    dataset.NewStrings("channel", []string{"R", "G", "B"}),
	}, nil
}
