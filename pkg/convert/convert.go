// Package convert turns a parsed core-logging dataset into the canonical
// labeled dataset: it derives coordinates from the sample headers, cleans
// and regroups the scalar table, assembles the spectral, profilometer and
// imagery arrays against those coordinates, and composes everything into one
// consistently indexed value ready for storage.
//
// The pipeline within one load is strictly sequential; independent loads
// share no state and may run concurrently.
package convert

import (
	"fmt"
	"strings"

	"github.com/CSIRO-GeoscienceAnalytics/tsg-xr/internal/tsgfile"
	"github.com/CSIRO-GeoscienceAnalytics/tsg-xr/pkg/dataset"
	"github.com/CSIRO-GeoscienceAnalytics/tsg-xr/pkg/profilometer"
)

// ProfilometerFunc loads a profilometer trace from a file, aggregated to one
// value per spectral sample when perSample is set. The loader takes this as
// a capability so callers can substitute their own decoder.
type ProfilometerFunc func(path string, perSample bool) ([]float64, error)

// Params configures a dataset load.
type Params struct {
	// Spectra selects the spectral subset, "NIR" (default) or "TIR".
	Spectra string

	// IndexCoord selects the primary index for the spectral array,
	// IndexSample (default) or IndexDepth.
	IndexCoord string

	// Image controls whether the tray imagery is assembled when present.
	Image bool

	// SubsampleImage is the imagery decimation stride; the default of 10
	// keeps one pixel in a hundred.
	SubsampleImage int

	// Profilometer decodes the trace file; defaults to profilometer.Load.
	Profilometer ProfilometerFunc
}

// Loader converts parsed dataset packages into canonical datasets. A Loader
// is stateless between calls and safe for concurrent use.
type Loader struct {
	params Params
}

// NewLoader creates a loader, filling unset parameters with their defaults.
func NewLoader(params *Params) *Loader {
	p := Params{}
	if params != nil {
		p = *params
	}
	if p.Spectra == "" {
		p.Spectra = "NIR"
	}
	if p.IndexCoord == "" {
		p.IndexCoord = IndexSample
	}
	if p.SubsampleImage == 0 {
		p.SubsampleImage = 10
	}
	if p.Profilometer == nil {
		p.Profilometer = profilometer.Load
	}
	return &Loader{params: p}
}

// Load builds the canonical dataset from one parsed package.
//
// Returns:
//   - the composed dataset, or an error wrapping ErrMissingData when the
//     requested spectral subset is absent; any failure is terminal for this
//     load and no partial dataset is returned
func (l *Loader) Load(pkg *tsgfile.Package) (*dataset.Dataset, error) {
	sub, err := spectralSubset(pkg, l.params.Spectra)
	if err != nil {
		return nil, err
	}
	coords, err := BuildCoords(sub.SampleHeaders, sub.Wavelength)
	if err != nil {
		return nil, fmt.Errorf("convert: building coordinates: %w", err)
	}
	scalars, err := NormalizeScalars(sub.Scalars, coords)
	if err != nil {
		return nil, fmt.Errorf("convert: normalizing scalars: %w", err)
	}

	var trace []float64
	if pkg.ProfilometerPath != "" {
		trace, err = l.params.Profilometer(pkg.ProfilometerPath, true)
		if err != nil {
			return nil, fmt.Errorf("convert: loading profilometer trace: %w", err)
		}
	}
	asm, err := AssembleSpectra(sub.Spectra, coords, trace, l.params.IndexCoord)
	if err != nil {
		return nil, fmt.Errorf("convert: assembling spectra: %w", err)
	}

	var img *Imagery
	if l.params.Image && pkg.Cras != nil {
		img, err = AssembleImage(pkg.Cras, coords, l.params.SubsampleImage)
		if err != nil {
			return nil, fmt.Errorf("convert: assembling imagery: %w", err)
		}
	}
	return Compose(asm, scalars, img, sub.Classes)
}

// spectralSubset resolves the requested subset from the package.
func spectralSubset(pkg *tsgfile.Package, name string) (*tsgfile.Spectra, error) {
	switch strings.ToUpper(name) {
	case "NIR":
		if pkg.NIR != nil {
			return pkg.NIR, nil
		}
	case "TIR":
		if pkg.TIR != nil {
			return pkg.TIR, nil
		}
	default:
		return nil, fmt.Errorf("%w: unknown subset %q", ErrMissingData, name)
	}
	return nil, fmt.Errorf("%w: %s in dataset %s", ErrMissingData, strings.ToUpper(name), pkg.Name)
}
