package convert

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/CSIRO-GeoscienceAnalytics/tsg-xr/internal/tsgfile"
)

// testPackage builds a three-sample NIR package with duplicate hole-depths
// and a profilometer trace path for the injected loader.
func testPackage() *tsgfile.Package {
	headers := &tsgfile.Table{Columns: []tsgfile.Column{
		{Name: "sample", Strings: []string{"0", "1", "2"}},
		{Name: "T", Strings: []string{"T1", "T1", "T1"}},
		{Name: "L", Strings: []string{"1", "1", "1"}},
		{Name: "D", Strings: []string{"5.0", "3.0", "3.0"}},
		{Name: "H", Strings: []string{"WB-1", "WB-1", "WB-1"}},
	}}
	scalars := &tsgfile.Table{Columns: []tsgfile.Column{
		{Name: "Grade", Floats: []float64{1, sentinel, 3}},
	}}
	return &tsgfile.Package{
		Name: "wb1",
		NIR: &tsgfile.Spectra{
			Name:          "NIR",
			Scalars:       scalars,
			SampleHeaders: headers,
			Wavelength:    []float64{400, 500},
			Spectra:       mat.NewDense(3, 2, []float64{10, 11, 20, 21, 30, 31}),
			Classes:       []tsgfile.ClassLookup{{Name: "Grade", Entries: []tsgfile.ClassEntry{{Code: 1, Label: "low"}}}},
		},
		ProfilometerPath: "injected",
	}
}

func TestLoadDepthIndexed(t *testing.T) {
	var askedPath string
	loader := NewLoader(&Params{
		IndexCoord: IndexDepth,
		Profilometer: func(path string, perSample bool) ([]float64, error) {
			askedPath = path
			if !perSample {
				t.Errorf("Expected the trace aggregated per sample")
			}
			return []float64{1, 2, 3}, nil
		},
	})

	ds, err := loader.Load(testPackage())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if askedPath != "injected" {
		t.Errorf("Expected the injected profilometer loader to receive the trace path, got %q", askedPath)
	}

	if got := ds.VarNames()[0]; got != "Spectra" {
		t.Errorf("Expected Spectra first, got %s", got)
	}
	spectra := ds.Var("Spectra")
	if shape := spectra.Shape(); shape[0] != 2 || shape[1] != 2 {
		t.Fatalf("Expected a 2x2 spectral array after deduplication, got %v", shape)
	}
	depths := ds.Coord("holedepth")
	if got := depths.Floats(); got[0] != 3 || got[1] != 5 {
		t.Errorf("Expected depths [3 5], got %v", got)
	}
	if got := spectra.At(0, 0); got != 20 {
		t.Errorf("Expected the first-occurring duplicate's spectrum at depth 3, got %v", got)
	}
	lidar := ds.Var("Lidar")
	if lidar.Len() != spectra.Shape()[0] {
		t.Errorf("Expected the trace reindexed with the spectra, got %d values", lidar.Len())
	}

	// Scalars follow their samples through the reindex: the sentinel row
	// lands at depth 3, the depth-5 row keeps its value.
	gradeArr := ds.Var("Grade")
	if dims := gradeArr.Dims(); dims[0] != "holedepth" {
		t.Errorf("Expected the scalars on the holedepth axis, got %v", dims)
	}
	grade := gradeArr.Floats()
	if len(grade) != 2 {
		t.Fatalf("Expected 2 scalar values after deduplication, got %d", len(grade))
	}
	if !math.IsNaN(grade[0]) {
		t.Errorf("Expected the sentinel cleaned, got %v", grade[0])
	}
	if grade[1] != 1 {
		t.Errorf("Expected the depth-5 grade to be 1, got %v", grade[1])
	}
	if hole := ds.Coord("hole"); hole == nil || hole.Len() != 2 {
		t.Errorf("Expected the hole coordinate reindexed with the spectra")
	}
	if attr := ds.Attr("Grade"); len(attr) != 1 {
		t.Errorf("Expected the Grade class lookup to carry through, got %v", attr)
	}
}

func TestLoadMissingSubset(t *testing.T) {
	loader := NewLoader(&Params{Spectra: "TIR"})
	if _, err := loader.Load(testPackage()); !errors.Is(err, ErrMissingData) {
		t.Errorf("Expected ErrMissingData for an absent subset, got %v", err)
	}
}

func TestLoadPropagatesProfilometerFailure(t *testing.T) {
	boom := errors.New("boom")
	loader := NewLoader(&Params{
		Profilometer: func(string, bool) ([]float64, error) { return nil, boom },
	})
	if _, err := loader.Load(testPackage()); !errors.Is(err, boom) {
		t.Errorf("Expected the trace failure surfaced, got %v", err)
	}
}

func TestLoadWithoutTrace(t *testing.T) {
	pkg := testPackage()
	pkg.ProfilometerPath = ""
	loader := NewLoader(nil)

	ds, err := loader.Load(pkg)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ds.HasVar("Lidar") {
		t.Errorf("Expected no Lidar variable without a trace file")
	}
	if shape := ds.Var("Spectra").Shape(); shape[0] != 3 {
		t.Errorf("Expected all 3 samples in sample mode, got %v", shape)
	}
}
