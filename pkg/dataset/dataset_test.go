package dataset

import (
	"errors"
	"testing"
)

func TestNewFloatsShapeValidation(t *testing.T) {
	if _, err := NewFloats([]string{"sample", "wavelength"}, []int{2, 3}, make([]float64, 6)); err != nil {
		t.Errorf("Expected a 2x3 array from 6 values, got error: %v", err)
	}
	if _, err := NewFloats([]string{"sample"}, []int{2, 3}, make([]float64, 6)); !errors.Is(err, ErrRankMismatch) {
		t.Errorf("Expected ErrRankMismatch, got %v", err)
	}
	if _, err := NewFloats([]string{"sample", "wavelength"}, []int{2, 3}, make([]float64, 5)); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}
}

func TestArrayAt(t *testing.T) {
	arr, err := NewFloats([]string{"a", "b"}, []int{2, 3}, []float64{0, 1, 2, 10, 11, 12})
	if err != nil {
		t.Fatalf("NewFloats failed: %v", err)
	}
	if got := arr.At(1, 2); got != 12 {
		t.Errorf("Expected At(1,2)=12, got %v", got)
	}
	if got := arr.At(0, 1); got != 1 {
		t.Errorf("Expected At(0,1)=1, got %v", got)
	}
}

func TestSetVarNeedsIndexCoordinates(t *testing.T) {
	ds := New()
	arr := NewVector("sample", []float64{1, 2, 3})

	if err := ds.SetVar("Grade", arr); !errors.Is(err, ErrUnknownAxis) {
		t.Errorf("Expected ErrUnknownAxis without a sample coordinate, got %v", err)
	}

	if err := ds.SetCoord("sample", NewVector("sample", []float64{0, 1, 2})); err != nil {
		t.Fatalf("SetCoord failed: %v", err)
	}
	if err := ds.SetVar("Grade", arr); err != nil {
		t.Errorf("Expected SetVar to succeed with the axis defined, got %v", err)
	}

	short := NewVector("sample", []float64{1, 2})
	if err := ds.SetVar("Short", short); !errors.Is(err, ErrAxisLength) {
		t.Errorf("Expected ErrAxisLength for a short variable, got %v", err)
	}
}

func TestSecondaryCoordinateValidation(t *testing.T) {
	ds := New()
	if err := ds.SetCoord("tray", NewStrings("sample", []string{"A", "B"})); !errors.Is(err, ErrUnknownAxis) {
		t.Errorf("Expected ErrUnknownAxis for a coordinate on an undefined axis, got %v", err)
	}
	if err := ds.SetCoord("sample", NewVector("sample", []float64{0, 1})); err != nil {
		t.Fatalf("SetCoord failed: %v", err)
	}
	if err := ds.SetCoord("tray", NewStrings("sample", []string{"A", "B", "C"})); !errors.Is(err, ErrAxisLength) {
		t.Errorf("Expected ErrAxisLength for a mismatched coordinate, got %v", err)
	}
	if err := ds.SetCoord("tray", NewStrings("sample", []string{"A", "B"})); err != nil {
		t.Errorf("Expected matching coordinate to attach, got %v", err)
	}
}

func TestSelectReturnsNewDataset(t *testing.T) {
	ds := New()
	if err := ds.SetCoord("sample", NewVector("sample", []float64{0, 1})); err != nil {
		t.Fatalf("SetCoord failed: %v", err)
	}
	for _, name := range []string{"A", "B", "C"} {
		if err := ds.SetVar(name, NewVector("sample", []float64{1, 2})); err != nil {
			t.Fatalf("SetVar(%s) failed: %v", name, err)
		}
	}

	out, err := ds.Select("C", "A")
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	got := out.VarNames()
	if len(got) != 2 || got[0] != "C" || got[1] != "A" {
		t.Errorf("Expected [C A], got %v", got)
	}

	// The source dataset is untouched.
	orig := ds.VarNames()
	if len(orig) != 3 || orig[0] != "A" {
		t.Errorf("Expected the source order [A B C] to survive, got %v", orig)
	}
	if out.Coord("sample") != ds.Coord("sample") {
		t.Errorf("Expected coordinates to be shared, not copied")
	}

	if _, err := ds.Select("missing"); !errors.Is(err, ErrUnknownVar) {
		t.Errorf("Expected ErrUnknownVar, got %v", err)
	}
}
