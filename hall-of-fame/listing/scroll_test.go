package listing

import "testing"

func TestScrollPercentage(t *testing.T) {
	tests := []struct {
		name               string
		top, viewport, doc float64
		want               float64
	}{
		{"top", 0, 100, 500, 0},
		{"halfway", 200, 100, 500, 0.5},
		{"bottom", 400, 100, 500, 1},
		{"fits", 0, 500, 400, 0},
		{"equal", 30, 400, 400, 0},
	}
	for _, tt := range tests {
		if got := ScrollPercentage(tt.top, tt.viewport, tt.doc); got != tt.want {
			t.Fatalf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestShouldLoadBoundaryIsInclusive(t *testing.T) {
	if ShouldLoad(79.9, 100, 200) {
		t.Fatal("loaded below threshold")
	}
	if !ShouldLoad(80, 100, 200) {
		t.Fatal("threshold must be inclusive")
	}
	if !ShouldLoad(100, 100, 200) {
		t.Fatal("expected load at the bottom")
	}
}
