// README: Distance math and formatting tests.
package geo

import (
	"math"
	"testing"

	"rumbo/internal/types"
)

func TestHaversineKm(t *testing.T) {
	montevideo := types.Point{Lat: -34.9011, Lng: -56.1645}
	puntaDelEste := types.Point{Lat: -34.9608, Lng: -54.9533}

	d := HaversineKm(montevideo, puntaDelEste)
	// Roughly 110 km apart along the coast.
	if d < 100 || d > 120 {
		t.Fatalf("HaversineKm = %.2f km, want about 110", d)
	}

	if got := HaversineKm(montevideo, montevideo); got != 0 {
		t.Fatalf("distance to self = %v, want 0", got)
	}

	back := HaversineKm(puntaDelEste, montevideo)
	if math.Abs(d-back) > 1e-9 {
		t.Fatalf("not symmetric: %v vs %v", d, back)
	}
}

func TestFormatDistance(t *testing.T) {
	cases := []struct {
		km   float64
		want string
	}{
		{0.010, "< 50 m"},
		{0.049, "< 50 m"},
		{0.050, "50 m"},
		{0.730, "700 m"},
		{0.999, "950 m"},
		{1.0, "1.0 km"},
		{2.345, "2.3 km"},
		{12.0, "12.0 km"},
	}
	for _, tc := range cases {
		if got := FormatDistance(tc.km); got != tc.want {
			t.Errorf("FormatDistance(%v) = %q, want %q", tc.km, got, tc.want)
		}
	}
}
