package pricing

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		price  float64
		factor float64
		want   float64
	}{
		{"empire coin cents to usd", 1000, 0.614, 614.0},
		{"identity factor", 250, 1.0, 250},
		{"zero price", 0, 0.614, 0},
		{"fractional price", 1.5, 0.5, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.price, tt.factor)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Normalize(%v, %v) = %v, want %v", tt.price, tt.factor, got, tt.want)
			}
		})
	}
}

func TestNormalizeLinearity(t *testing.T) {
	const factor = 0.614
	for _, p := range []float64{0, 1, 2.5, 100, 1000, 99999} {
		double := Normalize(2*p, factor)
		scaled := 2 * Normalize(p, factor)
		if math.Abs(double-scaled) > 1e-9 {
			t.Errorf("Normalize(2*%v) = %v, want %v", p, double, scaled)
		}
	}
}

func TestNormalizeMonotonic(t *testing.T) {
	const factor = 0.37
	prices := []float64{0, 0.01, 1, 10, 500, 12345}
	prev := math.Inf(-1)
	for _, p := range prices {
		got := Normalize(p, factor)
		if got < prev {
			t.Fatalf("Normalize not monotonic: Normalize(%v) = %v < %v", p, got, prev)
		}
		prev = got
	}
}
