package ingest

import "testing"

func TestDetectCut(t *testing.T) {
	tests := []struct {
		name    string
		amounts []float64 // newest first
		want    bool
	}{
		{
			name:    "steady payments",
			amounts: []float64{0.83, 0.83, 0.75, 0.75},
			want:    false,
		},
		{
			name:    "raise",
			amounts: []float64{0.83, 0.75},
			want:    false,
		},
		{
			name:    "cut",
			amounts: []float64{0.50, 0.83, 0.83},
			want:    true,
		},
		{
			name:    "cut with zero gaps from price series",
			amounts: []float64{0, 0, 0.50, 0, 0, 0.83},
			want:    true,
		},
		{
			name:    "single payment",
			amounts: []float64{0.83},
			want:    false,
		},
		{
			name:    "no payments",
			amounts: nil,
			want:    false,
		},
		{
			name:    "all zeros",
			amounts: []float64{0, 0, 0},
			want:    false,
		},
		{
			name:    "tiny cut still counts",
			amounts: []float64{0.8299, 0.83},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectCut(tt.amounts); got != tt.want {
				t.Errorf("DetectCut(%v) = %v, want %v", tt.amounts, got, tt.want)
			}
		})
	}
}
