package forecast

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParsePercentile(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		// p-notation
		{"p50", 50, false},
		{"p80", 80, false},
		{"P85", 85, false}, // case insensitive
		{"p90", 90, false},
		{"p99.9", 99.9, false},
		{" p100 ", 100, false},

		// bare numbers
		{"50", 50, false},
		{"97.5", 97.5, false},
		{"0.5", 0.5, false},

		// errors
		{"p0", 0, true},
		{"0", 0, true},
		{"p101", 0, true},
		{"-5", 0, true},
		{"", 0, true},
		{"pabc", 0, true},
		{"median", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePercentile(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParsePercentile(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParsePercentile(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParsePercentiles(t *testing.T) {
	tests := []struct {
		input   string
		want    []float64
		wantErr bool
	}{
		{"p50,p85", []float64{50, 85}, false},
		{"p50, 80 ,P90", []float64{50, 80, 90}, false},
		{"p50,,p85,", []float64{50, 85}, false},
		{"", nil, false},
		{"p50,p50", nil, true},
		{"p50,p0", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePercentiles(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePercentiles(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParsePercentiles(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestFormatPercentile(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{50, "P50"},
		{85, "P85"},
		{100, "P100"},
		{97.5, "P97.5"},
		{0.1, "P0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatPercentile(tt.input); got != tt.want {
				t.Errorf("FormatPercentile(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNearestRank(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

	tests := []struct {
		p    float64
		want float64
	}{
		{0.1, 10},
		{10, 10},
		{10.5, 20},
		{50, 50},
		{80, 80},
		{85, 90},
		{90, 90},
		{99, 100},
		{100, 100},
	}

	for _, tt := range tests {
		if got := NearestRank(sorted, tt.p); got != tt.want {
			t.Errorf("NearestRank(P%v) = %v, want %v", tt.p, got, tt.want)
		}
	}

	if got := NearestRank(nil, 50); got != 0 {
		t.Errorf("NearestRank(nil) = %v, want 0", got)
	}
}

func TestNearestRank_ExactProducts(t *testing.T) {
	// 85% of 10000 is exactly rank 8500 (index 8499).
	if got := nearestRank(85, 10000); got != 8499 {
		t.Errorf("nearestRank(85, 10000) = %d, want 8499", got)
	}
	if got := nearestRank(80, 30000); got != 23999 {
		t.Errorf("nearestRank(80, 30000) = %d, want 23999", got)
	}
	if got := nearestRank(100, 1); got != 0 {
		t.Errorf("nearestRank(100, 1) = %d, want 0", got)
	}
}
