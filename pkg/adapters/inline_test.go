package adapters

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestInlineAdapter_Collect(t *testing.T) {
	tests := []struct {
		name        string
		adapter     InlineAdapter
		want        []float64
		wantSkipped int
	}{
		{"simple list", InlineAdapter{Values: "1,2,3"}, []float64{1, 2, 3}, 0},
		{"spaces and blanks", InlineAdapter{Values: " 1.5, ,4 ,"}, []float64{1.5, 4}, 2},
		{"custom separator", InlineAdapter{Values: "5 8 13", Separator: " "}, []float64{5, 8, 13}, 0},
		{"negative kept for validation downstream", InlineAdapter{Values: "-1,5,7"}, []float64{-1, 5, 7}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sample, err := tt.adapter.Collect(context.Background())
			if err != nil {
				t.Fatalf("Collect error: %v", err)
			}
			if diff := cmp.Diff(tt.want, sample.Values); diff != "" {
				t.Errorf("Values mismatch (-want +got):\n%s", diff)
			}
			if sample.Skipped != tt.wantSkipped {
				t.Errorf("Skipped = %d, want %d", sample.Skipped, tt.wantSkipped)
			}
		})
	}
}

func TestInlineAdapter_Errors(t *testing.T) {
	a := &InlineAdapter{Values: "1,x,3"}
	_, err := a.Collect(context.Background())
	if err == nil || !strings.Contains(err.Error(), `inline value[1]: "x"`) {
		t.Errorf("Collect error = %v, want non-number error for entry 1", err)
	}

	a = &InlineAdapter{Values: "   "}
	if _, err := a.Collect(context.Background()); err == nil {
		t.Error("Collect with no values = nil error, want error")
	}
}
