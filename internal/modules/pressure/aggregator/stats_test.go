package aggregator

import (
	"errors"
	"reflect"
	"testing"

	"pressuredash/internal/modules/pressure/types"
)

var defaultThresholds = Thresholds{Low: 96, High: 192}

func TestComputeStats(t *testing.T) {
	t.Run("single value is medium", func(t *testing.T) {
		got, err := ComputeStats([]float64{100}, defaultThresholds)
		if err != nil {
			t.Fatalf("ComputeStats() err = %v; want nil", err)
		}
		if got.Avg != 100 || got.Min != 100 || got.Max != 100 {
			t.Errorf("avg/min/max = %v/%v/%v; want 100/100/100", got.Avg, got.Min, got.Max)
		}
		if got.Low != 0 || got.Medium != 1 || got.High != 0 {
			t.Errorf("low/medium/high = %d/%d/%d; want 0/1/0", got.Low, got.Medium, got.High)
		}
		if got.Below != 0 || got.Within != 1 || got.Above != 0 {
			t.Errorf("below/within/above = %d/%d/%d; want 0/1/0", got.Below, got.Within, got.Above)
		}
	})

	t.Run("distribution around the average", func(t *testing.T) {
		got, err := ComputeStats([]float64{10, 20, 30}, defaultThresholds)
		if err != nil {
			t.Fatalf("ComputeStats() err = %v; want nil", err)
		}
		if got.Avg != 20 || got.Min != 10 || got.Max != 30 {
			t.Errorf("avg/min/max = %v/%v/%v; want 20/10/30", got.Avg, got.Min, got.Max)
		}
		if got.Low != 1 || got.Medium != 1 || got.High != 1 {
			t.Errorf("low/medium/high = %d/%d/%d; want 1/1/1", got.Low, got.Medium, got.High)
		}
	})

	t.Run("threshold bounds are inclusive", func(t *testing.T) {
		got, err := ComputeStats([]float64{50, 96, 150, 192, 250}, defaultThresholds)
		if err != nil {
			t.Fatalf("ComputeStats() err = %v; want nil", err)
		}
		if got.Below != 1 || got.Within != 3 || got.Above != 1 {
			t.Errorf("below/within/above = %d/%d/%d; want 1/3/1", got.Below, got.Within, got.Above)
		}
	})

	t.Run("thresholds come from the caller", func(t *testing.T) {
		got, err := ComputeStats([]float64{350, 400, 500, 600, 650}, Thresholds{Low: 400, High: 600})
		if err != nil {
			t.Fatalf("ComputeStats() err = %v; want nil", err)
		}
		if got.Below != 1 || got.Within != 3 || got.Above != 1 {
			t.Errorf("below/within/above = %d/%d/%d; want 1/3/1", got.Below, got.Within, got.Above)
		}
	})

	t.Run("all equal values", func(t *testing.T) {
		got, err := ComputeStats([]float64{42, 42, 42, 42}, defaultThresholds)
		if err != nil {
			t.Fatalf("ComputeStats() err = %v; want nil", err)
		}
		if got.Medium != 4 || got.Below != 4 {
			t.Errorf("medium=%d below=%d; want 4 and 4", got.Medium, got.Below)
		}
	})

	t.Run("empty input returns ErrEmptyInput", func(t *testing.T) {
		_, err := ComputeStats(nil, defaultThresholds)
		if !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("ComputeStats(nil) err = %v; want ErrEmptyInput", err)
		}
	})
}

func TestComputeStats_bucketsCoverEveryValue(t *testing.T) {
	inputs := [][]float64{
		{1},
		{0, 0, 0},
		{-5, 5},
		{96, 192, 95.999, 192.001},
		{12.5, 300, 7, 88, 150, 151, 152, 1000, 0.1},
	}
	for _, values := range inputs {
		got, err := ComputeStats(values, defaultThresholds)
		if err != nil {
			t.Fatalf("ComputeStats(%v) err = %v", values, err)
		}
		if n := got.Low + got.Medium + got.High; n != len(values) {
			t.Errorf("ComputeStats(%v): low+medium+high = %d; want %d", values, n, len(values))
		}
		if n := got.Below + got.Within + got.Above; n != len(values) {
			t.Errorf("ComputeStats(%v): below+within+above = %d; want %d", values, n, len(values))
		}
	}
}

func TestComputeStats_idempotent(t *testing.T) {
	values := []float64{3, 99, 120, 180, 250}
	first, err := ComputeStats(values, defaultThresholds)
	if err != nil {
		t.Fatalf("ComputeStats() err = %v", err)
	}
	second, err := ComputeStats(values, defaultThresholds)
	if err != nil {
		t.Fatalf("ComputeStats() err = %v", err)
	}
	if first != second {
		t.Errorf("second call = %+v; want %+v", second, first)
	}
	if !reflect.DeepEqual(values, []float64{3, 99, 120, 180, 250}) {
		t.Errorf("input was modified: %v", values)
	}
}

func TestValues(t *testing.T) {
	readings := []types.Reading{{Value: 1.5}, {Value: 2}, {Value: -3}}
	got := Values(readings)
	want := []float64{1.5, 2, -3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Values() = %v; want %v", got, want)
	}
	if got := Values(nil); len(got) != 0 {
		t.Errorf("Values(nil) = %v; want empty", got)
	}
}
