package phase

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name          string
		elapsed       float64
		total         int
		wantFraction  float64
		wantRemaining int
	}{
		{name: "start of phase", elapsed: 0, total: 10, wantFraction: 0, wantRemaining: 10},
		{name: "partial", elapsed: 4, total: 10, wantFraction: 0.4, wantRemaining: 6},
		{name: "sub-second rounds remaining up", elapsed: 4.2, total: 10, wantFraction: 0.42, wantRemaining: 6},
		{name: "exactly at total", elapsed: 10, total: 10, wantFraction: 1, wantRemaining: 0},
		{name: "past total", elapsed: 25, total: 10, wantFraction: 1, wantRemaining: 0},
		{name: "infinite elapsed", elapsed: math.Inf(1), total: 10, wantFraction: 1, wantRemaining: 0},
		{name: "negative elapsed treated as zero", elapsed: -3, total: 10, wantFraction: 0, wantRemaining: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.elapsed, tt.total)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantFraction, got.Fraction, 1e-9)
			assert.Equal(t, tt.wantRemaining, got.Remaining)
		})
	}
}

func TestComputeRejectsNonPositiveTotal(t *testing.T) {
	for _, total := range []int{0, -1} {
		_, err := Compute(1, total)
		assert.True(t, errors.Is(err, ErrConfiguration), "total %d: got %v", total, err)
	}
}

func TestComputeFractionMonotonic(t *testing.T) {
	for _, total := range []int{1, 7, 10, 150, 3600} {
		prev := -1.0
		for elapsed := 0.0; elapsed <= float64(total); elapsed += float64(total) / 97 {
			got, err := Compute(elapsed, total)
			require.NoError(t, err)
			assert.InDelta(t, elapsed/float64(total), got.Fraction, 1e-9)
			assert.Greater(t, got.Fraction, prev, "total %d elapsed %f", total, elapsed)
			prev = got.Fraction
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		conf    Config
		wantErr bool
	}{
		{name: "valid", conf: Config{UnitSeconds: 5, RepeatCount: 2}},
		{name: "minimum", conf: Config{UnitSeconds: 1, RepeatCount: 1}},
		{name: "zero unit", conf: Config{UnitSeconds: 0, RepeatCount: 2}, wantErr: true},
		{name: "negative count", conf: Config{UnitSeconds: 5, RepeatCount: -1}, wantErr: true},
		{name: "one day", conf: Config{UnitSeconds: 3600, RepeatCount: 24}},
		{name: "over one day", conf: Config{UnitSeconds: MaxTotalSeconds + 1, RepeatCount: 1}, wantErr: true},
		{name: "product over limit", conf: Config{UnitSeconds: 3601, RepeatCount: 24}, wantErr: true},
		{name: "product overflows int", conf: Config{UnitSeconds: 1 << 62, RepeatCount: 4}, wantErr: true},
		{name: "huge count", conf: Config{UnitSeconds: 1, RepeatCount: math.MaxInt}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.conf.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfiguration)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.conf.UnitSeconds*tt.conf.RepeatCount, tt.conf.TotalSeconds())
		})
	}
}

func TestIllegalTransitionWraps(t *testing.T) {
	err := IllegalTransition("start", PhaseWashing)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Contains(t, err.Error(), "Washing")
}
