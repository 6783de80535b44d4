package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	propertyBases   = []float64{1.5, 2, 3, 4}
	propertyTargets = []float64{0.1, 0.3, 0.75, 1, 1.7, 2, 3, 5.5, 8, 9, 12, 16, 20, 27, 64, 100}
	allPolicies     = []ScalePolicy{SinglePass, NearestPower, CeilPower, FloorPower}
)

func TestPassCount_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		base     float64
		target   float64
		policy   ScalePolicy
		passes   int
		achieved float64
		residual float64
		kind     Interpolation
	}{
		{"nearest x3", 4, 3, NearestPower, 1, 4, 0.75, InterpolationArea},
		{"ceil x12", 4, 12, CeilPower, 2, 16, 0.75, InterpolationArea},
		{"floor x12", 4, 12, FloorPower, 1, 4, 3, InterpolationLanczos},
		{"nearest x12", 4, 12, NearestPower, 2, 16, 0.75, InterpolationArea},
		{"single x12", 4, 12, SinglePass, 1, 4, 3, InterpolationLanczos},
		{"single downscale", 4, 0.5, SinglePass, 1, 4, 0.125, InterpolationArea},
		{"floor below one", 4, 0.5, FloorPower, 0, 1, 0.5, InterpolationArea},
		{"ceil below one", 4, 0.5, CeilPower, 0, 1, 0.5, InterpolationArea},
		{"floor x3", 4, 3, FloorPower, 0, 1, 3, InterpolationLanczos},
		{"exact x16", 4, 16, CeilPower, 2, 16, 1, InterpolationLanczos},
		{"exact x64 floor", 4, 64, FloorPower, 3, 64, 1, InterpolationLanczos},
		{"identity", 4, 1, NearestPower, 0, 1, 1, InterpolationLanczos},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := NewPlan(tt.base, tt.target, tt.policy)
			require.NoError(t, err)
			assert.Equal(t, tt.passes, plan.Passes)
			assert.InDelta(t, tt.achieved, plan.Achieved, 1e-12)
			assert.InDelta(t, tt.residual, plan.Residual, 1e-12)
			assert.Equal(t, tt.kind, plan.Interpolation())
		})
	}
}

func TestPassCount_SinglePassIsAlwaysOne(t *testing.T) {
	for _, base := range append(propertyBases, 1) {
		for _, target := range propertyTargets {
			n, err := PassCount(base, target, SinglePass)
			require.NoError(t, err)
			assert.Equal(t, 1, n, "base=%v target=%v", base, target)
		}
	}
}

func TestPassCount_CeilPowerIsSmallestReachingTarget(t *testing.T) {
	for _, base := range propertyBases {
		for _, target := range propertyTargets {
			n, err := PassCount(base, target, CeilPower)
			require.NoError(t, err)
			require.GreaterOrEqual(t, n, 0)

			assert.GreaterOrEqual(t, math.Pow(base, float64(n)), target*(1-1e-9), "base=%v target=%v n=%d", base, target, n)
			if n > 0 {
				assert.Less(t, math.Pow(base, float64(n-1)), target*(1-1e-9), "base=%v target=%v n=%d", base, target, n)
			}
		}
	}
}

func TestPassCount_FloorPowerIsLargestStayingUnderTarget(t *testing.T) {
	for _, base := range propertyBases {
		for _, target := range propertyTargets {
			n, err := PassCount(base, target, FloorPower)
			require.NoError(t, err)
			require.GreaterOrEqual(t, n, 0)

			if target < 1 {
				assert.Equal(t, 0, n, "base=%v target=%v", base, target)
				continue
			}
			assert.LessOrEqual(t, math.Pow(base, float64(n)), target*(1+1e-9), "base=%v target=%v n=%d", base, target, n)
			assert.Greater(t, math.Pow(base, float64(n+1)), target*(1+1e-9), "base=%v target=%v n=%d", base, target, n)
		}
	}
}

func TestPassCount_NearestPowerMinimizesLogDistance(t *testing.T) {
	for _, base := range propertyBases {
		for _, target := range propertyTargets {
			n, err := PassCount(base, target, NearestPower)
			require.NoError(t, err)
			require.GreaterOrEqual(t, n, 0)

			distance := func(m int) float64 {
				return math.Abs(math.Log(target) - float64(m)*math.Log(base))
			}
			for m := 0; m <= n+3; m++ {
				assert.LessOrEqual(t, distance(n), distance(m)+1e-9, "base=%v target=%v n=%d m=%d", base, target, n, m)
			}
		}
	}
}

func TestPassCount_NearestPowerTiesRoundAwayFromZero(t *testing.T) {
	// 4^0.5 = 2 and 4^1.5 = 8 sit exactly between two pass counts.
	n, err := PassCount(4, 2, NearestPower)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = PassCount(4, 8, NearestPower)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = PassCount(9, 27, NearestPower)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// -0.5 rounds to -1 and clamps to 0.
	n, err = PassCount(4, 0.5, NearestPower)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPassCount_ExactPowersNeedNoResize(t *testing.T) {
	for _, base := range propertyBases {
		for k := 0; k <= 4; k++ {
			target := math.Pow(base, float64(k))
			for _, policy := range []ScalePolicy{NearestPower, CeilPower, FloorPower} {
				plan, err := NewPlan(base, target, policy)
				require.NoError(t, err)
				assert.Equal(t, k, plan.Passes, "base=%v k=%d policy=%s", base, k, policy)
				assert.False(t, plan.NeedsResize(), "base=%v k=%d policy=%s residual=%v", base, k, policy, plan.Residual)
			}
		}
	}
}

func TestPassCount_UnitBaseScale(t *testing.T) {
	for _, target := range propertyTargets {
		for _, policy := range []ScalePolicy{NearestPower, CeilPower, FloorPower} {
			n, err := PassCount(1, target, policy)
			require.NoError(t, err)
			assert.Equal(t, 0, n, "target=%v policy=%s", target, policy)
		}

		plan, err := NewPlan(1, target, SinglePass)
		require.NoError(t, err)
		assert.Equal(t, 1, plan.Passes)
		assert.InDelta(t, target, plan.Residual, 1e-12)
	}
}

func TestPassCount_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		base   float64
		target float64
		policy ScalePolicy
		err    error
	}{
		{"zero target", 4, 0, NearestPower, ErrInvalidScale},
		{"negative target", 4, -2, CeilPower, ErrInvalidScale},
		{"nan target", 4, math.NaN(), FloorPower, ErrInvalidScale},
		{"inf target", 4, math.Inf(1), FloorPower, ErrInvalidScale},
		{"zero base", 0, 2, NearestPower, ErrInvalidScale},
		{"negative base", -4, 2, SinglePass, ErrInvalidScale},
		{"unknown policy", 4, 2, ScalePolicy(42), ErrUnknownPolicy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PassCount(tt.base, tt.target, tt.policy)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestPassCount_ErrorsNameTheOffendingInput(t *testing.T) {
	_, err := PassCount(0, 2, NearestPower)
	require.ErrorIs(t, err, ErrInvalidScale)
	assert.Contains(t, err.Error(), "base scale 0")

	_, err = PassCount(4, -1, NearestPower)
	require.ErrorIs(t, err, ErrInvalidScale)
	assert.Contains(t, err.Error(), "target scale -1")

	_, err = ParsePolicy("round")
	require.ErrorIs(t, err, ErrUnknownPolicy)
	assert.Contains(t, err.Error(), `"round"`)
}

func TestPassCount_ExponentTolerance(t *testing.T) {
	tests := []struct {
		name   string
		target float64
		policy ScalePolicy
		want   int
	}{
		{"ceil just above power", 16 * (1 + 1e-10), CeilPower, 2},
		{"ceil clearly above power", 16 * (1 + 1e-6), CeilPower, 3},
		{"floor just below power", 16 * (1 - 1e-10), FloorPower, 2},
		{"floor clearly below power", 16 * (1 - 1e-6), FloorPower, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := PassCount(4, tt.target, tt.policy)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestPlan_TargetSize(t *testing.T) {
	plan, err := NewPlan(4, 3, NearestPower)
	require.NoError(t, err)

	w, h := plan.TargetSize(4*37, 4*23)
	assert.Equal(t, 111, w)
	assert.Equal(t, 69, h)
}

func TestParsePolicy(t *testing.T) {
	tests := map[string]ScalePolicy{
		"single":       SinglePass,
		"SinglePass":   SinglePass,
		"nearest":      NearestPower,
		"NEARESTPOWER": NearestPower,
		" ceil ":       CeilPower,
		"CeilPower":    CeilPower,
		"floor":        FloorPower,
		"floorpower":   FloorPower,
	}
	for in, want := range tests {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePolicy("round")
	require.ErrorIs(t, err, ErrUnknownPolicy)

	for _, p := range allPolicies {
		got, err := ParsePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	assert.Equal(t, "ScalePolicy(9)", ScalePolicy(9).String())
}
