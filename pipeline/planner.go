package pipeline

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

const (
	// exponentTolerance snaps ln(target)/ln(base) onto the nearest half
	// integer so that exact powers and exact ties survive floating point noise.
	exponentTolerance = 1e-9

	// residualTolerance is the distance from 1.0 under which the residual
	// ratio counts as exact and the final resize is skipped.
	residualTolerance = 1e-9
)

// Plan is the per-invocation schedule derived from (base, target, policy).
type Plan struct {
	Policy   ScalePolicy
	Base     float64
	Target   float64
	Passes   int
	Achieved float64
	Residual float64
}

// NewPlan computes the pass count for the given policy and the residual ratio
// left for the final resize.
func NewPlan(base, target float64, policy ScalePolicy) (Plan, error) {
	passes, err := PassCount(base, target, policy)
	if err != nil {
		return Plan{}, err
	}

	achieved := 1.0
	if passes > 0 {
		achieved = math.Pow(base, float64(passes))
	}

	return Plan{
		Policy:   policy,
		Base:     base,
		Target:   target,
		Passes:   passes,
		Achieved: achieved,
		Residual: target / achieved,
	}, nil
}

// PassCount maps (base, target, policy) to a non-negative number of model
// passes.
//
// With n = ln(target)/ln(base): SinglePass is always 1, NearestPower rounds n
// half away from zero, CeilPower takes ceil(n), FloorPower takes floor(n).
// Negative results clamp to 0.
//
// A base scale of exactly 1 gives the model no magnification. SinglePass
// still runs its one pass; every power policy yields 0 passes so the whole
// magnification comes from the resize.
func PassCount(base, target float64, policy ScalePolicy) (int, error) {
	if !validScale(base) {
		return 0, errors.Wrapf(ErrInvalidScale, "base scale %v", base)
	}
	if !validScale(target) {
		return 0, errors.Wrapf(ErrInvalidScale, "target scale %v", target)
	}
	if !policy.Valid() {
		return 0, errors.Wrapf(ErrUnknownPolicy, "%v", policy)
	}

	if policy == SinglePass {
		return 1, nil
	}
	if base == 1 {
		return 0, nil
	}

	n := snapExponent(math.Log(target) / math.Log(base))

	var passes float64
	switch policy {
	case NearestPower:
		passes = math.Round(n)
	case CeilPower:
		passes = math.Ceil(n)
	case FloorPower:
		passes = math.Floor(n)
	}

	if passes < 0 {
		return 0, nil
	}
	return int(passes), nil
}

// Interpolation picks the resize kernel for the residual ratio.
func (p Plan) Interpolation() Interpolation {
	if p.Residual < 1 {
		return InterpolationArea
	}
	return InterpolationLanczos
}

// NeedsResize reports whether the residual is far enough from 1 to resample.
func (p Plan) NeedsResize() bool {
	return math.Abs(p.Residual-1) > residualTolerance
}

// TargetSize returns the residual-resized dimensions of a w×h post-model image.
func (p Plan) TargetSize(w, h int) (int, int) {
	return int(math.Round(float64(w) * p.Residual)), int(math.Round(float64(h) * p.Residual))
}

func (p Plan) String() string {
	return fmt.Sprintf("policy=%s;base=%g;target=%g;passes=%d;achieved=%g;residual=%g",
		p.Policy, p.Base, p.Target, p.Passes, p.Achieved, p.Residual)
}

func validScale(s float64) bool {
	return s > 0 && !math.IsInf(s, 0) && !math.IsNaN(s)
}

func snapExponent(n float64) float64 {
	half := math.Round(n*2) / 2
	if math.Abs(n-half) < exponentTolerance {
		return half
	}
	return n
}
