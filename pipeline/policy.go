package pipeline

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ScalePolicy selects how many model passes are derived from the ratio
// between the target scale and the model's base scale.
type ScalePolicy int

const (
	// SinglePass runs the model exactly once and resizes to the target.
	SinglePass ScalePolicy = iota
	// NearestPower runs the number of passes whose achieved scale is nearest
	// to the target in log space. Exact ties round away from zero.
	NearestPower
	// CeilPower runs the fewest passes whose achieved scale reaches the target,
	// leaving a downscale for the final resize. When log_base(target) lies
	// within 1e-9 of an integer k, k passes count as reaching the target.
	CeilPower
	// FloorPower runs the most passes whose achieved scale stays under the
	// target, leaving an upscale for the final resize. The same 1e-9 exponent
	// tolerance as CeilPower applies.
	FloorPower
)

// DefaultPolicy is the policy a new Pipeline starts with.
const DefaultPolicy = NearestPower

var policyNames = map[ScalePolicy]string{
	SinglePass:   "single",
	NearestPower: "nearest",
	CeilPower:    "ceil",
	FloorPower:   "floor",
}

func (p ScalePolicy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("ScalePolicy(%d)", int(p))
}

// Valid reports whether p is one of the enumerated policies.
func (p ScalePolicy) Valid() bool {
	_, ok := policyNames[p]
	return ok
}

// ParsePolicy accepts the short names (single, nearest, ceil, floor) and the
// long names (SinglePass, NearestPower, CeilPower, FloorPower), case-insensitive.
func ParsePolicy(s string) (ScalePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "singlepass":
		return SinglePass, nil
	case "nearest", "nearestpower":
		return NearestPower, nil
	case "ceil", "ceilpower":
		return CeilPower, nil
	case "floor", "floorpower":
		return FloorPower, nil
	}
	return 0, errors.Wrapf(ErrUnknownPolicy, "%q", s)
}
