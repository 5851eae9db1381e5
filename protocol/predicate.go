package protocol

import (
	"fmt"

	"github.com/partylikeits1983/satelite-trajectory-fhe/scheme"
)

// Predicate selects the per-dimension comparison the evaluator applies
// between a received ciphertext and a local plaintext scalar. The zero
// value is exact equality.
type Predicate struct {
	threshold uint64
	windowed  bool
}

// Equality matches a timestep when every dimension is exactly equal.
func Equality() Predicate {
	return Predicate{}
}

// WithinThreshold matches a timestep when every dimension differs by at
// most threshold. Backends without native ordering comparison expand the
// threshold into a window of equalities, so keep thresholds small.
func WithinThreshold(threshold uint64) Predicate {
	return Predicate{threshold: threshold, windowed: true}
}

func (p Predicate) String() string {
	if !p.windowed {
		return "equality"
	}
	return fmt.Sprintf("within-threshold(%d)", p.threshold)
}

// apply runs the predicate inside an activated evaluation context.
func (p Predicate) apply(ctx scheme.EvalContext, ct scheme.Ciphertext, local uint64) (scheme.Bit, error) {
	if !p.windowed {
		return ctx.Eq(ct, local)
	}
	return ctx.AbsDiffLE(ct, local, p.threshold)
}
