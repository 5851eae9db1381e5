package protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/partylikeits1983/satelite-trajectory-fhe/scheme"
)

// Evaluate runs the counterpart side of a round: it compares every
// ciphertext in the envelope against the corresponding local plaintext
// scalar under the envelope's evaluation key, and conjoins the
// per-dimension results into one encrypted collision flag per timestep.
//
// The evaluation key is activated as a scoped context for exactly this
// call and released on every path. The conjunction folds dimensions left
// to right, so results are reproducible bit for bit.
//
// Evaluation itself is a synchronous computation: ctx is honored before
// work starts, not mid-evaluation.
func Evaluate(ctx context.Context, sch scheme.Scheme, env *Envelope, local Trajectory, pred Predicate) (*VerdictSequence, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	shape := env.Shape()
	if local.Shape() != shape {
		return nil, fmt.Errorf("%w: envelope %s, local %s", ErrDimensionMismatch, shape, local.Shape())
	}

	evalKey, err := sch.UnmarshalEvaluationKey(env.evalKey)
	if err != nil {
		return nil, fmt.Errorf("%w: evaluation key: %v", ErrEvaluation, err)
	}
	ectx, err := sch.Activate(evalKey)
	if err != nil {
		return nil, fmt.Errorf("%w: activate evaluation key: %v", ErrEvaluation, err)
	}
	defer ectx.Close()

	verdicts := make([][]byte, 0, shape.Timesteps)
	for t := 0; t < shape.Timesteps; t++ {
		var flag scheme.Bit
		for d := 0; d < shape.Dimensions; d++ {
			ct, err := sch.UnmarshalCiphertext(env.ciphertext(d, t))
			if err != nil {
				return nil, fmt.Errorf("%w: ciphertext dimension %d timestep %d: %v", ErrDeserialization, d, t, err)
			}
			bit, err := pred.apply(ectx, ct, local.Sample(d, t))
			if err != nil {
				return nil, evaluationError(d, t, err)
			}
			if flag == nil {
				flag = bit
				continue
			}
			if flag, err = ectx.And(flag, bit); err != nil {
				return nil, evaluationError(d, t, err)
			}
		}
		blob, err := flag.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("serialize verdict for timestep %d: %w", t, err)
		}
		verdicts = append(verdicts, blob)
	}

	return &VerdictSequence{bits: verdicts}, nil
}

func evaluationError(d, t int, err error) error {
	if errors.Is(err, ErrEvaluation) {
		return err
	}
	return fmt.Errorf("%w: dimension %d timestep %d: %v", ErrEvaluation, d, t, err)
}
