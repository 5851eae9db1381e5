package protocol

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/partylikeits1983/satelite-trajectory-fhe/scheme/schemetest"
)

func oneScalarTrajectory(t *testing.T, v uint64) Trajectory {
	t.Helper()
	tr, err := NewTrajectory([]uint64{v})
	require.NoError(t, err)
	return tr
}

func TestEvaluateEqualityCorrectness(t *testing.T) {
	stub := schemetest.New()
	values := []uint64{0, 1, 7, 100, 65535, 1 << 40}
	for _, p := range values {
		for _, q := range values {
			pair, err := NewKeyManager(stub).GenerateKeyPair()
			require.NoError(t, err)
			env, err := BuildEnvelope(oneScalarTrajectory(t, p), pair)
			require.NoError(t, err)

			verdicts, err := Evaluate(context.Background(), stub, env, oneScalarTrajectory(t, q), Equality())
			require.NoError(t, err)
			flags, err := DecryptVerdicts(verdicts, pair)
			require.NoError(t, err)
			require.Equal(t, []bool{p == q}, flags, "p=%d q=%d", p, q)
		}
	}
}

func TestEvaluateThresholdCorrectness(t *testing.T) {
	stub := schemetest.New()
	const threshold = 5
	values := []uint64{0, 3, 10, 14, 15, 16, 100}
	for _, p := range values {
		for _, q := range values {
			pair, err := NewKeyManager(stub).GenerateKeyPair()
			require.NoError(t, err)
			env, err := BuildEnvelope(oneScalarTrajectory(t, p), pair)
			require.NoError(t, err)

			verdicts, err := Evaluate(context.Background(), stub, env, oneScalarTrajectory(t, q), WithinThreshold(threshold))
			require.NoError(t, err)
			flags, err := DecryptVerdicts(verdicts, pair)
			require.NoError(t, err)

			want := p-q <= threshold
			if q > p {
				want = q-p <= threshold
			}
			require.Equal(t, []bool{want}, flags, "p=%d q=%d", p, q)
		}
	}
}

func TestEvaluateConjoinsAllDimensions(t *testing.T) {
	stub := schemetest.New()
	pair, err := NewKeyManager(stub).GenerateKeyPair()
	require.NoError(t, err)

	owner, err := NewTrajectory(
		[]uint64{1, 1, 1},
		[]uint64{2, 2, 2},
	)
	require.NoError(t, err)
	// Timestep 0 matches fully, 1 differs in dimension 0, 2 differs in
	// dimension 1.
	local, err := NewTrajectory(
		[]uint64{1, 9, 1},
		[]uint64{2, 2, 9},
	)
	require.NoError(t, err)

	env, err := BuildEnvelope(owner, pair)
	require.NoError(t, err)
	verdicts, err := Evaluate(context.Background(), stub, env, local, Equality())
	require.NoError(t, err)
	flags, err := DecryptVerdicts(verdicts, pair)
	require.NoError(t, err)
	require.Equal(t, []bool{true, false, false}, flags)
}

func TestEvaluateDimensionMismatch(t *testing.T) {
	stub := schemetest.New()
	pair, err := NewKeyManager(stub).GenerateKeyPair()
	require.NoError(t, err)

	owner, err := NewTrajectory([]uint64{1, 2, 3}, []uint64{4, 5, 6}, []uint64{7, 8, 9})
	require.NoError(t, err)
	env, err := BuildEnvelope(owner, pair)
	require.NoError(t, err)

	fewerDims, err := NewTrajectory([]uint64{1, 2, 3}, []uint64{4, 5, 6})
	require.NoError(t, err)
	_, err = Evaluate(context.Background(), stub, env, fewerDims, Equality())
	require.ErrorIs(t, err, ErrDimensionMismatch)

	fewerSteps, err := NewTrajectory([]uint64{1, 2}, []uint64{4, 5}, []uint64{7, 8})
	require.NoError(t, err)
	_, err = Evaluate(context.Background(), stub, env, fewerSteps, Equality())
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestEvaluateForeignEvaluationKey(t *testing.T) {
	stub := schemetest.New()
	km := NewKeyManager(stub)
	pair, err := km.GenerateKeyPair()
	require.NoError(t, err)
	otherPair, err := km.GenerateKeyPair()
	require.NoError(t, err)

	tr := oneScalarTrajectory(t, 42)
	env, err := BuildEnvelope(tr, pair)
	require.NoError(t, err)

	// Swap in an evaluation key from a different pair: the ciphertexts no
	// longer match the activated key, and the scheme must refuse rather
	// than produce a silent wrong boolean.
	env.evalKey, err = otherPair.ExportEvaluationKey()
	require.NoError(t, err)

	_, err = Evaluate(context.Background(), stub, env, tr, Equality())
	require.ErrorIs(t, err, ErrEvaluation)
}

func TestEvaluateReleasesContext(t *testing.T) {
	stub := schemetest.New()
	pair, err := NewKeyManager(stub).GenerateKeyPair()
	require.NoError(t, err)
	tr := oneScalarTrajectory(t, 5)
	env, err := BuildEnvelope(tr, pair)
	require.NoError(t, err)

	_, err = Evaluate(context.Background(), stub, env, tr, Equality())
	require.NoError(t, err)
	require.Zero(t, stub.ActiveContexts())

	// The context must be released on the failure path too.
	stub.EvalErr = errors.New("injected scheme failure")
	_, err = Evaluate(context.Background(), stub, env, tr, Equality())
	require.ErrorIs(t, err, ErrEvaluation)
	require.Zero(t, stub.ActiveContexts())
}

func TestEvaluateDeterministic(t *testing.T) {
	stub := schemetest.New()
	pair, err := NewKeyManager(stub).GenerateKeyPair()
	require.NoError(t, err)

	owner, err := NewTrajectory([]uint64{1, 2}, []uint64{3, 4}, []uint64{5, 6})
	require.NoError(t, err)
	local, err := NewTrajectory([]uint64{1, 9}, []uint64{3, 4}, []uint64{5, 6})
	require.NoError(t, err)

	env, err := BuildEnvelope(owner, pair)
	require.NoError(t, err)

	first, err := Evaluate(context.Background(), stub, env, local, Equality())
	require.NoError(t, err)
	second, err := Evaluate(context.Background(), stub, env, local, Equality())
	require.NoError(t, err)

	firstBytes, err := first.Encode()
	require.NoError(t, err)
	secondBytes, err := second.Encode()
	require.NoError(t, err)
	require.Equal(t, firstBytes, secondBytes)
}
