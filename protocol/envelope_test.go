package protocol

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/partylikeits1983/satelite-trajectory-fhe/scheme/schemetest"
)

func buildTestEnvelope(t *testing.T, stub *schemetest.Scheme) (*Envelope, *KeyPair, Trajectory) {
	t.Helper()
	tr, err := NewTrajectory(
		[]uint64{10, 11, 12},
		[]uint64{20, 21, 22},
	)
	require.NoError(t, err)

	pair, err := NewKeyManager(stub).GenerateKeyPair()
	require.NoError(t, err)

	env, err := BuildEnvelope(tr, pair)
	require.NoError(t, err)
	return env, pair, tr
}

func TestEnvelopeRoundTrip(t *testing.T) {
	stub := schemetest.New()
	env, pair, tr := buildTestEnvelope(t, stub)

	encoded, err := env.Encode()
	require.NoError(t, err)

	decoded, err := DecodeEnvelope(encoded)
	require.NoError(t, err)
	require.Equal(t, env.Shape(), decoded.Shape())

	// A decoded envelope must evaluate exactly like the original.
	verdicts, err := Evaluate(context.Background(), stub, decoded, tr, Equality())
	require.NoError(t, err)
	flags, err := DecryptVerdicts(verdicts, pair)
	require.NoError(t, err)
	require.Equal(t, []bool{true, true, true}, flags)
}

func TestDecodeEnvelopeTruncated(t *testing.T) {
	stub := schemetest.New()
	env, _, _ := buildTestEnvelope(t, stub)
	encoded, err := env.Encode()
	require.NoError(t, err)

	// Cut at the header, inside the evaluation key, inside the ciphertext
	// array, and just before the digest. None may yield an envelope.
	for _, cut := range []int{0, 3, 5, len(encoded) / 2, len(encoded) - 1} {
		_, err := DecodeEnvelope(encoded[:cut])
		require.ErrorIs(t, err, ErrDeserialization, "cut at %d", cut)
	}
}

func TestDecodeEnvelopeVersionMismatch(t *testing.T) {
	stub := schemetest.New()
	env, _, _ := buildTestEnvelope(t, stub)
	encoded, err := env.Encode()
	require.NoError(t, err)

	encoded[0] = wireVersion + 1
	_, err = DecodeEnvelope(encoded)
	require.ErrorIs(t, err, ErrDeserialization)
}

func TestDecodeEnvelopeCorrupted(t *testing.T) {
	stub := schemetest.New()
	env, _, _ := buildTestEnvelope(t, stub)
	encoded, err := env.Encode()
	require.NoError(t, err)

	// Flip one payload byte; the integrity digest must catch it.
	tampered := append([]byte(nil), encoded...)
	tampered[10] ^= 0xff
	_, err = DecodeEnvelope(tampered)
	require.ErrorIs(t, err, ErrDeserialization)
}

func TestDecodeEnvelopeTrailingGarbage(t *testing.T) {
	stub := schemetest.New()
	env, _, _ := buildTestEnvelope(t, stub)
	encoded, err := env.Encode()
	require.NoError(t, err)

	_, err = DecodeEnvelope(append(encoded, 0xde, 0xad))
	require.ErrorIs(t, err, ErrDeserialization)
}

func TestDecodeEnvelopeHostileShape(t *testing.T) {
	// A correctly framed and digested message whose shape header declares
	// far more entries than the payload holds must fail, not allocate:
	// the digest is unkeyed, so a hostile peer produces valid framing.
	for _, declared := range []uint32{1 << 16, 0xFFFFFFFF} {
		array := binary.BigEndian.AppendUint32(nil, declared)
		array = binary.BigEndian.AppendUint32(array, declared)

		out, err := appendFrame(nil, frameEvaluationKey, []byte{0x11})
		require.NoError(t, err)
		out, err = appendFrame(out, frameCiphertextArray, array)
		require.NoError(t, err)
		out, err = appendDigestFrame(out)
		require.NoError(t, err)

		_, err = DecodeEnvelope(out)
		require.ErrorIs(t, err, ErrDeserialization, "declared %#x", declared)
	}
}

func TestBuildEnvelopeCarriesNoSecretMaterial(t *testing.T) {
	stub := schemetest.New()
	env, pair, _ := buildTestEnvelope(t, stub)

	// The exported evaluation key is the only key material an envelope
	// may carry.
	exported, err := pair.ExportEvaluationKey()
	require.NoError(t, err)
	require.Equal(t, exported, env.evalKey)
}
