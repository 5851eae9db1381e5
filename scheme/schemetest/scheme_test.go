package schemetest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/partylikeits1983/satelite-trajectory-fhe/scheme"
)

func TestStubRoundTrip(t *testing.T) {
	s := New()
	sk, ek, err := s.GenerateKeys()
	require.NoError(t, err)

	ct, err := s.Encrypt(42, sk)
	require.NoError(t, err)

	ctx, err := s.Activate(ek)
	require.NoError(t, err)
	defer ctx.Close()

	eq, err := ctx.Eq(ct, 42)
	require.NoError(t, err)
	neq, err := ctx.Eq(ct, 43)
	require.NoError(t, err)

	v, err := sk.Decrypt(eq)
	require.NoError(t, err)
	require.True(t, v)
	v, err = sk.Decrypt(neq)
	require.NoError(t, err)
	require.False(t, v)

	both, err := ctx.And(eq, neq)
	require.NoError(t, err)
	v, err = sk.Decrypt(both)
	require.NoError(t, err)
	require.False(t, v)
}

func TestStubThreshold(t *testing.T) {
	s := New()
	sk, ek, err := s.GenerateKeys()
	require.NoError(t, err)
	ct, err := s.Encrypt(100, sk)
	require.NoError(t, err)

	ctx, err := s.Activate(ek)
	require.NoError(t, err)
	defer ctx.Close()

	for _, tc := range []struct {
		value, threshold uint64
		want             bool
	}{
		{100, 0, true},
		{103, 3, true},
		{97, 3, true},
		{104, 3, false},
		{96, 3, false},
		{100, math.MaxUint64, true},
	} {
		bit, err := ctx.AbsDiffLE(ct, tc.value, tc.threshold)
		require.NoError(t, err)
		v, err := sk.Decrypt(bit)
		require.NoError(t, err)
		require.Equal(t, tc.want, v, "value=%d threshold=%d", tc.value, tc.threshold)
	}
}

func TestStubSerialization(t *testing.T) {
	s := New()
	sk, ek, err := s.GenerateKeys()
	require.NoError(t, err)

	ekBytes, err := ek.MarshalBinary()
	require.NoError(t, err)
	ek2, err := s.UnmarshalEvaluationKey(ekBytes)
	require.NoError(t, err)

	ct, err := s.Encrypt(7, sk)
	require.NoError(t, err)
	ctBytes, err := ct.MarshalBinary()
	require.NoError(t, err)
	ct2, err := s.UnmarshalCiphertext(ctBytes)
	require.NoError(t, err)

	ctx, err := s.Activate(ek2)
	require.NoError(t, err)
	defer ctx.Close()

	bit, err := ctx.Eq(ct2, 7)
	require.NoError(t, err)
	bitBytes, err := bit.MarshalBinary()
	require.NoError(t, err)
	bit2, err := s.UnmarshalBit(bitBytes)
	require.NoError(t, err)

	v, err := sk.Decrypt(bit2)
	require.NoError(t, err)
	require.True(t, v)
}

func TestStubKeyIsolation(t *testing.T) {
	s := New()
	sk1, ek1, err := s.GenerateKeys()
	require.NoError(t, err)
	sk2, ek2, err := s.GenerateKeys()
	require.NoError(t, err)

	ct, err := s.Encrypt(5, sk1)
	require.NoError(t, err)

	// Evaluating under the wrong key fails loudly.
	ctx2, err := s.Activate(ek2)
	require.NoError(t, err)
	defer ctx2.Close()
	_, err = ctx2.Eq(ct, 5)
	require.ErrorIs(t, err, scheme.ErrKeyMismatch)

	// Decrypting with the wrong secret key fails loudly.
	ctx1, err := s.Activate(ek1)
	require.NoError(t, err)
	defer ctx1.Close()
	bit, err := ctx1.Eq(ct, 5)
	require.NoError(t, err)
	_, err = sk2.Decrypt(bit)
	require.ErrorIs(t, err, scheme.ErrKeyMismatch)
}

func TestStubContextRelease(t *testing.T) {
	s := New()
	sk, ek, err := s.GenerateKeys()
	require.NoError(t, err)
	ct, err := s.Encrypt(1, sk)
	require.NoError(t, err)

	ctx, err := s.Activate(ek)
	require.NoError(t, err)
	require.Equal(t, int64(1), s.ActiveContexts())

	require.NoError(t, ctx.Close())
	require.NoError(t, ctx.Close()) // idempotent
	require.Zero(t, s.ActiveContexts())

	_, err = ctx.Eq(ct, 1)
	require.ErrorIs(t, err, scheme.ErrContextClosed)
}
