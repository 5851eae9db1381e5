package bgv

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/bgv"

	"github.com/partylikeits1983/satelite-trajectory-fhe/scheme"
)

// evalContext holds one evaluation key's evaluator for the duration of a
// single evaluation call. Lattigo evaluators are not safe for concurrent
// use; isolation between concurrent rounds falls out of each round
// activating its own context.
type evalContext struct {
	s      *Scheme
	keyID  [keyIDLen]byte
	eval   *bgv.Evaluator
	enc    *bgv.Encoder
	closed bool
}

func (c *evalContext) Eq(ct scheme.Ciphertext, value uint64) (scheme.Bit, error) {
	own, err := c.checkCiphertext(ct)
	if err != nil {
		return nil, err
	}
	out, err := c.eqCiphertext(own.ct, value)
	if err != nil {
		return nil, err
	}
	return &bit{s: c.s, ct: out, keyID: c.keyID}, nil
}

func (c *evalContext) AbsDiffLE(ct scheme.Ciphertext, value, threshold uint64) (scheme.Bit, error) {
	own, err := c.checkCiphertext(ct)
	if err != nil {
		return nil, err
	}

	t := c.s.params.PlaintextModulus()
	lo := uint64(0)
	if value > threshold {
		lo = value - threshold
	}
	hi := value + threshold
	if hi < value || hi >= t {
		// value+threshold wrapped or left the plaintext space; the window
		// covers everything above value.
		hi = t - 1
	}

	// OR fold of equalities over the window: no native ordering comparison
	// exists in the scheme.
	acc, err := c.eqCiphertext(own.ct, lo)
	if err != nil {
		return nil, err
	}
	for w := lo + 1; w <= hi; w++ {
		eq, err := c.eqCiphertext(own.ct, w)
		if err != nil {
			return nil, err
		}
		acc, err = c.orCiphertexts(acc, eq)
		if err != nil {
			return nil, err
		}
	}
	return &bit{s: c.s, ct: acc, keyID: c.keyID}, nil
}

func (c *evalContext) And(a, b scheme.Bit) (scheme.Bit, error) {
	if c.closed {
		return nil, scheme.ErrContextClosed
	}
	av, ok := a.(*bit)
	if !ok || av.s != c.s {
		return nil, scheme.ErrForeignValue
	}
	bv, ok := b.(*bit)
	if !ok || bv.s != c.s {
		return nil, scheme.ErrForeignValue
	}
	if av.keyID != c.keyID || bv.keyID != c.keyID {
		return nil, scheme.ErrKeyMismatch
	}
	out, err := c.eval.MulRelinNew(av.ct, bv.ct)
	if err != nil {
		return nil, fmt.Errorf("conjunction: %w", err)
	}
	return &bit{s: c.s, ct: out, keyID: c.keyID}, nil
}

func (c *evalContext) Close() error {
	c.closed = true
	c.eval = nil
	c.enc = nil
	return nil
}

func (c *evalContext) checkCiphertext(ct scheme.Ciphertext) (*ciphertext, error) {
	if c.closed {
		return nil, scheme.ErrContextClosed
	}
	own, ok := ct.(*ciphertext)
	if !ok || own.s != c.s {
		return nil, scheme.ErrForeignValue
	}
	if own.keyID != c.keyID {
		return nil, scheme.ErrKeyMismatch
	}
	return own, nil
}

// eqCiphertext computes the encrypted indicator of ct == value as
// 1 - (ct - value)^(t-1), relying on t prime.
func (c *evalContext) eqCiphertext(ct *rlwe.Ciphertext, value uint64) (*rlwe.Ciphertext, error) {
	t := c.s.params.PlaintextModulus()
	if value >= t {
		return nil, fmt.Errorf("%w: %d >= plaintext modulus %d", scheme.ErrOutOfRange, value, t)
	}

	valuePt, err := c.encodeScalar(value)
	if err != nil {
		return nil, err
	}
	diff, err := c.eval.SubNew(ct, valuePt)
	if err != nil {
		return nil, fmt.Errorf("subtract scalar: %w", err)
	}

	indicator, err := c.powFermat(diff)
	if err != nil {
		return nil, err
	}

	// 1 - z computed as (z - 1) * (t - 1).
	onePt, err := c.encodeScalar(1)
	if err != nil {
		return nil, err
	}
	negOnePt, err := c.encodeScalar(t - 1)
	if err != nil {
		return nil, err
	}
	shifted, err := c.eval.SubNew(indicator, onePt)
	if err != nil {
		return nil, fmt.Errorf("shift indicator: %w", err)
	}
	out, err := c.eval.MulNew(shifted, negOnePt)
	if err != nil {
		return nil, fmt.Errorf("negate indicator: %w", err)
	}
	return out, nil
}

// powFermat raises ct to the power t-1 by square-and-multiply.
func (c *evalContext) powFermat(ct *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	exp := c.s.params.PlaintextModulus() - 1
	var acc *rlwe.Ciphertext
	base := ct
	var err error
	for e := exp; e > 0; e >>= 1 {
		if e&1 == 1 {
			if acc == nil {
				acc = base.CopyNew()
			} else if acc, err = c.eval.MulRelinNew(acc, base); err != nil {
				return nil, fmt.Errorf("fermat multiply: %w", err)
			}
		}
		if e > 1 {
			if base, err = c.eval.MulRelinNew(base, base); err != nil {
				return nil, fmt.Errorf("fermat square: %w", err)
			}
		}
	}
	return acc, nil
}

// orCiphertexts computes a OR b over encrypted 0/1 values as a + b - ab.
func (c *evalContext) orCiphertexts(a, b *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	prod, err := c.eval.MulRelinNew(a, b)
	if err != nil {
		return nil, fmt.Errorf("disjunction multiply: %w", err)
	}
	sum, err := c.eval.AddNew(a, b)
	if err != nil {
		return nil, fmt.Errorf("disjunction add: %w", err)
	}
	out, err := c.eval.SubNew(sum, prod)
	if err != nil {
		return nil, fmt.Errorf("disjunction subtract: %w", err)
	}
	return out, nil
}

func (c *evalContext) encodeScalar(value uint64) (*rlwe.Plaintext, error) {
	pt := bgv.NewPlaintext(c.s.params, c.s.params.MaxLevel())
	if err := c.enc.Encode([]uint64{value}, pt); err != nil {
		return nil, fmt.Errorf("encode scalar: %w", err)
	}
	return pt, nil
}
