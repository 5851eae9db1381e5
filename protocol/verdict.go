package protocol

import (
	"errors"
	"fmt"

	"github.com/partylikeits1983/satelite-trajectory-fhe/scheme"
)

// VerdictSequence is the evaluator's output: one encrypted boolean per
// timestep, decryptable only by the owner whose key pair produced the
// envelope. The evaluator cannot read its own output.
type VerdictSequence struct {
	bits [][]byte
}

// Timesteps returns the number of verdicts.
func (v *VerdictSequence) Timesteps() int { return len(v.bits) }

// Encode serializes the sequence as a VerdictBlob frame with a trailing
// integrity digest.
func (v *VerdictSequence) Encode() ([]byte, error) {
	payload, err := encodeVerdictArray(v.bits)
	if err != nil {
		return nil, err
	}
	out, err := appendFrame(nil, frameVerdicts, payload)
	if err != nil {
		return nil, err
	}
	return appendDigestFrame(out)
}

// DecodeVerdicts validates framing, version and digest before returning
// a usable sequence.
func DecodeVerdicts(data []byte) (*VerdictSequence, error) {
	r := &frameReader{data: data}
	payload, err := r.next(frameVerdicts)
	if err != nil {
		return nil, err
	}
	if err := r.verifyDigest(); err != nil {
		return nil, err
	}
	bits, err := decodeVerdictArray(payload)
	if err != nil {
		return nil, err
	}
	return &VerdictSequence{bits: bits}, nil
}

// DecryptVerdicts opens the sequence with the owner's key pair. Index i
// is true iff the predicate held in every dimension at timestep i. A key
// pair other than the originating owner's fails with ErrDecryption.
func DecryptVerdicts(v *VerdictSequence, pair *KeyPair) ([]bool, error) {
	flags := make([]bool, 0, len(v.bits))
	for t, blob := range v.bits {
		bit, err := pair.sch.UnmarshalBit(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: verdict for timestep %d: %v", ErrDeserialization, t, err)
		}
		flag, err := pair.decryptBit(bit)
		if err != nil {
			if errors.Is(err, scheme.ErrKeyMismatch) || errors.Is(err, scheme.ErrForeignValue) {
				return nil, fmt.Errorf("%w: timestep %d: %v", ErrDecryption, t, err)
			}
			return nil, fmt.Errorf("decrypt verdict for timestep %d: %w", t, err)
		}
		flags = append(flags, flag)
	}
	return flags, nil
}

// CollidingTimesteps lists the indices at which the predicate held. A
// round detects a collision iff the list is non-empty.
func CollidingTimesteps(flags []bool) []int {
	var idx []int
	for i, f := range flags {
		if f {
			idx = append(idx, i)
		}
	}
	return idx
}
