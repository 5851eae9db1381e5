package protocol

import "fmt"

// Envelope is the unit exchanged between parties: the owner's evaluation
// key, the encrypted trajectory in canonical order, and the shape
// descriptor. Contents are wire-ready backend blobs; the secret key has
// no path into an envelope.
type Envelope struct {
	shape   Shape
	evalKey []byte
	cts     [][]byte
}

// BuildEnvelope encrypts the owner's trajectory scalar by scalar, in
// dimension-then-timestep order, and packages it with the exported
// evaluation key.
func BuildEnvelope(tr Trajectory, pair *KeyPair) (*Envelope, error) {
	shape := tr.Shape()
	if shape.Dimensions == 0 || shape.Timesteps == 0 {
		return nil, fmt.Errorf("%w: empty trajectory", ErrShape)
	}

	evalKey, err := pair.ExportEvaluationKey()
	if err != nil {
		return nil, err
	}

	cts := make([][]byte, 0, shape.Dimensions*shape.Timesteps)
	for d := 0; d < shape.Dimensions; d++ {
		for t := 0; t < shape.Timesteps; t++ {
			ct, err := pair.encrypt(tr.Sample(d, t))
			if err != nil {
				return nil, fmt.Errorf("encrypt dimension %d timestep %d: %w", d, t, err)
			}
			blob, err := ct.MarshalBinary()
			if err != nil {
				return nil, fmt.Errorf("serialize ciphertext at dimension %d timestep %d: %w", d, t, err)
			}
			cts = append(cts, blob)
		}
	}

	return &Envelope{shape: shape, evalKey: evalKey, cts: cts}, nil
}

// Shape returns the envelope's shape descriptor.
func (e *Envelope) Shape() Shape { return e.shape }

// ciphertext returns the blob for dimension d, timestep t in canonical
// order.
func (e *Envelope) ciphertext(d, t int) []byte {
	return e.cts[d*e.shape.Timesteps+t]
}

// Encode serializes the envelope as an EvaluationKeyBlob frame, a
// CiphertextArrayBlob frame and a trailing integrity digest.
func (e *Envelope) Encode() ([]byte, error) {
	out, err := appendFrame(nil, frameEvaluationKey, e.evalKey)
	if err != nil {
		return nil, err
	}
	array, err := encodeCiphertextArray(e.shape, e.cts)
	if err != nil {
		return nil, err
	}
	if out, err = appendFrame(out, frameCiphertextArray, array); err != nil {
		return nil, err
	}
	return appendDigestFrame(out)
}

// DecodeEnvelope validates framing, version, integrity digest and shape
// consistency before returning a usable envelope. Malformed input yields
// ErrDeserialization and no envelope, never a partially-valid one.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	r := &frameReader{data: data}
	evalKey, err := r.next(frameEvaluationKey)
	if err != nil {
		return nil, err
	}
	array, err := r.next(frameCiphertextArray)
	if err != nil {
		return nil, err
	}
	if err := r.verifyDigest(); err != nil {
		return nil, err
	}
	shape, cts, err := decodeCiphertextArray(array)
	if err != nil {
		return nil, err
	}
	return &Envelope{shape: shape, evalKey: evalKey, cts: cts}, nil
}
