package protocol

import "errors"

// Sentinel errors for the round failure taxonomy. Failures wrap one of
// these; callers classify with errors.Is.
var (
	// ErrShape reports a malformed trajectory: ragged per-dimension
	// lengths, zero dimensions or zero timesteps.
	ErrShape = errors.New("protocol: malformed trajectory shape")

	// ErrKeyGeneration reports that the backing scheme rejected key pair
	// generation.
	ErrKeyGeneration = errors.New("protocol: key generation failed")

	// ErrDeserialization reports a malformed, truncated or wrong-version
	// message blob. A blob that fails to deserialize yields no value at
	// all, never a partially-valid one.
	ErrDeserialization = errors.New("protocol: malformed message blob")

	// ErrDimensionMismatch reports that an envelope's shape descriptor
	// disagrees with the local trajectory.
	ErrDimensionMismatch = errors.New("protocol: envelope and local trajectory shapes disagree")

	// ErrEvaluation reports that the backing scheme rejected a homomorphic
	// operation, e.g. an evaluation key not paired with the ciphertexts.
	ErrEvaluation = errors.New("protocol: homomorphic evaluation rejected")

	// ErrDecryption reports a verdict decryption attempted with a secret
	// key that is not the originating owner's.
	ErrDecryption = errors.New("protocol: secret key does not match verdict origin")

	// ErrCancelled reports a round cancelled at a suspension point.
	ErrCancelled = errors.New("protocol: round cancelled")

	// ErrChannelClosed reports a send or receive on a closed channel.
	ErrChannelClosed = errors.New("protocol: channel closed")
)

// transientError marks a channel failure as retryable.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return "transient: " + e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps a channel error to mark it retryable at the two
// transfer stages. All other errors are terminal on first occurrence.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err is marked retryable.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}
