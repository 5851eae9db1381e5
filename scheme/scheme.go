package scheme

import "errors"

var (
	// ErrKeyMismatch is returned when a key is applied to a ciphertext or
	// encrypted boolean that originated under a different key pair.
	ErrKeyMismatch = errors.New("scheme: key does not match value origin")

	// ErrContextClosed is returned by operations on a released EvalContext.
	ErrContextClosed = errors.New("scheme: evaluation context released")

	// ErrForeignValue is returned when a value produced by one backend is
	// handed to another.
	ErrForeignValue = errors.New("scheme: value belongs to a different backend")

	// ErrOutOfRange is returned when a plaintext scalar does not fit the
	// backend's plaintext space.
	ErrOutOfRange = errors.New("scheme: plaintext scalar out of range")
)

// SecretKey decrypts encrypted booleans produced under its key pair.
//
// Secret keys deliberately have no serialized form. The interface exposes
// decryption and nothing else, so the engine cannot export one even by
// mistake.
type SecretKey interface {
	// Decrypt opens one encrypted boolean. It fails with ErrKeyMismatch if
	// the boolean did not originate under this key pair.
	Decrypt(Bit) (bool, error)
}

// EvaluationKey grants homomorphic computation on ciphertexts produced
// under its key pair, without granting decryption. It is the only key
// material with a serialized form.
type EvaluationKey interface {
	// MarshalBinary exports the key for transfer to the counterpart.
	MarshalBinary() ([]byte, error)
}

// Ciphertext is one encrypted scalar. Opaque to the engine.
type Ciphertext interface {
	// MarshalBinary serializes the ciphertext for transfer.
	MarshalBinary() ([]byte, error)
}

// Bit is one encrypted boolean, the output of a comparison. Opaque to the
// engine; only the originating party's SecretKey can open it.
type Bit interface {
	// MarshalBinary serializes the encrypted boolean for transfer.
	MarshalBinary() ([]byte, error)
}

// EvalContext is a scoped computation handle bound to one evaluation key.
// It is valid from Activate until Close and must not be used by two
// evaluations concurrently.
type EvalContext interface {
	// Eq compares a ciphertext against a plaintext scalar, producing an
	// encrypted boolean that is true iff the underlying values are equal.
	Eq(ct Ciphertext, value uint64) (Bit, error)

	// AbsDiffLE produces an encrypted boolean that is true iff the
	// absolute difference between the ciphertext's value and the plaintext
	// scalar is at most threshold.
	AbsDiffLE(ct Ciphertext, value, threshold uint64) (Bit, error)

	// And conjoins two encrypted booleans.
	And(a, b Bit) (Bit, error)

	// Close releases the context. Further operations fail with
	// ErrContextClosed. Close is idempotent.
	Close() error
}

// Scheme is the full capability set the engine consumes from an
// encrypted-arithmetic backend.
type Scheme interface {
	// Name identifies the backend, e.g. for logs.
	Name() string

	// GenerateKeys produces a fresh secret/evaluation key pair.
	GenerateKeys() (SecretKey, EvaluationKey, error)

	// Encrypt encrypts one plaintext scalar under the owner's secret key.
	Encrypt(value uint64, sk SecretKey) (Ciphertext, error)

	// Activate derives a scoped evaluation context from an evaluation key.
	// The caller must Close the returned context when the evaluation ends,
	// on success and failure alike.
	Activate(ek EvaluationKey) (EvalContext, error)

	// UnmarshalEvaluationKey reverses EvaluationKey.MarshalBinary.
	UnmarshalEvaluationKey(data []byte) (EvaluationKey, error)

	// UnmarshalCiphertext reverses Ciphertext.MarshalBinary.
	UnmarshalCiphertext(data []byte) (Ciphertext, error)

	// UnmarshalBit reverses Bit.MarshalBinary.
	UnmarshalBit(data []byte) (Bit, error)
}
