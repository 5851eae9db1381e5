package schemetest

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/atomic"

	"github.com/partylikeits1983/satelite-trajectory-fhe/scheme"
)

const (
	blobEvalKey    byte = 0x11
	blobCiphertext byte = 0x12
	blobBit        byte = 0x13
)

// Scheme is the stub backend. The zero value is not usable; construct
// with New.
type Scheme struct {
	nextKeyID atomic.Uint64

	// activeContexts counts Activate calls without a matching Close.
	// Tests use it to assert scoped release.
	activeContexts atomic.Int64

	// KeygenErr, ActivateErr and EvalErr, when set, are returned by the
	// corresponding operations. Used to inject failures.
	KeygenErr   error
	ActivateErr error
	EvalErr     error
}

// New creates a stub backend with its own key ID space.
func New() *Scheme {
	return &Scheme{}
}

// ActiveContexts reports how many evaluation contexts are currently
// activated and not yet closed.
func (s *Scheme) ActiveContexts() int64 {
	return s.activeContexts.Load()
}

// KeyPairsIssued reports how many key pairs the backend has generated.
// Each pair carries a distinct sequential key ID.
func (s *Scheme) KeyPairsIssued() uint64 {
	return s.nextKeyID.Load()
}

func (s *Scheme) Name() string { return "schemetest" }

func (s *Scheme) GenerateKeys() (scheme.SecretKey, scheme.EvaluationKey, error) {
	if s.KeygenErr != nil {
		return nil, nil, s.KeygenErr
	}
	id := s.nextKeyID.Inc()
	return &secretKey{keyID: id}, &evaluationKey{keyID: id}, nil
}

func (s *Scheme) Encrypt(value uint64, sk scheme.SecretKey) (scheme.Ciphertext, error) {
	own, ok := sk.(*secretKey)
	if !ok {
		return nil, scheme.ErrForeignValue
	}
	return &ciphertext{keyID: own.keyID, value: value}, nil
}

func (s *Scheme) Activate(ek scheme.EvaluationKey) (scheme.EvalContext, error) {
	if s.ActivateErr != nil {
		return nil, s.ActivateErr
	}
	own, ok := ek.(*evaluationKey)
	if !ok {
		return nil, scheme.ErrForeignValue
	}
	s.activeContexts.Inc()
	return &evalContext{s: s, keyID: own.keyID}, nil
}

func (s *Scheme) UnmarshalEvaluationKey(data []byte) (scheme.EvaluationKey, error) {
	keyID, _, err := readBlob(data, blobEvalKey)
	if err != nil {
		return nil, err
	}
	return &evaluationKey{keyID: keyID}, nil
}

func (s *Scheme) UnmarshalCiphertext(data []byte) (scheme.Ciphertext, error) {
	keyID, value, err := readBlob(data, blobCiphertext)
	if err != nil {
		return nil, err
	}
	return &ciphertext{keyID: keyID, value: value}, nil
}

func (s *Scheme) UnmarshalBit(data []byte) (scheme.Bit, error) {
	keyID, value, err := readBlob(data, blobBit)
	if err != nil {
		return nil, err
	}
	return &bit{keyID: keyID, value: value != 0}, nil
}

type secretKey struct {
	keyID uint64
}

func (k *secretKey) Decrypt(b scheme.Bit) (bool, error) {
	own, ok := b.(*bit)
	if !ok {
		return false, scheme.ErrForeignValue
	}
	if own.keyID != k.keyID {
		return false, scheme.ErrKeyMismatch
	}
	return own.value, nil
}

type evaluationKey struct {
	keyID uint64
}

func (k *evaluationKey) MarshalBinary() ([]byte, error) {
	return writeBlob(blobEvalKey, k.keyID, 0), nil
}

type ciphertext struct {
	keyID uint64
	value uint64
}

func (c *ciphertext) MarshalBinary() ([]byte, error) {
	return writeBlob(blobCiphertext, c.keyID, c.value), nil
}

type bit struct {
	keyID uint64
	value bool
}

func (b *bit) MarshalBinary() ([]byte, error) {
	var v uint64
	if b.value {
		v = 1
	}
	return writeBlob(blobBit, b.keyID, v), nil
}

type evalContext struct {
	s      *Scheme
	keyID  uint64
	closed atomic.Bool
}

func (c *evalContext) Eq(ct scheme.Ciphertext, value uint64) (scheme.Bit, error) {
	own, err := c.checkCiphertext(ct)
	if err != nil {
		return nil, err
	}
	return &bit{keyID: c.keyID, value: own.value == value}, nil
}

func (c *evalContext) AbsDiffLE(ct scheme.Ciphertext, value, threshold uint64) (scheme.Bit, error) {
	own, err := c.checkCiphertext(ct)
	if err != nil {
		return nil, err
	}
	diff := own.value - value
	if value > own.value {
		diff = value - own.value
	}
	return &bit{keyID: c.keyID, value: diff <= threshold}, nil
}

func (c *evalContext) And(a, b scheme.Bit) (scheme.Bit, error) {
	if c.closed.Load() {
		return nil, scheme.ErrContextClosed
	}
	if c.s.EvalErr != nil {
		return nil, c.s.EvalErr
	}
	av, ok := a.(*bit)
	if !ok {
		return nil, scheme.ErrForeignValue
	}
	bv, ok := b.(*bit)
	if !ok {
		return nil, scheme.ErrForeignValue
	}
	if av.keyID != c.keyID || bv.keyID != c.keyID {
		return nil, scheme.ErrKeyMismatch
	}
	return &bit{keyID: c.keyID, value: av.value && bv.value}, nil
}

func (c *evalContext) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.s.activeContexts.Dec()
	}
	return nil
}

func (c *evalContext) checkCiphertext(ct scheme.Ciphertext) (*ciphertext, error) {
	if c.closed.Load() {
		return nil, scheme.ErrContextClosed
	}
	if c.s.EvalErr != nil {
		return nil, c.s.EvalErr
	}
	own, ok := ct.(*ciphertext)
	if !ok {
		return nil, scheme.ErrForeignValue
	}
	if own.keyID != c.keyID {
		return nil, scheme.ErrKeyMismatch
	}
	return own, nil
}

// Stub blobs are a type byte followed by two fixed-width fields.
func writeBlob(typ byte, keyID, value uint64) []byte {
	buf := make([]byte, 1+8+8)
	buf[0] = typ
	binary.BigEndian.PutUint64(buf[1:], keyID)
	binary.BigEndian.PutUint64(buf[9:], value)
	return buf
}

func readBlob(data []byte, typ byte) (keyID, value uint64, err error) {
	if len(data) != 1+8+8 {
		return 0, 0, fmt.Errorf("schemetest: blob length %d", len(data))
	}
	if data[0] != typ {
		return 0, 0, fmt.Errorf("schemetest: blob type 0x%02x, want 0x%02x", data[0], typ)
	}
	return binary.BigEndian.Uint64(data[1:]), binary.BigEndian.Uint64(data[9:]), nil
}
