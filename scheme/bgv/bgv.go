package bgv

import (
	"fmt"
	"math/big"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/bgv"
	"golang.org/x/crypto/sha3"

	"github.com/partylikeits1983/satelite-trajectory-fhe/scheme"
)

const (
	blobEvalKey    byte = 0x21
	blobCiphertext byte = 0x22
	blobBit        byte = 0x23

	keyIDLen = 16
)

// Config selects the lattice parameters for the backend. PlaintextModulus
// must be prime: the equality circuit relies on Fermat's little theorem.
type Config struct {
	LogN             int
	LogQ             []int
	LogP             []int
	PlaintextModulus uint64
}

// DefaultConfig fits the trajectory scalars used in conjunction
// screening (values below 65537) with enough noise budget for the
// 16-squaring equality chain plus per-timestep conjunctions.
func DefaultConfig() Config {
	return Config{
		LogN:             15,
		LogQ:             []int{60, 60, 60, 60, 60, 60, 60, 60, 60, 60, 60, 60},
		LogP:             []int{61, 61},
		PlaintextModulus: 65537,
	}
}

// TestConfig is a smaller parameter set (plaintext space Z_257, 8-squaring
// equality chain) for tests that exercise the real cryptosystem.
func TestConfig() Config {
	return Config{
		LogN:             14,
		LogQ:             []int{55, 55, 55, 55, 55, 55},
		LogP:             []int{50},
		PlaintextModulus: 257,
	}
}

// Scheme implements the capability interface on lattigo BGV.
type Scheme struct {
	cfg    Config
	params bgv.Parameters
}

// New constructs the backend from cfg.
func New(cfg Config) (*Scheme, error) {
	if !new(big.Int).SetUint64(cfg.PlaintextModulus).ProbablyPrime(0) {
		return nil, fmt.Errorf("plaintext modulus %d is not prime", cfg.PlaintextModulus)
	}
	params, err := bgv.NewParametersFromLiteral(bgv.ParametersLiteral{
		LogN:             cfg.LogN,
		LogQ:             cfg.LogQ,
		LogP:             cfg.LogP,
		PlaintextModulus: cfg.PlaintextModulus,
	})
	if err != nil {
		return nil, fmt.Errorf("bgv parameters: %w", err)
	}
	return &Scheme{cfg: cfg, params: params}, nil
}

func (s *Scheme) Name() string { return "bgv" }

// PlaintextModulus reports the size of the plaintext space. Scalars must
// be strictly smaller.
func (s *Scheme) PlaintextModulus() uint64 { return s.params.PlaintextModulus() }

func (s *Scheme) GenerateKeys() (scheme.SecretKey, scheme.EvaluationKey, error) {
	kgen := rlwe.NewKeyGenerator(s.params)
	sk := kgen.GenSecretKeyNew()
	rlk := kgen.GenRelinearizationKeyNew(sk)

	rlkBytes, err := rlk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("marshal relinearization key: %w", err)
	}
	keyID := fingerprint(rlkBytes)

	return &secretKey{s: s, sk: sk, keyID: keyID},
		&evaluationKey{s: s, rlk: rlk, rlkBytes: rlkBytes, keyID: keyID},
		nil
}

func (s *Scheme) Encrypt(value uint64, sk scheme.SecretKey) (scheme.Ciphertext, error) {
	own, ok := sk.(*secretKey)
	if !ok || own.s != s {
		return nil, scheme.ErrForeignValue
	}
	if value >= s.params.PlaintextModulus() {
		return nil, fmt.Errorf("%w: %d >= plaintext modulus %d",
			scheme.ErrOutOfRange, value, s.params.PlaintextModulus())
	}

	pt := bgv.NewPlaintext(s.params, s.params.MaxLevel())
	if err := bgv.NewEncoder(s.params).Encode([]uint64{value}, pt); err != nil {
		return nil, fmt.Errorf("encode scalar: %w", err)
	}
	ct, err := rlwe.NewEncryptor(s.params, own.sk).EncryptNew(pt)
	if err != nil {
		return nil, fmt.Errorf("encrypt scalar: %w", err)
	}
	return &ciphertext{s: s, ct: ct, keyID: own.keyID}, nil
}

func (s *Scheme) Activate(ek scheme.EvaluationKey) (scheme.EvalContext, error) {
	own, ok := ek.(*evaluationKey)
	if !ok || own.s != s {
		return nil, scheme.ErrForeignValue
	}
	evk := rlwe.NewMemEvaluationKeySet(own.rlk)
	return &evalContext{
		s:     s,
		keyID: own.keyID,
		eval:  bgv.NewEvaluator(s.params, evk, true),
		enc:   bgv.NewEncoder(s.params),
	}, nil
}

func (s *Scheme) UnmarshalEvaluationKey(data []byte) (scheme.EvaluationKey, error) {
	keyID, payload, err := splitBlob(data, blobEvalKey)
	if err != nil {
		return nil, err
	}
	rlk := new(rlwe.RelinearizationKey)
	if err := rlk.UnmarshalBinary(payload); err != nil {
		return nil, fmt.Errorf("unmarshal relinearization key: %w", err)
	}
	// Recompute the fingerprint rather than trusting the carried one.
	if fingerprint(payload) != keyID {
		return nil, fmt.Errorf("evaluation key fingerprint mismatch: %w", scheme.ErrKeyMismatch)
	}
	return &evaluationKey{s: s, rlk: rlk, rlkBytes: payload, keyID: keyID}, nil
}

func (s *Scheme) UnmarshalCiphertext(data []byte) (scheme.Ciphertext, error) {
	keyID, payload, err := splitBlob(data, blobCiphertext)
	if err != nil {
		return nil, err
	}
	ct := new(rlwe.Ciphertext)
	if err := ct.UnmarshalBinary(payload); err != nil {
		return nil, fmt.Errorf("unmarshal ciphertext: %w", err)
	}
	return &ciphertext{s: s, ct: ct, keyID: keyID}, nil
}

func (s *Scheme) UnmarshalBit(data []byte) (scheme.Bit, error) {
	keyID, payload, err := splitBlob(data, blobBit)
	if err != nil {
		return nil, err
	}
	ct := new(rlwe.Ciphertext)
	if err := ct.UnmarshalBinary(payload); err != nil {
		return nil, fmt.Errorf("unmarshal encrypted boolean: %w", err)
	}
	return &bit{s: s, ct: ct, keyID: keyID}, nil
}

type secretKey struct {
	s     *Scheme
	sk    *rlwe.SecretKey
	keyID [keyIDLen]byte
}

func (k *secretKey) Decrypt(b scheme.Bit) (bool, error) {
	own, ok := b.(*bit)
	if !ok || own.s != k.s {
		return false, scheme.ErrForeignValue
	}
	if own.keyID != k.keyID {
		return false, scheme.ErrKeyMismatch
	}

	pt := rlwe.NewDecryptor(k.s.params, k.sk).DecryptNew(own.ct)
	values := make([]uint64, k.s.params.MaxSlots())
	if err := bgv.NewEncoder(k.s.params).Decode(pt, values); err != nil {
		return false, fmt.Errorf("decode encrypted boolean: %w", err)
	}
	switch values[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		// Decryption under a key that does not match the ciphertext yields
		// uniform noise, not a boolean.
		return false, fmt.Errorf("verdict decodes to %d: %w", values[0], scheme.ErrKeyMismatch)
	}
}

type evaluationKey struct {
	s        *Scheme
	rlk      *rlwe.RelinearizationKey
	rlkBytes []byte
	keyID    [keyIDLen]byte
}

func (k *evaluationKey) MarshalBinary() ([]byte, error) {
	return joinBlob(blobEvalKey, k.keyID, k.rlkBytes), nil
}

type ciphertext struct {
	s     *Scheme
	ct    *rlwe.Ciphertext
	keyID [keyIDLen]byte
}

func (c *ciphertext) MarshalBinary() ([]byte, error) {
	payload, err := c.ct.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal ciphertext: %w", err)
	}
	return joinBlob(blobCiphertext, c.keyID, payload), nil
}

type bit struct {
	s     *Scheme
	ct    *rlwe.Ciphertext
	keyID [keyIDLen]byte
}

func (b *bit) MarshalBinary() ([]byte, error) {
	payload, err := b.ct.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal encrypted boolean: %w", err)
	}
	return joinBlob(blobBit, b.keyID, payload), nil
}

// fingerprint identifies a key pair by its exported evaluation key.
func fingerprint(rlkBytes []byte) [keyIDLen]byte {
	sum := sha3.Sum256(rlkBytes)
	var id [keyIDLen]byte
	copy(id[:], sum[:keyIDLen])
	return id
}

// Backend blobs are [type byte | key fingerprint | payload].
func joinBlob(typ byte, keyID [keyIDLen]byte, payload []byte) []byte {
	out := make([]byte, 0, 1+keyIDLen+len(payload))
	out = append(out, typ)
	out = append(out, keyID[:]...)
	return append(out, payload...)
}

func splitBlob(data []byte, typ byte) ([keyIDLen]byte, []byte, error) {
	var keyID [keyIDLen]byte
	if len(data) < 1+keyIDLen {
		return keyID, nil, fmt.Errorf("bgv: blob truncated at %d bytes", len(data))
	}
	if data[0] != typ {
		return keyID, nil, fmt.Errorf("bgv: blob type 0x%02x, want 0x%02x", data[0], typ)
	}
	copy(keyID[:], data[1:1+keyIDLen])
	return keyID, data[1+keyIDLen:], nil
}
