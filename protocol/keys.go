package protocol

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/partylikeits1983/satelite-trajectory-fhe/scheme"
)

// KeyPair is one party's secret/evaluation key pair.
//
// The secret key lives in an unexported field and its interface exposes
// no serialized form: the only operations that can reach it are envelope
// construction (encrypt) and verdict decryption within this package, on
// behalf of the owning party. The evaluation key is the only half with an
// export path.
type KeyPair struct {
	sch         scheme.Scheme
	secret      scheme.SecretKey
	eval        scheme.EvaluationKey
	fingerprint string
}

// KeyManager issues key pairs for one party from the configured backend.
type KeyManager struct {
	sch scheme.Scheme
}

// NewKeyManager creates a key manager backed by sch.
func NewKeyManager(sch scheme.Scheme) *KeyManager {
	return &KeyManager{sch: sch}
}

// GenerateKeyPair produces a fresh key pair. Each directional round uses
// its own pair; pairs are never reused across rounds.
func (m *KeyManager) GenerateKeyPair() (*KeyPair, error) {
	sk, ek, err := m.sch.GenerateKeys()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}
	exported, err := ek.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: export evaluation key: %v", ErrKeyGeneration, err)
	}
	sum := sha3.Sum256(exported)
	return &KeyPair{
		sch:         m.sch,
		secret:      sk,
		eval:        ek,
		fingerprint: hex.EncodeToString(sum[:8]),
	}, nil
}

// ExportEvaluationKey serializes the evaluation key for transfer. There
// is no corresponding operation for the secret key.
func (p *KeyPair) ExportEvaluationKey() ([]byte, error) {
	data, err := p.eval.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("export evaluation key: %w", err)
	}
	return data, nil
}

// Fingerprint identifies the key pair in logs without exposing material.
func (p *KeyPair) Fingerprint() string {
	return p.fingerprint
}

// encrypt is the in-party use of the secret key for envelope building.
func (p *KeyPair) encrypt(value uint64) (scheme.Ciphertext, error) {
	return p.sch.Encrypt(value, p.secret)
}

// decryptBit is the in-party use of the secret key for verdict reading.
func (p *KeyPair) decryptBit(b scheme.Bit) (bool, error) {
	return p.secret.Decrypt(b)
}
