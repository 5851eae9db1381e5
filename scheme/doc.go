// Package scheme defines the capability boundary between the comparison
// protocol engine and the encrypted-arithmetic library backing it.
//
// The engine never touches ciphertext math directly. Everything it needs
// from a homomorphic scheme is expressed here as a narrow set of
// capabilities:
//
//   - Scheme: key pair generation, scalar encryption, and (de)serialization
//     of the values that cross the trust boundary.
//   - EvalContext: a scoped handle, derived from one evaluation key, that
//     can compare a ciphertext against plaintext scalars and conjoin the
//     resulting encrypted booleans. Contexts are created per evaluation
//     call and released when the call ends; they are never shared between
//     concurrent evaluations under different keys.
//
// Key material is split by capability, not by convention. A SecretKey can
// decrypt and nothing else; it has no serialized form, so no code path in
// the engine can place it in a message. An EvaluationKey can be exported
// and grants computation on ciphertexts without granting decryption.
//
// Two backends ship with the repository: scheme/bgv on lattigo, and
// scheme/schemetest, a plaintext stub for engine tests.
package scheme
