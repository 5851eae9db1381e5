// Package bgv backs the scheme capability interface with the lattigo
// BGV cryptosystem, driven scale-invariant (BFV style) so comparison
// circuits do not consume modulus levels.
//
// Comparisons work in the prime plaintext space Z_t. Equality against a
// plaintext scalar q uses the Fermat indicator: for prime t,
// (x-q)^(t-1) mod t is 0 when x == q and 1 otherwise, so
// 1 - (x-q)^(t-1) is the encrypted equality bit. The exponentiation is a
// square-and-multiply chain of relinearized multiplications; the
// relinearization key is exactly the evaluation capability that crosses
// the trust boundary. Threshold comparison against distance d is an OR
// fold of equalities over the [q-d, q+d] window and is only intended for
// small thresholds.
//
// Plaintext scalars must be smaller than the configured plaintext
// modulus. Both parties must construct the backend from the same Config,
// since serialized keys and ciphertexts do not embed parameters.
package bgv
