// Package schemetest provides a plaintext stub backend for testing the
// comparison protocol engine.
//
// The stub keeps every value in the clear behind the scheme interfaces:
// "ciphertexts" are tagged plaintext scalars and "encrypted booleans" are
// tagged bools. It provides no confidentiality whatsoever; what it does
// provide is the error surface of a real backend (key origin checks,
// released contexts), deterministic results, and counters for asserting
// that evaluation contexts are released on every path.
package schemetest
